package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-audio/wav"

	"voice-dictation/internal/config"
	"voice-dictation/internal/observability/logging"
	"voice-dictation/internal/observability/metrics"
	"voice-dictation/internal/service/stt"
	"voice-dictation/internal/service/stt/provider"
)

// Transcribes one WAV file with the configured engine and prints the
// cleaned text, the same path a dictated utterance takes.
func main() {
	audioFile := flag.String("audio", "", "Path to WAV file (16kHz 16-bit mono recommended)")
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "path to a YAML config file")
	providerName := flag.String("provider", "", "override stt provider (whisper, google, openai, mock)")
	flag.Parse()

	if *audioFile == "" {
		log.Fatal("-audio is required")
	}

	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *providerName != "" {
		cfg.STT.Provider = *providerName
	}
	logging.Init(logging.Config{
		Level:  cfg.Observability.LogLevel,
		Format: "console",
	}, os.Stderr)

	f, err := os.Open(*audioFile)
	if err != nil {
		log.Fatalf("Failed to open audio file: %v", err)
	}
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		f.Close()
		log.Fatal("Not a valid WAV file")
	}
	dur, err := dec.Duration()
	f.Close()
	if err != nil {
		log.Fatalf("Failed to read WAV duration: %v", err)
	}

	log.Printf("WAV file: format=%d channels=%d sampleRate=%d bitsPerSample=%d duration=%v",
		dec.WavAudioFormat, dec.NumChans, dec.SampleRate, dec.BitDepth, dur)

	if dec.WavAudioFormat != 1 { // PCM
		log.Fatal("Only PCM format supported")
	}
	if int(dec.SampleRate) != cfg.Recorder.SampleRateHz {
		log.Printf("Warning: Sample rate is %d Hz, expected %d Hz", dec.SampleRate, cfg.Recorder.SampleRateHz)
	}

	engine, release, err := provider.New(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Transcription engine unavailable: %v", err)
	}
	defer release()

	transcriber := stt.NewTranscriber(engine, cfg.STT.Timeout, metrics.DefaultMetrics)

	start := time.Now()
	text := transcriber.Transcribe(context.Background(), *audioFile)
	log.Printf("Transcribed with %s in %v", transcriber.Provider(), time.Since(start).Round(time.Millisecond))

	if text == "" {
		log.Println("No speech recognized")
		return
	}
	fmt.Println(text)
}
