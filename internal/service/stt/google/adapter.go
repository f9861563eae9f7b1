// Package google provides a Google Cloud Speech-to-Text engine.
package google

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"

	"voice-dictation/internal/service/stt"
)

// Config holds recognition settings.
type Config struct {
	LanguageCode    string
	SampleRateHz    int32
	AudioEncoding   string
	CredentialsFile string
}

// DefaultConfig matches the recorder's 16 kHz LINEAR16 capture.
func DefaultConfig() Config {
	return Config{
		LanguageCode:  "en-US",
		SampleRateHz:  16000,
		AudioEncoding: "LINEAR16",
	}
}

// recognizer is the subset of the speech client the adapter calls.
type recognizer interface {
	Recognize(ctx context.Context, req *speechpb.RecognizeRequest, opts ...gax.CallOption) (*speechpb.RecognizeResponse, error)
	Close() error
}

// Adapter implements stt.Engine with synchronous Recognize requests.
type Adapter struct {
	client recognizer
	cfg    Config
}

// New creates a Google STT adapter. Without a credentials file the
// client falls back to GOOGLE_APPLICATION_CREDENTIALS.
func New(ctx context.Context, cfg Config) (*Adapter, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	c, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", stt.ErrEngineUnavailable, err)
	}
	return &Adapter{client: c, cfg: cfg}, nil
}

// Name implements stt.Engine.
func (a *Adapter) Name() string {
	return "google"
}

// Request builds the recognition request for raw file contents.
// WAV input leaves encoding and rate unset so they are read from the header.
func (a *Adapter) Request(data []byte) *speechpb.RecognizeRequest {
	cfg := &speechpb.RecognitionConfig{
		LanguageCode: a.cfg.LanguageCode,
	}
	if !bytes.HasPrefix(data, []byte("RIFF")) {
		cfg.Encoding = parseAudioEncoding(a.cfg.AudioEncoding)
		cfg.SampleRateHertz = a.cfg.SampleRateHz
	}
	return &speechpb.RecognizeRequest{
		Config: cfg,
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: data},
		},
	}
}

// Transcribe sends the whole file and joins the top alternative of each result.
func (a *Adapter) Transcribe(ctx context.Context, audioPath string) (string, error) {
	data, err := os.ReadFile(audioPath)
	if err != nil {
		return "", fmt.Errorf("%w: %v", stt.ErrEngineFailed, err)
	}

	resp, err := a.client.Recognize(ctx, a.Request(data))
	if err != nil {
		return "", fmt.Errorf("%w: recognize: %v", stt.ErrEngineFailed, err)
	}

	var parts []string
	for _, r := range resp.GetResults() {
		if len(r.GetAlternatives()) == 0 {
			continue
		}
		parts = append(parts, strings.TrimSpace(r.GetAlternatives()[0].GetTranscript()))
	}
	return strings.Join(parts, " "), nil
}

// Close releases the client connection.
func (a *Adapter) Close() error {
	return a.client.Close()
}

func parseAudioEncoding(enc string) speechpb.RecognitionConfig_AudioEncoding {
	switch enc {
	case "LINEAR16":
		return speechpb.RecognitionConfig_LINEAR16
	case "FLAC":
		return speechpb.RecognitionConfig_FLAC
	case "MULAW":
		return speechpb.RecognitionConfig_MULAW
	case "OGG_OPUS":
		return speechpb.RecognitionConfig_OGG_OPUS
	case "WEBM_OPUS":
		return speechpb.RecognitionConfig_WEBM_OPUS
	default:
		return speechpb.RecognitionConfig_LINEAR16
	}
}
