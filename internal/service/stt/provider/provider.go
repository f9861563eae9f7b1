// Package provider builds the configured transcription engine.
package provider

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"voice-dictation/internal/config"
	"voice-dictation/internal/service/stt"
	"voice-dictation/internal/service/stt/google"
	"voice-dictation/internal/service/stt/mock"
	"voice-dictation/internal/service/stt/openai"
	"voice-dictation/internal/service/stt/whisper"
)

// New creates the engine named by cfg.STT.Provider and a func releasing
// it. The release func is never nil.
func New(ctx context.Context, cfg *config.Config) (stt.Engine, func(), error) {
	noop := func() {}

	switch cfg.STT.Provider {
	case "whisper":
		modelPath := cfg.STT.ModelPath
		if modelPath == "" {
			p, err := whisper.FindModel(cfg.STT.ModelsDir)
			if err != nil {
				return nil, noop, err
			}
			modelPath = p
		}
		eng := whisper.New(whisper.Config{
			BinaryPath: cfg.STT.WhisperPath,
			ModelPath:  modelPath,
			Language:   cfg.STT.Language,
		})
		if err := eng.Check(); err != nil {
			return nil, noop, err
		}
		log.Info().Str("model", modelPath).Msg("Using whisper.cpp")
		return eng, noop, nil

	case "google":
		gcfg := google.DefaultConfig()
		gcfg.LanguageCode = cfg.STT.GoogleLanguage
		gcfg.SampleRateHz = int32(cfg.Recorder.SampleRateHz)
		gcfg.CredentialsFile = cfg.STT.GoogleCredsFile
		eng, err := google.New(ctx, gcfg)
		if err != nil {
			return nil, noop, err
		}
		return eng, func() {
			if err := eng.Close(); err != nil {
				log.Warn().Err(err).Msg("Error closing Google STT client")
			}
		}, nil

	case "openai":
		eng, err := openai.New(openai.Config{
			APIKey:   cfg.STT.OpenAIAPIKey,
			Model:    cfg.STT.OpenAIModel,
			Language: cfg.STT.Language,
		})
		if err != nil {
			return nil, noop, err
		}
		return eng, noop, nil

	case "mock":
		log.Warn().Msg("Using mock transcription engine")
		return mock.New(), noop, nil

	default:
		return nil, noop, fmt.Errorf("%w: unknown provider %q", stt.ErrEngineUnavailable, cfg.STT.Provider)
	}
}
