// Package openai transcribes through the OpenAI audio transcription API.
package openai

import (
	"context"
	"fmt"

	goopenai "github.com/sashabaranov/go-openai"

	"voice-dictation/internal/service/stt"
)

// Config holds API settings. BaseURL is only set for proxies and tests.
type Config struct {
	APIKey   string
	Model    string
	Language string
	BaseURL  string
}

// Adapter implements stt.Engine against the hosted Whisper model.
type Adapter struct {
	client *goopenai.Client
	cfg    Config
}

// New creates an OpenAI adapter. An API key is required.
func New(cfg Config) (*Adapter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: OPENAI_API_KEY not set", stt.ErrEngineUnavailable)
	}
	if cfg.Model == "" {
		cfg.Model = goopenai.Whisper1
	}

	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &Adapter{client: goopenai.NewClientWithConfig(clientCfg), cfg: cfg}, nil
}

// Name implements stt.Engine.
func (a *Adapter) Name() string {
	return "openai"
}

// Transcribe uploads the file and returns the transcript text.
func (a *Adapter) Transcribe(ctx context.Context, audioPath string) (string, error) {
	req := goopenai.AudioRequest{
		Model:    a.cfg.Model,
		FilePath: audioPath,
	}
	// "auto" means let the service detect the language
	if a.cfg.Language != "" && a.cfg.Language != "auto" {
		req.Language = a.cfg.Language
	}

	resp, err := a.client.CreateTranscription(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", stt.ErrEngineFailed, err)
	}
	return resp.Text, nil
}
