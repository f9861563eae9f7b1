// Package stt defines speech-to-text engines and the Transcriber that
// wraps them with a timeout and output cleanup.
package stt

import (
	"context"
	"errors"
)

var (
	// ErrEngineFailed is returned by an engine when transcription did not complete.
	ErrEngineFailed = errors.New("transcription engine failed")
	// ErrEngineUnavailable means the engine binary, model or credentials are missing.
	ErrEngineUnavailable = errors.New("transcription engine unavailable")
)

// Engine transcribes a finished audio file in one request.
// Implementations may return raw engine text; Transcriber cleans it.
type Engine interface {
	// Name identifies the provider in logs and metrics.
	Name() string

	// Transcribe returns the text spoken in the WAV file at audioPath.
	Transcribe(ctx context.Context, audioPath string) (string, error)
}
