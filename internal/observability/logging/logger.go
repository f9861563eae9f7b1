// Package logging configures the global zerolog logger and derives
// context loggers for sessions, utterances and engines.
package logging

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds logging configuration.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // json, console
}

// Init points the global logger at out. Unknown levels fall back to info.
func Init(cfg Config, out io.Writer) {
	zerolog.TimeFieldFormat = time.RFC3339

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}

	log.Logger = zerolog.New(out).
		With().
		Timestamp().
		Caller().
		Logger()
}

// WithComponent returns a logger with a component tag.
func WithComponent(component string) zerolog.Logger {
	return log.With().
		Str("component", component).
		Logger()
}

// WithSession returns a logger with dictation session context.
func WithSession(sessionId, mode string) zerolog.Logger {
	return log.With().
		Str("sessionId", sessionId).
		Str("mode", mode).
		Logger()
}

// WithUtterance returns a logger with utterance context.
func WithUtterance(sessionId, utteranceId string) zerolog.Logger {
	return log.With().
		Str("sessionId", sessionId).
		Str("utteranceId", utteranceId).
		Logger()
}

// WithEngine returns a logger tagged with the transcription provider.
func WithEngine(provider string) zerolog.Logger {
	return log.With().
		Str("component", "stt").
		Str("sttProvider", provider).
		Logger()
}
