package stt

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"voice-dictation/internal/observability/logging"
	"voice-dictation/internal/observability/metrics"
)

// DefaultTimeout bounds a single engine invocation.
const DefaultTimeout = 120 * time.Second

// Transcriber runs an Engine under a hard timeout and never fails:
// any engine error or timeout yields empty text.
type Transcriber struct {
	engine  Engine
	timeout time.Duration
	metrics *metrics.Metrics
	log     zerolog.Logger
}

// NewTranscriber wraps engine. A zero timeout uses DefaultTimeout and a
// nil metrics uses metrics.DefaultMetrics.
func NewTranscriber(engine Engine, timeout time.Duration, m *metrics.Metrics) *Transcriber {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if m == nil {
		m = metrics.DefaultMetrics
	}
	return &Transcriber{
		engine:  engine,
		timeout: timeout,
		metrics: m,
		log:     logging.WithEngine(engine.Name()),
	}
}

// Provider returns the wrapped engine's name.
func (t *Transcriber) Provider() string {
	return t.engine.Name()
}

// Transcribe returns cleaned utterance text for audioPath, or "" when
// nothing usable came back.
func (t *Transcriber) Transcribe(ctx context.Context, audioPath string) string {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	start := time.Now()
	raw, err := t.engine.Transcribe(ctx, audioPath)
	latency := time.Since(start)

	if err != nil {
		errType := "engine"
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			errType = "timeout"
		} else if errors.Is(err, ErrEngineUnavailable) {
			errType = "unavailable"
		}
		t.metrics.RecordSTTError(t.engine.Name(), errType)
		t.log.Warn().
			Err(err).
			Str("path", audioPath).
			Str("errorType", errType).
			Dur("latency", latency).
			Msg("Transcription failed, treating as no speech")
		return ""
	}

	text := Clean(raw)
	t.metrics.RecordSTT(t.engine.Name(), latency.Seconds(), text == "")
	t.log.Debug().
		Str("path", audioPath).
		Int("chars", len(text)).
		Dur("latency", latency).
		Msg("Transcription complete")
	return text
}
