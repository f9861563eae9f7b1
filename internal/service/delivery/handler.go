// Package delivery hands transcribed text to the focused application and
// publishes a transcript event for every delivered utterance.
package delivery

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"voice-dictation/internal/models"
	"voice-dictation/internal/observability/logging"
	"voice-dictation/internal/observability/metrics"
	"voice-dictation/internal/schema"
)

// Utterance is one finished transcription ready for delivery.
type Utterance struct {
	SessionID     string
	UtteranceID   string
	Mode          string
	Text          string // exactly what gets typed
	Chunks        int
	AudioBytes    int64
	AudioDuration time.Duration
}

// Publisher receives transcript events. *events.Publisher satisfies it.
type Publisher interface {
	PublishUtterance(ctx context.Context, key string, event any) error
}

// Handler types utterance text and emits UtteranceTranscribed events.
type Handler struct {
	typer     Typer
	publisher Publisher
	validator *schema.Validator
	mode      string
	provider  string
	metrics   *metrics.Metrics
	log       zerolog.Logger
}

// NewHandler creates a delivery handler. publisher may be nil.
// mode names the typer for metrics, provider the transcription engine.
func NewHandler(typer Typer, publisher Publisher, mode, provider string) *Handler {
	return &Handler{
		typer:     typer,
		publisher: publisher,
		validator: schema.New(),
		mode:      mode,
		provider:  provider,
		metrics:   metrics.DefaultMetrics,
		log:       logging.WithComponent("delivery"),
	}
}

// Deliver types u.Text verbatim. Empty text is ignored. Publish failures
// are logged and never surface to the caller.
func (h *Handler) Deliver(ctx context.Context, u Utterance) error {
	if u.Text == "" {
		return nil
	}

	err := h.typer.Type(u.Text)
	h.metrics.RecordDelivery(h.mode, len([]rune(u.Text)), err)
	if err != nil {
		h.log.Error().
			Err(err).
			Str("sessionId", u.SessionID).
			Str("utteranceId", u.UtteranceID).
			Msg("Text delivery failed")
		return err
	}

	h.log.Info().
		Str("sessionId", u.SessionID).
		Str("utteranceId", u.UtteranceID).
		Str("mode", u.Mode).
		Int("chunks", u.Chunks).
		Int("chars", len(u.Text)).
		Msg("Utterance delivered")

	h.publish(ctx, u)
	return nil
}

func (h *Handler) publish(ctx context.Context, u Utterance) {
	if h.publisher == nil {
		return
	}

	ev := models.UtteranceTranscribed{
		EventType:   models.EventUtteranceTranscribed,
		SessionID:   u.SessionID,
		UtteranceID: u.UtteranceID,
		Mode:        u.Mode,
		Timestamp:   time.Now().UnixMilli(),
		Text:        strings.TrimSpace(u.Text),
		Chunks:      u.Chunks,
		AudioBytes:  u.AudioBytes,
		AudioMs:     u.AudioDuration.Milliseconds(),
		Provider:    h.provider,
	}
	if err := h.validator.Validate(ev); err != nil {
		h.log.Warn().Err(err).Str("utteranceId", u.UtteranceID).Msg("Dropping invalid transcript event")
		return
	}
	if err := h.publisher.PublishUtterance(ctx, u.SessionID, ev); err != nil {
		h.log.Warn().Err(err).Str("utteranceId", u.UtteranceID).Msg("Failed to publish transcript event")
	}
}
