package events

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"voice-dictation/internal/models"
	"voice-dictation/internal/schema"
	"voice-dictation/internal/service/session"
)

// SessionPublisher is the subset of Publisher used for mode events.
type SessionPublisher interface {
	PublishSession(ctx context.Context, key string, event any) error
}

// ModeObserver publishes a ModeChanged event for every session mode
// change. Publishing happens off the caller's goroutine.
type ModeObserver struct {
	publisher SessionPublisher
	validator *schema.Validator
	timeout   time.Duration
	wg        sync.WaitGroup
}

// NewModeObserver creates an observer that publishes through p, giving
// each event at most timeout to be written.
func NewModeObserver(p SessionPublisher, timeout time.Duration) *ModeObserver {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &ModeObserver{
		publisher: p,
		validator: schema.New(),
		timeout:   timeout,
	}
}

// OnModeChange implements session.Observer.
func (o *ModeObserver) OnModeChange(sessionId string, from, to session.Mode, reason string) {
	event := models.ModeChanged{
		EventType: models.EventModeChanged,
		SessionID: sessionId,
		From:      from.String(),
		To:        to.String(),
		Reason:    reason,
		Timestamp: time.Now().UnixMilli(),
	}
	if err := o.validator.Validate(event); err != nil {
		log.Warn().Err(err).Msg("Mode change event failed validation")
		return
	}

	key := sessionId
	if key == "" {
		key = event.To
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
		defer cancel()
		if err := o.publisher.PublishSession(ctx, key, event); err != nil {
			log.Warn().Err(err).Str("to", event.To).Msg("Failed to publish mode change")
		}
	}()
}

// Wait blocks until every pending publish has finished.
func (o *ModeObserver) Wait() {
	o.wg.Wait()
}
