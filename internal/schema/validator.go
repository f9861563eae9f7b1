package schema

import (
	"errors"
	"fmt"

	"voice-dictation/internal/models"
)

var (
	ErrMissingEventType = errors.New("event type is required")
	ErrMissingField     = errors.New("required field is empty")
	ErrUnknownEvent     = errors.New("unknown event")
)

type Validator struct{}

func New() *Validator {
	return &Validator{}
}

// Validate checks the required fields of known dictation events.
func (v *Validator) Validate(event any) error {
	switch ev := event.(type) {
	case models.UtteranceTranscribed:
		return v.validateUtterance(&ev)
	case *models.UtteranceTranscribed:
		return v.validateUtterance(ev)
	case models.ModeChanged:
		return v.validateMode(&ev)
	case *models.ModeChanged:
		return v.validateMode(ev)
	default:
		return fmt.Errorf("%w: %T", ErrUnknownEvent, event)
	}
}

func (v *Validator) validateUtterance(ev *models.UtteranceTranscribed) error {
	if ev.EventType != models.EventUtteranceTranscribed {
		return ErrMissingEventType
	}
	if ev.SessionID == "" {
		return fmt.Errorf("%w: sessionId", ErrMissingField)
	}
	if ev.Text == "" {
		return fmt.Errorf("%w: text", ErrMissingField)
	}
	if ev.Timestamp <= 0 {
		return fmt.Errorf("%w: timestamp", ErrMissingField)
	}
	return nil
}

func (v *Validator) validateMode(ev *models.ModeChanged) error {
	if ev.EventType != models.EventModeChanged {
		return ErrMissingEventType
	}
	if ev.To == "" {
		return fmt.Errorf("%w: to", ErrMissingField)
	}
	if ev.Timestamp <= 0 {
		return fmt.Errorf("%w: timestamp", ErrMissingField)
	}
	return nil
}
