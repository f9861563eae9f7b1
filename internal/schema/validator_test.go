package schema

import (
	"errors"
	"testing"

	"voice-dictation/internal/models"
)

func TestValidate(t *testing.T) {
	v := New()

	good := models.UtteranceTranscribed{
		EventType: models.EventUtteranceTranscribed,
		SessionID: "live-1",
		Text:      "hello world",
		Timestamp: 1700000000000,
	}

	tests := []struct {
		name    string
		event   any
		wantErr error
	}{
		{"utterance ok", good, nil},
		{"utterance pointer ok", &good, nil},
		{"utterance wrong type", models.UtteranceTranscribed{EventType: "x", SessionID: "s", Text: "t", Timestamp: 1}, ErrMissingEventType},
		{"utterance empty text", models.UtteranceTranscribed{EventType: models.EventUtteranceTranscribed, SessionID: "s", Timestamp: 1}, ErrMissingField},
		{"utterance no session", models.UtteranceTranscribed{EventType: models.EventUtteranceTranscribed, Text: "t", Timestamp: 1}, ErrMissingField},
		{"mode ok", models.ModeChanged{EventType: models.EventModeChanged, From: "push-to-talk", To: "live", Timestamp: 1}, nil},
		{"mode no target", models.ModeChanged{EventType: models.EventModeChanged, Timestamp: 1}, ErrMissingField},
		{"mode no timestamp", &models.ModeChanged{EventType: models.EventModeChanged, To: "live"}, ErrMissingField},
		{"unknown", map[string]string{"a": "b"}, ErrUnknownEvent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.event)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}
