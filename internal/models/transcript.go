// Package models defines the data structures for dictation events.
package models

const (
	EventUtteranceTranscribed = "dictation.utterance.transcribed"
	EventModeChanged          = "dictation.session.mode"
)

// UtteranceTranscribed is emitted after text has been delivered.
type UtteranceTranscribed struct {
	EventType   string `json:"eventType"`
	SessionID   string `json:"sessionId"`
	UtteranceID string `json:"utteranceId"`
	Mode        string `json:"mode"`
	Timestamp   int64  `json:"timestamp"`
	Text        string `json:"text"`
	Chunks      int    `json:"chunks"`
	AudioBytes  int64  `json:"audioBytes"`
	AudioMs     int64  `json:"audioMs"`
	Provider    string `json:"provider"`
}

// ModeChanged is emitted when the session controller switches mode.
type ModeChanged struct {
	EventType string `json:"eventType"`
	SessionID string `json:"sessionId,omitempty"`
	From      string `json:"from"`
	To        string `json:"to"`
	Reason    string `json:"reason,omitempty"`
	Timestamp int64  `json:"timestamp"`
}
