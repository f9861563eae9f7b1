package delivery

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"voice-dictation/internal/models"
)

type recordingTyper struct {
	mu    sync.Mutex
	typed []string
	err   error
}

func (r *recordingTyper) Type(text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.typed = append(r.typed, text)
	return nil
}

type capturePublisher struct {
	keys   []string
	events []models.UtteranceTranscribed
	err    error
}

func (c *capturePublisher) PublishUtterance(ctx context.Context, key string, event any) error {
	c.keys = append(c.keys, key)
	c.events = append(c.events, event.(models.UtteranceTranscribed))
	return c.err
}

func TestHandler_DeliverTypesVerbatim(t *testing.T) {
	typer := &recordingTyper{}
	pub := &capturePublisher{}
	h := NewHandler(typer, pub, "stdout", "whisper")

	err := h.Deliver(context.Background(), Utterance{
		SessionID:     "sess-1",
		UtteranceID:   "sess-1-utt-1",
		Mode:          "live",
		Text:          "hello world ",
		Chunks:        2,
		AudioBytes:    270000,
		AudioDuration: 10 * time.Second,
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(typer.typed) != 1 || typer.typed[0] != "hello world " {
		t.Fatalf("expected verbatim delivery with trailing space, got %q", typer.typed)
	}
	if len(pub.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(pub.events))
	}
	ev := pub.events[0]
	if ev.Text != "hello world" {
		t.Errorf("expected trimmed event text, got %q", ev.Text)
	}
	if ev.EventType != models.EventUtteranceTranscribed || ev.Provider != "whisper" || ev.Chunks != 2 || ev.AudioMs != 10000 {
		t.Errorf("unexpected event %+v", ev)
	}
	if pub.keys[0] != "sess-1" {
		t.Errorf("expected session id as key, got %s", pub.keys[0])
	}
}

func TestHandler_EmptyTextIgnored(t *testing.T) {
	typer := &recordingTyper{}
	pub := &capturePublisher{}
	h := NewHandler(typer, pub, "stdout", "whisper")

	if err := h.Deliver(context.Background(), Utterance{SessionID: "s", Text: ""}); err != nil {
		t.Fatal(err)
	}
	if len(typer.typed) != 0 || len(pub.events) != 0 {
		t.Error("expected nothing delivered for empty text")
	}
}

func TestHandler_TyperFailureSkipsPublish(t *testing.T) {
	typer := &recordingTyper{err: errors.New("no display")}
	pub := &capturePublisher{}
	h := NewHandler(typer, pub, "keyboard", "whisper")

	if err := h.Deliver(context.Background(), Utterance{SessionID: "s", Text: "hi"}); err == nil {
		t.Fatal("expected typer error")
	}
	if len(pub.events) != 0 {
		t.Error("expected no event when delivery failed")
	}
}

func TestHandler_PublishFailureNotReturned(t *testing.T) {
	pub := &capturePublisher{err: errors.New("broker down")}
	h := NewHandler(&recordingTyper{}, pub, "stdout", "mock")

	if err := h.Deliver(context.Background(), Utterance{SessionID: "s", Text: "hi"}); err != nil {
		t.Errorf("expected publish error to be swallowed, got %v", err)
	}
}

func TestHandler_NilPublisher(t *testing.T) {
	typer := &recordingTyper{}
	h := NewHandler(typer, nil, "stdout", "mock")

	if err := h.Deliver(context.Background(), Utterance{SessionID: "s", Text: "hi"}); err != nil {
		t.Fatal(err)
	}
	if len(typer.typed) != 1 {
		t.Error("expected text typed without a publisher")
	}
}

func TestHandler_InvalidEventNotPublished(t *testing.T) {
	pub := &capturePublisher{}
	h := NewHandler(&recordingTyper{}, pub, "stdout", "mock")

	// Whitespace-only text types fine but the trimmed event has no text
	h.Deliver(context.Background(), Utterance{SessionID: "s", Text: " "})
	if len(pub.events) != 0 {
		t.Error("expected invalid event to be dropped")
	}
}

type fakeKeys struct {
	presses int
	err     error
}

func (f *fakeKeys) Launching() error {
	f.presses++
	return f.err
}

func TestKeyboardTyper_RestoresClipboard(t *testing.T) {
	clip := "previous"
	var pastedWith string
	keys := &fakeKeys{}

	k := &KeyboardTyper{
		keys:      keys,
		readClip:  func() (string, error) { return clip, nil },
		writeClip: func(s string) error { clip = s; return nil },
	}
	// Capture the clipboard contents at the moment of the keystroke
	k.keys = keyFunc(func() error {
		pastedWith = clip
		return keys.Launching()
	})

	if err := k.Type("dictated "); err != nil {
		t.Fatal(err)
	}
	if pastedWith != "dictated " {
		t.Errorf("expected clipboard to hold text during paste, got %q", pastedWith)
	}
	if clip != "previous" {
		t.Errorf("expected clipboard restored, got %q", clip)
	}
	if keys.presses != 1 {
		t.Errorf("expected one paste keystroke, got %d", keys.presses)
	}
}

func TestKeyboardTyper_Errors(t *testing.T) {
	k := &KeyboardTyper{
		keys:      &fakeKeys{},
		readClip:  func() (string, error) { return "", nil },
		writeClip: func(string) error { return errors.New("no clipboard utility") },
	}
	if err := k.Type("x"); err == nil {
		t.Error("expected clipboard error")
	}

	k = &KeyboardTyper{
		keys:      &fakeKeys{err: errors.New("no uinput")},
		readClip:  func() (string, error) { return "", nil },
		writeClip: func(string) error { return nil },
	}
	if err := k.Type("x"); err == nil {
		t.Error("expected keystroke error")
	}
}

type keyFunc func() error

func (f keyFunc) Launching() error { return f() }

func TestWriterTyper(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriterTyper(&buf)
	w.Type("hello ")
	w.Type("world ")
	if buf.String() != "hello world " {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestLogNotifier(t *testing.T) {
	var n Notifier = NewLogNotifier()
	n.Notify("Dictation", "Push-to-talk is disabled while live mode is on")
}
