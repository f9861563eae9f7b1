package stt

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeEngine struct {
	text  string
	err   error
	block bool
	calls int
}

func (f *fakeEngine) Name() string { return "fake" }

func (f *fakeEngine) Transcribe(ctx context.Context, audioPath string) (string, error) {
	f.calls++
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.text, f.err
}

func TestTranscriber_CleansOutput(t *testing.T) {
	eng := &fakeEngine{text: "  hello   [NOISE] world \n"}
	tr := NewTranscriber(eng, time.Second, nil)

	if got := tr.Transcribe(context.Background(), "a.wav"); got != "hello world" {
		t.Errorf("expected %q, got %q", "hello world", got)
	}
	if tr.Provider() != "fake" {
		t.Errorf("expected provider fake, got %s", tr.Provider())
	}
}

func TestTranscriber_NeverFails(t *testing.T) {
	tests := []struct {
		name   string
		engine *fakeEngine
	}{
		{"engine error", &fakeEngine{text: "partial", err: errors.New("exit status 1")}},
		{"unavailable", &fakeEngine{err: ErrEngineUnavailable}},
		{"marker only", &fakeEngine{text: "[BLANK_AUDIO]"}},
		{"empty", &fakeEngine{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTranscriber(tt.engine, time.Second, nil)
			if got := tr.Transcribe(context.Background(), "a.wav"); got != "" {
				t.Errorf("expected empty text, got %q", got)
			}
		})
	}
}

func TestTranscriber_Timeout(t *testing.T) {
	tr := NewTranscriber(&fakeEngine{block: true}, 50*time.Millisecond, nil)

	start := time.Now()
	got := tr.Transcribe(context.Background(), "a.wav")
	if got != "" {
		t.Errorf("expected empty text on timeout, got %q", got)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("timeout not enforced, took %v", elapsed)
	}
}

func TestNewTranscriber_DefaultTimeout(t *testing.T) {
	tr := NewTranscriber(&fakeEngine{}, 0, nil)
	if tr.timeout != DefaultTimeout {
		t.Errorf("expected default timeout %v, got %v", DefaultTimeout, tr.timeout)
	}
}
