package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"voice-dictation/internal/service/audio"
	"voice-dictation/internal/service/session"
)

type fakeController struct {
	live      bool
	recording bool
	closed    bool
	pttErr    error
	liveErr   error
	ctxErr    error
}

func (f *fakeController) ToggleLive(ctx context.Context) (session.ToggleResult, error) {
	f.ctxErr = ctx.Err()
	if f.liveErr != nil {
		return session.ToggleResult{Mode: session.ModePushToTalk}, f.liveErr
	}
	f.live = !f.live
	if f.live {
		return session.ToggleResult{Mode: session.ModeLive, SessionID: "live-1"}, nil
	}
	return session.ToggleResult{Mode: session.ModePushToTalk, SessionID: "live-1"}, nil
}

func (f *fakeController) TogglePushToTalk(ctx context.Context) (session.ToggleResult, error) {
	if f.pttErr != nil {
		return session.ToggleResult{Mode: session.ModeLive}, f.pttErr
	}
	f.recording = !f.recording
	if f.recording {
		return session.ToggleResult{Mode: session.ModePushToTalk, SessionID: "ptt-1", Recording: true}, nil
	}
	return session.ToggleResult{Mode: session.ModePushToTalk, SessionID: "ptt-1", Text: "hello", Duration: 2 * time.Second}, nil
}

func (f *fakeController) Status() session.Status {
	mode := session.ModePushToTalk
	if f.live {
		mode = session.ModeLive
	}
	return session.Status{Mode: mode.String(), Closed: f.closed}
}

func do(t *testing.T, h http.Handler, method, path string) (*httptest.ResponseRecorder, toggleResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	var body toggleResponse
	if rec.Header().Get("Content-Type") == "application/json" {
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}
	}
	return rec, body
}

func TestRouter_Health(t *testing.T) {
	ctrl := &fakeController{}
	h := NewRouter(nil, ctrl)

	rec, _ := do(t, h, http.MethodGet, "/v1/liveness")
	if rec.Code != http.StatusOK {
		t.Errorf("liveness: expected 200, got %d", rec.Code)
	}

	rec, _ = do(t, h, http.MethodGet, "/v1/readiness")
	if rec.Code != http.StatusOK {
		t.Errorf("readiness: expected 200, got %d", rec.Code)
	}

	ctrl.closed = true
	rec, _ = do(t, h, http.MethodGet, "/v1/readiness")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("readiness after shutdown: expected 503, got %d", rec.Code)
	}
}

func TestRouter_ToggleLive(t *testing.T) {
	ctrl := &fakeController{}
	h := NewRouter(nil, ctrl)

	rec, body := do(t, h, http.MethodPost, "/v1/live/toggle")
	if rec.Code != http.StatusOK || body.Mode != "live" || body.SessionID != "live-1" {
		t.Fatalf("unexpected start response %d %+v", rec.Code, body)
	}

	rec, body = do(t, h, http.MethodGet, "/v1/status")
	var st session.Status
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil || st.Mode != "live" {
		t.Errorf("expected live status, got %s (%v)", rec.Body.String(), err)
	}

	rec, body = do(t, h, http.MethodPost, "/v1/live/toggle")
	if rec.Code != http.StatusOK || body.Mode != "push-to-talk" {
		t.Errorf("unexpected stop response %d %+v", rec.Code, body)
	}
	if ctrl.ctxErr != nil {
		t.Errorf("expected toggle context to be live, got %v", ctrl.ctxErr)
	}
}

func TestRouter_PushToTalk(t *testing.T) {
	h := NewRouter(nil, &fakeController{})

	_, body := do(t, h, http.MethodPost, "/v1/ptt/toggle")
	if !body.Recording || body.SessionID != "ptt-1" {
		t.Fatalf("expected recording to start, got %+v", body)
	}

	_, body = do(t, h, http.MethodPost, "/v1/ptt/toggle")
	if body.Recording || body.Text != "hello" || body.DurationMs != 2000 {
		t.Errorf("expected delivered text, got %+v", body)
	}
}

func TestRouter_ErrorStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"mode conflict", session.ErrModeConflict, http.StatusConflict},
		{"closed", session.ErrClosed, http.StatusServiceUnavailable},
		{"recorder unavailable", fmt.Errorf("start sox: %w", audio.ErrRecorderUnavailable), http.StatusServiceUnavailable},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewRouter(nil, &fakeController{pttErr: tt.err})
			rec, body := do(t, h, http.MethodPost, "/v1/ptt/toggle")
			if rec.Code != tt.code {
				t.Errorf("expected %d, got %d", tt.code, rec.Code)
			}
			if body.Error == "" {
				t.Error("expected error message in body")
			}
		})
	}
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	h := NewRouter(nil, &fakeController{})
	rec, _ := do(t, h, http.MethodGet, "/v1/live/toggle")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}
}
