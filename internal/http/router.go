package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"voice-dictation/internal/app"
	"voice-dictation/internal/service/audio"
	"voice-dictation/internal/service/session"
)

// Controller is the part of the session controller exposed over HTTP.
type Controller interface {
	ToggleLive(ctx context.Context) (session.ToggleResult, error)
	TogglePushToTalk(ctx context.Context) (session.ToggleResult, error)
	Status() session.Status
}

type toggleResponse struct {
	Mode       string  `json:"mode"`
	SessionID  string  `json:"sessionId,omitempty"`
	Recording  bool    `json:"recording"`
	Text       string  `json:"text,omitempty"`
	DurationMs int64   `json:"durationMs,omitempty"`
	Error      string  `json:"error,omitempty"`
	Uptime     float64 `json:"uptimeSeconds,omitempty"`
}

// NewRouter constructs the local control API. Toggles keep running when
// the client disconnects.
func NewRouter(application *app.Application, ctrl Controller) http.Handler {
	r := chi.NewRouter()

	// Basic middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// Health endpoints
	r.Get("/v1/liveness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/v1/readiness", func(w http.ResponseWriter, _ *http.Request) {
		if ctrl.Status().Closed {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("shutting down"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	// API routes
	r.Route("/v1", func(r chi.Router) {
		r.Get("/status", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, ctrl.Status())
		})

		r.Post("/live/toggle", func(w http.ResponseWriter, r *http.Request) {
			res, err := ctrl.ToggleLive(context.WithoutCancel(r.Context()))
			writeToggle(w, r, application, res, err)
		})

		r.Post("/ptt/toggle", func(w http.ResponseWriter, r *http.Request) {
			res, err := ctrl.TogglePushToTalk(context.WithoutCancel(r.Context()))
			writeToggle(w, r, application, res, err)
		})
	})

	return r
}

func writeToggle(w http.ResponseWriter, r *http.Request, application *app.Application, res session.ToggleResult, err error) {
	body := toggleResponse{
		Mode:       res.Mode.String(),
		SessionID:  res.SessionID,
		Recording:  res.Recording,
		Text:       res.Text,
		DurationMs: res.Duration.Milliseconds(),
	}
	if application != nil {
		body.Uptime = application.Uptime().Seconds()
	}
	if err == nil {
		writeJSON(w, http.StatusOK, body)
		return
	}

	body.Error = err.Error()
	code := statusFor(err)
	log.Warn().
		Err(err).
		Str("path", r.URL.Path).
		Str("requestId", middleware.GetReqID(r.Context())).
		Int("status", code).
		Msg("Toggle rejected")
	writeJSON(w, code, body)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrModeConflict):
		return http.StatusConflict
	case errors.Is(err, session.ErrClosed),
		errors.Is(err, audio.ErrRecorderUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}
