package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"voice-dictation/internal/observability/metrics"
)

func TestHandler_Health(t *testing.T) {
	ready := true
	h := Handler(func() bool { return ready })

	tests := []struct {
		name  string
		path  string
		ready bool
		code  int
		body  string
	}{
		{"healthz", "/healthz", true, http.StatusOK, "ok"},
		{"ready", "/readyz", true, http.StatusOK, "ready"},
		{"not ready", "/readyz", false, http.StatusServiceUnavailable, "not ready"},
		{"healthz while not ready", "/healthz", false, http.StatusOK, "ok"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ready = tt.ready
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.code || rec.Body.String() != tt.body {
				t.Errorf("expected %d %q, got %d %q", tt.code, tt.body, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestHandler_Metrics(t *testing.T) {
	metrics.DefaultMetrics.RecordModeConflict()

	rec := httptest.NewRecorder()
	Handler(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "voice_dictation_mode_conflicts_total") {
		t.Error("expected dictation metrics in output")
	}
}

func TestUnaryServerInterceptor(t *testing.T) {
	m := metrics.NewMetricsWith(prometheus.NewRegistry())
	ic := UnaryServerInterceptor(m)
	info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}

	_, err := ic(context.Background(), nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return nil, status.Error(codes.NotFound, "unknown service")
	})
	if status.Code(err) != codes.NotFound {
		t.Fatalf("expected NotFound to pass through, got %v", err)
	}

	resp, err := ic(context.Background(), nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return "ok", nil
	})
	if err != nil || resp != "ok" {
		t.Errorf("unexpected passthrough %v %v", resp, err)
	}
}

type fakeStream struct{ grpc.ServerStream }

func TestStreamServerInterceptor(t *testing.T) {
	m := metrics.NewMetricsWith(prometheus.NewRegistry())
	ic := StreamServerInterceptor(m)
	want := errors.New("stream broke")

	err := ic(nil, fakeStream{}, &grpc.StreamServerInfo{FullMethod: "/grpc.health.v1.Health/Watch"},
		func(srv interface{}, ss grpc.ServerStream) error { return want })
	if !errors.Is(err, want) {
		t.Errorf("expected handler error, got %v", err)
	}
}

func TestServer_StartAndShutdown(t *testing.T) {
	s := NewServer("127.0.0.1:0", nil)
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	if err := s.Shutdown(context.Background()); err != nil {
		t.Errorf("unexpected shutdown error: %v", err)
	}
}

func TestServer_StartBindFailure(t *testing.T) {
	s := NewServer("256.0.0.1:bad", nil)
	if err := s.Start(); err == nil {
		t.Error("expected bind error")
	}
}
