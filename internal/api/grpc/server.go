// Package grpcapi exposes dictation mode over the standard gRPC health
// protocol so scripts and status bars can poll it.
package grpcapi

import (
	"context"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"voice-dictation/internal/observability/logging"
	"voice-dictation/internal/service/session"
)

// Health service names. SERVING means the mode can be used right now.
const (
	ServiceLive       = "dictation.LiveMode"
	ServicePushToTalk = "dictation.PushToTalk"
)

// Server publishes mode changes as per-service health status.
type Server struct {
	health *health.Server
	log    zerolog.Logger
}

// Register installs the health service on g, starting in push-to-talk mode.
func Register(g *grpc.Server) *Server {
	s := &Server{
		health: health.NewServer(),
		log:    logging.WithComponent("grpc"),
	}
	healthpb.RegisterHealthServer(g, s.health)

	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	s.apply(session.ModePushToTalk)
	return s
}

// OnModeChange implements session.Observer.
func (s *Server) OnModeChange(sessionId string, from, to session.Mode, reason string) {
	s.apply(to)
	s.log.Debug().
		Str("sessionId", sessionId).
		Str("from", from.String()).
		Str("to", to.String()).
		Str("reason", reason).
		Msg("Health status updated")
}

func (s *Server) apply(mode session.Mode) {
	live, ptt := healthpb.HealthCheckResponse_NOT_SERVING, healthpb.HealthCheckResponse_SERVING
	if mode == session.ModeLive {
		live, ptt = healthpb.HealthCheckResponse_SERVING, healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus(ServiceLive, live)
	s.health.SetServingStatus(ServicePushToTalk, ptt)
}

// Check reports the status of one service.
func (s *Server) Check(ctx context.Context, service string) (healthpb.HealthCheckResponse_ServingStatus, error) {
	resp, err := s.health.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, err
	}
	return resp.GetStatus(), nil
}

// Shutdown marks every service NOT_SERVING.
func (s *Server) Shutdown() {
	s.health.Shutdown()
}
