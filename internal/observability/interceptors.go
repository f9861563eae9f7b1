package observability

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"voice-dictation/internal/observability/logging"
	"voice-dictation/internal/observability/metrics"
)

// callObserver records the outcome of one gRPC call.
type callObserver struct {
	m   *metrics.Metrics
	log zerolog.Logger
}

func newCallObserver(m *metrics.Metrics) callObserver {
	if m == nil {
		m = metrics.DefaultMetrics
	}
	return callObserver{m: m, log: logging.WithComponent("grpc")}
}

// done counts the call by status code. Failed calls log at warn level;
// health polling stays at debug.
func (o callObserver) done(method, kind string, start time.Time, err error) {
	code := status.Code(err)
	o.m.RecordGRPCCall(method, code.String())

	ev := o.log.Debug()
	if code != codes.OK && code != codes.Canceled && code != codes.NotFound {
		ev = o.log.Warn().Err(err)
	}
	ev.Str("method", method).
		Str("kind", kind).
		Str("code", code.String()).
		Dur("duration", time.Since(start)).
		Msg("gRPC call completed")
}

// UnaryServerInterceptor records metrics and logs for unary calls.
func UnaryServerInterceptor(m *metrics.Metrics) grpc.UnaryServerInterceptor {
	obs := newCallObserver(m)
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		obs.done(info.FullMethod, "unary", start, err)
		return resp, err
	}
}

// StreamServerInterceptor records metrics and logs for streams such as
// health Watch.
func StreamServerInterceptor(m *metrics.Metrics) grpc.StreamServerInterceptor {
	obs := newCallObserver(m)
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		start := time.Now()
		err := handler(srv, ss)
		obs.done(info.FullMethod, "stream", start, err)
		return err
	}
}
