package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	grpcapi "voice-dictation/internal/api/grpc"
)

const usage = `usage: dictctl [flags] <command>

commands:
  ptt      toggle push-to-talk recording
  live     toggle live mode
  status   print the daemon status
  health   query gRPC health for both modes
`

func main() {
	httpAddr := flag.String("http", "http://localhost:8765", "daemon HTTP address")
	grpcAddr := flag.String("grpc", "localhost:50051", "daemon gRPC address")
	timeout := flag.Duration("timeout", 3*time.Minute, "request timeout")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage); flag.PrintDefaults() }
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	switch flag.Arg(0) {
	case "ptt":
		call(ctx, http.MethodPost, *httpAddr+"/v1/ptt/toggle")
	case "live":
		call(ctx, http.MethodPost, *httpAddr+"/v1/live/toggle")
	case "status":
		call(ctx, http.MethodGet, *httpAddr+"/v1/status")
	case "health":
		health(ctx, *grpcAddr)
	default:
		flag.Usage()
		os.Exit(2)
	}
}

func call(ctx context.Context, method, url string) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		log.Fatalf("failed to build request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	fmt.Print(string(body))
	if resp.StatusCode >= 300 {
		log.Printf("daemon returned %s", resp.Status)
		os.Exit(1)
	}
}

func health(ctx context.Context, addr string) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	defer conn.Close()

	client := healthpb.NewHealthClient(conn)
	for _, svc := range []string{"", grpcapi.ServicePushToTalk, grpcapi.ServiceLive} {
		resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: svc})
		if err != nil {
			log.Fatalf("health check %q failed: %v", svc, err)
		}
		name := svc
		if name == "" {
			name = "(overall)"
		}
		fmt.Printf("%-22s %s\n", name, resp.GetStatus())
	}
}
