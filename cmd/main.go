package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	grpcapi "voice-dictation/internal/api/grpc"
	"voice-dictation/internal/app"
	"voice-dictation/internal/config"
	"voice-dictation/internal/events"
	httpapi "voice-dictation/internal/http"
	"voice-dictation/internal/observability"
	"voice-dictation/internal/observability/logging"
	"voice-dictation/internal/observability/metrics"
	"voice-dictation/internal/service/audio"
	"voice-dictation/internal/service/delivery"
	"voice-dictation/internal/service/segment"
	"voice-dictation/internal/service/session"
	"voice-dictation/internal/service/stt"
	"voice-dictation/internal/service/stt/provider"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "path to a YAML config file")
	flag.Parse()

	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	// Logs go to stderr when stdout carries dictated text.
	logOut := os.Stdout
	if cfg.Delivery.Mode == "stdout" {
		logOut = os.Stderr
	}
	logging.Init(logging.Config{
		Level:  cfg.Observability.LogLevel,
		Format: cfg.Observability.LogFormat,
	}, logOut)

	application := app.New(cfg)
	if err := application.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start application")
	}

	engine, closeEngine, err := provider.New(context.Background(), cfg)
	if err != nil {
		log.Fatal().Err(err).Str("provider", cfg.STT.Provider).Msg("Transcription engine unavailable")
	}
	defer closeEngine()
	transcriber := stt.NewTranscriber(engine, cfg.STT.Timeout, metrics.DefaultMetrics)

	recorder := audio.NewSoxRecorder(cfg.Recorder.Command, audio.Format{
		SampleRateHz: cfg.Recorder.SampleRateHz,
		Channels:     cfg.Recorder.Channels,
		BitDepth:     cfg.Recorder.BitDepth,
	})
	if err := recorder.Available(); err != nil {
		log.Warn().Err(err).Msg("Recorder not found, recordings will fail until sox is installed")
	}

	var merger audio.Merger = audio.NewSoxMerger(cfg.Recorder.MergeCommand, cfg.Live.MergeTimeout)
	if cfg.Recorder.Merger == "wav" {
		merger = audio.WAVMerger{}
	}

	classifier, err := segment.NewClassifier(cfg.Live.Classifier, cfg.Live.SpeechThresholdBytes)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid live classifier")
	}

	typer, err := buildTyper(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize text delivery")
	}

	var notifier delivery.Notifier = delivery.NewLogNotifier()
	if cfg.Delivery.Notifications {
		notifier = delivery.NewDesktopNotifier()
	}

	publisher := events.New(&events.Config{
		Enabled:        cfg.Kafka.Enabled,
		Brokers:        cfg.Kafka.Brokers,
		TopicUtterance: cfg.Kafka.TopicUtterance,
		TopicSession:   cfg.Kafka.TopicSession,
		Principal:      cfg.Kafka.Principal,
	})
	defer publisher.Close()

	deliverer := delivery.NewHandler(typer, publisher, cfg.Delivery.Mode, transcriber.Provider())

	sessCfg := session.DefaultConfig()
	sessCfg.Live.ChunkInterval = cfg.Live.ChunkInterval
	sessCfg.Live.SilenceChunks = cfg.Live.SilenceChunks
	sessCfg.JoinTimeout = cfg.Live.JoinTimeout
	sessCfg.MinBytes = cfg.PushToTalk.MinBytes
	sessCfg.SettleDelay = cfg.PushToTalk.SettleDelay
	sessCfg.LongWarning = cfg.PushToTalk.LongWarning
	sessCfg.TempDir = cfg.Recorder.TempDir

	ctrl := session.NewController(sessCfg, session.Deps{
		Recorder:    recorder,
		Classifier:  classifier,
		Merger:      merger,
		Transcriber: transcriber,
		Deliverer:   deliverer,
		Notifier:    notifier,
	})

	// gRPC health reports the active mode.
	grpcServer := grpc.NewServer(
		grpc.UnaryInterceptor(observability.UnaryServerInterceptor(metrics.DefaultMetrics)),
		grpc.StreamInterceptor(observability.StreamServerInterceptor(metrics.DefaultMetrics)),
	)
	health := grpcapi.Register(grpcServer)
	reflection.Register(grpcServer)
	ctrl.AddObserver(health)

	modeEvents := events.NewModeObserver(publisher, 5*time.Second)
	ctrl.AddObserver(modeEvents)

	lis, err := net.Listen("tcp", cfg.Service.Addr(cfg.Service.GRPCPort))
	if err != nil {
		log.Fatal().Err(err).Str("port", cfg.Service.GRPCPort).Msg("Failed to listen for gRPC")
	}
	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			log.Error().Err(err).Msg("gRPC serve failed")
		}
	}()

	// Push-to-talk stops block until the text is delivered.
	httpServer := &http.Server{
		Addr:         cfg.Service.Addr(cfg.Service.HTTPPort),
		Handler:      httpapi.NewRouter(application, ctrl),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: cfg.STT.Timeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("HTTP server error")
		}
	}()

	metricsServer := observability.NewServer(cfg.Service.Addr(cfg.Service.MetricsPort), func() bool {
		return !ctrl.Status().Closed
	})
	if err := metricsServer.Start(); err != nil {
		log.Warn().Err(err).Msg("Metrics server unavailable")
	}

	log.Info().
		Str("bindAddr", cfg.Service.BindAddr).
		Str("httpPort", cfg.Service.HTTPPort).
		Str("grpcPort", cfg.Service.GRPCPort).
		Str("metricsPort", cfg.Service.MetricsPort).
		Str("sttProvider", transcriber.Provider()).
		Str("delivery", cfg.Delivery.Mode).
		Int("pid", os.Getpid()).
		Msg("Voice dictation ready. POST /v1/ptt/toggle or /v1/live/toggle, or send SIGUSR1 (push-to-talk) / SIGUSR2 (live)")

	toggles := make(chan os.Signal, 4)
	if len(toggleSignals) > 0 {
		signal.Notify(toggles, toggleSignals...)
	}
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

loop:
	for {
		select {
		case s := <-toggles:
			go handleToggle(ctrl, s)
		case s := <-sig:
			log.Info().Str("signal", s.String()).Msg("Shutdown signal received")
			break loop
		}
	}

	ctrl.Shutdown()
	health.Shutdown()
	recorder.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("HTTP server shutdown")
	}
	grpcServer.GracefulStop()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("Metrics server shutdown")
	}
	modeEvents.Wait()
	application.Shutdown()
}

func handleToggle(ctrl *session.Controller, s os.Signal) {
	ctx := context.Background()
	var (
		res session.ToggleResult
		err error
	)
	if isLiveToggle(s) {
		res, err = ctrl.ToggleLive(ctx)
	} else {
		res, err = ctrl.TogglePushToTalk(ctx)
	}
	if err != nil {
		log.Warn().Err(err).Str("signal", s.String()).Msg("Toggle rejected")
		return
	}
	log.Debug().
		Str("signal", s.String()).
		Str("mode", res.Mode.String()).
		Str("sessionId", res.SessionID).
		Bool("recording", res.Recording).
		Msg("Toggle handled")
}

func buildTyper(cfg *config.Config) (delivery.Typer, error) {
	if cfg.Delivery.Mode == "stdout" {
		return delivery.NewWriterTyper(os.Stdout), nil
	}
	return delivery.NewKeyboardTyper(cfg.Delivery.PasteDelay)
}
