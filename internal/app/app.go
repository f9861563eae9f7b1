package app

import (
	"os"
	"strings"
	"time"

	"voice-dictation/internal/config"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Application holds process-wide state for the dictation daemon.
type Application struct {
	StartupTime time.Time
	Logger      zerolog.Logger
	Cfg         *config.Config
}

// New constructs a new Application from the provided configuration.
func New(cfg *config.Config) *Application {
	a := &Application{
		Cfg: cfg,
	}
	a.setupLogger()

	appLogger := a.Logger.With().
		Str("method", "New").
		Logger()

	appLogger.Info().Msg("Voice dictation application created")
	return a
}

// setupLogger configures zerolog for the daemon.
func (a *Application) setupLogger() {
	logLevel := zerolog.InfoLevel
	levelName := ""
	if a.Cfg != nil {
		levelName = a.Cfg.Observability.LogLevel
	}
	if envLevel := os.Getenv("ZEROLOG_LOG_LEVEL"); envLevel != "" {
		levelName = envLevel
	}
	if levelName != "" {
		if parsedLevel, err := zerolog.ParseLevel(strings.ToLower(levelName)); err == nil {
			logLevel = parsedLevel
		}
	}

	zerolog.SetGlobalLevel(logLevel)
	zerolog.TimeFieldFormat = time.RFC3339

	// Derive from the global logger so the output writer chosen at
	// startup is respected.
	base := log.Logger
	if os.Getenv("ENV") == "dev" || (a.Cfg != nil && a.Cfg.Observability.LogFormat == "console") {
		base = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	a.Logger = base.With().
		Str("service", "voice-dictation").
		Str("component", "application").
		Logger()

	a.Logger.Info().
		Str("logLevel", logLevel.String()).
		Str("environment", os.Getenv("ENV")).
		Msg("Logger setup completed")
}

// Start records the startup time and logs the active configuration.
func (a *Application) Start() error {
	startLogger := a.Logger.With().
		Str("method", "Start").
		Logger()

	a.StartupTime = time.Now().UTC()
	ev := startLogger.Info().Time("startupTime", a.StartupTime)
	if a.Cfg != nil {
		ev = ev.
			Str("sttProvider", a.Cfg.STT.Provider).
			Str("deliveryMode", a.Cfg.Delivery.Mode).
			Dur("chunkInterval", a.Cfg.Live.ChunkInterval).
			Int64("speechThresholdBytes", a.Cfg.Live.SpeechThresholdBytes)
	}
	ev.Msg("Voice dictation starting")

	return nil
}

// Uptime returns how long the application has been running.
func (a *Application) Uptime() time.Duration {
	if a.StartupTime.IsZero() {
		return 0
	}
	return time.Since(a.StartupTime)
}

// Shutdown performs a best-effort cleanup before process exit.
func (a *Application) Shutdown() {
	shutdownLogger := a.Logger.With().
		Str("method", "Shutdown").
		Logger()

	shutdownLogger.Info().
		Dur("uptime", a.Uptime()).
		Msg("Voice dictation shutting down")
}
