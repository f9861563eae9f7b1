// Package config loads service configuration from defaults, an optional
// YAML file, .env files and environment variables (in that order).
package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the complete dictation service configuration.
type Config struct {
	Service       ServiceConfig       `yaml:"service"`
	Recorder      RecorderConfig      `yaml:"recorder"`
	STT           STTConfig           `yaml:"stt"`
	Live          LiveConfig          `yaml:"live"`
	PushToTalk    PushToTalkConfig    `yaml:"push_to_talk"`
	Delivery      DeliveryConfig      `yaml:"delivery"`
	Kafka         KafkaConfig         `yaml:"kafka"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServiceConfig holds process identity and listener ports.
type ServiceConfig struct {
	Principal   string `yaml:"principal"`
	BindAddr    string `yaml:"bind_addr"` // interface for all listeners
	HTTPPort    string `yaml:"http_port"`
	GRPCPort    string `yaml:"grpc_port"`
	MetricsPort string `yaml:"metrics_port"`
}

// RecorderConfig describes the external capture and merge tools.
type RecorderConfig struct {
	Command      string `yaml:"command"`       // sox "rec"
	MergeCommand string `yaml:"merge_command"` // sox
	Merger       string `yaml:"merger"`        // sox, wav
	SampleRateHz int    `yaml:"sample_rate_hz"`
	Channels     int    `yaml:"channels"`
	BitDepth     int    `yaml:"bit_depth"`
	TempDir      string `yaml:"temp_dir"`
}

// STTConfig selects and configures the transcription engine.
type STTConfig struct {
	Provider        string        `yaml:"provider"` // whisper, google, openai, mock
	WhisperPath     string        `yaml:"whisper_path"`
	ModelPath       string        `yaml:"model_path"`
	ModelsDir       string        `yaml:"models_dir"`
	Language        string        `yaml:"language"`
	Timeout         time.Duration `yaml:"timeout"`
	OpenAIAPIKey    string        `yaml:"openai_api_key"`
	OpenAIModel     string        `yaml:"openai_model"`
	GoogleLanguage  string        `yaml:"google_language"`
	GoogleCredsFile string        `yaml:"google_credentials_file"`
}

// LiveConfig tunes the live-mode chunk segmenter.
type LiveConfig struct {
	ChunkInterval        time.Duration `yaml:"chunk_interval"`
	SpeechThresholdBytes int64         `yaml:"speech_threshold_bytes"`
	SilenceChunks        int           `yaml:"silence_chunks"`
	JoinTimeout          time.Duration `yaml:"join_timeout"`
	MergeTimeout         time.Duration `yaml:"merge_timeout"`
	Classifier           string        `yaml:"classifier"`
}

// PushToTalkConfig tunes manual recordings.
type PushToTalkConfig struct {
	MinBytes    int64         `yaml:"min_bytes"`
	SettleDelay time.Duration `yaml:"settle_delay"`
	LongWarning time.Duration `yaml:"long_warning"`
}

// DeliveryConfig controls how text reaches the focused application.
type DeliveryConfig struct {
	Mode          string        `yaml:"mode"` // keyboard, stdout
	PasteDelay    time.Duration `yaml:"paste_delay"`
	Notifications bool          `yaml:"notifications"`
}

// KafkaConfig holds transcript event publishing settings.
type KafkaConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Brokers        []string `yaml:"brokers"`
	TopicUtterance string   `yaml:"topic_utterance"`
	TopicSession   string   `yaml:"topic_session"`
	Principal      string   `yaml:"principal"`
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	home, _ := os.UserHomeDir()
	whisperDir := filepath.Join(home, "whisper.cpp")

	return &Config{
		Service: ServiceConfig{
			Principal:   "svc-voice-dictation",
			BindAddr:    "127.0.0.1",
			HTTPPort:    "8765",
			GRPCPort:    "50051",
			MetricsPort: "9090",
		},
		Recorder: RecorderConfig{
			Command:      "rec",
			MergeCommand: "sox",
			Merger:       "sox",
			SampleRateHz: 16000,
			Channels:     1,
			BitDepth:     16,
			TempDir:      os.TempDir(),
		},
		STT: STTConfig{
			Provider:       "whisper",
			WhisperPath:    filepath.Join(whisperDir, "build", "bin", "whisper-cli"),
			ModelsDir:      filepath.Join(whisperDir, "models"),
			Language:       "auto",
			Timeout:        120 * time.Second,
			OpenAIModel:    "whisper-1",
			GoogleLanguage: "en-US",
		},
		Live: LiveConfig{
			ChunkInterval:        5 * time.Second,
			SpeechThresholdBytes: 100000,
			SilenceChunks:        1,
			JoinTimeout:          2 * time.Second,
			MergeTimeout:         10 * time.Second,
			Classifier:           "size",
		},
		PushToTalk: PushToTalkConfig{
			MinBytes:    1000,
			SettleDelay: 200 * time.Millisecond,
			LongWarning: 30 * time.Second,
		},
		Delivery: DeliveryConfig{
			Mode:          "keyboard",
			PasteDelay:    150 * time.Millisecond,
			Notifications: true,
		},
		Kafka: KafkaConfig{
			Enabled:        false,
			TopicUtterance: "dictation.utterance.transcribed",
			TopicSession:   "dictation.session.mode",
		},
		Observability: ObservabilityConfig{
			LogLevel:  "info",
			LogFormat: "json",
		},
	}
}

// Load builds configuration from defaults, .env files and the environment.
func Load() *Config {
	cfg := Defaults()
	loadDotEnv()
	applyEnv(cfg)
	return cfg
}

// LoadFile builds configuration from defaults, the YAML file at path,
// .env files and the environment. An empty path behaves like Load.
func LoadFile(path string) (*Config, error) {
	cfg := Defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}
	loadDotEnv()
	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Addr joins the bind address with port for a listener.
func (s ServiceConfig) Addr(port string) string {
	return net.JoinHostPort(s.BindAddr, port)
}

// Validate checks values that would make the pipeline misbehave.
func (c *Config) Validate() error {
	if c.Live.ChunkInterval <= 0 {
		return fmt.Errorf("live.chunk_interval must be positive, got %v", c.Live.ChunkInterval)
	}
	if c.Live.SilenceChunks < 1 {
		return fmt.Errorf("live.silence_chunks must be at least 1, got %d", c.Live.SilenceChunks)
	}
	if c.STT.Timeout <= 0 {
		return fmt.Errorf("stt.timeout must be positive, got %v", c.STT.Timeout)
	}
	switch c.STT.Provider {
	case "whisper", "google", "openai", "mock":
	default:
		return fmt.Errorf("unknown stt provider %q", c.STT.Provider)
	}
	switch c.Delivery.Mode {
	case "keyboard", "stdout":
	default:
		return fmt.Errorf("unknown delivery mode %q", c.Delivery.Mode)
	}
	return nil
}

// loadDotEnv reads DICTATION_ENV, ~/.dictation.env and ./.env when present.
// Variables already set in the environment win.
func loadDotEnv() {
	var files []string
	if p := strings.TrimSpace(os.Getenv("DICTATION_ENV")); p != "" {
		files = append(files, p)
	}
	if home, err := os.UserHomeDir(); err == nil {
		files = append(files, filepath.Join(home, ".dictation.env"))
	}
	files = append(files, ".env")

	for _, f := range files {
		if fi, err := os.Stat(f); err != nil || fi.IsDir() {
			continue
		}
		_ = godotenv.Load(f)
	}
}

func applyEnv(c *Config) {
	c.Service.Principal = envOrDefault("SERVICE_PRINCIPAL", c.Service.Principal)
	c.Service.BindAddr = envOrDefault("BIND_ADDR", c.Service.BindAddr)
	c.Service.HTTPPort = envOrDefault("HTTP_PORT", c.Service.HTTPPort)
	c.Service.GRPCPort = envOrDefault("GRPC_PORT", c.Service.GRPCPort)
	c.Service.MetricsPort = envOrDefault("METRICS_PORT", c.Service.MetricsPort)

	c.Recorder.Command = envOrDefault("RECORDER_COMMAND", c.Recorder.Command)
	c.Recorder.MergeCommand = envOrDefault("RECORDER_MERGE_COMMAND", c.Recorder.MergeCommand)
	c.Recorder.Merger = envOrDefault("RECORDER_MERGER", c.Recorder.Merger)
	c.Recorder.SampleRateHz = envOrDefaultInt("RECORDER_SAMPLE_RATE_HZ", c.Recorder.SampleRateHz)
	c.Recorder.TempDir = envOrDefault("RECORDER_TEMP_DIR", c.Recorder.TempDir)

	c.STT.Provider = envOrDefault("STT_PROVIDER", c.STT.Provider)
	c.STT.WhisperPath = envOrDefault("STT_WHISPER_PATH", c.STT.WhisperPath)
	c.STT.ModelPath = envOrDefault("STT_MODEL_PATH", c.STT.ModelPath)
	c.STT.ModelsDir = envOrDefault("STT_MODELS_DIR", c.STT.ModelsDir)
	c.STT.Language = envOrDefault("STT_LANGUAGE", c.STT.Language)
	c.STT.Timeout = envOrDefaultDuration("STT_TIMEOUT", c.STT.Timeout)
	c.STT.OpenAIAPIKey = envOrDefault("OPENAI_API_KEY", c.STT.OpenAIAPIKey)
	c.STT.OpenAIModel = envOrDefault("STT_OPENAI_MODEL", c.STT.OpenAIModel)
	c.STT.GoogleLanguage = envOrDefault("STT_GOOGLE_LANGUAGE", c.STT.GoogleLanguage)
	c.STT.GoogleCredsFile = envOrDefault("GOOGLE_APPLICATION_CREDENTIALS", c.STT.GoogleCredsFile)

	c.Live.ChunkInterval = envOrDefaultDuration("LIVE_CHUNK_INTERVAL", c.Live.ChunkInterval)
	c.Live.SpeechThresholdBytes = envOrDefaultInt64("LIVE_SPEECH_THRESHOLD_BYTES", c.Live.SpeechThresholdBytes)
	c.Live.SilenceChunks = envOrDefaultInt("LIVE_SILENCE_CHUNKS", c.Live.SilenceChunks)
	c.Live.JoinTimeout = envOrDefaultDuration("LIVE_JOIN_TIMEOUT", c.Live.JoinTimeout)
	c.Live.MergeTimeout = envOrDefaultDuration("LIVE_MERGE_TIMEOUT", c.Live.MergeTimeout)
	c.Live.Classifier = envOrDefault("LIVE_CLASSIFIER", c.Live.Classifier)

	c.PushToTalk.MinBytes = envOrDefaultInt64("PTT_MIN_BYTES", c.PushToTalk.MinBytes)
	c.PushToTalk.SettleDelay = envOrDefaultDuration("PTT_SETTLE_DELAY", c.PushToTalk.SettleDelay)
	c.PushToTalk.LongWarning = envOrDefaultDuration("PTT_LONG_WARNING", c.PushToTalk.LongWarning)

	c.Delivery.Mode = envOrDefault("DELIVERY_MODE", c.Delivery.Mode)
	c.Delivery.PasteDelay = envOrDefaultDuration("DELIVERY_PASTE_DELAY", c.Delivery.PasteDelay)
	c.Delivery.Notifications = envOrDefaultBool("DELIVERY_NOTIFICATIONS", c.Delivery.Notifications)

	c.Kafka.Enabled = envOrDefaultBool("KAFKA_ENABLED", c.Kafka.Enabled)
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		c.Kafka.Brokers = splitList(brokers)
	}
	c.Kafka.TopicUtterance = envOrDefault("KAFKA_TOPIC_UTTERANCE", c.Kafka.TopicUtterance)
	c.Kafka.TopicSession = envOrDefault("KAFKA_TOPIC_SESSION", c.Kafka.TopicSession)
	c.Kafka.Principal = envOrDefault("KAFKA_PRINCIPAL", c.Kafka.Principal)
	if c.Kafka.Principal == "" {
		c.Kafka.Principal = c.Service.Principal
	}

	c.Observability.LogLevel = envOrDefault("LOG_LEVEL", c.Observability.LogLevel)
	c.Observability.LogFormat = envOrDefault("LOG_FORMAT", c.Observability.LogFormat)
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envOrDefaultInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func envOrDefaultBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
