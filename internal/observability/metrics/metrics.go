// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "voice_dictation"

// Metrics holds all Prometheus metrics for the daemon.
type Metrics struct {
	// Mode metrics
	ModeTransitions *prometheus.CounterVec
	LiveActive      prometheus.Gauge
	ModeConflicts   prometheus.Counter

	// Chunk metrics
	ChunksCaptured   prometheus.Counter
	ChunksClassified *prometheus.CounterVec
	ChunkBytes       prometheus.Histogram

	// Utterance metrics
	UtterancesFlushed   prometheus.Counter
	UtterancesDiscarded prometheus.Counter
	UtteranceChunks     prometheus.Histogram
	MergeFailures       prometheus.Counter

	// Push-to-talk metrics
	Recordings        *prometheus.CounterVec
	RecordingDuration prometheus.Histogram

	// Recorder metrics
	RecorderFailures *prometheus.CounterVec

	// STT metrics
	STTLatency       *prometheus.HistogramVec
	STTErrors        *prometheus.CounterVec
	EmptyTranscripts *prometheus.CounterVec

	// Delivery metrics
	Deliveries     *prometheus.CounterVec
	DeliveryErrors prometheus.Counter
	DeliveredRunes prometheus.Counter

	// Kafka publish metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec

	// gRPC metrics
	GRPCCalls *prometheus.CounterVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics()

// NewMetrics creates and registers all metrics on the default registerer.
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith creates and registers all metrics on reg.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ModeTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mode_transitions_total",
			Help:      "Total number of session mode transitions",
		}, []string{"to"}),
		LiveActive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_active",
			Help:      "1 while live mode is active",
		}),
		ModeConflicts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mode_conflicts_total",
			Help:      "Push-to-talk toggles rejected because live mode was active",
		}),

		ChunksCaptured: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_captured_total",
			Help:      "Total number of live-mode chunks captured",
		}),
		ChunksClassified: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_classified_total",
			Help:      "Live-mode chunks by classification",
		}, []string{"class"}),
		ChunkBytes: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chunk_bytes",
			Help:      "Size of captured live-mode chunks in bytes",
			Buckets:   []float64{10000, 50000, 100000, 150000, 200000, 300000},
		}),

		UtterancesFlushed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "utterances_flushed_total",
			Help:      "Total number of utterances flushed after a pause",
		}),
		UtterancesDiscarded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "utterances_discarded_total",
			Help:      "Utterances dropped because live mode stopped mid-speech",
		}),
		UtteranceChunks: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "utterance_chunks",
			Help:      "Number of chunks per flushed utterance",
			Buckets:   []float64{1, 2, 3, 4, 6, 8, 12},
		}),
		MergeFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "merge_failures_total",
			Help:      "Chunk merges that fell back to the first chunk",
		}),

		Recordings: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ptt_recordings_total",
			Help:      "Push-to-talk recordings by outcome",
		}, []string{"outcome"}),
		RecordingDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ptt_recording_duration_seconds",
			Help:      "Wall-clock duration of push-to-talk recordings",
			Buckets:   []float64{1, 2, 5, 10, 20, 30, 60, 120},
		}),

		RecorderFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recorder_failures_total",
			Help:      "Recorder start/stop failures",
		}, []string{"mode", "stage"}),

		STTLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stt_latency_seconds",
			Help:      "Speech-to-text processing latency in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"provider"}),
		STTErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stt_errors_total",
			Help:      "Total number of STT errors",
		}, []string{"provider", "error_type"}),
		EmptyTranscripts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stt_empty_transcripts_total",
			Help:      "Transcriptions that produced no text",
		}, []string{"provider"}),

		Deliveries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Texts delivered to the focused application",
		}, []string{"mode"}),
		DeliveryErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivery_errors_total",
			Help:      "Text deliveries that failed",
		}),
		DeliveredRunes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivered_runes_total",
			Help:      "Characters delivered",
		}),

		KafkaPublishTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total number of Kafka messages published",
		}, []string{"topic", "event_type"}),
		KafkaPublishErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total number of Kafka publish errors",
		}, []string{"topic", "event_type"}),
		KafkaPublishLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_publish_latency_seconds",
			Help:      "Kafka publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"topic"}),

		GRPCCalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grpc_calls_total",
			Help:      "gRPC calls by method and code",
		}, []string{"method", "code"}),
	}
}

// RecordModeTransition records a switch into mode.
func (m *Metrics) RecordModeTransition(mode string, liveActive bool) {
	m.ModeTransitions.WithLabelValues(mode).Inc()
	if liveActive {
		m.LiveActive.Set(1)
	} else {
		m.LiveActive.Set(0)
	}
}

// RecordModeConflict records a rejected push-to-talk toggle.
func (m *Metrics) RecordModeConflict() {
	m.ModeConflicts.Inc()
}

// RecordChunk records a captured chunk and its classification.
func (m *Metrics) RecordChunk(class string, sizeBytes int64) {
	m.ChunksCaptured.Inc()
	m.ChunksClassified.WithLabelValues(class).Inc()
	m.ChunkBytes.Observe(float64(sizeBytes))
}

// RecordUtteranceFlushed records a flushed utterance of n chunks.
func (m *Metrics) RecordUtteranceFlushed(chunks int) {
	m.UtterancesFlushed.Inc()
	m.UtteranceChunks.Observe(float64(chunks))
}

// RecordUtteranceDiscarded records an utterance dropped on stop.
func (m *Metrics) RecordUtteranceDiscarded() {
	m.UtterancesDiscarded.Inc()
}

// RecordMergeFailure records a merge that fell back to the first chunk.
func (m *Metrics) RecordMergeFailure() {
	m.MergeFailures.Inc()
}

// RecordRecording records a push-to-talk outcome.
func (m *Metrics) RecordRecording(outcome string, durationSeconds float64) {
	m.Recordings.WithLabelValues(outcome).Inc()
	if durationSeconds > 0 {
		m.RecordingDuration.Observe(durationSeconds)
	}
}

// RecordRecorderFailure records a recorder failure.
func (m *Metrics) RecordRecorderFailure(mode, stage string) {
	m.RecorderFailures.WithLabelValues(mode, stage).Inc()
}

// RecordSTT records one transcription attempt.
func (m *Metrics) RecordSTT(provider string, latencySeconds float64, empty bool) {
	m.STTLatency.WithLabelValues(provider).Observe(latencySeconds)
	if empty {
		m.EmptyTranscripts.WithLabelValues(provider).Inc()
	}
}

// RecordSTTError records an STT error.
func (m *Metrics) RecordSTTError(provider, errorType string) {
	m.STTErrors.WithLabelValues(provider, errorType).Inc()
}

// RecordDelivery records a delivery attempt.
func (m *Metrics) RecordDelivery(mode string, runes int, err error) {
	if err != nil {
		m.DeliveryErrors.Inc()
		return
	}
	m.Deliveries.WithLabelValues(mode).Inc()
	m.DeliveredRunes.Add(float64(runes))
}

// RecordKafkaPublish records a Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, err error, latencySeconds float64) {
	m.KafkaPublishTotal.WithLabelValues(topic, eventType).Inc()
	m.KafkaPublishLatency.WithLabelValues(topic).Observe(latencySeconds)
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
}

// RecordGRPCCall records a completed gRPC call.
func (m *Metrics) RecordGRPCCall(method, code string) {
	m.GRPCCalls.WithLabelValues(method, code).Inc()
}
