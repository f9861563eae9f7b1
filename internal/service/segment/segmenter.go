package segment

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"voice-dictation/internal/observability/logging"
	"voice-dictation/internal/observability/metrics"
	"voice-dictation/internal/service/audio"
	"voice-dictation/internal/service/delivery"
)

// Transcriber turns a WAV file into text, returning "" on any failure.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) string
}

// Deliverer hands utterance text to the user.
type Deliverer interface {
	Deliver(ctx context.Context, u delivery.Utterance) error
}

// Config tunes one segmenter run.
type Config struct {
	SessionID     string
	ChunkInterval time.Duration
	// SilenceChunks is how many consecutive silent chunks after speech
	// trigger a flush.
	SilenceChunks int
}

// DefaultConfig returns the 5 s chunk, one-silent-chunk policy.
func DefaultConfig(sessionId string) Config {
	return Config{
		SessionID:     sessionId,
		ChunkInterval: 5 * time.Second,
		SilenceChunks: 1,
	}
}

// Stats counts what a run has processed so far.
type Stats struct {
	Chunks     int64
	Speech     int64
	Utterances int64
}

var errStopRequested = errors.New("stop requested")

// Segmenter runs the live capture loop. A Segmenter is single use:
// once Run returns it stays stopped.
type Segmenter struct {
	cfg         Config
	recorder    audio.Recorder
	classifier  Classifier
	merger      audio.Merger
	transcriber Transcriber
	deliverer   Deliverer
	files       *audio.TempFiles
	ids         *Generator
	lifecycle   *Lifecycle
	metrics     *metrics.Metrics
	log         zerolog.Logger

	chunks     atomic.Int64
	speech     atomic.Int64
	utterances atomic.Int64
}

// NewSegmenter wires a segmenter. files owns every chunk and merged file
// the run creates.
func NewSegmenter(
	cfg Config,
	recorder audio.Recorder,
	classifier Classifier,
	merger audio.Merger,
	transcriber Transcriber,
	deliverer Deliverer,
	files *audio.TempFiles,
) *Segmenter {
	if cfg.ChunkInterval <= 0 {
		cfg.ChunkInterval = 5 * time.Second
	}
	if cfg.SilenceChunks < 1 {
		cfg.SilenceChunks = 1
	}
	if classifier == nil {
		classifier = SizeClassifier{Threshold: DefaultSpeechThreshold}
	}
	return &Segmenter{
		cfg:         cfg,
		recorder:    recorder,
		classifier:  classifier,
		merger:      merger,
		transcriber: transcriber,
		deliverer:   deliverer,
		files:       files,
		ids:         NewGenerator(cfg.SessionID),
		lifecycle:   NewLifecycle(),
		metrics:     metrics.DefaultMetrics,
		log:         logging.WithSession(cfg.SessionID, "live"),
	}
}

// State returns the current lifecycle state.
func (s *Segmenter) State() State {
	return s.lifecycle.State()
}

// Stats returns counters for this run.
func (s *Segmenter) Stats() Stats {
	return Stats{
		Chunks:     s.chunks.Load(),
		Speech:     s.speech.Load(),
		Utterances: s.utterances.Load(),
	}
}

// Run captures chunks until ctx is cancelled or the recorder fails.
// Cancellation is checked before each chunk and during the chunk wait;
// a pending utterance is discarded, never flushed. A flush already in
// progress runs to completion. Every temp file is removed before Run
// returns. Run returns nil on cancellation and the recorder error on
// abort.
func (s *Segmenter) Run(ctx context.Context) error {
	if err := s.lifecycle.Start(); err != nil {
		return err
	}
	defer s.lifecycle.Stop()
	defer s.cleanup()

	s.log.Info().
		Dur("chunkInterval", s.cfg.ChunkInterval).
		Int("silenceChunks", s.cfg.SilenceChunks).
		Msg("Live segmenter started")

	utt := NewUtterance(s.ids.Next())
	silent := 0

	for {
		if ctx.Err() != nil {
			s.discard(utt)
			return nil
		}

		chunk, err := s.capture(ctx)
		if errors.Is(err, errStopRequested) {
			s.discard(utt)
			return nil
		}
		if err != nil {
			s.log.Error().Err(err).Int("pendingChunks", utt.Len()).Msg("Recorder failed, live segmenter aborting")
			return err
		}

		class := s.classifier.Classify(chunk)
		s.chunks.Add(1)
		s.metrics.RecordChunk(class.String(), chunk.Size)
		s.log.Debug().
			Str("path", chunk.Path).
			Int64("size", chunk.Size).
			Str("class", class.String()).
			Msg("Chunk classified")

		if class == Speech {
			s.speech.Add(1)
			utt.Append(chunk)
			silent = 0
			continue
		}

		s.remove(chunk.Path)
		silent++
		if !utt.Empty() && silent >= s.cfg.SilenceChunks {
			s.flush(ctx, utt)
			utt = NewUtterance(s.ids.Next())
			silent = 0
		}
	}
}

// capture records one chunk. It returns errStopRequested if ctx is
// cancelled during the wait, after stopping the recorder and removing
// the partial file.
func (s *Segmenter) capture(ctx context.Context) (audio.Chunk, error) {
	path := s.files.New("chunk")

	proc, err := s.recorder.Begin(path)
	if err != nil {
		s.metrics.RecordRecorderFailure("live", "begin")
		s.remove(path)
		return audio.Chunk{}, err
	}

	timer := time.NewTimer(s.cfg.ChunkInterval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
	if ctx.Err() != nil {
		if err := proc.Stop(); err != nil {
			s.log.Debug().Err(err).Msg("Recorder stop after cancel")
		}
		s.remove(path)
		return audio.Chunk{}, errStopRequested
	}

	if err := proc.Stop(); err != nil {
		s.metrics.RecordRecorderFailure("live", "stop")
		s.remove(path)
		return audio.Chunk{}, err
	}

	chunk, err := audio.Inspect(path, s.cfg.ChunkInterval)
	if err != nil {
		s.remove(path)
		return audio.Chunk{}, fmt.Errorf("inspect chunk: %w", err)
	}
	return chunk, nil
}

// flush merges, transcribes and delivers utt, then deletes its files.
// It ignores cancellation of ctx so a stop never cuts a flush short.
func (s *Segmenter) flush(ctx context.Context, utt *Utterance) {
	if err := s.lifecycle.BeginFlush(); err != nil {
		s.log.Warn().Err(err).Str("utteranceId", utt.ID).Msg("Flush skipped")
		return
	}
	defer func() {
		if err := s.lifecycle.EndFlush(); err != nil {
			s.log.Warn().Err(err).Str("utteranceId", utt.ID).Msg("Flush end transition failed")
		}
	}()

	fctx := context.WithoutCancel(ctx)
	log := logging.WithUtterance(s.cfg.SessionID, utt.ID)
	start := time.Now()

	members := utt.Paths()
	target := members[0]
	var merged string

	if len(members) > 1 {
		merged = s.files.New("merged")
		if err := s.merger.Merge(fctx, members, merged); err != nil {
			s.metrics.RecordMergeFailure()
			log.Warn().Err(err).Int("chunks", len(members)).Msg("Merge failed, using first chunk only")
			s.remove(merged)
			merged = ""
		} else {
			target = merged
		}
	}

	text := s.transcriber.Transcribe(fctx, target)

	if text != "" {
		err := s.deliverer.Deliver(fctx, delivery.Utterance{
			SessionID:     s.cfg.SessionID,
			UtteranceID:   utt.ID,
			Mode:          "live",
			Text:          text + " ",
			Chunks:        utt.Len(),
			AudioBytes:    utt.Bytes(),
			AudioDuration: utt.Duration(),
		})
		if err != nil {
			log.Warn().Err(err).Msg("Delivery failed")
		}
	} else {
		log.Debug().Msg("Empty transcript, nothing delivered")
	}

	for _, p := range members {
		s.remove(p)
	}
	if merged != "" {
		s.remove(merged)
	}

	s.utterances.Add(1)
	s.metrics.RecordUtteranceFlushed(len(members))
	log.Info().
		Int("chunks", len(members)).
		Int64("bytes", utt.Bytes()).
		Bool("delivered", text != "").
		Dur("latency", time.Since(start)).
		Msg("Utterance flushed")
}

func (s *Segmenter) discard(utt *Utterance) {
	if utt.Empty() {
		return
	}
	s.metrics.RecordUtteranceDiscarded()
	s.log.Info().
		Str("utteranceId", utt.ID).
		Int("chunks", utt.Len()).
		Msg("Live mode stopped mid-utterance, discarding")
}

func (s *Segmenter) remove(path string) {
	if err := s.files.Remove(path); err != nil {
		s.log.Warn().Err(err).Str("path", path).Msg("Failed to remove temp file")
	}
}

func (s *Segmenter) cleanup() {
	if err := s.files.RemoveAll(); err != nil {
		s.log.Warn().Err(err).Msg("Failed to remove lingering temp files")
	}
	st := s.Stats()
	s.log.Info().
		Int64("chunks", st.Chunks).
		Int64("speechChunks", st.Speech).
		Int64("utterances", st.Utterances).
		Msg("Live segmenter stopped")
}
