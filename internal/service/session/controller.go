// Package session owns the dictation mode and serializes the live and
// push-to-talk hotkeys.
package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"voice-dictation/internal/observability/logging"
	"voice-dictation/internal/observability/metrics"
	"voice-dictation/internal/service/audio"
	"voice-dictation/internal/service/delivery"
	"voice-dictation/internal/service/segment"
)

var (
	// ErrModeConflict is returned when push-to-talk is used while live mode runs.
	ErrModeConflict = errors.New("push-to-talk is unavailable while live mode is active")
	// ErrClosed is returned by toggles after Shutdown.
	ErrClosed = errors.New("session controller is shut down")
)

// Mode is the active dictation mode.
type Mode int

const (
	ModePushToTalk Mode = iota
	ModeLive
)

func (m Mode) String() string {
	switch m {
	case ModePushToTalk:
		return "push-to-talk"
	case ModeLive:
		return "live"
	default:
		return fmt.Sprintf("unknown(%d)", m)
	}
}

// Observer is told about every mode change. Called with the controller
// lock held, so implementations must not block or call back in.
type Observer interface {
	OnModeChange(sessionId string, from, to Mode, reason string)
}

// Config tunes both modes.
type Config struct {
	Live        segment.Config
	JoinTimeout time.Duration

	MinBytes    int64
	SettleDelay time.Duration
	LongWarning time.Duration

	TempDir string
}

// DefaultConfig returns the standard timings.
func DefaultConfig() Config {
	return Config{
		Live:        segment.DefaultConfig(""),
		JoinTimeout: 2 * time.Second,
		MinBytes:    1000,
		SettleDelay: 200 * time.Millisecond,
		LongWarning: 30 * time.Second,
		TempDir:     os.TempDir(),
	}
}

// Deps are the collaborators shared by both modes.
type Deps struct {
	Recorder    audio.Recorder
	Classifier  segment.Classifier
	Merger      audio.Merger
	Transcriber segment.Transcriber
	Deliverer   segment.Deliverer
	Notifier    delivery.Notifier
}

// Recording is an open push-to-talk capture.
type Recording struct {
	ID        string
	Path      string
	StartedAt time.Time
	proc      audio.Process
}

// ToggleResult describes the state after a toggle.
type ToggleResult struct {
	Mode      Mode
	SessionID string
	// Recording is true while a push-to-talk capture is running.
	Recording bool
	// Text and Duration are set when a push-to-talk capture was stopped.
	Text     string
	Duration time.Duration
}

type liveRun struct {
	id        string
	cancel    context.CancelFunc
	done      chan struct{}
	segmenter *segment.Segmenter
	startedAt time.Time
}

// Controller is the single owner of mode, stop token and the open
// push-to-talk recording.
type Controller struct {
	mu sync.Mutex

	cfg       Config
	deps      Deps
	files     *audio.TempFiles
	observers []Observer
	metrics   *metrics.Metrics
	log       zerolog.Logger

	mode      Mode
	live      *liveRun
	recording *Recording
	closed    bool
}

// NewController creates a controller in push-to-talk mode.
func NewController(cfg Config, deps Deps) *Controller {
	if deps.Notifier == nil {
		deps.Notifier = delivery.NewLogNotifier()
	}
	if cfg.JoinTimeout <= 0 {
		cfg.JoinTimeout = 2 * time.Second
	}
	return &Controller{
		cfg:     cfg,
		deps:    deps,
		files:   audio.NewTempFiles(cfg.TempDir, "dictation"),
		metrics: metrics.DefaultMetrics,
		log:     logging.WithComponent("session"),
		mode:    ModePushToTalk,
	}
}

// AddObserver registers o for mode changes.
func (c *Controller) AddObserver(o Observer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, o)
}

// Mode returns the current mode.
func (c *Controller) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// ToggleLive starts live mode, or stops it and returns to push-to-talk.
// Stopping waits up to JoinTimeout for the segmenter to exit and then
// returns regardless.
func (c *Controller) ToggleLive(ctx context.Context) (ToggleResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ToggleResult{Mode: c.mode}, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return ToggleResult{Mode: c.mode}, err
	}

	if c.live != nil {
		id := c.live.id
		c.stopLiveLocked("toggle")
		c.log.Info().Str("sessionId", id).Msg("Switched back to push-to-talk mode")
		return ToggleResult{Mode: c.mode, SessionID: id}, nil
	}

	if c.recording != nil {
		c.discardRecordingLocked("live mode started")
	}

	run := c.startLiveLocked()
	c.log.Info().Str("sessionId", run.id).Msg("Live mode activated")
	return ToggleResult{Mode: c.mode, SessionID: run.id}, nil
}

func (c *Controller) startLiveLocked() *liveRun {
	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.NewString()

	cfg := c.cfg.Live
	cfg.SessionID = id
	seg := segment.NewSegmenter(cfg,
		c.deps.Recorder,
		c.deps.Classifier,
		c.deps.Merger,
		c.deps.Transcriber,
		c.deps.Deliverer,
		audio.NewTempFiles(c.cfg.TempDir, "dictation"),
	)

	run := &liveRun{
		id:        id,
		cancel:    cancel,
		done:      make(chan struct{}),
		segmenter: seg,
		startedAt: time.Now(),
	}
	c.live = run
	c.setModeLocked(id, ModeLive, "toggle")

	go func() {
		err := seg.Run(ctx)
		close(run.done)
		if err != nil {
			c.liveAborted(run, err)
		}
	}()
	return run
}

// stopLiveLocked cancels the run and waits a bounded time for it.
func (c *Controller) stopLiveLocked(reason string) {
	run := c.live
	c.live = nil
	run.cancel()
	c.setModeLocked(run.id, ModePushToTalk, reason)

	select {
	case <-run.done:
	case <-time.After(c.cfg.JoinTimeout):
		c.log.Warn().
			Str("sessionId", run.id).
			Dur("joinTimeout", c.cfg.JoinTimeout).
			Msg("Live segmenter still running after stop, continuing")
	}
}

// liveAborted returns to push-to-talk after the segmenter gave up,
// unless that run was already replaced or stopped.
func (c *Controller) liveAborted(run *liveRun, err error) {
	c.deps.Notifier.Notify("Live mode stopped", liveErrorMessage(err))

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.live != run {
		return
	}
	c.live = nil
	c.setModeLocked(run.id, ModePushToTalk, "recorder failure")
}

func liveErrorMessage(err error) string {
	if errors.Is(err, audio.ErrRecorderUnavailable) {
		return "Recorder unavailable. Install sox and try again."
	}
	return fmt.Sprintf("Recording failed: %v", err)
}

// TogglePushToTalk starts a recording, or stops the open one and
// delivers its transcription. It is rejected with ErrModeConflict while
// live mode is active.
func (c *Controller) TogglePushToTalk(ctx context.Context) (ToggleResult, error) {
	c.mu.Lock()

	if c.closed {
		c.mu.Unlock()
		return ToggleResult{Mode: c.mode}, ErrClosed
	}

	if c.mode == ModeLive {
		c.mu.Unlock()
		c.metrics.RecordModeConflict()
		c.deps.Notifier.Notify("Dictation", "Live mode is active. Turn it off before using push-to-talk.")
		return ToggleResult{Mode: ModeLive}, ErrModeConflict
	}

	if c.recording == nil {
		rec, err := c.beginRecordingLocked()
		mode := c.mode
		c.mu.Unlock()
		if err != nil {
			c.deps.Notifier.Notify("Dictation", liveErrorMessage(err))
			return ToggleResult{Mode: mode}, err
		}
		return ToggleResult{Mode: mode, SessionID: rec.ID, Recording: true}, nil
	}

	rec := c.recording
	c.recording = nil
	c.mu.Unlock()

	text, dur := c.finishRecording(ctx, rec)
	return ToggleResult{Mode: ModePushToTalk, SessionID: rec.ID, Text: text, Duration: dur}, nil
}

func (c *Controller) beginRecordingLocked() (*Recording, error) {
	path := c.files.New("ptt")
	proc, err := c.deps.Recorder.Begin(path)
	if err != nil {
		c.metrics.RecordRecorderFailure(ModePushToTalk.String(), "begin")
		_ = c.files.Remove(path)
		c.log.Error().Err(err).Msg("Failed to start recording")
		return nil, err
	}

	rec := &Recording{
		ID:        uuid.NewString(),
		Path:      path,
		StartedAt: time.Now(),
		proc:      proc,
	}
	c.recording = rec
	log := logging.WithSession(rec.ID, ModePushToTalk.String())
	log.Info().Msg("Recording started")
	return rec, nil
}

// finishRecording stops rec, transcribes it if it holds enough audio and
// delivers the text. Runs without the controller lock.
func (c *Controller) finishRecording(ctx context.Context, rec *Recording) (string, time.Duration) {
	log := logging.WithSession(rec.ID, ModePushToTalk.String())
	dur := time.Since(rec.StartedAt)
	defer c.removeFile(rec.Path)

	if c.cfg.LongWarning > 0 && dur > c.cfg.LongWarning {
		c.deps.Notifier.Notify("Dictation",
			fmt.Sprintf("Long recording (%ds). Accuracy is best with 5-30 second segments.", int(dur.Seconds())))
	}

	if err := rec.proc.Stop(); err != nil {
		c.metrics.RecordRecorderFailure(ModePushToTalk.String(), "stop")
		log.Warn().Err(err).Msg("Recorder did not stop cleanly")
	}

	if c.cfg.SettleDelay > 0 {
		time.Sleep(c.cfg.SettleDelay)
	}

	fi, err := os.Stat(rec.Path)
	if err != nil || fi.Size() <= c.cfg.MinBytes {
		size := int64(0)
		if fi != nil {
			size = fi.Size()
		}
		c.metrics.RecordRecording("too_short", dur.Seconds())
		log.Warn().Int64("size", size).Dur("duration", dur).Msg("Audio file is too short or missing, skipping transcription")
		return "", dur
	}

	text := c.deps.Transcriber.Transcribe(ctx, rec.Path)
	if text == "" {
		c.metrics.RecordRecording("empty", dur.Seconds())
		log.Info().Dur("duration", dur).Msg("No speech detected")
		return "", dur
	}

	err = c.deps.Deliverer.Deliver(ctx, delivery.Utterance{
		SessionID:     rec.ID,
		UtteranceID:   rec.ID,
		Mode:          ModePushToTalk.String(),
		Text:          text,
		Chunks:        1,
		AudioBytes:    fi.Size(),
		AudioDuration: dur,
	})
	if err != nil {
		log.Warn().Err(err).Msg("Delivery failed")
	}
	c.metrics.RecordRecording("delivered", dur.Seconds())
	log.Info().Dur("duration", dur).Int("chars", len(text)).Msg("Transcription complete")
	return text, dur
}

func (c *Controller) discardRecordingLocked(reason string) {
	rec := c.recording
	c.recording = nil
	if err := rec.proc.Stop(); err != nil {
		c.log.Debug().Err(err).Msg("Recorder stop on discard")
	}
	c.removeFile(rec.Path)
	c.metrics.RecordRecording("discarded", time.Since(rec.StartedAt).Seconds())
	c.log.Info().Str("sessionId", rec.ID).Str("reason", reason).Msg("Push-to-talk recording discarded")
}

func (c *Controller) removeFile(path string) {
	if err := c.files.Remove(path); err != nil {
		c.log.Warn().Err(err).Str("path", path).Msg("Failed to remove recording")
	}
}

func (c *Controller) setModeLocked(sessionId string, to Mode, reason string) {
	from := c.mode
	c.mode = to
	c.metrics.RecordModeTransition(to.String(), to == ModeLive)
	for _, o := range c.observers {
		o.OnModeChange(sessionId, from, to, reason)
	}
}

// Shutdown stops live mode, discards any open recording and removes
// temp files. Later toggles return ErrClosed.
func (c *Controller) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true

	if c.live != nil {
		c.stopLiveLocked("shutdown")
	}
	if c.recording != nil {
		c.discardRecordingLocked("shutdown")
	}
	if err := c.files.RemoveAll(); err != nil {
		c.log.Warn().Err(err).Msg("Failed to remove temp files on shutdown")
	}
	c.log.Info().Msg("Session controller shut down")
}
