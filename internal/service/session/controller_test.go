package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"voice-dictation/internal/service/audio"
	"voice-dictation/internal/service/delivery"
	"voice-dictation/internal/service/segment"
)

type fakeRecorder struct {
	mu        sync.Mutex
	size      int64
	noFile    bool
	beginErr  error
	stopBlock chan struct{}
	paths     []string
}

func (r *fakeRecorder) Begin(path string) (audio.Process, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.beginErr != nil {
		return nil, r.beginErr
	}
	r.paths = append(r.paths, path)
	return &fakeProcess{path: path, size: r.size, noFile: r.noFile, block: r.stopBlock}, nil
}

func (r *fakeRecorder) setBeginErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.beginErr = err
}

func (r *fakeRecorder) begunCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.paths)
}

func (r *fakeRecorder) pttBegins() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, p := range r.paths {
		if strings.Contains(filepath.Base(p), "-ptt-") {
			n++
		}
	}
	return n
}

type fakeProcess struct {
	path   string
	size   int64
	noFile bool
	block  chan struct{}
}

func (p *fakeProcess) Stop() error {
	if p.block != nil {
		<-p.block
		return nil
	}
	if p.noFile {
		return nil
	}
	return os.WriteFile(p.path, make([]byte, p.size), 0o644)
}

type fakeTranscriber struct {
	mu    sync.Mutex
	text  string
	paths []string
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, path string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths = append(f.paths, path)
	return f.text
}

func (f *fakeTranscriber) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.paths)
}

type recordingDeliverer struct {
	mu         sync.Mutex
	utterances []delivery.Utterance
}

func (d *recordingDeliverer) Deliver(ctx context.Context, u delivery.Utterance) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.utterances = append(d.utterances, u)
	return nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
	during   func()
}

func (n *recordingNotifier) Notify(title, message string) {
	n.mu.Lock()
	n.messages = append(n.messages, message)
	during := n.during
	n.mu.Unlock()
	if during != nil {
		during()
	}
}

func (n *recordingNotifier) contains(substr string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, m := range n.messages {
		if strings.Contains(m, substr) {
			return true
		}
	}
	return false
}

type modeChange struct {
	from, to Mode
	reason   string
}

type recordingObserver struct {
	mu      sync.Mutex
	changes []modeChange
}

func (o *recordingObserver) OnModeChange(sessionId string, from, to Mode, reason string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.changes = append(o.changes, modeChange{from, to, reason})
}

type fixture struct {
	ctrl        *Controller
	recorder    *fakeRecorder
	transcriber *fakeTranscriber
	deliverer   *recordingDeliverer
	notifier    *recordingNotifier
	observer    *recordingObserver
	dir         string
}

func newFixture(t *testing.T, mutate func(*Config)) *fixture {
	t.Helper()
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Live = segment.Config{ChunkInterval: time.Hour, SilenceChunks: 1}
	cfg.SettleDelay = 0
	cfg.TempDir = dir
	if mutate != nil {
		mutate(&cfg)
	}

	f := &fixture{
		recorder:    &fakeRecorder{size: 5000},
		transcriber: &fakeTranscriber{text: "hello"},
		deliverer:   &recordingDeliverer{},
		notifier:    &recordingNotifier{},
		observer:    &recordingObserver{},
		dir:         dir,
	}
	f.ctrl = NewController(cfg, Deps{
		Recorder:    f.recorder,
		Classifier:  segment.SizeClassifier{Threshold: segment.DefaultSpeechThreshold},
		Merger:      audio.WAVMerger{},
		Transcriber: f.transcriber,
		Deliverer:   f.deliverer,
		Notifier:    f.notifier,
	})
	f.ctrl.AddObserver(f.observer)
	t.Cleanup(f.ctrl.Shutdown)
	return f
}

func (f *fixture) strayFiles() []string {
	left, _ := filepath.Glob(filepath.Join(f.dir, "dictation-*.wav"))
	return left
}

func TestMode_String(t *testing.T) {
	if ModePushToTalk.String() != "push-to-talk" || ModeLive.String() != "live" {
		t.Errorf("unexpected names %s/%s", ModePushToTalk, ModeLive)
	}
}

func TestController_ToggleLive(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	if f.ctrl.Mode() != ModePushToTalk {
		t.Fatalf("expected initial mode push-to-talk, got %v", f.ctrl.Mode())
	}

	res, err := f.ctrl.ToggleLive(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if res.Mode != ModeLive || res.SessionID == "" {
		t.Errorf("unexpected result %+v", res)
	}
	st := f.ctrl.Status()
	if st.Mode != "live" || st.Live == nil || st.Live.SessionID != res.SessionID {
		t.Errorf("unexpected status %+v", st)
	}

	start := time.Now()
	res, err = f.ctrl.ToggleLive(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if res.Mode != ModePushToTalk {
		t.Errorf("expected push-to-talk after second toggle, got %v", res.Mode)
	}
	if time.Since(start) > time.Second {
		t.Errorf("stop took too long: %v", time.Since(start))
	}
	if f.ctrl.Status().Live != nil {
		t.Error("expected no live status after stop")
	}

	f.observer.mu.Lock()
	defer f.observer.mu.Unlock()
	if len(f.observer.changes) != 2 ||
		f.observer.changes[0].to != ModeLive ||
		f.observer.changes[1].from != ModeLive || f.observer.changes[1].to != ModePushToTalk {
		t.Errorf("unexpected mode changes %+v", f.observer.changes)
	}
}

func TestController_PushToTalkRejectedDuringLive(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.ctrl.ToggleLive(ctx)

	res, err := f.ctrl.TogglePushToTalk(ctx)
	if !errors.Is(err, ErrModeConflict) {
		t.Fatalf("expected ErrModeConflict, got %v", err)
	}
	if res.Mode != ModeLive || f.ctrl.Mode() != ModeLive {
		t.Error("expected mode to stay live")
	}
	if res.Recording || f.ctrl.Status().Recording != nil {
		t.Error("expected no recording to start")
	}
	if f.recorder.pttBegins() != 0 {
		t.Errorf("expected no push-to-talk capture, got %d", f.recorder.pttBegins())
	}
	if !f.notifier.contains("Live mode is active") {
		t.Error("expected a user-visible warning")
	}
}

func TestController_PushToTalkDelivers(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	res, err := f.ctrl.TogglePushToTalk(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Recording || f.ctrl.Status().Recording == nil {
		t.Fatal("expected recording to start")
	}

	res, err = f.ctrl.TogglePushToTalk(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if res.Recording || res.Text != "hello" {
		t.Errorf("unexpected result %+v", res)
	}
	if len(f.deliverer.utterances) != 1 {
		t.Fatalf("expected 1 delivery, got %d", len(f.deliverer.utterances))
	}
	u := f.deliverer.utterances[0]
	if u.Text != "hello" || u.Mode != "push-to-talk" || u.AudioBytes != 5000 {
		t.Errorf("unexpected utterance %+v", u)
	}
	if left := f.strayFiles(); len(left) != 0 {
		t.Errorf("expected recording removed, found %v", left)
	}
}

func TestController_PushToTalkTooShort(t *testing.T) {
	tests := []struct {
		name   string
		size   int64
		noFile bool
	}{
		{"at floor", 1000, false},
		{"tiny", 44, false},
		{"missing file", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			f.recorder.size = tt.size
			f.recorder.noFile = tt.noFile
			ctx := context.Background()

			f.ctrl.TogglePushToTalk(ctx)
			res, err := f.ctrl.TogglePushToTalk(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if res.Text != "" {
				t.Errorf("expected no text, got %q", res.Text)
			}
			if f.transcriber.calls() != 0 {
				t.Error("expected no transcription attempt")
			}
			if len(f.deliverer.utterances) != 0 {
				t.Error("expected nothing delivered")
			}
			if left := f.strayFiles(); len(left) != 0 {
				t.Errorf("expected recording removed, found %v", left)
			}
		})
	}
}

func TestController_PushToTalkEmptyTranscript(t *testing.T) {
	f := newFixture(t, nil)
	f.transcriber.text = ""
	ctx := context.Background()

	f.ctrl.TogglePushToTalk(ctx)
	f.ctrl.TogglePushToTalk(ctx)

	if f.transcriber.calls() != 1 {
		t.Errorf("expected 1 transcription, got %d", f.transcriber.calls())
	}
	if len(f.deliverer.utterances) != 0 {
		t.Error("expected nothing delivered for empty text")
	}
}

func TestController_LongRecordingWarning(t *testing.T) {
	f := newFixture(t, func(c *Config) { c.LongWarning = time.Nanosecond })
	ctx := context.Background()

	f.ctrl.TogglePushToTalk(ctx)
	time.Sleep(time.Millisecond)
	res, _ := f.ctrl.TogglePushToTalk(ctx)

	if !f.notifier.contains("Long recording") {
		t.Error("expected long recording warning")
	}
	if res.Text != "hello" {
		t.Errorf("expected long recording to still be transcribed, got %q", res.Text)
	}
}

func TestController_PushToTalkRecorderUnavailable(t *testing.T) {
	f := newFixture(t, nil)
	f.recorder.setBeginErr(audio.ErrRecorderUnavailable)

	res, err := f.ctrl.TogglePushToTalk(context.Background())
	if !errors.Is(err, audio.ErrRecorderUnavailable) {
		t.Fatalf("expected ErrRecorderUnavailable, got %v", err)
	}
	if res.Recording || f.ctrl.Status().Recording != nil {
		t.Error("expected no open recording")
	}
	if !f.notifier.contains("Recorder unavailable") {
		t.Error("expected user-visible recorder warning")
	}

	// Recovers once the recorder is back
	f.recorder.setBeginErr(nil)
	if res, err := f.ctrl.TogglePushToTalk(context.Background()); err != nil || !res.Recording {
		t.Errorf("expected recording to start after recovery, got %+v %v", res, err)
	}
}

func TestController_PushToTalkBeginFailureNotifiesWithoutLock(t *testing.T) {
	f := newFixture(t, nil)
	f.recorder.setBeginErr(audio.ErrRecorderUnavailable)
	f.notifier.during = func() { f.ctrl.Mode() }

	done := make(chan error, 1)
	go func() {
		_, err := f.ctrl.TogglePushToTalk(context.Background())
		done <- err
	}()

	select {
	case err := <-done:
		if !errors.Is(err, audio.ErrRecorderUnavailable) {
			t.Fatalf("expected ErrRecorderUnavailable, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("notifier ran while the controller lock was held")
	}
	if !f.notifier.contains("Recorder unavailable") {
		t.Error("expected user-visible recorder warning")
	}
}

func TestController_ToggleLiveCancelledContext(t *testing.T) {
	f := newFixture(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := f.ctrl.ToggleLive(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if res.Mode != ModePushToTalk || f.ctrl.Mode() != ModePushToTalk {
		t.Errorf("expected push-to-talk to remain, got %s", f.ctrl.Mode())
	}
	if f.recorder.begunCount() != 0 {
		t.Error("expected no capture to start")
	}
}

func TestController_LiveStopJoinIsBounded(t *testing.T) {
	f := newFixture(t, func(c *Config) { c.JoinTimeout = 50 * time.Millisecond })
	block := make(chan struct{})
	f.recorder.stopBlock = block
	t.Cleanup(func() { close(block) })
	ctx := context.Background()

	f.ctrl.ToggleLive(ctx)
	// Let the segmenter begin its first chunk
	time.Sleep(20 * time.Millisecond)

	start := time.Now()
	res, err := f.ctrl.ToggleLive(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("expected bounded join, took %v", elapsed)
	}
	if res.Mode != ModePushToTalk || f.ctrl.Mode() != ModePushToTalk {
		t.Error("expected push-to-talk mode even though segmenter has not exited")
	}
}

func TestController_LiveAbortRevertsMode(t *testing.T) {
	f := newFixture(t, nil)
	f.recorder.setBeginErr(audio.ErrRecorderUnavailable)

	f.ctrl.ToggleLive(context.Background())

	deadline := time.Now().Add(2 * time.Second)
	for f.ctrl.Mode() != ModePushToTalk && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if f.ctrl.Mode() != ModePushToTalk {
		t.Fatal("expected mode to revert after recorder failure")
	}
	if !f.notifier.contains("Recorder unavailable") {
		t.Error("expected user-visible recorder warning")
	}

	// Live can be started again
	f.recorder.setBeginErr(nil)
	if res, err := f.ctrl.ToggleLive(context.Background()); err != nil || res.Mode != ModeLive {
		t.Errorf("expected live restart, got %+v %v", res, err)
	}
}

func TestController_LiveDiscardsOpenRecording(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	f.ctrl.TogglePushToTalk(ctx)
	if _, err := f.ctrl.ToggleLive(ctx); err != nil {
		t.Fatal(err)
	}

	if f.ctrl.Status().Recording != nil {
		t.Error("expected push-to-talk recording to be discarded")
	}
	if f.transcriber.calls() != 0 {
		t.Error("expected discarded recording not to be transcribed")
	}
	for _, p := range f.strayFiles() {
		if strings.Contains(filepath.Base(p), "-ptt-") {
			t.Errorf("expected recording file removed, found %s", p)
		}
	}
}

func TestController_Shutdown(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.ctrl.ToggleLive(ctx)

	f.ctrl.Shutdown()
	f.ctrl.Shutdown()

	if f.ctrl.Mode() != ModePushToTalk {
		t.Errorf("expected push-to-talk after shutdown, got %v", f.ctrl.Mode())
	}
	if _, err := f.ctrl.ToggleLive(ctx); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if _, err := f.ctrl.TogglePushToTalk(ctx); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if !f.ctrl.Status().Closed {
		t.Error("expected closed status")
	}
}
