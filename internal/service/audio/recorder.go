// Package audio wraps the external capture and merge tools and owns the
// temporary WAV files they produce.
package audio

import (
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"voice-dictation/internal/observability/logging"
)

var (
	// ErrRecorderUnavailable means the capture tool is missing or could not start.
	ErrRecorderUnavailable = errors.New("recorder unavailable")
	// ErrRecorderExited means the capture process died before it was stopped.
	ErrRecorderExited = errors.New("recorder exited before stop")
)

// Recorder starts one capture process per output file.
type Recorder interface {
	Begin(outputPath string) (Process, error)
}

// Process is a running capture. Stop terminates it gracefully and blocks
// until the output file is finalized.
type Process interface {
	Stop() error
}

// Format is the fixed capture format.
type Format struct {
	SampleRateHz int
	Channels     int
	BitDepth     int
}

// DefaultFormat is 16 kHz mono 16-bit PCM.
func DefaultFormat() Format {
	return Format{SampleRateHz: 16000, Channels: 1, BitDepth: 16}
}

// SoxRecorder records through sox's "rec" front end.
type SoxRecorder struct {
	command     string
	format      Format
	stopTimeout time.Duration
	log         zerolog.Logger

	mu     sync.Mutex
	active map[*soxProcess]struct{}
}

// NewSoxRecorder creates a recorder invoking command (usually "rec").
func NewSoxRecorder(command string, format Format) *SoxRecorder {
	if command == "" {
		command = "rec"
	}
	return &SoxRecorder{
		command:     command,
		format:      format,
		stopTimeout: 5 * time.Second,
		log:         logging.WithComponent("recorder"),
		active:      make(map[*soxProcess]struct{}),
	}
}

// Available reports whether the capture tool can be found on PATH.
func (r *SoxRecorder) Available() error {
	if _, err := exec.LookPath(r.command); err != nil {
		return fmt.Errorf("%w: %q not found on PATH (install sox)", ErrRecorderUnavailable, r.command)
	}
	return nil
}

// Args returns the capture arguments for outputPath.
func (r *SoxRecorder) Args(outputPath string) []string {
	return []string{
		"-q",
		"-r", strconv.Itoa(r.format.SampleRateHz),
		"-c", strconv.Itoa(r.format.Channels),
		"-b", strconv.Itoa(r.format.BitDepth),
		outputPath,
	}
}

// Begin starts capturing into outputPath, creating or overwriting it.
func (r *SoxRecorder) Begin(outputPath string) (Process, error) {
	bin, err := exec.LookPath(r.command)
	if err != nil {
		return nil, fmt.Errorf("%w: %q not found on PATH (install sox)", ErrRecorderUnavailable, r.command)
	}

	cmd := exec.Command(bin, r.Args(outputPath)...)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRecorderUnavailable, err)
	}

	p := &soxProcess{
		cmd:      cmd,
		done:     make(chan struct{}),
		recorder: r,
		path:     outputPath,
	}
	go func() {
		p.waitErr = cmd.Wait()
		close(p.done)
	}()

	r.mu.Lock()
	r.active[p] = struct{}{}
	r.mu.Unlock()

	r.log.Debug().Str("path", outputPath).Int("pid", cmd.Process.Pid).Msg("Recorder started")
	return p, nil
}

// Active returns the number of capture processes still running.
func (r *SoxRecorder) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}

// Close kills every capture process that is still running.
func (r *SoxRecorder) Close() {
	r.mu.Lock()
	procs := make([]*soxProcess, 0, len(r.active))
	for p := range r.active {
		procs = append(procs, p)
	}
	r.mu.Unlock()

	for _, p := range procs {
		p.kill()
	}
	if len(procs) > 0 {
		r.log.Info().Int("killed", len(procs)).Msg("Terminated in-flight recorders")
	}
}

func (r *SoxRecorder) forget(p *soxProcess) {
	r.mu.Lock()
	delete(r.active, p)
	r.mu.Unlock()
}

type soxProcess struct {
	cmd      *exec.Cmd
	done     chan struct{}
	waitErr  error
	recorder *SoxRecorder
	path     string

	once    sync.Once
	stopErr error
}

func (p *soxProcess) Stop() error {
	p.once.Do(func() {
		defer p.recorder.forget(p)

		select {
		case <-p.done:
			// Exited on its own: only a failure if it reported one.
			if p.waitErr != nil {
				p.stopErr = fmt.Errorf("%w: %v", ErrRecorderExited, p.waitErr)
			}
			return
		default:
		}

		if err := p.cmd.Process.Signal(syscall.SIGTERM); err != nil {
			_ = p.cmd.Process.Kill()
		}

		select {
		case <-p.done:
		case <-time.After(p.recorder.stopTimeout):
			_ = p.cmd.Process.Kill()
			<-p.done
			p.stopErr = fmt.Errorf("recorder did not exit within %v", p.recorder.stopTimeout)
		}
	})
	return p.stopErr
}

func (p *soxProcess) kill() {
	p.once.Do(func() {
		defer p.recorder.forget(p)
		_ = p.cmd.Process.Kill()
		<-p.done
		p.stopErr = fmt.Errorf("%w: killed on shutdown", ErrRecorderExited)
	})
}
