package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrMergeFailed is returned when chunk files could not be concatenated.
var ErrMergeFailed = errors.New("merge failed")

// Merger concatenates WAV files in argument order into output.
type Merger interface {
	Merge(ctx context.Context, inputs []string, output string) error
}

// SoxMerger concatenates with the sox command line tool.
type SoxMerger struct {
	Command string
	Timeout time.Duration
}

// NewSoxMerger returns a merger invoking command with a bounded runtime.
func NewSoxMerger(command string, timeout time.Duration) *SoxMerger {
	if command == "" {
		command = "sox"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SoxMerger{Command: command, Timeout: timeout}
}

func (m *SoxMerger) Merge(ctx context.Context, inputs []string, output string) error {
	if len(inputs) == 0 {
		return fmt.Errorf("%w: no inputs", ErrMergeFailed)
	}
	ctx, cancel := context.WithTimeout(ctx, m.Timeout)
	defer cancel()

	args := append(append([]string{}, inputs...), output)
	cmd := exec.CommandContext(ctx, m.Command, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s: %v: %s", ErrMergeFailed, m.Command, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// WAVMerger concatenates PCM WAV files in process. All inputs must share
// sample rate, bit depth and channel count.
type WAVMerger struct{}

func (WAVMerger) Merge(ctx context.Context, inputs []string, output string) error {
	if len(inputs) == 0 {
		return fmt.Errorf("%w: no inputs", ErrMergeFailed)
	}

	var (
		bufs                        []*goaudio.IntBuffer
		sampleRate, bitDepth, chans int
	)
	for i, in := range inputs {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrMergeFailed, err)
		}
		buf, rate, depth, nch, err := readPCM(in)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrMergeFailed, in, err)
		}
		if i == 0 {
			sampleRate, bitDepth, chans = rate, depth, nch
		} else if rate != sampleRate || depth != bitDepth || nch != chans {
			return fmt.Errorf("%w: %s: format mismatch", ErrMergeFailed, in)
		}
		bufs = append(bufs, buf)
	}

	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMergeFailed, err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, bitDepth, chans, 1)
	for _, b := range bufs {
		if err := enc.Write(b); err != nil {
			return fmt.Errorf("%w: write: %v", ErrMergeFailed, err)
		}
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("%w: finalize: %v", ErrMergeFailed, err)
	}
	return nil
}

func readPCM(path string) (*goaudio.IntBuffer, int, int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, 0, 0, err
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return nil, 0, 0, 0, errors.New("not a valid wav file")
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, 0, 0, 0, err
	}
	return buf, int(d.SampleRate), int(d.BitDepth), int(d.NumChans), nil
}
