package audio

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/go-audio/wav"
)

// Chunk is one finished fixed-duration capture on disk.
type Chunk struct {
	Path       string
	Size       int64
	Duration   time.Duration
	CapturedAt time.Time
}

// Inspect stats a finished capture. A missing file is reported as an
// empty chunk, not an error, so it classifies as silence.
func Inspect(path string, captured time.Duration) (Chunk, error) {
	c := Chunk{Path: path, Duration: captured, CapturedAt: time.Now()}

	fi, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return c, err
	}
	c.Size = fi.Size()

	if d, ok := wavDuration(path); ok {
		c.Duration = d
	}
	return c, nil
}

// wavDuration reads the duration from a WAV header, if the file has one.
func wavDuration(path string) (time.Duration, bool) {
	f, err := os.Open(path)
	if err != nil {
		return 0, false
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return 0, false
	}
	dur, err := d.Duration()
	if err != nil || dur <= 0 {
		return 0, false
	}
	return dur, true
}
