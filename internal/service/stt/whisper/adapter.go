// Package whisper runs the whisper.cpp command line tool as an stt.Engine.
package whisper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"voice-dictation/internal/service/stt"
)

// ErrModelNotFound is returned when no ggml model exists in the models directory.
var ErrModelNotFound = errors.New("no whisper model found")

// PreferredModels is the model search order used by FindModel.
var PreferredModels = []string{
	"ggml-kb-whisper-large-q5.bin",
	"ggml-large-v3-turbo-q5_0.bin",
	"ggml-medium.bin",
	"ggml-small.bin",
	"ggml-base.bin",
}

// Config holds whisper.cpp settings.
type Config struct {
	BinaryPath string
	ModelPath  string
	Language   string // "auto" lets the model detect it
}

// Adapter implements stt.Engine by invoking whisper-cli once per file.
type Adapter struct {
	cfg Config
}

// New creates a whisper adapter. Language defaults to "auto".
func New(cfg Config) *Adapter {
	if cfg.Language == "" {
		cfg.Language = "auto"
	}
	return &Adapter{cfg: cfg}
}

// Name implements stt.Engine.
func (a *Adapter) Name() string {
	return "whisper"
}

// Check verifies that the binary and model exist.
func (a *Adapter) Check() error {
	if _, err := os.Stat(a.cfg.BinaryPath); err != nil {
		return fmt.Errorf("%w: whisper binary %s: %v", stt.ErrEngineUnavailable, a.cfg.BinaryPath, err)
	}
	if a.cfg.ModelPath == "" {
		return fmt.Errorf("%w: %v", stt.ErrEngineUnavailable, ErrModelNotFound)
	}
	if _, err := os.Stat(a.cfg.ModelPath); err != nil {
		return fmt.Errorf("%w: whisper model %s: %v", stt.ErrEngineUnavailable, a.cfg.ModelPath, err)
	}
	return nil
}

// Args returns the command line for audioPath: no timestamps, no progress.
func (a *Adapter) Args(audioPath string) []string {
	return []string{
		"-m", a.cfg.ModelPath,
		"-f", audioPath,
		"-nt",
		"-np",
		"-l", a.cfg.Language,
	}
}

// Transcribe runs whisper-cli and returns its stdout with diagnostic
// lines removed. Stderr only feeds error messages. Bracketed markers are
// left for stt.Clean.
func (a *Adapter) Transcribe(ctx context.Context, audioPath string) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, a.cfg.BinaryPath, a.Args(audioPath)...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() != nil {
		return "", fmt.Errorf("%w: %v", stt.ErrEngineFailed, ctx.Err())
	}
	if err != nil {
		var execErr *exec.Error
		if errors.As(err, &execErr) || errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %v", stt.ErrEngineUnavailable, err)
		}
		return "", fmt.Errorf("%w: %v: %s", stt.ErrEngineFailed, err, lastLine(stderr.String()))
	}
	return stt.StripLogLines(stdout.String()), nil
}

// FindModel returns the first preferred model present in dir, falling
// back to any *.bin file.
func FindModel(dir string) (string, error) {
	for _, name := range PreferredModels {
		p := filepath.Join(dir, name)
		if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
			return p, nil
		}
	}

	matches, _ := filepath.Glob(filepath.Join(dir, "*.bin"))
	sort.Strings(matches)
	if len(matches) > 0 {
		return matches[0], nil
	}
	return "", fmt.Errorf("%w in %s", ErrModelNotFound, dir)
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return lines[len(lines)-1]
}
