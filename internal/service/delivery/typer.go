package delivery

import (
	"fmt"
	"io"
	"runtime"
	"sync"
	"time"

	"github.com/atotto/clipboard"
	"github.com/micmonay/keybd_event"
)

// Typer synthesizes text into whatever application holds input focus.
type Typer interface {
	Type(text string) error
}

type keyPresser interface {
	Launching() error
}

// KeyboardTyper pastes text through the clipboard and restores the
// previous clipboard contents afterwards.
type KeyboardTyper struct {
	mu         sync.Mutex
	keys       keyPresser
	readClip   func() (string, error)
	writeClip  func(string) error
	pasteDelay time.Duration
}

// NewKeyboardTyper binds the platform paste shortcut.
func NewKeyboardTyper(pasteDelay time.Duration) (*KeyboardTyper, error) {
	kb, err := keybd_event.NewKeyBonding()
	if err != nil {
		return nil, fmt.Errorf("keyboard: %w", err)
	}
	// uinput needs time to register the virtual device
	if runtime.GOOS == "linux" {
		time.Sleep(2 * time.Second)
	}
	kb.SetKeys(keybd_event.VK_V)
	if runtime.GOOS == "darwin" {
		kb.HasSuper(true)
	} else {
		kb.HasCTRL(true)
	}

	return &KeyboardTyper{
		keys:       &kb,
		readClip:   clipboard.ReadAll,
		writeClip:  clipboard.WriteAll,
		pasteDelay: pasteDelay,
	}, nil
}

// Type implements Typer.
func (k *KeyboardTyper) Type(text string) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	prev, prevErr := k.readClip()
	if err := k.writeClip(text); err != nil {
		return fmt.Errorf("clipboard write: %w", err)
	}
	if err := k.keys.Launching(); err != nil {
		return fmt.Errorf("paste keystroke: %w", err)
	}

	time.Sleep(k.pasteDelay)
	if prevErr == nil {
		_ = k.writeClip(prev)
	}
	return nil
}

// WriterTyper writes text to w. Used for headless runs and piping.
type WriterTyper struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterTyper creates a typer writing to w.
func NewWriterTyper(w io.Writer) *WriterTyper {
	return &WriterTyper{w: w}
}

// Type implements Typer.
func (t *WriterTyper) Type(text string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, err := io.WriteString(t.w, text)
	return err
}
