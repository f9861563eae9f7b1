// Package segment implements live-mode chunk segmentation: capture fixed
// length chunks, accumulate speech and flush an utterance on the first
// silent chunk after it.
package segment

import (
	"errors"
	"fmt"
	"sync"
)

// State represents the lifecycle state of a segmenter run.
type State int

const (
	// StateIdle - Not running yet.
	StateIdle State = iota
	// StateListening - Capturing the current chunk.
	StateListening
	// StateFlushing - Merging and transcribing accumulated speech.
	StateFlushing
	// StateStopped - Run finished. Terminal.
	StateStopped
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateListening:
		return "LISTENING"
	case StateFlushing:
		return "FLUSHING"
	case StateStopped:
		return "STOPPED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// IsTerminal returns true if the state is terminal.
func (s State) IsTerminal() bool {
	return s == StateStopped
}

// Errors for invalid state transitions.
var (
	ErrStopped           = errors.New("segmenter is stopped")
	ErrAlreadyRunning    = errors.New("segmenter is already running")
	ErrNotListening      = errors.New("segmenter is not listening")
	ErrFlushInProgress   = errors.New("flush already in progress")
	ErrNoFlushInProgress = errors.New("no flush in progress")
)

// Lifecycle manages the state machine for one segmenter run.
// Thread-safe for concurrent access.
//
// State transitions:
//
//	IDLE → LISTENING ⇄ FLUSHING
//	  │        │          │
//	  └────────┴──────────┴── Stop() ──→ STOPPED
//
// Rules:
//   - Only one flush may be in flight: BeginFlush from FLUSHING fails.
//   - STOPPED is terminal; Stop is idempotent.
type Lifecycle struct {
	mu    sync.RWMutex
	state State
}

// NewLifecycle creates a lifecycle in IDLE state.
func NewLifecycle() *Lifecycle {
	return &Lifecycle{state: StateIdle}
}

// State returns the current state.
func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// IsStopped returns true once the run has finished.
func (l *Lifecycle) IsStopped() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.IsTerminal()
}

// Start transitions IDLE to LISTENING.
func (l *Lifecycle) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case StateIdle:
		l.state = StateListening
		return nil
	case StateListening, StateFlushing:
		return ErrAlreadyRunning
	case StateStopped:
		return ErrStopped
	default:
		return fmt.Errorf("unexpected state: %v", l.state)
	}
}

// BeginFlush transitions LISTENING to FLUSHING.
func (l *Lifecycle) BeginFlush() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case StateListening:
		l.state = StateFlushing
		return nil
	case StateFlushing:
		return ErrFlushInProgress
	case StateIdle:
		return ErrNotListening
	case StateStopped:
		return ErrStopped
	default:
		return fmt.Errorf("unexpected state: %v", l.state)
	}
}

// EndFlush transitions FLUSHING back to LISTENING.
func (l *Lifecycle) EndFlush() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case StateFlushing:
		l.state = StateListening
		return nil
	case StateStopped:
		return ErrStopped
	default:
		return ErrNoFlushInProgress
	}
}

// Stop transitions to STOPPED from any state.
// Returns true if this call stopped the run, false if it was already stopped.
func (l *Lifecycle) Stop() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state.IsTerminal() {
		return false
	}
	l.state = StateStopped
	return true
}
