// Package mock provides a mock STT engine for running without a model
// or cloud credentials. Each call returns the next scripted utterance.
package mock

import (
	"context"
	"sync"
	"time"
)

// DefaultUtterances are cycled through when no script is given.
var DefaultUtterances = []string{
	"I want to cancel my subscription",
	"Yes please go ahead",
	"Can you help me with my account",
	"I've been waiting for over an hour",
	"Thank you very much",
}

// Adapter implements stt.Engine with scripted responses.
type Adapter struct {
	mu         sync.Mutex
	utterances []string
	next       int
	delay      time.Duration
	calls      []string
}

// New creates a mock engine cycling through utterances, or
// DefaultUtterances when none are given.
func New(utterances ...string) *Adapter {
	if len(utterances) == 0 {
		utterances = DefaultUtterances
	}
	return &Adapter{utterances: utterances}
}

// WithDelay simulates inference latency on each call.
func (a *Adapter) WithDelay(d time.Duration) *Adapter {
	a.delay = d
	return a
}

// Name implements stt.Engine.
func (a *Adapter) Name() string {
	return "mock"
}

// Transcribe returns the next utterance, or the context error if the
// simulated latency outlasts ctx.
func (a *Adapter) Transcribe(ctx context.Context, audioPath string) (string, error) {
	if a.delay > 0 {
		select {
		case <-time.After(a.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, audioPath)
	text := a.utterances[a.next%len(a.utterances)]
	a.next++
	return text, nil
}

// Calls returns the paths transcribed so far.
func (a *Adapter) Calls() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string{}, a.calls...)
}
