package utils

import (
	"context"
	"sync/atomic"
	"time"
)

// Flag is a boolean shared between goroutines.
type Flag struct {
	v atomic.Bool
}

func (f *Flag) Set()        { f.v.Store(true) }
func (f *Flag) Clear()      { f.v.Store(false) }
func (f *Flag) IsSet() bool { return f.v.Load() }

// Tokens carries the cooperative cancellation discipline through the
// pipeline. Cancel is sticky for the run, Pause can be re-armed, and
// Skip applies to the file currently being downloaded.
type Tokens struct {
	Cancel *Flag
	Pause  *Flag
	Skip   *Flag
}

func NewTokens() *Tokens {
	return &Tokens{
		Cancel: &Flag{},
		Pause:  &Flag{},
		Skip:   &Flag{},
	}
}

// Checkpoint is called at every suspension point. It blocks while the
// pause token is set, polling every 500ms, and returns context.Canceled
// once the cancellation token is set.
func (t *Tokens) Checkpoint() error {
	for {
		if t.Cancel.IsSet() {
			return context.Canceled
		}
		if !t.Pause.IsSet() {
			return nil
		}
		time.Sleep(PAUSE_POLL_MS * time.Millisecond)
	}
}

// SkipRequested reports and consumes a pending skip request.
func (t *Tokens) SkipRequested() bool {
	if t.Skip.IsSet() {
		t.Skip.Clear()
		return true
	}
	return false
}
