package inject

import (
	"sync"
	"sync/atomic"
)

// CancelFlag is a shared stop signal. It only moves from unset to set
// within a cycle; Reset starts a new cycle. A nil *CancelFlag is never set.
type CancelFlag struct {
	mu  sync.Mutex
	set atomic.Bool
	ch  chan struct{}
}

// NewCancelFlag returns an unset flag.
func NewCancelFlag() *CancelFlag {
	return &CancelFlag{ch: make(chan struct{})}
}

// Set raises the flag. Extra calls have no effect.
func (f *CancelFlag) Set() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.set.Load() {
		return
	}
	f.set.Store(true)
	close(f.ch)
}

// IsSet reports whether the flag has been raised.
func (f *CancelFlag) IsSet() bool {
	if f == nil {
		return false
	}
	return f.set.Load()
}

// Done returns a channel that is closed once the flag is set.
func (f *CancelFlag) Done() <-chan struct{} {
	if f == nil {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ch
}

// Reset lowers the flag for a new cycle.
func (f *CancelFlag) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.set.Load() {
		return
	}
	f.ch = make(chan struct{})
	f.set.Store(false)
}
