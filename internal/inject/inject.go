// Package inject types text into the focused application one keystroke at
// a time. Typing can be stopped between characters through a CancelFlag.
package inject

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Keystroker emits a single simulated keystroke for r.
type Keystroker interface {
	TypeRune(r rune) error
}

// Status is the result kind of a typing run.
type Status int

const (
	// Completed means every character was typed.
	Completed Status = iota
	// Cancelled means the cancel flag (or context) stopped typing early.
	Cancelled
	// Failed means a keystroke was rejected; the rest was not attempted.
	Failed
)

func (s Status) String() string {
	switch s {
	case Completed:
		return "completed"
	case Cancelled:
		return "cancelled"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Outcome reports how a typing run ended. Typed counts the characters
// that were emitted successfully.
type Outcome struct {
	Status Status
	Typed  int
	Err    error
}

// ErrKeystroke wraps platform keystroke failures in a Failed outcome.
var ErrKeystroke = errors.New("inject: keystroke failed")

// Injector streams text through a Keystroker.
type Injector struct {
	keys Keystroker
}

// NewInjector creates an Injector backed by keys.
// Panics if keys is nil (programmer error).
func NewInjector(keys Keystroker) *Injector {
	if keys == nil {
		panic("inject: NewInjector called with nil keystroker")
	}
	return &Injector{keys: keys}
}

// TypeStream types text one rune at a time, waiting interval between
// runes. cancel (which may be nil) and ctx are checked before every rune;
// once either fires no further rune is started. A keystroke error ends the
// run immediately with a Failed outcome and no retry.
func (inj *Injector) TypeStream(ctx context.Context, text string, interval time.Duration, cancel *CancelFlag) Outcome {
	typed := 0
	for _, r := range text {
		if typed > 0 && interval > 0 {
			if !wait(ctx, interval, cancel) {
				return Outcome{Status: Cancelled, Typed: typed}
			}
		}
		if cancel.IsSet() || ctx.Err() != nil {
			return Outcome{Status: Cancelled, Typed: typed}
		}

		if err := inj.keys.TypeRune(r); err != nil {
			return Outcome{
				Status: Failed,
				Typed:  typed,
				Err:    fmt.Errorf("%w: rune %d (%q): %w", ErrKeystroke, typed, r, err),
			}
		}
		typed++
	}
	return Outcome{Status: Completed, Typed: typed}
}

// wait sleeps for d. It returns false if ctx or cancel fired first.
func wait(ctx context.Context, d time.Duration, cancel *CancelFlag) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	case <-cancel.Done():
		return false
	}
}
