// Package trigger models the user action that authorizes typing and the
// one-shot latch that honours exactly one such action per arm cycle.
package trigger

import (
	"fmt"
	"sync"
	"time"
)

// Kind identifies what produced a trigger event.
type Kind int

const (
	// Click is a global left mouse button press at X, Y.
	Click Kind = iota
	// Hotkey is the configured key chord. It carries no coordinates.
	Hotkey
	// Button is the "Type now" control in the tray. It carries no coordinates.
	Button
)

func (k Kind) String() string {
	switch k {
	case Click:
		return "click"
	case Hotkey:
		return "hotkey"
	case Button:
		return "button"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Event is a single trigger. X and Y are only meaningful for Click. At is
// when the input was observed; the zero time means unknown.
type Event struct {
	Kind Kind
	X, Y int
	At   time.Time
}

// HasPoint reports whether the event carries screen coordinates.
func (e Event) HasPoint() bool {
	return e.Kind == Click
}

// Mode selects which event kinds arm a cycle.
type Mode string

const (
	ModeClick  Mode = "click"
	ModeHotkey Mode = "hotkey"
	ModeButton Mode = "button"
)

// ParseMode converts a config string into a Mode.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeClick, ModeHotkey, ModeButton:
		return m, nil
	default:
		return "", fmt.Errorf("trigger: unknown mode %q", s)
	}
}

// Accepts reports whether an event of kind k can fire a cycle in mode m.
// Button mode ignores clicks: the click that opens the tray menu must not
// fire the cycle. See Latch.ArmFor for a one-off click.
func (m Mode) Accepts(k Kind) bool {
	switch m {
	case ModeClick:
		return k == Click
	case ModeHotkey:
		return k == Hotkey
	case ModeButton:
		return k == Button
	default:
		return false
	}
}

// Latch lets exactly one accepted event through per arm.
// It is safe for concurrent use.
type Latch struct {
	mu      sync.Mutex
	mode    Mode
	armed   bool
	only    Kind // replaces the mode's kinds while useOnly is set
	useOnly bool
	since   time.Time
}

// NewLatch creates a disarmed latch for mode.
func NewLatch(mode Mode) *Latch {
	return &Latch{mode: mode}
}

// Arm opens the latch for one event of a kind the mode accepts.
func (l *Latch) Arm() {
	l.open(0, false)
}

// ArmFor opens the latch for one event of kind k, whatever the mode.
func (l *Latch) ArmFor(k Kind) {
	l.open(k, true)
}

func (l *Latch) open(k Kind, useOnly bool) {
	l.mu.Lock()
	l.armed = true
	l.only = k
	l.useOnly = useOnly
	l.since = time.Now()
	l.mu.Unlock()
}

// Disarm closes the latch without consuming an event.
func (l *Latch) Disarm() {
	l.mu.Lock()
	l.armed = false
	l.mu.Unlock()
}

// Offer hands ev to the latch. It returns true for the first matching event
// after an arm and disarms; every other event returns false. Events observed
// before the latch was armed are refused.
func (l *Latch) Offer(ev Event) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.armed {
		return false
	}
	if l.useOnly {
		if ev.Kind != l.only {
			return false
		}
	} else if !l.mode.Accepts(ev.Kind) {
		return false
	}
	if !ev.At.IsZero() && ev.At.Before(l.since) {
		return false
	}
	l.armed = false
	return true
}
