// Package window resolves the target window for a typing cycle and prepares
// it to receive keystrokes.
package window

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/chaz8081/autotyper/internal/logging"
)

// Handle identifies a top-level window. Its meaning is platform specific:
// an HWND on Windows, an X window id on X11. Zero stands for whichever
// window the triggering click focused.
type Handle uintptr

// ErrNoWindow is returned when no window occupies the requested point.
var ErrNoWindow = errors.New("window: no window found")

// System is the host window system.
type System interface {
	// WindowAt returns the window at screen point (x, y), or ok=false when
	// there is none.
	WindowAt(x, y int) (h Handle, ok bool, err error)
	// RequestForeground asks the OS to give h the input focus.
	RequestForeground(h Handle) error
}

// ModifierReleaser lifts any held modifier keys.
type ModifierReleaser interface {
	ReleaseModifiers() error
}

// Resolver turns a trigger point into a focused target window.
type Resolver struct {
	sys    System
	keys   ModifierReleaser
	settle time.Duration
	log    *logrus.Entry
}

// NewResolver creates a Resolver. settle is how long to wait after a
// foreground request before typing begins. keys may be nil.
func NewResolver(sys System, keys ModifierReleaser, settle time.Duration) *Resolver {
	return &Resolver{
		sys:    sys,
		keys:   keys,
		settle: settle,
		log:    logging.Component("window"),
	}
}

// Resolve finds the window at (x, y), asks for it to be brought to the
// foreground and waits for focus to settle. A refused foreground request is
// logged and ignored: some platforms accept input into a window that is not
// in front. It returns ErrNoWindow when the point has no window.
func (r *Resolver) Resolve(ctx context.Context, x, y int) (Handle, error) {
	h, ok, err := r.sys.WindowAt(x, y)
	if err != nil {
		return 0, fmt.Errorf("window: lookup at (%d, %d): %w", x, y, err)
	}
	if !ok {
		return 0, ErrNoWindow
	}

	if err := r.sys.RequestForeground(h); err != nil {
		r.log.WithError(err).WithField("handle", h).Warn("foreground request denied, typing anyway")
	}

	if err := r.Focused(ctx); err != nil {
		return 0, err
	}
	return h, nil
}

// Focused prepares the currently focused window without any lookup. It is
// used for triggers that carry no point. It waits the settle delay and
// releases modifiers.
func (r *Resolver) Focused(ctx context.Context) error {
	if r.settle > 0 {
		timer := time.NewTimer(r.settle)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	r.Prepare()
	return nil
}

// Prepare releases ctrl, alt and shift. A modifier still held from the
// trigger would otherwise change every typed character.
func (r *Resolver) Prepare() {
	if r.keys == nil {
		return
	}
	if err := r.keys.ReleaseModifiers(); err != nil {
		r.log.WithError(err).Debug("releasing modifiers failed")
	}
}
