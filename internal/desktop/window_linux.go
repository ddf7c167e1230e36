//go:build linux

package desktop

import (
	"os"

	"github.com/jezek/xgb/xproto"

	"github.com/chaz8081/autotyper/internal/logging"
	"github.com/chaz8081/autotyper/internal/window"
	"github.com/chaz8081/autotyper/internal/x11"
)

// WindowSystem looks windows up on the X server. Under Wayland, or when no
// X server answers, it falls back to the focus the click itself gives.
type WindowSystem struct {
	x *x11.Display
	focusOnly
}

// NewWindowSystem connects to $DISPLAY unless the session is Wayland.
func NewWindowSystem() *WindowSystem {
	log := logging.Component("desktop")
	if os.Getenv("WAYLAND_DISPLAY") != "" {
		log.Info("Wayland session, typing into the window the click focuses")
		return &WindowSystem{}
	}
	d, err := x11.Open()
	if err != nil {
		log.WithError(err).Warn("X11 window lookup unavailable, typing into the window the click focuses")
		return &WindowSystem{}
	}
	return &WindowSystem{x: d}
}

// WindowAt returns the X client window under (x, y).
func (s *WindowSystem) WindowAt(x, y int) (window.Handle, bool, error) {
	if s.x == nil {
		return s.focusOnly.WindowAt(x, y)
	}
	w, ok, err := s.x.WindowAt(x, y)
	return window.Handle(w), ok, err
}

// RequestForeground asks the window manager to activate h.
func (s *WindowSystem) RequestForeground(h window.Handle) error {
	if s.x == nil {
		return s.focusOnly.RequestForeground(h)
	}
	return s.x.Activate(xproto.Window(h))
}

// Close releases the X connection.
func (s *WindowSystem) Close() {
	if s.x != nil {
		s.x.Close()
	}
}
