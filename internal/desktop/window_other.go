//go:build !windows && !linux

package desktop

// WindowSystem relies on the click to focus the target window.
type WindowSystem struct {
	focusOnly
}

// NewWindowSystem returns the focus-only window system.
func NewWindowSystem() *WindowSystem {
	return &WindowSystem{}
}

// Close is a no-op.
func (*WindowSystem) Close() {}
