//go:build !windows

package desktop

import "github.com/chaz8081/autotyper/internal/window"

// focusOnly is used where no window can be looked up by point. The left
// click that triggers a cycle already focuses the window under the pointer,
// so there is nothing to resolve and nothing to bring forward. Reading the
// active window instead would race the window manager's focus change.
type focusOnly struct{}

func (focusOnly) WindowAt(x, y int) (window.Handle, bool, error) {
	return 0, true, nil
}

func (focusOnly) RequestForeground(h window.Handle) error {
	return nil
}
