//go:build windows

package desktop

import (
	"errors"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/chaz8081/autotyper/internal/window"
)

var (
	user32                  = windows.NewLazySystemDLL("user32.dll")
	procWindowFromPoint     = user32.NewProc("WindowFromPoint")
	procGetAncestor         = user32.NewProc("GetAncestor")
	procSetForegroundWindow = user32.NewProc("SetForegroundWindow")
)

const gaRoot = 2

// WindowSystem looks windows up through user32.
type WindowSystem struct{}

// NewWindowSystem returns the user32 window system.
func NewWindowSystem() *WindowSystem {
	return &WindowSystem{}
}

// Close is a no-op.
func (*WindowSystem) Close() {}

// WindowAt returns the top-level window under (x, y).
func (WindowSystem) WindowAt(x, y int) (window.Handle, bool, error) {
	if err := procWindowFromPoint.Find(); err != nil {
		return 0, false, err
	}

	var hwnd uintptr
	if unsafe.Sizeof(uintptr(0)) == 8 {
		// POINT is passed by value, packed into a single register.
		pt := uintptr(uint32(int32(x))) | uintptr(uint32(int32(y)))<<32
		hwnd, _, _ = procWindowFromPoint.Call(pt)
	} else {
		hwnd, _, _ = procWindowFromPoint.Call(uintptr(int32(x)), uintptr(int32(y)))
	}
	if hwnd == 0 {
		return 0, false, nil
	}

	if root, _, _ := procGetAncestor.Call(hwnd, gaRoot); root != 0 {
		hwnd = root
	}
	return window.Handle(hwnd), true, nil
}

// RequestForeground asks Windows to bring h to the front. Windows refuses
// this for processes that do not own the foreground.
func (WindowSystem) RequestForeground(h window.Handle) error {
	ok, _, err := procSetForegroundWindow.Call(uintptr(h))
	if ok == 0 {
		if errors.Is(err, windows.ERROR_SUCCESS) {
			return errors.New("desktop: SetForegroundWindow refused")
		}
		return err
	}
	return nil
}
