// Package desktop adapts the host desktop (robotgo keystrokes, gohook input
// events, OS window lookup) to the interfaces the session uses.
package desktop

import (
	"errors"
	"fmt"

	"github.com/go-vgo/robotgo"

	"github.com/chaz8081/autotyper/internal/inject"
	"github.com/chaz8081/autotyper/internal/window"
)

// Keys simulates keystrokes with robotgo.
type Keys struct{}

// Compile-time interface satisfaction checks.
var (
	_ inject.Keystroker       = Keys{}
	_ window.ModifierReleaser = Keys{}
)

// TypeRune types r. Newline and tab are sent as the enter and tab keys; a
// carriage return is skipped so CRLF text does not press enter twice.
// robotgo.TypeStr reports no errors, so only enter and tab can fail.
func (Keys) TypeRune(r rune) error {
	switch r {
	case '\r':
		return nil
	case '\n':
		return keyTap("enter")
	case '\t':
		return keyTap("tab")
	}
	robotgo.TypeStr(string(r))
	return nil
}

var modifiers = []string{"ctrl", "alt", "shift"}

// ReleaseModifiers sends a key-up for each of ctrl, alt and shift.
func (Keys) ReleaseModifiers() error {
	var errs []error
	for _, k := range modifiers {
		if err := robotgo.KeyToggle(k, "up"); err != nil {
			errs = append(errs, fmt.Errorf("release %s: %w", k, err))
		}
	}
	return errors.Join(errs...)
}

func keyTap(key string) error {
	if err := robotgo.KeyTap(key); err != nil {
		return fmt.Errorf("desktop: key tap %s: %w", key, err)
	}
	return nil
}
