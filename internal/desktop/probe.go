package desktop

import (
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/go-vgo/robotgo"

	"github.com/chaz8081/autotyper/internal/capture"
	"github.com/chaz8081/autotyper/internal/window"
)

var _ window.System = (*WindowSystem)(nil)

// ErrMissingCapability is returned when a desktop capability the tool
// depends on is not available.
var ErrMissingCapability = errors.New("desktop: required capability missing")

// Capability is the result of probing one desktop feature.
type Capability struct {
	Name     string
	OK       bool
	Detail   string
	Required bool
}

// Probe checks the desktop features autotyper uses. needClipboard marks
// the clipboard as required (clipboard capture source).
func Probe(needClipboard bool) []Capability {
	caps := []Capability{displayCapability()}

	clip := Capability{Name: "clipboard", OK: capture.ClipboardAvailable(), Required: needClipboard}
	if !clip.OK {
		clip.Detail = "no clipboard utility found (install xclip, xsel, or wl-clipboard)"
	}
	caps = append(caps, clip)

	screen := Capability{Name: "screen", Required: true}
	if caps[0].OK {
		w, h := robotgo.GetScreenSize()
		screen.OK = w > 0 && h > 0
		screen.Detail = fmt.Sprintf("%dx%d", w, h)
	} else {
		screen.Detail = "skipped, no display"
	}
	caps = append(caps, screen)

	return caps
}

func displayCapability() Capability {
	c := Capability{Name: "display", OK: true, Required: true}
	if runtime.GOOS != "linux" {
		return c
	}
	if os.Getenv("DISPLAY") == "" && os.Getenv("WAYLAND_DISPLAY") == "" {
		c.OK = false
		c.Detail = "neither DISPLAY nor WAYLAND_DISPLAY is set"
	}
	return c
}

// Require returns an error wrapping ErrMissingCapability that names every
// required capability that failed its probe.
func Require(caps []Capability) error {
	var errs []error
	for _, c := range caps {
		if c.Required && !c.OK {
			errs = append(errs, fmt.Errorf("%w: %s: %s", ErrMissingCapability, c.Name, c.Detail))
		}
	}
	return errors.Join(errs...)
}
