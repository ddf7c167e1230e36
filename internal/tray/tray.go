// Package tray provides the system tray surface using getlantern/systray:
// a status line, arm/type/stop controls and typing speed presets.
package tray

import (
	"fmt"
	"sync"
	"time"

	"github.com/getlantern/systray"

	"github.com/chaz8081/autotyper/internal/status"
)

// Actions are the callbacks behind the menu items. Nil actions hide their
// item.
type Actions struct {
	Arm         func() // wait for a click on the target window
	TypeNow     func() // type into the focused window
	Stop        func()
	SetInterval func(time.Duration)
	Quit        func()
}

// SpeedPresets are the selectable delays between keystrokes, in ms.
var SpeedPresets = []int{1, 10, 30, 100, 300}

// Tray manages the tray icon and menu. It also implements status.Reporter
// by showing the latest message in its status line.
type Tray struct {
	actions   Actions
	currentMS int

	mu         sync.Mutex
	statusItem *systray.MenuItem
	statusText string
	speedItems map[int]*systray.MenuItem

	quitCh chan struct{}
}

var _ status.Reporter = (*Tray)(nil)

// New creates a tray. intervalMS selects the initially checked speed.
func New(actions Actions, intervalMS int) *Tray {
	return &Tray{
		actions:    actions,
		currentMS:  intervalMS,
		statusText: "Ready",
		speedItems: make(map[int]*systray.MenuItem),
		quitCh:     make(chan struct{}),
	}
}

// Run starts the tray event loop (blocks). On some platforms it must be
// called from the main goroutine.
func (t *Tray) Run() {
	systray.Run(t.setupMenu, t.onExit)
}

// Stop stops the tray
func (t *Tray) Stop() {
	systray.Quit()
}

// Report shows u in the status line. It never blocks; before the menu is
// built the text is kept and applied once it is.
func (t *Tray) Report(u status.Update) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.statusText = u.Message
	if t.statusItem != nil {
		t.statusItem.SetTitle(statusTitle(u.Message))
	}
}

func (t *Tray) onExit() {
	close(t.quitCh)
}

// setupMenu is called when systray is ready
func (t *Tray) setupMenu() {
	systray.SetTitle("autotyper")
	systray.SetTooltip("autotyper: copy text, then click where it should be typed")
	systray.SetIcon(getIcon())

	t.mu.Lock()
	t.statusItem = systray.AddMenuItem(statusTitle(t.statusText), "")
	t.statusItem.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	t.addAction("Arm (click target)", "Wait for a click on the target window", t.actions.Arm)
	t.addAction("Type now", "Type into the focused window", t.actions.TypeNow)
	t.addAction("Stop", "Disarm and stop typing", t.actions.Stop)

	if t.actions.SetInterval != nil {
		systray.AddSeparator()
		t.mu.Lock()
		for _, ms := range SpeedPresets {
			item := systray.AddMenuItem(fmt.Sprintf("Speed: %d ms per key", ms), "Delay between keystrokes")
			t.speedItems[ms] = item
		}
		checkSpeed(t.speedItems, t.currentMS)
		t.mu.Unlock()

		// Watchers start once every speed item exists.
		for _, ms := range SpeedPresets {
			t.watch(t.speedItems[ms], func() { t.selectSpeed(ms) })
		}
	}

	systray.AddSeparator()
	t.addAction("Quit", "Exit autotyper", func() {
		if t.actions.Quit != nil {
			t.actions.Quit()
		}
		systray.Quit()
	})
}

func (t *Tray) addAction(title, tooltip string, fn func()) {
	if fn == nil {
		return
	}
	t.watch(systray.AddMenuItem(title, tooltip), fn)
}

// watch runs fn for every click on item until the tray exits.
func (t *Tray) watch(item *systray.MenuItem, fn func()) {
	go func() {
		for {
			select {
			case <-item.ClickedCh:
				fn()
			case <-t.quitCh:
				return
			}
		}
	}()
}

func (t *Tray) selectSpeed(ms int) {
	t.mu.Lock()
	checkSpeed(t.speedItems, ms)
	t.currentMS = ms
	t.mu.Unlock()
	t.actions.SetInterval(time.Duration(ms) * time.Millisecond)
	t.Report(status.Update{Phase: status.Idle, Message: fmt.Sprintf("Speed set to %d ms per key", ms)})
}

type checkable interface {
	Check()
	Uncheck()
}

// checkSpeed checks the item for ms and unchecks the others.
func checkSpeed[T checkable](items map[int]T, ms int) {
	for v, item := range items {
		if v == ms {
			item.Check()
		} else {
			item.Uncheck()
		}
	}
}

const maxStatusLen = 60

func statusTitle(msg string) string {
	r := []rune(msg)
	if len(r) > maxStatusLen {
		msg = string(r[:maxStatusLen-3]) + "..."
	}
	return "Status: " + msg
}

// getIcon returns a placeholder icon (valid 16x16 ICO)
func getIcon() []byte {
	icon := make([]byte, 1118)
	// ICO header
	copy(icon[0:6], []byte{0x00, 0x00, 0x01, 0x00, 0x01, 0x00})
	// Icon directory: 16x16, 32bpp, 1096 bytes at offset 22
	copy(icon[6:22], []byte{
		0x10, 0x10, 0x00, 0x00, 0x01, 0x00, 0x20, 0x00,
		0x48, 0x04, 0x00, 0x00,
		0x16, 0x00, 0x00, 0x00,
	})
	// BITMAPINFOHEADER, height doubled for the AND mask
	copy(icon[22:62], []byte{
		0x28, 0x00, 0x00, 0x00,
		0x10, 0x00, 0x00, 0x00,
		0x20, 0x00, 0x00, 0x00,
		0x01, 0x00,
		0x20, 0x00,
		0x00, 0x00, 0x00, 0x00,
		0x00, 0x04, 0x00, 0x00,
	})
	// Opaque dark pixels so the icon is visible on light and dark bars.
	for i := 62; i < 62+1024; i += 4 {
		copy(icon[i:i+4], []byte{0x30, 0x30, 0x30, 0xFF})
	}
	return icon
}
