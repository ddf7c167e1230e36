package desktop

import (
	"sync"
	"time"

	hook "github.com/robotn/gohook"

	"github.com/chaz8081/autotyper/internal/trigger"
)

// HookConfig selects what the global input hook reports.
type HookConfig struct {
	Mode      trigger.Mode
	Hotkey    []string // key names, e.g. ["ctrl", "alt", "v"]
	CancelKey string
	// WatchClicks forwards left clicks even when Mode does not accept
	// them, for the tray "Arm" item.
	WatchClicks bool
	// OnTrigger receives clicks and hotkey presses. It must not block.
	OnTrigger func(trigger.Event)
	// OnCancel is called when the cancel key goes down. It must not block.
	OnCancel func()
}

// Hook is a global keyboard and mouse observer built on gohook.
type Hook struct {
	cfg  HookConfig
	done chan struct{}
	once sync.Once
}

// NewHook creates a Hook. Callbacks left nil are ignored.
func NewHook(cfg HookConfig) *Hook {
	if cfg.OnTrigger == nil {
		cfg.OnTrigger = func(trigger.Event) {}
	}
	if cfg.OnCancel == nil {
		cfg.OnCancel = func() {}
	}
	return &Hook{cfg: cfg, done: make(chan struct{})}
}

// Start begins observing global input.
// This function blocks until Stop is called. Run it in a goroutine.
func (h *Hook) Start() {
	if h.cfg.CancelKey != "" {
		hook.Register(hook.KeyDown, []string{h.cfg.CancelKey}, func(e hook.Event) {
			h.cfg.OnCancel()
		})
	}

	if h.cfg.Mode == trigger.ModeHotkey && len(h.cfg.Hotkey) > 0 {
		hook.Register(hook.KeyDown, h.cfg.Hotkey, func(e hook.Event) {
			h.cfg.OnTrigger(trigger.Event{Kind: trigger.Hotkey, At: time.Now()})
		})
	}

	evChan := hook.Start()
	go func() {
		<-h.done
		hook.End()
	}()

	// Mouse presses are read off the raw stream before the registered key
	// callbacks run.
	fwd := make(chan hook.Event, 64)
	go func() {
		defer close(fwd)
		watchClicks := h.cfg.WatchClicks || h.cfg.Mode.Accepts(trigger.Click)
		for ev := range evChan {
			// Stamped on arrival: the stream is drained as it is produced.
			if watchClicks && isLeftPress(ev) {
				h.cfg.OnTrigger(trigger.Event{
					Kind: trigger.Click,
					X:    int(ev.X),
					Y:    int(ev.Y),
					At:   time.Now(),
				})
			}
			fwd <- ev
		}
	}()
	<-hook.Process(fwd)
}

// Stop terminates the hook.
// It is safe to call multiple times.
func (h *Hook) Stop() {
	h.once.Do(func() {
		close(h.done)
	})
}

// isLeftPress matches left button events. gohook reports a press as
// MouseHold and the following release as MouseDown; the session latch keeps
// only the first of the pair.
func isLeftPress(ev hook.Event) bool {
	if ev.Kind != hook.MouseHold && ev.Kind != hook.MouseDown {
		return false
	}
	return ev.Button == hook.MouseMap["left"]
}
