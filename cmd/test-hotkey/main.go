// Command test-hotkey is a manual test for the global input hook.
// Run it, then click or press the hotkey to see trigger events.
// Press Esc to see cancel events and Ctrl+C to exit.
//
// Usage:
//
//	go run ./cmd/test-hotkey [--mode click|hotkey|button]
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/chaz8081/autotyper/internal/desktop"
	"github.com/chaz8081/autotyper/internal/trigger"
)

func main() {
	modeFlag := flag.String("mode", "click", "trigger mode: click, hotkey, or button")
	flag.Parse()

	mode, err := trigger.ParseMode(*modeFlag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	keys := []string{"ctrl", "alt", "v"}
	fmt.Printf("Listening in %q mode (hotkey Ctrl+Alt+V, cancel Esc)...\n", mode)
	fmt.Println("Press Ctrl+C to exit.")

	events := make(chan trigger.Event, 16)
	cancels := make(chan struct{}, 16)
	listener := desktop.NewHook(desktop.HookConfig{
		Mode:        mode,
		Hotkey:      keys,
		CancelKey:   "esc",
		WatchClicks: true,
		OnTrigger: func(ev trigger.Event) {
			select {
			case events <- ev:
			default:
			}
		},
		OnCancel: func() {
			select {
			case cancels <- struct{}{}:
			default:
			}
		},
	})

	// Handle Ctrl+C
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		fmt.Println("\nShutting down...")
		listener.Stop()
	}()

	// One trigger is honoured per arm; Esc re-arms.
	latch := trigger.NewLatch(mode)
	latch.Arm()
	go func() {
		for {
			select {
			case ev := <-events:
				if latch.Offer(ev) {
					fmt.Printf(">>> TRIGGER %s at (%d, %d), disarmed\n", ev.Kind, ev.X, ev.Y)
				} else {
					fmt.Printf("    ignored %s (not armed, or not taken in %s mode)\n", ev.Kind, mode)
				}
			case <-cancels:
				fmt.Println("<<< CANCEL, re-armed")
				latch.Arm()
			}
		}
	}()

	// Blocks until stopped
	listener.Start()
	fmt.Println("Done.")
}
