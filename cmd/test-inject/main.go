// Command test-inject is a manual test for keystroke injection.
// It waits 3 seconds, then types test text one character at a time.
// Focus a text editor before the countdown finishes; press Esc to stop.
//
// Usage:
//
//	go run ./cmd/test-inject [--interval 30ms] [--text "..."]
package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/chaz8081/autotyper/internal/desktop"
	"github.com/chaz8081/autotyper/internal/inject"
)

func main() {
	interval := flag.Duration("interval", 30*time.Millisecond, "delay between keystrokes")
	text := flag.String("text", "Hello from autotyper!\n\tindented line", "text to type")
	flag.Parse()

	cancel := inject.NewCancelFlag()
	hook := desktop.NewHook(desktop.HookConfig{CancelKey: "esc", OnCancel: cancel.Set})
	go hook.Start()
	defer hook.Stop()

	fmt.Printf("Will type %q at %s per key in 3 seconds...\n", *text, *interval)
	fmt.Println("Focus a text editor now! Press Esc to stop.")

	for i := 3; i > 0; i-- {
		fmt.Printf("%d...\n", i)
		time.Sleep(time.Second)
	}

	keys := desktop.Keys{}
	if err := keys.ReleaseModifiers(); err != nil {
		fmt.Printf("Warning: %v\n", err)
	}

	out := inject.NewInjector(keys).TypeStream(context.Background(), *text, *interval, cancel)
	if out.Err != nil {
		fmt.Printf("\nError: %v\n", out.Err)
		return
	}

	fmt.Printf("\nDone! %s after %d characters.\n", out.Status, out.Typed)
}
