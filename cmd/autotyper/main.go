package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/chaz8081/autotyper/internal/capture"
	"github.com/chaz8081/autotyper/internal/config"
	"github.com/chaz8081/autotyper/internal/desktop"
	"github.com/chaz8081/autotyper/internal/inject"
	"github.com/chaz8081/autotyper/internal/logging"
	"github.com/chaz8081/autotyper/internal/session"
	"github.com/chaz8081/autotyper/internal/status"
	"github.com/chaz8081/autotyper/internal/tray"
	"github.com/chaz8081/autotyper/internal/trigger"
	"github.com/chaz8081/autotyper/internal/window"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "path to config file (default: ~/.config/autotyper/config.yaml)")
	source := flag.String("source", "", "capture source: clipboard or prompt (overrides config)")
	useTray := flag.Bool("tray", false, "show the system tray menu")
	flag.Parse()

	logging.Setup("info", nil)

	// Load configuration
	cfg, err := loadConfig(*configPath)
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	if *source != "" {
		cfg.Source = strings.ToLower(*source)
	}
	if *useTray {
		cfg.Tray.Enabled = true
	}
	if err := cfg.Validate(); err != nil {
		logrus.Fatalf("config validation: %v", err)
	}
	logging.Setup(cfg.LogLevel, nil)

	mode, err := trigger.ParseMode(cfg.Trigger.Mode)
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	intervalMS := cfg.Typing.IntervalMS
	if cfg.Tray.Enabled {
		intervalMS = cfg.Tray.IntervalMS
		if mode == trigger.ModeClick {
			// The click on the tray icon must not fire a cycle. Clicks on
			// the target window are taken after the "Arm" item instead.
			mode = trigger.ModeButton
		}
	}

	printBanner(cfg, mode, intervalMS)

	if err := desktop.Require(desktop.Probe(cfg.Source == "clipboard")); err != nil {
		logrus.Errorf("Missing capability:\n%v", err)
		os.Exit(1)
	}

	// Prompt mode reads its single payload before any hook is installed.
	var prompted capture.Payload
	if cfg.Source == "prompt" {
		prompted, err = readPrompt()
		if errors.Is(err, capture.ErrNoInput) {
			fmt.Println("No text entered, exiting.")
			return
		}
		if err != nil {
			logrus.Fatalf("prompt: %v", err)
		}
		fmt.Printf("\nText accepted (len=%d). %s\n", prompted.Len(), hint(cfg, mode))
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	keys := desktop.Keys{}
	windows := desktop.NewWindowSystem()
	resolver := window.NewResolver(windows, keys, time.Duration(cfg.Typing.SettleMS)*time.Millisecond)

	var ctrl *session.Controller
	reporters := status.Multi{status.NewLog()}

	var tr *tray.Tray
	if cfg.Tray.Enabled {
		actions := tray.Actions{
			Arm:         func() { ctrl.ArmClick() },
			Stop:        func() { ctrl.Stop() },
			SetInterval: func(d time.Duration) { ctrl.SetInterval(d) },
			Quit:        stop,
		}
		if mode == trigger.ModeButton {
			actions.TypeNow = func() { ctrl.Trigger(trigger.Event{Kind: trigger.Button}) }
		}
		tr = tray.New(actions, intervalMS)
		reporters = append(reporters, tr)
	}

	ctrl = session.New(inject.NewInjector(keys), resolver, session.Options{
		Mode:          mode,
		Interval:      time.Duration(intervalMS) * time.Millisecond,
		PreviewLength: cfg.Capture.PreviewLength,
		Hint:          hint(cfg, mode),
		Once:          cfg.Source == "prompt",
		Reporter:      reporters,
	})
	log.Printf("Text injector ready (%d ms per key)", intervalMS)

	// The console variant exits on the cancel key; the clipboard daemon only
	// stops the current typing.
	onCancel := ctrl.Cancel
	if cfg.Source == "prompt" {
		onCancel = func() {
			ctrl.Cancel()
			stop()
		}
	}

	// Initialize global input hook
	listener := desktop.NewHook(desktop.HookConfig{
		Mode:        mode,
		Hotkey:      cfg.Trigger.Hotkey,
		CancelKey:   cfg.Trigger.CancelKey,
		WatchClicks: cfg.Tray.Enabled,
		OnTrigger:   ctrl.Trigger,
		OnCancel:    onCancel,
	})
	go listener.Start()
	log.Printf("Input hook ready (mode: %s, cancel: %s)", mode, cfg.Trigger.CancelKey)

	// Signal handling for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("Received %s, shutting down...", sig)
		stop()
	}()

	switch cfg.Source {
	case "prompt":
		ctrl.Payloads() <- prompted
	default:
		src := capture.NewClipboardSource(capture.SystemClipboard{}, cfg.Capture.StackTraceFilter)
		go src.Run(ctx, time.Duration(cfg.Capture.PollIntervalMS)*time.Millisecond, ctrl.Payloads())
		log.Println("Clipboard monitor started. Copy text to start.")
	}

	runDone := make(chan struct{})
	go func() {
		if err := ctrl.Run(ctx); err != nil {
			log.Printf("session: %v", err)
		}
		close(runDone)
	}()

	if tr != nil {
		go func() {
			<-runDone
			tr.Stop()
		}()
		tr.Run()
		stop()
	}
	<-runDone

	listener.Stop()
	windows.Close()
	log.Println("Goodbye!")
	// Exit directly to avoid gohook's C cleanup crash.
	// The OS reclaims the event hook on process exit.
	os.Exit(0)
}

var log = logging.Component("main")

// loadConfig loads the config from the specified path, or falls back to
// the default config path, or writes and uses built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}

	// Try default config path
	defaultPath := config.DefaultConfigPath()
	if _, err := os.Stat(defaultPath); err == nil {
		cfg, err := config.Load(defaultPath)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", defaultPath, err)
		}
		logrus.Infof("Config loaded from %s", defaultPath)
		return cfg, nil
	}

	// No config file, write one for next time and use defaults
	if written, err := config.WriteDefault(); err != nil {
		logrus.WithError(err).Warn("could not write default config")
	} else if written != "" {
		logrus.Infof("Default config written to %s", written)
	}
	return config.Default(), nil
}

// readPrompt asks for the text to type on stdin.
func readPrompt() (capture.Payload, error) {
	fmt.Println("Enter the text to type. Finish with a line containing only a dot '.':")
	return capture.NewPromptSource(os.Stdin).Read()
}

func hint(cfg *config.Config, mode trigger.Mode) string {
	switch mode {
	case trigger.ModeHotkey:
		return fmt.Sprintf("Press %s to type it.", strings.Join(cfg.Trigger.Hotkey, "+"))
	case trigger.ModeButton:
		return "Use Type now, or Arm and then click the target window."
	default:
		return "Click in the target window to type it."
	}
}

// printBanner displays the startup configuration summary.
func printBanner(cfg *config.Config, mode trigger.Mode, intervalMS int) {
	fmt.Println("=== autotyper ===")
	fmt.Printf("  Source:  %s\n", cfg.Source)
	fmt.Printf("  Trigger: %s", mode)
	if mode == trigger.ModeHotkey {
		fmt.Printf(" (%s)", strings.Join(cfg.Trigger.Hotkey, "+"))
	}
	fmt.Println()
	fmt.Printf("  Cancel:  %s\n", cfg.Trigger.CancelKey)
	fmt.Printf("  Speed:   %d ms per key\n", intervalMS)
	fmt.Printf("  Filter:  stack traces %s\n", onOff(cfg.Capture.StackTraceFilter))
	fmt.Printf("  Tray:    %s\n", onOff(cfg.Tray.Enabled))
	fmt.Printf("  Log:     %s\n", cfg.LogLevel)
	fmt.Println("=================")
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
