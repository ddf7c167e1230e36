package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Source   string        `yaml:"source"` // "clipboard" or "prompt"
	Trigger  TriggerConfig `yaml:"trigger"`
	Typing   TypingConfig  `yaml:"typing"`
	Capture  CaptureConfig `yaml:"capture"`
	Tray     TrayConfig    `yaml:"tray"`
	LogLevel string        `yaml:"log_level"`
}

// TriggerConfig holds the settings for what starts a typing cycle.
type TriggerConfig struct {
	Mode      string   `yaml:"mode"` // "click", "hotkey" or "button"
	Hotkey    []string `yaml:"hotkey"`
	CancelKey string   `yaml:"cancel_key"`
}

// TypingConfig holds keystroke injection settings.
type TypingConfig struct {
	IntervalMS int `yaml:"interval_ms"`
	SettleMS   int `yaml:"settle_ms"`
}

// CaptureConfig holds clipboard polling settings.
type CaptureConfig struct {
	PollIntervalMS   int  `yaml:"poll_interval_ms"`
	StackTraceFilter bool `yaml:"stacktrace_filter"`
	PreviewLength    int  `yaml:"preview_length"`
}

// TrayConfig holds settings for the system tray variant.
type TrayConfig struct {
	Enabled    bool `yaml:"enabled"`
	IntervalMS int  `yaml:"interval_ms"`
}

// Typing interval bounds in milliseconds.
const (
	MinIntervalMS = 1
	MaxIntervalMS = 300
)

// DefaultConfigDir returns the default config directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "autotyper")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Source: "clipboard",
		Trigger: TriggerConfig{
			Mode:      "click",
			Hotkey:    []string{"ctrl", "alt", "v"},
			CancelKey: "esc",
		},
		Typing: TypingConfig{
			IntervalMS: 10,
			SettleMS:   150,
		},
		Capture: CaptureConfig{
			PollIntervalMS:   100,
			StackTraceFilter: true,
			PreviewLength:    120,
		},
		Tray: TrayConfig{
			Enabled:    false,
			IntervalMS: 30,
		},
		LogLevel: "info",
	}
}

// Load reads and parses a YAML config file. Missing fields are filled
// with defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(expandTilde(path))
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.Source = strings.ToLower(strings.TrimSpace(cfg.Source))
	cfg.Trigger.Mode = strings.ToLower(strings.TrimSpace(cfg.Trigger.Mode))
	for i, k := range cfg.Trigger.Hotkey {
		cfg.Trigger.Hotkey[i] = strings.ToLower(strings.TrimSpace(k))
	}

	return cfg, nil
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	switch c.Source {
	case "clipboard", "prompt":
	default:
		return fmt.Errorf("source must be \"clipboard\" or \"prompt\", got %q", c.Source)
	}

	switch c.Trigger.Mode {
	case "click":
	case "button":
		if !c.Tray.Enabled {
			return errors.New("trigger.mode \"button\" requires the tray (tray.enabled or --tray)")
		}
	case "hotkey":
		if len(c.Trigger.Hotkey) == 0 {
			return errors.New("trigger.hotkey must not be empty in hotkey mode")
		}
	default:
		return fmt.Errorf("trigger.mode must be click, hotkey, or button, got %q", c.Trigger.Mode)
	}

	if strings.TrimSpace(c.Trigger.CancelKey) == "" {
		return errors.New("trigger.cancel_key must not be empty")
	}

	if err := checkInterval("typing.interval_ms", c.Typing.IntervalMS); err != nil {
		return err
	}
	if c.Typing.SettleMS < 0 {
		return fmt.Errorf("typing.settle_ms must be >= 0, got %d", c.Typing.SettleMS)
	}

	if c.Capture.PollIntervalMS <= 0 {
		return fmt.Errorf("capture.poll_interval_ms must be > 0, got %d", c.Capture.PollIntervalMS)
	}
	if c.Capture.PreviewLength <= 0 {
		return fmt.Errorf("capture.preview_length must be > 0, got %d", c.Capture.PreviewLength)
	}

	if c.Tray.Enabled {
		if err := checkInterval("tray.interval_ms", c.Tray.IntervalMS); err != nil {
			return err
		}
		if c.Source != "clipboard" {
			return errors.New("tray requires source \"clipboard\"")
		}
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn, or error, got %q", c.LogLevel)
	}

	return nil
}

func checkInterval(field string, ms int) error {
	if ms < MinIntervalMS || ms > MaxIntervalMS {
		return fmt.Errorf("%s must be between %d and %d, got %d", field, MinIntervalMS, MaxIntervalMS, ms)
	}
	return nil
}

// ParseLogLevel maps a log_level string to a logrus level.
// Unknown values default to info.
func ParseLogLevel(s string) logrus.Level {
	switch strings.ToLower(s) {
	case "debug":
		return logrus.DebugLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

const defaultHeader = `# autotyper configuration
# source: clipboard (poll the clipboard) or prompt (read lines until ".")
# trigger.mode: click, hotkey, or button (tray "Type now")
# typing.interval_ms: delay between keystrokes, 1-300
`

// WriteDefault writes the default config to DefaultConfigPath if no file
// exists there yet. It returns the path written, or "" if a config was
// already present.
func WriteDefault() (string, error) {
	path := DefaultConfigPath()
	if _, err := os.Stat(path); err == nil {
		return "", nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("checking config file: %w", err)
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return "", fmt.Errorf("encoding default config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("creating config dir: %w", err)
	}
	if err := os.WriteFile(path, append([]byte(defaultHeader), data...), 0644); err != nil {
		return "", fmt.Errorf("writing config file: %w", err)
	}
	return path, nil
}

// expandTilde replaces a leading ~ with the user's home directory.
func expandTilde(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
