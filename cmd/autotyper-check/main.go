// Command autotyper-check verifies that the config is valid and that the
// desktop capabilities autotyper needs are present. It exits with status 1
// when a required capability is missing.
//
// Usage:
//
//	autotyper-check [--config path]
package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"

	"github.com/chaz8081/autotyper/internal/config"
	"github.com/chaz8081/autotyper/internal/desktop"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default: ~/.config/autotyper/config.yaml)")
	flag.Parse()

	fmt.Println("Go runtime:", runtime.Version(), runtime.GOOS+"/"+runtime.GOARCH)
	if exe, err := os.Executable(); err == nil {
		fmt.Println("Executable:", exe)
	}

	fmt.Println("\nChecking configuration...")
	cfg, path, err := load(*configPath)
	switch {
	case err != nil:
		fmt.Printf("  FAIL  config: %v\n", err)
		os.Exit(1)
	case path == "":
		fmt.Println("  ok    config: no file, using defaults")
	default:
		fmt.Printf("  ok    config: %s\n", path)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("  FAIL  config: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\nChecking desktop capabilities...")
	caps := desktop.Probe(cfg.Source == "clipboard")
	for _, c := range caps {
		mark := "ok  "
		if !c.OK {
			mark = "FAIL"
			if !c.Required {
				mark = "warn"
			}
		}
		line := fmt.Sprintf("  %s  %s", mark, c.Name)
		if c.Detail != "" {
			line += ": " + c.Detail
		}
		fmt.Println(line)
	}

	if err := desktop.Require(caps); err != nil {
		fmt.Println("\nMissing capabilities, autotyper will not work here.")
		os.Exit(1)
	}
	fmt.Println("\nAll checks passed. You can now run: autotyper")
}

func load(path string) (*config.Config, string, error) {
	if path == "" {
		def := config.DefaultConfigPath()
		if _, err := os.Stat(def); err != nil {
			return config.Default(), "", nil
		}
		path = def
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}
