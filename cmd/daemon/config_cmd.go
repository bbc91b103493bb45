// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ManuGH/m3u2xmltv/internal/config"
)

const redacted = "***"

func runConfigCLI(args []string) int {
	return configCLI(args, os.Stdout, os.Stderr)
}

func configCLI(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printConfigUsage(stderr)
		return 0
	}

	switch args[0] {
	case "validate":
		return runConfigValidate(args[1:], stdout, stderr)
	case "dump":
		return runConfigDump(args[1:], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "Unknown subcommand: %s\n\n", args[0])
		printConfigUsage(stderr)
		return 2
	}
}

func printConfigUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  m3u2xmltv config validate [--file|-f config.yaml]")
	fmt.Fprintln(w, "  m3u2xmltv config dump [--file|-f config.yaml]")
}

func configFlags(name string, args []string, stderr io.Writer) (string, bool) {
	fs := flag.NewFlagSet("m3u2xmltv config "+name, flag.ContinueOnError)
	fs.SetOutput(stderr)

	var file string
	fs.StringVar(&file, "file", "", "path to YAML configuration file")
	fs.StringVar(&file, "f", "", "path to YAML configuration file (shorthand)")
	if err := fs.Parse(args); err != nil {
		return "", false
	}
	return strings.TrimSpace(file), true
}

func runConfigValidate(args []string, stdout, stderr io.Writer) int {
	path, ok := configFlags("validate", args, stderr)
	if !ok {
		return 2
	}
	if _, err := config.NewLoader(path, version).Load(); err != nil {
		fmt.Fprintf(stderr, "Configuration error:\n  %v\n", err)
		return 1
	}
	if path == "" {
		path = "environment"
	}
	fmt.Fprintf(stdout, "✓ %s is valid\n", path)
	return 0
}

// runConfigDump prints the effective configuration with secrets redacted.
func runConfigDump(args []string, stdout, stderr io.Writer) int {
	path, ok := configFlags("dump", args, stderr)
	if !ok {
		return 2
	}
	cfg, err := config.NewLoader(path, version).Load()
	if err != nil {
		fmt.Fprintf(stderr, "Configuration error:\n  %v\n", err)
		return 1
	}
	if cfg.Cache.Redis.Password != "" {
		cfg.Cache.Redis.Password = redacted
	}
	cfg.Playlist.DefaultURL = maskURL(cfg.Playlist.DefaultURL)

	enc := yaml.NewEncoder(stdout)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		fmt.Fprintf(stderr, "encode config: %v\n", err)
		return 1
	}
	_ = enc.Close()
	return 0
}
