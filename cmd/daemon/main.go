// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"flag"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ManuGH/m3u2xmltv/internal/config"
	xglog "github.com/ManuGH/m3u2xmltv/internal/log"
)

var (
	version   = "v0.1.0"
	commit    = "none"
	buildDate = "unknown"
)

// maskURL removes user info from a URL string for safe logging.
func maskURL(rawURL string) string {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return "invalid-url-redacted"
	}
	parsedURL.User = nil
	return parsedURL.String()
}

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "config":
			os.Exit(runConfigCLI(os.Args[2:]))
		case "healthcheck":
			os.Exit(runHealthcheckCLI(os.Args[2:]))
		}
	}

	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	warm := flag.Bool("warm", false, "build the default guide once at startup")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// Safe defaults until config is loaded
	xglog.Configure(xglog.Config{Level: "info", Service: "m3u2xmltv", Version: version})
	logger := xglog.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	path := strings.TrimSpace(*configPath)
	if path == "" {
		path = strings.TrimSpace(config.ParseString(config.EnvPrefix+"CONFIG", ""))
	}

	cfg, err := config.NewLoader(path, version).Load()
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "config.load_failed").
			Str("config_path", path).
			Msg("failed to load configuration")
	}

	xglog.Configure(xglog.Config{Level: cfg.LogLevel, Service: "m3u2xmltv", Version: cfg.Version})
	logger = xglog.WithComponent("daemon")

	source := "env+defaults"
	if path != "" {
		source = "file"
	}
	logger.Info().
		Str("event", "startup").
		Str("version", version).
		Str("commit", commit).
		Str("build_date", buildDate).
		Str("config_source", source).
		Str("addr", cfg.ListenAddr).
		Msg("starting m3u2xmltv")
	logger.Info().Msgf("→ Playlist: %s", maskURL(cfg.Playlist.DefaultURL))
	logger.Info().Msgf("→ Listings: %s (%s, %g req/s)", cfg.Source.BaseURL, cfg.Source.ListingsTimezone, cfg.Source.RatePerSecond)
	logger.Info().Msgf("→ Cache: %s (ttl %s)", cfg.Cache.Backend, cfg.Cache.TTL)

	if err := run(ctx, cfg, runOptions{warm: *warm}); err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "daemon.failed").
			Msg("daemon failed")
	}
	logger.Info().Msg("server exiting")
}
