package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"

	"labelarcade/internal/app"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "labelarcade:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := app.DefaultConfig()

	// Env first, flags override.
	envString("LABELARCADE_API_URL", &cfg.APIBaseURL)
	envString("LABELARCADE_API_KEY", &cfg.APIKey)
	envString("LABELARCADE_LOG", &cfg.LogPath)
	envString("LABELARCADE_DATA_DIR", &cfg.DataDir)
	envString("LABELARCADE_BADGES", &cfg.BadgeCatalogPath)
	envString("LABELARCADE_STYLE", &cfg.UI.StyleVariant)
	envBool("LABELARCADE_ASCII", &cfg.ASCIIOnly)
	envBool("LABELARCADE_DEBUG", &cfg.Debug)

	flag.StringVar(&cfg.APIBaseURL, "api-url", cfg.APIBaseURL, "backend base URL")
	flag.StringVar(&cfg.APIKey, "api-key", cfg.APIKey, "service API key")
	flag.StringVar(&cfg.LogPath, "log", cfg.LogPath, "write JSON event log to this file")
	flag.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "local session storage directory")
	flag.StringVar(&cfg.BadgeCatalogPath, "badges", cfg.BadgeCatalogPath, "YAML badge catalog (optional)")
	flag.StringVar(&cfg.UI.StyleVariant, "style", cfg.UI.StyleVariant, "color style: arcade or paper")
	flag.BoolVar(&cfg.ASCIIOnly, "ascii", cfg.ASCIIOnly, "avoid non-ASCII glyphs")
	flag.BoolVar(&cfg.Debug, "debug", cfg.Debug, "verbose UI debug logging")
	flag.IntVar(&cfg.HTTPTimeoutSec, "http-timeout", cfg.HTTPTimeoutSec, "HTTP request timeout in seconds")
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		return err
	}

	a, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	return a.Run(context.Background())
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envBool(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
