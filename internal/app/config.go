package app

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// Config controls runtime behavior for the TUI client.
type Config struct {
	APIBaseURL       string
	APIKey           string
	LogPath          string
	DataDir          string
	BadgeCatalogPath string
	ASCIIOnly        bool
	Debug            bool
	HTTPTimeoutSec   int
	CelebrationMS    int
	UI               UIConfig
}

type UIConfig struct {
	StyleVariant string
}

func DefaultConfig() Config {
	return Config{
		APIBaseURL:     "https://labelarcade-backend-production.up.railway.app/api",
		HTTPTimeoutSec: 15,
		CelebrationMS:  3000,
		UI: UIConfig{
			StyleVariant: "arcade",
		},
	}
}

func (c *Config) Validate() error {
	base := strings.TrimRight(strings.TrimSpace(c.APIBaseURL), "/")
	if base == "" {
		return errors.New("api base url is required")
	}
	u, err := url.Parse(base)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("invalid api base url %q", c.APIBaseURL)
	}
	c.APIBaseURL = base

	if strings.TrimSpace(c.APIKey) == "" {
		return errors.New("api key is required")
	}

	switch c.UI.StyleVariant {
	case "", "arcade", "paper":
	default:
		return fmt.Errorf("invalid ui style variant %q", c.UI.StyleVariant)
	}
	if c.UI.StyleVariant == "" {
		c.UI.StyleVariant = "arcade"
	}

	if c.HTTPTimeoutSec <= 0 {
		c.HTTPTimeoutSec = 15
	}
	if c.CelebrationMS <= 0 {
		c.CelebrationMS = 3000
	}

	if c.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return errors.New("cannot resolve user home directory")
		}
		c.DataDir = filepath.Join(home, ".local", "share", "labelarcade")
	}

	return nil
}
