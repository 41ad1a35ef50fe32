package app

import (
	"strings"
	"testing"
)

func validConfig() Config {
	cfg := DefaultConfig()
	cfg.APIKey = "k"
	cfg.DataDir = "/tmp/labelarcade-test"
	return cfg
}

func TestValidateAcceptsDefaults(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if cfg.HTTPTimeoutSec != 15 || cfg.CelebrationMS != 3000 {
		t.Fatalf("defaults lost: %#v", cfg)
	}
}

func TestValidateTrimsTrailingSlash(t *testing.T) {
	cfg := validConfig()
	cfg.APIBaseURL = "https://example.com/api/"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if strings.HasSuffix(cfg.APIBaseURL, "/") {
		t.Fatalf("trailing slash kept: %q", cfg.APIBaseURL)
	}
}

func TestValidateRejectsBadURL(t *testing.T) {
	cfg := validConfig()
	cfg.APIBaseURL = "ftp://example.com"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for non-http scheme")
	}
	cfg.APIBaseURL = ""
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for empty url")
	}
}

func TestValidateRequiresAPIKey(t *testing.T) {
	cfg := validConfig()
	cfg.APIKey = "  "
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for missing api key")
	}
}

func TestValidateStyleVariant(t *testing.T) {
	cfg := validConfig()
	cfg.UI.StyleVariant = "neon"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for unknown variant")
	}
	cfg.UI.StyleVariant = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if cfg.UI.StyleVariant != "arcade" {
		t.Fatalf("variant default: %q", cfg.UI.StyleVariant)
	}
}

func TestValidateRepairsNonPositiveDurations(t *testing.T) {
	cfg := validConfig()
	cfg.HTTPTimeoutSec = -1
	cfg.CelebrationMS = 0
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if cfg.HTTPTimeoutSec != 15 || cfg.CelebrationMS != 3000 {
		t.Fatalf("durations not repaired: %#v", cfg)
	}
}
