package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()
	if cfg.Addr != ":8080" {
		t.Errorf("Addr = %q", cfg.Addr)
	}
	if cfg.NightSeconds != 30 || cfg.DiscussionSeconds != 30 || cfg.VoteSeconds != 60 {
		t.Errorf("timing defaults = %d/%d/%d, want 30/30/60",
			cfg.NightSeconds, cfg.DiscussionSeconds, cfg.VoteSeconds)
	}
	if cfg.RevealRoles {
		t.Error("RevealRoles defaults to true, want false")
	}
}

func TestDurationHelpers(t *testing.T) {
	cfg := AppConfig{NightSeconds: 45, DiscussionSeconds: 0, VoteSeconds: 90}
	if got := cfg.nightDuration(); got != 45*time.Second {
		t.Errorf("nightDuration = %v", got)
	}
	if got := cfg.discussionDuration(); got != 0 {
		t.Errorf("discussionDuration = %v", got)
	}
	if got := cfg.voteDuration(); got != 90*time.Second {
		t.Errorf("voteDuration = %v", got)
	}
}

func TestLoadConfigEnvLayer(t *testing.T) {
	t.Setenv("NIGHT_SECONDS", "12")
	t.Setenv("REVEAL_ROLES", "true")
	t.Setenv("ADDR", ":9999")

	cfg := loadConfig(filepath.Join(t.TempDir(), "missing.json"))
	if cfg.NightSeconds != 12 {
		t.Errorf("NightSeconds = %d, want 12 (from env)", cfg.NightSeconds)
	}
	if !cfg.RevealRoles {
		t.Error("RevealRoles not picked up from env")
	}
	if cfg.Addr != ":9999" {
		t.Errorf("Addr = %q, want :9999", cfg.Addr)
	}
	// Untouched values keep their defaults.
	if cfg.VoteSeconds != 60 {
		t.Errorf("VoteSeconds = %d, want default 60", cfg.VoteSeconds)
	}
}

func TestLoadConfigJSONOverridesEnv(t *testing.T) {
	t.Setenv("NIGHT_SECONDS", "12")
	t.Setenv("VOTE_SECONDS", "99")

	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"night_seconds": 25, "narrator_provider": "ollama"}`), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg := loadConfig(path)
	if cfg.NightSeconds != 25 {
		t.Errorf("NightSeconds = %d, want 25 (JSON wins over env)", cfg.NightSeconds)
	}
	// Fields absent from the JSON keep the env value.
	if cfg.VoteSeconds != 99 {
		t.Errorf("VoteSeconds = %d, want 99 (env survives partial JSON)", cfg.VoteSeconds)
	}
	if cfg.NarratorProvider != "ollama" {
		t.Errorf("NarratorProvider = %q", cfg.NarratorProvider)
	}
}

func TestLoadConfigBadJSONIsIgnored(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{not json`), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg := loadConfig(path)
	if cfg.NightSeconds != 30 {
		t.Errorf("NightSeconds = %d, want default 30 after parse failure", cfg.NightSeconds)
	}
}
