package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"qzsync/internal/config"
)

func validConfig() config.Config {
	cfg := config.Default()
	cfg.Qzone.Uin = 10000
	cfg.Bot.Admin = 20000
	cfg.Bot.Token = "token"
	return cfg
}

func TestDefaultsValidateWithRequiredFields(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateRequirements(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		field  string
	}{
		{"missing uin", func(c *config.Config) { c.Qzone.Uin = 0 }, "qzone.uin"},
		{"missing admin", func(c *config.Config) { c.Bot.Admin = 0 }, "bot.admin"},
		{"missing token", func(c *config.Config) { c.Bot.Token = " " }, "bot.token"},
		{"bad strategy", func(c *config.Config) { c.Qzone.QRStrategy = "maybe" }, "qzone.qr_strategy"},
		{"zero window", func(c *config.Config) { c.Qzone.Dayspac = 0 }, "qzone.dayspac"},
		{"zero retention", func(c *config.Config) { c.Bot.Storage.Keepdays = 0 }, "bot.storage.keepdays"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate accepted invalid config")
			}
			if !strings.Contains(err.Error(), tc.field) {
				t.Fatalf("error %q does not name %s", err, tc.field)
			}
		})
	}
}

func TestForbidStrategyRequiresPassword(t *testing.T) {
	cfg := validConfig()
	cfg.Qzone.QRStrategy = "forbid"
	if err := cfg.Validate(); err == nil {
		t.Fatal("forbid strategy accepted without a password")
	}
	cfg.Qzone.Password = "secret"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestWindowConversions(t *testing.T) {
	cfg := validConfig()
	cfg.Qzone.Dayspac = 1.5
	cfg.Bot.Storage.Keepdays = 30

	if got := cfg.FetchWindow(); got != 36*time.Hour {
		t.Fatalf("FetchWindow = %v, want 36h", got)
	}
	if got := cfg.Retention(); got != 30*24*time.Hour {
		t.Fatalf("Retention = %v, want 720h", got)
	}
}

func TestLoadAppliesFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	contents := `
[qzone]
uin = 12345
qr_strategy = "Force"
dayspac = 2.0

[bot]
admin = 67890
token = "tok"

[workflow]
send_rate_per_second = 10
challenge_timeout = 90
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists || resolved == "" {
		t.Fatalf("exists = %v, resolved = %q", exists, resolved)
	}
	if cfg.Qzone.Uin != 12345 || cfg.Bot.Admin != 67890 {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.Qzone.QRStrategy != "force" {
		t.Fatalf("strategy not normalized: %q", cfg.Qzone.QRStrategy)
	}
	if cfg.Workflow.SendRatePerSecond != 10 {
		t.Fatalf("send rate = %d, want 10", cfg.Workflow.SendRatePerSecond)
	}
	if cfg.Workflow.SendMaxRetry != 2 {
		t.Fatalf("unset field lost its default: %d", cfg.Workflow.SendMaxRetry)
	}
	if cfg.Workflow.ChallengeTimeout != 90 {
		t.Fatalf("challenge timeout = %d, want 90", cfg.Workflow.ChallengeTimeout)
	}
}

func TestChallengeTimeoutDefaulted(t *testing.T) {
	cfg := config.Default()
	if cfg.Workflow.ChallengeTimeout != 60 {
		t.Fatalf("default challenge timeout = %d, want 60", cfg.Workflow.ChallengeTimeout)
	}
}

func TestLoadRejectsIncompleteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[qzone]\nuin = 1\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("Load accepted config without bot settings")
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[qzone]") {
		t.Fatal("sample config missing qzone section")
	}
}
