package testsupport

import (
	"path/filepath"
	"testing"

	"qzsync/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with a unique temp database per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Qzone.Uin = 10000
	cfg.Qzone.QRStrategy = "prefer"
	cfg.Bot.Admin = 20000
	cfg.Bot.Token = "test"
	cfg.Bot.Storage.Database = filepath.Join(base, "qzsync.db")

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithStrategy overrides the login strategy on the test config.
func WithStrategy(strategy string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Qzone.QRStrategy = strategy
	}
}

// WithPassword sets the account password on the test config.
func WithPassword(password string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Qzone.Password = password
	}
}
