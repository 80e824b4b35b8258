package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Qzone contains the mirrored account and login strategy settings.
type Qzone struct {
	Uin        int64   `toml:"uin"`
	Password   string  `toml:"password"`
	QRStrategy string  `toml:"qr_strategy"`
	Dayspac    float64 `toml:"dayspac"`
	Block      []int64 `toml:"block"`
	BlockSelf  bool    `toml:"block_self"`
}

// Bot contains messaging-platform settings.
type Bot struct {
	Admin     int64      `toml:"admin"`
	Token     string     `toml:"token"`
	AutoStart bool       `toml:"auto_start"`
	Network   BotNetwork `toml:"network"`
	Storage   BotStorage `toml:"storage"`
}

// BotNetwork contains outbound transport settings.
type BotNetwork struct {
	Proxy string `toml:"proxy"`
}

// BotStorage contains persistence settings.
type BotStorage struct {
	Database string  `toml:"database"`
	Keepdays float64 `toml:"keepdays"`
}

// Workflow contains daemon timing, pacing, and retry settings.
type Workflow struct {
	HeartbeatInterval int `toml:"heartbeat_interval"`
	QRCooldown        int `toml:"qr_cooldown"`
	UPCooldown        int `toml:"up_cooldown"`
	SendRatePerSecond int `toml:"send_rate_per_second"`
	SendMaxRetry      int `toml:"send_max_retry"`
	AlbumMaxRetry     int `toml:"album_max_retry"`
	EnrichWorkers     int `toml:"enrich_workers"`
	LoginTimeout      int `toml:"login_timeout"`
	ChallengeTimeout  int `toml:"challenge_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	File   string `toml:"file"`
}

// Config encapsulates all configuration values for the daemon.
//
// Sections by subsystem:
//   - Qzone: mirrored account, login strategy, block list, fetch window
//   - Bot: admin chat, transport token, storage path and retention
//   - Workflow: heartbeat interval, login cooldowns, send pacing, retries
//   - Logging: log format, level, optional file
type Config struct {
	Qzone    Qzone    `toml:"qzone"`
	Bot      Bot      `toml:"bot"`
	Workflow Workflow `toml:"workflow"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/qzsync/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err = os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("qzsync.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// FetchWindow returns the listing fetch window derived from qzone.dayspac.
func (c *Config) FetchWindow() time.Duration {
	return daysToDuration(c.Qzone.Dayspac)
}

// Retention returns the storage retention window derived from
// bot.storage.keepdays. Retention is handled in seconds internally; days are
// a configuration-boundary unit only.
func (c *Config) Retention() time.Duration {
	return daysToDuration(c.Bot.Storage.Keepdays)
}

// EnsureDirectories creates the directories backing the database and log file.
func (c *Config) EnsureDirectories() error {
	for _, path := range []string{c.Bot.Storage.Database, c.Logging.File} {
		if strings.TrimSpace(path) == "" {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", filepath.Dir(path), err)
		}
	}
	return nil
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

func daysToDuration(days float64) time.Duration {
	if days <= 0 {
		return 0
	}
	return time.Duration(days * 24 * float64(time.Hour))
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}
