package config

import (
	"fmt"
	"net/url"
	"strings"
)

var qrStrategies = map[string]struct{}{
	"force":  {},
	"prefer": {},
	"allow":  {},
	"forbid": {},
}

func (c *Config) normalize() error {
	c.Qzone.QRStrategy = strings.ToLower(strings.TrimSpace(c.Qzone.QRStrategy))
	if c.Qzone.QRStrategy == "" {
		c.Qzone.QRStrategy = defaultQRStrategy
	}

	dbPath, err := expandPath(c.Bot.Storage.Database)
	if err != nil {
		return err
	}
	c.Bot.Storage.Database = dbPath

	if c.Logging.File != "" {
		logPath, err := expandPath(c.Logging.File)
		if err != nil {
			return err
		}
		c.Logging.File = logPath
	}

	if c.Workflow.HeartbeatInterval <= 0 {
		c.Workflow.HeartbeatInterval = defaultHeartbeatInterval
	}
	if c.Workflow.SendRatePerSecond <= 0 {
		c.Workflow.SendRatePerSecond = defaultSendRate
	}
	if c.Workflow.SendMaxRetry <= 0 {
		c.Workflow.SendMaxRetry = defaultSendMaxRetry
	}
	if c.Workflow.AlbumMaxRetry <= 0 {
		c.Workflow.AlbumMaxRetry = defaultAlbumMaxRetry
	}
	if c.Workflow.EnrichWorkers <= 0 {
		c.Workflow.EnrichWorkers = defaultEnrichWorkers
	}
	if c.Workflow.LoginTimeout <= 0 {
		c.Workflow.LoginTimeout = defaultLoginTimeout
	}
	if c.Workflow.ChallengeTimeout <= 0 {
		c.Workflow.ChallengeTimeout = defaultChallengeTimeout
	}
	return nil
}

// Validate checks configuration consistency. It is called by Load after
// normalization and may be called again after programmatic mutation.
func (c *Config) Validate() error {
	if c.Qzone.Uin <= 0 {
		return fmt.Errorf("qzone.uin: required positive account id")
	}
	if _, ok := qrStrategies[c.Qzone.QRStrategy]; !ok {
		return fmt.Errorf("qzone.qr_strategy: unsupported value %q", c.Qzone.QRStrategy)
	}
	if c.Qzone.QRStrategy == "forbid" && strings.TrimSpace(c.Qzone.Password) == "" {
		return fmt.Errorf("qzone.password: required when qr_strategy is %q", c.Qzone.QRStrategy)
	}
	if c.Qzone.Dayspac <= 0 {
		return fmt.Errorf("qzone.dayspac: must be positive, got %v", c.Qzone.Dayspac)
	}
	if c.Bot.Admin <= 0 {
		return fmt.Errorf("bot.admin: required positive chat id")
	}
	if strings.TrimSpace(c.Bot.Token) == "" {
		return fmt.Errorf("bot.token: required")
	}
	if c.Bot.Storage.Keepdays <= 0 {
		return fmt.Errorf("bot.storage.keepdays: must be positive, got %v", c.Bot.Storage.Keepdays)
	}
	if proxy := strings.TrimSpace(c.Bot.Network.Proxy); proxy != "" {
		if _, err := url.Parse(proxy); err != nil {
			return fmt.Errorf("bot.network.proxy: %w", err)
		}
	}
	return nil
}
