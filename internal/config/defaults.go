package config

const (
	defaultDatabasePath      = "~/.local/share/qzsync/qzsync.db"
	defaultKeepdays          = 30.0
	defaultDayspac           = 3.0
	defaultQRStrategy        = "prefer"
	defaultHeartbeatInterval = 300
	defaultQRCooldown        = 600
	defaultUPCooldown        = 3600
	defaultSendRate          = 30
	defaultSendMaxRetry      = 2
	defaultAlbumMaxRetry     = 12
	defaultEnrichWorkers     = 2
	defaultLoginTimeout      = 120
	defaultChallengeTimeout  = 60
	defaultLogFormat         = "auto"
	defaultLogLevel          = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Qzone: Qzone{
			QRStrategy: defaultQRStrategy,
			Dayspac:    defaultDayspac,
		},
		Bot: Bot{
			AutoStart: true,
			Storage: BotStorage{
				Database: defaultDatabasePath,
				Keepdays: defaultKeepdays,
			},
		},
		Workflow: Workflow{
			HeartbeatInterval: defaultHeartbeatInterval,
			QRCooldown:        defaultQRCooldown,
			UPCooldown:        defaultUPCooldown,
			SendRatePerSecond: defaultSendRate,
			SendMaxRetry:      defaultSendMaxRetry,
			AlbumMaxRetry:     defaultAlbumMaxRetry,
			EnrichWorkers:     defaultEnrichWorkers,
			LoginTimeout:      defaultLoginTimeout,
			ChallengeTimeout:  defaultChallengeTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
