// Package config loads, normalizes, and validates the TOML configuration for
// the daemon. Durations expressed in days at the configuration boundary are
// converted once here; all internal APIs take time.Duration.
package config
