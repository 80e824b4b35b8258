package session

import (
	"fmt"
	"strings"
)

// Method is one interactive login path.
type Method string

const (
	MethodQR Method = "qr"
	MethodUP Method = "up"
)

// Strategy selects which login methods are attempted and in what order.
type Strategy string

const (
	StrategyForceQR  Strategy = "force"
	StrategyPreferQR Strategy = "prefer"
	StrategyAllowPwd Strategy = "allow"
	StrategyForbidQR Strategy = "forbid"
)

// ParseStrategy converts a configuration value into a Strategy.
func ParseStrategy(value string) (Strategy, error) {
	s := Strategy(strings.ToLower(strings.TrimSpace(value)))
	switch s {
	case StrategyForceQR, StrategyPreferQR, StrategyAllowPwd, StrategyForbidQR:
		return s, nil
	}
	return "", fmt.Errorf("unknown login strategy %q", value)
}

// Order returns the ordered try-list of login methods for the strategy.
func (s Strategy) Order() []Method {
	switch s {
	case StrategyForceQR:
		return []Method{MethodQR}
	case StrategyPreferQR:
		return []Method{MethodQR, MethodUP}
	case StrategyAllowPwd:
		return []Method{MethodUP, MethodQR}
	case StrategyForbidQR:
		return []Method{MethodUP}
	default:
		return nil
	}
}
