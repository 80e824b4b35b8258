// Package heartbeat runs the periodic new-item probe that decides whether a
// full fetch cycle is worthwhile.
package heartbeat

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"qzsync/internal/logging"
	"qzsync/internal/notify"
	"qzsync/internal/qzerr"
	"qzsync/internal/qzone"
	"qzsync/internal/session"
)

// Counter is the probe surface, satisfied by the qzone client.
type Counter interface {
	FeedsCount(ctx context.Context) (int, error)
}

// Monitor probes on a fixed interval and triggers a fetch when new items
// appear. Login failure disables it; suppression of every login path pauses
// it with a single operator notice.
type Monitor struct {
	counter  Counter
	sessions *session.Manager
	notifier notify.Notifier
	interval time.Duration
	logger   *slog.Logger

	// onNew receives the new-item hint and starts a non-interactive fetch.
	onNew func(ctx context.Context, hint int)

	mu       sync.Mutex
	hint     int
	lastBeat time.Time
	failures int
	disabled bool
	noticed  bool
}

// New constructs a Monitor. onNew runs inline on the probe goroutine.
func New(counter Counter, sessions *session.Manager, notifier notify.Notifier,
	interval time.Duration, onNew func(ctx context.Context, hint int), logger *slog.Logger) *Monitor {
	return &Monitor{
		counter:  counter,
		sessions: sessions,
		notifier: notifier,
		interval: interval,
		onNew:    onNew,
		logger:   logging.NewComponentLogger(logger, "heartbeat"),
	}
}

// Run loops until ctx is cancelled or the monitor disables itself.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if m.Disabled() {
				return nil
			}
			m.beat(ctx)
		}
	}
}

func (m *Monitor) beat(ctx context.Context) {
	if m.sessions.Suppressed() {
		m.pauseNotice(ctx)
		return
	}

	count, err := m.counter.FeedsCount(ctx)
	if err != nil {
		m.onError(ctx, err)
		return
	}

	m.mu.Lock()
	m.hint = count
	m.lastBeat = time.Now()
	m.failures = 0
	m.noticed = false
	m.mu.Unlock()

	if count > 0 && m.onNew != nil {
		m.logger.Info("new items detected", logging.Int("count", count))
		m.onNew(ctx, count)
	}
}

func (m *Monitor) onError(ctx context.Context, err error) {
	switch {
	case errors.Is(err, qzerr.ErrAuthExpired):
		refreshErr := m.sessions.Refresh(ctx, false)
		switch {
		case refreshErr == nil:
		case errors.Is(refreshErr, qzerr.ErrSkipLogin):
			m.pauseNotice(ctx)
		default:
			m.logger.Warn("probe login failed, disabling heartbeat", logging.Error(refreshErr))
			m.Disable()
		}
	case errors.Is(err, qzerr.ErrLoginFailed):
		m.logger.Warn("probe rejected, disabling heartbeat", logging.Error(err))
		m.Disable()
	default:
		m.mu.Lock()
		m.failures++
		n := m.failures
		m.mu.Unlock()
		m.logger.Debug("probe failed", logging.Int("consecutive", n), logging.Error(err))
	}
}

// pauseNotice emits the suppressed-paths notice once per pause episode.
func (m *Monitor) pauseNotice(ctx context.Context) {
	m.mu.Lock()
	already := m.noticed
	m.noticed = true
	m.mu.Unlock()
	if already {
		return
	}
	m.logger.Warn("all login paths suppressed, heartbeat paused")
	_ = m.notifier.Notice(ctx, "Heartbeat paused: every login method is cooling down. "+
		"It resumes automatically when a cooldown expires.")
}

// TakeHint returns the latest new-count hint and clears it. The pager uses
// the hint to cap its page walk.
func (m *Monitor) TakeHint() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	hint := m.hint
	m.hint = 0
	return hint
}

// LastBeat returns the time of the last successful probe.
func (m *Monitor) LastBeat() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastBeat
}

// Disable permanently stops probing; Run returns at the next tick.
func (m *Monitor) Disable() {
	m.mu.Lock()
	m.disabled = true
	m.mu.Unlock()
}

// Disabled reports whether the monitor has shut itself down.
func (m *Monitor) Disabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.disabled
}

var _ Counter = (*qzone.Client)(nil)
