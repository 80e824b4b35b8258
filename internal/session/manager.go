package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"qzsync/internal/config"
	"qzsync/internal/logging"
	"qzsync/internal/qzerr"
	"qzsync/internal/qzone"
	"qzsync/internal/store"
)

// CredentialStore is the persistence surface the manager needs.
type CredentialStore interface {
	LoadCookie(ctx context.Context, uin int64) (*store.Cookie, error)
	SaveCookie(ctx context.Context, uin int64, cookie store.Cookie) error
	DeleteCookie(ctx context.Context, uin int64) error
}

// Manager drives the login strategy, holds the live cookie and derived gtk,
// and honors per-method suppression windows. It implements qzone.Credentials.
type Manager struct {
	uin      int64
	password string
	strategy Strategy
	creds    CredentialStore
	logger   *slog.Logger

	qrObserver QRObserver
	upPrompter UPPrompter

	qrCooldown       time.Duration
	upCooldown       time.Duration
	loginTimeout     time.Duration
	challengeTimeout time.Duration

	group singleflight.Group

	// loginFn replaces the real login flows in tests.
	loginFn func(ctx context.Context, method Method) (store.Cookie, error)

	mu                sync.RWMutex
	cookie            store.Cookie
	gtk               int32
	qrSuppressedUntil time.Time
	upSuppressedUntil time.Time
	activeQR          *qrFlow
}

// NewManager constructs a session manager from configuration.
func NewManager(cfg *config.Config, creds CredentialStore, logger *slog.Logger) (*Manager, error) {
	strategy, err := ParseStrategy(cfg.Qzone.QRStrategy)
	if err != nil {
		return nil, err
	}
	return &Manager{
		uin:          cfg.Qzone.Uin,
		password:     cfg.Qzone.Password,
		strategy:     strategy,
		creds:        creds,
		logger:       logging.NewComponentLogger(logger, "session"),
		qrCooldown:       time.Duration(cfg.Workflow.QRCooldown) * time.Second,
		upCooldown:       time.Duration(cfg.Workflow.UPCooldown) * time.Second,
		loginTimeout:     time.Duration(cfg.Workflow.LoginTimeout) * time.Second,
		challengeTimeout: time.Duration(cfg.Workflow.ChallengeTimeout) * time.Second,
	}, nil
}

// SetQRObserver installs the UI collaborator for the QR sub-flow.
func (m *Manager) SetQRObserver(observer QRObserver) {
	m.mu.Lock()
	m.qrObserver = observer
	m.mu.Unlock()
}

// SetUPPrompter installs the UI collaborator for password-flow challenges.
func (m *Manager) SetUPPrompter(prompter UPPrompter) {
	m.mu.Lock()
	m.upPrompter = prompter
	m.mu.Unlock()
}

// Uin returns the mirrored account id.
func (m *Manager) Uin() int64 { return m.uin }

// Cookie returns the live cookie set.
func (m *Manager) Cookie() store.Cookie {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cookie
}

// Gtk returns the request token derived from p_skey.
func (m *Manager) Gtk() int32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.gtk
}

// LoadCached primes the manager with a persisted cookie, if one exists.
func (m *Manager) LoadCached(ctx context.Context) (bool, error) {
	cookie, err := m.creds.LoadCookie(ctx, m.uin)
	if err != nil {
		return false, err
	}
	if cookie == nil || !cookie.Complete() {
		return false, nil
	}
	m.commit(*cookie)
	return true, nil
}

// Refresh obtains a fresh cookie by walking the strategy try-list.
// Concurrent callers share one in-flight attempt. When force is false,
// methods inside their suppression window fail fast with ErrSkipLogin;
// force overrides suppression.
func (m *Manager) Refresh(ctx context.Context, force bool) error {
	_, err, _ := m.group.Do("login", func() (any, error) {
		return nil, m.refresh(ctx, force)
	})
	return err
}

func (m *Manager) refresh(ctx context.Context, force bool) error {
	order := m.strategy.Order()
	attempted := false

	for _, method := range order {
		if !force && m.suppressed(method) {
			m.logger.Debug("login method suppressed", logging.String("method", string(method)))
			continue
		}
		attempted = true

		attemptCtx, cancel := context.WithTimeout(ctx, m.loginTimeout)
		cookie, err := m.attempt(attemptCtx, method)
		cancel()

		if err == nil {
			if err := m.creds.SaveCookie(ctx, m.uin, cookie); err != nil {
				return err
			}
			m.commit(cookie)
			m.resetSuppression()
			m.logger.Info("login succeeded", logging.String("method", string(method)))
			return nil
		}
		if errors.Is(err, qzerr.ErrUserBreak) {
			m.logger.Info("login cancelled by user", logging.String("method", string(method)))
			return err
		}
		m.suppress(method)
		m.logger.Warn("login attempt failed",
			logging.String("method", string(method)), logging.Error(err))
	}

	if !attempted {
		return qzerr.Wrap(qzerr.ErrSkipLogin, "session", "refresh",
			"all login methods inside suppression window", nil)
	}
	return qzerr.Wrap(qzerr.ErrLoginFailed, "session", "refresh",
		"login strategy exhausted", nil)
}

func (m *Manager) attempt(ctx context.Context, method Method) (store.Cookie, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, method)
	}
	switch method {
	case MethodQR:
		flow := newQRFlow(m.uin, m.observer(), m.logger)
		m.mu.Lock()
		m.activeQR = flow
		m.mu.Unlock()
		cookie, err := flow.Run(ctx)
		m.mu.Lock()
		m.activeQR = nil
		m.mu.Unlock()
		return cookie, err
	case MethodUP:
		return newUPFlow(m.uin, m.password, m.prompter(), m.challengeTimeout, m.logger).Run(ctx)
	default:
		return store.Cookie{}, qzerr.Wrap(qzerr.ErrPermanent, "session", "attempt",
			"unknown login method "+string(method), nil)
	}
}

// RenewQR asks the active QR sub-flow for a fresh image.
func (m *Manager) RenewQR() bool {
	m.mu.RLock()
	flow := m.activeQR
	m.mu.RUnlock()
	if flow == nil {
		return false
	}
	return flow.Renew()
}

// CancelQR cancels the active QR sub-flow.
func (m *Manager) CancelQR() bool {
	m.mu.RLock()
	flow := m.activeQR
	m.mu.RUnlock()
	if flow == nil {
		return false
	}
	return flow.Cancel()
}

// Logout drops the live and persisted cookie.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	m.cookie = store.Cookie{}
	m.gtk = 0
	m.mu.Unlock()
	return m.creds.DeleteCookie(ctx, m.uin)
}

// Suppressed reports whether every login method is inside its cooldown.
func (m *Manager) Suppressed() bool {
	for _, method := range m.strategy.Order() {
		if !m.suppressed(method) {
			return false
		}
	}
	return true
}

// Guard runs op, recovering once from an expired session and retrying
// bounded times on the busy code. This is the expiry handler remote calls
// route through.
func (m *Manager) Guard(ctx context.Context, op func(context.Context) error) error {
	const busyRetries = 3
	busyWait := 5 * time.Second

	var err error
	for attempt := 0; attempt <= busyRetries; attempt++ {
		err = op(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, qzerr.ErrAuthExpired) {
			if delErr := m.creds.DeleteCookie(ctx, m.uin); delErr != nil {
				return delErr
			}
			if loginErr := m.Refresh(ctx, true); loginErr != nil {
				return loginErr
			}
			// One retry with the fresh cookie.
			return op(ctx)
		}
		if !errors.Is(err, qzerr.ErrBusy) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(busyWait):
		}
		busyWait *= 2
	}
	return err
}

func (m *Manager) commit(cookie store.Cookie) {
	m.mu.Lock()
	m.cookie = cookie
	m.gtk = qzone.Gtk(cookie.PSkey)
	m.mu.Unlock()
}

func (m *Manager) observer() QRObserver {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.qrObserver
}

func (m *Manager) prompter() UPPrompter {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.upPrompter
}

func (m *Manager) suppressed(method Method) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	now := time.Now()
	switch method {
	case MethodQR:
		return now.Before(m.qrSuppressedUntil)
	case MethodUP:
		return now.Before(m.upSuppressedUntil)
	}
	return false
}

func (m *Manager) suppress(method Method) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch method {
	case MethodQR:
		m.qrSuppressedUntil = time.Now().Add(m.qrCooldown)
	case MethodUP:
		m.upSuppressedUntil = time.Now().Add(m.upCooldown)
	}
}

func (m *Manager) resetSuppression() {
	m.mu.Lock()
	m.qrSuppressedUntil = time.Time{}
	m.upSuppressedUntil = time.Time{}
	m.mu.Unlock()
}
