// Package workflow wires the pipeline together and owns the fetch cycle:
// pager, enricher, send queue, heartbeat, and the interaction handler, all
// sharing one session manager and one store.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"qzsync/internal/config"
	"qzsync/internal/enrich"
	"qzsync/internal/heartbeat"
	"qzsync/internal/interaction"
	"qzsync/internal/logging"
	"qzsync/internal/notify"
	"qzsync/internal/pager"
	"qzsync/internal/qzone"
	"qzsync/internal/sendqueue"
	"qzsync/internal/session"
	"qzsync/internal/splitter"
	"qzsync/internal/store"
	"qzsync/internal/telegram"
)

// ErrAlreadyFetching rejects a fetch start while one is in flight.
var ErrAlreadyFetching = errors.New("a fetch cycle is already running")

// Manager coordinates the daemon's pipeline components.
type Manager struct {
	cfg      *config.Config
	store    *store.Store
	sessions *session.Manager
	client   *qzone.Client
	pager    *pager.Pager
	enricher *enrich.Enricher
	queue    *sendqueue.Queue
	monitor  *heartbeat.Monitor
	notifier notify.Notifier
	handler  *interaction.Handler
	logger   *slog.Logger

	mu       sync.Mutex
	fetching bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewManager builds the full pipeline. transport may be nil, in which case
// sends are impossible but login and fetch bookkeeping still work; that mode
// exists for the status and clean commands.
func NewManager(ctx context.Context, cfg *config.Config, st *store.Store,
	transport telegram.Transport, logger *slog.Logger) (*Manager, error) {
	sessions, err := session.NewManager(cfg, st, logger)
	if err != nil {
		return nil, err
	}
	client := qzone.NewClient(sessions)

	blocked, err := st.Blocked(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.SetBlocked(ctx, cfg.Qzone.Block); err != nil {
		return nil, err
	}
	for _, uin := range cfg.Qzone.Block {
		blocked[uin] = struct{}{}
	}

	notifier := notify.New(transport, cfg.Bot.Admin, logger)
	if transport == nil {
		transport = telegram.Nop()
	}

	split := splitter.New(logger, splitter.WithProber(&splitter.HeadProber{}))
	queue := sendqueue.New(transport, cfg.Bot.Admin, split, st,
		cfg.Workflow.SendRatePerSecond, cfg.Workflow.SendMaxRetry,
		interaction.LikeButton, logger)

	m := &Manager{
		cfg:      cfg,
		store:    st,
		sessions: sessions,
		client:   client,
		queue:    queue,
		notifier: notifier,
		handler:  interaction.New(client, sessions, st, logger),
		logger:   logging.NewComponentLogger(logger, "workflow"),
	}

	m.enricher = enrich.New(client, sessions, cfg.Workflow.EnrichWorkers,
		cfg.Workflow.AlbumMaxRetry, queue.EditMedia, logger)
	m.pager = pager.New(client, st, sessions, blocked, cfg.Qzone.BlockSelf,
		cfg.Qzone.Uin, logger)
	m.monitor = heartbeat.New(client, sessions, notifier,
		time.Duration(cfg.Workflow.HeartbeatInterval)*time.Second,
		m.heartbeatFetch, logger)
	return m, nil
}

// Sessions exposes the session manager so the host can install the QR
// observer and password prompter before Start.
func (m *Manager) Sessions() *session.Manager { return m.sessions }

// Interactions exposes the callback handler the transport dispatches to.
func (m *Manager) Interactions() *interaction.Handler { return m.handler }

// Start primes credentials and launches the background tasks. With
// bot.auto_start set, an initial fetch cycle runs immediately.
func (m *Manager) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	m.mu.Lock()
	m.cancel = cancel
	m.mu.Unlock()

	cached, err := m.sessions.LoadCached(runCtx)
	if err != nil {
		cancel()
		return err
	}
	if !cached {
		if err := m.sessions.Refresh(runCtx, false); err != nil {
			m.logger.Warn("initial login failed, continuing unauthenticated",
				logging.Error(err))
		}
	}

	m.enricher.Start(runCtx)
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		if err := m.monitor.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			m.logger.Warn("heartbeat stopped", logging.Error(err))
		}
	}()

	if m.cfg.Bot.AutoStart {
		if err := m.StartFetch(runCtx, false); err != nil && !errors.Is(err, ErrAlreadyFetching) {
			m.logger.Warn("auto-start fetch failed", logging.Error(err))
		}
	}
	return nil
}

// Stop cancels background tasks and waits for them.
func (m *Manager) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	m.cancel = nil
	m.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	m.wg.Wait()
}

// StartFetch runs one fetch cycle. Concurrent attempts are rejected with
// ErrAlreadyFetching rather than queued.
func (m *Manager) StartFetch(ctx context.Context, force bool) error {
	m.mu.Lock()
	if m.fetching {
		m.mu.Unlock()
		return ErrAlreadyFetching
	}
	m.fetching = true
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.fetching = false
		m.mu.Unlock()
	}()

	return m.fetchCycle(ctx, force)
}

// heartbeatFetch is the monitor's trigger: a non-interactive fetch that
// tolerates the already-fetching rejection.
func (m *Manager) heartbeatFetch(ctx context.Context, hint int) {
	if err := m.StartFetch(ctx, false); err != nil && !errors.Is(err, ErrAlreadyFetching) {
		m.logger.Warn("heartbeat fetch failed", logging.Error(err))
	}
}

func (m *Manager) fetchCycle(ctx context.Context, force bool) (err error) {
	defer func() {
		if err != nil && !errors.Is(err, context.Canceled) {
			_ = m.notifier.Notice(ctx, "Fetch hit an uncaught error, check the logs.")
		}
	}()

	batchCtx := logging.WithBatchID(ctx, uuid.NewString())
	hint := m.monitor.TakeHint()

	feeds, err := m.pager.Fetch(batchCtx, m.cfg.FetchWindow(), force, hint)
	if err != nil {
		return err
	}
	if len(feeds) == 0 {
		m.logger.Info("nothing new")
		return nil
	}

	if err := m.enricher.Enrich(batchCtx, feeds); err != nil {
		return err
	}

	summary, err := m.queue.Dispatch(batchCtx, feeds)
	if err != nil {
		return err
	}
	m.logger.Info("batch delivered",
		logging.Int("total", summary.Total),
		logging.Int("sent", summary.Sent),
		logging.Int("failed", summary.Failed))
	_ = m.notifier.Notice(ctx, fmt.Sprintf("Fetched %d feeds: %d sent, %d failed.",
		summary.Total, summary.Sent, summary.Failed))
	return nil
}

// Clean prunes feeds and messages past the retention window.
func (m *Manager) Clean(ctx context.Context) (int64, error) {
	return m.store.Clean(ctx, m.cfg.Retention())
}
