package heartbeat

import (
	"context"
	"errors"
	"testing"
	"time"

	"qzsync/internal/config"
	"qzsync/internal/logging"
	"qzsync/internal/qzerr"
	"qzsync/internal/session"
	"qzsync/internal/store"
)

type fakeCounter struct {
	count int
	err   error
}

func (f *fakeCounter) FeedsCount(context.Context) (int, error) {
	return f.count, f.err
}

type fakeNotifier struct {
	notices []string
}

func (f *fakeNotifier) Notice(_ context.Context, text string) error {
	f.notices = append(f.notices, text)
	return nil
}

type nilCreds struct{}

func (nilCreds) LoadCookie(context.Context, int64) (*store.Cookie, error) { return nil, nil }
func (nilCreds) SaveCookie(context.Context, int64, store.Cookie) error    { return nil }
func (nilCreds) DeleteCookie(context.Context, int64) error                { return nil }

func newMonitor(t *testing.T, counter Counter, notifier *fakeNotifier,
	onNew func(context.Context, int)) *Monitor {
	t.Helper()
	cfg := config.Default()
	cfg.Qzone.Uin = 10000
	sessions, err := session.NewManager(&cfg, nilCreds{}, logging.NewNop())
	if err != nil {
		t.Fatalf("session.NewManager: %v", err)
	}
	return New(counter, sessions, notifier, time.Minute, onNew, logging.NewNop())
}

func TestBeatTriggersFetchAndStoresHint(t *testing.T) {
	var got int
	m := newMonitor(t, &fakeCounter{count: 3}, &fakeNotifier{},
		func(_ context.Context, hint int) { got = hint })

	m.beat(context.Background())
	if got != 3 {
		t.Fatalf("onNew hint = %d, want 3", got)
	}
	if hint := m.TakeHint(); hint != 3 {
		t.Fatalf("TakeHint = %d, want 3", hint)
	}
	if hint := m.TakeHint(); hint != 0 {
		t.Fatalf("second TakeHint = %d, want 0 after clear", hint)
	}
	if m.LastBeat().IsZero() {
		t.Fatal("successful beat did not record its time")
	}
}

func TestZeroCountDoesNotTrigger(t *testing.T) {
	called := false
	m := newMonitor(t, &fakeCounter{count: 0}, &fakeNotifier{},
		func(context.Context, int) { called = true })

	m.beat(context.Background())
	if called {
		t.Fatal("onNew fired with zero new items")
	}
}

func TestLoginFailureDisables(t *testing.T) {
	err := qzerr.Wrap(qzerr.ErrLoginFailed, "qzone", "probe", "", nil)
	m := newMonitor(t, &fakeCounter{err: err}, &fakeNotifier{}, nil)

	m.beat(context.Background())
	if !m.Disabled() {
		t.Fatal("login failure did not disable the monitor")
	}
}

func TestTransientErrorKeepsRunning(t *testing.T) {
	m := newMonitor(t, &fakeCounter{err: errors.New("connection reset")}, &fakeNotifier{}, nil)

	m.beat(context.Background())
	if m.Disabled() {
		t.Fatal("transient probe error disabled the monitor")
	}
	m.mu.Lock()
	failures := m.failures
	m.mu.Unlock()
	if failures != 1 {
		t.Fatalf("failures = %d, want 1", failures)
	}
}

func TestPauseNoticeOncePerEpisode(t *testing.T) {
	notifier := &fakeNotifier{}
	m := newMonitor(t, &fakeCounter{}, notifier, nil)

	ctx := context.Background()
	m.pauseNotice(ctx)
	m.pauseNotice(ctx)
	if len(notifier.notices) != 1 {
		t.Fatalf("got %d notices, want 1 per pause episode", len(notifier.notices))
	}

	// A successful beat ends the episode; the next pause notifies again.
	m.beat(ctx)
	m.pauseNotice(ctx)
	if len(notifier.notices) != 2 {
		t.Fatalf("got %d notices, want a fresh notice after recovery", len(notifier.notices))
	}
}
