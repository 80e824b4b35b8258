package pager_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"qzsync/internal/feed"
	"qzsync/internal/logging"
	"qzsync/internal/pager"
	"qzsync/internal/qzone"
	"qzsync/internal/session"
	"qzsync/internal/store"
	"qzsync/internal/testsupport"
)

type fakeLister struct {
	pages   []*qzone.FeedPage
	cursors []string
}

func (f *fakeLister) FeedsMore(_ context.Context, pagenum int, externparam string) (*qzone.FeedPage, error) {
	f.cursors = append(f.cursors, externparam)
	if pagenum > len(f.pages) {
		return &qzone.FeedPage{}, nil
	}
	return f.pages[pagenum-1], nil
}

type fakeDelivery map[feed.Identity]bool

func (f fakeDelivery) HasMessages(_ context.Context, id feed.Identity) (bool, error) {
	return f[id], nil
}

type nilCreds struct{}

func (nilCreds) LoadCookie(context.Context, int64) (*store.Cookie, error) { return nil, nil }
func (nilCreds) SaveCookie(context.Context, int64, store.Cookie) error    { return nil }
func (nilCreds) DeleteCookie(context.Context, int64) error                { return nil }

func newSessions(t *testing.T) *session.Manager {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	m, err := session.NewManager(cfg, nilCreds{}, logging.NewNop())
	if err != nil {
		t.Fatalf("session.NewManager: %v", err)
	}
	return m
}

func raw(uin, abstime int64) feed.Raw {
	return feed.Raw{
		Uin:     json.Number(fmt.Sprint(uin)),
		Abstime: json.Number(fmt.Sprint(abstime)),
		Key:     fmt.Sprintf("key-%d-%d", uin, abstime),
		AppID:   json.Number("311"),
		TypeID:  json.Number("0"),
		HTML:    "<div>body</div>",
	}
}

func newPager(t *testing.T, lister pager.Lister, delivery pager.DeliveryStore,
	blocked map[int64]struct{}) *pager.Pager {
	t.Helper()
	if blocked == nil {
		blocked = map[int64]struct{}{}
	}
	return pager.New(lister, delivery, newSessions(t), blocked, false, 10000, logging.NewNop())
}

func TestWindowBoundaryStopsWalk(t *testing.T) {
	now := time.Now().Unix()
	lister := &fakeLister{pages: []*qzone.FeedPage{
		{Entries: []feed.Raw{
			raw(1, now-10),
			raw(2, now-3*86400),
		}, Externparam: "p2"},
		{Entries: []feed.Raw{raw(3, now-20)}},
	}}

	p := newPager(t, lister, fakeDelivery{}, nil)
	feeds, err := p.Fetch(context.Background(), 24*time.Hour, false, 0)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(feeds) != 1 || feeds[0].Uin != 1 {
		t.Fatalf("accepted %d feeds, want only the in-window one", len(feeds))
	}
	if len(lister.cursors) != 1 {
		t.Fatalf("walk continued past the window boundary: %d pages", len(lister.cursors))
	}
}

func TestDedupeStopsWalk(t *testing.T) {
	now := time.Now().Unix()
	delivered := raw(2, now-60)
	lister := &fakeLister{pages: []*qzone.FeedPage{
		{Entries: []feed.Raw{raw(1, now-30), delivered, raw(3, now-90)}},
	}}

	delivery := fakeDelivery{{Uin: 2, Abstime: now - 60}: true}
	p := newPager(t, lister, delivery, nil)
	feeds, err := p.Fetch(context.Background(), 24*time.Hour, false, 0)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(feeds) != 1 || feeds[0].Uin != 1 {
		t.Fatalf("got %d feeds, want walk to stop at the delivered feed", len(feeds))
	}
}

func TestForceReacceptsDelivered(t *testing.T) {
	now := time.Now().Unix()
	lister := &fakeLister{pages: []*qzone.FeedPage{
		{Entries: []feed.Raw{raw(2, now-60)}},
	}}
	delivery := fakeDelivery{{Uin: 2, Abstime: now - 60}: true}

	p := newPager(t, lister, delivery, nil)
	feeds, err := p.Fetch(context.Background(), 24*time.Hour, true, 10)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(feeds) != 1 {
		t.Fatalf("force reload accepted %d feeds, want 1", len(feeds))
	}
}

func TestFiltersNoise(t *testing.T) {
	now := time.Now().Unix()
	empty := feed.Raw{Uin: json.Number("5"), Abstime: json.Number(fmt.Sprint(now - 5))}
	ad := raw(6, now-6)
	ad.Key = "advertisement_app_123"
	miniProgram := raw(7, now-7)
	miniProgram.AppID = json.Number("4096")
	blockedEntry := raw(8, now-8)

	lister := &fakeLister{pages: []*qzone.FeedPage{
		{Entries: []feed.Raw{empty, ad, miniProgram, blockedEntry, raw(9, now-9)}},
	}}
	p := newPager(t, lister, fakeDelivery{}, map[int64]struct{}{8: {}})

	feeds, err := p.Fetch(context.Background(), 24*time.Hour, false, 10)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(feeds) != 1 || feeds[0].Uin != 9 {
		t.Fatalf("filters leaked: accepted %d feeds", len(feeds))
	}
}

func TestCursorPropagation(t *testing.T) {
	now := time.Now().Unix()
	lister := &fakeLister{pages: []*qzone.FeedPage{
		{Entries: []feed.Raw{raw(1, now-10)}, Externparam: "cursor-1"},
		{Entries: []feed.Raw{raw(2, now-20)}, Externparam: "cursor-2"},
	}}

	p := newPager(t, lister, fakeDelivery{}, nil)
	if _, err := p.Fetch(context.Background(), 24*time.Hour, false, 25); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(lister.cursors) < 2 {
		t.Fatalf("walk stopped after %d pages, want at least 2", len(lister.cursors))
	}
	if lister.cursors[0] != "" || lister.cursors[1] != "cursor-1" {
		t.Fatalf("cursor chain broken: %v", lister.cursors)
	}
}
