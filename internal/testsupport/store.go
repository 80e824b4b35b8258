package testsupport

import (
	"context"
	"testing"

	"qzsync/internal/config"
	"qzsync/internal/feed"
	"qzsync/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg.Bot.Storage.Database)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// NewFeed builds a minimal feed for store tests.
func NewFeed(uin, abstime int64) *feed.Feed {
	return &feed.Feed{
		Uin:      uin,
		Abstime:  abstime,
		Fid:      "0123456789abcdef01234567",
		AppID:    311,
		TypeID:   0,
		Nickname: "tester",
		Unikey:   "http://user.qzone.qq.com/10000/mood/0123456789abcdef01234567",
		Curkey:   "http://user.qzone.qq.com/10000/mood/0123456789abcdef01234567",
		HTML:     "<div>hello</div>",
	}
}

// SaveFeed persists a feed for tests, failing the test on error.
func SaveFeed(t testing.TB, st *store.Store, f *feed.Feed) {
	t.Helper()
	if err := st.SaveFeed(context.Background(), f); err != nil {
		t.Fatalf("store.SaveFeed: %v", err)
	}
}
