package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"qzsync/internal/feed"
	"qzsync/internal/qzerr"
	"qzsync/internal/store"
	"qzsync/internal/testsupport"
)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	return testsupport.MustOpenStore(t, testsupport.NewConfig(t))
}

func TestSaveFeedUpsertsLatestFields(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()

	f := testsupport.NewFeed(1, 100)
	testsupport.SaveFeed(t, st, f)

	f.Nickname = "renamed"
	f.Curkey = "http://user.qzone.qq.com/1/mood/aaaaaaaaaaaaaaaaaaaaaaaa"
	testsupport.SaveFeed(t, st, f)

	record, err := st.GetFeed(ctx, f.Identity())
	if err != nil {
		t.Fatalf("GetFeed: %v", err)
	}
	if record == nil {
		t.Fatal("feed row missing after upsert")
	}
	if record.Nickname != "renamed" || record.Curkey != f.Curkey {
		t.Fatalf("upsert kept stale fields: %+v", record)
	}

	stats, err := st.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Feeds != 1 {
		t.Fatalf("feed count = %d, want 1 after double save", stats.Feeds)
	}
}

func TestMessagesBothDirections(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()

	f := testsupport.NewFeed(1, 100)
	testsupport.SaveFeed(t, st, f)

	for _, mid := range []int64{11, 12, 13} {
		if err := st.AddMessage(ctx, f.Identity(), mid); err != nil {
			t.Fatalf("AddMessage: %v", err)
		}
	}

	mids, err := st.Messages(ctx, f.Identity())
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if len(mids) != 3 || mids[0] != 11 || mids[2] != 13 {
		t.Fatalf("mids = %v, want [11 12 13]", mids)
	}

	record, err := st.FeedByMessage(ctx, 12)
	if err != nil {
		t.Fatalf("FeedByMessage: %v", err)
	}
	if record == nil || record.Uin != 1 || record.Abstime != 100 {
		t.Fatalf("FeedByMessage(12) = %+v, want feed 1/100", record)
	}

	delivered, err := st.HasMessages(ctx, f.Identity())
	if err != nil {
		t.Fatalf("HasMessages: %v", err)
	}
	if !delivered {
		t.Fatal("HasMessages false after AddMessage")
	}
	delivered, err = st.HasMessages(ctx, feed.Identity{Uin: 9, Abstime: 9})
	if err != nil {
		t.Fatalf("HasMessages: %v", err)
	}
	if delivered {
		t.Fatal("HasMessages true for unknown feed")
	}
}

func TestFeedByCurkey(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()

	f := testsupport.NewFeed(1, 100)
	testsupport.SaveFeed(t, st, f)

	record, err := st.FeedByCurkey(ctx, f.Curkey)
	if err != nil {
		t.Fatalf("FeedByCurkey: %v", err)
	}
	if record == nil || record.Abstime != 100 {
		t.Fatalf("FeedByCurkey = %+v, want feed 1/100", record)
	}

	record, err = st.FeedByCurkey(ctx, "no-such-key")
	if err != nil {
		t.Fatalf("FeedByCurkey: %v", err)
	}
	if record != nil {
		t.Fatalf("unknown curkey resolved to %+v", record)
	}
}

func TestCleanPrunesOldFeeds(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()

	now := time.Now()
	fresh := testsupport.NewFeed(1, now.Add(-time.Hour).Unix())
	stale := testsupport.NewFeed(2, now.Add(-48*time.Hour).Unix())
	testsupport.SaveFeed(t, st, fresh)
	testsupport.SaveFeed(t, st, stale)
	if err := st.AddMessage(ctx, stale.Identity(), 7); err != nil {
		t.Fatalf("AddMessage: %v", err)
	}

	removed, err := st.Clean(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}

	if record, _ := st.GetFeed(ctx, fresh.Identity()); record == nil {
		t.Fatal("fresh feed pruned")
	}
	if record, _ := st.GetFeed(ctx, stale.Identity()); record != nil {
		t.Fatal("stale feed survived")
	}
	mids, err := st.Messages(ctx, stale.Identity())
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if len(mids) != 0 {
		t.Fatalf("stale feed messages survived: %v", mids)
	}
}

func TestCookieCompleteOrRejected(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()

	full := store.Cookie{PSkey: "sk", Pt4Token: "t4", PtGuidSig: "sig", Ptcz: "cz"}
	if err := st.SaveCookie(ctx, 1, full); err != nil {
		t.Fatalf("SaveCookie: %v", err)
	}
	loaded, err := st.LoadCookie(ctx, 1)
	if err != nil {
		t.Fatalf("LoadCookie: %v", err)
	}
	if loaded == nil || *loaded != full {
		t.Fatalf("loaded cookie = %+v, want %+v", loaded, full)
	}

	partial := store.Cookie{PSkey: "sk"}
	err = st.SaveCookie(ctx, 1, partial)
	if !errors.Is(err, qzerr.ErrStorage) {
		t.Fatalf("partial cookie save err = %v, want storage error", err)
	}
	loaded, err = st.LoadCookie(ctx, 1)
	if err != nil {
		t.Fatalf("LoadCookie: %v", err)
	}
	if loaded == nil || *loaded != full {
		t.Fatal("rejected save clobbered the stored cookie")
	}

	if err := st.DeleteCookie(ctx, 1); err != nil {
		t.Fatalf("DeleteCookie: %v", err)
	}
	loaded, err = st.LoadCookie(ctx, 1)
	if err != nil {
		t.Fatalf("LoadCookie: %v", err)
	}
	if loaded != nil {
		t.Fatalf("cookie survived delete: %+v", loaded)
	}
}

func TestBlockedRoundTrip(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()

	if err := st.SetBlocked(ctx, []int64{5, 6, 6}); err != nil {
		t.Fatalf("SetBlocked: %v", err)
	}
	blocked, err := st.Blocked(ctx)
	if err != nil {
		t.Fatalf("Blocked: %v", err)
	}
	if len(blocked) != 2 {
		t.Fatalf("blocked set = %v, want {5 6}", blocked)
	}
	if _, ok := blocked[5]; !ok {
		t.Fatal("uin 5 missing from block set")
	}

	if err := st.SetBlocked(ctx, nil); err != nil {
		t.Fatalf("SetBlocked: %v", err)
	}
	blocked, err = st.Blocked(ctx)
	if err != nil {
		t.Fatalf("Blocked: %v", err)
	}
	if len(blocked) != 0 {
		t.Fatalf("block list not cleared: %v", blocked)
	}
}
