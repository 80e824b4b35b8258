package interaction_test

import (
	"context"
	"testing"

	"qzsync/internal/config"
	"qzsync/internal/feed"
	"qzsync/internal/interaction"
	"qzsync/internal/logging"
	"qzsync/internal/qzone"
	"qzsync/internal/session"
	"qzsync/internal/store"
)

type fakeRemote struct {
	likes    []qzone.LikeArgs
	unlikes  []qzone.LikeArgs
	comments []string
	detail   string
}

func (f *fakeRemote) DoLike(_ context.Context, args qzone.LikeArgs) error {
	f.likes = append(f.likes, args)
	return nil
}

func (f *fakeRemote) DoUnlike(_ context.Context, args qzone.LikeArgs) error {
	f.unlikes = append(f.unlikes, args)
	return nil
}

func (f *fakeRemote) AddComment(_ context.Context, _ int64, _ string, content string) error {
	f.comments = append(f.comments, content)
	return nil
}

func (f *fakeRemote) ShuoshuoDetail(context.Context, int64, string) (string, error) {
	return f.detail, nil
}

type fakeLookup struct {
	byCurkey  map[string]*store.FeedRecord
	byMessage map[int64]*store.FeedRecord
}

func (f *fakeLookup) FeedByCurkey(_ context.Context, curkey string) (*store.FeedRecord, error) {
	return f.byCurkey[curkey], nil
}

func (f *fakeLookup) FeedByMessage(_ context.Context, mid int64) (*store.FeedRecord, error) {
	return f.byMessage[mid], nil
}

type nilCreds struct{}

func (nilCreds) LoadCookie(context.Context, int64) (*store.Cookie, error) { return nil, nil }
func (nilCreds) SaveCookie(context.Context, int64, store.Cookie) error    { return nil }
func (nilCreds) DeleteCookie(context.Context, int64) error                { return nil }

func newHandler(t *testing.T, remote *fakeRemote, lookup *fakeLookup) *interaction.Handler {
	t.Helper()
	cfg := config.Default()
	cfg.Qzone.Uin = 10000
	sessions, err := session.NewManager(&cfg, nilCreds{}, logging.NewNop())
	if err != nil {
		t.Fatalf("session.NewManager: %v", err)
	}
	return interaction.New(remote, sessions, lookup, logging.NewNop())
}

func moodFeed() *feed.Feed {
	return &feed.Feed{
		Uin:      10000,
		Abstime:  100,
		Fid:      "0123456789abcdef01234567",
		AppID:    311,
		TypeID:   0,
		Unikey:   "http://user.qzone.qq.com/10000/mood/0123456789abcdef01234567",
		Curkey:   "http://user.qzone.qq.com/10000/mood/0123456789abcdef01234567",
		Nickname: "tester",
	}
}

func TestLikeTogglesBothWays(t *testing.T) {
	remote := &fakeRemote{}
	h := newHandler(t, remote, &fakeLookup{})

	f := moodFeed()
	buttons := interaction.LikeButton(f)
	if len(buttons) != 1 || buttons[0].Text != "Like" {
		t.Fatalf("initial button = %+v", buttons)
	}
	payload := buttons[0].Data

	button, err := h.Like(context.Background(), payload, false)
	if err != nil {
		t.Fatalf("Like: %v", err)
	}
	if button.Text != "Unlike" || button.Data != payload {
		t.Fatalf("after like: %+v, want flipped label, same payload", button)
	}
	if len(remote.likes) != 1 || remote.likes[0].Fid != f.Fid {
		t.Fatalf("likes = %+v", remote.likes)
	}

	button, err = h.Like(context.Background(), payload, true)
	if err != nil {
		t.Fatalf("unlike: %v", err)
	}
	if button.Text != "Like" || button.Data != payload {
		t.Fatalf("after unlike: %+v", button)
	}
	if len(remote.unlikes) != 1 {
		t.Fatalf("unlikes = %+v", remote.unlikes)
	}
}

func TestLikeResolvesCurkeyFallback(t *testing.T) {
	remote := &fakeRemote{}
	rec := &store.FeedRecord{
		Uin: 1, Abstime: 100, Fid: "fid-1", AppID: 202, TypeID: 2,
		Unikey: "share/9", Curkey: "share-key",
	}
	lookup := &fakeLookup{byCurkey: map[string]*store.FeedRecord{"share-key": rec}}
	h := newHandler(t, remote, lookup)

	button, err := h.Like(context.Background(), "share-key", false)
	if err != nil {
		t.Fatalf("Like: %v", err)
	}
	if button.Text != "Unlike" {
		t.Fatalf("button = %+v", button)
	}
	if len(remote.likes) != 1 || remote.likes[0].Unikey != "share/9" {
		t.Fatalf("likes = %+v, want resolved record args", remote.likes)
	}
}

func TestLikeUnknownPayload(t *testing.T) {
	h := newHandler(t, &fakeRemote{}, &fakeLookup{})
	if _, err := h.Like(context.Background(), "no-such-key", false); err == nil {
		t.Fatal("unknown payload accepted")
	}
}

func TestLikeButtonFallsBackToCurkey(t *testing.T) {
	f := moodFeed()
	f.Unikey = "share/" + string(make([]byte, 300))
	f.Curkey = "short-key"
	buttons := interaction.LikeButton(f)
	if len(buttons) != 1 || buttons[0].Data != "short-key" {
		t.Fatalf("buttons = %+v, want curkey payload", buttons)
	}

	f.Curkey = string(make([]byte, 100))
	if buttons = interaction.LikeButton(f); buttons != nil {
		t.Fatalf("oversized identifiers produced a button: %+v", buttons)
	}
}

func TestCommentCommands(t *testing.T) {
	remote := &fakeRemote{detail: "full post text"}
	rec := &store.FeedRecord{Uin: 1, Abstime: 100, Fid: "fid-1"}
	lookup := &fakeLookup{byMessage: map[int64]*store.FeedRecord{7: rec}}
	h := newHandler(t, remote, lookup)

	reply, err := h.Comment(context.Background(), 7, "add", "nice one")
	if err != nil {
		t.Fatalf("Comment add: %v", err)
	}
	if reply != "comment posted" || len(remote.comments) != 1 || remote.comments[0] != "nice one" {
		t.Fatalf("add reply = %q, comments = %v", reply, remote.comments)
	}

	reply, err = h.Comment(context.Background(), 7, "detail", "")
	if err != nil {
		t.Fatalf("Comment detail: %v", err)
	}
	if reply != "full post text" {
		t.Fatalf("detail reply = %q", reply)
	}

	if _, err := h.Comment(context.Background(), 99, "add", "x"); err == nil {
		t.Fatal("comment on unknown message accepted")
	}
}
