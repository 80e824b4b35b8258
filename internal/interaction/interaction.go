// Package interaction handles the inline callbacks the platform transport
// dispatches: like/unlike toggles, comment commands, and QR flow controls.
// Admin allow-listing happens at the transport layer before dispatch.
package interaction

import (
	"context"
	"log/slog"

	"qzsync/internal/feed"
	"qzsync/internal/likeid"
	"qzsync/internal/logging"
	"qzsync/internal/qzerr"
	"qzsync/internal/qzone"
	"qzsync/internal/session"
	"qzsync/internal/store"
	"qzsync/internal/telegram"
)

// Remote is the interaction surface of the qzone client.
type Remote interface {
	DoLike(ctx context.Context, args qzone.LikeArgs) error
	DoUnlike(ctx context.Context, args qzone.LikeArgs) error
	AddComment(ctx context.Context, owner int64, fid, content string) error
	ShuoshuoDetail(ctx context.Context, owner int64, fid string) (string, error)
}

// Lookup is the feed-store surface for resolving callbacks to feeds.
type Lookup interface {
	FeedByCurkey(ctx context.Context, curkey string) (*store.FeedRecord, error)
	FeedByMessage(ctx context.Context, mid int64) (*store.FeedRecord, error)
}

// Handler dispatches platform callbacks onto the remote service.
type Handler struct {
	remote   Remote
	sessions *session.Manager
	lookup   Lookup
	logger   *slog.Logger
}

func New(remote Remote, sessions *session.Manager, lookup Lookup, logger *slog.Logger) *Handler {
	return &Handler{
		remote:   remote,
		sessions: sessions,
		lookup:   lookup,
		logger:   logging.NewComponentLogger(logger, "interaction"),
	}
}

// LikeButton builds the initial inline button for a freshly sent feed.
func LikeButton(f *feed.Feed) []telegram.Button {
	payload, err := likeid.Encode(likeid.LikeID{
		AppID:  f.AppID,
		TypeID: f.TypeID,
		Key:    f.Fid,
		Unikey: f.Unikey,
		Curkey: f.Curkey,
	})
	if err != nil {
		// Identifiers too large for the callback budget: fall back to the
		// curkey lookup form when it fits, else no button.
		if len(f.Curkey) == 0 || len(f.Curkey) > 64 {
			return nil
		}
		payload = f.Curkey
	}
	return []telegram.Button{{Text: "Like", Data: payload}}
}

// Like toggles the like state of the feed the payload identifies. liked is
// the current button state; the returned button carries the flipped label
// and the unchanged payload. An expired session is refreshed and the call
// retried once via the session guard.
func (h *Handler) Like(ctx context.Context, payload string, liked bool) (telegram.Button, error) {
	args, err := h.resolve(ctx, payload)
	if err != nil {
		return telegram.Button{}, err
	}

	op := h.remote.DoLike
	label := "Unlike"
	if liked {
		op = h.remote.DoUnlike
		label = "Like"
	}
	err = h.sessions.Guard(ctx, func(ctx context.Context) error {
		return op(ctx, args)
	})
	if err != nil {
		return telegram.Button{}, err
	}
	return telegram.Button{Text: label, Data: payload}, nil
}

// resolve turns a callback payload into like arguments: the packed form
// decodes directly, anything else is treated as a curkey and looked up.
func (h *Handler) resolve(ctx context.Context, payload string) (qzone.LikeArgs, error) {
	if id, err := likeid.Decode(payload); err == nil {
		return qzone.LikeArgs{
			AppID:  id.AppID,
			TypeID: id.TypeID,
			Fid:    id.Key,
			Unikey: id.Unikey,
			Curkey: id.Curkey,
		}, nil
	}
	rec, err := h.lookup.FeedByCurkey(ctx, payload)
	if err != nil {
		return qzone.LikeArgs{}, err
	}
	if rec == nil {
		return qzone.LikeArgs{}, qzerr.Wrap(qzerr.ErrPermanent, "interaction", "resolve",
			"callback payload matches no stored feed", nil)
	}
	return qzone.LikeArgs{
		AppID:  rec.AppID,
		TypeID: rec.TypeID,
		Fid:    rec.Fid,
		Unikey: rec.Unikey,
		Curkey: rec.Curkey,
	}, nil
}

// Comment handles the reply commands: "add" posts a comment on the feed the
// message belongs to, "detail" fetches the full post text.
func (h *Handler) Comment(ctx context.Context, mid int64, command, args string) (string, error) {
	rec, err := h.lookup.FeedByMessage(ctx, mid)
	if err != nil {
		return "", err
	}
	if rec == nil {
		return "", qzerr.Wrap(qzerr.ErrPermanent, "interaction", "comment",
			"message belongs to no stored feed", nil)
	}

	switch command {
	case "add":
		err := h.sessions.Guard(ctx, func(ctx context.Context) error {
			return h.remote.AddComment(ctx, rec.Uin, rec.Fid, args)
		})
		if err != nil {
			return "", err
		}
		return "comment posted", nil
	default:
		var detail string
		err := h.sessions.Guard(ctx, func(ctx context.Context) error {
			var err error
			detail, err = h.remote.ShuoshuoDetail(ctx, rec.Uin, rec.Fid)
			return err
		})
		return detail, err
	}
}

// QRRefresh forwards the refresh request to the active QR sub-flow.
func (h *Handler) QRRefresh() bool { return h.sessions.RenewQR() }

// QRCancel forwards the cancel request to the active QR sub-flow.
func (h *Handler) QRCancel() bool { return h.sessions.CancelQR() }
