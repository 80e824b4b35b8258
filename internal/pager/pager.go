// Package pager walks the reverse-chronological listing endpoint page by
// page, filters out noise, and stops at the retention window or the first
// already-delivered feed.
package pager

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"qzsync/internal/feed"
	"qzsync/internal/logging"
	"qzsync/internal/qzerr"
	"qzsync/internal/qzone"
	"qzsync/internal/session"
)

// maxPages bounds the walk when no heartbeat hint is available; the window
// and dedupe checks terminate long before this in practice.
const maxPages = 1000

// Lister is the listing surface, satisfied by the qzone client.
type Lister interface {
	FeedsMore(ctx context.Context, pagenum int, externparam string) (*qzone.FeedPage, error)
}

// DeliveryStore answers whether a feed already has delivered messages.
type DeliveryStore interface {
	HasMessages(ctx context.Context, id feed.Identity) (bool, error)
}

// Pager collects new feeds from the listing walk.
type Pager struct {
	lister    Lister
	store     DeliveryStore
	sessions  *session.Manager
	blocked   map[int64]struct{}
	blockSelf bool
	selfUin   int64
	logger    *slog.Logger
	now       func() time.Time
}

// New constructs a Pager. blocked is the merged block set from configuration
// and the block table.
func New(lister Lister, store DeliveryStore, sessions *session.Manager,
	blocked map[int64]struct{}, blockSelf bool, selfUin int64, logger *slog.Logger) *Pager {
	return &Pager{
		lister:    lister,
		store:     store,
		sessions:  sessions,
		blocked:   blocked,
		blockSelf: blockSelf,
		selfUin:   selfUin,
		logger:    logging.NewComponentLogger(logger, "pager"),
		now:       time.Now,
	}
}

// Fetch walks pages until the window boundary, a dedupe hit, the hint-derived
// page cap, or an exhausted listing. hint caps the walk when positive; force
// re-accepts feeds that already have delivered messages.
func (p *Pager) Fetch(ctx context.Context, window time.Duration, force bool, hint int) ([]*feed.Feed, error) {
	cutoff := p.now().Add(-window).Unix()
	pageCap := maxPages
	if hint > 0 {
		pageCap = (hint + qzone.PageSize - 1) / qzone.PageSize
	}

	var accepted []*feed.Feed
	externparam := ""

	for pagenum := 1; pagenum <= pageCap; pagenum++ {
		var page *qzone.FeedPage
		err := p.sessions.Guard(ctx, func(ctx context.Context) error {
			var err error
			page, err = p.lister.FeedsMore(ctx, pagenum, externparam)
			return err
		})
		if err != nil {
			if errors.Is(err, qzerr.ErrPermanent) {
				p.logger.Warn("malformed listing page, stopping walk",
					logging.Int("page", pagenum), logging.Error(err))
				return accepted, nil
			}
			return accepted, err
		}
		if len(page.Entries) == 0 {
			break
		}
		externparam = page.Externparam

		done, err := p.siftPage(ctx, page.Entries, cutoff, force, &accepted)
		if err != nil {
			return accepted, err
		}
		if done {
			break
		}
	}

	p.logger.Info("listing walk finished", logging.Int("accepted", len(accepted)))
	return accepted, nil
}

// siftPage filters one page of raw entries into accepted. It reports done
// when pagination should stop: the window boundary was crossed or an
// already-delivered feed was seen.
func (p *Pager) siftPage(ctx context.Context, entries []feed.Raw, cutoff int64,
	force bool, accepted *[]*feed.Feed) (bool, error) {
	for i := range entries {
		raw := &entries[i]
		if raw.IsEmpty() || raw.IsAd() {
			continue
		}

		f, err := feed.Parse(raw)
		if err != nil {
			p.logger.Warn("unparseable entry skipped", logging.Error(err))
			continue
		}
		if f.AppID >= feed.MaxAppID {
			continue
		}
		if p.isBlocked(f.Uin) {
			continue
		}

		// Listing is reverse-chronological: anything at or past the window
		// boundary means every later entry is older still.
		if f.Abstime < cutoff {
			return true, nil
		}

		if !force {
			delivered, err := p.store.HasMessages(ctx, f.Identity())
			if err != nil {
				return false, err
			}
			if delivered {
				// Older entries can only be older and already delivered.
				return true, nil
			}
		}

		*accepted = append(*accepted, f)
	}
	return false, nil
}

func (p *Pager) isBlocked(uin int64) bool {
	if p.blockSelf && uin == p.selfUin {
		return true
	}
	_, ok := p.blocked[uin]
	return ok
}
