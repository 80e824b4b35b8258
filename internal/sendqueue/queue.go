// Package sendqueue delivers the atoms of a batch to the messaging platform
// in chronological feed order, under a global rate cap, with per-atom retry,
// the raw-bytes fallback for URL fetch rejections, and post-send media edits.
package sendqueue

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"qzsync/internal/feed"
	"qzsync/internal/logging"
	"qzsync/internal/splitter"
	"qzsync/internal/telegram"
)

// FeedStore is the bookkeeping surface: every dispatched feed is recorded,
// delivered or not, so later runs skip it.
type FeedStore interface {
	SaveFeed(ctx context.Context, f *feed.Feed) error
	AddMessage(ctx context.Context, id feed.Identity, mid int64) error
}

// ButtonProvider supplies the inline buttons attached to the final atom of a
// feed's own sequence, typically the like toggle.
type ButtonProvider func(f *feed.Feed) []telegram.Button

// Queue is the batch dispatcher.
type Queue struct {
	transport telegram.Transport
	chat      int64
	split     *splitter.Splitter
	store     FeedStore
	limiter   *rate.Limiter
	maxRetry  int
	buttons   ButtonProvider
	fetcher   *http.Client
	logger    *slog.Logger

	mu        sync.Mutex
	states    map[feed.Identity]State
	mediaMids map[feed.Identity][]int64
	pending   map[feed.Identity][]feed.VisualMedia
}

// New constructs a Queue. ratePerSecond is the global message cap; a media
// group of N consumes N slots.
func New(transport telegram.Transport, chat int64, split *splitter.Splitter,
	store FeedStore, ratePerSecond, maxRetry int, buttons ButtonProvider,
	logger *slog.Logger) *Queue {
	return &Queue{
		transport: transport,
		chat:      chat,
		split:     split,
		store:     store,
		limiter:   rate.NewLimiter(rate.Limit(ratePerSecond), ratePerSecond),
		maxRetry:  maxRetry,
		buttons:   buttons,
		fetcher:   &http.Client{Timeout: 2 * time.Minute},
		logger:    logging.NewComponentLogger(logger, "sendqueue"),
		states:    make(map[feed.Identity]State),
		mediaMids: make(map[feed.Identity][]int64),
		pending:   make(map[feed.Identity][]feed.VisualMedia),
	}
}

// Dispatch delivers one batch. Feeds go out oldest first; ties on abstime
// keep their insertion order. Every feed reaches a terminal state before
// Dispatch returns, and bookkeeping is finalized even under partial failure.
func (q *Queue) Dispatch(ctx context.Context, feeds []*feed.Feed) (Summary, error) {
	ordered := make([]*feed.Feed, len(feeds))
	copy(ordered, feeds)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Abstime != ordered[j].Abstime {
			return ordered[i].Abstime < ordered[j].Abstime
		}
		return ordered[i].Uin < ordered[j].Uin
	})

	q.mu.Lock()
	for _, f := range ordered {
		q.states[f.Identity()] = StateQueued
	}
	q.mu.Unlock()

	summary := Summary{Total: len(ordered)}
	for _, f := range ordered {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if q.sendFeed(ctx, f) {
			summary.Sent++
		} else {
			summary.Failed++
		}
	}

	q.archive(ordered)
	return summary, nil
}

// sendFeed delivers one feed's atom sequence and records the outcome. It
// reports delivery success; a feed counts as delivered when at least one
// atom landed.
func (q *Queue) sendFeed(ctx context.Context, f *feed.Feed) bool {
	id := f.Identity()
	q.setState(id, StateSending)

	pair, err := q.split.Split(ctx, f)
	if err != nil {
		q.logger.Warn("split failed", logging.String("feed", id.String()), logging.Error(err))
		q.finalize(ctx, f, nil, nil)
		return false
	}
	atoms := pair.All()

	var mids, mediaMids []int64
	var replyTo int64
	var errs []error
	for i, atom := range atoms {
		if err := q.limiter.WaitN(ctx, atom.MediaCount()); err != nil {
			errs = append(errs, err)
			break
		}
		opts := telegram.SendOptions{ReplyTo: replyTo}
		if i == len(atoms)-1 && q.buttons != nil {
			opts.Buttons = q.buttons(f)
		}
		ids, err := q.sendAtom(ctx, atom, opts)
		if err != nil {
			errs = append(errs, err)
			q.logger.Warn("atom send failed",
				logging.String("feed", id.String()),
				logging.Int("atom", i), logging.Error(err))
			continue
		}
		mids = append(mids, ids...)
		if atom.HasMedia() {
			mediaMids = append(mediaMids, ids...)
		}
		replyTo = ids[len(ids)-1]
	}

	q.finalize(ctx, f, mids, mediaMids)

	if len(mids) == 0 {
		q.setState(id, StateFailed)
		if len(errs) > 0 {
			q.logger.Error("feed delivery failed",
				logging.String("feed", id.String()),
				logging.Error(errors.Join(errs...)))
		}
		return false
	}
	q.setState(id, StateSent)
	q.replayEdits(ctx, id)
	return true
}

// finalize records the feed and its message ids. A failed feed is recorded
// without mids so later runs do not retry it forever.
func (q *Queue) finalize(ctx context.Context, f *feed.Feed, mids, mediaMids []int64) {
	id := f.Identity()
	if err := q.store.SaveFeed(ctx, f); err != nil {
		q.logger.Error("feed bookkeeping failed",
			logging.String("feed", id.String()), logging.Error(err))
		return
	}
	for _, mid := range mids {
		if err := q.store.AddMessage(ctx, id, mid); err != nil {
			q.logger.Error("message bookkeeping failed",
				logging.String("feed", id.String()), logging.Error(err))
		}
	}
	if len(mediaMids) > 0 {
		q.mu.Lock()
		q.mediaMids[id] = mediaMids
		q.mu.Unlock()
	}
}

// sendAtom runs the retry ladder for one atom: a timeout earns one retry
// with a doubled budget, the URL-fetch rejection earns the raw-bytes
// fallback, rate-limit pushback waits out the suggested delay, and anything
// else burns one of maxRetry attempts.
func (q *Queue) sendAtom(ctx context.Context, atom splitter.Atom, opts telegram.SendOptions) ([]int64, error) {
	attempts := 0
	timeoutRetried := false
	fellBack := false

	for {
		ids, err := q.invoke(ctx, atom, opts)
		if err == nil {
			return ids, nil
		}

		switch {
		case telegram.IsTimedOut(err) && !timeoutRetried:
			timeoutRetried = true
			opts.Timeout = doubledBudget(err)
			continue
		case telegram.NeedsURLFallback(err) && !fellBack:
			fellBack = true
			rewritten, fetchErr := q.rawBytes(ctx, atom)
			if fetchErr != nil {
				return nil, fmt.Errorf("url fallback: %w", errors.Join(err, fetchErr))
			}
			atom = rewritten
			continue
		case telegram.IsQuota(err):
			if waitErr := waitQuota(ctx, err); waitErr != nil {
				return nil, waitErr
			}
		}

		attempts++
		if attempts >= q.maxRetry {
			return nil, err
		}
	}
}

func doubledBudget(err error) time.Duration {
	var t *telegram.TimedOut
	if errors.As(err, &t) && t.Budget > 0 {
		return t.Budget * 2
	}
	return 2 * time.Minute
}

func waitQuota(ctx context.Context, err error) error {
	var quota *telegram.QuotaExceeded
	wait := time.Second
	if errors.As(err, &quota) && quota.RetryAfter > 0 {
		wait = quota.RetryAfter
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return nil
	}
}

// invoke maps the atom onto the matching transport primitive.
func (q *Queue) invoke(ctx context.Context, atom splitter.Atom, opts telegram.SendOptions) ([]int64, error) {
	switch atom.Kind {
	case splitter.AtomText:
		mid, err := q.transport.SendMessage(ctx, q.chat, atom.Text, opts)
		return single(mid, err)
	case splitter.AtomPic:
		mid, err := q.transport.SendPhoto(ctx, q.chat, atom.Inputs[0], atom.Text, opts)
		return single(mid, err)
	case splitter.AtomAnim:
		mid, err := q.transport.SendAnimation(ctx, q.chat, atom.Inputs[0], atom.Text, opts)
		return single(mid, err)
	case splitter.AtomVideo:
		mid, err := q.transport.SendVideo(ctx, q.chat, atom.Inputs[0], atom.Text, opts)
		return single(mid, err)
	case splitter.AtomDoc:
		mid, err := q.transport.SendDocument(ctx, q.chat, atom.Inputs[0], atom.Text, opts)
		return single(mid, err)
	case splitter.AtomGroup:
		return q.transport.SendMediaGroup(ctx, q.chat, atom.Inputs, atom.Text, opts)
	default:
		return nil, fmt.Errorf("sendqueue: unknown atom kind %d", atom.Kind)
	}
}

func single(mid int64, err error) ([]int64, error) {
	if err != nil {
		return nil, err
	}
	return []int64{mid}, nil
}

// rawBytes downloads every URL-form input of the atom so the platform
// receives an upload instead of fetching the URL itself.
func (q *Queue) rawBytes(ctx context.Context, atom splitter.Atom) (splitter.Atom, error) {
	inputs := make([]telegram.Input, len(atom.Inputs))
	for i, in := range atom.Inputs {
		if !in.ByURL() {
			inputs[i] = in
			continue
		}
		body, err := q.fetch(ctx, in.URL)
		if err != nil {
			return atom, err
		}
		in.Bytes = body
		inputs[i] = in
	}
	atom.Inputs = inputs
	return atom, nil
}

func (q *Queue) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := q.fetcher.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", rawURL, resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 64<<20))
}
