package sendqueue

import (
	"context"

	"qzsync/internal/feed"
	"qzsync/internal/logging"
	"qzsync/internal/telegram"
)

// EditMedia applies post-hoc media resolution to a sent feed. Text messages
// are never edited; resolved media replace the media atoms positionally. An
// edit arriving before the feed's batch is dispatched, or while the feed is
// still sending, is buffered and replayed after send completion; the latest
// buffered edit wins.
func (q *Queue) EditMedia(ctx context.Context, id feed.Identity, media []feed.VisualMedia) {
	q.mu.Lock()
	state, tracked := q.states[id]
	switch {
	case !tracked || state == StateQueued || state == StateSending:
		// Fast album resolutions can land before Dispatch registers the
		// batch; hold the edit until the feed finishes sending.
		q.pending[id] = media
		q.mu.Unlock()
		return
	case state == StateFailed:
		q.mu.Unlock()
		return
	}
	mids := q.mediaMids[id]
	q.mu.Unlock()

	q.applyEdit(ctx, id, mids, media)
}

// replayEdits flushes the edit buffered while the feed was sending.
func (q *Queue) replayEdits(ctx context.Context, id feed.Identity) {
	q.mu.Lock()
	media, ok := q.pending[id]
	if ok {
		delete(q.pending, id)
	}
	mids := q.mediaMids[id]
	q.mu.Unlock()
	if !ok {
		return
	}
	q.applyEdit(ctx, id, mids, media)
}

func (q *Queue) applyEdit(ctx context.Context, id feed.Identity, mids []int64, media []feed.VisualMedia) {
	for i, mid := range mids {
		if i >= len(media) {
			return
		}
		m := media[i]
		rawURL := m.RawURL
		if rawURL == "" {
			rawURL = m.ThumbURL
		}
		in := telegram.Input{Kind: telegram.InputPhoto, URL: rawURL}
		if m.IsVideo {
			in.Kind = telegram.InputVideo
		}
		if err := q.transport.EditMessageMedia(ctx, q.chat, mid, in); err != nil {
			q.logger.Warn("media edit failed",
				logging.String("feed", id.String()),
				logging.Int64("mid", mid), logging.Error(err))
		}
	}
}

func (q *Queue) setState(id feed.Identity, state State) {
	q.mu.Lock()
	q.states[id] = state
	q.mu.Unlock()
}

// archive moves the batch's terminal feeds to Archived. Media message ids
// stay tracked so late album resolutions can still edit.
func (q *Queue) archive(feeds []*feed.Feed) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, f := range feeds {
		id := f.Identity()
		if s := q.states[id]; s == StateSent || s == StateFailed {
			q.states[id] = StateArchived
		}
		delete(q.pending, id)
	}
}

// StateOf reports the tracked state of a feed, for diagnostics.
func (q *Queue) StateOf(id feed.Identity) (State, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	state, ok := q.states[id]
	return state, ok
}
