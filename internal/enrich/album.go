package enrich

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"qzsync/internal/feed"
	"qzsync/internal/logging"
	"qzsync/internal/qzerr"
	"qzsync/internal/session"
)

const (
	albumQueueDepth = 64
	albumBasePace   = 500 * time.Millisecond
	albumMinPace    = 100 * time.Millisecond
	albumMaxPace    = 2 * time.Minute
	albumPaceStep   = 100 * time.Millisecond
)

// albumTask is a snapshot of the fields the worker needs. The feed itself is
// never carried: batches are frozen after enrichment, and resolutions reach
// already-sent messages through the update callback only.
type albumTask struct {
	id      feed.Identity
	owner   int64
	ref     feed.AlbumRef
	attempt int
}

// albumQueue is a single-worker queue with AIMD pacing: each success shaves
// a fixed step off the inter-request pace, each retry-later response doubles
// it. Tasks hitting the retry code are re-enqueued up to maxRetry times.
type albumQueue struct {
	remote   Remote
	sessions *session.Manager
	maxRetry int
	onMedia  MediaUpdate
	logger   *slog.Logger

	tasks chan albumTask
	pace  time.Duration
}

func newAlbumQueue(remote Remote, sessions *session.Manager, maxRetry int,
	onMedia MediaUpdate, logger *slog.Logger) *albumQueue {
	return &albumQueue{
		remote:   remote,
		sessions: sessions,
		maxRetry: maxRetry,
		onMedia:  onMedia,
		logger:   logger,
		tasks:    make(chan albumTask, albumQueueDepth),
		pace:     albumBasePace,
	}
}

// enqueue hands a feed with an album reference to the worker. A full queue
// drops the task; the feed keeps its thumbnails.
func (q *albumQueue) enqueue(f *feed.Feed) {
	task := albumTask{id: f.Identity(), owner: f.Uin, ref: *f.Album}
	select {
	case q.tasks <- task:
	default:
		q.logger.Warn("album queue full, keeping thumbnails",
			logging.String("feed", task.id.String()))
	}
}

func (q *albumQueue) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case task := <-q.tasks:
			q.resolve(ctx, task)
			select {
			case <-ctx.Done():
				return
			case <-time.After(q.pace):
			}
		}
	}
}

func (q *albumQueue) resolve(ctx context.Context, task albumTask) {
	var media []feed.VisualMedia
	err := q.sessions.Guard(ctx, func(ctx context.Context) error {
		var err error
		media, err = q.remote.AlbumPhotos(ctx, task.owner, task.ref)
		return err
	})

	switch {
	case err == nil:
		q.speedUp()
		if len(media) > 0 && q.onMedia != nil {
			q.onMedia(ctx, task.id, media)
		}
	case errors.Is(err, qzerr.ErrAlbumNotReady):
		q.backOff()
		if task.attempt+1 >= q.maxRetry {
			q.logger.Warn("album retry budget spent, keeping thumbnails",
				logging.String("feed", task.id.String()))
			return
		}
		task.attempt++
		select {
		case q.tasks <- task:
		default:
			q.logger.Warn("album queue full on re-enqueue",
				logging.String("feed", task.id.String()))
		}
	default:
		q.logger.Warn("album resolution failed, keeping thumbnails",
			logging.String("feed", task.id.String()), logging.Error(err))
	}
}

func (q *albumQueue) speedUp() {
	if q.pace > albumMinPace {
		q.pace -= albumPaceStep
		if q.pace < albumMinPace {
			q.pace = albumMinPace
		}
	}
}

func (q *albumQueue) backOff() {
	q.pace *= 2
	if q.pace > albumMaxPace {
		q.pace = albumMaxPace
	}
}
