// Package enrich completes truncated feed bodies and resolves album
// references to raw media URLs. Body completion fans out across the feeds of
// a batch; album resolution runs on a dedicated paced queue because the
// album endpoint throttles aggressively.
package enrich

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"qzsync/internal/feed"
	"qzsync/internal/logging"
	"qzsync/internal/session"
)

// Remote is the enrichment surface of the qzone client.
type Remote interface {
	CompleteFeed(ctx context.Context, owner int64, fid string) (string, error)
	AlbumPhotos(ctx context.Context, owner int64, ref feed.AlbumRef) ([]feed.VisualMedia, error)
}

// MediaUpdate receives media resolved after the feed left the enricher, so
// already-sent messages can be edited in place.
type MediaUpdate func(ctx context.Context, id feed.Identity, media []feed.VisualMedia)

// Enricher drives per-batch enrichment.
type Enricher struct {
	remote   Remote
	sessions *session.Manager
	workers  int
	albums   *albumQueue
	logger   *slog.Logger
}

// New constructs an Enricher. onMedia may be nil when post-send edits are
// not wanted.
func New(remote Remote, sessions *session.Manager, workers, albumMaxRetry int,
	onMedia MediaUpdate, logger *slog.Logger) *Enricher {
	log := logging.NewComponentLogger(logger, "enrich")
	return &Enricher{
		remote:   remote,
		sessions: sessions,
		workers:  workers,
		albums:   newAlbumQueue(remote, sessions, albumMaxRetry, onMedia, log),
		logger:   log,
	}
}

// Start launches the album worker; it runs until ctx is cancelled.
func (e *Enricher) Start(ctx context.Context) {
	go e.albums.run(ctx)
}

// Enrich processes one batch. Feeds are hydrated from their HTML, truncated
// bodies are expanded, and album references are handed to the paced queue.
// Enrichment failures are best-effort: the feed keeps its thumbnails. Feeds
// are frozen once Enrich returns; album resolutions reach callers through
// the onMedia callback, never by mutating the batch.
func (e *Enricher) Enrich(ctx context.Context, feeds []*feed.Feed) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for _, f := range feeds {
		f := f
		g.Go(func() error {
			e.enrichOne(ctx, f)
			return nil
		})
	}
	return g.Wait()
}

func (e *Enricher) enrichOne(ctx context.Context, f *feed.Feed) {
	if feed.Truncated(f.HTML) {
		e.expand(ctx, f)
	}
	feed.Hydrate(f)
	if f.Album != nil {
		e.albums.enqueue(f)
	}
}

// expand fetches the untruncated body and re-derives entities from it.
func (e *Enricher) expand(ctx context.Context, f *feed.Feed) {
	var body string
	err := e.sessions.Guard(ctx, func(ctx context.Context) error {
		var err error
		body, err = e.remote.CompleteFeed(ctx, f.Uin, f.Fid)
		return err
	})
	if err != nil {
		e.logger.Warn("complete-feed fetch failed, keeping truncated body",
			logging.String("feed", f.Identity().String()), logging.Error(err))
		return
	}
	if body == "" {
		return
	}
	f.HTML = body
	f.Entities = feed.EntitiesFromHTML(body)
}
