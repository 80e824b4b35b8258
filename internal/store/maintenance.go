package store

import (
	"context"
	"time"
)

// Clean removes feed rows strictly older than the retention window along
// with their message records. A feed exactly at the boundary is kept.
// Returns the number of feed rows removed.
func (s *Store) Clean(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention).Unix()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, storageErr("begin clean tx", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM message WHERE abstime < ?`, cutoff); err != nil {
		return 0, storageErr("clean messages", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM feed WHERE abstime < ?`, cutoff)
	if err != nil {
		return 0, storageErr("clean feeds", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, storageErr("clean rows affected", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, storageErr("commit clean", err)
	}
	return removed, nil
}

// Stats returns table counts for diagnostic output.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	queries := []struct {
		query string
		dest  *int
	}{
		{`SELECT COUNT(1) FROM feed`, &stats.Feeds},
		{`SELECT COUNT(1) FROM message`, &stats.Messages},
		{`SELECT COUNT(DISTINCT uin || '/' || abstime) FROM message`, &stats.Delivered},
		{`SELECT COUNT(1) FROM block`, &stats.Blocked},
		{`SELECT COUNT(1) FROM cookie`, &stats.Cookies},
	}
	for _, q := range queries {
		if err := s.db.QueryRowContext(ctx, q.query).Scan(q.dest); err != nil {
			return Stats{}, storageErr("stats", err)
		}
	}
	return stats, nil
}
