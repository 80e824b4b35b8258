package store

import (
	"context"
	"database/sql"
	"errors"

	"qzsync/internal/feed"
)

// SaveFeed upserts a feed row. Saving the same identity twice leaves exactly
// one row carrying the latest non-identity fields.
func (s *Store) SaveFeed(ctx context.Context, f *feed.Feed) error {
	if f == nil {
		return errors.New("feed is nil")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO feed (uin, abstime, fid, appid, typeid, nickname, curkey, unikey)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT (uin, abstime) DO UPDATE SET
             fid = excluded.fid, appid = excluded.appid, typeid = excluded.typeid,
             nickname = excluded.nickname, curkey = excluded.curkey, unikey = excluded.unikey`,
		f.Uin, f.Abstime, f.Fid, f.AppID, f.TypeID, f.Nickname,
		nullableString(f.Curkey), nullableString(f.Unikey),
	)
	if err != nil {
		return storageErr("save feed", err)
	}
	return nil
}

// GetFeed fetches a feed row by identity; nil when absent.
func (s *Store) GetFeed(ctx context.Context, id feed.Identity) (*FeedRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT uin, abstime, fid, appid, typeid, nickname, curkey, unikey
         FROM feed WHERE uin = ? AND abstime = ?`, id.Uin, id.Abstime)
	record, err := scanFeed(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("get feed", err)
	}
	return record, nil
}

// FeedByFid returns the feed row matching a server-side post identifier.
func (s *Store) FeedByFid(ctx context.Context, fid string) (*FeedRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT uin, abstime, fid, appid, typeid, nickname, curkey, unikey
         FROM feed WHERE fid = ? ORDER BY abstime DESC LIMIT 1`, fid)
	record, err := scanFeed(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("feed by fid", err)
	}
	return record, nil
}

// FeedByCurkey returns the feed row matching a like-endpoint current key.
func (s *Store) FeedByCurkey(ctx context.Context, curkey string) (*FeedRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT uin, abstime, fid, appid, typeid, nickname, curkey, unikey
         FROM feed WHERE curkey = ? ORDER BY abstime DESC LIMIT 1`, curkey)
	record, err := scanFeed(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("feed by curkey", err)
	}
	return record, nil
}

// AddMessage records one delivered platform message for a feed.
func (s *Store) AddMessage(ctx context.Context, id feed.Identity, mid int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO message (uin, abstime, mid) VALUES (?, ?, ?)`,
		id.Uin, id.Abstime, mid)
	if err != nil {
		return storageErr("add message", err)
	}
	return nil
}

// Messages returns the delivered message ids for a feed in insertion order.
func (s *Store) Messages(ctx context.Context, id feed.Identity) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT mid FROM message WHERE uin = ? AND abstime = ? ORDER BY rowid`,
		id.Uin, id.Abstime)
	if err != nil {
		return nil, storageErr("list messages", err)
	}
	defer rows.Close()

	var mids []int64
	for rows.Next() {
		var mid int64
		if err := rows.Scan(&mid); err != nil {
			return nil, storageErr("scan message", err)
		}
		mids = append(mids, mid)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate messages", err)
	}
	return mids, nil
}

// HasMessages reports whether a feed has been delivered at least once.
func (s *Store) HasMessages(ctx context.Context, id feed.Identity) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM message WHERE uin = ? AND abstime = ?`,
		id.Uin, id.Abstime).Scan(&count)
	if err != nil {
		return false, storageErr("count messages", err)
	}
	return count > 0, nil
}

// FeedByMessage resolves a platform message id back to its feed row.
func (s *Store) FeedByMessage(ctx context.Context, mid int64) (*FeedRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT f.uin, f.abstime, f.fid, f.appid, f.typeid, f.nickname, f.curkey, f.unikey
         FROM feed f JOIN message m ON m.uin = f.uin AND m.abstime = f.abstime
         WHERE m.mid = ? LIMIT 1`, mid)
	record, err := scanFeed(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("feed by message", err)
	}
	return record, nil
}

func scanFeed(scanner interface{ Scan(dest ...any) error }) (*FeedRecord, error) {
	var (
		record FeedRecord
		curkey sql.NullString
		unikey sql.NullString
	)
	if err := scanner.Scan(
		&record.Uin, &record.Abstime, &record.Fid, &record.AppID,
		&record.TypeID, &record.Nickname, &curkey, &unikey,
	); err != nil {
		return nil, err
	}
	record.Curkey = curkey.String
	record.Unikey = unikey.String
	return &record, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
