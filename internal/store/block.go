package store

import "context"

// Blocked returns the set of accounts whose feeds are silently discarded.
func (s *Store) Blocked(ctx context.Context) (map[int64]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT uin FROM block`)
	if err != nil {
		return nil, storageErr("list blocked", err)
	}
	defer rows.Close()

	blocked := make(map[int64]struct{})
	for rows.Next() {
		var uin int64
		if err := rows.Scan(&uin); err != nil {
			return nil, storageErr("scan blocked", err)
		}
		blocked[uin] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate blocked", err)
	}
	return blocked, nil
}

// SetBlocked replaces the block list with the provided accounts.
func (s *Store) SetBlocked(ctx context.Context, uins []int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("begin block tx", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM block`); err != nil {
		return storageErr("clear block list", err)
	}
	for _, uin := range uins {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO block (uin) VALUES (?)`, uin); err != nil {
			return storageErr("insert block entry", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return storageErr("commit block list", err)
	}
	return nil
}
