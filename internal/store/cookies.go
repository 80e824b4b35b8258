package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"qzsync/internal/qzerr"
)

// LoadCookie retrieves the credential set for an account; nil when absent.
func (s *Store) LoadCookie(ctx context.Context, uin int64) (*Cookie, error) {
	var cookie Cookie
	err := s.db.QueryRowContext(ctx,
		`SELECT p_skey, pt4_token, pt_guid_sig, ptcz FROM cookie WHERE uin = ?`, uin,
	).Scan(&cookie.PSkey, &cookie.Pt4Token, &cookie.PtGuidSig, &cookie.Ptcz)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("load cookie", err)
	}
	return &cookie, nil
}

// SaveCookie atomically replaces the credential set for an account.
// Incomplete cookies are rejected rather than persisted.
func (s *Store) SaveCookie(ctx context.Context, uin int64, cookie Cookie) error {
	if !cookie.Complete() {
		return qzerr.Wrap(qzerr.ErrStorage, "store", "save cookie",
			fmt.Sprintf("incomplete cookie for %d", uin), nil)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("begin cookie tx", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM cookie WHERE uin = ?`, uin); err != nil {
		return storageErr("clear cookie", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO cookie (uin, p_skey, pt4_token, pt_guid_sig, ptcz) VALUES (?, ?, ?, ?, ?)`,
		uin, cookie.PSkey, cookie.Pt4Token, cookie.PtGuidSig, cookie.Ptcz)
	if err != nil {
		return storageErr("insert cookie", err)
	}
	if err := tx.Commit(); err != nil {
		return storageErr("commit cookie", err)
	}
	return nil
}

// DeleteCookie removes the credential set for an account.
func (s *Store) DeleteCookie(ctx context.Context, uin int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM cookie WHERE uin = ?`, uin); err != nil {
		return storageErr("delete cookie", err)
	}
	return nil
}
