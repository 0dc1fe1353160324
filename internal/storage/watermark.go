package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// GetWatermark returns the stored value for key; ok is false when absent.
func (s *Store) GetWatermark(ctx context.Context, key string) (value []byte, ok bool, err error) {
	err = s.db.QueryRowContext(ctx, s.q(`SELECT value FROM watermark WHERE key = ?`), key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get watermark %q: %w", key, err)
	}
	return value, true, nil
}

// PutWatermark overwrites the value for key.
func (s *Store) PutWatermark(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx,
		s.q(`INSERT INTO watermark(key, value, updated_at) VALUES(?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`),
		key, value, s.nowMilli(),
	)
	if err != nil {
		return fmt.Errorf("put watermark %q: %w", key, err)
	}
	return nil
}

// SwapWatermark writes value only if key still holds old, or is still absent
// when hadOld is false. swapped is false when another writer got there first.
func (s *Store) SwapWatermark(ctx context.Context, key string, old []byte, hadOld bool, value []byte) (swapped bool, err error) {
	var res sql.Result
	if hadOld {
		res, err = s.db.ExecContext(ctx,
			s.q(`UPDATE watermark SET value = ?, updated_at = ? WHERE key = ? AND value = ?`),
			value, s.nowMilli(), key, old,
		)
	} else {
		res, err = s.db.ExecContext(ctx,
			s.q(`INSERT INTO watermark(key, value, updated_at) VALUES(?, ?, ?) ON CONFLICT(key) DO NOTHING`),
			key, value, s.nowMilli(),
		)
	}
	if err != nil {
		return false, fmt.Errorf("swap watermark %q: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("swap watermark %q: %w", key, err)
	}
	return n == 1, nil
}
