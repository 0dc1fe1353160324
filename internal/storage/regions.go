package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"healthwatch/internal/model"
)

// EnsureRegion finds or creates a region by name.
func (s *Store) EnsureRegion(ctx context.Context, name string) (model.Region, error) {
	id, err := s.ensureNamed(ctx, "region", name)
	if err != nil {
		return model.Region{}, err
	}
	return model.Region{ID: id, Name: name}, nil
}

// RegionByName returns ErrNotFound when the region was never observed.
func (s *Store) RegionByName(ctx context.Context, name string) (model.Region, error) {
	var r model.Region
	err := s.db.QueryRowContext(ctx, s.q(`SELECT id, name FROM region WHERE name = ?`), name).Scan(&r.ID, &r.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Region{}, ErrNotFound
	}
	if err != nil {
		return model.Region{}, fmt.Errorf("region %q: %w", name, err)
	}
	return r, nil
}

// Regions lists all known regions ordered by name.
func (s *Store) Regions(ctx context.Context) ([]model.Region, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM region ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("regions: %w", err)
	}
	defer rows.Close()
	var out []model.Region
	for rows.Next() {
		var r model.Region
		if err := rows.Scan(&r.ID, &r.Name); err != nil {
			return nil, fmt.Errorf("regions: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
