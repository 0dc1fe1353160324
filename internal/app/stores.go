package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"healthwatch/internal/config"
	"healthwatch/internal/model"
	"healthwatch/internal/state"
	"healthwatch/internal/storage"
	logx "healthwatch/pkg/logx"
)

// Stores is the relational store plus the watermark store. The management
// commands use it without building the rest of the app.
type Stores struct {
	Storage *storage.Store
	State   state.Store

	sources []string
}

func OpenStores(ctx context.Context, rt *config.Runtime, log logx.Logger) (*Stores, error) {
	db, err := storage.Open(ctx, storageConfig(rt), log.With(logx.String("comp", "storage")))
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	st, err := state.Open(ctx, stateConfig(rt), db, log.With(logx.String("comp", "state")))
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("state: %w", err)
	}
	s := &Stores{Storage: db, State: st}
	for _, src := range rt.Sources {
		s.sources = append(s.sources, src.Name)
	}
	return s, nil
}

func (s *Stores) Close() error {
	return errors.Join(s.State.Close(), s.Storage.Close())
}

type SnapshotRow struct {
	Source string
	model.RegionSnapshot
}

// LatestSnapshots returns the last stored statistics of every known region,
// per configured source, in source then region order.
func (s *Stores) LatestSnapshots(ctx context.Context) ([]SnapshotRow, error) {
	regions, err := s.Storage.Regions(ctx)
	if err != nil {
		return nil, err
	}
	var out []SnapshotRow
	for _, src := range s.sources {
		for _, r := range regions {
			raw, ok, err := s.State.Get(ctx, model.SnapshotKey(src, r.Name))
			if err != nil {
				return nil, fmt.Errorf("%s: %w", model.SnapshotKey(src, r.Name), err)
			}
			if !ok {
				continue
			}
			var snap model.RegionSnapshot
			if err := json.Unmarshal(raw, &snap); err != nil {
				return nil, fmt.Errorf("%s: %w", model.SnapshotKey(src, r.Name), err)
			}
			out = append(out, SnapshotRow{Source: src, RegionSnapshot: snap})
		}
	}
	return out, nil
}
