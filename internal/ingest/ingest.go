// Package ingest persists a normalized batch and returns the changes it caused.
//
// For every watermark key the previous value is read, compared and only then
// overwritten, all while holding that key's lock. The overwrite is conditional
// on the value read, so a second process working on the same stores cannot
// announce the same transition again.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"healthwatch/internal/detect"
	"healthwatch/internal/model"
	"healthwatch/internal/state"
	logx "healthwatch/pkg/logx"
)

// Catalog is the relational side of ingestion.
type Catalog interface {
	EnsureSource(ctx context.Context, name string) (model.NewsSource, error)
	EnsureRegion(ctx context.Context, name string) (model.Region, error)
	SeenLinks(ctx context.Context, sourceID int64) (map[string]struct{}, error)
	UpsertNews(ctx context.Context, item model.NewsItem) (bool, error)
}

type Pipeline struct {
	cat   Catalog
	state state.Store
	log   logx.Logger
	locks keyLocks
}

func New(cat Catalog, st state.Store, log logx.Logger) *Pipeline {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Pipeline{cat: cat, state: st, log: log.With(logx.String("comp", "ingest"))}
}

// Ingest processes news, then scalars, then region snapshots of one source.
// region labels the feed-wide scalars (e.g. "Singapore" for MOH); it may be empty.
//
// Failures of one record never stop its siblings. The returned error joins the
// per-part failures for reporting; the changes are valid either way.
func (p *Pipeline) Ingest(ctx context.Context, source, region string, b model.Batch) ([]model.Change, error) {
	var (
		out  []model.Change
		errs []error
	)
	log := p.log.With(logx.String("source", source))

	if len(b.News) > 0 {
		ch, err := p.ingestNews(ctx, source, b.News)
		if err != nil {
			log.Warn("news skipped", logx.Err(err))
			errs = append(errs, err)
		}
		out = append(out, ch...)
	}

	for _, sc := range b.Scalars {
		if err := ctx.Err(); err != nil {
			return out, errors.Join(append(errs, err)...)
		}
		key := model.ScalarKey(source, sc.Feed)
		err := p.locks.with(ctx, key, func() error {
			prev := p.load(ctx, key, log)
			found := detect.Scalar(source, region, decode[model.ScalarState](prev, key, log), sc)
			if len(found) == 0 {
				return nil
			}
			if p.commit(ctx, key, prev, sc, log) {
				out = append(out, found...)
			}
			return nil
		})
		if err != nil {
			errs = append(errs, err)
		}
	}

	for _, snap := range b.Snapshots {
		if err := ctx.Err(); err != nil {
			return out, errors.Join(append(errs, err)...)
		}
		if _, err := p.cat.EnsureRegion(ctx, snap.Region); err != nil {
			log.Warn("ensure region failed", logx.String("region", snap.Region), logx.Err(err))
			errs = append(errs, err)
			continue
		}
		key := model.SnapshotKey(source, snap.Region)
		err := p.locks.with(ctx, key, func() error {
			prev := p.load(ctx, key, log)
			last := decode[model.RegionSnapshot](prev, key, log)
			found := detect.Snapshot(source, last, snap)
			// Fields outside the diff still overwrite the stored snapshot.
			if len(found) == 0 && last != nil && last.Equal(snap) {
				return nil
			}
			if p.commit(ctx, key, prev, snap, log) {
				out = append(out, found...)
			}
			return nil
		})
		if err != nil {
			errs = append(errs, err)
		}
	}

	return out, errors.Join(errs...)
}

func (p *Pipeline) ingestNews(ctx context.Context, source string, items []model.NewsItem) ([]model.Change, error) {
	src, err := p.cat.EnsureSource(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("ensure source %q: %w", source, err)
	}

	var out []model.Change
	err = p.locks.with(ctx, source+".news", func() error {
		seen, err := p.cat.SeenLinks(ctx, src.ID)
		if err != nil {
			// Nothing is persisted so the next run re-detects these items.
			return fmt.Errorf("seen links of %q: %w", source, err)
		}
		items = append([]model.NewsItem(nil), items...)
		for i := range items {
			items[i].SourceID = src.ID
			items[i].Source = src.Name
		}
		fresh := detect.News(source, seen, items)
		// Only the writer whose insert created the row announces the item.
		inserted := map[string]bool{}
		for _, it := range items {
			if _, known := seen[it.Link]; known {
				continue
			}
			ok, err := p.cat.UpsertNews(ctx, it)
			if err != nil {
				p.log.Warn("upsert news failed", logx.String("source", source), logx.String("link", it.Link), logx.Err(err))
				continue
			}
			if ok {
				inserted[it.Link] = true
			}
		}
		for _, c := range fresh {
			if inserted[c.Item.Link] {
				out = append(out, c)
				continue
			}
			p.log.Debug("news item not announced", logx.String("source", source), logx.String("link", c.Item.Link))
		}
		return nil
	})
	return out, err
}

// watermark is a previous value as read, kept for the conditional write.
type watermark struct {
	raw      []byte
	present  bool
	readable bool
}

func (p *Pipeline) load(ctx context.Context, key string, log logx.Logger) watermark {
	raw, ok, err := p.state.Get(ctx, key)
	if err != nil {
		log.Warn("previous state unreadable", logx.String("key", key), logx.Err(err))
		return watermark{}
	}
	return watermark{raw: raw, present: ok, readable: true}
}

// decode treats an absent, unreadable or undecodable value as "no previous value".
func decode[T any](w watermark, key string, log logx.Logger) *T {
	if !w.present {
		return nil
	}
	var v T
	if err := json.Unmarshal(w.raw, &v); err != nil {
		log.Warn("previous state undecodable", logx.String("key", key), logx.Err(err))
		return nil
	}
	return &v
}

// commit writes v over prev and reports whether the detected change still
// belongs to this writer. It is false only when another writer replaced prev
// first; that writer announces the transition. Write failures keep the change.
func (p *Pipeline) commit(ctx context.Context, key string, prev watermark, v any, log logx.Logger) bool {
	raw, err := json.Marshal(v)
	if err != nil {
		log.Warn("encode state failed", logx.String("key", key), logx.Err(err))
		return true
	}
	if !prev.readable {
		if err := p.state.Set(ctx, key, raw); err != nil {
			log.Warn("store state failed", logx.String("key", key), logx.Err(err))
		}
		return true
	}
	swapped, err := p.state.Swap(ctx, key, prev.raw, prev.present, raw)
	if err != nil {
		log.Warn("store state failed", logx.String("key", key), logx.Err(err))
		return true
	}
	if !swapped {
		log.Info("state moved by another writer; change dropped", logx.String("key", key))
	}
	return swapped
}
