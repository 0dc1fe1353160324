package storage

import (
	"context"
	"fmt"
	"time"

	"healthwatch/internal/model"
)

// EnsureSource finds or creates a news source by name.
func (s *Store) EnsureSource(ctx context.Context, name string) (model.NewsSource, error) {
	id, err := s.ensureNamed(ctx, "news_source", name)
	if err != nil {
		return model.NewsSource{}, err
	}
	return model.NewsSource{ID: id, Name: name}, nil
}

// SeenLinks returns every link already stored for a source.
func (s *Store) SeenLinks(ctx context.Context, sourceID int64) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`SELECT link FROM news WHERE news_source_id = ?`), sourceID)
	if err != nil {
		return nil, fmt.Errorf("seen links: %w", err)
	}
	defer rows.Close()
	out := map[string]struct{}{}
	for rows.Next() {
		var link string
		if err := rows.Scan(&link); err != nil {
			return nil, fmt.Errorf("seen links: %w", err)
		}
		out[link] = struct{}{}
	}
	return out, rows.Err()
}

// UpsertNews stores an item unless its source already has a row for the link.
// A known link is not an error and leaves the stored row untouched; inserted
// reports which case hit.
func (s *Store) UpsertNews(ctx context.Context, item model.NewsItem) (bool, error) {
	if item.SourceID == 0 {
		return false, fmt.Errorf("upsert news %q: source id is required", item.Link)
	}
	res, err := s.db.ExecContext(ctx,
		s.q(`INSERT INTO news(news_source_id, title, link, written_at, created_at)
		 VALUES(?, ?, ?, ?, ?)
		 ON CONFLICT(news_source_id, link) DO NOTHING`),
		item.SourceID, item.Title, item.Link, item.WrittenAt.UnixMilli(), s.nowMilli(),
	)
	if err != nil {
		return false, fmt.Errorf("upsert news %q: %w", item.Link, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("upsert news %q: %w", item.Link, err)
	}
	return n > 0, nil
}

// NewsBySource lists stored items of a source, oldest row first.
func (s *Store) NewsBySource(ctx context.Context, sourceID int64) ([]model.NewsItem, error) {
	rows, err := s.db.QueryContext(ctx, s.q(
		`SELECT n.id, n.news_source_id, ns.name, n.title, n.link, n.written_at
		 FROM news n JOIN news_source ns ON ns.id = n.news_source_id
		 WHERE n.news_source_id = ? ORDER BY n.id`), sourceID)
	if err != nil {
		return nil, fmt.Errorf("news by source: %w", err)
	}
	defer rows.Close()
	var out []model.NewsItem
	for rows.Next() {
		var (
			it model.NewsItem
			ms int64
		)
		if err := rows.Scan(&it.ID, &it.SourceID, &it.Source, &it.Title, &it.Link, &ms); err != nil {
			return nil, fmt.Errorf("news by source: %w", err)
		}
		it.WrittenAt = time.UnixMilli(ms).UTC()
		out = append(out, it)
	}
	return out, rows.Err()
}
