package app

import (
	"context"
	"sync"

	"healthwatch/internal/model"
	"healthwatch/internal/storage"
)

// dryCatalog reads news from the store but stages new rows in memory.
type dryCatalog struct {
	*storage.Store

	mu     sync.Mutex
	staged map[int64]map[string]struct{}
}

func newDryCatalog(st *storage.Store) *dryCatalog {
	return &dryCatalog{Store: st, staged: map[int64]map[string]struct{}{}}
}

func (c *dryCatalog) SeenLinks(ctx context.Context, sourceID int64) (map[string]struct{}, error) {
	seen, err := c.Store.SeenLinks(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for link := range c.staged[sourceID] {
		seen[link] = struct{}{}
	}
	return seen, nil
}

func (c *dryCatalog) UpsertNews(_ context.Context, item model.NewsItem) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	links := c.staged[item.SourceID]
	if links == nil {
		links = map[string]struct{}{}
		c.staged[item.SourceID] = links
	}
	if _, ok := links[item.Link]; ok {
		return false, nil
	}
	links[item.Link] = struct{}{}
	return true, nil
}
