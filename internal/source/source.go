// Package source scrapes upstream pages into raw records and normalizes them
// into the canonical model.
//
// Adapters only extract text; every parse decision lives in Normalize so all
// sources share the same rules.
package source

import (
	"context"
	"errors"

	"healthwatch/internal/model"
)

// ErrUnavailable wraps every fetch failure (network, HTTP status, missing markup).
var ErrUnavailable = errors.New("source unavailable")

// RawArticle is a headline as scraped. Link is absolute.
type RawArticle struct {
	Title string
	Link  string
	Date  string
}

// RawScalar is a feed-wide value as scraped.
type RawScalar struct {
	Feed  string
	Kind  model.ScalarKind
	Value string
}

// RawRegionRow is one row of a per-region statistics table.
type RawRegionRow struct {
	Region string
	Cases  string
	Deaths string
	Notes  string
}

type RawBatch struct {
	Articles []RawArticle
	Scalars  []RawScalar
	Rows     []RawRegionRow
}

// Fetcher scrapes one upstream source.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context) (RawBatch, error)
}
