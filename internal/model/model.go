// Package model holds the canonical records shared by ingestion, detection and
// dispatch. Scrape adapters normalize into these types before anything else sees
// the data.
package model

import (
	"strconv"
	"time"
)

// NewsSource is a static reference row, created lazily by name.
type NewsSource struct {
	ID   int64
	Name string
}

// Region is a geographic interest dimension, created lazily by name.
type Region struct {
	ID   int64
	Name string
}

// NewsItem is one headline of a source. (SourceID, Link) identifies it.
type NewsItem struct {
	ID        int64
	SourceID  int64
	Source    string
	Title     string
	Link      string
	WrittenAt time.Time
}

// Subscription binds a recipient to a region. (ChatID, RegionID) is unique.
type Subscription struct {
	ID       int64
	ChatID   int64
	RegionID int64
	Region   string
}

// Recipient is an addressable subscriber identity.
type Recipient struct {
	ChatID int64
}

type ScalarKind int

const (
	ScalarAlertLevel ScalarKind = iota + 1
	ScalarConfirmedCases
)

func (k ScalarKind) String() string {
	switch k {
	case ScalarAlertLevel:
		return "alert_level"
	case ScalarConfirmedCases:
		return "confirmed_cases"
	default:
		return "unknown"
	}
}

// ScalarState is one watched feed-wide value, e.g. the DORSCON level.
type ScalarState struct {
	Feed  string     `json:"feed"`
	Kind  ScalarKind `json:"kind"`
	Text  string     `json:"text,omitempty"`
	Count int64      `json:"count,omitempty"`
}

// Equal compares exactly: strings for alert levels, integers for counters.
func (s ScalarState) Equal(o ScalarState) bool {
	if s.Kind != o.Kind {
		return false
	}
	if s.Kind == ScalarConfirmedCases {
		return s.Count == o.Count
	}
	return s.Text == o.Text
}

func (s ScalarState) String() string {
	if s.Kind == ScalarConfirmedCases {
		return strconv.FormatInt(s.Count, 10)
	}
	return s.Text
}

// RegionSnapshot is the latest known statistics for one region from one feed.
type RegionSnapshot struct {
	Region         string  `json:"region"`
	Cases          int64   `json:"cases"`
	Deaths         int64   `json:"deaths"`
	Notes          string  `json:"notes"`
	AlertLevel     *string `json:"alert_level,omitempty"`
	ConfirmedCases *int64  `json:"confirmed_cases,omitempty"`
}

// StatsEqual reports whether cases, deaths and notes all match.
func (s RegionSnapshot) StatsEqual(o RegionSnapshot) bool {
	return s.Cases == o.Cases && s.Deaths == o.Deaths && s.Notes == o.Notes
}

// Equal compares every stored field, including the optional ones.
func (s RegionSnapshot) Equal(o RegionSnapshot) bool {
	return s.Region == o.Region && s.StatsEqual(o) &&
		equalPtr(s.AlertLevel, o.AlertLevel) && equalPtr(s.ConfirmedCases, o.ConfirmedCases)
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Batch is the normalized record set produced by one source in one run.
type Batch struct {
	News      []NewsItem
	Scalars   []ScalarState
	Snapshots []RegionSnapshot
}

func (b Batch) Len() int { return len(b.News) + len(b.Scalars) + len(b.Snapshots) }
