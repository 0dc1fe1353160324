package model

type ChangeKind int

const (
	NewNewsItem ChangeKind = iota + 1
	AlertLevelChanged
	ConfirmedCasesChanged
	RegionStatsChanged
)

func (k ChangeKind) String() string {
	switch k {
	case NewNewsItem:
		return "new_news_item"
	case AlertLevelChanged:
		return "alert_level_changed"
	case ConfirmedCasesChanged:
		return "confirmed_cases_changed"
	case RegionStatsChanged:
		return "region_stats_changed"
	default:
		return "unknown"
	}
}

// Change is a detected difference between a new observation and the stored one.
// Only the fields belonging to Kind are set:
//
//	NewNewsItem                               Item
//	AlertLevelChanged, ConfirmedCasesChanged  OldScalar, NewScalar
//	RegionStatsChanged                        OldSnapshot, NewSnapshot
//
// A nil Old* means there was no previous observation.
type Change struct {
	Kind   ChangeKind
	Source string
	Region string

	Item *NewsItem

	OldScalar *ScalarState
	NewScalar *ScalarState

	OldSnapshot *RegionSnapshot
	NewSnapshot *RegionSnapshot
}

// Baseline reports whether the change announces a first-ever observation.
func (c Change) Baseline() bool {
	switch c.Kind {
	case AlertLevelChanged, ConfirmedCasesChanged:
		return c.OldScalar == nil
	case RegionStatsChanged:
		return c.OldSnapshot == nil
	default:
		return false
	}
}

// ScalarKey is the watermark key of a feed-wide value, e.g. "MOH.DORSCON".
func ScalarKey(source, feed string) string { return source + "." + feed }

// SnapshotKey is the watermark key of a region snapshot, e.g. "BNO.Singapore".
func SnapshotKey(source, region string) string { return source + "." + region }
