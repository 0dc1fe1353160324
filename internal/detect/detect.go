// Package detect compares fresh observations against previously stored ones.
//
// Every function here is pure: callers load the previous values (and are
// responsible for doing so before overwriting them) and pass them in.
package detect

import "healthwatch/internal/model"

// Scalar returns one change when prev is absent or differs from cur, none otherwise.
// An absent prev still yields a change so the first observation is announced once.
func Scalar(source, region string, prev *model.ScalarState, cur model.ScalarState) []model.Change {
	if prev != nil && prev.Equal(cur) {
		return nil
	}
	kind := model.AlertLevelChanged
	if cur.Kind == model.ScalarConfirmedCases {
		kind = model.ConfirmedCasesChanged
	}
	next := cur
	return []model.Change{{
		Kind:      kind,
		Source:    source,
		Region:    region,
		OldScalar: clone(prev),
		NewScalar: &next,
	}}
}

// Snapshot returns one combined change when cases, deaths or notes differ.
func Snapshot(source string, prev *model.RegionSnapshot, cur model.RegionSnapshot) []model.Change {
	if prev != nil && prev.StatsEqual(cur) {
		return nil
	}
	next := cur
	return []model.Change{{
		Kind:        model.RegionStatsChanged,
		Source:      source,
		Region:      cur.Region,
		OldSnapshot: clone(prev),
		NewSnapshot: &next,
	}}
}

// News returns a change for every item whose link is neither in seen nor
// repeated earlier in items. Titles and dates are ignored; seen is not modified.
func News(source string, seen map[string]struct{}, items []model.NewsItem) []model.Change {
	var out []model.Change
	emitted := make(map[string]struct{}, len(items))
	for i := range items {
		link := items[i].Link
		if _, ok := seen[link]; ok {
			continue
		}
		if _, ok := emitted[link]; ok {
			continue
		}
		emitted[link] = struct{}{}
		item := items[i]
		out = append(out, model.Change{
			Kind:   model.NewNewsItem,
			Source: source,
			Item:   &item,
		})
	}
	return out
}

func clone[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
