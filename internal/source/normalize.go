package source

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"healthwatch/internal/model"
)

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006-01-02 15:04",
	"2 Jan 2006",
	"02 Jan 2006",
	"2 January 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"02-01-2006",
	time.RFC3339,
}

// ParseDate tries the known layouts. Dates without a zone are UTC.
func ParseDate(s string) (time.Time, bool) {
	s = collapseSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// ParseCount parses a scraped integer: thousands separators and surrounding
// text noise ("+", spaces) are ignored, empty means 0.
func ParseCount(s string) (int64, error) {
	s = strings.NewReplacer(",", "", " ", "", "\u00a0", "", "+", "").Replace(strings.TrimSpace(s))
	if s == "" || s == "-" {
		return 0, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("not a count: %q", s)
	}
	if n < 0 {
		return 0, fmt.Errorf("negative count: %d", n)
	}
	return n, nil
}

// Normalize converts a raw batch. Bad records are dropped and reported; they
// never fail the batch. Articles with an unparsable date get the Unix epoch so
// repeated runs keep producing the same row.
func Normalize(raw RawBatch) (model.Batch, []error) {
	var (
		out  model.Batch
		errs []error
	)
	for _, a := range raw.Articles {
		link := strings.TrimSpace(a.Link)
		if link == "" {
			errs = append(errs, fmt.Errorf("article %q: empty link", a.Title))
			continue
		}
		title := collapseSpace(a.Title)
		if title == "" {
			title = link
		}
		written, ok := ParseDate(a.Date)
		if !ok {
			written = time.Unix(0, 0).UTC()
		}
		out.News = append(out.News, model.NewsItem{Title: title, Link: link, WrittenAt: written})
	}

	for _, s := range raw.Scalars {
		feed := strings.TrimSpace(s.Feed)
		val := collapseSpace(s.Value)
		switch s.Kind {
		case model.ScalarConfirmedCases:
			n, err := ParseCount(val)
			if err != nil || val == "" {
				errs = append(errs, fmt.Errorf("scalar %s: %q unusable", feed, s.Value))
				continue
			}
			out.Scalars = append(out.Scalars, model.ScalarState{Feed: feed, Kind: s.Kind, Count: n})
		case model.ScalarAlertLevel:
			if val == "" {
				errs = append(errs, fmt.Errorf("scalar %s: empty", feed))
				continue
			}
			out.Scalars = append(out.Scalars, model.ScalarState{Feed: feed, Kind: s.Kind, Text: val})
		default:
			errs = append(errs, fmt.Errorf("scalar %s: unknown kind %d", feed, s.Kind))
		}
	}

	for _, r := range raw.Rows {
		region := collapseSpace(r.Region)
		if region == "" || strings.EqualFold(region, "TOTAL") {
			continue
		}
		cases, err := ParseCount(r.Cases)
		if err != nil {
			errs = append(errs, fmt.Errorf("region %s cases: %w", region, err))
			continue
		}
		deaths, err := ParseCount(r.Deaths)
		if err != nil {
			errs = append(errs, fmt.Errorf("region %s deaths: %w", region, err))
			continue
		}
		out.Snapshots = append(out.Snapshots, model.RegionSnapshot{
			Region: region,
			Cases:  cases,
			Deaths: deaths,
			Notes:  collapseSpace(r.Notes),
		})
	}
	return out, errs
}

func collapseSpace(s string) string { return strings.Join(strings.Fields(s), " ") }
