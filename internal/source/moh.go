package source

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"healthwatch/internal/model"
)

const (
	FeedAlertLevel     = "DORSCON"
	FeedConfirmedCases = "CONFIRMED_CASES"
)

// MOH scrapes the Singapore Ministry of Health situation page: two feed-wide
// values from the summary table and the "Latest Updates" news table.
type MOH struct {
	name   string
	page   string
	client *resty.Client
}

func NewMOH(name, page string, client *resty.Client) *MOH {
	return &MOH{name: name, page: page, client: client}
}

func (s *MOH) Name() string { return s.name }

func (s *MOH) Fetch(ctx context.Context) (RawBatch, error) {
	doc, err := fetchDocument(ctx, s.client, s.page)
	if err != nil {
		return RawBatch{}, err
	}
	base, _ := url.Parse(s.page)

	var out RawBatch
	if v, ok := valueNextTo(doc, "Confirmed cases"); ok {
		out.Scalars = append(out.Scalars, RawScalar{Feed: FeedConfirmedCases, Kind: model.ScalarConfirmedCases, Value: v})
	}
	if v, ok := valueNextTo(doc, "DORSCON Level"); ok {
		out.Scalars = append(out.Scalars, RawScalar{Feed: FeedAlertLevel, Kind: model.ScalarAlertLevel, Value: v})
	}

	table := latestUpdates(doc)
	skipHeader(table.Find("tr")).Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() < 2 {
			return
		}
		title := cells.Eq(1)
		href, _ := title.Find("a").First().Attr("href")
		out.Articles = append(out.Articles, RawArticle{
			Date:  cellText(cells.Eq(0)),
			Title: cellText(title),
			Link:  resolve(base, href),
		})
	})

	if len(out.Scalars) == 0 && len(out.Articles) == 0 {
		return RawBatch{}, fmt.Errorf("%w: %s: no known markup", ErrUnavailable, s.name)
	}
	return out, nil
}

// valueNextTo returns the text of the cell following the cell labelled label.
// A span inside the value cell wins over the cell's full text.
func valueNextTo(doc *goquery.Document, label string) (string, bool) {
	cell := withOwnText(doc.Find("td *, td"), label).First().Closest("td")
	if cell.Length() == 0 {
		return "", false
	}
	next := cell.NextFiltered("td")
	if next.Length() == 0 {
		return "", false
	}
	if span := next.Find("span").First(); span.Length() > 0 && strings.TrimSpace(span.Text()) != "" {
		return cellText(span), true
	}
	return cellText(next), true
}

// withOwnText keeps the elements whose direct text nodes contain substr.
func withOwnText(sel *goquery.Selection, substr string) *goquery.Selection {
	return sel.FilterFunction(func(_ int, s *goquery.Selection) bool {
		var b strings.Builder
		s.Contents().Each(func(_ int, c *goquery.Selection) {
			if goquery.NodeName(c) == "#text" {
				b.WriteString(c.Text())
			}
		})
		return strings.Contains(b.String(), substr)
	})
}

func latestUpdates(doc *goquery.Document) *goquery.Selection {
	h := withOwnText(doc.Find("h3, h3 *"), "Latest Updates").First().Closest("h3")
	if h.Length() == 0 {
		return h
	}
	return h.Parent().Find("div table").First()
}
