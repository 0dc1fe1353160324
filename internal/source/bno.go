package source

import (
	"context"
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
)

// BNO scrapes the per-region case tables published by BNO News.
type BNO struct {
	name   string
	page   string
	client *resty.Client
}

func NewBNO(name, page string, client *resty.Client) *BNO {
	return &BNO{name: name, page: page, client: client}
}

func (s *BNO) Name() string { return s.name }

func (s *BNO) Fetch(ctx context.Context) (RawBatch, error) {
	doc, err := fetchDocument(ctx, s.client, s.page)
	if err != nil {
		return RawBatch{}, err
	}
	tables := doc.Find(".wp-block-table")
	if tables.Length() == 0 {
		return RawBatch{}, fmt.Errorf("%w: %s: no tables", ErrUnavailable, s.name)
	}
	var out RawBatch
	tables.Each(func(_ int, table *goquery.Selection) {
		skipHeader(table.Find("tr")).Each(func(_ int, tr *goquery.Selection) {
			cells := tr.Find("td")
			if cells.Length() < 3 {
				return
			}
			row := RawRegionRow{
				Region: cellText(cells.Eq(0)),
				Cases:  cells.Eq(1).Text(),
				Deaths: cells.Eq(2).Text(),
			}
			if cells.Length() > 3 {
				row.Notes = cells.Eq(3).Text()
			}
			out.Rows = append(out.Rows, row)
		})
	})
	return out, nil
}
