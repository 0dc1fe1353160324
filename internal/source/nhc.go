package source

import (
	"context"
	"fmt"
	"net/url"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
)

// NHC scrapes the news list of the National Health Commission of China.
type NHC struct {
	name   string
	page   string
	client *resty.Client
}

func NewNHC(name, page string, client *resty.Client) *NHC {
	return &NHC{name: name, page: page, client: client}
}

func (s *NHC) Name() string { return s.name }

func (s *NHC) Fetch(ctx context.Context) (RawBatch, error) {
	doc, err := fetchDocument(ctx, s.client, s.page)
	if err != nil {
		return RawBatch{}, err
	}
	base, _ := url.Parse(s.page)

	list := doc.Find(".section-list > .list > ul")
	if list.Length() == 0 {
		return RawBatch{}, fmt.Errorf("%w: %s: news list not found", ErrUnavailable, s.name)
	}
	var out RawBatch
	list.First().Find("li").Each(func(_ int, li *goquery.Selection) {
		a := li.Find("a").First()
		href, _ := a.Attr("href")
		out.Articles = append(out.Articles, RawArticle{
			Title: cellText(a),
			Link:  resolve(base, href),
			Date:  cellText(li.Find(".list-date").First()),
		})
	})
	return out, nil
}
