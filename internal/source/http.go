package source

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
)

type HTTPConfig struct {
	Timeout   time.Duration
	UserAgent string
	Retries   int
}

// NewClient returns the resty client shared by all adapters.
func NewClient(cfg HTTPConfig) *resty.Client {
	c := resty.New()
	if cfg.Timeout > 0 {
		c.SetTimeout(cfg.Timeout)
	}
	ua := strings.TrimSpace(cfg.UserAgent)
	if ua == "" {
		ua = "healthwatch/1.0"
	}
	c.SetHeader("User-Agent", ua)
	if cfg.Retries > 0 {
		c.SetRetryCount(cfg.Retries).
			SetRetryWaitTime(500 * time.Millisecond).
			SetRetryMaxWaitTime(3 * time.Second)
	}
	return c
}

// fetchDocument GETs page and parses it as HTML.
func fetchDocument(ctx context.Context, client *resty.Client, page string) (*goquery.Document, error) {
	res, err := client.R().
		SetContext(ctx).
		Get(page)
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %w", ErrUnavailable, page, err)
	}
	if res.IsError() {
		return nil, fmt.Errorf("%w: get %s: http %d", ErrUnavailable, page, res.StatusCode())
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %w", ErrUnavailable, page, err)
	}
	return doc, nil
}

// resolve makes href absolute against the page it was found on.
func resolve(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base == nil {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}

func cellText(s *goquery.Selection) string {
	return collapseSpace(s.Text())
}

// skipHeader drops the first row of a table selection.
func skipHeader(rows *goquery.Selection) *goquery.Selection {
	if rows.Length() == 0 {
		return rows
	}
	return rows.Slice(1, goquery.ToEnd)
}
