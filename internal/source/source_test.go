package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"healthwatch/internal/model"
)

func serveFixture(t *testing.T, name string) *httptest.Server {
	t.Helper()
	body, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testClient() *resty.Client { return NewClient(HTTPConfig{Timeout: 5 * time.Second}) }

func TestNHCFetch(t *testing.T) {
	srv := serveFixture(t, "nhc.html")
	f, err := Build(Spec{Name: "NHC", Adapter: "nhc", URL: srv.URL + "/news.html"}, testClient())
	require.NoError(t, err)

	raw, err := f.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, raw.Articles, 2)
	assert.Equal(t, srv.URL+"/2020-02/10/c_76416.htm", raw.Articles[0].Link)
	assert.Equal(t, "Daily briefing on novel coronavirus cases in China", raw.Articles[0].Title)
	assert.Equal(t, "2020-02-10", raw.Articles[0].Date)
	assert.Equal(t, "http://en.nhc.gov.cn/2020-02/09/c_76400.htm", raw.Articles[1].Link)
}

func TestMOHFetch(t *testing.T) {
	srv := serveFixture(t, "moh.html")
	f, err := Build(Spec{Name: "MOH", Adapter: "moh", URL: srv.URL + "/2019-ncov-wuhan"}, testClient())
	require.NoError(t, err)

	raw, err := f.Fetch(context.Background())
	require.NoError(t, err)

	batch, errs := Normalize(raw)
	require.Empty(t, errs)
	require.Len(t, batch.Scalars, 2)
	assert.Equal(t, model.ScalarState{Feed: FeedConfirmedCases, Kind: model.ScalarConfirmedCases, Count: 1045}, batch.Scalars[0])
	assert.Equal(t, model.ScalarState{Feed: FeedAlertLevel, Kind: model.ScalarAlertLevel, Text: "Orange"}, batch.Scalars[1])

	require.Len(t, batch.News, 2)
	assert.Equal(t, srv.URL+"/news-highlights/details/confirmed-imported-case", batch.News[0].Link)
	assert.Equal(t, time.Date(2020, 2, 10, 0, 0, 0, 0, time.UTC), batch.News[0].WrittenAt)
}

func TestBNOFetch(t *testing.T) {
	srv := serveFixture(t, "bno.html")
	f, err := Build(Spec{Name: "BNO", Adapter: "bno", URL: srv.URL}, testClient())
	require.NoError(t, err)

	raw, err := f.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, raw.Rows, 5)

	batch, errs := Normalize(raw)
	assert.Len(t, errs, 1, "Japan has an unusable case count")
	require.Len(t, batch.Snapshots, 3)
	assert.Equal(t, model.RegionSnapshot{Region: "Hubei province", Cases: 29631, Deaths: 871, Notes: "4,000 serious"}, batch.Snapshots[0])
	assert.Equal(t, "Singapore", batch.Snapshots[2].Region)
}

func TestFetchHTTPErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	_, err := NewBNO("BNO", srv.URL, testClient()).Fetch(context.Background())
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestFetchMissingMarkupIsUnavailable(t *testing.T) {
	srv := serveFixture(t, "bno.html")
	_, err := NewNHC("NHC", srv.URL, testClient()).Fetch(context.Background())
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestBuildUnknownAdapter(t *testing.T) {
	_, err := Build(Spec{Name: "X", Adapter: "who", URL: "http://x"}, NewClient(HTTPConfig{}))
	require.ErrorIs(t, err, ErrUnknownAdapter)
}

func TestParseCount(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"29,631", 29631, false},
		{" 43 ", 43, false},
		{"", 0, false},
		{"+12", 12, false},
		{"n/a", 0, true},
		{"-3", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseCount(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestNormalizeArticles(t *testing.T) {
	batch, errs := Normalize(RawBatch{Articles: []RawArticle{
		{Title: "  Spaced \n title ", Link: "http://x/a", Date: "February 9, 2020"},
		{Title: "no link", Link: " "},
		{Title: "odd date", Link: "http://x/b", Date: "yesterday"},
	}})
	require.Len(t, errs, 1)
	require.Len(t, batch.News, 2)
	assert.Equal(t, "Spaced title", batch.News[0].Title)
	assert.Equal(t, time.Date(2020, 2, 9, 0, 0, 0, 0, time.UTC), batch.News[0].WrittenAt)
	assert.Equal(t, time.Unix(0, 0).UTC(), batch.News[1].WrittenAt)
}
