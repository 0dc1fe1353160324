package opsserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logx "healthwatch/pkg/logx"
)

func newServer(t *testing.T, cfg Config) *httptest.Server {
	t.Helper()
	reg := prometheus.NewRegistry()
	promauto.With(reg).NewCounter(prometheus.CounterOpts{Name: "hw_test_total", Help: "test"}).Inc()

	s := New(cfg, reg, logx.Nop())
	s.AddCheck("storage", func(context.Context) error { return nil })
	s.SetStatus(func() any { return map[string]int{"runs": 3} })
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestHealthzOK(t *testing.T) {
	ts := newServer(t, Config{})

	res, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var body healthResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	assert.True(t, body.OK)
	assert.Equal(t, "ok", body.Checks["storage"])
	assert.NotNil(t, body.Status)
}

func TestHealthzFailingCheck(t *testing.T) {
	s := New(Config{}, nil, logx.Nop())
	s.AddCheck("state", func(context.Context) error { return errors.New("redis down") })

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "redis down")
}

func TestMetricsExposesRegistry(t *testing.T) {
	ts := newServer(t, Config{})

	res, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, string(body), "hw_test_total 1")
}

func TestTokenRequired(t *testing.T) {
	ts := newServer(t, Config{Token: "s3cret"})

	res, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/healthz", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	res, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)

	res, err = http.Get(ts.URL + "/healthz?token=wrong")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestPprofOnlyWhenEnabled(t *testing.T) {
	off := newServer(t, Config{})
	res, err := http.Get(off.URL + "/debug/pprof/")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	on := newServer(t, Config{Pprof: true})
	res, err = http.Get(on.URL + "/debug/pprof/cmdline")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestServeRefusesPublicBindWithoutToken(t *testing.T) {
	s := New(Config{Addr: "0.0.0.0:0"}, nil, logx.Nop())
	err := s.Serve(context.Background())
	assert.ErrorIs(t, err, ErrInsecureBind)
}

func TestServeStopsOnCancel(t *testing.T) {
	s := New(Config{Addr: "127.0.0.1:0"}, nil, logx.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- s.Serve(ctx) }()
	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)
}

func TestIsLoopbackAddr(t *testing.T) {
	cases := map[string]bool{
		"127.0.0.1:9090": true,
		"localhost:9090": true,
		"[::1]:9090":     true,
		":9090":          false,
		"0.0.0.0:9090":   false,
		"10.0.0.5:9090":  false,
		"garbage":        false,
	}
	for addr, want := range cases {
		assert.Equal(t, want, isLoopbackAddr(addr), addr)
	}
}
