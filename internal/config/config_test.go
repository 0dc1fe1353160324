package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logx "healthwatch/pkg/logx"
)

const minimalYAML = `
transport:
  driver: console
sources:
  - name: BNO
    adapter: bno
    url: https://example.org/cases
  - name: MOH
    adapter: moh
    url: https://example.org/moh
    regions: [Singapore]
    timeout: 5s
`

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func noEnv(string) string { return "" }

func TestLoadYAMLFillsDefaults(t *testing.T) {
	m := NewManager(writeFile(t, "healthwatch.yaml", minimalYAML))
	m.SetEnv(noEnv)
	rt, err := m.Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", rt.Raw.Storage.Driver)
	assert.Equal(t, "sql", rt.Raw.State.Driver)
	assert.Equal(t, time.Second, rt.Pace)
	assert.Equal(t, 10*time.Minute, rt.RunTimeout)
	assert.True(t, rt.DisablePreview)
	assert.True(t, rt.LogConsole)
	require.Len(t, rt.Sources, 2)
	assert.Equal(t, 30*time.Second, rt.Sources[0].Timeout)
	assert.Equal(t, 5*time.Second, rt.Sources[1].Timeout)
	assert.Equal(t, []string{"Singapore"}, rt.Sources[1].Regions)
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	_, err := Decode("c.json", []byte(`{"transport":{"driver":"console"},"bogus":1}`))
	require.ErrorIs(t, err, ErrInvalid)

	_, err = Decode("c.json", []byte(`{"transport":{"driver":"console"}} {}`))
	require.ErrorIs(t, err, ErrInvalid)
}

func TestEnvOverrides(t *testing.T) {
	m := NewManager(writeFile(t, "c.yaml", `
transport: {driver: telegram}
sources:
  - {name: BNO, adapter: bno, url: "https://example.org/cases"}
`))
	env := map[string]string{
		EnvTelegramToken: "123:abc",
		EnvDatabaseURL:   "postgres://hw:pw@db/hw?sslmode=disable",
		EnvRedisURL:      "redis://cache:6379/2",
	}
	m.SetEnv(func(k string) string { return env[k] })
	rt, err := m.Load()
	require.NoError(t, err)
	assert.Equal(t, "123:abc", rt.Raw.Telegram.Token)
	assert.Equal(t, "postgres", rt.Raw.Storage.Driver)
	assert.Equal(t, env[EnvDatabaseURL], rt.Raw.Storage.DSN)
	assert.Equal(t, "redis", rt.Raw.State.Driver)
	assert.Equal(t, "redis://cache:6379/2", rt.Raw.State.Redis.URL)
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"no sources", func(c *Config) { c.Sources = nil }},
		{"duplicate source", func(c *Config) { c.Sources = append(c.Sources, c.Sources[0]) }},
		{"unknown adapter", func(c *Config) { c.Sources[0].Adapter = "who" }},
		{"telegram without token", func(c *Config) { c.Transport.Driver = "telegram" }},
		{"bad schedule", func(c *Config) { c.Scheduler.Schedule = "sometimes" }},
		{"negative pace", func(c *Config) { c.Notify.Pace = "-1s" }},
		{"unknown state", func(c *Config) { c.State.Driver = "etcd" }},
		{"redis without url", func(c *Config) { c.State.Driver = "redis" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Example()
			c.Transport.Driver = "console"
			tt.mutate(&c)
			_, err := Resolve(&c)
			require.ErrorIs(t, err, ErrInvalid)
		})
	}

	c := Example()
	c.Transport.Driver = "console"
	_, err := Resolve(&c)
	require.NoError(t, err)
}

func TestSummarizeChange(t *testing.T) {
	a := Example()
	b := Example()
	b.Notify.Pace = "2s"
	b.Sources = b.Sources[:1]
	changed, restart := SummarizeChange(&a, &b)
	assert.Equal(t, []string{"notify", "sources"}, changed)
	assert.Equal(t, []string{"sources"}, restart)
}

func TestWatchPublishesValidReloads(t *testing.T) {
	path := writeFile(t, "healthwatch.yaml", minimalYAML)
	m := NewManager(path)
	m.SetEnv(noEnv)
	m.SetLogger(logx.Nop())
	_, err := m.Load()
	require.NoError(t, err)

	ch := m.Subscribe(1)
	defer m.Unsubscribe(ch)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = m.Watch(ctx) }()
	time.Sleep(100 * time.Millisecond)

	// Invalid content is never published.
	require.NoError(t, os.WriteFile(path, []byte("sources: []\n"), 0o600))
	time.Sleep(600 * time.Millisecond)
	select {
	case <-ch:
		t.Fatal("invalid config was published")
	default:
	}

	require.NoError(t, os.WriteFile(path, []byte(minimalYAML+"notify: {pace: 3s}\n"), 0o600))
	select {
	case rt := <-ch:
		assert.Equal(t, 3*time.Second, rt.Pace)
	case <-time.After(3 * time.Second):
		t.Fatal("no reload published")
	}
}
