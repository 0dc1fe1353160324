package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	body := `
logging: {level: error}
transport: {driver: console}
storage: {driver: sqlite, path: "` + filepath.Join(dir, "hw.db") + `"}
sources:
  - {name: BNO, adapter: bno, url: "http://127.0.0.1:1/cases"}
`
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func run(t *testing.T, cfg string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", cfg, "--log-level", "ERROR"}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSubscribeLifecycle(t *testing.T) {
	cfg := writeConfig(t)

	_, err := run(t, cfg, "subscribe", "42", "Singapore")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown region")

	out, err := run(t, cfg, "subscribe", "--create", "42", "Singapore")
	require.NoError(t, err)
	assert.Contains(t, out, "chat 42 subscribed to Singapore")

	out, err = run(t, cfg, "subscribe", "42", "Singapore")
	require.NoError(t, err)
	assert.Contains(t, out, "already subscribed")

	out, err = run(t, cfg, "subscriptions", "42")
	require.NoError(t, err)
	assert.Contains(t, out, "Singapore")

	out, err = run(t, cfg, "regions")
	require.NoError(t, err)
	assert.Contains(t, out, "Singapore")

	out, err = run(t, cfg, "unsubscribe", "42", "Singapore")
	require.NoError(t, err)
	assert.Contains(t, out, "unsubscribed")

	_, err = run(t, cfg, "unsubscribe", "42", "Singapore")
	assert.Error(t, err)
}

func TestChatIDMustBeInteger(t *testing.T) {
	_, err := run(t, writeConfig(t), "subscriptions", "abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be an integer")
}

func TestStatusEmpty(t *testing.T) {
	out, err := run(t, writeConfig(t), "status")
	require.NoError(t, err)
	assert.Contains(t, out, "SOURCE")
}

func TestConfigCheckAndExample(t *testing.T) {
	out, err := run(t, writeConfig(t), "config", "check")
	require.NoError(t, err)
	assert.Contains(t, out, "config ok: transport=console")
	assert.Contains(t, out, "BNO")

	out, err = run(t, writeConfig(t), "config", "example")
	require.NoError(t, err)
	assert.Contains(t, out, `"sources"`)
}

func TestConfigCheckRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sources: []\n"), 0o600))
	_, err := run(t, path, "config", "check")
	assert.Error(t, err)
}
