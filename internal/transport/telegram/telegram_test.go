package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"healthwatch/internal/transport"
	logx "healthwatch/pkg/logx"
)

func fakeBotAPI(t *testing.T, handler func(method string, form map[string]any) string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
		form := map[string]any{}
		_ = json.NewDecoder(r.Body).Decode(&form)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(handler(method, form)))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSendText(t *testing.T) {
	var got map[string]any
	srv := fakeBotAPI(t, func(method string, form map[string]any) string {
		if method != "sendMessage" {
			return `{"ok":false,"error_code":404,"description":"Not Found"}`
		}
		got = form
		return `{"ok":true,"result":{"message_id":7,"date":0,"chat":{"id":42,"type":"private"},"text":"hi"}}`
	})

	s, err := New(Config{Token: "123:abc", APIURL: srv.URL, Offline: true}, logx.Nop())
	require.NoError(t, err)

	ref, err := s.SendText(context.Background(), transport.ChatTarget{ChatID: 42}, "*UPDATE:* hi", &transport.SendOptions{ParseMode: "Markdown"})
	require.NoError(t, err)
	assert.Equal(t, 7, ref.MessageID)
	assert.Equal(t, int64(42), ref.ChatID)
	assert.Equal(t, "*UPDATE:* hi", got["text"])
	assert.Equal(t, "Markdown", got["parse_mode"])
}

func TestSendTextBlockedIsUnreachable(t *testing.T) {
	srv := fakeBotAPI(t, func(string, map[string]any) string {
		return `{"ok":false,"error_code":403,"description":"Forbidden: bot was blocked by the user"}`
	})
	s, err := New(Config{Token: "123:abc", APIURL: srv.URL, Offline: true}, logx.Nop())
	require.NoError(t, err)

	_, err = s.SendText(context.Background(), transport.ChatTarget{ChatID: 42}, "x", nil)
	require.ErrorIs(t, err, transport.ErrUnreachable)
}

func TestNewRequiresToken(t *testing.T) {
	_, err := New(Config{Token: " "}, logx.Nop())
	require.Error(t, err)
}
