package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"healthwatch/internal/model"
	"healthwatch/internal/transport"
	logx "healthwatch/pkg/logx"
)

type sent struct {
	chat int64
	text string
	at   time.Time
}

type fakeSender struct {
	mu    sync.Mutex
	sent  []sent
	fail  map[int64]error
	calls map[int64]int
}

func newFakeSender() *fakeSender {
	return &fakeSender{fail: map[int64]error{}, calls: map[int64]int{}}
}

func (f *fakeSender) SendText(_ context.Context, to transport.ChatTarget, text string, _ *transport.SendOptions) (transport.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[to.ChatID]++
	if err := f.fail[to.ChatID]; err != nil {
		return transport.MessageRef{}, err
	}
	f.sent = append(f.sent, sent{chat: to.ChatID, text: text, at: time.Now()})
	return transport.MessageRef{ChatID: to.ChatID, MessageID: len(f.sent)}, nil
}

func recipients(ids ...int64) RecipientsFunc {
	return func(context.Context, model.Change) ([]model.Recipient, error) {
		out := make([]model.Recipient, 0, len(ids))
		for _, id := range ids {
			out = append(out, model.Recipient{ChatID: id})
		}
		return out, nil
	}
}

func newsChange(source, title, link string) model.Change {
	return model.Change{Kind: model.NewNewsItem, Source: source, Item: &model.NewsItem{Title: title, Link: link}}
}

func dorscon(old, cur string) model.Change {
	c := model.Change{
		Kind:      model.AlertLevelChanged,
		Source:    "MOH",
		Region:    "Singapore",
		NewScalar: &model.ScalarState{Feed: "DORSCON", Kind: model.ScalarAlertLevel, Text: cur},
	}
	if old != "" {
		c.OldScalar = &model.ScalarState{Feed: "DORSCON", Kind: model.ScalarAlertLevel, Text: old}
	}
	return c
}

func TestNewsOfOneSourceIsOneMessage(t *testing.T) {
	fs := newFakeSender()
	d := New(Config{}, fs, logx.Nop())
	rep := d.Dispatch(context.Background(), []model.Change{
		newsChange("NHC", "a", "http://x/a"),
		newsChange("NHC", "b", "http://x/b"),
	}, recipients(1, 2, 1))

	assert.Equal(t, 1, rep.Groups)
	assert.Equal(t, 2, rep.Sent)
	require.Len(t, fs.sent, 2)
	assert.Equal(t, "[a](http://x/a)\n\n[b](http://x/b)", fs.sent[0].text)
	assert.Equal(t, int64(1), fs.sent[0].chat)
	assert.Equal(t, int64(2), fs.sent[1].chat)
}

func TestGroupKeepsFirstPosition(t *testing.T) {
	groups := Group([]model.Change{
		newsChange("NHC", "a", "/a"),
		dorscon("Yellow", "Orange"),
		newsChange("NHC", "b", "/b"),
		newsChange("MOH", "c", "/c"),
	})
	require.Len(t, groups, 3)
	assert.Len(t, groups[0], 2)
	assert.Equal(t, model.AlertLevelChanged, groups[1][0].Kind)
	assert.Equal(t, "MOH", groups[2][0].Source)
}

func TestRender(t *testing.T) {
	tests := []struct {
		name string
		c    model.Change
		want string
	}{
		{
			name: "alert level",
			c:    dorscon("Yellow", "Orange"),
			want: "*UPDATE:* The DORSCON level changed from `Yellow` → `Orange`",
		},
		{
			name: "alert level first observation",
			c:    dorscon("", "Yellow"),
			want: "*UPDATE:* The DORSCON level changed from `n/a` → `Yellow`",
		},
		{
			name: "confirmed cases",
			c: model.Change{
				Kind:      model.ConfirmedCasesChanged,
				Source:    "MOH",
				OldScalar: &model.ScalarState{Feed: "CONFIRMED_CASES", Kind: model.ScalarConfirmedCases, Count: 43},
				NewScalar: &model.ScalarState{Feed: "CONFIRMED_CASES", Kind: model.ScalarConfirmedCases, Count: 45},
			},
			want: "*UPDATE:* The MOH's number of confirmed cases changed from `43` → `45`",
		},
		{
			name: "region snapshot",
			c: model.Change{
				Kind:        model.RegionStatsChanged,
				Source:      "BNO",
				Region:      "Singapore",
				OldSnapshot: &model.RegionSnapshot{Region: "Singapore", Cases: 10, Deaths: 0, Notes: "x"},
				NewSnapshot: &model.RegionSnapshot{Region: "Singapore", Cases: 12, Deaths: 0, Notes: "x"},
			},
			want: "*UPDATE:* _Singapore_\nCases: `10` → `12`\nDeaths: `0` → `0`\nNotes: `x` → `x`",
		},
		{
			name: "news title escaped",
			c:    newsChange("NHC", "2019_nCoV *update*", "http://x/a"),
			want: `[2019\_nCoV \*update\*](http://x/a)`,
		},
		{
			name: "brackets and parentheses keep the link intact",
			c:    newsChange("NHC", "Update [1]", "http://x/wiki/Outbreak_(2020)"),
			want: `[Update \[1\]](http://x/wiki/Outbreak_(2020%29)`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Render([]model.Change{tt.c}))
		})
	}
}

func TestPacingAcrossAllSends(t *testing.T) {
	const pace = 40 * time.Millisecond
	fs := newFakeSender()
	d := New(Config{Pace: pace}, fs, logx.Nop())

	start := time.Now()
	rep := d.Dispatch(context.Background(), []model.Change{dorscon("Yellow", "Orange"), dorscon("Orange", "Red")}, recipients(1, 2))
	elapsed := time.Since(start)

	require.Equal(t, 4, rep.Sent)
	assert.GreaterOrEqual(t, elapsed, 3*pace-5*time.Millisecond)
	for i := 1; i < len(fs.sent); i++ {
		gap := fs.sent[i].at.Sub(fs.sent[i-1].at)
		assert.GreaterOrEqual(t, gap, pace-5*time.Millisecond, "gap %d", i)
	}
}

func TestFailureDoesNotStopOthers(t *testing.T) {
	fs := newFakeSender()
	fs.fail[2] = fmt.Errorf("%w: blocked", transport.ErrUnreachable)
	fs.fail[3] = errors.New("timeout")
	d := New(Config{RetryMax: 2}, fs, logx.Nop())
	d.backoff = func(int) time.Duration { return time.Millisecond }

	rep := d.Dispatch(context.Background(), []model.Change{dorscon("Yellow", "Orange")}, recipients(1, 2, 3, 4))
	assert.Equal(t, 2, rep.Sent)
	assert.Equal(t, 2, rep.Failed)
	assert.Equal(t, 1, fs.calls[2], "unreachable recipients are not retried")
	assert.Equal(t, 3, fs.calls[3])
	require.Len(t, fs.sent, 2)
	assert.Equal(t, int64(4), fs.sent[1].chat)
}

func TestSuppressBaseline(t *testing.T) {
	fs := newFakeSender()
	d := New(Config{SuppressBaseline: true}, fs, logx.Nop())
	rep := d.Dispatch(context.Background(), []model.Change{dorscon("", "Yellow"), newsChange("MOH", "a", "/a")}, recipients(1))
	assert.Equal(t, 1, rep.Suppressed)
	assert.Equal(t, 1, rep.Sent)
}

func TestRecipientErrorSkipsGroup(t *testing.T) {
	fs := newFakeSender()
	d := New(Config{}, fs, logx.Nop())
	calls := 0
	rep := d.Dispatch(context.Background(), []model.Change{dorscon("A", "B"), dorscon("B", "C")}, func(context.Context, model.Change) ([]model.Recipient, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("db down")
		}
		return []model.Recipient{{ChatID: 9}}, nil
	})
	assert.Equal(t, 1, rep.Sent)
	require.Len(t, fs.sent, 1)
	assert.Contains(t, fs.sent[0].text, "`C`")
}

func TestCancelledContextStops(t *testing.T) {
	fs := newFakeSender()
	d := New(Config{Pace: time.Hour}, fs, logx.Nop())
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	rep := d.Dispatch(ctx, []model.Change{dorscon("A", "B")}, recipients(1, 2, 3))
	assert.Equal(t, 1, rep.Sent)
	assert.Zero(t, rep.Failed)
}
