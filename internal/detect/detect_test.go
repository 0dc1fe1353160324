package detect

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"healthwatch/internal/model"
)

func alert(v string) model.ScalarState {
	return model.ScalarState{Feed: "DORSCON", Kind: model.ScalarAlertLevel, Text: v}
}

func cases(n int64) model.ScalarState {
	return model.ScalarState{Feed: "CONFIRMED_CASES", Kind: model.ScalarConfirmedCases, Count: n}
}

func TestScalar(t *testing.T) {
	t.Run("absent previous announces baseline", func(t *testing.T) {
		got := Scalar("MOH", "Singapore", nil, alert("Yellow"))
		require.Len(t, got, 1)
		assert.Equal(t, model.AlertLevelChanged, got[0].Kind)
		assert.Nil(t, got[0].OldScalar)
		assert.Equal(t, "Yellow", got[0].NewScalar.Text)
		assert.True(t, got[0].Baseline())
	})

	t.Run("equal value is silent", func(t *testing.T) {
		prev := alert("Yellow")
		assert.Empty(t, Scalar("MOH", "Singapore", &prev, alert("Yellow")))
	})

	t.Run("strict string comparison", func(t *testing.T) {
		prev := alert("Yellow")
		got := Scalar("MOH", "Singapore", &prev, alert("yellow"))
		require.Len(t, got, 1)
		assert.Equal(t, "Yellow", got[0].OldScalar.Text)
	})

	t.Run("counter change", func(t *testing.T) {
		prev := cases(45)
		got := Scalar("MOH", "Singapore", &prev, cases(47))
		require.Len(t, got, 1)
		assert.Equal(t, model.ConfirmedCasesChanged, got[0].Kind)
		assert.Equal(t, int64(45), got[0].OldScalar.Count)
		assert.Equal(t, int64(47), got[0].NewScalar.Count)
		assert.False(t, got[0].Baseline())
	})

	t.Run("previous is copied", func(t *testing.T) {
		prev := cases(1)
		got := Scalar("MOH", "Singapore", &prev, cases(2))
		prev.Count = 100
		assert.Equal(t, int64(1), got[0].OldScalar.Count)
	})
}

func TestSnapshot(t *testing.T) {
	prev := model.RegionSnapshot{Region: "Singapore", Cases: 10, Deaths: 2, Notes: "x"}

	t.Run("identical snapshot is silent", func(t *testing.T) {
		cur := model.RegionSnapshot{Region: "Singapore", Cases: 10, Deaths: 2, Notes: "x"}
		assert.Empty(t, Snapshot("BNO", &prev, cur))
	})

	t.Run("one combined change", func(t *testing.T) {
		cur := model.RegionSnapshot{Region: "Singapore", Cases: 11, Deaths: 3, Notes: "y"}
		got := Snapshot("BNO", &prev, cur)
		want := []model.Change{{
			Kind:        model.RegionStatsChanged,
			Source:      "BNO",
			Region:      "Singapore",
			OldSnapshot: &prev,
			NewSnapshot: &cur,
		}}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("Snapshot() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("each field counts", func(t *testing.T) {
		for _, cur := range []model.RegionSnapshot{
			{Region: "Singapore", Cases: 11, Deaths: 2, Notes: "x"},
			{Region: "Singapore", Cases: 10, Deaths: 3, Notes: "x"},
			{Region: "Singapore", Cases: 10, Deaths: 2, Notes: "y"},
		} {
			assert.Len(t, Snapshot("BNO", &prev, cur), 1, "%+v", cur)
		}
	})

	t.Run("optional fields are not compared", func(t *testing.T) {
		level := "Orange"
		cur := prev
		cur.AlertLevel = &level
		assert.Empty(t, Snapshot("BNO", &prev, cur))
	})

	t.Run("first observation", func(t *testing.T) {
		got := Snapshot("BNO", nil, prev)
		require.Len(t, got, 1)
		assert.True(t, got[0].Baseline())
	})
}

func TestNews(t *testing.T) {
	seen := map[string]struct{}{"a": {}}
	items := []model.NewsItem{
		{Title: "A renamed", Link: "a"},
		{Title: "B", Link: "b"},
		{Title: "C", Link: "c"},
		{Title: "B again", Link: "b"},
	}

	got := News("NHC", seen, items)

	links := make([]string, 0, len(got))
	for _, c := range got {
		assert.Equal(t, model.NewNewsItem, c.Kind)
		assert.Equal(t, "NHC", c.Source)
		links = append(links, c.Item.Link)
	}
	assert.Equal(t, []string{"b", "c"}, links)
	assert.Equal(t, "B", got[0].Item.Title)
	assert.Len(t, seen, 1, "seen set must not be mutated")
}

func TestNewsEmptySeenAnnouncesEverything(t *testing.T) {
	got := News("MOH", nil, []model.NewsItem{{Link: "x"}, {Link: "y"}})
	assert.Len(t, got, 2)
}
