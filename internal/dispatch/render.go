package dispatch

import (
	"fmt"
	"strconv"
	"strings"

	"healthwatch/internal/model"
)

const absent = "n/a"

var (
	markdownEscaper = strings.NewReplacer("_", `\_`, "*", `\*`, "`", "\\`", "[", `\[`, "]", `\]`)
	// A bare ")" would close the link target early.
	linkEscaper = strings.NewReplacer(")", "%29", " ", "%20")
)

// escape makes free text safe inside legacy Telegram Markdown.
func escape(s string) string { return markdownEscaper.Replace(s) }

// code renders a value inside backticks; backticks in the value would end the span.
func code(s string) string { return "`" + strings.ReplaceAll(s, "`", "'") + "`" }

// renderNews joins the items of one source, one link per paragraph.
func renderNews(changes []model.Change) string {
	lines := make([]string, 0, len(changes))
	for _, c := range changes {
		if c.Item == nil {
			continue
		}
		lines = append(lines, fmt.Sprintf("[%s](%s)", escape(c.Item.Title), linkEscaper.Replace(c.Item.Link)))
	}
	return strings.Join(lines, "\n\n")
}

func renderScalar(c model.Change) string {
	old := absent
	if c.OldScalar != nil {
		old = c.OldScalar.String()
	}
	cur := c.NewScalar.String()
	if c.Kind == model.ConfirmedCasesChanged {
		return fmt.Sprintf("*UPDATE:* The %s's number of confirmed cases changed from %s → %s",
			escape(c.Source), code(old), code(cur))
	}
	return fmt.Sprintf("*UPDATE:* The %s level changed from %s → %s",
		escape(c.NewScalar.Feed), code(old), code(cur))
}

func renderSnapshot(c model.Change) string {
	oldCases, oldDeaths, oldNotes := absent, absent, absent
	if o := c.OldSnapshot; o != nil {
		oldCases = strconv.FormatInt(o.Cases, 10)
		oldDeaths = strconv.FormatInt(o.Deaths, 10)
		oldNotes = o.Notes
	}
	n := c.NewSnapshot
	var b strings.Builder
	fmt.Fprintf(&b, "*UPDATE:* _%s_\n", escape(c.Region))
	fmt.Fprintf(&b, "Cases: %s → %s\n", code(oldCases), code(strconv.FormatInt(n.Cases, 10)))
	fmt.Fprintf(&b, "Deaths: %s → %s\n", code(oldDeaths), code(strconv.FormatInt(n.Deaths, 10)))
	fmt.Fprintf(&b, "Notes: %s → %s", code(oldNotes), code(n.Notes))
	return b.String()
}

// Render returns the message text of a group. All changes of a group share a kind.
func Render(group []model.Change) string {
	if len(group) == 0 {
		return ""
	}
	c := group[0]
	switch c.Kind {
	case model.NewNewsItem:
		return renderNews(group)
	case model.AlertLevelChanged, model.ConfirmedCasesChanged:
		if c.NewScalar == nil {
			return ""
		}
		return renderScalar(c)
	case model.RegionStatsChanged:
		if c.NewSnapshot == nil {
			return ""
		}
		return renderSnapshot(c)
	default:
		return ""
	}
}
