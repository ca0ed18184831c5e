package ingest

import (
	"regexp"
	"strings"

	"github.com/yourschools/ingest-cli/internal/normalize"
)

var (
	tagRe = regexp.MustCompile(`<[^>]+>`)

	entityReplacer = strings.NewReplacer(
		"&amp;", "&",
		"&quot;", `"`,
		"&#39;", "'",
		"&nbsp;", " ",
		"&lt;", "<",
		"&gt;", ">",
	)
)

// DecodeEntities resolves the handful of HTML entities state licensing pages
// actually emit.
func DecodeEntities(s string) string {
	return entityReplacer.Replace(s)
}

// StripTags decodes entities, removes markup, and compacts whitespace.
func StripTags(s string) string {
	return normalize.CompactWhitespace(tagRe.ReplaceAllString(DecodeEntities(s), " "))
}

// ExtractLabeledValue pulls the value cell that follows a label cell in a
// detail-page table, e.g. the capacity next to a "Capacity" <td>. Returns ""
// when the label is absent or its value cell is empty.
func ExtractLabeledValue(html, label string) string {
	pattern := regexp.MustCompile(
		`(?i)<td[^>]*>\s*(?:<[^>]+>\s*)*` + regexp.QuoteMeta(label) +
			`\s*:?[\s\S]*?</td>\s*<td[^>]*>([\s\S]*?)</td>`)
	m := pattern.FindStringSubmatch(html)
	if m == nil {
		return ""
	}
	return StripTags(m[1])
}
