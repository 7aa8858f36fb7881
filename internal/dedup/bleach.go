package dedup

import (
	"regexp"
)

var (
	tagRe = regexp.MustCompile(`<[^>]+>`)

	// &lt; &gt; and &amp; stay escaped so the HTML notification template
	// keeps literal markup delimiters out of its own tags.
	entityReplacements = []struct {
		re   *regexp.Regexp
		with string
	}{
		{re: regexp.MustCompile(`(?i)&quot;`), with: `"`},
		{re: regexp.MustCompile(`(?i)&#039;`), with: `'`},
		{re: regexp.MustCompile("`"), with: `'`},
		{re: regexp.MustCompile(`(?i)&apos;`), with: `'`},
	}
)

// Bleach removes HTML tags and decodes the quote entities found in search
// result titles and descriptions.
func Bleach(text string) string {
	text = tagRe.ReplaceAllString(text, "")
	for _, r := range entityReplacements {
		text = r.re.ReplaceAllLiteralString(text, r.with)
	}
	return text
}
