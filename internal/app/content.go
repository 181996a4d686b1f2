// internal/app/content.go
package app

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxExcerptLength is the longest excerpt stored, in characters.
const MaxExcerptLength = 160

var (
	openingFence = regexp.MustCompile("^```[A-Za-z0-9_-]*[ \t]*\r?\n?")
	closingFence = regexp.MustCompile("\r?\n?```[ \t]*$")
	slugUnsafe   = regexp.MustCompile(`[^a-z0-9]+`)
)

// CleanContent strips code fences the model wraps HTML in, drops executable
// elements and removes a leading <h1> that repeats the title.
func CleanContent(content, title string) string {
	content = strings.TrimSpace(content)
	content = openingFence.ReplaceAllString(content, "")
	content = strings.TrimSpace(closingFence.ReplaceAllString(content, ""))
	if content == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return content
	}
	doc.Find("script, style, iframe").Remove()

	body := doc.Find("body")
	if first := body.Children().First(); first.Is("h1") && title != "" {
		if strings.EqualFold(normalizeSpace(first.Text()), normalizeSpace(title)) {
			first.Remove()
		}
	}

	out, err := body.Html()
	if err != nil {
		return content
	}
	return strings.TrimSpace(out)
}

// CleanTitle trims whitespace and surrounding quotes.
func CleanTitle(title string) string {
	title = trimQuotes(title)
	title = strings.TrimPrefix(title, "# ")
	return normalizeSpace(title)
}

// CleanExcerpt trims quotes and cuts the excerpt to MaxExcerptLength characters.
func CleanExcerpt(excerpt string) string {
	excerpt = normalizeSpace(trimQuotes(excerpt))
	if r := []rune(excerpt); len(r) > MaxExcerptLength {
		excerpt = strings.TrimSpace(string(r[:MaxExcerptLength]))
	}
	return excerpt
}

// Slugify builds a URL slug, folding accented letters to ASCII.
func Slugify(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	slug := slugUnsafe.ReplaceAllString(strings.ToLower(folded), "-")
	slug = strings.Trim(slug, "-")
	if r := []rune(slug); len(r) > 200 {
		slug = strings.Trim(string(r[:200]), "-")
	}
	return slug
}

func trimQuotes(s string) string {
	s = strings.TrimSpace(s)
	for _, q := range []string{`"`, `'`, "“", "”"} {
		s = strings.TrimPrefix(s, q)
		s = strings.TrimSuffix(s, q)
	}
	return strings.TrimSpace(s)
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
