package analysis

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var markdownRules = []struct {
	pattern     *regexp.Regexp
	replacement string
}{
	{regexp.MustCompile(`\*\*(.*?)\*\*`), "$1"},
	{regexp.MustCompile(`\*(.*?)\*`), "$1"},
	{regexp.MustCompile(`__(.*?)__`), "$1"},
	{regexp.MustCompile(`_(.*?)_`), "$1"},
	{regexp.MustCompile("`(.*?)`"), "$1"},
	{regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`), "$1"},
	{regexp.MustCompile(`\[([^\]]+)\]`), "$1"},
}

var htmlTag = regexp.MustCompile(`<[^>]+>`)

// CleanText strips markdown emphasis, code and link markers, removes HTML
// tags and collapses whitespace.
func CleanText(text string) string {
	cleaned := text
	for _, rule := range markdownRules {
		cleaned = rule.pattern.ReplaceAllString(cleaned, rule.replacement)
	}
	cleaned = StripTags(cleaned)
	cleaned = whitespace.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}

// StripTags returns the text content of an HTML fragment with entities
// decoded. Input without tags or entities is returned unchanged.
func StripTags(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return fragment
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return htmlTag.ReplaceAllString(fragment, "")
	}
	return doc.Text()
}
