// Package caption normalizes post text before it is stored or published.
package caption

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// MaxWeight is the platform's post length limit in weighted characters.
const MaxWeight = 280

// URLWeight is what every http(s) URL counts for, whatever its length.
const URLWeight = 23

const ellipsis = "…"

var urlPattern = regexp.MustCompile(`https?://\S+`)

// Code point ranges counted as one character; everything else counts as
// two. Emoji sequences joined with ZWJ are counted per code point, so the
// weight of such captions is overestimated.
var lightRanges = [][2]rune{
	{0x0000, 0x10FF},
	{0x2000, 0x200D},
	{0x2010, 0x201F},
	{0x2032, 0x2037},
}

var lineBreaks = strings.NewReplacer("<br>", "\n", "<br/>", "\n", "<br />", "\n")

// Normalize decodes HTML entities and strips markup that content APIs tend
// to leave in post text (e.g. "&amp;", "<br>"), then trims the result.
func Normalize(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.TrimSpace(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(lineBreaks.Replace(s)))
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(doc.Text())
}

// Weight returns the length the platform charges for s.
func Weight(s string) int {
	w, last := 0, 0
	for _, loc := range urlPattern.FindAllStringIndex(s, -1) {
		w += runesWeight(s[last:loc[0]]) + URLWeight
		last = loc[1]
	}
	return w + runesWeight(s[last:])
}

func runesWeight(s string) int {
	w := 0
	for _, r := range s {
		w += runeWeight(r)
	}
	return w
}

func runeWeight(r rune) int {
	for _, rg := range lightRanges {
		if r >= rg[0] && r <= rg[1] {
			return 1
		}
	}
	return 2
}

// Fit truncates s to at most limit weighted characters, ending in an
// ellipsis when cut. URLs are kept whole or dropped.
func Fit(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if Weight(s) <= limit {
		return s
	}
	budget := limit - runesWeight(ellipsis)
	if budget < 0 {
		return ""
	}

	urls := urlPattern.FindAllStringIndex(s, -1)
	var b strings.Builder
	used := 0
	for i := 0; i < len(s); {
		if len(urls) > 0 && urls[0][0] == i {
			if used+URLWeight > budget {
				break
			}
			b.WriteString(s[i:urls[0][1]])
			used += URLWeight
			i = urls[0][1]
			urls = urls[1:]
			continue
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		if used+runeWeight(r) > budget {
			break
		}
		b.WriteRune(r)
		used += runeWeight(r)
		i += size
	}
	return strings.TrimRight(b.String(), " ") + ellipsis
}
