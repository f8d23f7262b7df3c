// Package normalize cleans user-supplied text before it is stored.
package normalize

import (
	"regexp"
	"slices"
	"strings"
	"unicode"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"golang.org/x/text/unicode/norm"
)

var (
	// Matches spaces, underscores, and slashes (for replacement with dashes).
	wordSeparatorRe = regexp.MustCompile(`[\s_/]+`)
	// Matches non-alphanumeric characters (except dashes).
	nonAlphanumericRe = regexp.MustCompile(`[^a-z0-9-]`)
	// Matches multiple consecutive dashes.
	multipleDashRe = regexp.MustCompile(`-+`)
	// Characters allowed in usernames.
	usernameRe = regexp.MustCompile(`[^a-z0-9_.]`)
	// htmlTagPattern detects common HTML tags in pasted notes.
	htmlTagPattern = regexp.MustCompile(`<(p|br|div|span|b|i|strong|em|a|ul|ol|li|h[1-6]|blockquote)[\s>/]`)
)

// MaxUsernameLength caps stored usernames.
const MaxUsernameLength = 30

// foldASCII decomposes accented characters and drops anything outside ASCII.
// "Crème Brûlée" -> "Creme Brulee".
func foldASCII(s string) string {
	s = norm.NFKD.String(s)
	return strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return -1
		}
		return r
	}, s)
}

// Slug converts a string to a URL-safe slug.
//
//	"Slow Cooker"    → "slow-cooker"
//	"crème_brûlée"   → "creme-brulee"
//	"  --Vegan!-- "  → "vegan"
func Slug(input string) string {
	s := strings.ToLower(strings.TrimSpace(foldASCII(input)))
	s = wordSeparatorRe.ReplaceAllString(s, "-")
	s = nonAlphanumericRe.ReplaceAllString(s, "")
	s = multipleDashRe.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// Tags slugifies each tag, dropping empties and duplicates while keeping order.
func Tags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		slug := Slug(t)
		if slug == "" || slices.Contains(out, slug) {
			continue
		}
		out = append(out, slug)
	}
	return out
}

// Username lower-cases and strips a requested username down to
// [a-z0-9_.], truncated to MaxUsernameLength.
func Username(input string) string {
	s := strings.ToLower(strings.TrimSpace(foldASCII(input)))
	s = usernameRe.ReplaceAllString(s, "")
	if len(s) > MaxUsernameLength {
		s = s[:MaxUsernameLength]
	}
	return s
}

// Lines trims every entry and drops blank ones. Used for ingredient and
// instruction lists.
func Lines(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

// containsHTML checks if a string appears to contain HTML markup.
func containsHTML(s string) bool {
	return htmlTagPattern.MatchString(strings.ToLower(s))
}

// Notes converts HTML pasted into recipe notes to Markdown.
// Input without HTML is only trimmed.
func Notes(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || !containsHTML(s) {
		return s
	}

	markdown, err := htmltomarkdown.ConvertString(s)
	if err != nil {
		// If conversion fails, keep what the user wrote.
		return s
	}

	return strings.TrimSpace(markdown)
}
