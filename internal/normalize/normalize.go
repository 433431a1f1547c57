// Package normalize holds the pure text, slug, date and amount coercions
// applied to raw WordPress payloads before identity resolution. Nothing in
// here performs I/O or returns an error that would abort a batch: malformed
// input degrades to the field's zero value.
package normalize

import (
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gosimple/slug"
)

const maxSlugLength = 120

var tagPattern = regexp.MustCompile(`<[^>]+>`)

// CleanHTML unescapes HTML entities, strips markup tags and trims the result.
func CleanHTML(s string) string {
	if s == "" {
		return ""
	}
	s = html.UnescapeString(s)
	s = tagPattern.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// Slugify lowercases the title, folds diacritics to base Latin letters,
// collapses runs of non-alphanumerics to a single dash and caps the length.
func Slugify(s string) string {
	out := slug.Make(s)
	if len(out) > maxSlugLength {
		out = strings.Trim(out[:maxSlugLength], "-")
	}
	return out
}

// UniqueSlug returns the slug for title, appending the source identifier
// when the slug already occurred in the current batch. The caller owns the
// seen set; the chosen slug is recorded in it.
func UniqueSlug(title string, sourceID int64, seen map[string]struct{}) string {
	s := Slugify(title)
	if s == "" {
		s = fmt.Sprintf("item-%d", sourceID)
	}
	if _, dup := seen[s]; dup {
		s = fmt.Sprintf("%s-%d", s, sourceID)
	}
	seen[s] = struct{}{}
	return s
}

// Email normalizes an address for identity comparison: trimmed, lowercased.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

var zeroDates = map[string]struct{}{
	"0000-00-00 00:00:00": {},
	"0000-00-00":          {},
	"NULL":                {},
	"None":                {},
}

// ParseTime accepts ISO-8601 with a trailing zone marker and the naive
// "YYYY-MM-DD HH:MM:SS" form the legacy database emits. Unparseable or
// empty input yields nil, never an error.
func ParseTime(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if _, zero := zeroDates[s]; zero {
		return nil
	}

	if t, err := time.Parse(time.RFC3339, strings.Replace(s, "Z", "+00:00", 1)); err == nil {
		t = t.UTC()
		return &t
	}
	if len(s) >= 19 {
		// WooCommerce emits ISO timestamps without a zone; the legacy
		// database uses a space separator. Both are site-local UTC.
		if t, err := time.Parse("2006-01-02T15:04:05", s[:19]); err == nil {
			t = t.UTC()
			return &t
		}
		if t, err := time.Parse("2006-01-02 15:04:05", s[:19]); err == nil {
			t = t.UTC()
			return &t
		}
	}
	if len(s) >= 10 {
		if t, err := time.Parse("2006-01-02", s[:10]); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// ParseAmount coerces a string price/amount field to a number. Missing or
// malformed input defaults to zero.
func ParseAmount(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// LocalePair duplicates cleaned text under both locale tags; the legacy
// site has no translations, so Swedish and English carry the same content.
func LocalePair(raw string) (sv, en string) {
	cleaned := CleanHTML(raw)
	return cleaned, cleaned
}
