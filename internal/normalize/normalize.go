// Package normalize provides the pure text and value cleaners shared by every
// source adapter: whitespace compaction, state/zip canonicalization, optional
// number/date/boolean parsing, slugs, and stable hashing.
package normalize

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	whitespaceRe  = regexp.MustCompile(`\s+`)
	zipCharsRe    = regexp.MustCompile(`[^0-9-]`)
	slugCharsRe   = regexp.MustCompile(`[^a-z0-9]+`)
	slugTrimRe    = regexp.MustCompile(`(^-|-$)`)
	nonDigitRe    = regexp.MustCompile(`\D+`)
	headerCharsRe = regexp.MustCompile(`[^a-z0-9]+`)
	headerTrimRe  = regexp.MustCompile(`(^_|_$)`)
)

// CompactWhitespace collapses runs of whitespace to single spaces and trims.
func CompactWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// Text cleans an arbitrary raw value into canonical display form.
func Text(s string) string {
	return CompactWhitespace(s)
}

// State uppercases a state code after whitespace compaction.
func State(s string) string {
	return strings.ToUpper(CompactWhitespace(s))
}

// Zip keeps digits and hyphens, truncated to ZIP+4 length.
func Zip(s string) string {
	z := CompactWhitespace(s)
	if z == "" {
		return ""
	}
	digits := zipCharsRe.ReplaceAllString(z, "")
	if len(digits) > 10 {
		digits = digits[:10]
	}
	return digits
}

// Number parses an optional numeric field. Empty or unparseable input
// returns nil; strings with thousands separators are tolerated.
func Number(s string) *float64 {
	cleaned := strings.ReplaceAll(CompactWhitespace(s), ",", "")
	if cleaned == "" {
		return nil
	}
	n, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil
	}
	return &n
}

// Int parses an optional integer field, truncating fractional input.
func Int(s string) *int {
	n := Number(s)
	if n == nil {
		return nil
	}
	i := int(*n)
	return &i
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05Z07:00",
	"01/02/2006",
	"1/2/2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"2006-01-02 15:04:05",
}

// Date parses an optional date in the formats upstream sources emit.
// Unparseable input returns nil.
func Date(s string) *time.Time {
	v := CompactWhitespace(s)
	if v == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return &t
		}
	}
	return nil
}

// Truthy interprets common yes/no spellings. Unknown spellings return nil.
func Truthy(s string) *bool {
	v := strings.ToLower(CompactWhitespace(s))
	if v == "" {
		return nil
	}
	switch v {
	case "1", "true", "yes", "y":
		b := true
		return &b
	case "0", "false", "no", "n":
		b := false
		return &b
	}
	return nil
}

// StableHash returns the hex sha256 of the input. Used for payload checksums
// and fallback source IDs.
func StableHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// Slugify lowercases, collapses non-alphanumerics to hyphens, and trims
// leading/trailing hyphens.
func Slugify(s string) string {
	slug := strings.ToLower(CompactWhitespace(s))
	slug = slugCharsRe.ReplaceAllString(slug, "-")
	return slugTrimRe.ReplaceAllString(slug, "")
}

// FallbackSourceID derives a deterministic 20-hex-char record ID from the
// normalized non-empty parts. Identical parts always produce the same ID.
func FallbackSourceID(parts ...string) string {
	var cleaned []string
	for _, p := range parts {
		if v := CompactWhitespace(p); v != "" {
			cleaned = append(cleaned, v)
		}
	}
	joined := strings.Join(cleaned, "|")
	if joined == "" {
		joined = strconv.FormatInt(time.Now().UnixNano(), 10)
	}
	return StableHash(joined)[:20]
}

// PhoneDigits reduces a phone field to its significant 10 digits, stripping a
// leading country code 1.
func PhoneDigits(s string) string {
	digits := nonDigitRe.ReplaceAllString(s, "")
	if len(digits) == 11 && strings.HasPrefix(digits, "1") {
		return digits[1:]
	}
	if len(digits) > 10 {
		return digits[len(digits)-10:]
	}
	return digits
}

// Header canonicalizes a CSV/XLSX column header to snake_case.
func Header(s string) string {
	h := strings.ToLower(CompactWhitespace(s))
	h = headerCharsRe.ReplaceAllString(h, "_")
	return headerTrimRe.ReplaceAllString(h, "")
}
