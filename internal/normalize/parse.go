package normalize

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	ageNumberRe = regexp.MustCompile(`\d+(?:\.\d+)?`)
	clockRe     = regexp.MustCompile(`(?i)(\d{1,2}:\d{2}\s*[AP]\.?M\.?)`)
)

// AgeRange extracts a min/max age in years from free text such as
// "6 weeks - 12 years" or "18 months to 5 yrs". The unit keyword decides the
// conversion: weeks /52, months /12, otherwise the numbers are taken as
// years. Values are rounded to one decimal. Both results are nil when the
// text carries no numbers.
func AgeRange(text string) (minAge, maxAge *float64) {
	lower := strings.ToLower(text)
	matches := ageNumberRe.FindAllString(lower, -1)
	if len(matches) == 0 {
		return nil, nil
	}

	toYears := func(raw string) *float64 {
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil
		}
		switch {
		case strings.Contains(lower, "week"):
			n = math.Round(n/52*10) / 10
		case strings.Contains(lower, "month"):
			n = math.Round(n/12*10) / 10
		}
		return &n
	}

	return toYears(matches[0]), toYears(matches[len(matches)-1])
}

// OpeningClosingHours extracts the first two clock tokens ("7:30 AM" shapes,
// tolerating "a.m." spellings) found scanning the given per-day hour strings
// in order. The first day carrying at least two tokens wins; both results are
// empty when no day qualifies.
func OpeningClosingHours(dailyHours ...string) (opening, closing string) {
	for _, text := range dailyHours {
		if text == "" {
			continue
		}
		matches := clockRe.FindAllString(text, -1)
		if len(matches) < 2 {
			continue
		}
		return canonClock(matches[0]), canonClock(matches[1])
	}
	return "", ""
}

// HoursFromText extracts up to two clock tokens from a single free-text
// field, returning whatever was found ("" for missing positions).
func HoursFromText(text string) (opening, closing string) {
	matches := clockRe.FindAllString(text, -1)
	if len(matches) > 0 {
		opening = canonClock(matches[0])
	}
	if len(matches) > 1 {
		closing = canonClock(matches[1])
	}
	return opening, closing
}

func canonClock(s string) string {
	return strings.ToUpper(strings.ReplaceAll(s, ".", ""))
}
