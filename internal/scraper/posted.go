package scraper

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
)

var relativePattern = regexp.MustCompile(`\b(\d+|an?)\+?\s*(minute|min|hour|hr|day|week|month)s?\s+ago\b`)

// maxRelativeAmount bounds N in "<N> <unit> ago" so the offset never
// overflows time.Duration.
const maxRelativeAmount = 100000

var literalLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
	"01/02/2006",
}

// ParseRelativeDate converts phrases like "3 days ago" or "yesterday" into
// an absolute time. It returns nil when the phrase cannot be interpreted.
func ParseRelativeDate(text string) *time.Time {
	return ParseRelativeDateAt(text, time.Now())
}

func ParseRelativeDateAt(text string, now time.Time) *time.Time {
	s := collapseSpace(cases.Fold().String(text))
	if s == "" {
		return nil
	}

	switch {
	case strings.Contains(s, "just now"), strings.Contains(s, "recently"), strings.Contains(s, "today"):
		return &now
	case strings.Contains(s, "yesterday"):
		t := now.AddDate(0, 0, -1)
		return &t
	}

	if m := relativePattern.FindStringSubmatch(s); m != nil {
		n := 1
		if m[1] != "a" && m[1] != "an" {
			v, err := strconv.Atoi(m[1])
			if err != nil || v > maxRelativeAmount {
				return nil
			}
			n = v
		}
		t := subtract(now, n, m[2])
		if t.Year() <= 2000 {
			return nil
		}
		return &t
	}

	raw := strings.TrimSpace(text)
	for _, layout := range literalLayouts {
		t, err := time.Parse(layout, raw)
		if err != nil {
			continue
		}
		if t.Year() <= 2000 {
			return nil
		}
		return &t
	}
	return nil
}

func subtract(now time.Time, n int, unit string) time.Time {
	switch unit {
	case "minute", "min":
		return now.Add(-time.Duration(n) * time.Minute)
	case "hour", "hr":
		return now.Add(-time.Duration(n) * time.Hour)
	case "day":
		return now.AddDate(0, 0, -n)
	case "week":
		return now.AddDate(0, 0, -7*n)
	case "month":
		return now.AddDate(0, -n, 0)
	}
	return now
}
