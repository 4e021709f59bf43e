package scraper

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRelativeDateAtUnits(t *testing.T) {
	now := time.Date(2025, 3, 31, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		in   string
		want time.Time
	}{
		{"3 minutes ago", now.Add(-3 * time.Minute)},
		{"Posted 5 mins ago", now.Add(-5 * time.Minute)},
		{"an hour ago", now.Add(-time.Hour)},
		{"2 hours ago", now.Add(-2 * time.Hour)},
		{"1 day ago", now.AddDate(0, 0, -1)},
		{"4 DAYS AGO", now.AddDate(0, 0, -4)},
		{"a week ago", now.AddDate(0, 0, -7)},
		{"2 weeks ago", now.AddDate(0, 0, -14)},
		{"30+ days ago", now.AddDate(0, 0, -30)},
		{"1 month ago", time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := ParseRelativeDateAt(tt.in, now)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestParseRelativeDateAtKeywords(t *testing.T) {
	now := time.Date(2025, 6, 10, 8, 30, 0, 0, time.UTC)

	for _, in := range []string{"Just now", "recently", "Today"} {
		got := ParseRelativeDateAt(in, now)
		require.NotNil(t, got, in)
		assert.Equal(t, now, *got)
	}

	got := ParseRelativeDateAt("Yesterday", now)
	require.NotNil(t, got)
	assert.Equal(t, now.AddDate(0, 0, -1), *got)
}

func TestParseRelativeDateAtLiteral(t *testing.T) {
	now := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

	got := ParseRelativeDateAt("2025-05-01", now)
	require.NotNil(t, got)
	assert.Equal(t, time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC), *got)

	got = ParseRelativeDateAt("Jan 15, 2024", now)
	require.NotNil(t, got)
	assert.Equal(t, 2024, got.Year())

	assert.Nil(t, ParseRelativeDateAt("1999-12-31", now))
	assert.Nil(t, ParseRelativeDateAt("2000-06-01", now))
}

func TestParseRelativeDateGarbage(t *testing.T) {
	for _, in := range []string{"", "   ", "garbage", "sometime soon", "ago"} {
		assert.Nil(t, ParseRelativeDate(in), in)
	}
}

func TestParseRelativeDateUsesClock(t *testing.T) {
	before := time.Now()
	got := ParseRelativeDate("2 hours ago")
	after := time.Now()

	require.NotNil(t, got)
	assert.False(t, got.Before(before.Add(-2*time.Hour)))
	assert.False(t, got.After(after.Add(-2*time.Hour)))
}

func TestParseRelativeDateAtHugeAmounts(t *testing.T) {
	now := time.Date(2025, 3, 31, 12, 0, 0, 0, time.UTC)

	for _, in := range []string{
		"9999999999999 minutes ago",
		"99999999999999999999 hours ago",
		"200000 days ago",
		"90000 months ago",
	} {
		assert.Nil(t, ParseRelativeDateAt(in, now), in)
	}

	got := ParseRelativeDateAt("100000 minutes ago", now)
	require.NotNil(t, got)
	assert.Equal(t, now.Add(-100000*time.Minute), *got)
}
