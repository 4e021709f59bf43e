package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baxromumarov/jobfeed/internal/scraper"
)

func TestDedupeLastWins(t *testing.T) {
	in := []scraper.Record{
		{ExternalID: "a", Title: "first a"},
		{ExternalID: "b", Title: "only b"},
		{ExternalID: "a", Title: "second a"},
		{ExternalID: "c", Title: "first c"},
		{ExternalID: "a", Title: "third a"},
	}

	out := Dedupe(in)
	require.Len(t, out, 3)
	assert.Equal(t, "third a", out[0].Title)
	assert.Equal(t, "only b", out[1].Title)
	assert.Equal(t, "first c", out[2].Title)
}

func TestDedupeSalaryOverride(t *testing.T) {
	in := []scraper.Record{
		{ExternalID: "job-1", Title: "Engineer"},
		{ExternalID: "job-1", Title: "Engineer", Salary: "$100K"},
	}

	out := Dedupe(in)
	require.Len(t, out, 1)
	assert.Equal(t, "$100K", out[0].Salary)
}

func TestDedupeEmpty(t *testing.T) {
	assert.Empty(t, Dedupe(nil))
}
