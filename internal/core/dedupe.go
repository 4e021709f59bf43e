package core

import "github.com/baxromumarov/jobfeed/internal/scraper"

// Dedupe keeps one record per external id. The last occurrence wins, placed
// where the id first appeared.
func Dedupe(records []scraper.Record) []scraper.Record {
	index := make(map[string]int, len(records))
	out := make([]scraper.Record, 0, len(records))
	for _, rec := range records {
		if i, ok := index[rec.ExternalID]; ok {
			out[i] = rec
			continue
		}
		index[rec.ExternalID] = len(out)
		out = append(out, rec)
	}
	return out
}
