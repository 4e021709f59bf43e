package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/baxromumarov/jobfeed/internal/observability"
	"github.com/baxromumarov/jobfeed/internal/store"
)

// handleListJobs returns the cached jobs of the configured source as a JSON
// array. Query parameters are ignored so every read can bootstrap.
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	source := chi.URLParam(r, "source")
	if source != s.listings.Source() {
		respondError(w, http.StatusNotFound, "unknown source: "+source)
		return
	}

	jobs, err := s.listings.GetListings(r.Context(), store.Filter{Source: source})
	if err != nil {
		slog.Error("list jobs failed", "source", source, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to fetch jobs: "+err.Error())
		return
	}
	if jobs == nil {
		jobs = []store.Job{}
	}
	respondJSON(w, http.StatusOK, jobs)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, observability.Snapshot())
}
