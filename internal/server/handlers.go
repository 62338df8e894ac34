package server

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/codehound/hound-search/internal/pkg/errors"
	"github.com/codehound/hound-search/internal/search"
)

// healthResponse is the health check body.
type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:  "ok",
		Version: s.cfg.Version,
	})
}

// handleSearch runs one search call. Degraded searches (backend down)
// still respond 200 with an error field so clients render an empty
// result rather than an error page.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req search.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperrors.WriteError(w, apperrors.InvalidRequestError("malformed search request body"))
		return
	}

	results, err := s.search.Search(r.Context(), req)
	if err != nil {
		s.log.WithError(err).Error("search failed", "query", req.Query)
		apperrors.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, results)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Ignore encoding errors - headers already sent
	_ = json.NewEncoder(w).Encode(body)
}
