// Package backend builds wire requests for the remote search service and
// dispatches them over HTTP.
package backend

import "github.com/codehound/hound-search/internal/query"

// Operational defaults attached to every outbound request. Keeping these
// fixed means identical queries stay comparable over time, which the
// pagination cache relies on.
const (
	// DefaultTimeout is the wire-protocol timeout string sent to the backend.
	DefaultTimeout = "120s"

	// DefaultNumContextLines is the context padding requested around matches.
	DefaultNumContextLines = 20

	// DefaultMaxFileMatchWindow bounds how many files the backend scans.
	DefaultMaxFileMatchWindow = 5000

	// DefaultMaxFileMatchResults bounds files returned per request.
	DefaultMaxFileMatchResults = 5000

	// DefaultMaxLineMatchWindow bounds how many line matches the backend scans.
	DefaultMaxLineMatchWindow = 10000

	// DefaultMaxLineMatchResults bounds line matches returned per request.
	DefaultMaxLineMatchResults = 10000

	// DefaultMaxLineMatchResultsPerFile bounds line matches per file.
	DefaultMaxLineMatchResultsPerFile = 1000

	// WireVersion is the outbound request schema version.
	WireVersion = 2
)

// NodeQuery pairs one backend node endpoint with the query scoped to the
// repositories that node owns.
type NodeQuery struct {
	Query    query.Expr `json:"query"`
	Endpoint string     `json:"endpoint"`
}

// SearchRequest is the outbound fan-out envelope. One HTTP call carries
// the whole forward_to list; the backend performs the parallel fan-out.
type SearchRequest struct {
	Version                    int         `json:"version"`
	Timeout                    string      `json:"timeout"`
	NumContextLines            int         `json:"num_context_lines"`
	MaxFileMatchWindow         int         `json:"max_file_match_window"`
	MaxFileMatchResults        int         `json:"max_file_match_results"`
	MaxLineMatchWindow         int         `json:"max_line_match_window"`
	MaxLineMatchResults        int         `json:"max_line_match_results"`
	MaxLineMatchResultsPerFile int         `json:"max_line_match_results_per_file"`
	ForwardTo                  []NodeQuery `json:"forward_to"`
}

// LineFragment is one matched span within a decoded line.
type LineFragment struct {
	LineOffset  int `json:"LineOffset"`
	MatchLength int `json:"MatchLength"`
}

// LineMatch is one matched line with optional surrounding context, all
// base64 encoded. A match with FileName set is a filename-only match and
// carries no content line.
type LineMatch struct {
	LineNumber    int            `json:"LineNumber"`
	Line          string         `json:"Line"`
	Before        string         `json:"Before,omitempty"`
	After         string         `json:"After,omitempty"`
	LineFragments []LineFragment `json:"LineFragments"`
	FileName      bool           `json:"FileName,omitempty"`
}

// FileMatch is the backend response unit for one file.
type FileMatch struct {
	FileName     string      `json:"FileName"`
	RepositoryID int64       `json:"RepositoryID"`
	Language     string      `json:"Language"`
	LineMatches  []LineMatch `json:"LineMatches"`
}

// SearchResponse is the decoded body of one backend search call.
type SearchResponse struct {
	Files      []FileMatch `json:"Files"`
	MatchCount int         `json:"match_count"`
	FileCount  int         `json:"file_count"`
}
