// Package cache stores precomputed result pages and routing tables in
// Redis, keyed by query fingerprints.
package cache

import (
	"sort"
	"strconv"

	"github.com/codehound/hound-search/internal/pkg/hash"
	"github.com/codehound/hound-search/internal/query"
)

// Fingerprint identifies a cacheable query+scope+mode combination.
// Distinct combinations never collide on the same cache namespace.
type Fingerprint string

// NewFingerprint hashes the raw query, the sorted project-id set, the
// search mode, and the multi-match chunk size ("false" when multi-match
// is off). The request source is deliberately not part of the key, even
// though API requests rewrite some filters before dispatch: an API and a
// web request with the same raw query share one cache namespace.
func NewFingerprint(rawQuery string, projectIDs []int64, mode query.Mode, multiMatchChunks int) Fingerprint {
	sorted := make([]int64, len(projectIDs))
	copy(sorted, projectIDs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	ids := make([]byte, 0, len(sorted)*8)
	for _, id := range sorted {
		ids = strconv.AppendInt(ids, id, 10)
		ids = append(ids, ',')
	}

	chunks := "false"
	if multiMatchChunks > 0 {
		chunks = strconv.Itoa(multiMatchChunks)
	}

	return Fingerprint(hash.Fields(rawQuery, string(ids), string(mode), chunks))
}
