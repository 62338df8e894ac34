// Package decoder turns raw backend line-match payloads into
// line-numbered, highlighted, context-padded results.
package decoder

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/codehound/hound-search/internal/backend"
	apperrors "github.com/codehound/hound-search/internal/pkg/errors"
)

// NewChunkThreshold is the line-distance proximity threshold: matches
// whose line numbers differ by more than this start a new chunk.
const NewChunkThreshold = 2

// Chunk-count ceiling per file.
const (
	DefaultMaxChunksPerFile = 3
	MaxChunksPerFileLimit   = 50
)

// Snippet is the single-snippet result form: one matched line with its
// surrounding context joined into one content string.
type Snippet struct {
	Path       string `json:"path"`
	LineNumber int    `json:"line"`
	Content    string `json:"content"`
	ProjectID  int64  `json:"project_id"`
}

// Line is one line inside a chunk. Highlights are inclusive
// (start, end) byte offsets within Text.
type Line struct {
	LineNumber int      `json:"line_number"`
	Text       string   `json:"text"`
	Highlights [][2]int `json:"highlights,omitempty"`
}

// Chunk is a contiguous window of matched and context lines in one file.
type Chunk struct {
	MatchCountInChunk int    `json:"match_count_in_chunk"`
	Lines             []Line `json:"lines"`
}

// FileChunks is the multi-match result form for one file.
// MatchCountTotal counts every fragment in the file; MatchCount counts
// only fragments inside chunks that survived the per-file ceiling.
type FileChunks struct {
	Path            string  `json:"path"`
	ProjectID       int64   `json:"project_id"`
	Chunks          []Chunk `json:"chunks"`
	MatchCountTotal int     `json:"match_count_total"`
	MatchCount      int     `json:"match_count"`
}

// Options configures multi-match decoding.
type Options struct {
	// PerPage is the page size for result batching.
	PerPage int

	// PageLimit is how many zero-indexed pages to produce before
	// stopping.
	PageLimit int

	// NumContextLines bounds context spliced around each match.
	NumContextLines int

	// MaxChunksPerFile is the per-file chunk ceiling (0 means the
	// default; values above the limit are clamped).
	MaxChunksPerFile int
}

func (o Options) maxChunks() int {
	switch {
	case o.MaxChunksPerFile <= 0:
		return DefaultMaxChunksPerFile
	case o.MaxChunksPerFile > MaxChunksPerFileLimit:
		return MaxChunksPerFileLimit
	default:
		return o.MaxChunksPerFile
	}
}

// DecodeSnippets decodes a response into pages of single-snippet
// results, scanning file-by-file in backend order and stopping once
// pageLimit pages' worth of rows have been produced.
func DecodeSnippets(resp *backend.SearchResponse, perPage, pageLimit int) ([][]Snippet, error) {
	limit := perPage * pageLimit
	rows := make([]Snippet, 0, min(limit, 64))

scan:
	for _, file := range resp.Files {
		for _, lm := range file.LineMatches {
			if lm.FileName {
				continue
			}
			if len(rows) >= limit {
				break scan
			}

			content, err := decodeContext(file.FileName, lm)
			if err != nil {
				return nil, err
			}

			rows = append(rows, Snippet{
				Path:       file.FileName,
				LineNumber: lm.LineNumber,
				Content:    content,
				ProjectID:  file.RepositoryID,
			})
		}
	}

	return paginate(rows, perPage), nil
}

// DecodeChunks decodes a response into pages of per-file chunk results.
func DecodeChunks(resp *backend.SearchResponse, opts Options) ([][]FileChunks, error) {
	files := make([]FileChunks, 0, len(resp.Files))
	for _, file := range resp.Files {
		fc, err := decodeFile(file, opts.NumContextLines, opts.maxChunks())
		if err != nil {
			return nil, err
		}
		files = append(files, fc)

		if len(files) >= opts.PerPage*opts.PageLimit {
			break
		}
	}

	return paginate(files, opts.PerPage), nil
}

// decodeFile walks a file's line matches in order, merging matches
// within NewChunkThreshold lines of each other into one chunk and
// splitting distant ones. Once the chunk ceiling is reached, later
// matches in the file are dropped, not merged.
func decodeFile(file backend.FileMatch, numContext, maxChunks int) (FileChunks, error) {
	result := FileChunks{
		Path:      file.FileName,
		ProjectID: file.RepositoryID,
		Chunks:    []Chunk{},
	}

	var cur *chunkBuilder
	prevLine := 0

	for _, lm := range file.LineMatches {
		if lm.FileName {
			continue
		}

		result.MatchCountTotal += len(lm.LineFragments)

		if len(result.Chunks) >= maxChunks {
			continue
		}

		if cur != nil && lm.LineNumber-prevLine > NewChunkThreshold {
			result.Chunks = append(result.Chunks, cur.finalize())
			result.MatchCount += cur.matches
			cur = nil
		}
		if cur == nil {
			if len(result.Chunks) >= maxChunks {
				continue
			}
			cur = newChunkBuilder(numContext)
		}

		if err := cur.addMatch(file.FileName, lm); err != nil {
			return FileChunks{}, err
		}
		prevLine = lm.LineNumber
	}

	if cur != nil && len(result.Chunks) < maxChunks {
		result.Chunks = append(result.Chunks, cur.finalize())
		result.MatchCount += cur.matches
	}

	return result, nil
}

// decodeContext joins the decoded before/line/after blobs of one match
// into a single content string.
func decodeContext(path string, lm backend.LineMatch) (string, error) {
	parts := make([]string, 0, 3)

	for _, blob := range []string{lm.Before, lm.Line, lm.After} {
		if blob == "" {
			continue
		}
		text, err := decodeBlob(path, lm.LineNumber, blob)
		if err != nil {
			return "", err
		}
		parts = append(parts, text)
	}

	return strings.Join(parts, "\n"), nil
}

func decodeBlob(path string, lineNumber int, blob string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return "", apperrors.DecodeError(
			fmt.Sprintf("malformed base64 content in %s at line %d", path, lineNumber), err)
	}
	return string(data), nil
}

// paginate groups items into zero-indexed pages of size perPage.
func paginate[T any](items []T, perPage int) [][]T {
	if perPage <= 0 {
		if len(items) == 0 {
			return nil
		}
		return [][]T{items}
	}

	var pages [][]T
	for start := 0; start < len(items); start += perPage {
		end := min(start+perPage, len(items))
		pages = append(pages, items[start:end])
	}
	return pages
}
