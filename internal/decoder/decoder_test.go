package decoder

import (
	"encoding/base64"
	"testing"

	"github.com/codehound/hound-search/internal/backend"
	apperrors "github.com/codehound/hound-search/internal/pkg/errors"
)

func b64(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

func match(line int, text string, fragments ...backend.LineFragment) backend.LineMatch {
	if len(fragments) == 0 {
		fragments = []backend.LineFragment{{LineOffset: 0, MatchLength: 3}}
	}
	return backend.LineMatch{
		LineNumber:    line,
		Line:          b64(text),
		LineFragments: fragments,
	}
}

func oneFile(matches ...backend.LineMatch) *backend.SearchResponse {
	return &backend.SearchResponse{
		Files: []backend.FileMatch{{
			FileName:     "app/models/user.rb",
			RepositoryID: 12,
			LineMatches:  matches,
		}},
	}
}

func decodeOne(t *testing.T, resp *backend.SearchResponse, opts Options) FileChunks {
	t.Helper()
	if opts.PerPage == 0 {
		opts.PerPage = 20
	}
	if opts.PageLimit == 0 {
		opts.PageLimit = 1
	}
	if opts.NumContextLines == 0 {
		opts.NumContextLines = 3
	}
	pages, err := DecodeChunks(resp, opts)
	if err != nil {
		t.Fatalf("DecodeChunks failed: %v", err)
	}
	if len(pages) != 1 || len(pages[0]) != 1 {
		t.Fatalf("expected one file on one page, got %d pages", len(pages))
	}
	return pages[0][0]
}

func TestDecodeChunks_AdjacentMatchesMerge(t *testing.T) {
	resp := oneFile(
		match(5, "foo := bar()"),
		match(7, "foo.Close()"),
	)

	fc := decodeOne(t, resp, Options{})

	if len(fc.Chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(fc.Chunks))
	}
	if fc.Chunks[0].MatchCountInChunk != 2 {
		t.Errorf("MatchCountInChunk = %d, want 2", fc.Chunks[0].MatchCountInChunk)
	}
	if fc.MatchCountTotal != 2 || fc.MatchCount != 2 {
		t.Errorf("counts = %d/%d, want 2/2", fc.MatchCountTotal, fc.MatchCount)
	}
}

func TestDecodeChunks_DistantMatchesSplit(t *testing.T) {
	resp := oneFile(
		match(5, "foo := bar()"),
		match(9, "foo.Close()"),
	)

	fc := decodeOne(t, resp, Options{})

	if len(fc.Chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(fc.Chunks))
	}
	for i, c := range fc.Chunks {
		if c.MatchCountInChunk != 1 {
			t.Errorf("chunk %d MatchCountInChunk = %d, want 1", i, c.MatchCountInChunk)
		}
	}
}

func TestDecodeChunks_CeilingDropsLaterMatches(t *testing.T) {
	resp := oneFile(
		match(1, "foo"),
		match(10, "foo"),
		match(20, "foo"),
	)

	fc := decodeOne(t, resp, Options{MaxChunksPerFile: 1})

	if len(fc.Chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(fc.Chunks))
	}
	if fc.MatchCountTotal != 3 {
		t.Errorf("MatchCountTotal = %d, want 3", fc.MatchCountTotal)
	}
	if fc.MatchCount != 1 {
		t.Errorf("MatchCount = %d, want 1", fc.MatchCount)
	}
}

func TestDecodeChunks_CeilingClamped(t *testing.T) {
	cases := []struct {
		requested int
		want      int
	}{
		{0, DefaultMaxChunksPerFile},
		{-1, DefaultMaxChunksPerFile},
		{5, 5},
		{500, MaxChunksPerFileLimit},
	}

	for _, tc := range cases {
		opts := Options{MaxChunksPerFile: tc.requested}
		if got := opts.maxChunks(); got != tc.want {
			t.Errorf("maxChunks(%d) = %d, want %d", tc.requested, got, tc.want)
		}
	}
}

func TestDecodeChunks_ContextSplicedAroundMatch(t *testing.T) {
	lm := match(5, "matched line")
	lm.Before = b64("ctx three\nctx four")
	lm.After = b64("ctx six\nctx seven")
	resp := oneFile(lm)

	fc := decodeOne(t, resp, Options{})

	lines := fc.Chunks[0].Lines
	if len(lines) != 5 {
		t.Fatalf("expected 5 lines, got %d", len(lines))
	}

	wantNumbers := []int{3, 4, 5, 6, 7}
	for i, line := range lines {
		if line.LineNumber != wantNumbers[i] {
			t.Errorf("line %d numbered %d, want %d", i, line.LineNumber, wantNumbers[i])
		}
	}
	if lines[2].Text != "matched line" {
		t.Errorf("matched text = %q", lines[2].Text)
	}
	if len(lines[2].Highlights) != 1 {
		t.Errorf("matched line missing highlights")
	}
	if len(lines[0].Highlights) != 0 {
		t.Errorf("context line carries highlights")
	}
}

func TestDecodeChunks_ContextNeverOverwritesMatch(t *testing.T) {
	first := match(5, "real line five")
	first.After = b64("stale five\nstale six")
	second := match(6, "real line six")
	resp := oneFile(first, second)

	fc := decodeOne(t, resp, Options{})

	lines := fc.Chunks[0].Lines
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	// Line 6 was written as context by the first match; the second
	// match contributes highlights without replacing the text.
	if lines[1].Text != "stale five" {
		t.Errorf("line 6 text = %q", lines[1].Text)
	}
	if len(lines[1].Highlights) != 1 {
		t.Errorf("line 6 missing highlights from second match")
	}
}

func TestDecodeChunks_ContextTruncatedAtFileStart(t *testing.T) {
	lm := match(2, "second line")
	lm.Before = b64("first line")
	resp := oneFile(lm)

	fc := decodeOne(t, resp, Options{})

	lines := fc.Chunks[0].Lines
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0].LineNumber != 1 || lines[1].LineNumber != 2 {
		t.Errorf("line numbers = %d, %d", lines[0].LineNumber, lines[1].LineNumber)
	}
}

func TestDecodeChunks_ContextLimitedToNumContextLines(t *testing.T) {
	lm := match(10, "matched")
	lm.Before = b64("l5\nl6\nl7\nl8\nl9")
	resp := oneFile(lm)

	fc := decodeOne(t, resp, Options{NumContextLines: 2})

	lines := fc.Chunks[0].Lines
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	// The two context lines nearest the match survive.
	if lines[0].LineNumber != 8 || lines[0].Text != "l8" {
		t.Errorf("got line %d %q", lines[0].LineNumber, lines[0].Text)
	}
}

func TestDecodeChunks_FilenameMatchesSkipped(t *testing.T) {
	resp := oneFile(
		backend.LineMatch{FileName: true, LineNumber: 0, Line: b64("user.rb")},
		match(5, "foo"),
	)

	fc := decodeOne(t, resp, Options{})

	if fc.MatchCountTotal != 1 {
		t.Errorf("MatchCountTotal = %d, want 1", fc.MatchCountTotal)
	}
	if len(fc.Chunks) != 1 {
		t.Errorf("expected 1 chunk, got %d", len(fc.Chunks))
	}
}

func TestDecodeChunks_MalformedBase64(t *testing.T) {
	resp := oneFile(backend.LineMatch{
		LineNumber:    5,
		Line:          "%%% not base64 %%%",
		LineFragments: []backend.LineFragment{{LineOffset: 0, MatchLength: 1}},
	})

	_, err := DecodeChunks(resp, Options{PerPage: 20, PageLimit: 1, NumContextLines: 3})
	if err == nil {
		t.Fatal("expected decode error")
	}
	if !apperrors.Is(err, apperrors.CodeDecode) {
		t.Errorf("error code = %s, want %s", apperrors.Code(err), apperrors.CodeDecode)
	}
}

func TestDecodeChunks_MultipleFragmentsPerLine(t *testing.T) {
	resp := oneFile(match(5, "foo foo foo",
		backend.LineFragment{LineOffset: 0, MatchLength: 3},
		backend.LineFragment{LineOffset: 4, MatchLength: 3},
	))

	fc := decodeOne(t, resp, Options{})

	if fc.MatchCountTotal != 2 {
		t.Errorf("MatchCountTotal = %d, want 2", fc.MatchCountTotal)
	}
	hl := fc.Chunks[0].Lines[0].Highlights
	if len(hl) != 2 {
		t.Fatalf("expected 2 highlights, got %d", len(hl))
	}
	if hl[0] != [2]int{0, 2} || hl[1] != [2]int{4, 6} {
		t.Errorf("highlights = %v", hl)
	}
}

func TestDecodeSnippets_JoinsContext(t *testing.T) {
	lm := match(5, "matched")
	lm.Before = b64("before")
	lm.After = b64("after")
	resp := oneFile(lm)

	pages, err := DecodeSnippets(resp, 20, 1)
	if err != nil {
		t.Fatalf("DecodeSnippets failed: %v", err)
	}
	if len(pages) != 1 || len(pages[0]) != 1 {
		t.Fatalf("expected one snippet, got %v", pages)
	}

	s := pages[0][0]
	if s.Content != "before\nmatched\nafter" {
		t.Errorf("content = %q", s.Content)
	}
	if s.Path != "app/models/user.rb" || s.LineNumber != 5 || s.ProjectID != 12 {
		t.Errorf("snippet = %+v", s)
	}
}

func TestDecodeSnippets_StopsAtRowLimit(t *testing.T) {
	matches := make([]backend.LineMatch, 0, 10)
	for i := 1; i <= 10; i++ {
		matches = append(matches, match(i*10, "foo"))
	}
	resp := oneFile(matches...)

	pages, err := DecodeSnippets(resp, 2, 3)
	if err != nil {
		t.Fatalf("DecodeSnippets failed: %v", err)
	}
	if len(pages) != 3 {
		t.Fatalf("expected 3 pages, got %d", len(pages))
	}
	total := 0
	for _, p := range pages {
		total += len(p)
	}
	if total != 6 {
		t.Errorf("decoded %d rows, want 6", total)
	}
}

func TestPaginate(t *testing.T) {
	pages := paginate([]int{1, 2, 3, 4, 5}, 2)
	if len(pages) != 3 {
		t.Fatalf("expected 3 pages, got %d", len(pages))
	}
	if len(pages[2]) != 1 || pages[2][0] != 5 {
		t.Errorf("last page = %v", pages[2])
	}

	if got := paginate([]int{}, 2); got != nil {
		t.Errorf("empty input produced %v", got)
	}
}
