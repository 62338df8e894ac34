package decoder

import (
	"sort"
	"strings"

	"github.com/codehound/hound-search/internal/backend"
)

// chunkBuilder accumulates the lines of one chunk keyed by line number.
// The intermediate map never leaves the builder: finalize sorts it into
// a Line slice once the chunk is complete.
type chunkBuilder struct {
	numContext int
	lines      map[int]Line
	matches    int
}

func newChunkBuilder(numContext int) *chunkBuilder {
	return &chunkBuilder{
		numContext: numContext,
		lines:      make(map[int]Line),
	}
}

// addMatch decodes a line match into the chunk: the matched line with
// its highlight spans, plus up to numContext before/after context lines.
// Context never overwrites lines already present; the matched line only
// contributes its highlights when its line was written as context
// earlier.
func (b *chunkBuilder) addMatch(path string, lm backend.LineMatch) error {
	text, err := decodeBlob(path, lm.LineNumber, lm.Line)
	if err != nil {
		return err
	}

	highlights := make([][2]int, 0, len(lm.LineFragments))
	for _, frag := range lm.LineFragments {
		highlights = append(highlights, [2]int{frag.LineOffset, frag.LineOffset + frag.MatchLength - 1})
	}

	if existing, ok := b.lines[lm.LineNumber]; ok {
		existing.Highlights = append(existing.Highlights, highlights...)
		b.lines[lm.LineNumber] = existing
	} else {
		b.lines[lm.LineNumber] = Line{
			LineNumber: lm.LineNumber,
			Text:       text,
			Highlights: highlights,
		}
	}

	if lm.Before != "" && lm.LineNumber > 1 {
		if err := b.addContext(path, lm, lm.Before, true); err != nil {
			return err
		}
	}
	if lm.After != "" {
		if err := b.addContext(path, lm, lm.After, false); err != nil {
			return err
		}
	}

	b.matches += len(lm.LineFragments)
	return nil
}

// addContext splices decoded context lines around a match. Before
// context lines end at the line above the match; after context lines
// start at the line below it. Lines that would fall before the start of
// the file are dropped.
func (b *chunkBuilder) addContext(path string, lm backend.LineMatch, blob string, before bool) error {
	text, err := decodeBlob(path, lm.LineNumber, blob)
	if err != nil {
		return err
	}

	lines := strings.Split(text, "\n")
	if len(lines) > b.numContext {
		if before {
			// Keep the lines nearest the match.
			lines = lines[len(lines)-b.numContext:]
		} else {
			lines = lines[:b.numContext]
		}
	}

	for i, line := range lines {
		var number int
		if before {
			number = lm.LineNumber - len(lines) + i
		} else {
			number = lm.LineNumber + 1 + i
		}
		if number < 1 {
			continue
		}
		if _, ok := b.lines[number]; ok {
			continue
		}
		b.lines[number] = Line{LineNumber: number, Text: line}
	}

	return nil
}

// finalize converts the line map into a line-number-sorted chunk.
func (b *chunkBuilder) finalize() Chunk {
	lines := make([]Line, 0, len(b.lines))
	for _, line := range b.lines {
		lines = append(lines, line)
	}
	sort.Slice(lines, func(i, j int) bool {
		return lines[i].LineNumber < lines[j].LineNumber
	})

	return Chunk{
		MatchCountInChunk: b.matches,
		Lines:             lines,
	}
}
