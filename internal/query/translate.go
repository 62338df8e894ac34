package query

import (
	"regexp"
	"strings"

	apperrors "github.com/codehound/hound-search/internal/pkg/errors"
	"github.com/codehound/hound-search/internal/pkg/logger"
)

// Mode selects how the keyword term is interpreted.
type Mode string

// Search modes.
const (
	ModeExact Mode = "exact"
	ModeRegex Mode = "regex"
)

// Source identifies where a search request originated.
type Source string

// Request sources.
const (
	SourceAPI Source = "api"
	SourceWeb Source = "web"
)

// DefaultMode returns the mode used when the caller gives no explicit
// choice: regex for API-sourced calls, exact everywhere else.
func DefaultMode(explicit *bool, source Source) Mode {
	if explicit != nil {
		if *explicit {
			return ModeRegex
		}
		return ModeExact
	}
	if source == SourceAPI {
		return ModeRegex
	}
	return ModeExact
}

// Recognized syntax filters. Tokens are matched case-sensitively; an
// unrecognized name:value pair stays inside the keyword term untouched.
var filterToken = regexp.MustCompile(`(^|\s)(-?(?:case|file|f|lang|sym|content|extension|filename|path):\S+)`)

// Rewrites applied to API-sourced queries when syntax rewriting is on.
// These filter names are not native to the backend and are substituted
// with anchored file regexes.
var syntaxRewrites = []struct {
	pattern *regexp.Regexp
	replace string
}{
	{regexp.MustCompile(`^(-?)extension:(\S+)$`), `${1}file:\.${2}$$`},
	{regexp.MustCompile(`^(-?)filename:(\S+)$`), `${1}file:${2}[^/]*$$`},
	{regexp.MustCompile(`^(-?)path:(\S+)$`), `${1}file:${2}`},
}

// Translator turns a human search string plus mode into a filter
// expression tree.
type Translator struct {
	// RewriteFilters enables backend-native rewriting of
	// extension/filename/path filters for API-sourced queries.
	RewriteFilters bool

	log *logger.Logger
}

// NewTranslator creates a translator.
func NewTranslator(rewriteFilters bool, log *logger.Logger) *Translator {
	if log == nil {
		log = logger.Default()
	}
	return &Translator{
		RewriteFilters: rewriteFilters,
		log:            log,
	}
}

// Translate builds the filter expression for a raw query. The raw query
// is scanned for recognized syntax-filter tokens; every match is pulled
// into a filter list and removed from the remaining text, which becomes
// the keyword term. It fails with an invalid-query error when both the
// term and the filter list come out empty.
func (t *Translator) Translate(raw string, mode Mode, source Source) (Expr, error) {
	filters := extractFilters(raw)

	term := filterToken.ReplaceAllString(raw, "$1")
	term = strings.Join(strings.Fields(term), " ")

	switch mode {
	case ModeExact:
		if term != "" {
			term = regexp.QuoteMeta(term)
		}
	case ModeRegex:
		if term != "" {
			if _, err := regexp.Compile(term); err != nil {
				return nil, apperrors.Wrap(apperrors.CodeInvalidQuery, "invalid regex in query", err)
			}
		}
	default:
		return nil, apperrors.InvalidQueryError("unknown search mode: " + string(mode))
	}

	if source == SourceAPI && t.RewriteFilters {
		for i, f := range filters {
			filters[i] = rewriteFilter(f)
		}
	}

	parts := make([]string, 0, len(filters)+1)
	if term != "" {
		parts = append(parts, term)
	}
	parts = append(parts, filters...)

	if len(parts) == 0 {
		return nil, apperrors.InvalidQueryError("query cannot be empty")
	}

	expr := QueryString{Query: strings.Join(parts, " ")}
	if err := expr.Validate(); err != nil {
		return nil, err
	}

	t.log.Debug("translated query",
		"raw", raw,
		"mode", string(mode),
		"filters", len(filters),
	)

	return expr, nil
}

func extractFilters(raw string) []string {
	matches := filterToken.FindAllStringSubmatch(raw, -1)
	filters := make([]string, 0, len(matches))
	for _, m := range matches {
		filters = append(filters, m[2])
	}
	return filters
}

func rewriteFilter(token string) string {
	for _, rw := range syntaxRewrites {
		if rw.pattern.MatchString(token) {
			return rw.pattern.ReplaceAllString(token, rw.replace)
		}
	}
	return token
}
