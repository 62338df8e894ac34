// Package query builds backend-neutral filter expressions from raw search input.
package query

import (
	"encoding/json"
	"fmt"

	apperrors "github.com/codehound/hound-search/internal/pkg/errors"
)

// Expr is a node in a backend-neutral filter expression tree.
// Leaf filters never contain children; combinators always carry at
// least one child.
type Expr interface {
	json.Marshaler

	// Validate checks structural invariants of the node and its children.
	Validate() error
}

// Substring matches a literal pattern.
type Substring struct {
	Pattern       string `json:"pattern"`
	CaseSensitive bool   `json:"case_sensitive,omitempty"`
	FileName      bool   `json:"file_name,omitempty"`
	Content       bool   `json:"content,omitempty"`
}

// Regexp matches a regular expression pattern.
type Regexp struct {
	Pattern       string `json:"pattern"`
	CaseSensitive bool   `json:"case_sensitive,omitempty"`
	FileName      bool   `json:"file_name,omitempty"`
	Content       bool   `json:"content,omitempty"`
}

// And requires all children to match.
type And struct {
	Children []Expr
}

// Or requires at least one child to match.
type Or struct {
	Children []Expr
}

// Not inverts its child.
type Not struct {
	Child Expr
}

// Symbol restricts its child to symbol matches.
type Symbol struct {
	Expr Expr
}

// Meta matches a metadata key/value pair.
type Meta struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// RepoIDs restricts matching to the given repository ids.
type RepoIDs struct {
	IDs []int64 `json:"ids"`
}

// QueryString carries a raw query in the backend's own syntax.
type QueryString struct {
	Query string `json:"query"`
}

type envelope map[string]any

func tag(name string, v any) ([]byte, error) {
	return json.Marshal(envelope{name: v})
}

// MarshalJSON encodes the node as {"substring": {...}}.
func (e Substring) MarshalJSON() ([]byte, error) {
	type plain Substring
	return tag("substring", plain(e))
}

// MarshalJSON encodes the node as {"regexp": {...}}.
func (e Regexp) MarshalJSON() ([]byte, error) {
	type plain Regexp
	return tag("regexp", plain(e))
}

// MarshalJSON encodes the node as {"and": {"children": [...]}}.
func (e And) MarshalJSON() ([]byte, error) {
	return tag("and", envelope{"children": e.Children})
}

// MarshalJSON encodes the node as {"or": {"children": [...]}}.
func (e Or) MarshalJSON() ([]byte, error) {
	return tag("or", envelope{"children": e.Children})
}

// MarshalJSON encodes the node as {"not": {"child": ...}}.
func (e Not) MarshalJSON() ([]byte, error) {
	return tag("not", envelope{"child": e.Child})
}

// MarshalJSON encodes the node as {"symbol": {"expr": ...}}.
func (e Symbol) MarshalJSON() ([]byte, error) {
	return tag("symbol", envelope{"expr": e.Expr})
}

// MarshalJSON encodes the node as {"meta": {...}}.
func (e Meta) MarshalJSON() ([]byte, error) {
	type plain Meta
	return tag("meta", plain(e))
}

// MarshalJSON encodes the node as {"repo_ids": {...}}.
func (e RepoIDs) MarshalJSON() ([]byte, error) {
	type plain RepoIDs
	return tag("repo_ids", plain(e))
}

// MarshalJSON encodes the node as {"query_string": {...}}.
func (e QueryString) MarshalJSON() ([]byte, error) {
	type plain QueryString
	return tag("query_string", plain(e))
}

// Validate implements Expr.
func (e Substring) Validate() error {
	if e.Pattern == "" {
		return apperrors.InvalidQueryError("substring pattern cannot be empty")
	}
	return nil
}

// Validate implements Expr.
func (e Regexp) Validate() error {
	if e.Pattern == "" {
		return apperrors.InvalidQueryError("regexp pattern cannot be empty")
	}
	return nil
}

// Validate implements Expr.
func (e And) Validate() error {
	return validateChildren("and", e.Children)
}

// Validate implements Expr.
func (e Or) Validate() error {
	return validateChildren("or", e.Children)
}

// Validate implements Expr.
func (e Not) Validate() error {
	if e.Child == nil {
		return apperrors.InvalidQueryError("not requires a child expression")
	}
	return e.Child.Validate()
}

// Validate implements Expr.
func (e Symbol) Validate() error {
	if e.Expr == nil {
		return apperrors.InvalidQueryError("symbol requires a child expression")
	}
	return e.Expr.Validate()
}

// Validate implements Expr.
func (e Meta) Validate() error {
	if e.Key == "" {
		return apperrors.InvalidQueryError("meta key cannot be empty")
	}
	return nil
}

// Validate implements Expr.
func (e RepoIDs) Validate() error {
	if e.IDs == nil {
		return apperrors.InvalidArgumentError("repo_ids requires a list of ids")
	}
	return nil
}

// Validate implements Expr.
func (e QueryString) Validate() error {
	if e.Query == "" {
		return apperrors.InvalidQueryError("query string cannot be empty")
	}
	return nil
}

func validateChildren(op string, children []Expr) error {
	if len(children) == 0 {
		return apperrors.InvalidQueryError(fmt.Sprintf("%s requires at least one child", op))
	}
	for _, c := range children {
		if err := c.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// NewRepoIDs builds a repository id filter. It rejects a nil id list so
// that scoping bugs surface before dispatch.
func NewRepoIDs(ids []int64) (RepoIDs, error) {
	if ids == nil {
		return RepoIDs{}, apperrors.InvalidArgumentError("repository ids must be a list")
	}
	return RepoIDs{IDs: ids}, nil
}
