package backend

import (
	"context"

	apperrors "github.com/codehound/hound-search/internal/pkg/errors"
	"github.com/codehound/hound-search/internal/pkg/logger"
	"github.com/codehound/hound-search/internal/query"
)

// NodeResolver maps a node id to its endpoint address. The second return
// is false when the node is no longer part of the cluster.
type NodeResolver interface {
	Endpoint(ctx context.Context, nodeID int64) (string, bool)
}

// ScopeQuery restricts a base query to the given repository ids. A nil
// repoIDs slice means unscoped and returns the base query unchanged.
func ScopeQuery(base query.Expr, repoIDs []int64) (query.Expr, error) {
	if repoIDs == nil {
		return base, nil
	}
	filter, err := query.NewRepoIDs(repoIDs)
	if err != nil {
		return nil, err
	}
	return query.And{Children: []query.Expr{base, filter}}, nil
}

// Builder assembles fan-out envelopes for federated searches.
type Builder struct {
	nodes NodeResolver
	log   *logger.Logger
}

// NewBuilder creates a request builder.
func NewBuilder(nodes NodeResolver, log *logger.Logger) *Builder {
	if log == nil {
		log = logger.Default()
	}
	return &Builder{nodes: nodes, log: log}
}

// BuildEnvelope builds the outbound fan-out request for a query and a
// routing table (node id to owned repository ids). Nodes that no longer
// resolve are skipped: cluster membership can change between scope
// computation and dispatch, so a vanished node is not an error. The call
// fails when the table is empty or nothing resolvable remains.
func (b *Builder) BuildEnvelope(ctx context.Context, base query.Expr, targets map[int64][]int64) (*SearchRequest, error) {
	if len(targets) == 0 {
		return nil, apperrors.NoTargetsError()
	}
	if err := base.Validate(); err != nil {
		return nil, err
	}

	req := &SearchRequest{
		Version:                    WireVersion,
		Timeout:                    DefaultTimeout,
		NumContextLines:            DefaultNumContextLines,
		MaxFileMatchWindow:         DefaultMaxFileMatchWindow,
		MaxFileMatchResults:        DefaultMaxFileMatchResults,
		MaxLineMatchWindow:         DefaultMaxLineMatchWindow,
		MaxLineMatchResults:        DefaultMaxLineMatchResults,
		MaxLineMatchResultsPerFile: DefaultMaxLineMatchResultsPerFile,
	}

	for nodeID, repoIDs := range targets {
		endpoint, ok := b.nodes.Endpoint(ctx, nodeID)
		if !ok {
			b.log.Debug("skipping unresolvable search node", "node_id", nodeID)
			continue
		}

		scoped, err := ScopeQuery(base, repoIDs)
		if err != nil {
			return nil, err
		}

		req.ForwardTo = append(req.ForwardTo, NodeQuery{
			Query:    scoped,
			Endpoint: endpoint,
		})
	}

	if len(req.ForwardTo) == 0 {
		return nil, apperrors.NoTargetsError()
	}

	return req, nil
}
