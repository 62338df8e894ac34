// Package directory defines the project-metadata collaborators the
// search subsystem consumes: project resolution, node resolution,
// routing, visibility filtering, and async index triggering.
package directory

import "context"

// Visibility of a project's repository to the calling user.
type Visibility string

// Repository visibility levels.
const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// Project is the slice of project metadata the search path needs.
type Project struct {
	ID            int64
	FullPath      string
	Archived      bool
	Fork          bool
	PendingDelete bool

	// RepoVisibility is the effective visibility of the repository,
	// which can be narrower than the project's own visibility.
	RepoVisibility Visibility

	// EmptyRepo is true when the repository has no content.
	EmptyRepo bool

	// Indexed is true once the search backend holds an index for the
	// repository.
	Indexed bool
}

// Directory resolves project ids against the current project store. Ids
// that no longer exist are simply absent from the result.
type Directory interface {
	Resolve(ctx context.Context, ids []int64) ([]Project, error)
}

// Node is one search backend node.
type Node struct {
	ID       int64
	Endpoint string
}

// Nodes resolves node ids to endpoints. The boolean is false when the
// node has left the cluster.
type Nodes interface {
	Endpoint(ctx context.Context, nodeID int64) (string, bool)
}

// Router computes which node owns which repositories for a scope.
type Router interface {
	Routes(ctx context.Context, projectIDs []int64) (map[int64][]int64, error)
}

// AsyncIndexer schedules indexing of a repository that is not yet
// searchable. The index becomes available for a future call.
type AsyncIndexer interface {
	IndexAsync(ctx context.Context, projectID int64) error
}
