package directory

import (
	"context"
	"sync"
)

// Static is an in-memory implementation of the directory collaborators,
// used by the CLI and by tests. Real deployments plug in adapters over
// the product's persistence layer.
type Static struct {
	mu       sync.RWMutex
	projects map[int64]Project
	nodes    map[int64]Node

	// routes maps node id to owned repository ids.
	routes map[int64][]int64

	// indexRequests records IndexAsync calls.
	indexRequests []int64
}

// NewStatic creates an empty static directory.
func NewStatic() *Static {
	return &Static{
		projects: make(map[int64]Project),
		nodes:    make(map[int64]Node),
		routes:   make(map[int64][]int64),
	}
}

// AddProject registers a project.
func (s *Static) AddProject(p Project) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects[p.ID] = p
}

// RemoveProject drops a project, as a deletion would.
func (s *Static) RemoveProject(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.projects, id)
}

// AddNode registers a node and the repository ids it owns.
func (s *Static) AddNode(n Node, repoIDs []int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes[n.ID] = n
	s.routes[n.ID] = repoIDs
}

// RemoveNode drops a node from the cluster.
func (s *Static) RemoveNode(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.nodes, id)
	delete(s.routes, id)
}

// Resolve implements Directory.
func (s *Static) Resolve(_ context.Context, ids []int64) ([]Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	projects := make([]Project, 0, len(ids))
	for _, id := range ids {
		if p, ok := s.projects[id]; ok {
			projects = append(projects, p)
		}
	}
	return projects, nil
}

// Endpoint implements Nodes.
func (s *Static) Endpoint(_ context.Context, nodeID int64) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.nodes[nodeID]
	if !ok {
		return "", false
	}
	return n.Endpoint, true
}

// Routes implements Router: each node keeps only the repositories that
// fall inside the requested project scope. A nil scope is unbounded:
// every node is targeted and its repository list is left nil so the
// per-node query stays unscoped.
func (s *Static) Routes(_ context.Context, projectIDs []int64) (map[int64][]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if projectIDs == nil {
		table := make(map[int64][]int64, len(s.routes))
		for nodeID := range s.routes {
			table[nodeID] = nil
		}
		return table, nil
	}

	inScope := make(map[int64]bool, len(projectIDs))
	for _, id := range projectIDs {
		inScope[id] = true
	}

	table := make(map[int64][]int64)
	for nodeID, repoIDs := range s.routes {
		var owned []int64
		for _, id := range repoIDs {
			if inScope[id] {
				owned = append(owned, id)
			}
		}
		if len(owned) > 0 {
			table[nodeID] = owned
		}
	}
	return table, nil
}

// IndexAsync implements AsyncIndexer.
func (s *Static) IndexAsync(_ context.Context, projectID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.indexRequests = append(s.indexRequests, projectID)
	return nil
}

// IndexRequests returns the project ids passed to IndexAsync.
func (s *Static) IndexRequests() []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]int64, len(s.indexRequests))
	copy(out, s.indexRequests)
	return out
}
