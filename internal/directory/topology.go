package directory

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// topologyFile is the YAML shape of a static cluster description.
type topologyFile struct {
	Nodes []struct {
		ID       int64   `yaml:"id"`
		Endpoint string  `yaml:"endpoint"`
		RepoIDs  []int64 `yaml:"repo_ids"`
	} `yaml:"nodes"`
	Projects []struct {
		ID            int64  `yaml:"id"`
		FullPath      string `yaml:"full_path"`
		Archived      bool   `yaml:"archived"`
		Fork          bool   `yaml:"fork"`
		PendingDelete bool   `yaml:"pending_delete"`
		Visibility    string `yaml:"visibility"`
		EmptyRepo     bool   `yaml:"empty_repo"`
		Indexed       bool   `yaml:"indexed"`
	} `yaml:"projects"`
}

// LoadTopology reads a static cluster description from a YAML file.
// Deployments without a live project directory service run from one of
// these.
func LoadTopology(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading topology file: %w", err)
	}

	var file topologyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing topology file: %w", err)
	}

	static := NewStatic()
	for _, n := range file.Nodes {
		static.AddNode(Node{ID: n.ID, Endpoint: n.Endpoint}, n.RepoIDs)
	}
	for _, p := range file.Projects {
		visibility := VisibilityPublic
		if p.Visibility == string(VisibilityPrivate) {
			visibility = VisibilityPrivate
		}
		static.AddProject(Project{
			ID:             p.ID,
			FullPath:       p.FullPath,
			Archived:       p.Archived,
			Fork:           p.Fork,
			PendingDelete:  p.PendingDelete,
			RepoVisibility: visibility,
			EmptyRepo:      p.EmptyRepo,
			Indexed:        p.Indexed,
		})
	}

	return static, nil
}
