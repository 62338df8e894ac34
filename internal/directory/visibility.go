package directory

// FilterOptions tunes the pre-dispatch visibility filter.
type FilterOptions struct {
	// IncludeArchived keeps archived projects in scope.
	IncludeArchived bool

	// IncludeForked keeps forked projects in scope.
	IncludeForked bool

	// Member reports whether the calling user is a member of the
	// project, which grants access to private repositories. A nil
	// func means no memberships.
	Member func(projectID int64) bool
}

// FilterVisible applies the visibility predicates a search scope must
// pass before dispatch: archived and forked projects are dropped unless
// opted in, and private repositories are dropped for non-members even
// when the project itself is public.
func FilterVisible(projects []Project, opts FilterOptions) []Project {
	visible := make([]Project, 0, len(projects))
	for _, p := range projects {
		if p.Archived && !opts.IncludeArchived {
			continue
		}
		if p.Fork && !opts.IncludeForked {
			continue
		}
		if p.RepoVisibility == VisibilityPrivate {
			if opts.Member == nil || !opts.Member(p.ID) {
				continue
			}
		}
		visible = append(visible, p)
	}
	return visible
}
