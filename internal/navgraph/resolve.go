package navgraph

import (
	"context"

	"hostcp/internal/domain"
	derrors "hostcp/internal/domain/errors"
	"hostcp/internal/store"
)

// ResolveRootTreeID walks a tree's parent_tree_id chain up to its root,
// stopping at the first tree that is flagged as root or has no parent
// (treeID itself when it is already a root tree). This keeps the cache
// key a root_tree_id.
func ResolveRootTreeID(ctx context.Context, s store.Store, treeID, teamID string) (string, error) {
	seen := make(map[string]bool)
	current := treeID
	for {
		if seen[current] {
			return "", derrors.NewNavigationTreeError("", current, "parent_tree_id cycle detected", nil)
		}
		seen[current] = true

		t, err := s.GetTree(ctx, current, teamID)
		if err != nil {
			return "", derrors.NewNavigationTreeError("", current, "tree lookup failed", err)
		}
		if t.IsRootTree || t.ParentTreeID == "" {
			return t.TreeID, nil
		}
		current = t.ParentTreeID
	}
}

// CollectTreeHierarchy loads rootTreeID and every tree transitively
// reachable from it via parent_tree_id, depth-first, up to
// domain.MaxTreeDepth levels.
func CollectTreeHierarchy(ctx context.Context, s store.Store, rootTreeID, teamID string, loadAll func(ctx context.Context, teamID string) ([]TreeData, error)) ([]TreeData, error) {
	all, err := loadAll(ctx, teamID)
	if err != nil {
		return nil, err
	}
	byParent := make(map[string][]TreeData)
	byID := make(map[string]TreeData)
	for _, td := range all {
		byID[td.Tree.TreeID] = td
		byParent[td.Tree.ParentTreeID] = append(byParent[td.Tree.ParentTreeID], td)
	}

	root, ok := byID[rootTreeID]
	if !ok {
		return nil, derrors.NewNavigationTreeError("", rootTreeID, "root tree not found", nil)
	}

	var out []TreeData
	var walk func(td TreeData, depth int)
	walk = func(td TreeData, depth int) {
		out = append(out, td)
		if depth+1 >= domain.MaxTreeDepth {
			return
		}
		for _, child := range byParent[td.Tree.TreeID] {
			walk(child, depth+1)
		}
	}
	walk(root, 0)
	return out, nil
}
