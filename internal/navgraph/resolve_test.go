package navgraph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hostcp/internal/domain"
	derrors "hostcp/internal/domain/errors"
	"hostcp/internal/store/memstore"
)

func seededHierarchy(t *testing.T) *memstore.MemStore {
	t.Helper()
	s := memstore.New()
	s.Seed(
		domain.UserInterface{ID: "ui1", Name: "tv"},
		[]domain.NavigationTree{
			{TreeID: "root", IsRootTree: true, Name: "root", UserInterfaceID: "ui1"},
			{TreeID: "child", ParentTreeID: "root", Name: "child"},
			{TreeID: "grandchild", ParentTreeID: "child", Name: "grandchild"},
		},
		map[string][]domain.Node{},
		map[string][]domain.Edge{},
	)
	return s
}

func TestResolveRootTreeID_AlreadyRoot(t *testing.T) {
	s := seededHierarchy(t)
	id, err := ResolveRootTreeID(context.Background(), s, "root", "team1")
	require.NoError(t, err)
	assert.Equal(t, "root", id)
}

func TestResolveRootTreeID_WalksParentChain(t *testing.T) {
	s := seededHierarchy(t)
	id, err := ResolveRootTreeID(context.Background(), s, "grandchild", "team1")
	require.NoError(t, err)
	assert.Equal(t, "root", id)
}

func TestResolveRootTreeID_UnknownTree(t *testing.T) {
	s := seededHierarchy(t)
	_, err := ResolveRootTreeID(context.Background(), s, "does-not-exist", "team1")
	require.Error(t, err)
	var navErr *derrors.NavigationTreeError
	assert.ErrorAs(t, err, &navErr)
}

func TestResolveRootTreeID_CycleDetected(t *testing.T) {
	s := memstore.New()
	s.Seed(
		domain.UserInterface{ID: "ui1", Name: "tv"},
		[]domain.NavigationTree{
			{TreeID: "a", ParentTreeID: "b", Name: "a"},
			{TreeID: "b", ParentTreeID: "a", Name: "b"},
		},
		map[string][]domain.Node{},
		map[string][]domain.Edge{},
	)

	_, err := ResolveRootTreeID(context.Background(), s, "a", "team1")
	require.Error(t, err)
	var navErr *derrors.NavigationTreeError
	assert.ErrorAs(t, err, &navErr)
}

func TestCollectTreeHierarchy_WalksChildren(t *testing.T) {
	trees := []TreeData{
		{Tree: domain.NavigationTree{TreeID: "root", IsRootTree: true}},
		{Tree: domain.NavigationTree{TreeID: "child", ParentTreeID: "root"}},
		{Tree: domain.NavigationTree{TreeID: "grandchild", ParentTreeID: "child"}},
		{Tree: domain.NavigationTree{TreeID: "unrelated", ParentTreeID: "other-root"}},
	}
	loadAll := func(ctx context.Context, teamID string) ([]TreeData, error) { return trees, nil }

	out, err := CollectTreeHierarchy(context.Background(), nil, "root", "team1", loadAll)
	require.NoError(t, err)

	ids := make([]string, len(out))
	for i, td := range out {
		ids[i] = td.Tree.TreeID
	}
	assert.ElementsMatch(t, []string{"root", "child", "grandchild"}, ids)
}

func TestCollectTreeHierarchy_UnknownRoot(t *testing.T) {
	loadAll := func(ctx context.Context, teamID string) ([]TreeData, error) { return nil, nil }
	_, err := CollectTreeHierarchy(context.Background(), nil, "missing", "team1", loadAll)
	assert.Error(t, err)
}
