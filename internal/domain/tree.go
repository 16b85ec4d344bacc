package domain

// MaxTreeDepth bounds how deep a tree hierarchy may nest.
const MaxTreeDepth = 5

// NavigationTree is one tree in a hierarchy; a root tree plus zero or
// more descendants mounted via a node's ChildTreeID form the
// hierarchy a UnifiedGraph stitches together.
type NavigationTree struct {
	TreeID          string
	ParentTreeID    string // "" for the root tree
	ParentNodeID    string // "" for the root tree
	IsRootTree      bool
	TreeDepth       int
	UserInterfaceID string
	Name            string
}

// UserInterface is the persistence-contract entity that
// get_userinterface_by_name resolves a name to.
type UserInterface struct {
	ID     string
	Name   string
	Models []string
}
