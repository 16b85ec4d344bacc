package domain

import "strings"

// Position is a node's canvas position, carried through verbatim for
// UI round-tripping; the core never reasons about it.
type Position struct {
	X float64
	Y float64
}

// Node is one screen (or entry point) in a tree. Node ids are
// globally unique within a team and may carry a "_temp" suffix during
// exploration — a lifecycle marker only, never part of identity.
type Node struct {
	NodeID                    string
	TreeID                    string
	Label                     string
	NodeType                  NodeType
	Position                  Position
	Data                      map[string]any
	Verifications             []Verification
	VerificationPassCondition VerificationPassCondition
	ChildTreeID               string // "" unless this node mounts a sub-tree
}

// IsEntryPoint reports whether this node is the entry point of its
// tree: label "ENTRY" (case-insensitive) or NodeType == entry.
func (n Node) IsEntryPoint() bool {
	return n.NodeType == NodeTypeEntry || strings.EqualFold(n.Label, "ENTRY")
}

// IsTemp reports whether the node's label still carries the "_temp"
// exploration marker.
func (n Node) IsTemp() bool {
	return strings.HasSuffix(n.Label, "_temp")
}

// FinalizedLabel strips the "_temp" suffix, if present. Ids are never
// touched: the marker lives on labels only.
func (n Node) FinalizedLabel() string {
	return strings.TrimSuffix(n.Label, "_temp")
}

// Clone returns a deep-enough copy for safe mutation by callers that
// must not alias the original's maps/slices (used by the graph
// builder and incremental-patch path).
func (n Node) Clone() Node {
	c := n
	if n.Data != nil {
		c.Data = make(map[string]any, len(n.Data))
		for k, v := range n.Data {
			c.Data[k] = v
		}
	}
	if n.Verifications != nil {
		c.Verifications = append([]Verification(nil), n.Verifications...)
	}
	return c
}
