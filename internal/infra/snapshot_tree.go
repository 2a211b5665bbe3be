package infra

import (
	"github.com/seeother/scrollguard/internal/domain"
)

// TreeNode is the wire representation of one UI element in a snapshot.
type TreeNode struct {
	ElementID string      `json:"element_id,omitempty"`
	Text      string      `json:"text,omitempty"`
	Children  []*TreeNode `json:"children,omitempty"`
}

// SnapshotTree implements domain.UITree over a decoded snapshot. An
// element-id index is built once at construction, so id lookups are
// O(1) relative to tree size. The snapshot is immutable for its whole
// lifetime, which gives the engine the snapshot-consistency it expects
// for the duration of one Process call.
type SnapshotTree struct {
	root  *TreeNode
	index map[string][]*TreeNode
}

// NewSnapshotTree builds a tree (and its id index) from a decoded root.
// A nil root yields a tree whose Root() returns nil.
func NewSnapshotTree(root *TreeNode) *SnapshotTree {
	t := &SnapshotTree{
		root:  root,
		index: make(map[string][]*TreeNode),
	}
	t.indexNode(root)
	return t
}

func (t *SnapshotTree) indexNode(n *TreeNode) {
	if n == nil {
		return
	}
	if n.ElementID != "" {
		t.index[n.ElementID] = append(t.index[n.ElementID], n)
	}
	for _, child := range n.Children {
		t.indexNode(child)
	}
}

func (t *SnapshotTree) Root() (domain.UINode, error) {
	if t.root == nil {
		return nil, nil
	}
	return snapshotNode{t.root}, nil
}

func (t *SnapshotTree) FindByElementID(id string) ([]domain.UINode, error) {
	matches := t.index[id]
	nodes := make([]domain.UINode, len(matches))
	for i, m := range matches {
		nodes[i] = snapshotNode{m}
	}
	return nodes, nil
}

// snapshotNode adapts a TreeNode to the borrowed-reference node
// contract. Snapshot access never fails; the error returns exist for
// providers backed by live platform trees.
type snapshotNode struct {
	n *TreeNode
}

func (s snapshotNode) Text() (string, error) {
	return s.n.Text, nil
}

func (s snapshotNode) ElementID() (string, error) {
	return s.n.ElementID, nil
}

func (s snapshotNode) Children() ([]domain.UINode, error) {
	children := make([]domain.UINode, len(s.n.Children))
	for i, c := range s.n.Children {
		children[i] = snapshotNode{c}
	}
	return children, nil
}

var _ domain.UITree = (*SnapshotTree)(nil)
