package syntax

import "github.com/sourcepawn-tools/spls-core/internal/source"

// NodePtr is a stable reference to one node within a Tree: its preorder
// index in the tree's flat arena. Unlike a *Node, a NodePtr stays meaningful
// across calls that rewalk the same Tree value, which is what lets
// BodySourceMap (internal/hir) address syntax nodes without holding pointers
// into a tree that might later be replaced by a fresh parse.
type NodePtr int

// Node is one syntax-tree node. Leaves carry Text (their literal source
// span); interior nodes carry Children. There is no parent back-pointer —
// callers that need ancestry reconstruct it by walking down from Root, per
// the "no cyclic references" guidance for this pipeline's tree shapes.
type Node struct {
	Kind     Kind
	Range    source.ByteRange
	Text     string
	Children []*Node
}

// Tree is the parse result for one preprocessed file: infallible, since
// syntax errors are represented as KindError nodes rather than a parse
// failure.
type Tree struct {
	Root  *Node
	arena []*Node // preorder-indexed, built once at parse time
}

func newTree(root *Node) *Tree {
	t := &Tree{Root: root}
	t.arena = nil
	var walk func(*Node)
	walk = func(n *Node) {
		t.arena = append(t.arena, n)
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(root)
	return t
}

// NodeAt resolves a NodePtr back to its Node. Panics on an out-of-range ptr:
// a ptr is only ever produced by this Tree's own construction, so an invalid
// one means a caller held onto a ptr from a different tree.
func (t *Tree) NodeAt(ptr NodePtr) *Node {
	if int(ptr) < 0 || int(ptr) >= len(t.arena) {
		panic("spcore: invariant violation: NodePtr out of range for this Tree")
	}
	return t.arena[ptr]
}

// PtrOf returns the NodePtr for a node previously obtained from this same
// Tree (by identity), or -1 if n does not belong to it.
func (t *Tree) PtrOf(n *Node) NodePtr {
	for i, candidate := range t.arena {
		if candidate == n {
			return NodePtr(i)
		}
	}
	return -1
}

// Walk visits every node in the tree in preorder. visit returns false to
// skip descending into that node's children.
func (t *Tree) Walk(visit func(*Node) bool) {
	var walk func(*Node)
	walk = func(n *Node) {
		if !visit(n) {
			return
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(t.Root)
}

// NodeAtOffset returns the smallest node in the tree whose range contains
// offset, per the name-resolution entry point in spec.md §4.6 step 1.
func (t *Tree) NodeAtOffset(offset int) *Node {
	if t.Root == nil || offset < t.Root.Range.Start || offset > t.Root.Range.End {
		return t.Root
	}
	n := t.Root
	for {
		child := childContaining(n, offset)
		if child == nil {
			return n
		}
		n = child
	}
}

func childContaining(n *Node, offset int) *Node {
	for _, c := range n.Children {
		if offset >= c.Range.Start && offset <= c.Range.End {
			return c
		}
	}
	return nil
}

// PathAtOffset returns the ancestor chain from Root down to the smallest
// node containing offset, inclusive of both ends. Callers needing ancestry
// (name resolution's scope walk, spec.md §4.6 steps 2-3) use this instead of
// a parent pointer, per this tree's "no cyclic references" shape.
func (t *Tree) PathAtOffset(offset int) []*Node {
	if t.Root == nil || offset < t.Root.Range.Start || offset > t.Root.Range.End {
		if t.Root == nil {
			return nil
		}
		return []*Node{t.Root}
	}
	path := []*Node{t.Root}
	n := t.Root
	for {
		child := childContaining(n, offset)
		if child == nil {
			return path
		}
		path = append(path, child)
		n = child
	}
}

// TopLevelItems returns the direct children of the root, which is the set
// item-tree construction (internal/itemtree) walks.
func (t *Tree) TopLevelItems() []*Node {
	if t.Root == nil {
		return nil
	}
	return t.Root.Children
}
