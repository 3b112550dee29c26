package syntax

import "fmt"

// AstId is a stable identity for a top-level syntactic construct. It is
// computed from the node's Kind and its ordinal position among sibling
// top-level nodes of the same Kind — not from its byte offset or array
// index — so that editing only the body of one function (which changes no
// other top-level item's kind or relative order) leaves every other
// top-level item's AstId unchanged across a re-parse (spec.md §8 invariant
// 4: item-tree stability).
type AstId struct {
	Kind    Kind
	Ordinal int
}

func (id AstId) String() string { return fmt.Sprintf("%s#%d", id.Kind, id.Ordinal) }

// AstIdMap is the bijection between a Tree's top-level nodes and their
// AstIds, built once per parse.
type AstIdMap struct {
	byId  map[AstId]NodePtr
	byPtr map[NodePtr]AstId
}

// BuildAstIdMap walks tree's top-level items and assigns each an AstId.
func BuildAstIdMap(tree *Tree) *AstIdMap {
	m := &AstIdMap{byId: make(map[AstId]NodePtr), byPtr: make(map[NodePtr]AstId)}
	counts := make(map[Kind]int)
	for _, n := range tree.TopLevelItems() {
		ordinal := counts[n.Kind]
		counts[n.Kind] = ordinal + 1
		id := AstId{Kind: n.Kind, Ordinal: ordinal}
		ptr := tree.PtrOf(n)
		m.byId[id] = ptr
		m.byPtr[ptr] = id
	}
	return m
}

// Lookup resolves an AstId to its node pointer in tree, if still present.
func (m *AstIdMap) Lookup(id AstId) (NodePtr, bool) {
	ptr, ok := m.byId[id]
	return ptr, ok
}

// IdOf returns the AstId assigned to a top-level node, if any.
func (m *AstIdMap) IdOf(ptr NodePtr) (AstId, bool) {
	id, ok := m.byPtr[ptr]
	return id, ok
}
