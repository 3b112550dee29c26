package syntax

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeAtOffsetFindsSmallestContainingNode(t *testing.T) {
	tree := Parse("void f() { x = 1; }")
	fn := tree.Root.Children[0]
	block := fn.Children[len(fn.Children)-1]
	require.Equal(t, KindBlock, block.Kind)

	// Offset inside the int literal "1".
	litOffset := block.Range.End - 4
	n := tree.NodeAtOffset(litOffset)
	assert.Equal(t, KindIntLiteral, n.Kind)
}

func TestPathAtOffsetReturnsRootToLeaf(t *testing.T) {
	tree := Parse("void f() { x = 1; }")
	fn := tree.Root.Children[0]
	block := fn.Children[len(fn.Children)-1]
	litOffset := block.Range.End - 4

	path := tree.PathAtOffset(litOffset)
	require.NotEmpty(t, path)
	assert.Equal(t, KindSourceFile, path[0].Kind)
	assert.Equal(t, KindIntLiteral, path[len(path)-1].Kind)

	var sawBlock, sawAssignment bool
	for _, n := range path {
		if n.Kind == KindBlock {
			sawBlock = true
		}
		if n.Kind == KindAssignmentExpression {
			sawAssignment = true
		}
	}
	assert.True(t, sawBlock)
	assert.True(t, sawAssignment)
}

func TestAstIdMapAssignsOrdinalsPerKind(t *testing.T) {
	tree := Parse("void a() {} void b() {} int x;")
	ids := BuildAstIdMap(tree)

	aPtr := tree.PtrOf(tree.Root.Children[0])
	bPtr := tree.PtrOf(tree.Root.Children[1])

	aId, ok := ids.IdOf(aPtr)
	require.True(t, ok)
	assert.Equal(t, AstId{Kind: KindFunctionDefinition, Ordinal: 0}, aId)

	bId, ok := ids.IdOf(bPtr)
	require.True(t, ok)
	assert.Equal(t, AstId{Kind: KindFunctionDefinition, Ordinal: 1}, bId)

	resolved, ok := ids.Lookup(aId)
	require.True(t, ok)
	assert.Equal(t, aPtr, resolved)
}
