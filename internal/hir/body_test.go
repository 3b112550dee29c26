package hir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sourcepawn-tools/spls-core/internal/syntax"
)

func lowerFirstFunction(t *testing.T, src string) (*syntax.Tree, *Body, *BodySourceMap, *syntax.Node) {
	t.Helper()
	tree := syntax.Parse(src)
	require.NotEmpty(t, tree.Root.Children)
	fn := tree.Root.Children[0]
	body, sm := Lower(tree, fn, syntax.AstId{Kind: syntax.KindFunctionDefinition, Ordinal: 0})
	return tree, body, sm, fn
}

func TestLowerParamsProduceBindings(t *testing.T) {
	_, body, _, _ := lowerFirstFunction(t, "void f(int a, int b = 2) { return; }")
	require.Len(t, body.Params, 2)
	assert.Equal(t, ExprBinding, body.Exprs[body.Params[0]].Kind)
	assert.Equal(t, "a", body.Exprs[body.Params[0]].Text)
	assert.Equal(t, "b", body.Exprs[body.Params[1]].Text)
	require.Len(t, body.Exprs[body.Params[1]].Children, 1)
}

func TestLowerBlockOpensScopeAndInternsBlockId(t *testing.T) {
	_, body, _, _ := lowerFirstFunction(t, "void f() { { int x = 1; } }")
	root := body.Exprs[body.BodyExpr]
	require.Equal(t, ExprBlock, root.Kind)
	require.Len(t, root.Children, 1)
	inner := body.Exprs[root.Children[0]]
	assert.Equal(t, ExprBlock, inner.Kind)
	require.Len(t, body.Blocks, 2)
	assert.NotEqual(t, body.Blocks[0], body.Blocks[1])
}

func TestLowerIfElse(t *testing.T) {
	_, body, _, _ := lowerFirstFunction(t, "void f() { if (x > 0) { y = 1; } else { y = 2; } }")
	block := body.Exprs[body.BodyExpr]
	require.Len(t, block.Children, 1)
	ifExpr := body.Exprs[block.Children[0]]
	require.Equal(t, ExprIf, ifExpr.Kind)
	require.Len(t, ifExpr.Children, 3)
	assert.Equal(t, ExprBinaryOp, body.Exprs[ifExpr.Children[0]].Kind)
}

func TestLowerCallExpressionFlattensArguments(t *testing.T) {
	_, body, _, _ := lowerFirstFunction(t, "void f() { Do(1, x); }")
	block := body.Exprs[body.BodyExpr]
	stmt := body.Exprs[block.Children[0]]
	require.Equal(t, ExprExpressionStatement, stmt.Kind)
	call := body.Exprs[stmt.Children[0]]
	require.Equal(t, ExprCall, call.Kind)
	require.Len(t, call.Children, 3) // callee + 2 args
	assert.Equal(t, ExprIdent, body.Exprs[call.Children[0]].Kind)
}

func TestLowerFieldAccessAndSourceMapRoundTrip(t *testing.T) {
	tree, body, sm, _ := lowerFirstFunction(t, "void f() { obj.Health = 5; }")
	block := body.Exprs[body.BodyExpr]
	stmt := body.Exprs[block.Children[0]]
	assign := body.Exprs[stmt.Children[0]]
	require.Equal(t, ExprAssignment, assign.Kind)
	target := body.Exprs[assign.Children[0]]
	require.Equal(t, ExprFieldAccess, target.Kind)

	ptr, ok := sm.NodeOf(assign.Children[0])
	require.True(t, ok)
	n := tree.NodeAt(ptr)
	assert.Equal(t, syntax.KindFieldAccess, n.Kind)

	backId, ok := sm.ExprOf(ptr)
	require.True(t, ok)
	assert.Equal(t, assign.Children[0], backId)
}

func TestLowerMalformedNodeProducesMissingNotPanic(t *testing.T) {
	_, body, _, _ := lowerFirstFunction(t, "void f() { @@@ }")
	block := body.Exprs[body.BodyExpr]
	require.NotEmpty(t, block.Children)
	for _, c := range block.Children {
		stmt := body.Exprs[c]
		require.Equal(t, ExprExpressionStatement, stmt.Kind)
		require.Len(t, stmt.Children, 1)
		assert.Equal(t, ExprMissing, body.Exprs[stmt.Children[0]].Kind)
	}
}

func TestLowerDeclarationStatement(t *testing.T) {
	_, body, _, _ := lowerFirstFunction(t, "void f() { int x = 1; }")
	block := body.Exprs[body.BodyExpr]
	declStmt := body.Exprs[block.Children[0]]
	require.Equal(t, ExprDecl, declStmt.Kind)
	require.Len(t, declStmt.Children, 1)
	decl := body.Exprs[declStmt.Children[0]]
	assert.Equal(t, "x", decl.Text)
	require.Len(t, decl.Children, 1)
	assert.Equal(t, ExprIntLiteral, body.Exprs[decl.Children[0]].Kind)
}
