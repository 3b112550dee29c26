package syntax

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFunctionDefinition(t *testing.T) {
	tree := Parse("public void Handler(int client) { return; }")
	require.Len(t, tree.Root.Children, 1)
	fn := tree.Root.Children[0]
	assert.Equal(t, KindFunctionDefinition, fn.Kind)
}

func TestParseFunctionDeclarationNoBody(t *testing.T) {
	tree := Parse("native int GetValue(int a, int b);")
	require.Len(t, tree.Root.Children, 1)
	assert.Equal(t, KindFunctionDeclaration, tree.Root.Children[0].Kind)
}

func TestParseGlobalVariableDeclarationWithInit(t *testing.T) {
	tree := Parse("int x = 1;")
	require.Len(t, tree.Root.Children, 1)
	decl := tree.Root.Children[0]
	assert.Equal(t, KindGlobalVariableDeclaration, decl.Kind)
}

func TestParseOldStyleVariableDeclaration(t *testing.T) {
	tree := Parse("new x = 5;")
	require.Len(t, tree.Root.Children, 1)
	assert.Equal(t, KindOldGlobalVariableDeclaration, tree.Root.Children[0].Kind)
}

func TestParseEnum(t *testing.T) {
	tree := Parse("enum Color { Red, Green, Blue = 5 }")
	require.Len(t, tree.Root.Children, 1)
	e := tree.Root.Children[0]
	require.Equal(t, KindEnum, e.Kind)
}

func TestParseEnumStruct(t *testing.T) {
	tree := Parse(`
enum struct Player {
	int health;
	void Reset() { this.health = 100; }
}`)
	require.Len(t, tree.Root.Children, 1)
	assert.Equal(t, KindEnumStruct, tree.Root.Children[0].Kind)
}

func TestParseMethodmap(t *testing.T) {
	tree := Parse(`
methodmap Player < Handle {
	public native void Kill();
	property int Health {
		public get() { return 0; }
	}
}`)
	require.Len(t, tree.Root.Children, 1)
	mm := tree.Root.Children[0]
	assert.Equal(t, KindMethodmap, mm.Kind)
}

func TestParseCallExpressionAndFieldAccess(t *testing.T) {
	tree := Parse("void f() { obj.Method(1, 2); }")
	fn := tree.Root.Children[0]
	block := fn.Children[len(fn.Children)-1]
	require.Len(t, block.Children, 1)
	exprStmt := block.Children[0]
	require.Equal(t, KindExpressionStatement, exprStmt.Kind)
	call := exprStmt.Children[0]
	assert.Equal(t, KindCallExpression, call.Kind)
	assert.Equal(t, KindFieldAccess, call.Children[0].Kind)
}

func TestParseIfElseAndWhile(t *testing.T) {
	tree := Parse(`
void f() {
	if (x > 0) { y = 1; } else { y = 2; }
	while (x < 10) { x++; }
}`)
	fn := tree.Root.Children[0]
	block := fn.Children[len(fn.Children)-1]
	require.Len(t, block.Children, 2)
	assert.Equal(t, KindConditionStatement, block.Children[0].Kind)
	assert.Equal(t, KindWhileStatement, block.Children[1].Kind)
}

func TestParseMalformedInputProducesErrorNodeNotPanic(t *testing.T) {
	tree := Parse("int x = ;;; @@@ void")
	require.NotNil(t, tree.Root)
}

func TestAstIdStableAcrossUnrelatedBodyEdit(t *testing.T) {
	tree1 := Parse("void a() { int x = 1; } void b() {}")
	ids1 := BuildAstIdMap(tree1)

	tree2 := Parse("void a() { int x = 1; int y = 2; int z = 3; } void b() {}")
	ids2 := BuildAstIdMap(tree2)

	aId := AstId{Kind: KindFunctionDefinition, Ordinal: 0}
	bId := AstId{Kind: KindFunctionDefinition, Ordinal: 1}

	_, ok := ids1.Lookup(bId)
	require.True(t, ok)
	_, ok = ids2.Lookup(bId)
	require.True(t, ok)
	_, ok = ids1.Lookup(aId)
	require.True(t, ok)
	_, ok = ids2.Lookup(aId)
	require.True(t, ok)
}
