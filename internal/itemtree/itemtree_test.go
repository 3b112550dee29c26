package itemtree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sourcepawn-tools/spls-core/internal/syntax"
	"github.com/sourcepawn-tools/spls-core/internal/vfs"
)

func build(t *testing.T, src string) *ItemTree {
	t.Helper()
	tree := syntax.Parse(src)
	ids := syntax.BuildAstIdMap(tree)
	return Build(vfs.FileId(1), tree, ids, nil)
}

func TestBuildCollectsFunctionsAndVariables(t *testing.T) {
	it := build(t, "public void Helper() {}\nint counter;\n")
	require.Len(t, it.Functions, 1)
	assert.Equal(t, "Helper", it.Functions[0].Name)
	assert.True(t, it.Functions[0].HasBody)
	assert.NotZero(t, it.Functions[0].Visibility&VisPublic)

	require.Len(t, it.Variables, 1)
	assert.Equal(t, "counter", it.Variables[0].Name)
}

func TestBuildFunctionDeclarationHasNoBody(t *testing.T) {
	it := build(t, "native void Fwd();")
	require.Len(t, it.Functions, 1)
	assert.False(t, it.Functions[0].HasBody)
}

func TestBuildEnumVariants(t *testing.T) {
	it := build(t, "enum Color { Red, Green, Blue }")
	require.Len(t, it.Enums, 1)
	assert.Equal(t, "Color", it.Enums[0].Name)
	require.Len(t, it.Enums[0].Variants, 3)
	assert.Equal(t, "Red", it.Enums[0].Variants[0].Name)
}

func TestBuildEnumStructFieldsAndMethods(t *testing.T) {
	it := build(t, `
enum struct Player {
	int health;
	void Reset() {}
}`)
	require.Len(t, it.EnumStructs, 1)
	es := it.EnumStructs[0]
	assert.Equal(t, "Player", es.Name)
	require.Len(t, es.Items, 2)
	assert.Equal(t, EnumStructMemberField, es.Items[0].Kind)
	assert.Equal(t, "health", es.Items[0].Name)
	assert.Equal(t, EnumStructMemberMethod, es.Items[1].Kind)
	assert.Equal(t, "Reset", es.Items[1].Name)
}

func TestBuildMethodmapItems(t *testing.T) {
	it := build(t, `
methodmap Player < Handle {
	public native void Kill();
	property int Health {
		public get() { return 0; }
	}
}`)
	require.Len(t, it.Methodmaps, 1)
	mm := it.Methodmaps[0]
	assert.Equal(t, "Player", mm.Name)
	assert.Equal(t, "Handle", mm.Parent)
	require.Len(t, mm.Items, 2)
	assert.Equal(t, "Kill", mm.Items[0].Name)
	assert.Equal(t, MethodmapItemProperty, mm.Items[1].Kind)
}

func TestBuildTotalOnTopLevelForms(t *testing.T) {
	it := build(t, "typedef Callback = function void();\nfuncenum Handler { Callback1, Callback2 };")
	require.Len(t, it.Typedefs, 2)
	assert.Equal(t, TypedefTypedef, it.Typedefs[0].Kind)
	assert.Equal(t, TypedefFuncenum, it.Typedefs[1].Kind)
}

func TestBuildIncludesDefinesFromMacroTable(t *testing.T) {
	it := build(t, "")
	assert.Empty(t, it.Defines)

	tree := syntax.Parse("")
	it = Build(vfs.FileId(1), tree, syntax.BuildAstIdMap(tree), []NamedRange{{Name: "FOO"}})
	require.Len(t, it.Defines, 1)
	assert.Equal(t, "FOO", it.Defines[0].Name)
}
