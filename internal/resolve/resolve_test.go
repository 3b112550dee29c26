package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sourcepawn-tools/spls-core/internal/itemtree"
	"github.com/sourcepawn-tools/spls-core/internal/syntax"
	"github.com/sourcepawn-tools/spls-core/internal/vfs"
)

func build(src string) (*syntax.Tree, *itemtree.ItemTree) {
	tree := syntax.Parse(src)
	ids := syntax.BuildAstIdMap(tree)
	return tree, itemtree.Build(vfs.FileId(1), tree, ids, nil)
}

// nthIdentOffset returns the start offset of the n-th (0-indexed) occurrence
// of an identifier with the given text, in source order.
func nthIdentOffset(t *testing.T, root *syntax.Node, text string, n int) int {
	t.Helper()
	count := 0
	var found int = -1
	var walk func(*syntax.Node)
	walk = func(node *syntax.Node) {
		if node.Kind == syntax.KindIdentifier && node.Text == text {
			if count == n {
				found = node.Range.Start
			}
			count++
		}
		for _, c := range node.Children {
			walk(c)
		}
	}
	walk(root)
	require.NotEqual(t, -1, found, "identifier %q occurrence %d not found", text, n)
	return found
}

func TestResolveLocalVariableInBlock(t *testing.T) {
	tree, it := build(`
void Main() {
	int x = 1;
	x = 2;
}`)
	scope := Scope{Current: FileItems{File: vfs.FileId(1), Tree: tree, Items: it}}

	offset := nthIdentOffset(t, tree.Root, "x", 1) // the usage, not the declarator
	res, ok := Resolve(scope, offset)
	require.True(t, ok)
	assert.Equal(t, DefLocal, res.Kind)
	assert.Equal(t, "x", res.Name)
}

func TestResolveParameter(t *testing.T) {
	tree, it := build(`
void Helper(int count) {
	count = count + 1;
}`)
	scope := Scope{Current: FileItems{File: vfs.FileId(1), Tree: tree, Items: it}}

	offset := nthIdentOffset(t, tree.Root, "count", 1)
	res, ok := Resolve(scope, offset)
	require.True(t, ok)
	assert.Equal(t, DefParameter, res.Kind)
}

func TestResolveTopLevelFunctionCall(t *testing.T) {
	tree, it := build(`
void Helper() {}
void Main() {
	Helper();
}`)
	scope := Scope{Current: FileItems{File: vfs.FileId(1), Tree: tree, Items: it}}

	offset := nthIdentOffset(t, tree.Root, "Helper", 1) // call site, not the decl
	res, ok := Resolve(scope, offset)
	require.True(t, ok)
	assert.Equal(t, DefFunction, res.Kind)
	assert.Equal(t, "Helper", res.Name)
}

func TestResolveEnumStructFieldViaLocalVariable(t *testing.T) {
	tree, it := build(`
enum struct Player {
	int health;
}

void Main() {
	Player p;
	p.health = 5;
}`)
	scope := Scope{Current: FileItems{File: vfs.FileId(1), Tree: tree, Items: it}}

	offset := nthIdentOffset(t, tree.Root, "health", 1) // usage, not the field decl
	res, ok := Resolve(scope, offset)
	require.True(t, ok)
	assert.Equal(t, DefEnumStructField, res.Kind)
	assert.Equal(t, "health", res.Name)
}

func TestResolveThisInsideEnumStructMethod(t *testing.T) {
	tree, it := build(`
enum struct Player {
	int health;
	void Reset() {
		this.health = 100;
	}
}`)
	scope := Scope{Current: FileItems{File: vfs.FileId(1), Tree: tree, Items: it}}

	offset := nthIdentOffset(t, tree.Root, "health", 1)
	res, ok := Resolve(scope, offset)
	require.True(t, ok)
	assert.Equal(t, DefEnumStructField, res.Kind)
}

func TestResolveMethodmapInheritedMemberThroughParentChain(t *testing.T) {
	tree, it := build(`
methodmap Base {
	public native void Kill();
}
methodmap Player < Base {
	public native void Heal();
}
void Main() {
	Player p;
	p.Kill();
}`)
	scope := Scope{Current: FileItems{File: vfs.FileId(1), Tree: tree, Items: it}}

	offset := nthIdentOffset(t, tree.Root, "Kill", 1)
	res, ok := Resolve(scope, offset)
	require.True(t, ok)
	assert.Equal(t, DefMethodmapMethod, res.Kind)
	assert.Equal(t, "Kill", res.Name)
}

func TestResolveAcrossIncludedFile(t *testing.T) {
	libTree, libIt := build(`void SharedHelper() {}`)
	mainTree, mainIt := build(`
void Main() {
	SharedHelper();
}`)
	scope := Scope{
		Current:  FileItems{File: vfs.FileId(1), Tree: mainTree, Items: mainIt},
		Included: []FileItems{{File: vfs.FileId(2), Tree: libTree, Items: libIt}},
	}

	offset := nthIdentOffset(t, mainTree.Root, "SharedHelper", 0)
	res, ok := Resolve(scope, offset)
	require.True(t, ok)
	assert.Equal(t, vfs.FileId(2), res.Def.File)
	assert.Equal(t, DefFunction, res.Kind)
}

func TestResolveUnknownIdentifierFails(t *testing.T) {
	tree, it := build(`void Main() { Unknown(); }`)
	scope := Scope{Current: FileItems{File: vfs.FileId(1), Tree: tree, Items: it}}

	offset := nthIdentOffset(t, tree.Root, "Unknown", 0)
	_, ok := Resolve(scope, offset)
	assert.False(t, ok)
}

func TestResolveLocalsInDifferentFunctionsDoNotCollide(t *testing.T) {
	tree, it := build(`
void a() {
	int x = 1;
	Use(x);
}
void b() {
	int x = 2;
	Use(x);
}`)
	scope := Scope{Current: FileItems{File: vfs.FileId(1), Tree: tree, Items: it}}

	resA, ok := Resolve(scope, nthIdentOffset(t, tree.Root, "x", 1))
	require.True(t, ok)
	resB, ok := Resolve(scope, nthIdentOffset(t, tree.Root, "x", 3))
	require.True(t, ok)

	assert.NotEqual(t, resA.Def, resB.Def, "locals named the same in different functions must not share a DefId")

	refs := FindReferences(map[vfs.FileId]Scope{vfs.FileId(1): scope}, resA)
	require.Len(t, refs, 1, "renaming a()'s x must not touch b()'s x")
	assert.Equal(t, nthIdentOffset(t, tree.Root, "x", 1), refs[0].Range.Start)
}

func TestFindReferencesAcrossFiles(t *testing.T) {
	libTree, libIt := build(`void SharedHelper() {}`)
	mainTree, mainIt := build(`
void Main() {
	SharedHelper();
	SharedHelper();
}`)
	mainScope := Scope{
		Current:  FileItems{File: vfs.FileId(1), Tree: mainTree, Items: mainIt},
		Included: []FileItems{{File: vfs.FileId(2), Tree: libTree, Items: libIt}},
	}
	libScope := Scope{Current: FileItems{File: vfs.FileId(2), Tree: libTree, Items: libIt}}

	def, ok := Resolve(mainScope, nthIdentOffset(t, mainTree.Root, "SharedHelper", 0))
	require.True(t, ok)

	refs := FindReferences(map[vfs.FileId]Scope{
		vfs.FileId(1): mainScope,
		vfs.FileId(2): libScope,
	}, def)

	// The declaration's own name token in lib.inc is excluded (spec.md §8
	// invariant 7); only the two call sites in main.sp are reported.
	require.Len(t, refs, 2)
	for _, r := range refs {
		assert.Equal(t, vfs.FileId(1), r.File)
	}
}
