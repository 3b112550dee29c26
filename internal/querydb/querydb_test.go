package querydb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sourcepawn-tools/spls-core/internal/hir"
	"github.com/sourcepawn-tools/spls-core/internal/syntax"
	"github.com/sourcepawn-tools/spls-core/internal/vfs"
)

type mapResolver struct {
	byPath map[string]vfs.FileId
}

func (r *mapResolver) Resolve(_ vfs.FileId, path string, _ bool) (vfs.FileId, bool) {
	id, ok := r.byPath[path]
	return id, ok
}

func TestPreprocessAndParseAreMemoized(t *testing.T) {
	db := New(nil)
	db.SetFileText(1, "int x = 1;")

	pf1 := db.Preprocess(1)
	pf2 := db.Preprocess(1)
	assert.Same(t, pf1, pf2, "query purity: repeated reads of unchanged input return the identical memoized value")

	tree1 := db.Parse(1)
	tree2 := db.Parse(1)
	assert.Same(t, tree1, tree2)
}

func TestMutatingFileInvalidatesOnlyItsOwnParse(t *testing.T) {
	db := New(nil)
	db.SetFileText(1, "int a = 1;")
	db.SetFileText(2, "int b = 2;")

	parseA1 := db.Parse(1)
	parseB1 := db.Parse(2)

	db.SetFileText(1, "int a = 99;")

	parseA2 := db.Parse(1)
	parseB2 := db.Parse(2)

	assert.NotSame(t, parseA1, parseA2, "editing file 1 must invalidate its own parse")
	assert.Same(t, parseB1, parseB2, "editing file 1 must not invalidate file 2's parse (spec.md §8 invariant 3)")
}

func TestIncludeResolutionAndGlobalLookup(t *testing.T) {
	// S1: main.sp includes util.inc and calls helper(); find_def resolves
	// into util.inc's Function.
	resolver := &mapResolver{byPath: map[string]vfs.FileId{"util.inc": 2}}
	db := New(resolver)
	db.SetFileText(1, "#include \"util.inc\"\nvoid main() { helper(); }")
	db.SetFileText(2, "void helper() {}")
	db.SetKnownFiles([]FileInfo{{Id: 1, Ext: vfs.ExtSp}, {Id: 2, Ext: vfs.ExtInc}})

	g := db.Graph()
	assert.True(t, g.HasEdge(1, 2))

	roots := g.Roots()
	require.Len(t, roots, 1)
	assert.Equal(t, vfs.FileId(1), roots[0])

	it := db.FileItemTree(2)
	require.Len(t, it.Functions, 1)
	assert.Equal(t, "helper", it.Functions[0].Name)
}

func TestIncrementalInvalidationAcrossUnrelatedFiles(t *testing.T) {
	// S6: a.sp and b.sp share no include relationship; mutating a.sp must
	// not force b.sp's parse to re-run.
	db := New(nil)
	db.SetFileText(10, "void a() {}")
	db.SetFileText(20, "void b() {}")

	before := db.Parse(20)
	db.SetFileText(10, "void a() { int y = 1; }")
	after := db.Parse(20)

	assert.Same(t, before, after)
}

func TestFileItemTreeExcludesMacrosMergedFromIncludes(t *testing.T) {
	resolver := &mapResolver{byPath: map[string]vfs.FileId{"defs.inc": 2}}
	db := New(resolver)
	db.SetFileText(1, "#include \"defs.inc\"\nint x = FOO;")
	db.SetFileText(2, "#define FOO 1")

	mainTree := db.FileItemTree(1)
	incTree := db.FileItemTree(2)

	assert.Empty(t, mainTree.Defines, "FOO is declared in defs.inc, not main.sp")
	require.Len(t, incTree.Defines, 1)
	assert.Equal(t, "FOO", incTree.Defines[0].Name)
}

func TestBodyWithSourceMapLowersTheOwningFunction(t *testing.T) {
	db := New(nil)
	db.SetFileText(1, "void f() { int x = 1; }")

	tree := db.Parse(1)
	ids := db.AstIdMap(1)
	fn := tree.Root.Children[0]
	owner, ok := ids.IdOf(tree.PtrOf(fn))
	require.True(t, ok)

	body, sm, ok := db.BodyWithSourceMap(DefWithBodyId{File: 1, Owner: owner})
	require.True(t, ok)
	require.NotNil(t, body)
	require.NotNil(t, sm)
	assert.Equal(t, hir.ExprBlock, body.Exprs[body.BodyExpr].Kind)
}

func TestBodyWithSourceMapUnknownOwnerFails(t *testing.T) {
	db := New(nil)
	db.SetFileText(1, "void f() {}")
	db.Parse(1)
	db.AstIdMap(1)

	_, _, ok := db.BodyWithSourceMap(DefWithBodyId{File: 1, Owner: syntax.AstId{Kind: syntax.KindFunctionDefinition, Ordinal: 7}})
	assert.False(t, ok)
}
