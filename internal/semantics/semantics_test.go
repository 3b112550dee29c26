package semantics

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sourcepawn-tools/spls-core/internal/querydb"
	"github.com/sourcepawn-tools/spls-core/internal/resolve"
	"github.com/sourcepawn-tools/spls-core/internal/source"
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

// identOffset returns the start offset of the n-th (0-indexed) occurrence of
// an identifier with the given text, in source order.
func identOffset(t *testing.T, root *syntax.Node, text string, n int) int {
	t.Helper()
	count := 0
	found := -1
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

func posOf(text string, offset int) source.Position {
	return source.OffsetToPosition(text, offset)
}

func TestRenameAcrossIncludes(t *testing.T) {
	// S4: main.sp includes util.inc and calls helper(); renaming helper at
	// its definition must edit only util.inc (the decl) and main.sp (the
	// call site).
	resolver := &mapResolver{byPath: map[string]vfs.FileId{"util.inc": 2}}
	db := querydb.New(resolver)
	db.SetFileText(1, "#include \"util.inc\"\nvoid main() { helper(); }")
	db.SetFileText(2, "void helper() {}")
	db.SetKnownFiles([]querydb.FileInfo{{Id: 1, Ext: vfs.ExtSp}, {Id: 2, Ext: vfs.ExtInc}})

	f := New(db)

	declText := db.Preprocess(2).Text
	declOffset := identOffset(t, db.Parse(2).Root, "helper", 0)
	declPos := posOf(declText, declOffset)

	edit, err := f.Rename(2, declPos, "helper2")
	require.NoError(t, err)
	require.Len(t, edit, 2, "only util.inc and main.sp should be touched")

	require.Contains(t, edit, vfs.FileId(2))
	require.Len(t, edit[2], 1)
	assert.Equal(t, "helper2", edit[2][0].NewText)

	require.Contains(t, edit, vfs.FileId(1))
	require.Len(t, edit[1], 1)
	assert.Equal(t, "helper2", edit[1][0].NewText)
}

func TestRenamePreviewRendersDiffPerFile(t *testing.T) {
	resolver := &mapResolver{byPath: map[string]vfs.FileId{"util.inc": 2}}
	db := querydb.New(resolver)
	db.SetFileText(1, "#include \"util.inc\"\nvoid main() { helper(); }")
	db.SetFileText(2, "void helper() {}")
	db.SetKnownFiles([]querydb.FileInfo{{Id: 1, Ext: vfs.ExtSp}, {Id: 2, Ext: vfs.ExtInc}})

	f := New(db)

	items := db.FileItemTree(2)
	require.Len(t, items.Functions, 1)
	id := resolve.DefId{File: 2, AstId: items.Functions[0].AstId}

	previews, err := f.RenamePreview(id, "helper2")
	require.NoError(t, err)
	require.Len(t, previews, 2)

	for _, diff := range previews {
		assert.Contains(t, diff, "helper2")
	}
}

func TestCallHierarchyScenario(t *testing.T) {
	// S5: outgoing(a) = [b]; incoming(b) = [a]; outgoing(c) = [].
	db := querydb.New(nil)
	src := "void a() { b(); } void b() { c(); } void c() {}"
	db.SetFileText(1, src)
	db.SetKnownFiles([]querydb.FileInfo{{Id: 1, Ext: vfs.ExtSp}})

	f := New(db)
	text := db.Preprocess(1).Text
	root := db.Parse(1).Root

	aPos := posOf(text, identOffset(t, root, "a", 0))
	aItem, ok := f.CallHierarchyPrepare(1, aPos)
	require.True(t, ok)
	assert.Equal(t, "a", aItem.Name)

	outgoingA := f.CallHierarchyOutgoing(*aItem)
	require.Len(t, outgoingA, 1)
	assert.Equal(t, "b", outgoingA[0].To.Name)

	bPos := posOf(text, identOffset(t, root, "b", 1)) // declaration, not the call in a()
	bItem, ok := f.CallHierarchyPrepare(1, bPos)
	require.True(t, ok)
	assert.Equal(t, "b", bItem.Name)

	incomingB := f.CallHierarchyIncoming(*bItem)
	require.Len(t, incomingB, 1)
	assert.Equal(t, "a", incomingB[0].From.Name)

	cPos := posOf(text, identOffset(t, root, "c", 1))
	cItem, ok := f.CallHierarchyPrepare(1, cPos)
	require.True(t, ok)
	assert.Empty(t, f.CallHierarchyOutgoing(*cItem))
}

func TestDefinitionAndHover(t *testing.T) {
	db := querydb.New(nil)
	db.SetFileText(1, "void Helper() {}\nvoid Main() { Helper(); }")
	db.SetKnownFiles([]querydb.FileInfo{{Id: 1, Ext: vfs.ExtSp}})

	f := New(db)
	text := db.Preprocess(1).Text
	callPos := posOf(text, identOffset(t, db.Parse(1).Root, "Helper", 1))

	def, ok := f.Definition(1, callPos)
	require.True(t, ok)
	assert.Equal(t, resolve.DefFunction, def.Kind)

	hover, ok := f.Hover(1, callPos)
	require.True(t, ok)
	assert.Contains(t, hover.Contents, "Helper")
}

func TestReferencesExcludesDeclarationSite(t *testing.T) {
	db := querydb.New(nil)
	db.SetFileText(1, "void Helper() {}\nvoid Main() { Helper(); Helper(); }")
	db.SetKnownFiles([]querydb.FileInfo{{Id: 1, Ext: vfs.ExtSp}})

	f := New(db)
	text := db.Preprocess(1).Text
	declPos := posOf(text, identOffset(t, db.Parse(1).Root, "Helper", 0))

	refs, ok := f.References(1, declPos)
	require.True(t, ok)
	assert.Len(t, refs, 2)
}

func TestDocumentSymbolsListsTopLevelItems(t *testing.T) {
	db := querydb.New(nil)
	db.SetFileText(1, `
enum Color { Red, Green }
enum struct Player {
	int health;
}
void Main() {}
`)
	db.SetKnownFiles([]querydb.FileInfo{{Id: 1, Ext: vfs.ExtSp}})

	f := New(db)
	symbols := f.DocumentSymbols(1)

	var names []string
	for _, s := range symbols {
		names = append(names, s.Name)
	}
	assert.Contains(t, names, "Color")
	assert.Contains(t, names, "Player")
	assert.Contains(t, names, "Main")

	for _, s := range symbols {
		if s.Name == "Color" {
			require.Len(t, s.Children, 2)
			assert.Equal(t, "Red", s.Children[0].Name)
		}
	}
}

func TestSignatureHelpReportsActiveParameter(t *testing.T) {
	db := querydb.New(nil)
	src := "void Add(int a, int b) {}\nvoid Main() { Add(1, 2); }"
	db.SetFileText(1, src)
	db.SetKnownFiles([]querydb.FileInfo{{Id: 1, Ext: vfs.ExtSp}})

	f := New(db)
	text := db.Preprocess(1).Text
	offset := strings.Index(text, "2)")
	require.GreaterOrEqual(t, offset, 0)

	help, ok := f.SignatureHelp(1, posOf(text, offset))
	require.True(t, ok)
	require.Len(t, help.Parameters, 2)
	assert.Equal(t, 1, help.ActiveParameter)
}

func TestDiagnosticsReportsDuplicateTopLevelDeclaration(t *testing.T) {
	db := querydb.New(nil)
	db.SetFileText(1, "void Helper() {}\nvoid Helper() {}")
	db.SetKnownFiles([]querydb.FileInfo{{Id: 1, Ext: vfs.ExtSp}})

	f := New(db)
	diags := f.Diagnostics(1)

	var found bool
	for _, d := range diags {
		if d.Code == "duplicate_declaration" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestCompletionIncludesLocalsAndTopLevelItems(t *testing.T) {
	db := querydb.New(nil)
	db.SetFileText(1, `
void Helper() {}
void Main() {
	int count = 0;
}
`)
	db.SetKnownFiles([]querydb.FileInfo{{Id: 1, Ext: vfs.ExtSp}})

	f := New(db)
	text := db.Preprocess(1).Text
	offset := strings.LastIndex(text, "}")

	items := f.Completion(1, posOf(text, offset))
	var labels []string
	for _, it := range items {
		labels = append(labels, it.Label)
	}
	assert.Contains(t, labels, "Helper")
	assert.Contains(t, labels, "count")
}
