// Package querydb implements the incremental query database (spec.md §4.7):
// a small closed set of inputs (file text, known files, source roots) and a
// set of derived queries memoized against them. The original implementation
// this spec distills from leans on salsa's query-group macros for automatic
// dependency tracking; Go has no equivalent, so this package reimplements
// the idea directly — a per-file revision counter bumped on every input
// write, and a memo table whose entries snapshot the revisions of whatever
// inputs their computation actually read. A cached value is reused only
// while every one of those snapshots still matches the database's current
// revisions; otherwise it is recomputed on next read (spec.md §5's
// "invalidate memoized values whose fingerprints changed", applied lazily at
// read time rather than by an eager dependency-graph walk).
package querydb

import (
	"sync"

	"github.com/sourcepawn-tools/spls-core/internal/hir"
	"github.com/sourcepawn-tools/spls-core/internal/incgraph"
	"github.com/sourcepawn-tools/spls-core/internal/itemtree"
	"github.com/sourcepawn-tools/spls-core/internal/preproc"
	"github.com/sourcepawn-tools/spls-core/internal/source"
	"github.com/sourcepawn-tools/spls-core/internal/syntax"
	"github.com/sourcepawn-tools/spls-core/internal/vfs"
)

// globalKey is the sentinel file id deps snapshot entries use for inputs
// that aren't scoped to one file (known_files, source_roots). FileId's own
// zero value is never a valid file per package vfs, so it's safe to reuse
// here as "the database's structural inputs as a whole".
const globalKey = vfs.FileId(0)

// FileInfo is one entry of known_files().
type FileInfo struct {
	Id  vfs.FileId
	Ext vfs.FileExtension
}

// DefWithBodyId names one function-bodied definition within a file, the key
// body_with_source_map is addressed by.
type DefWithBodyId struct {
	File  vfs.FileId
	Owner syntax.AstId
}

// IncludePathResolver is the host-supplied seam that turns an #include's raw
// path text into a FileId — the one piece of include resolution this
// package doesn't own (it depends on configured search directories, a
// hostloader/config concern per spec.md §6).
type IncludePathResolver interface {
	Resolve(fromFile vfs.FileId, path string, quoted bool) (vfs.FileId, bool)
}

// Database holds the inputs spec.md §4.7 lists plus the memo table for its
// derived queries. Zero value is not usable; construct with New.
type Database struct {
	inputMu sync.RWMutex

	resolver IncludePathResolver

	fileText       map[vfs.FileId]string
	fileRevision   map[vfs.FileId]uint64
	knownFiles     []FileInfo
	fileSourceRoot map[vfs.FileId]source.SourceRootId
	sourceRoots    map[source.SourceRootId]*source.SourceRoot
	globalRevision uint64

	memoMu sync.Mutex
	memo   map[queryKey]memoEntry
}

// New creates an empty database. resolver supplies #include path
// resolution for both the preprocessor and the include-graph scanner; it
// may be nil in tests that never exercise #include.
func New(resolver IncludePathResolver) *Database {
	return &Database{
		resolver:       resolver,
		fileText:       make(map[vfs.FileId]string),
		fileRevision:   make(map[vfs.FileId]uint64),
		fileSourceRoot: make(map[vfs.FileId]source.SourceRootId),
		sourceRoots:    make(map[source.SourceRootId]*source.SourceRoot),
		memo:           make(map[queryKey]memoEntry),
	}
}

// ---- inputs ----

// SetFileText sets file's text, bumping its revision so every memoized
// query whose dependency snapshot included file is invalidated on next
// read.
func (db *Database) SetFileText(file vfs.FileId, text string) {
	db.inputMu.Lock()
	defer db.inputMu.Unlock()
	db.fileText[file] = text
	db.fileRevision[file]++
}

// FileText returns file's text, if set. Also serves as preproc.IncludeResolver's
// FileText method and incgraph's file-text lookup, so *Database can be
// passed directly wherever those interfaces are expected.
func (db *Database) FileText(file vfs.FileId) (string, bool) {
	db.inputMu.RLock()
	defer db.inputMu.RUnlock()
	t, ok := db.fileText[file]
	return t, ok
}

// Resolve implements preproc.IncludeResolver and incgraph.Resolver by
// delegating to the host-supplied IncludePathResolver.
func (db *Database) Resolve(fromFile vfs.FileId, path string, quoted bool) (vfs.FileId, bool) {
	if db.resolver == nil {
		return 0, false
	}
	return db.resolver.Resolve(fromFile, path, quoted)
}

// SetKnownFiles replaces known_files(). Bumps the global revision: graph()
// and project_subgraph() both range over the full file set.
func (db *Database) SetKnownFiles(files []FileInfo) {
	db.inputMu.Lock()
	defer db.inputMu.Unlock()
	db.knownFiles = append([]FileInfo(nil), files...)
	db.globalRevision++
}

// KnownFiles returns known_files().
func (db *Database) KnownFiles() []FileInfo {
	db.inputMu.RLock()
	defer db.inputMu.RUnlock()
	out := make([]FileInfo, len(db.knownFiles))
	copy(out, db.knownFiles)
	return out
}

// SetFileSourceRoot and SetSourceRoot(s) record the source-root inputs
// spec.md §4.7 lists. No derived query in this table consumes them — they
// exist for the host's own path resolution (building the IncludePathResolver
// it hands to New) — so setting them doesn't need to invalidate anything.
func (db *Database) SetFileSourceRoot(file vfs.FileId, root source.SourceRootId) {
	db.inputMu.Lock()
	defer db.inputMu.Unlock()
	db.fileSourceRoot[file] = root
}

// FileSourceRoot returns file_source_root(file).
func (db *Database) FileSourceRoot(file vfs.FileId) (source.SourceRootId, bool) {
	db.inputMu.RLock()
	defer db.inputMu.RUnlock()
	r, ok := db.fileSourceRoot[file]
	return r, ok
}

// SetSourceRoot registers or replaces one source_root(id).
func (db *Database) SetSourceRoot(root *source.SourceRoot) {
	db.inputMu.Lock()
	defer db.inputMu.Unlock()
	db.sourceRoots[root.ID] = root
}

// SourceRoot returns source_root(id).
func (db *Database) SourceRoot(id source.SourceRootId) (*source.SourceRoot, bool) {
	db.inputMu.RLock()
	defer db.inputMu.RUnlock()
	r, ok := db.sourceRoots[id]
	return r, ok
}

// SourceRoots returns source_roots().
func (db *Database) SourceRoots() []*source.SourceRoot {
	db.inputMu.RLock()
	defer db.inputMu.RUnlock()
	out := make([]*source.SourceRoot, 0, len(db.sourceRoots))
	for _, r := range db.sourceRoots {
		out = append(out, r)
	}
	return out
}

func (db *Database) currentRevisionLocked(file vfs.FileId) uint64 {
	if file == globalKey {
		return db.globalRevision
	}
	return db.fileRevision[file]
}

// ---- memoization ----

type queryKey struct {
	kind  string
	file  vfs.FileId
	owner syntax.AstId
}

type memoEntry struct {
	value any
	deps  map[vfs.FileId]uint64
}

func (db *Database) depsValid(deps map[vfs.FileId]uint64) bool {
	db.inputMu.RLock()
	defer db.inputMu.RUnlock()
	for f, rev := range deps {
		if db.currentRevisionLocked(f) != rev {
			return false
		}
	}
	return true
}

// memoize wraps compute as a memoized derived query. compute returns its
// value plus the set of files it actually read (e.g. the file itself and
// whatever it transitively includes) — the deps memoize snapshots revisions
// for. compute runs without holding either lock, so it may freely call back
// into other memoized queries.
//
// Two racing calls for the same stale key may both run compute and store
// their (equal, since queries are pure) result; this relaxation avoids a
// per-key lock that would otherwise have to be held across recursive query
// calls, at the cost of occasional duplicate work under concurrent access —
// never incorrect results.
func memoize[T any](db *Database, kind string, file vfs.FileId, owner syntax.AstId, compute func() (T, []vfs.FileId)) T {
	key := queryKey{kind: kind, file: file, owner: owner}

	db.memoMu.Lock()
	if e, ok := db.memo[key]; ok && db.depsValid(e.deps) {
		db.memoMu.Unlock()
		return e.value.(T)
	}
	db.memoMu.Unlock()

	value, deps := compute()

	db.inputMu.RLock()
	snap := make(map[vfs.FileId]uint64, len(deps))
	for _, d := range deps {
		snap[d] = db.currentRevisionLocked(d)
	}
	db.inputMu.RUnlock()

	db.memoMu.Lock()
	db.memo[key] = memoEntry{value: value, deps: snap}
	db.memoMu.Unlock()

	return value
}

// preprocessDeps is the dependency set shared by every query built on top of
// preprocess(file)'s output: file itself plus every file it transitively
// includes (preproc.Run flattens nested Includes up to the root call, so a
// single pass over the result covers the whole include chain).
func (db *Database) preprocessDeps(file vfs.FileId) []vfs.FileId {
	pf := db.Preprocess(file)
	deps := make([]vfs.FileId, 0, len(pf.Includes)+1)
	deps = append(deps, file)
	for _, inc := range pf.Includes {
		deps = append(deps, inc.Target)
	}
	return deps
}

// ---- derived queries (spec.md §4.7) ----

// Preprocess implements preprocess(FileId). Depends on file's own text and
// the text of every file it transitively includes (macro expansion reads
// through #include).
func (db *Database) Preprocess(file vfs.FileId) *preproc.PreprocessedFile {
	return memoize(db, "preprocess", file, syntax.AstId{}, func() (*preproc.PreprocessedFile, []vfs.FileId) {
		text, ok := db.FileText(file)
		if !ok {
			return &preproc.PreprocessedFile{}, []vfs.FileId{file}
		}
		result := preproc.Run(file, text, db)
		deps := make([]vfs.FileId, 0, len(result.Includes)+1)
		deps = append(deps, file)
		for _, inc := range result.Includes {
			deps = append(deps, inc.Target)
		}
		return result, deps
	})
}

// Parse implements parse(FileId): the syntax tree of file's preprocessed
// text.
func (db *Database) Parse(file vfs.FileId) *syntax.Tree {
	return memoize(db, "parse", file, syntax.AstId{}, func() (*syntax.Tree, []vfs.FileId) {
		pf := db.Preprocess(file)
		return syntax.Parse(pf.Text), db.preprocessDeps(file)
	})
}

// AstIdMap implements ast_id_map(FileId).
func (db *Database) AstIdMap(file vfs.FileId) *syntax.AstIdMap {
	return memoize(db, "ast_id_map", file, syntax.AstId{}, func() (*syntax.AstIdMap, []vfs.FileId) {
		tree := db.Parse(file)
		return syntax.BuildAstIdMap(tree), db.preprocessDeps(file)
	})
}

// FileIncludesResult is file_includes(FileId)'s (resolved, unresolved) pair.
type FileIncludesResult struct {
	Resolved   []incgraph.Edge
	Unresolved []incgraph.Unresolved
}

// FileIncludes implements file_includes(FileId). Scans file's raw text, not
// its preprocessed output (spec.md §4.4) — so, unlike parse/preprocess, it
// depends only on file itself, never on files it includes.
func (db *Database) FileIncludes(file vfs.FileId) FileIncludesResult {
	return memoize(db, "file_includes", file, syntax.AstId{}, func() (FileIncludesResult, []vfs.FileId) {
		text, ok := db.FileText(file)
		if !ok {
			return FileIncludesResult{}, []vfs.FileId{file}
		}
		edges, unresolved := incgraph.ScanIncludes(file, text, db)
		return FileIncludesResult{Resolved: edges, Unresolved: unresolved}, []vfs.FileId{file}
	})
}

// Graph implements graph(): the union of file_includes() over every known
// file. Depends on known_files() itself plus every known file's own text,
// so adding/removing a file or editing any file's includes invalidates it.
func (db *Database) Graph() *incgraph.Graph {
	return memoize(db, "graph", globalKey, syntax.AstId{}, func() (*incgraph.Graph, []vfs.FileId) {
		files := db.KnownFiles()
		deps := make([]vfs.FileId, 0, len(files)+1)
		deps = append(deps, globalKey)

		allIds := make([]vfs.FileId, 0, len(files))
		var edges []incgraph.Edge
		var unresolved []incgraph.Unresolved
		for _, fi := range files {
			allIds = append(allIds, fi.Id)
			deps = append(deps, fi.Id)
			res := db.FileIncludes(fi.Id)
			edges = append(edges, res.Resolved...)
			unresolved = append(unresolved, res.Unresolved...)
		}
		return incgraph.Build(allIds, edges, unresolved), deps
	})
}

// ProjectSubgraph implements project_subgraph(FileId).
func (db *Database) ProjectSubgraph(file vfs.FileId) []vfs.FileId {
	return memoize(db, "project_subgraph", file, syntax.AstId{}, func() ([]vfs.FileId, []vfs.FileId) {
		g := db.Graph()
		files := db.KnownFiles()
		deps := make([]vfs.FileId, 0, len(files)+2)
		deps = append(deps, globalKey, file)
		for _, fi := range files {
			deps = append(deps, fi.Id)
		}
		return g.ProjectSubgraph(file), deps
	})
}

// FileItemTree implements file_item_tree(FileId).
func (db *Database) FileItemTree(file vfs.FileId) *itemtree.ItemTree {
	return memoize(db, "file_item_tree", file, syntax.AstId{}, func() (*itemtree.ItemTree, []vfs.FileId) {
		pf := db.Preprocess(file)
		tree := db.Parse(file)
		ids := db.AstIdMap(file)

		var macros []itemtree.NamedRange
		for name, m := range pf.MacrosIntroduced {
			if m.DefFile != file {
				continue // merged in from an include; belongs to that file's own item tree
			}
			macros = append(macros, itemtree.NamedRange{Name: name, Range: m.DefRange})
		}

		return itemtree.Build(file, tree, ids, macros), db.preprocessDeps(file)
	})
}

type bodyResult struct {
	body *hir.Body
	sm   *hir.BodySourceMap
	ok   bool
}

// BodyWithSourceMap implements body_with_source_map(DefWithBodyId).
func (db *Database) BodyWithSourceMap(id DefWithBodyId) (*hir.Body, *hir.BodySourceMap, bool) {
	r := memoize(db, "body_with_source_map", id.File, id.Owner, func() (bodyResult, []vfs.FileId) {
		tree := db.Parse(id.File)
		ids := db.AstIdMap(id.File)
		ptr, ok := ids.Lookup(id.Owner)
		if !ok {
			return bodyResult{}, db.preprocessDeps(id.File)
		}
		body, sm := hir.Lower(tree, tree.NodeAt(ptr), id.Owner)
		return bodyResult{body: body, sm: sm, ok: true}, db.preprocessDeps(id.File)
	})
	return r.body, r.sm, r.ok
}
