// Package semantics is the facade fronting the whole pipeline (SPEC_FULL.md
// §4.8): it wires the query database, include graph, item trees, and name
// resolution together behind the operations an LSP wrapper (or, in this
// repo, the cmd/spls CLI) actually calls — definition, hover, references,
// rename, completion, signature help, call hierarchy, document symbols,
// semantic tokens — plus the diagnostics and rename-preview additions this
// distillation's spec.md dropped from the original
// hollacs/sourcepawn-vscode implementation (crates/ide/src/call_hierarchy.rs,
// crates/sourcepawn_lsp/src/providers/{rename,signature_help}.rs,
// src/linter.rs).
package semantics

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/sourcepawn-tools/spls-core/internal/diag"
	"github.com/sourcepawn-tools/spls-core/internal/diffpreview"
	"github.com/sourcepawn-tools/spls-core/internal/itemtree"
	"github.com/sourcepawn-tools/spls-core/internal/preproc"
	"github.com/sourcepawn-tools/spls-core/internal/querydb"
	"github.com/sourcepawn-tools/spls-core/internal/resolve"
	"github.com/sourcepawn-tools/spls-core/internal/source"
	"github.com/sourcepawn-tools/spls-core/internal/syntax"
	"github.com/sourcepawn-tools/spls-core/internal/vfs"
)

// Facade is the entry point every consumer of the pipeline goes through.
// It holds no state of its own beyond the database — every operation is a
// pure function of the database's current snapshot.
type Facade struct {
	db *querydb.Database
}

// New wraps db as a Facade.
func New(db *querydb.Database) *Facade {
	return &Facade{db: db}
}

// scopeFor assembles the resolve.Scope for file: its own item tree, every
// file it transitively includes (ordered by ascending FileId, not by the
// order or depth of the #include directives), and the implicit sourcemod
// include if resolvable — grounded on
// original_source's own `add_sourcemod_include`, which resolves "sourcemod"
// as an ordinary chevron-form include rather than synthesizing it (see
// DESIGN.md Open Question (c)).
func (f *Facade) scopeFor(file vfs.FileId) resolve.Scope {
	current := f.fileItemsFor(file)

	g := f.db.Graph()
	reachable := append([]vfs.FileId(nil), g.Reachable(file)...)
	sort.Slice(reachable, func(i, j int) bool { return reachable[i] < reachable[j] })

	included := make([]resolve.FileItems, 0, len(reachable))
	inSet := map[vfs.FileId]bool{file: true}
	for _, inc := range reachable {
		if inc == file {
			continue
		}
		included = append(included, f.fileItemsFor(inc))
		inSet[inc] = true
	}

	var sourcemod *resolve.FileItems
	if smFile, ok := f.db.Resolve(file, "sourcemod", false); ok && !inSet[smFile] {
		fi := f.fileItemsFor(smFile)
		sourcemod = &fi
	}

	return resolve.Scope{Current: current, Included: included, Sourcemod: sourcemod}
}

func (f *Facade) fileItemsFor(file vfs.FileId) resolve.FileItems {
	return resolve.FileItems{File: file, Tree: f.db.Parse(file), Items: f.db.FileItemTree(file)}
}

// scopesForSubgraph builds the per-file scope map find_references needs:
// every file in def's project_subgraph, each with its own fully-assembled
// Scope (spec.md §8 invariant 6: a reference can only live in a file that
// is itself, or transitively includes, the definition's file).
func (f *Facade) scopesForSubgraph(file vfs.FileId) map[vfs.FileId]resolve.Scope {
	subgraph := f.db.ProjectSubgraph(file)
	scopes := make(map[vfs.FileId]resolve.Scope, len(subgraph))
	for _, sf := range subgraph {
		scopes[sf] = f.scopeFor(sf)
	}
	return scopes
}

func (f *Facade) definitionAtOffset(file vfs.FileId, offset int) (resolve.DefResolution, bool) {
	return resolve.Resolve(f.scopeFor(file), offset)
}

// Definition implements find_def(file, pos).
func (f *Facade) Definition(file vfs.FileId, pos source.Position) (resolve.DefResolution, bool) {
	pf := f.db.Preprocess(file)
	offset := source.PositionToOffset(pf.Text, pos)
	return f.definitionAtOffset(file, offset)
}

// References implements find_references(def) starting from a position
// rather than an already-resolved DefResolution.
func (f *Facade) References(file vfs.FileId, pos source.Position) ([]resolve.Reference, bool) {
	def, ok := f.Definition(file, pos)
	if !ok {
		return nil, false
	}
	return resolve.FindReferences(f.scopesForSubgraph(def.Def.File), def), true
}

// Hover is the rendered description shown for the definition at pos: the
// declaration's own source text, trimmed to its header (signature, not
// body).
type Hover struct {
	Contents string
	Range    source.ByteRange
}

// Hover implements hover(file, pos).
func (f *Facade) Hover(file vfs.FileId, pos source.Position) (*Hover, bool) {
	def, ok := f.Definition(file, pos)
	if !ok {
		return nil, false
	}
	text := f.db.Preprocess(def.Def.File).Text
	return &Hover{Contents: signatureLabel(extractRange(text, def.Range)), Range: def.Range}, true
}

// TextEdit is one replacement within a file's raw text.
type TextEdit struct {
	Range   source.ByteRange
	NewText string
}

// WorkspaceEdit is the output of rename: every file touched, and the
// edits within it.
type WorkspaceEdit map[vfs.FileId][]TextEdit

// Rename implements rename(file, pos, new_name): find_def at pos, then
// edit its own declaration plus every reference find_references(def)
// reports.
func (f *Facade) Rename(file vfs.FileId, pos source.Position, newName string) (WorkspaceEdit, error) {
	def, ok := f.Definition(file, pos)
	if !ok {
		return nil, fmt.Errorf("semantics: no definition at given position")
	}
	return f.renameDef(def, newName), nil
}

// RenamePreview implements the SPEC_FULL.md §4.8 addition: rename a
// top-level definition addressed directly by DefId, and render the result
// as a unified diff per touched file instead of a raw WorkspaceEdit.
func (f *Facade) RenamePreview(id resolve.DefId, newName string) (map[vfs.FileId]string, error) {
	def, ok := f.defResolutionFromID(id)
	if !ok {
		return nil, fmt.Errorf("semantics: %v is not a renameable definition", id)
	}

	edits := f.renameDef(def, newName)
	out := make(map[vfs.FileId]string, len(edits))
	for file, fileEdits := range edits {
		orig, ok := f.db.FileText(file)
		if !ok {
			continue
		}
		dEdits := make([]diffpreview.Edit, len(fileEdits))
		for i, e := range fileEdits {
			dEdits[i] = diffpreview.Edit{Range: e.Range, NewText: e.NewText}
		}
		rendered, err := diffpreview.Render(orig, dEdits, fmt.Sprintf("file#%d", file))
		if err != nil {
			return nil, fmt.Errorf("semantics: rendering preview for file %d: %w", file, err)
		}
		out[file] = rendered
	}
	return out, nil
}

// renameDef builds the WorkspaceEdit for an already-resolved definition.
// Edit ranges are translated back from preprocessed-text offsets (what the
// parser and resolver operate in) to raw-text offsets via each touched
// file's own offset map, since a WorkspaceEdit must describe changes to the
// text the host actually persists.
func (f *Facade) renameDef(def resolve.DefResolution, newName string) WorkspaceEdit {
	edit := WorkspaceEdit{}

	defText := f.db.Preprocess(def.Def.File).Text
	declRange := nameRangeWithin(defText, def.Range, def.Name)
	if raw, ok := f.toRawRange(def.Def.File, declRange); ok {
		edit[def.Def.File] = append(edit[def.Def.File], TextEdit{Range: raw, NewText: newName})
	}

	for _, ref := range resolve.FindReferences(f.scopesForSubgraph(def.Def.File), def) {
		if raw, ok := f.toRawRange(ref.File, ref.Range); ok {
			edit[ref.File] = append(edit[ref.File], TextEdit{Range: raw, NewText: newName})
		}
	}
	return edit
}

func (f *Facade) toRawRange(file vfs.FileId, r source.ByteRange) (source.ByteRange, bool) {
	pf := f.db.Preprocess(file)
	if pf.Offsets == nil {
		return r, true
	}
	startRange, _, ok1 := pf.Offsets.Translate(r.Start)
	endRange, _, ok2 := pf.Offsets.Translate(r.End)
	if !ok1 || !ok2 {
		return source.ByteRange{}, false
	}
	return source.ByteRange{Start: startRange.Start, End: endRange.Start}, true
}

// defResolutionFromID reconstructs a DefResolution from a bare DefId for
// top-level, AstId-addressable items (and named Defines, addressed via
// DefId.Local). Block-local bindings have no identity outside a resolution
// walk and cannot be reconstructed this way.
func (f *Facade) defResolutionFromID(id resolve.DefId) (resolve.DefResolution, bool) {
	items := f.db.FileItemTree(id.File)
	if items == nil {
		return resolve.DefResolution{}, false
	}

	if id.Local != "" {
		for _, d := range items.Defines {
			if d.Name == id.Local {
				return resolve.DefResolution{Def: id, Kind: resolve.DefDefine, Name: d.Name, Range: d.Range}, true
			}
		}
		return resolve.DefResolution{}, false
	}

	for _, fn := range items.Functions {
		if fn.AstId == id.AstId {
			return resolve.DefResolution{Def: id, Kind: resolve.DefFunction, Name: fn.Name, Range: fn.Range}, true
		}
	}
	for _, v := range items.Variables {
		if v.AstId == id.AstId {
			return resolve.DefResolution{Def: id, Kind: resolve.DefVariable, Name: v.Name, Range: v.Range}, true
		}
	}
	// Enum variants are deliberately not reconstructed here: lookupTopLevel
	// keys every variant of one enum under that enum's own AstId, so a bare
	// DefId (with no variant name attached) cannot tell which variant of a
	// multi-variant enum it names. Definition/Rename starting from a cursor
	// position still resolve a specific variant correctly, since the
	// resolved DefResolution carries the variant's own Name and Range.
	for _, es := range items.EnumStructs {
		if es.AstId == id.AstId {
			return resolve.DefResolution{Def: id, Kind: resolve.DefEnumStructField, Name: es.Name, Range: es.Range}, true
		}
	}
	for _, mm := range items.Methodmaps {
		if mm.AstId == id.AstId {
			return resolve.DefResolution{Def: id, Kind: resolve.DefMethodmapMethod, Name: mm.Name, Range: mm.Range}, true
		}
	}
	for _, td := range items.Typedefs {
		if td.AstId == id.AstId {
			return resolve.DefResolution{Def: id, Kind: resolve.DefTypedef, Name: td.Name, Range: td.Range}, true
		}
	}
	return resolve.DefResolution{}, false
}

// CompletionKind tags what a CompletionItem names.
type CompletionKind int

const (
	CompletionFunction CompletionKind = iota
	CompletionVariable
	CompletionParameter
	CompletionLocal
	CompletionEnumVariant
	CompletionEnumStruct
	CompletionMethodmap
	CompletionTypedef
	CompletionDefine
)

// CompletionItem is one candidate offered at a position.
type CompletionItem struct {
	Label string
	Kind  CompletionKind
}

// Completion implements completion(file, pos): every name visible from
// pos, in the same scope order name resolution itself walks — enclosing
// locals and parameters first, then the current and included files' item
// trees.
func (f *Facade) Completion(file vfs.FileId, pos source.Position) []CompletionItem {
	pf := f.db.Preprocess(file)
	offset := source.PositionToOffset(pf.Text, pos)
	tree := f.db.Parse(file)

	var out []CompletionItem
	out = append(out, localCompletions(tree.PathAtOffset(offset))...)

	scope := f.scopeFor(file)
	out = append(out, itemCompletions(scope.Current.Items)...)
	for _, fi := range scope.Included {
		out = append(out, itemCompletions(fi.Items)...)
	}
	if scope.Sourcemod != nil {
		out = append(out, itemCompletions(scope.Sourcemod.Items)...)
	}
	return out
}

func localCompletions(path []*syntax.Node) []CompletionItem {
	var out []CompletionItem
	for i := len(path) - 1; i >= 0; i-- {
		switch n := path[i]; n.Kind {
		case syntax.KindBlock:
			for _, stmt := range n.Children {
				switch stmt.Kind {
				case syntax.KindGlobalVariableDeclaration, syntax.KindOldGlobalVariableDeclaration,
					syntax.KindVariableDeclarationStatement, syntax.KindOldVariableDeclarationStatement:
					for _, c := range stmt.Children {
						if c.Kind == syntax.KindVariableDeclaration && len(c.Children) > 0 && c.Children[0].Kind == syntax.KindIdentifier {
							out = append(out, CompletionItem{Label: c.Children[0].Text, Kind: CompletionLocal})
						}
					}
				}
			}
		case syntax.KindFunctionDeclaration, syntax.KindFunctionDefinition:
			// Parameters are read from the enclosing function, since the
			// parameter list is not an ancestor of a position in the body.
			for _, params := range n.Children {
				if params.Kind != syntax.KindParameterDeclarations {
					continue
				}
				for _, p := range params.Children {
					for _, c := range p.Children {
						if c.Kind == syntax.KindIdentifier {
							out = append(out, CompletionItem{Label: c.Text, Kind: CompletionParameter})
						}
					}
				}
			}
		}
	}
	return out
}

func itemCompletions(items *itemtree.ItemTree) []CompletionItem {
	if items == nil {
		return nil
	}
	var out []CompletionItem
	for _, fn := range items.Functions {
		out = append(out, CompletionItem{Label: fn.Name, Kind: CompletionFunction})
	}
	for _, v := range items.Variables {
		out = append(out, CompletionItem{Label: v.Name, Kind: CompletionVariable})
	}
	for _, e := range items.Enums {
		for _, variant := range e.Variants {
			out = append(out, CompletionItem{Label: variant.Name, Kind: CompletionEnumVariant})
		}
	}
	for _, es := range items.EnumStructs {
		out = append(out, CompletionItem{Label: es.Name, Kind: CompletionEnumStruct})
	}
	for _, mm := range items.Methodmaps {
		out = append(out, CompletionItem{Label: mm.Name, Kind: CompletionMethodmap})
	}
	for _, td := range items.Typedefs {
		out = append(out, CompletionItem{Label: td.Name, Kind: CompletionTypedef})
	}
	for _, d := range items.Defines {
		out = append(out, CompletionItem{Label: d.Name, Kind: CompletionDefine})
	}
	return out
}

// SignatureHelp is the result of signature_help(file, pos).
type SignatureHelp struct {
	Label           string
	Parameters      []string
	ActiveParameter int
}

// SignatureHelp implements signature_help(file, pos): locate the call
// expression enclosing pos, resolve its callee, and report the callee's
// parameter list plus which parameter the cursor currently sits in.
func (f *Facade) SignatureHelp(file vfs.FileId, pos source.Position) (*SignatureHelp, bool) {
	pf := f.db.Preprocess(file)
	offset := source.PositionToOffset(pf.Text, pos)
	tree := f.db.Parse(file)

	call := enclosingCallExpression(tree.PathAtOffset(offset))
	if call == nil || len(call.Children) != 2 || call.Children[0].Kind != syntax.KindIdentifier {
		return nil, false
	}
	callee := call.Children[0]

	def, ok := f.definitionAtOffset(file, callee.Range.Start)
	if !ok || def.Kind != resolve.DefFunction {
		return nil, false
	}

	defText := f.db.Preprocess(def.Def.File).Text
	label := signatureLabel(extractRange(defText, def.Range))
	params := parseParameterList(label)

	active := 0
	for _, a := range call.Children[1].Children {
		if a.Range.End <= offset {
			active++
		}
	}
	if len(params) > 0 && active >= len(params) {
		active = len(params) - 1
	}

	return &SignatureHelp{Label: label, Parameters: params, ActiveParameter: active}, true
}

func enclosingCallExpression(path []*syntax.Node) *syntax.Node {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i].Kind == syntax.KindCallExpression {
			return path[i]
		}
	}
	return nil
}

// CallItem is one node of a call hierarchy: a function together with its
// own declaration range and the narrower range of just its name.
type CallItem struct {
	Def       resolve.DefId
	Name      string
	File      vfs.FileId
	Range     source.ByteRange
	NameRange source.ByteRange
}

// CallHierarchyPrepare implements call_hierarchy_prepare(file, pos).
func (f *Facade) CallHierarchyPrepare(file vfs.FileId, pos source.Position) (*CallItem, bool) {
	def, ok := f.Definition(file, pos)
	if !ok || def.Kind != resolve.DefFunction {
		return nil, false
	}
	item := f.callItemFromDef(def)
	return &item, true
}

func (f *Facade) callItemFromDef(def resolve.DefResolution) CallItem {
	text := f.db.Preprocess(def.Def.File).Text
	return CallItem{
		Def:       def.Def,
		Name:      def.Name,
		File:      def.Def.File,
		Range:     def.Range,
		NameRange: nameRangeWithin(text, def.Range, def.Name),
	}
}

func (f *Facade) callItemFromFunction(file vfs.FileId, fn itemtree.Function) CallItem {
	text := f.db.Preprocess(file).Text
	return CallItem{
		Def:       resolve.DefId{File: file, AstId: fn.AstId},
		Name:      fn.Name,
		File:      file,
		Range:     fn.Range,
		NameRange: nameRangeWithin(text, fn.Range, fn.Name),
	}
}

// IncomingCall is one caller of a CallHierarchyPrepare result's function.
type IncomingCall struct {
	From   CallItem
	Ranges []source.ByteRange
}

// CallHierarchyIncoming implements call_hierarchy_incoming(func): every
// distinct top-level function whose body calls item, grounded on
// call_hierarchy.rs's own "walk up to the enclosing function container"
// approach over find_references's result set.
func (f *Facade) CallHierarchyIncoming(item CallItem) []IncomingCall {
	def := resolve.DefResolution{Def: item.Def, Kind: resolve.DefFunction, Name: item.Name, Range: item.Range}
	refs := resolve.FindReferences(f.scopesForSubgraph(item.File), def)

	grouped := map[resolve.DefId][]source.ByteRange{}
	containers := map[resolve.DefId]CallItem{}
	for _, ref := range refs {
		tree := f.db.Parse(ref.File)
		if tree == nil || tree.Root == nil {
			continue
		}
		fnNode := enclosingFunctionDecl(tree.PathAtOffset(ref.Range.Start))
		if fnNode == nil {
			continue
		}
		items := f.db.FileItemTree(ref.File)
		callerFn, ok := functionByRange(items, fnNode.Range)
		if !ok {
			continue
		}
		callerId := resolve.DefId{File: ref.File, AstId: callerFn.AstId}
		grouped[callerId] = append(grouped[callerId], ref.Range)
		if _, seen := containers[callerId]; !seen {
			containers[callerId] = f.callItemFromFunction(ref.File, callerFn)
		}
	}

	return flattenCallGroups(grouped, containers, func(c CallItem, ranges []source.ByteRange) IncomingCall {
		return IncomingCall{From: c, Ranges: ranges}
	})
}

// OutgoingCall is one callee reached from a CallHierarchyPrepare result's
// function body.
type OutgoingCall struct {
	To     CallItem
	Ranges []source.ByteRange
}

// CallHierarchyOutgoing implements call_hierarchy_outgoing(func): every
// distinct top-level function item's own body calls.
func (f *Facade) CallHierarchyOutgoing(item CallItem) []OutgoingCall {
	ids := f.db.AstIdMap(item.File)
	ptr, ok := ids.Lookup(item.Def.AstId)
	if !ok {
		return nil
	}
	fnNode := f.db.Parse(item.File).NodeAt(ptr)
	scope := f.scopeFor(item.File)

	grouped := map[resolve.DefId][]source.ByteRange{}
	containers := map[resolve.DefId]CallItem{}
	var walk func(n *syntax.Node)
	walk = func(n *syntax.Node) {
		if n.Kind == syntax.KindCallExpression && len(n.Children) == 2 {
			callee := n.Children[0]
			if callee.Kind == syntax.KindIdentifier {
				if def, ok := resolve.Resolve(scope, callee.Range.Start); ok && def.Kind == resolve.DefFunction {
					grouped[def.Def] = append(grouped[def.Def], callee.Range)
					if _, seen := containers[def.Def]; !seen {
						containers[def.Def] = f.callItemFromDef(def)
					}
				}
			}
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(fnNode)

	return flattenCallGroups(grouped, containers, func(c CallItem, ranges []source.ByteRange) OutgoingCall {
		return OutgoingCall{To: c, Ranges: ranges}
	})
}

func flattenCallGroups[T any](grouped map[resolve.DefId][]source.ByteRange, containers map[resolve.DefId]CallItem, build func(CallItem, []source.ByteRange) T) []T {
	ids := make([]resolve.DefId, 0, len(grouped))
	for id := range grouped {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		ci, cj := containers[ids[i]], containers[ids[j]]
		if ci.File != cj.File {
			return ci.File < cj.File
		}
		return ci.Name < cj.Name
	})

	out := make([]T, 0, len(ids))
	for _, id := range ids {
		out = append(out, build(containers[id], grouped[id]))
	}
	return out
}

func enclosingFunctionDecl(path []*syntax.Node) *syntax.Node {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i].Kind == syntax.KindFunctionDeclaration || path[i].Kind == syntax.KindFunctionDefinition {
			return path[i]
		}
	}
	return nil
}

func functionByRange(items *itemtree.ItemTree, r source.ByteRange) (itemtree.Function, bool) {
	if items == nil {
		return itemtree.Function{}, false
	}
	for _, fn := range items.Functions {
		if fn.Range == r {
			return fn, true
		}
	}
	return itemtree.Function{}, false
}

// SymbolKind tags what a DocumentSymbol names.
type SymbolKind int

const (
	SymbolFunction SymbolKind = iota
	SymbolVariable
	SymbolEnum
	SymbolEnumMember
	SymbolEnumStruct
	SymbolField
	SymbolMethod
	SymbolMethodmap
	SymbolProperty
	SymbolTypedef
	SymbolDefine
)

// DocumentSymbol is one entry of document_symbols(file), possibly with
// nested members (enum variants, enum-struct/methodmap members).
type DocumentSymbol struct {
	Name     string
	Kind     SymbolKind
	Range    source.ByteRange
	Children []DocumentSymbol
}

// DocumentSymbols implements document_symbols(file): a flattened, nested
// listing of the file's item tree.
func (f *Facade) DocumentSymbols(file vfs.FileId) []DocumentSymbol {
	items := f.db.FileItemTree(file)
	if items == nil {
		return nil
	}

	var out []DocumentSymbol
	for _, fn := range items.Functions {
		out = append(out, DocumentSymbol{Name: fn.Name, Kind: SymbolFunction, Range: fn.Range})
	}
	for _, v := range items.Variables {
		out = append(out, DocumentSymbol{Name: v.Name, Kind: SymbolVariable, Range: v.Range})
	}
	for _, e := range items.Enums {
		sym := DocumentSymbol{Name: e.Name, Kind: SymbolEnum, Range: e.Range}
		for _, variant := range e.Variants {
			sym.Children = append(sym.Children, DocumentSymbol{Name: variant.Name, Kind: SymbolEnumMember, Range: variant.Range})
		}
		out = append(out, sym)
	}
	for _, es := range items.EnumStructs {
		sym := DocumentSymbol{Name: es.Name, Kind: SymbolEnumStruct, Range: es.Range}
		for _, m := range es.Items {
			kind := SymbolField
			if m.Kind == itemtree.EnumStructMemberMethod {
				kind = SymbolMethod
			}
			sym.Children = append(sym.Children, DocumentSymbol{Name: m.Name, Kind: kind, Range: m.Range})
		}
		out = append(out, sym)
	}
	for _, mm := range items.Methodmaps {
		sym := DocumentSymbol{Name: mm.Name, Kind: SymbolMethodmap, Range: mm.Range}
		for _, it := range mm.Items {
			kind := SymbolMethod
			if it.Kind == itemtree.MethodmapItemProperty {
				kind = SymbolProperty
			}
			sym.Children = append(sym.Children, DocumentSymbol{Name: it.Name, Kind: kind, Range: it.Range})
		}
		out = append(out, sym)
	}
	for _, td := range items.Typedefs {
		out = append(out, DocumentSymbol{Name: td.Name, Kind: SymbolTypedef, Range: td.Range})
	}
	for _, d := range items.Defines {
		out = append(out, DocumentSymbol{Name: d.Name, Kind: SymbolDefine, Range: d.Range})
	}
	return out
}

// TokenKind classifies a SemanticToken the same way resolve.DefKind
// classifies a resolved definition — semantic_tokens is, at its core,
// find_def applied to every identifier in the file instead of just one.
type TokenKind int

const (
	TokenFunction TokenKind = iota
	TokenVariable
	TokenParameter
	TokenLocal
	TokenEnumMember
	TokenField
	TokenMethod
	TokenProperty
	TokenTypedef
	TokenMacro
)

// SemanticToken is one classified identifier occurrence.
type SemanticToken struct {
	Range source.ByteRange
	Kind  TokenKind
}

// SemanticTokens implements semantic_tokens(file).
func (f *Facade) SemanticTokens(file vfs.FileId) []SemanticToken {
	tree := f.db.Parse(file)
	if tree == nil || tree.Root == nil {
		return nil
	}
	scope := f.scopeFor(file)

	var out []SemanticToken
	var walk func(n *syntax.Node)
	walk = func(n *syntax.Node) {
		if n.Kind == syntax.KindIdentifier {
			if res, ok := resolve.Resolve(scope, n.Range.Start); ok {
				out = append(out, SemanticToken{Range: n.Range, Kind: tokenKindFor(res.Kind)})
			}
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(tree.Root)
	return out
}

func tokenKindFor(k resolve.DefKind) TokenKind {
	switch k {
	case resolve.DefFunction:
		return TokenFunction
	case resolve.DefVariable:
		return TokenVariable
	case resolve.DefParameter:
		return TokenParameter
	case resolve.DefLocal:
		return TokenLocal
	case resolve.DefEnumVariant:
		return TokenEnumMember
	case resolve.DefEnumStructField:
		return TokenField
	case resolve.DefEnumStructMethod, resolve.DefMethodmapMethod:
		return TokenMethod
	case resolve.DefMethodmapProperty:
		return TokenProperty
	case resolve.DefTypedef:
		return TokenTypedef
	case resolve.DefDefine:
		return TokenMacro
	default:
		return TokenVariable
	}
}

// Diagnostics implements the SPEC_FULL.md §4.8 addition: pulls together
// preprocessor diagnostics, syntax errors, and the one resolution
// diagnostic spec.md §4.6 itself names (duplicate top-level declarations)
// for one file.
func (f *Facade) Diagnostics(file vfs.FileId) []diag.Diagnostic {
	var out []diag.Diagnostic

	pf := f.db.Preprocess(file)
	for _, d := range pf.Diagnostics {
		out = append(out, diag.Diagnostic{
			Severity: convertSeverity(d.Severity),
			Code:     diag.Code(d.Code),
			Message:  d.Message,
			File:     file,
			Range:    d.Range,
		})
	}
	for _, u := range pf.UnresolvedIncludes {
		out = append(out, diag.Diagnostic{
			Severity: diag.SeverityWarning,
			Code:     "unresolved_include",
			Message:  fmt.Sprintf("cannot resolve include %q", u.Path),
			File:     file,
			Range:    u.Range,
		})
	}

	tree := f.db.Parse(file)
	if tree != nil && tree.Root != nil {
		collectSyntaxErrors(tree.Root, file, &out)
	}

	out = append(out, duplicateTopLevelNames(f.db.FileItemTree(file), file)...)

	sort.Slice(out, func(i, j int) bool { return out[i].Range.Start < out[j].Range.Start })
	return out
}

func convertSeverity(s preproc.Severity) diag.Severity {
	switch s {
	case preproc.SeverityWarning:
		return diag.SeverityWarning
	case preproc.SeverityInfo:
		return diag.SeverityInfo
	default:
		return diag.SeverityError
	}
}

func collectSyntaxErrors(n *syntax.Node, file vfs.FileId, out *[]diag.Diagnostic) {
	if n.Kind == syntax.KindError {
		*out = append(*out, diag.Diagnostic{
			Severity: diag.SeverityError,
			Code:     "syntax_error",
			Message:  "unexpected syntax",
			File:     file,
			Range:    n.Range,
		})
	}
	for _, c := range n.Children {
		collectSyntaxErrors(c, file, out)
	}
}

func duplicateTopLevelNames(items *itemtree.ItemTree, file vfs.FileId) []diag.Diagnostic {
	if items == nil {
		return nil
	}
	type occurrence struct {
		name  string
		rng   source.ByteRange
	}
	var all []occurrence
	for _, fn := range items.Functions {
		all = append(all, occurrence{fn.Name, fn.Range})
	}
	for _, v := range items.Variables {
		all = append(all, occurrence{v.Name, v.Range})
	}
	for _, es := range items.EnumStructs {
		all = append(all, occurrence{es.Name, es.Range})
	}
	for _, mm := range items.Methodmaps {
		all = append(all, occurrence{mm.Name, mm.Range})
	}
	for _, td := range items.Typedefs {
		all = append(all, occurrence{td.Name, td.Range})
	}
	for _, d := range items.Defines {
		all = append(all, occurrence{d.Name, d.Range})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].rng.Start < all[j].rng.Start })

	seen := map[string]bool{}
	var out []diag.Diagnostic
	for _, o := range all {
		if o.name == "" {
			continue
		}
		if seen[o.name] {
			out = append(out, diag.Diagnostic{
				Severity: diag.SeverityError,
				Code:     "duplicate_declaration",
				Message:  fmt.Sprintf("%q is already declared in this file", o.name),
				File:     file,
				Range:    o.rng,
			})
			continue
		}
		seen[o.name] = true
	}
	return out
}

func extractRange(text string, r source.ByteRange) string {
	if r.Start < 0 || r.End > len(text) || r.Start > r.End {
		return ""
	}
	return text[r.Start:r.End]
}

// signatureLabel trims a declaration's source text down to its header: up
// to (not including) the first top-level '{' or ';'.
func signatureLabel(decl string) string {
	depth := 0
	for i, r := range decl {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case '{', ';':
			if depth <= 0 {
				return strings.TrimSpace(decl[:i])
			}
		}
	}
	return strings.TrimSpace(decl)
}

func parseParameterList(label string) []string {
	start := strings.IndexByte(label, '(')
	if start < 0 {
		return nil
	}
	depth := 0
	end := -1
	for i := start; i < len(label); i++ {
		switch label[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				end = i
			}
		}
		if end != -1 {
			break
		}
	}
	if end < 0 {
		return nil
	}
	inner := strings.TrimSpace(label[start+1 : end])
	if inner == "" {
		return nil
	}

	var params []string
	depth = 0
	last := 0
	for i, r := range inner {
		switch r {
		case '(', '[':
			depth++
		case ')', ']':
			depth--
		case ',':
			if depth == 0 {
				params = append(params, strings.TrimSpace(inner[last:i]))
				last = i + 1
			}
		}
	}
	params = append(params, strings.TrimSpace(inner[last:]))
	return params
}

// nameRangeWithin locates name as a whole word inside text[r.Start:r.End],
// falling back to r itself if the search fails — e.g. for a Define, whose
// Range is already just the macro name's own token.
func nameRangeWithin(text string, r source.ByteRange, name string) source.ByteRange {
	sub := extractRange(text, r)
	if sub == "" || name == "" {
		return r
	}
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(name) + `\b`)
	loc := re.FindStringIndex(sub)
	if loc == nil {
		return r
	}
	return source.ByteRange{Start: r.Start + loc[0], End: r.Start + loc[1]}
}
