// Package resolve implements name resolution (spec.md §4.6): given a source
// position, it walks outward through enclosing scopes and produces a
// DefResolution naming the concrete definition a token refers to, plus
// find_references for the reverse direction.
package resolve

import (
	"github.com/sourcepawn-tools/spls-core/internal/itemtree"
	"github.com/sourcepawn-tools/spls-core/internal/source"
	"github.com/sourcepawn-tools/spls-core/internal/syntax"
	"github.com/sourcepawn-tools/spls-core/internal/vfs"
)

// DefKind tags the concrete declaration a DefResolution points at.
type DefKind int

const (
	DefFunction DefKind = iota
	DefVariable
	DefParameter
	DefLocal
	DefEnumVariant
	DefEnumStructField
	DefEnumStructMethod
	DefMethodmapMethod
	DefMethodmapProperty
	DefTypedef
	DefDefine
)

// DefId identifies one definition: the file it lives in, plus either a
// top-level AstId (for file/include-scoped items) or, for a block-local
// binding, the owning function's AstId together with the binding's name
// (locals are not individually AstId-stable across reparse the way
// top-level items are — spec.md §8 invariant 4 only requires that of
// top-level items).
type DefId struct {
	File  vfs.FileId
	AstId syntax.AstId
	Local string // non-empty only for DefParameter/DefLocal, and for DefDefine (the macro name, with a zero AstId)
}

// DefResolution is the result of a successful name-resolution query.
type DefResolution struct {
	Def   DefId
	Kind  DefKind
	Name  string
	Range source.ByteRange
}

// FileItems pairs a file with its item tree and syntax tree, the shape the
// scope walk needs for both the current file and every included file it
// checks in turn.
type FileItems struct {
	File  vfs.FileId
	Tree  *syntax.Tree
	Items *itemtree.ItemTree
}

// Scope is the ordered list of file item trees the walk falls through after
// exhausting block/parameter/container scopes: the current file, included
// files in the order the caller lists them, then (last) the implicit
// sourcemod include, per spec.md §4.6 step 3 and Open Question (c).
type Scope struct {
	Current   FileItems
	Included  []FileItems
	Sourcemod *FileItems // nil if "sourcemod" does not resolve from the current file, or already appears in Included
}

// Resolve implements find_def(file, pos): locate the smallest node at pos,
// and walk outward per spec.md §4.6.
func Resolve(scope Scope, offset int) (DefResolution, bool) {
	path := scope.Current.Tree.PathAtOffset(offset)
	if len(path) == 0 {
		return DefResolution{}, false
	}
	return ResolveAtPath(scope, path)
}

// ResolveAtPath is Resolve's logic starting from an already-computed
// ancestor path rather than a byte offset, so find_references (which needs
// to resolve every identifier occurrence across a file, not just one) can
// reuse it without re-walking the tree per offset.
func ResolveAtPath(scope Scope, path []*syntax.Node) (DefResolution, bool) {
	if len(path) == 0 {
		return DefResolution{}, false
	}
	leaf := path[len(path)-1]
	if leaf.Kind != syntax.KindIdentifier {
		return DefResolution{}, false
	}

	if parent, ok := fieldAccessParent(path); ok {
		if res, ok := resolveFieldAccess(scope, path, parent, leaf); ok {
			return res, true
		}
		return DefResolution{}, false
	}

	return resolveByScopeWalk(scope, path, leaf)
}

// fieldAccessParent reports whether leaf is the `field` child (index 1) of
// a field_access node, per spec.md §4.6 step 2.
func fieldAccessParent(path []*syntax.Node) (*syntax.Node, bool) {
	if len(path) < 2 {
		return nil, false
	}
	parent := path[len(path)-2]
	leaf := path[len(path)-1]
	if parent.Kind != syntax.KindFieldAccess || len(parent.Children) != 2 {
		return nil, false
	}
	if parent.Children[1] != leaf {
		return nil, false
	}
	return parent, true
}

// resolveFieldAccess resolves target.field by first determining target's
// static type, then looking up field among that type's methodmap/enum
// struct members. Full type inference is out of scope (spec.md §1
// Non-goals) — only the minimal cases name resolution itself needs are
// handled: `this.field` inside an enum-struct/methodmap method, and
// `localVar.field` where localVar's declared type names a known
// enum-struct/methodmap.
func resolveFieldAccess(scope Scope, path []*syntax.Node, access, field *syntax.Node) (DefResolution, bool) {
	target := access.Children[0]
	typeName, ok := staticTypeName(scope, path, target)
	if !ok {
		return DefResolution{}, false
	}
	return lookupMember(scope, typeName, field.Text)
}

func staticTypeName(scope Scope, path []*syntax.Node, target *syntax.Node) (string, bool) {
	if target.Kind == syntax.KindThis {
		return enclosingContainerName(path)
	}
	if target.Kind == syntax.KindIdentifier {
		if decl, ok := findLocalDeclaration(path, target.Text); ok {
			return decl, true
		}
	}
	return "", false
}

// enclosingContainerName returns the name of the nearest enum-struct or
// methodmap ancestor in path, for resolving `this`.
func enclosingContainerName(path []*syntax.Node) (string, bool) {
	for i := len(path) - 1; i >= 0; i-- {
		n := path[i]
		if n.Kind == syntax.KindEnumStruct || n.Kind == syntax.KindMethodmap {
			for _, c := range n.Children {
				if c.Kind == syntax.KindIdentifier {
					return c.Text, true
				}
			}
		}
	}
	return "", false
}

// findLocalDeclaration walks path's enclosing blocks and parameter list
// looking for name's declared type, returning the type name text (empty
// string if the declaration has no explicit type, e.g. an old-style `new`
// declaration, in which case the caller cannot narrow further).
func findLocalDeclaration(path []*syntax.Node, name string) (string, bool) {
	for i := len(path) - 1; i >= 0; i-- {
		n := path[i]
		switch n.Kind {
		case syntax.KindBlock:
			if typeName, ok := declaredTypeInSiblings(n.Children, name); ok {
				return typeName, true
			}
		case syntax.KindParameterDeclarations:
			if typeName, ok := declaredTypeInParams(n.Children, name); ok {
				return typeName, true
			}
		}
	}
	return "", false
}

func declaredTypeInSiblings(stmts []*syntax.Node, name string) (string, bool) {
	for _, stmt := range stmts {
		switch stmt.Kind {
		case syntax.KindGlobalVariableDeclaration, syntax.KindOldGlobalVariableDeclaration,
			syntax.KindVariableDeclarationStatement, syntax.KindOldVariableDeclarationStatement:
			// The first non-declarator child, if present, is the type node
			// (BuiltinType, or an Identifier naming a custom enum-struct or
			// methodmap type).
			var typeName string
			for _, c := range stmt.Children {
				if c.Kind == syntax.KindVariableDeclaration {
					if len(c.Children) > 0 && c.Children[0].Kind == syntax.KindIdentifier && c.Children[0].Text == name {
						return typeName, true
					}
					continue
				}
				if typeName == "" {
					typeName = c.Text
				}
			}
		}
	}
	return "", false
}

func declaredTypeInParams(params []*syntax.Node, name string) (string, bool) {
	for _, p := range params {
		var typeName, declName string
		for _, c := range p.Children {
			switch c.Kind {
			case syntax.KindBuiltinType:
				if typeName == "" {
					typeName = c.Text
				}
			case syntax.KindIdentifier:
				if typeName == "" && declName == "" {
					// Ambiguous leading identifier: could be a custom type
					// name or (if no type follows) the parameter name itself.
					typeName = c.Text
				}
				declName = c.Text
			}
		}
		if declName == name {
			if typeName == declName {
				return "", true // no real type name, just the declarator
			}
			return typeName, true
		}
	}
	return "", false
}

// lookupMember finds a field or method named memberName on the
// enum-struct/methodmap named typeName, searching the current file's item
// tree, then the included files', then the sourcemod include's (the same
// order fileSearchOrder gives plain-name lookup); the first type with that
// name that has the member wins.
func lookupMember(scope Scope, typeName, memberName string) (DefResolution, bool) {
	for _, fi := range allFileItems(scope) {
		if fi.Items == nil {
			continue
		}
		for _, es := range fi.Items.EnumStructs {
			if es.Name != typeName {
				continue
			}
			for _, m := range es.Items {
				if m.Name != memberName {
					continue
				}
				kind := DefEnumStructField
				if m.Kind == itemtree.EnumStructMemberMethod {
					kind = DefEnumStructMethod
				}
				return DefResolution{Def: DefId{File: fi.File, AstId: es.AstId}, Kind: kind, Name: memberName, Range: m.Range}, true
			}
		}
		for _, mm := range fi.Items.Methodmaps {
			if mm.Name != typeName {
				continue
			}
			if res, ok := lookupMethodmapMember(scope, fi, mm, memberName); ok {
				return res, true
			}
		}
	}
	return DefResolution{}, false
}

// lookupMethodmapMember checks mm's own members, then — per spec.md §4.6
// step 4 ("a child's declaration shadows the parent chain for the same
// name") — walks up mm.Parent if the name is not found locally.
func lookupMethodmapMember(scope Scope, fi FileItems, mm itemtree.Methodmap, memberName string) (DefResolution, bool) {
	for _, item := range mm.Items {
		if item.Name != memberName {
			continue
		}
		kind := DefMethodmapMethod
		if item.Kind == itemtree.MethodmapItemProperty {
			kind = DefMethodmapProperty
		}
		return DefResolution{Def: DefId{File: fi.File, AstId: mm.AstId}, Kind: kind, Name: memberName, Range: item.Range}, true
	}
	if mm.Parent == "" {
		return DefResolution{}, false
	}
	return lookupMember(scope, mm.Parent, memberName)
}

// resolveByScopeWalk implements spec.md §4.6 step 3: enclosing block(s) →
// parameters → enclosing enum-struct/methodmap → current file's item tree →
// included files' item trees (in Scope.Included order) → the implicit
// sourcemod include.
func resolveByScopeWalk(scope Scope, path []*syntax.Node, leaf *syntax.Node) (DefResolution, bool) {
	name := leaf.Text

	fnAstId, _ := enclosingFunctionAstId(scope, path)

	for i := len(path) - 1; i >= 0; i-- {
		n := path[i]
		switch n.Kind {
		case syntax.KindBlock:
			if res, ok := localInBlock(scope.Current.File, fnAstId, n, name); ok {
				return res, true
			}
		case syntax.KindParameterDeclarations:
			if res, ok := localInParams(scope.Current.File, fnAstId, n, name); ok {
				return res, true
			}
		case syntax.KindFunctionDeclaration, syntax.KindFunctionDefinition,
			syntax.KindEnumStructMethod, syntax.KindMethodmapMethod, syntax.KindMethodmapNative,
			syntax.KindMethodmapPropertyGetter, syntax.KindMethodmapPropertySetter:
			// The parameter list is a sibling of the body, not an ancestor of
			// a use inside it, so it is checked from the owning declaration.
			for _, c := range n.Children {
				if c.Kind != syntax.KindParameterDeclarations {
					continue
				}
				if res, ok := localInParams(scope.Current.File, fnAstId, c, name); ok {
					return res, true
				}
			}
		case syntax.KindEnumStruct, syntax.KindMethodmap:
			if containerName, ok := enclosingContainerName([]*syntax.Node{n}); ok {
				if res, ok := lookupMember(scope, containerName, name); ok {
					return res, true
				}
			}
		}
	}

	for _, fi := range fileSearchOrder(scope) {
		if res, ok := lookupTopLevel(fi, name); ok {
			return res, true
		}
	}

	return DefResolution{}, false
}

// enclosingFunctionAstId finds the function declaration/definition node
// enclosing path's leaf and returns its AstId, looked up by matching byte
// range against the current file's already-built item tree. A block-local or
// parameter binding's DefId carries this AstId alongside its name (see DefId
// doc) so that same-named locals in different functions, like a reused loop
// variable `i`, never collapse onto the same DefId.
func enclosingFunctionAstId(scope Scope, path []*syntax.Node) (syntax.AstId, bool) {
	for i := len(path) - 1; i >= 0; i-- {
		n := path[i]
		if n.Kind != syntax.KindFunctionDeclaration && n.Kind != syntax.KindFunctionDefinition {
			continue
		}
		if scope.Current.Items == nil {
			return syntax.AstId{}, false
		}
		for _, f := range scope.Current.Items.Functions {
			if f.Range == n.Range {
				return f.AstId, true
			}
		}
		return syntax.AstId{}, false
	}
	return syntax.AstId{}, false
}

func localInBlock(file vfs.FileId, fnAstId syntax.AstId, block *syntax.Node, name string) (DefResolution, bool) {
	for _, stmt := range block.Children {
		switch stmt.Kind {
		case syntax.KindGlobalVariableDeclaration, syntax.KindOldGlobalVariableDeclaration,
			syntax.KindVariableDeclarationStatement, syntax.KindOldVariableDeclarationStatement:
			for _, c := range stmt.Children {
				if c.Kind != syntax.KindVariableDeclaration {
					continue
				}
				if len(c.Children) > 0 && c.Children[0].Kind == syntax.KindIdentifier && c.Children[0].Text == name {
					return DefResolution{Def: DefId{File: file, AstId: fnAstId, Local: name}, Kind: DefLocal, Name: name, Range: c.Range}, true
				}
			}
		}
	}
	return DefResolution{}, false
}

func localInParams(file vfs.FileId, fnAstId syntax.AstId, params *syntax.Node, name string) (DefResolution, bool) {
	for _, p := range params.Children {
		for _, c := range p.Children {
			if c.Kind == syntax.KindIdentifier && c.Text == name {
				return DefResolution{Def: DefId{File: file, AstId: fnAstId, Local: name}, Kind: DefParameter, Name: name, Range: p.Range}, true
			}
		}
	}
	return DefResolution{}, false
}

func lookupTopLevel(fi FileItems, name string) (DefResolution, bool) {
	if fi.Items == nil {
		return DefResolution{}, false
	}
	it := fi.Items
	for _, f := range it.Functions {
		if f.Name == name {
			return DefResolution{Def: DefId{File: fi.File, AstId: f.AstId}, Kind: DefFunction, Name: name, Range: f.Range}, true
		}
	}
	for _, v := range it.Variables {
		if v.Name == name {
			return DefResolution{Def: DefId{File: fi.File, AstId: v.AstId}, Kind: DefVariable, Name: name, Range: v.Range}, true
		}
	}
	for _, e := range it.Enums {
		for _, variant := range e.Variants {
			if variant.Name == name {
				return DefResolution{Def: DefId{File: fi.File, AstId: e.AstId}, Kind: DefEnumVariant, Name: name, Range: variant.Range}, true
			}
		}
	}
	for _, es := range it.EnumStructs {
		if es.Name == name {
			return DefResolution{Def: DefId{File: fi.File, AstId: es.AstId}, Kind: DefEnumStructField, Name: name, Range: es.Range}, true
		}
	}
	for _, mm := range it.Methodmaps {
		if mm.Name == name {
			return DefResolution{Def: DefId{File: fi.File, AstId: mm.AstId}, Kind: DefMethodmapMethod, Name: name, Range: mm.Range}, true
		}
	}
	for _, td := range it.Typedefs {
		if td.Name == name {
			return DefResolution{Def: DefId{File: fi.File, AstId: td.AstId}, Kind: DefTypedef, Name: name, Range: td.Range}, true
		}
	}
	for _, d := range it.Defines {
		if d.Name == name {
			// Defines carry no AstId (the preprocessor strips #define lines
			// out of the text the parser ever sees), so Local disambiguates
			// one macro from another in the same file the same way it does
			// for block-local bindings.
			return DefResolution{Def: DefId{File: fi.File, Local: name}, Kind: DefDefine, Name: name, Range: d.Range}, true
		}
	}
	return DefResolution{}, false
}

func fileSearchOrder(scope Scope) []FileItems {
	order := []FileItems{scope.Current}
	order = append(order, scope.Included...)
	if scope.Sourcemod != nil {
		order = append(order, *scope.Sourcemod)
	}
	return order
}

func allFileItems(scope Scope) []FileItems {
	return fileSearchOrder(scope)
}

// Reference is one token occurrence that resolves to a given definition.
type Reference struct {
	File  vfs.FileId
	Range source.ByteRange
}

// FindReferences implements find_references(def): every identifier token
// across the supplied per-file scopes (typically every file in def's
// project_subgraph) whose name matches def.Name and whose own resolution
// targets def exactly. Per spec.md §8 invariant 7, the definition's own name
// token is excluded from the result.
func FindReferences(scopes map[vfs.FileId]Scope, def DefResolution) []Reference {
	var refs []Reference
	for file, scope := range scopes {
		if scope.Current.Tree == nil || scope.Current.Tree.Root == nil {
			continue
		}
		for _, path := range collectIdentifierPaths(scope.Current.Tree.Root) {
			leaf := path[len(path)-1]
			if leaf.Text != def.Name {
				continue
			}
			if isDeclarationSite(path) {
				continue
			}
			res, ok := ResolveAtPath(scope, path)
			if !ok || res.Def != def.Def || res.Kind != def.Kind {
				continue
			}
			refs = append(refs, Reference{File: file, Range: leaf.Range})
		}
	}
	return refs
}

// isDeclarationSite reports whether leaf is the name token of the
// declaration it sits directly inside, rather than a use of that name —
// e.g. the `f` in `void f() {}`, not a call to f. Excluded from
// find_references per spec.md §8 invariant 7.
func isDeclarationSite(path []*syntax.Node) bool {
	if len(path) < 2 {
		return false
	}
	parent := path[len(path)-2]
	leaf := path[len(path)-1]

	switch parent.Kind {
	case syntax.KindFunctionDeclaration, syntax.KindFunctionDefinition,
		syntax.KindEnumStructField, syntax.KindEnumStructMethod,
		syntax.KindMethodmapMethod, syntax.KindMethodmapNative,
		syntax.KindMethodmapMethodConstructor, syntax.KindMethodmapMethodDestructor,
		syntax.KindMethodmapProperty, syntax.KindParameterDeclaration,
		syntax.KindEnumStruct, syntax.KindEnum:
		return firstIdentifierChild(parent) == leaf
	case syntax.KindMethodmap:
		// The first identifier is the methodmap's own name; the second (if
		// present) names its parent type and is a use, not a declaration.
		return firstIdentifierChild(parent) == leaf
	case syntax.KindVariableDeclaration, syntax.KindTypedef, syntax.KindTypeset,
		syntax.KindFuncenum, syntax.KindFunctag:
		return len(parent.Children) > 0 && parent.Children[0] == leaf
	case syntax.KindEnumEntry:
		return len(parent.Children) > 0 && parent.Children[0] == leaf
	default:
		return false
	}
}

func firstIdentifierChild(n *syntax.Node) *syntax.Node {
	for _, c := range n.Children {
		if c.Kind == syntax.KindIdentifier {
			return c
		}
	}
	return nil
}

// collectIdentifierPaths returns the root-to-leaf ancestor path for every
// KindIdentifier node in root, the same shape PathAtOffset produces, so
// ResolveAtPath can be reused unchanged.
func collectIdentifierPaths(root *syntax.Node) [][]*syntax.Node {
	var out [][]*syntax.Node
	var walk func(n *syntax.Node, path []*syntax.Node)
	walk = func(n *syntax.Node, path []*syntax.Node) {
		path = append(path, n)
		if n.Kind == syntax.KindIdentifier {
			cp := make([]*syntax.Node, len(path))
			copy(cp, path)
			out = append(out, cp)
		}
		for _, c := range n.Children {
			walk(c, path)
		}
	}
	walk(root, nil)
	return out
}
