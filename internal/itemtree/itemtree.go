// Package itemtree builds the lightweight per-file summary of top-level
// declarations spec.md §4.3 describes: cheaper to compute and diff than the
// full syntax tree, and the level most name-resolution and "list symbols in
// this file" queries actually want.
package itemtree

import (
	"github.com/sourcepawn-tools/spls-core/internal/source"
	"github.com/sourcepawn-tools/spls-core/internal/syntax"
	"github.com/sourcepawn-tools/spls-core/internal/vfs"
)

// Visibility is a bitset of the modifier keywords a declaration carries.
type Visibility uint8

const (
	VisPublic Visibility = 1 << iota
	VisStatic
	VisStock
	VisNative
	VisForward
)

func parseVisibility(text string) Visibility {
	var v Visibility
	for _, tok := range splitWords(text) {
		switch tok {
		case "public":
			v |= VisPublic
		case "static":
			v |= VisStatic
		case "stock":
			v |= VisStock
		case "native":
			v |= VisNative
		case "forward":
			v |= VisForward
		}
	}
	return v
}

func splitWords(s string) []string {
	var out []string
	word := ""
	for _, r := range s {
		if r == ' ' {
			if word != "" {
				out = append(out, word)
				word = ""
			}
			continue
		}
		word += string(r)
	}
	if word != "" {
		out = append(out, word)
	}
	return out
}

// Function is a top-level function declaration or definition.
type Function struct {
	Name       string
	Visibility Visibility
	HasBody    bool
	AstId      syntax.AstId
	Range      source.ByteRange
}

// Variable is one top-level variable (one per declared name, even when
// several share a `type a, b, c;` declaration).
type Variable struct {
	Name  string
	AstId syntax.AstId
	Range source.ByteRange
}

// Variant is one member of an Enum.
type Variant struct {
	Name  string
	Range source.ByteRange
}

// Enum is a top-level `enum` block.
type Enum struct {
	Name     string // empty for an anonymous enum
	Variants []Variant
	AstId    syntax.AstId
	Range    source.ByteRange
}

// EnumStructMemberKind distinguishes a field from a method inside an enum
// struct's member list.
type EnumStructMemberKind int

const (
	EnumStructMemberField EnumStructMemberKind = iota
	EnumStructMemberMethod
)

// EnumStructMember is one field or method of an EnumStruct.
type EnumStructMember struct {
	Kind  EnumStructMemberKind
	Name  string
	Range source.ByteRange
}

// EnumStruct is a top-level `enum struct` block.
type EnumStruct struct {
	Name  string
	Items []EnumStructMember
	AstId syntax.AstId
	Range source.ByteRange
}

// MethodmapItemKind distinguishes a method/native from a property inside a
// methodmap's member list.
type MethodmapItemKind int

const (
	MethodmapItemMethod MethodmapItemKind = iota
	MethodmapItemProperty
)

// MethodmapItem is one member of a Methodmap.
type MethodmapItem struct {
	Kind  MethodmapItemKind
	Name  string
	Range source.ByteRange
}

// Methodmap is a top-level `methodmap` block.
type Methodmap struct {
	Name   string
	Parent string // empty if none
	Items  []MethodmapItem
	AstId  syntax.AstId
	Range  source.ByteRange
}

// TypedefKind distinguishes the four typedef-family top-level forms.
type TypedefKind int

const (
	TypedefTypedef TypedefKind = iota
	TypedefTypeset
	TypedefFuncenum
	TypedefFunctag
)

// TypedefItem covers `typedef`, `typeset`, `funcenum`, `functag`.
type TypedefItem struct {
	Kind  TypedefKind
	Name  string
	AstId syntax.AstId
	Range source.ByteRange
}

// Define is a macro declaration recorded in the item tree. Per spec.md
// §4.3, the macro body itself lives in the preprocessor's macro table — the
// item tree only records that the declaration exists, at the file and
// range it was defined.
type Define struct {
	Name  string
	Range source.ByteRange
}

// ItemTree is the complete per-file summary.
type ItemTree struct {
	File        vfs.FileId
	Functions   []Function
	Variables   []Variable
	Enums       []Enum
	EnumStructs []EnumStruct
	Methodmaps  []Methodmap
	Typedefs    []TypedefItem
	Defines     []Define
}

// NamedRange is a (name, defining range) pair — the shape Build needs from
// a preprocessor's macro table to populate Defines, without itemtree
// importing preproc directly (itemtree stays a leaf consumer; the caller
// that already holds both a PreprocessedFile and a Tree adapts between
// them).
type NamedRange struct {
	Name  string
	Range source.ByteRange
}

// Build constructs the item tree for one file from its parsed syntax tree
// and the macros the preprocessor recorded as defined in that same file.
func Build(file vfs.FileId, tree *syntax.Tree, ids *syntax.AstIdMap, macros []NamedRange) *ItemTree {
	it := &ItemTree{File: file}
	for _, m := range macros {
		it.Defines = append(it.Defines, Define{Name: m.Name, Range: m.Range})
	}

	for _, n := range tree.TopLevelItems() {
		astId, _ := ids.IdOf(tree.PtrOf(n))
		switch n.Kind {
		case syntax.KindFunctionDeclaration, syntax.KindFunctionDefinition:
			it.Functions = append(it.Functions, buildFunction(n, astId))
		case syntax.KindGlobalVariableDeclaration, syntax.KindOldGlobalVariableDeclaration:
			it.Variables = append(it.Variables, buildVariables(n)...)
		case syntax.KindEnum:
			it.Enums = append(it.Enums, buildEnum(n, astId))
		case syntax.KindEnumStruct:
			it.EnumStructs = append(it.EnumStructs, buildEnumStruct(n, astId))
		case syntax.KindMethodmap:
			it.Methodmaps = append(it.Methodmaps, buildMethodmap(n, astId))
		case syntax.KindTypedef, syntax.KindTypeset, syntax.KindFuncenum, syntax.KindFunctag:
			it.Typedefs = append(it.Typedefs, buildTypedef(n, astId))
		}
	}
	return it
}

func buildFunction(n *syntax.Node, astId syntax.AstId) Function {
	f := Function{AstId: astId, Range: n.Range, HasBody: n.Kind == syntax.KindFunctionDefinition}
	for _, c := range n.Children {
		switch c.Kind {
		case syntax.KindVisibility:
			f.Visibility = parseVisibility(c.Text)
		case syntax.KindIdentifier:
			if f.Name == "" {
				f.Name = c.Text
			}
		}
	}
	return f
}

func buildVariables(n *syntax.Node) []Variable {
	var out []Variable
	for _, c := range n.Children {
		if c.Kind != syntax.KindVariableDeclaration {
			continue
		}
		var name string
		if len(c.Children) > 0 && c.Children[0].Kind == syntax.KindIdentifier {
			name = c.Children[0].Text
		}
		out = append(out, Variable{Name: name, Range: c.Range})
	}
	return out
}

func buildEnum(n *syntax.Node, astId syntax.AstId) Enum {
	e := Enum{AstId: astId, Range: n.Range}
	for _, c := range n.Children {
		switch c.Kind {
		case syntax.KindIdentifier:
			e.Name = c.Text
		case syntax.KindEnumEntries:
			for _, entry := range c.Children {
				if len(entry.Children) > 0 {
					e.Variants = append(e.Variants, Variant{Name: entry.Children[0].Text, Range: entry.Range})
				}
			}
		}
	}
	return e
}

func buildEnumStruct(n *syntax.Node, astId syntax.AstId) EnumStruct {
	es := EnumStruct{AstId: astId, Range: n.Range}
	for _, c := range n.Children {
		switch c.Kind {
		case syntax.KindIdentifier:
			es.Name = c.Text
		case syntax.KindEnumStructField:
			if name := declaredName(c); name != "" {
				es.Items = append(es.Items, EnumStructMember{Kind: EnumStructMemberField, Name: name, Range: c.Range})
			}
		case syntax.KindEnumStructMethod:
			if name := methodName(c); name != "" {
				es.Items = append(es.Items, EnumStructMember{Kind: EnumStructMemberMethod, Name: name, Range: c.Range})
			}
		}
	}
	return es
}

func buildMethodmap(n *syntax.Node, astId syntax.AstId) Methodmap {
	mm := Methodmap{AstId: astId, Range: n.Range}
	nameSeen := false
	for _, c := range n.Children {
		switch c.Kind {
		case syntax.KindIdentifier:
			if !nameSeen {
				mm.Name = c.Text
				nameSeen = true
			} else if mm.Parent == "" {
				mm.Parent = c.Text
			}
		case syntax.KindMethodmapMethod, syntax.KindMethodmapNative, syntax.KindMethodmapMethodConstructor, syntax.KindMethodmapMethodDestructor:
			if name := methodName(c); name != "" {
				mm.Items = append(mm.Items, MethodmapItem{Kind: MethodmapItemMethod, Name: name, Range: c.Range})
			}
		case syntax.KindMethodmapProperty:
			if name := declaredName(c); name != "" {
				mm.Items = append(mm.Items, MethodmapItem{Kind: MethodmapItemProperty, Name: name, Range: c.Range})
			}
		}
	}
	return mm
}

func buildTypedef(n *syntax.Node, astId syntax.AstId) TypedefItem {
	kindMap := map[syntax.Kind]TypedefKind{
		syntax.KindTypedef:  TypedefTypedef,
		syntax.KindTypeset:  TypedefTypeset,
		syntax.KindFuncenum: TypedefFuncenum,
		syntax.KindFunctag:  TypedefFunctag,
	}
	item := TypedefItem{Kind: kindMap[n.Kind], AstId: astId, Range: n.Range}
	if len(n.Children) > 0 && n.Children[0].Kind == syntax.KindIdentifier {
		item.Name = n.Children[0].Text
	}
	return item
}

// declaredName finds the first identifier child of n, which is how a field
// or property node's declared name is positioned regardless of whether a
// type node precedes it.
func declaredName(n *syntax.Node) string {
	for _, c := range n.Children {
		if c.Kind == syntax.KindIdentifier {
			return c.Text
		}
		if c.Kind == syntax.KindVariableDeclaration && len(c.Children) > 0 && c.Children[0].Kind == syntax.KindIdentifier {
			return c.Children[0].Text
		}
	}
	return ""
}

// methodName finds the declared name of a function-shaped member: the
// identifier that is not the leading type node.
func methodName(n *syntax.Node) string {
	for i, c := range n.Children {
		if c.Kind == syntax.KindIdentifier {
			return c.Text
		}
		if i > 1 {
			break
		}
	}
	return ""
}
