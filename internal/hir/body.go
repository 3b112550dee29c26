// Package hir lowers a function-bodied definition's syntax subtree into a
// flat expression arena (spec.md §4.5): a cheaper, semantically-typed shape
// for the name resolver and other facade queries to walk than the raw
// syntax tree, with a BodySourceMap bridging back to concrete positions.
package hir

import (
	"github.com/sourcepawn-tools/spls-core/internal/syntax"
)

// ExprId is an index into a Body's expression arena.
type ExprId int

// ExprKind tags one arena entry. The vocabulary mirrors spec.md §4.5's
// statement and expression kind lists one-for-one.
type ExprKind int

const (
	ExprMissing ExprKind = iota
	ExprIdent
	ExprBinding
	ExprDecl
	ExprBlock
	ExprIf
	ExprFor
	ExprWhile
	ExprDoWhile
	ExprSwitch
	ExprSwitchCase
	ExprReturn
	ExprBreak
	ExprContinue
	ExprDelete
	ExprExpressionStatement
	ExprAssignment
	ExprBinaryOp
	ExprUnaryOp
	ExprUpdate
	ExprFieldAccess
	ExprScopeAccess
	ExprCall
	ExprIndex
	ExprTernary
	ExprParenthesized
	ExprNew
	ExprViewAs
	ExprSizeof
	ExprArrayLiteral
	ExprIntLiteral
	ExprFloatLiteral
	ExprCharLiteral
	ExprStringLiteral
	ExprBoolLiteral
	ExprNull
	ExprThis
)

// Expr is one arena entry. Text carries operator/literal/identifier text
// where applicable; Children holds operand ExprIds in source order. Block
// is set only for Kind == ExprBlock; other kinds leave it at its zero value.
type Expr struct {
	Kind     ExprKind
	Text     string
	Children []ExprId
	Block    BlockId
}

// BlockId is the interned identity of one `block` node within a Body.
type BlockId int

// BlockLoc is what a BlockId resolves to: the owning function's AstId plus
// an ordinal among blocks encountered in preorder within that function,
// analogous to syntax.AstId's own (Kind, Ordinal) scheme — stable across
// edits that do not add or remove an earlier sibling block.
type BlockLoc struct {
	Owner   syntax.AstId
	Ordinal int
}

// Body is the lowered form of one function-bodied definition.
type Body struct {
	Params   []ExprId
	BodyExpr ExprId
	Exprs    []Expr
	Blocks   []BlockLoc
}

func (b *Body) ExprAt(id ExprId) Expr { return b.Exprs[id] }

// BodySourceMap records ExprId <-> NodePtr in both directions: the only
// bridge from an LSP position into the lowered semantic model.
type BodySourceMap struct {
	exprToNode map[ExprId]syntax.NodePtr
	nodeToExpr map[syntax.NodePtr]ExprId
}

// NodeOf returns the syntax node an ExprId was lowered from.
func (m *BodySourceMap) NodeOf(id ExprId) (syntax.NodePtr, bool) {
	ptr, ok := m.exprToNode[id]
	return ptr, ok
}

// ExprOf returns the ExprId a syntax node lowered to.
func (m *BodySourceMap) ExprOf(ptr syntax.NodePtr) (ExprId, bool) {
	id, ok := m.nodeToExpr[ptr]
	return id, ok
}

type lowerer struct {
	tree     *syntax.Tree
	owner    syntax.AstId
	body     Body
	srcMap   BodySourceMap
	blockOrd int
}

// Lower builds the Body and BodySourceMap for a function-shaped node (a
// KindFunctionDefinition, or an enum-struct/methodmap member with a body).
// fnNode's children are expected in the shape finishFunction/the
// enum-struct and methodmap member parsers produce: an optional
// KindVisibility, an optional type node, a name KindIdentifier, a
// KindParameterDeclarations, and — when a body exists — a trailing
// KindBlock. owner identifies the enclosing item for BlockId interning.
func Lower(tree *syntax.Tree, fnNode *syntax.Node, owner syntax.AstId) (*Body, *BodySourceMap) {
	lw := &lowerer{
		tree:   tree,
		owner:  owner,
		srcMap: BodySourceMap{exprToNode: map[ExprId]syntax.NodePtr{}, nodeToExpr: map[syntax.NodePtr]ExprId{}},
	}

	var params, block *syntax.Node
	for _, c := range fnNode.Children {
		switch c.Kind {
		case syntax.KindParameterDeclarations:
			params = c
		case syntax.KindBlock:
			block = c
		}
	}

	if params != nil {
		for _, p := range params.Children {
			lw.body.Params = append(lw.body.Params, lw.lowerParam(p))
		}
	}

	if block != nil {
		lw.body.BodyExpr = lw.lowerStatement(block)
	} else {
		lw.body.BodyExpr = lw.push(block, Expr{Kind: ExprMissing})
	}

	return &lw.body, &lw.srcMap
}

func (lw *lowerer) push(n *syntax.Node, e Expr) ExprId {
	id := ExprId(len(lw.body.Exprs))
	lw.body.Exprs = append(lw.body.Exprs, e)
	if n != nil {
		ptr := lw.tree.PtrOf(n)
		if ptr >= 0 {
			lw.srcMap.exprToNode[id] = ptr
			lw.srcMap.nodeToExpr[ptr] = id
		}
	}
	return id
}

func (lw *lowerer) missing(n *syntax.Node) ExprId {
	return lw.push(n, Expr{Kind: ExprMissing})
}

func (lw *lowerer) lowerParam(n *syntax.Node) ExprId {
	var name string
	var defaultChildren []ExprId
	nameSeen := false
	for _, c := range n.Children {
		if c.Kind == syntax.KindIdentifier && !nameSeen {
			name = c.Text
			nameSeen = true
			continue
		}
		if nameSeen {
			defaultChildren = append(defaultChildren, lw.lowerExpr(c))
		}
	}
	return lw.push(n, Expr{Kind: ExprBinding, Text: name, Children: defaultChildren})
}

func (lw *lowerer) lowerStatement(n *syntax.Node) ExprId {
	if n == nil {
		return lw.missing(nil)
	}
	switch n.Kind {
	case syntax.KindBlock:
		blockId := BlockId(len(lw.body.Blocks))
		lw.body.Blocks = append(lw.body.Blocks, BlockLoc{Owner: lw.owner, Ordinal: lw.blockOrd})
		lw.blockOrd++
		var children []ExprId
		for _, stmt := range n.Children {
			children = append(children, lw.lowerStatement(stmt))
		}
		id := lw.push(n, Expr{Kind: ExprBlock, Children: children, Block: blockId})
		return id

	case syntax.KindExpressionStatement:
		var children []ExprId
		if len(n.Children) > 0 {
			children = []ExprId{lw.lowerExpr(n.Children[0])}
		}
		return lw.push(n, Expr{Kind: ExprExpressionStatement, Children: children})

	case syntax.KindVariableDeclarationStatement, syntax.KindOldVariableDeclarationStatement,
		syntax.KindGlobalVariableDeclaration, syntax.KindOldGlobalVariableDeclaration:
		var children []ExprId
		for _, c := range n.Children {
			if c.Kind == syntax.KindVariableDeclaration {
				children = append(children, lw.lowerDecl(c))
			}
		}
		return lw.push(n, Expr{Kind: ExprDecl, Children: children})

	case syntax.KindForStatement:
		var children []ExprId
		for _, c := range n.Children {
			children = append(children, lw.lowerStatementOrExpr(c))
		}
		return lw.push(n, Expr{Kind: ExprFor, Children: children})

	case syntax.KindWhileStatement:
		cond := lw.lowerExpr(n.Children[0])
		body := lw.lowerStatement(n.Children[1])
		return lw.push(n, Expr{Kind: ExprWhile, Children: []ExprId{cond, body}})

	case syntax.KindDoWhileStatement:
		body := lw.lowerStatement(n.Children[0])
		children := []ExprId{body}
		if len(n.Children) > 1 {
			children = append(children, lw.lowerExpr(n.Children[1]))
		}
		return lw.push(n, Expr{Kind: ExprDoWhile, Children: children})

	case syntax.KindConditionStatement:
		var children []ExprId
		children = append(children, lw.lowerExpr(n.Children[0]))
		children = append(children, lw.lowerStatement(n.Children[1]))
		if len(n.Children) > 2 {
			children = append(children, lw.lowerStatement(n.Children[2]))
		}
		return lw.push(n, Expr{Kind: ExprIf, Children: children})

	case syntax.KindSwitchStatement:
		var children []ExprId
		for i, c := range n.Children {
			if i == 0 {
				children = append(children, lw.lowerExpr(c))
				continue
			}
			children = append(children, lw.lowerSwitchCase(c))
		}
		return lw.push(n, Expr{Kind: ExprSwitch, Children: children})

	case syntax.KindReturnStatement:
		var children []ExprId
		if len(n.Children) > 0 {
			children = append(children, lw.lowerExpr(n.Children[0]))
		}
		return lw.push(n, Expr{Kind: ExprReturn, Children: children})

	case syntax.KindBreakStatement:
		return lw.push(n, Expr{Kind: ExprBreak})

	case syntax.KindContinueStatement:
		return lw.push(n, Expr{Kind: ExprContinue})

	case syntax.KindDeleteStatement:
		var children []ExprId
		if len(n.Children) > 0 {
			children = append(children, lw.lowerExpr(n.Children[0]))
		}
		return lw.push(n, Expr{Kind: ExprDelete, Children: children})

	default:
		return lw.lowerExpr(n)
	}
}

// lowerStatementOrExpr handles a `for` clause slot, which may hold either a
// declaration or a bare expression.
func (lw *lowerer) lowerStatementOrExpr(n *syntax.Node) ExprId {
	switch n.Kind {
	case syntax.KindVariableDeclarationStatement, syntax.KindOldVariableDeclarationStatement,
		syntax.KindGlobalVariableDeclaration, syntax.KindOldGlobalVariableDeclaration:
		return lw.lowerStatement(n)
	default:
		return lw.lowerExpr(n)
	}
}

func (lw *lowerer) lowerDecl(n *syntax.Node) ExprId {
	var name string
	var children []ExprId
	for _, c := range n.Children {
		if c.Kind == syntax.KindIdentifier && name == "" {
			name = c.Text
			continue
		}
		children = append(children, lw.lowerExpr(c))
	}
	return lw.push(n, Expr{Kind: ExprDecl, Text: name, Children: children})
}

func (lw *lowerer) lowerSwitchCase(n *syntax.Node) ExprId {
	var children []ExprId
	for _, c := range n.Children {
		children = append(children, lw.lowerStatementOrExpr(c))
	}
	return lw.push(n, Expr{Kind: ExprSwitchCase, Children: children})
}

func (lw *lowerer) lowerExpr(n *syntax.Node) ExprId {
	if n == nil {
		return lw.missing(nil)
	}
	switch n.Kind {
	case syntax.KindIdentifier:
		return lw.push(n, Expr{Kind: ExprIdent, Text: n.Text})
	case syntax.KindAssignmentExpression:
		return lw.push(n, Expr{Kind: ExprAssignment, Text: n.Text, Children: lw.lowerAll(n.Children)})
	case syntax.KindBinaryExpression:
		return lw.push(n, Expr{Kind: ExprBinaryOp, Text: n.Text, Children: lw.lowerAll(n.Children)})
	case syntax.KindUnaryExpression:
		return lw.push(n, Expr{Kind: ExprUnaryOp, Text: n.Text, Children: lw.lowerAll(n.Children)})
	case syntax.KindUpdateExpression:
		return lw.push(n, Expr{Kind: ExprUpdate, Text: n.Text, Children: lw.lowerAll(n.Children)})
	case syntax.KindFieldAccess:
		return lw.push(n, Expr{Kind: ExprFieldAccess, Children: lw.lowerAll(n.Children)})
	case syntax.KindScopeAccess:
		return lw.push(n, Expr{Kind: ExprScopeAccess, Children: lw.lowerAll(n.Children)})
	case syntax.KindCallExpression:
		var children []ExprId
		children = append(children, lw.lowerExpr(n.Children[0]))
		if len(n.Children) > 1 {
			children = append(children, lw.lowerAll(n.Children[1].Children)...)
		}
		return lw.push(n, Expr{Kind: ExprCall, Children: children})
	case syntax.KindArrayIndexedAccess:
		return lw.push(n, Expr{Kind: ExprIndex, Children: lw.lowerAll(n.Children)})
	case syntax.KindTernaryExpression:
		return lw.push(n, Expr{Kind: ExprTernary, Children: lw.lowerAll(n.Children)})
	case syntax.KindParenthesizedExpression:
		return lw.push(n, Expr{Kind: ExprParenthesized, Children: lw.lowerAll(n.Children)})
	case syntax.KindNewExpression:
		return lw.push(n, Expr{Kind: ExprNew, Children: lw.lowerNewChildren(n.Children)})
	case syntax.KindViewAs:
		return lw.push(n, Expr{Kind: ExprViewAs, Children: lw.lowerAll(n.Children)})
	case syntax.KindSizeofExpression:
		return lw.push(n, Expr{Kind: ExprSizeof, Children: lw.lowerAll(n.Children)})
	case syntax.KindArrayLiteral:
		return lw.push(n, Expr{Kind: ExprArrayLiteral, Children: lw.lowerAll(n.Children)})
	case syntax.KindIntLiteral:
		return lw.push(n, Expr{Kind: ExprIntLiteral, Text: n.Text})
	case syntax.KindFloatLiteral:
		return lw.push(n, Expr{Kind: ExprFloatLiteral, Text: n.Text})
	case syntax.KindCharLiteral:
		return lw.push(n, Expr{Kind: ExprCharLiteral, Text: n.Text})
	case syntax.KindStringLiteral:
		return lw.push(n, Expr{Kind: ExprStringLiteral, Text: n.Text})
	case syntax.KindBoolLiteral:
		return lw.push(n, Expr{Kind: ExprBoolLiteral, Text: n.Text})
	case syntax.KindNull:
		return lw.push(n, Expr{Kind: ExprNull})
	case syntax.KindThis:
		return lw.push(n, Expr{Kind: ExprThis})
	default:
		// Unrecognized/malformed node: lowers to Missing, no diagnostic —
		// the parser already recorded whatever was wrong.
		return lw.missing(n)
	}
}

func (lw *lowerer) lowerAll(nodes []*syntax.Node) []ExprId {
	ids := make([]ExprId, 0, len(nodes))
	for _, c := range nodes {
		ids = append(ids, lw.lowerExpr(c))
	}
	return ids
}

// lowerNewChildren lowers a `new Type(args)` expression's children: the type
// identifier (resolved against the methodmap namespace, so kept as an Ident
// child rather than dropped), then each argument, flattening the
// KindCallArguments wrapper if present.
func (lw *lowerer) lowerNewChildren(children []*syntax.Node) []ExprId {
	if len(children) == 0 {
		return nil
	}
	ids := []ExprId{lw.lowerExpr(children[0])}
	if len(children) > 1 {
		ids = append(ids, lw.lowerAll(children[1].Children)...)
	}
	return ids
}
