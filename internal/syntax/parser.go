package syntax

import (
	"github.com/sourcepawn-tools/spls-core/internal/lexer"
	"github.com/sourcepawn-tools/spls-core/internal/source"
)

var modifierKeywords = map[string]bool{
	"public": true, "static": true, "stock": true, "native": true,
	"forward": true, "const": true, "decl": true, "new": true,
}

var builtinTypeKeywords = map[string]bool{
	"void": true, "int": true, "float": true, "bool": true,
	"char": true, "any": true, "Function": true,
}

type parser struct {
	toks []lexer.Token
	pos  int
}

// Parse turns preprocessed text into a Tree. Parsing never fails: malformed
// constructs are recorded as KindError nodes and the parser resynchronizes
// at the next statement/declaration boundary (spec.md §4.2).
func Parse(text string) *Tree {
	all := lexer.Tokenize([]byte(text))
	filtered := make([]lexer.Token, 0, len(all))
	for _, t := range all {
		switch t.Kind {
		case lexer.KindWhitespace, lexer.KindComment, lexer.KindNewline, lexer.KindDirective:
			continue
		}
		filtered = append(filtered, t)
	}
	p := &parser{toks: filtered}

	root := &Node{Kind: KindSourceFile}
	for !p.atEOF() {
		before := p.pos
		item := p.parseTopLevelItem()
		if item != nil {
			root.Children = append(root.Children, item)
		}
		if p.pos == before {
			p.advance() // guarantee forward progress
		}
	}
	root.Range = spanOf(root.Children)
	return newTree(root)
}

func spanOf(children []*Node) source.ByteRange {
	if len(children) == 0 {
		return source.ByteRange{}
	}
	return source.ByteRange{Start: children[0].Range.Start, End: children[len(children)-1].Range.End}
}

func (p *parser) atEOF() bool {
	return p.pos >= len(p.toks) || p.toks[p.pos].Kind == lexer.KindEOF
}

func (p *parser) peek() lexer.Token {
	if p.pos >= len(p.toks) {
		return lexer.Token{Kind: lexer.KindEOF}
	}
	return p.toks[p.pos]
}

func (p *parser) peekAt(off int) lexer.Token {
	idx := p.pos + off
	if idx >= len(p.toks) {
		return lexer.Token{Kind: lexer.KindEOF}
	}
	return p.toks[idx]
}

func (p *parser) advance() lexer.Token {
	t := p.peek()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

func (p *parser) isKeyword(text string) bool {
	t := p.peek()
	return t.Kind == lexer.KindKeyword && t.Text == text
}

func (p *parser) isPunct(text string) bool {
	t := p.peek()
	return (t.Kind == lexer.KindPunct || t.Kind == lexer.KindOperator) && t.Text == text
}

func (p *parser) expectPunct(text string) (lexer.Token, bool) {
	if p.isPunct(text) {
		return p.advance(), true
	}
	return lexer.Token{}, false
}

func (p *parser) errorNode() *Node {
	t := p.advance()
	return &Node{Kind: KindError, Range: t.Range, Text: t.Text}
}

// skipToSemicolon consumes tokens up to and including the next ';' outside
// any (), {} or [] nesting, stopping without consuming at a closing bracket
// that has no opener in the skipped run. Used to resynchronize after an
// error node.
func (p *parser) skipToSemicolon() {
	depth := 0
	for !p.atEOF() {
		if p.isPunct("(") || p.isPunct("{") || p.isPunct("[") {
			depth++
		}
		if p.isPunct(")") || p.isPunct("}") || p.isPunct("]") {
			if depth == 0 {
				return
			}
			depth--
		}
		if depth == 0 && p.isPunct(";") {
			p.advance()
			return
		}
		p.advance()
	}
}

// ===== Top-level items =====

func (p *parser) parseTopLevelItem() *Node {
	switch {
	case p.isKeyword("enum"):
		return p.parseEnumOrEnumStruct()
	case p.isKeyword("methodmap"):
		return p.parseMethodmap()
	case p.isKeyword("typedef"):
		return p.parseTypedefFamily(KindTypedef)
	case p.isKeyword("typeset"):
		return p.parseTypedefFamily(KindTypeset)
	case p.isKeyword("funcenum"):
		return p.parseTypedefFamily(KindFuncenum)
	case p.isKeyword("functag"):
		return p.parseTypedefFamily(KindFunctag)
	default:
		return p.parseDeclOrFunction(false)
	}
}

func (p *parser) consumeModifiers() []lexer.Token {
	var mods []lexer.Token
	for {
		t := p.peek()
		if t.Kind == lexer.KindKeyword && modifierKeywords[t.Text] {
			mods = append(mods, p.advance())
			continue
		}
		break
	}
	return mods
}

func (p *parser) isTypeStart() bool {
	t := p.peek()
	if t.Kind == lexer.KindKeyword && builtinTypeKeywords[t.Text] {
		return true
	}
	// An identifier is a type name only if followed by another identifier
	// (TYPE NAME) or by '[' (array-typed TYPE NAME pattern after dims), i.e.
	// two-token lookahead disambiguates `Handle h` from the bare `h`.
	if t.Kind == lexer.KindIdent {
		n := p.peekAt(1)
		if n.Kind == lexer.KindIdent || n.Kind == lexer.KindKeyword {
			return true
		}
		if (n.Kind == lexer.KindPunct || n.Kind == lexer.KindOperator) && n.Text == "[" {
			// TYPE[] NAME also valid; only a type if a third token starts an
			// identifier after the closing bracket run.
			i := 1
			for p.peekAt(i).Text == "[" {
				for !(p.peekAt(i).Text == "]") && p.peekAt(i).Kind != lexer.KindEOF {
					i++
				}
				i++ // consume ']'
			}
			return p.peekAt(i).Kind == lexer.KindIdent
		}
	}
	return false
}

func (p *parser) parseType() *Node {
	t := p.advance()
	kind := KindBuiltinType
	n := &Node{Kind: kind, Range: t.Range, Text: t.Text}
	for p.isPunct("[") {
		p.advance()
		if !p.isPunct("]") {
			p.parseExpression() // fixed-size dimension, not retained structurally
		}
		end, _ := p.expectPunct("]")
		n = &Node{Kind: KindArrayType, Range: source.ByteRange{Start: n.Range.Start, End: end.Range.End}, Children: []*Node{n}}
	}
	return n
}

func (p *parser) parseDeclOrFunction(insideBody bool) *Node {
	start := p.peek().Range.Start
	mods := p.consumeModifiers()

	var typeNode *Node
	if p.isTypeStart() {
		typeNode = p.parseType()
	}

	if p.peek().Kind != lexer.KindIdent && p.peek().Kind != lexer.KindKeyword {
		n := p.errorNode()
		p.skipToSemicolon()
		return n
	}
	nameTok := p.advance()
	nameNode := &Node{Kind: KindIdentifier, Range: nameTok.Range, Text: nameTok.Text}

	if p.isPunct("(") && !insideBody {
		return p.finishFunction(start, mods, typeNode, nameNode)
	}
	if p.isPunct("(") {
		// a call used as a statement head would have been routed through
		// parseStatement's expression path; reaching here means a nested
		// function-like declaration, which SourcePawn does not have. Treat
		// it as a function anyway for resilience.
		return p.finishFunction(start, mods, typeNode, nameNode)
	}
	return p.finishVariableDecl(start, mods, typeNode, nameNode)
}

func (p *parser) finishFunction(start int, mods []lexer.Token, typeNode, nameNode *Node) *Node {
	var children []*Node
	if len(mods) > 0 {
		children = append(children, visibilityNode(mods))
	}
	if typeNode != nil {
		children = append(children, typeNode)
	}
	children = append(children, nameNode)

	params := p.parseParameterDeclarations()
	children = append(children, params)

	if p.isPunct(";") {
		end := p.advance()
		return &Node{Kind: KindFunctionDeclaration, Range: source.ByteRange{Start: start, End: end.Range.End}, Children: children}
	}
	if p.isPunct("{") {
		body := p.parseBlock()
		children = append(children, body)
		return &Node{Kind: KindFunctionDefinition, Range: source.ByteRange{Start: start, End: body.Range.End}, Children: children}
	}
	// malformed: no body, no terminator; resynchronize.
	p.skipToSemicolon()
	return &Node{Kind: KindFunctionDeclaration, Range: source.ByteRange{Start: start, End: p.peek().Range.Start}, Children: children}
}

func visibilityNode(mods []lexer.Token) *Node {
	return &Node{Kind: KindVisibility, Range: source.ByteRange{Start: mods[0].Range.Start, End: mods[len(mods)-1].Range.End}, Text: joinTexts(mods)}
}

func joinTexts(toks []lexer.Token) string {
	s := ""
	for i, t := range toks {
		if i > 0 {
			s += " "
		}
		s += t.Text
	}
	return s
}

func (p *parser) parseParameterDeclarations() *Node {
	start, _ := p.expectPunct("(")
	var params []*Node
	for !p.isPunct(")") && !p.atEOF() {
		pStart := p.peek().Range.Start
		mods := p.consumeModifiers()
		var typeNode *Node
		if p.isTypeStart() {
			typeNode = p.parseType()
		}
		var nameNode *Node
		if p.peek().Kind == lexer.KindIdent {
			nt := p.advance()
			nameNode = &Node{Kind: KindIdentifier, Range: nt.Range, Text: nt.Text}
		}
		var children []*Node
		if len(mods) > 0 {
			children = append(children, visibilityNode(mods))
		}
		if typeNode != nil {
			children = append(children, typeNode)
		}
		if nameNode != nil {
			children = append(children, nameNode)
		}
		if p.isPunct("=") {
			p.advance()
			children = append(children, p.parseExpression())
		}
		pEnd := p.peek().Range.Start
		if len(children) > 0 {
			pEnd = children[len(children)-1].Range.End
		}
		params = append(params, &Node{Kind: KindParameterDeclaration, Range: source.ByteRange{Start: pStart, End: pEnd}, Children: children})
		if p.isPunct(",") {
			p.advance()
			continue
		}
		break
	}
	end, _ := p.expectPunct(")")
	return &Node{Kind: KindParameterDeclarations, Range: source.ByteRange{Start: start.Range.Start, End: end.Range.End}, Children: params}
}

func (p *parser) finishVariableDecl(start int, mods []lexer.Token, typeNode, nameNode *Node) *Node {
	isOld := typeNode == nil
	wrapperKind := KindGlobalVariableDeclaration
	if isOld {
		wrapperKind = KindOldGlobalVariableDeclaration
	}

	var decls []*Node
	decls = append(decls, p.parseOneDeclarator(nameNode))
	for p.isPunct(",") {
		p.advance()
		if p.peek().Kind != lexer.KindIdent {
			break
		}
		nt := p.advance()
		n := &Node{Kind: KindIdentifier, Range: nt.Range, Text: nt.Text}
		decls = append(decls, p.parseOneDeclarator(n))
	}

	end := p.peek().Range.End
	if p.isPunct(";") {
		end = p.advance().Range.End
	}

	var children []*Node
	if len(mods) > 0 {
		children = append(children, visibilityNode(mods))
	}
	if typeNode != nil {
		children = append(children, typeNode)
	}
	children = append(children, decls...)
	return &Node{Kind: wrapperKind, Range: source.ByteRange{Start: start, End: end}, Children: children}
}

func (p *parser) parseOneDeclarator(nameNode *Node) *Node {
	start := nameNode.Range.Start
	children := []*Node{nameNode}
	for p.isPunct("[") {
		p.advance()
		if !p.isPunct("]") {
			p.parseExpression()
		}
		p.expectPunct("]")
	}
	end := nameNode.Range.End
	if p.isPunct("=") {
		p.advance()
		init := p.parseExpression()
		children = append(children, init)
		end = init.Range.End
	}
	return &Node{Kind: KindVariableDeclaration, Range: source.ByteRange{Start: start, End: end}, Children: children}
}

// ===== Enum / enum struct =====

func (p *parser) parseEnumOrEnumStruct() *Node {
	start := p.advance().Range.Start // 'enum'
	if p.isKeyword("struct") {
		p.advance()
		return p.parseEnumStructBody(start)
	}
	var nameNode *Node
	if p.peek().Kind == lexer.KindIdent {
		nt := p.advance()
		nameNode = &Node{Kind: KindIdentifier, Range: nt.Range, Text: nt.Text}
	}
	var children []*Node
	if nameNode != nil {
		children = append(children, nameNode)
	}
	if p.isPunct("{") {
		entries := p.parseEnumEntries()
		children = append(children, entries)
	}
	end := p.peek().Range.Start
	if p.isPunct(";") {
		end = p.advance().Range.End
	} else if len(children) > 0 {
		end = children[len(children)-1].Range.End
	}
	return &Node{Kind: KindEnum, Range: source.ByteRange{Start: start, End: end}, Children: children}
}

func (p *parser) parseEnumEntries() *Node {
	open, _ := p.expectPunct("{")
	var entries []*Node
	for !p.isPunct("}") && !p.atEOF() {
		if p.peek().Kind != lexer.KindIdent && p.peek().Kind != lexer.KindKeyword {
			p.errorNode()
			continue
		}
		nt := p.advance()
		entryStart := nt.Range.Start
		entryEnd := nt.Range.End
		children := []*Node{{Kind: KindIdentifier, Range: nt.Range, Text: nt.Text}}
		if p.isPunct("=") {
			p.advance()
			v := p.parseExpression()
			children = append(children, v)
			entryEnd = v.Range.End
		}
		entries = append(entries, &Node{Kind: KindEnumEntry, Range: source.ByteRange{Start: entryStart, End: entryEnd}, Children: children})
		if p.isPunct(",") {
			p.advance()
		}
	}
	close, _ := p.expectPunct("}")
	return &Node{Kind: KindEnumEntries, Range: source.ByteRange{Start: open.Range.Start, End: close.Range.End}, Children: entries}
}

func (p *parser) parseEnumStructBody(start int) *Node {
	var nameNode *Node
	if p.peek().Kind == lexer.KindIdent {
		nt := p.advance()
		nameNode = &Node{Kind: KindIdentifier, Range: nt.Range, Text: nt.Text}
	}
	var children []*Node
	if nameNode != nil {
		children = append(children, nameNode)
	}
	if _, ok := p.expectPunct("{"); ok {
		for !p.isPunct("}") && !p.atEOF() {
			item := p.parseEnumStructMember()
			if item != nil {
				children = append(children, item)
			}
		}
		p.expectPunct("}")
	}
	end := p.peek().Range.Start
	if len(children) > 0 {
		end = children[len(children)-1].Range.End
	}
	return &Node{Kind: KindEnumStruct, Range: source.ByteRange{Start: start, End: end}, Children: children}
}

func (p *parser) parseEnumStructMember() *Node {
	start := p.peek().Range.Start
	mods := p.consumeModifiers()
	var typeNode *Node
	if p.isTypeStart() {
		typeNode = p.parseType()
	}
	if p.peek().Kind != lexer.KindIdent {
		n := p.errorNode()
		p.skipToSemicolon()
		return n
	}
	nameTok := p.advance()
	nameNode := &Node{Kind: KindIdentifier, Range: nameTok.Range, Text: nameTok.Text}

	if p.isPunct("(") {
		var children []*Node
		if typeNode != nil {
			children = append(children, typeNode)
		}
		children = append(children, nameNode)
		params := p.parseParameterDeclarations()
		children = append(children, params)
		_ = mods
		if p.isPunct("{") {
			body := p.parseBlock()
			children = append(children, body)
			return &Node{Kind: KindEnumStructMethod, Range: source.ByteRange{Start: start, End: body.Range.End}, Children: children}
		}
		end, _ := p.expectPunct(";")
		return &Node{Kind: KindEnumStructMethod, Range: source.ByteRange{Start: start, End: end.Range.End}, Children: children}
	}

	decl := p.parseOneDeclarator(nameNode)
	var children []*Node
	if typeNode != nil {
		children = append(children, typeNode)
	}
	children = append(children, decl)
	end := decl.Range.End
	if p.isPunct(";") {
		end = p.advance().Range.End
	}
	return &Node{Kind: KindEnumStructField, Range: source.ByteRange{Start: start, End: end}, Children: children}
}

// ===== Methodmap =====

func (p *parser) parseMethodmap() *Node {
	start := p.advance().Range.Start // 'methodmap'
	var nameNode *Node
	if p.peek().Kind == lexer.KindIdent {
		nt := p.advance()
		nameNode = &Node{Kind: KindIdentifier, Range: nt.Range, Text: nt.Text}
	}
	var children []*Node
	if nameNode != nil {
		children = append(children, nameNode)
	}
	if p.peek().Kind == lexer.KindIdent && p.peek().Text == "__nullable__" {
		p.advance()
	}
	if p.isPunct("<") {
		p.advance()
		if p.peek().Kind == lexer.KindIdent {
			pt := p.advance()
			children = append(children, &Node{Kind: KindIdentifier, Range: pt.Range, Text: pt.Text})
		}
	}
	if _, ok := p.expectPunct("{"); ok {
		for !p.isPunct("}") && !p.atEOF() {
			item := p.parseMethodmapMember()
			if item != nil {
				children = append(children, item)
			}
		}
		p.expectPunct("}")
	}
	end := p.peek().Range.Start
	if len(children) > 0 {
		end = children[len(children)-1].Range.End
	}
	return &Node{Kind: KindMethodmap, Range: source.ByteRange{Start: start, End: end}, Children: children}
}

func (p *parser) parseMethodmapMember() *Node {
	start := p.peek().Range.Start
	mods := p.consumeModifiers()
	_ = mods

	if p.isKeyword("property") {
		p.advance()
		var typeNode *Node
		if p.isTypeStart() {
			typeNode = p.parseType()
		}
		var nameNode *Node
		if p.peek().Kind == lexer.KindIdent {
			nt := p.advance()
			nameNode = &Node{Kind: KindIdentifier, Range: nt.Range, Text: nt.Text}
		}
		var children []*Node
		if typeNode != nil {
			children = append(children, typeNode)
		}
		if nameNode != nil {
			children = append(children, nameNode)
		}
		if _, ok := p.expectPunct("{"); ok {
			for !p.isPunct("}") && !p.atEOF() {
				acc := p.parsePropertyAccessor()
				if acc != nil {
					children = append(children, acc)
				}
			}
			p.expectPunct("}")
		}
		end := p.peek().Range.Start
		if len(children) > 0 {
			end = children[len(children)-1].Range.End
		}
		return &Node{Kind: KindMethodmapProperty, Range: source.ByteRange{Start: start, End: end}, Children: children}
	}

	var typeNode *Node
	if p.isTypeStart() {
		typeNode = p.parseType()
	}
	isNative := false
	for _, m := range mods {
		if m.Text == "native" {
			isNative = true
		}
	}
	if p.peek().Kind != lexer.KindIdent && p.peek().Kind != lexer.KindKeyword {
		n := p.errorNode()
		p.skipToSemicolon()
		return n
	}
	nameTok := p.advance()
	nameNode := &Node{Kind: KindIdentifier, Range: nameTok.Range, Text: nameTok.Text}
	var children []*Node
	if typeNode != nil {
		children = append(children, typeNode)
	}
	children = append(children, nameNode)
	params := p.parseParameterDeclarations()
	children = append(children, params)

	kind := KindMethodmapMethod
	if isNative {
		kind = KindMethodmapNative
	}
	if p.isPunct("{") {
		body := p.parseBlock()
		children = append(children, body)
		return &Node{Kind: kind, Range: source.ByteRange{Start: start, End: body.Range.End}, Children: children}
	}
	end, _ := p.expectPunct(";")
	return &Node{Kind: kind, Range: source.ByteRange{Start: start, End: end.Range.End}, Children: children}
}

func (p *parser) parsePropertyAccessor() *Node {
	start := p.peek().Range.Start
	p.consumeModifiers()
	kind := KindMethodmapPropertyGetter
	if p.isKeyword("get") {
		p.advance()
	} else if p.isKeyword("set") {
		kind = KindMethodmapPropertySetter
		p.advance()
	} else {
		n := p.errorNode()
		p.skipToSemicolon()
		return n
	}
	var children []*Node
	if p.isPunct("(") {
		params := p.parseParameterDeclarations()
		children = append(children, params)
	}
	if p.isPunct("{") {
		body := p.parseBlock()
		children = append(children, body)
		return &Node{Kind: kind, Range: source.ByteRange{Start: start, End: body.Range.End}, Children: children}
	}
	end, _ := p.expectPunct(";")
	return &Node{Kind: kind, Range: source.ByteRange{Start: start, End: end.Range.End}, Children: children}
}

// ===== typedef / typeset / funcenum / functag =====
// These are parsed shallowly: a name plus whatever tokens follow up to the
// terminating ';' or balanced '{...}', since nothing downstream in this
// pipeline resolves into a function-signature type algebra.

func (p *parser) parseTypedefFamily(kind Kind) *Node {
	start := p.advance().Range.Start // keyword
	var nameNode *Node
	if p.peek().Kind == lexer.KindIdent {
		nt := p.advance()
		nameNode = &Node{Kind: KindIdentifier, Range: nt.Range, Text: nt.Text}
	}
	var children []*Node
	if nameNode != nil {
		children = append(children, nameNode)
	}
	if p.isPunct("{") {
		depth := 0
		for !p.atEOF() {
			if p.isPunct("{") {
				depth++
			}
			if p.isPunct("}") {
				depth--
				p.advance()
				if depth == 0 {
					break
				}
				continue
			}
			p.advance()
		}
	} else {
		p.skipToSemicolon()
	}
	end := p.peek().Range.Start
	if len(children) > 0 {
		end = children[len(children)-1].Range.End
	}
	return &Node{Kind: kind, Range: source.ByteRange{Start: start, End: end}, Children: children}
}

// ===== Statements =====

func (p *parser) parseBlock() *Node {
	open, _ := p.expectPunct("{")
	var stmts []*Node
	for !p.isPunct("}") && !p.atEOF() {
		stmts = append(stmts, p.parseStatement())
	}
	close, _ := p.expectPunct("}")
	return &Node{Kind: KindBlock, Range: source.ByteRange{Start: open.Range.Start, End: close.Range.End}, Children: stmts}
}

func (p *parser) parseStatement() *Node {
	switch {
	case p.isPunct("{"):
		return p.parseBlock()
	case p.isKeyword("if"):
		return p.parseIf()
	case p.isKeyword("for"):
		return p.parseFor()
	case p.isKeyword("while"):
		return p.parseWhile()
	case p.isKeyword("do"):
		return p.parseDoWhile()
	case p.isKeyword("switch"):
		return p.parseSwitch()
	case p.isKeyword("return"):
		return p.parseReturn()
	case p.isKeyword("break"):
		t := p.advance()
		p.consumeOptional(";")
		return &Node{Kind: KindBreakStatement, Range: t.Range}
	case p.isKeyword("continue"):
		t := p.advance()
		p.consumeOptional(";")
		return &Node{Kind: KindContinueStatement, Range: t.Range}
	case p.isKeyword("delete"):
		start := p.advance().Range.Start
		expr := p.parseExpression()
		end := expr.Range.End
		if p.isPunct(";") {
			end = p.advance().Range.End
		}
		return &Node{Kind: KindDeleteStatement, Range: source.ByteRange{Start: start, End: end}, Children: []*Node{expr}}
	case p.looksLikeDeclaration():
		return p.parseDeclOrFunction(true)
	default:
		start := p.peek().Range.Start
		expr := p.parseExpression()
		end := expr.Range.End
		if p.isPunct(";") {
			end = p.advance().Range.End
		}
		return &Node{Kind: KindExpressionStatement, Range: source.ByteRange{Start: start, End: end}, Children: []*Node{expr}}
	}
}

func (p *parser) consumeOptional(punct string) {
	if p.isPunct(punct) {
		p.advance()
	}
}

func (p *parser) looksLikeDeclaration() bool {
	save := p.pos
	defer func() { p.pos = save }()
	for {
		t := p.peek()
		if t.Kind == lexer.KindKeyword && modifierKeywords[t.Text] {
			p.advance()
			continue
		}
		break
	}
	return p.isTypeStart()
}

func (p *parser) parseIf() *Node {
	start := p.advance().Range.Start
	p.expectPunct("(")
	cond := p.parseExpression()
	p.expectPunct(")")
	then := p.parseStatement()
	children := []*Node{cond, then}
	end := then.Range.End
	if p.isKeyword("else") {
		p.advance()
		elseStmt := p.parseStatement()
		children = append(children, elseStmt)
		end = elseStmt.Range.End
	}
	return &Node{Kind: KindConditionStatement, Range: source.ByteRange{Start: start, End: end}, Children: children}
}

func (p *parser) parseFor() *Node {
	start := p.advance().Range.Start
	p.expectPunct("(")
	var children []*Node
	if !p.isPunct(";") {
		if p.looksLikeDeclaration() {
			children = append(children, p.parseDeclOrFunction(true))
		} else {
			children = append(children, p.parseExpression())
			p.consumeOptional(";")
		}
	} else {
		p.advance()
	}
	if !p.isPunct(";") {
		children = append(children, p.parseExpression())
	}
	p.consumeOptional(";")
	if !p.isPunct(")") {
		children = append(children, p.parseExpression())
	}
	p.expectPunct(")")
	body := p.parseStatement()
	children = append(children, body)
	return &Node{Kind: KindForStatement, Range: source.ByteRange{Start: start, End: body.Range.End}, Children: children}
}

func (p *parser) parseWhile() *Node {
	start := p.advance().Range.Start
	p.expectPunct("(")
	cond := p.parseExpression()
	p.expectPunct(")")
	body := p.parseStatement()
	return &Node{Kind: KindWhileStatement, Range: source.ByteRange{Start: start, End: body.Range.End}, Children: []*Node{cond, body}}
}

func (p *parser) parseDoWhile() *Node {
	start := p.advance().Range.Start
	body := p.parseStatement()
	end := body.Range.End
	if p.isKeyword("while") {
		p.advance()
		p.expectPunct("(")
		cond := p.parseExpression()
		closeParen, _ := p.expectPunct(")")
		end = closeParen.Range.End
		if p.isPunct(";") {
			end = p.advance().Range.End
		}
		return &Node{Kind: KindDoWhileStatement, Range: source.ByteRange{Start: start, End: end}, Children: []*Node{body, cond}}
	}
	return &Node{Kind: KindDoWhileStatement, Range: source.ByteRange{Start: start, End: end}, Children: []*Node{body}}
}

func (p *parser) parseSwitch() *Node {
	start := p.advance().Range.Start
	p.expectPunct("(")
	subject := p.parseExpression()
	p.expectPunct(")")
	children := []*Node{subject}
	if _, ok := p.expectPunct("{"); ok {
		for !p.isPunct("}") && !p.atEOF() {
			children = append(children, p.parseSwitchCase())
		}
		p.expectPunct("}")
	}
	end := p.peek().Range.Start
	if len(children) > 0 {
		end = children[len(children)-1].Range.End
	}
	return &Node{Kind: KindSwitchStatement, Range: source.ByteRange{Start: start, End: end}, Children: children}
}

func (p *parser) parseSwitchCase() *Node {
	start := p.peek().Range.Start
	var labels []*Node
	if p.isKeyword("case") {
		p.advance()
		labels = append(labels, p.parseExpression())
		for p.isPunct(",") {
			p.advance()
			labels = append(labels, p.parseExpression())
		}
		p.expectPunct(":")
	} else if p.isKeyword("default") {
		p.advance()
		p.expectPunct(":")
	}
	var body *Node
	if p.isPunct("{") {
		body = p.parseBlock()
	} else {
		body = p.parseStatement()
	}
	children := append(labels, body)
	return &Node{Kind: KindSwitchCase, Range: source.ByteRange{Start: start, End: body.Range.End}, Children: children}
}

func (p *parser) parseReturn() *Node {
	start := p.advance().Range.Start
	var children []*Node
	end := p.peek().Range.Start
	if !p.isPunct(";") {
		expr := p.parseExpression()
		children = append(children, expr)
		end = expr.Range.End
	}
	if p.isPunct(";") {
		end = p.advance().Range.End
	}
	return &Node{Kind: KindReturnStatement, Range: source.ByteRange{Start: start, End: end}, Children: children}
}

// ===== Expressions (precedence climbing) =====

var assignOps = map[string]bool{
	"=": true, "+=": true, "-=": true, "*=": true, "/=": true, "%=": true,
	"&=": true, "|=": true, "^=": true, "<<=": true, ">>=": true,
}

func (p *parser) parseExpression() *Node {
	return p.parseAssignment()
}

func (p *parser) parseAssignment() *Node {
	left := p.parseTernary()
	t := p.peek()
	if (t.Kind == lexer.KindOperator) && assignOps[t.Text] {
		p.advance()
		right := p.parseAssignment()
		return &Node{Kind: KindAssignmentExpression, Range: source.ByteRange{Start: left.Range.Start, End: right.Range.End}, Children: []*Node{left, right}, Text: t.Text}
	}
	return left
}

func (p *parser) parseTernary() *Node {
	cond := p.parseLogicalOr()
	if p.isPunct("?") {
		p.advance()
		then := p.parseExpression()
		p.expectPunct(":")
		els := p.parseExpression()
		return &Node{Kind: KindTernaryExpression, Range: source.ByteRange{Start: cond.Range.Start, End: els.Range.End}, Children: []*Node{cond, then, els}}
	}
	return cond
}

func (p *parser) binaryLevel(next func() *Node, ops map[string]bool) *Node {
	left := next()
	for {
		t := p.peek()
		if t.Kind != lexer.KindOperator || !ops[t.Text] {
			return left
		}
		p.advance()
		right := next()
		left = &Node{Kind: KindBinaryExpression, Range: source.ByteRange{Start: left.Range.Start, End: right.Range.End}, Children: []*Node{left, right}, Text: t.Text}
	}
}

func (p *parser) parseLogicalOr() *Node {
	return p.binaryLevel(p.parseLogicalAnd, map[string]bool{"||": true})
}
func (p *parser) parseLogicalAnd() *Node {
	return p.binaryLevel(p.parseBitOr, map[string]bool{"&&": true})
}
func (p *parser) parseBitOr() *Node { return p.binaryLevel(p.parseBitXor, map[string]bool{"|": true}) }
func (p *parser) parseBitXor() *Node {
	return p.binaryLevel(p.parseBitAnd, map[string]bool{"^": true})
}
func (p *parser) parseBitAnd() *Node {
	return p.binaryLevel(p.parseEquality, map[string]bool{"&": true})
}
func (p *parser) parseEquality() *Node {
	return p.binaryLevel(p.parseRelational, map[string]bool{"==": true, "!=": true})
}
func (p *parser) parseRelational() *Node {
	return p.binaryLevel(p.parseShift, map[string]bool{"<": true, "<=": true, ">": true, ">=": true})
}
func (p *parser) parseShift() *Node {
	return p.binaryLevel(p.parseAdditive, map[string]bool{"<<": true, ">>": true, ">>>": true})
}
func (p *parser) parseAdditive() *Node {
	return p.binaryLevel(p.parseMultiplicative, map[string]bool{"+": true, "-": true})
}
func (p *parser) parseMultiplicative() *Node {
	return p.binaryLevel(p.parseUnary, map[string]bool{"*": true, "/": true, "%": true})
}

var unaryOps = map[string]bool{"!": true, "~": true, "-": true, "+": true}

func (p *parser) parseUnary() *Node {
	t := p.peek()
	if t.Kind == lexer.KindOperator && unaryOps[t.Text] {
		p.advance()
		operand := p.parseUnary()
		return &Node{Kind: KindUnaryExpression, Range: source.ByteRange{Start: t.Range.Start, End: operand.Range.End}, Children: []*Node{operand}, Text: t.Text}
	}
	if t.Kind == lexer.KindOperator && (t.Text == "++" || t.Text == "--") {
		p.advance()
		operand := p.parseUnary()
		return &Node{Kind: KindUpdateExpression, Range: source.ByteRange{Start: t.Range.Start, End: operand.Range.End}, Children: []*Node{operand}, Text: t.Text}
	}
	if p.isKeyword("sizeof") {
		p.advance()
		p.expectPunct("(")
		inner := p.parseExpression()
		end, _ := p.expectPunct(")")
		return &Node{Kind: KindSizeofExpression, Range: source.ByteRange{Start: t.Range.Start, End: end.Range.End}, Children: []*Node{inner}}
	}
	if p.isKeyword("view_as") {
		p.advance()
		p.expectPunct("<")
		var typeNode *Node
		if p.isTypeStart() || p.peek().Kind == lexer.KindIdent {
			typeNode = p.parseType()
		}
		p.expectPunct(">")
		p.expectPunct("(")
		inner := p.parseExpression()
		end, _ := p.expectPunct(")")
		children := []*Node{}
		if typeNode != nil {
			children = append(children, typeNode)
		}
		children = append(children, inner)
		return &Node{Kind: KindViewAs, Range: source.ByteRange{Start: t.Range.Start, End: end.Range.End}, Children: children}
	}
	if p.isKeyword("new") {
		p.advance()
		if p.peek().Kind == lexer.KindIdent {
			nt := p.advance()
			typeNode := &Node{Kind: KindIdentifier, Range: nt.Range, Text: nt.Text}
			args := p.parseCallArgumentsIfPresent()
			children := []*Node{typeNode}
			end := typeNode.Range.End
			if args != nil {
				children = append(children, args)
				end = args.Range.End
			}
			return &Node{Kind: KindNewExpression, Range: source.ByteRange{Start: t.Range.Start, End: end}, Children: children}
		}
	}
	return p.parsePostfix()
}

func (p *parser) parseCallArgumentsIfPresent() *Node {
	if !p.isPunct("(") {
		return nil
	}
	open := p.advance()
	var args []*Node
	for !p.isPunct(")") && !p.atEOF() {
		args = append(args, p.parseExpression())
		if p.isPunct(",") {
			p.advance()
			continue
		}
		break
	}
	close, _ := p.expectPunct(")")
	return &Node{Kind: KindCallArguments, Range: source.ByteRange{Start: open.Range.Start, End: close.Range.End}, Children: args}
}

func (p *parser) parsePostfix() *Node {
	n := p.parsePrimary()
	for {
		switch {
		case p.isPunct("."):
			p.advance()
			if p.peek().Kind != lexer.KindIdent {
				break
			}
			fieldTok := p.advance()
			field := &Node{Kind: KindIdentifier, Range: fieldTok.Range, Text: fieldTok.Text}
			n = &Node{Kind: KindFieldAccess, Range: source.ByteRange{Start: n.Range.Start, End: field.Range.End}, Children: []*Node{n, field}}
			continue
		case p.isPunct("::"):
			p.advance()
			if p.peek().Kind != lexer.KindIdent {
				break
			}
			memberTok := p.advance()
			member := &Node{Kind: KindIdentifier, Range: memberTok.Range, Text: memberTok.Text}
			n = &Node{Kind: KindScopeAccess, Range: source.ByteRange{Start: n.Range.Start, End: member.Range.End}, Children: []*Node{n, member}}
			continue
		case p.isPunct("["):
			p.advance()
			index := p.parseExpression()
			end, _ := p.expectPunct("]")
			n = &Node{Kind: KindArrayIndexedAccess, Range: source.ByteRange{Start: n.Range.Start, End: end.Range.End}, Children: []*Node{n, index}}
			continue
		case p.isPunct("("):
			args := p.parseCallArgumentsIfPresent()
			n = &Node{Kind: KindCallExpression, Range: source.ByteRange{Start: n.Range.Start, End: args.Range.End}, Children: []*Node{n, args}}
			continue
		case p.peek().Kind == lexer.KindOperator && (p.peek().Text == "++" || p.peek().Text == "--"):
			t := p.advance()
			n = &Node{Kind: KindUpdateExpression, Range: source.ByteRange{Start: n.Range.Start, End: t.Range.End}, Children: []*Node{n}, Text: t.Text}
			continue
		}
		break
	}
	return n
}

func (p *parser) parsePrimary() *Node {
	t := p.peek()
	switch {
	case p.isPunct("("):
		p.advance()
		inner := p.parseExpression()
		end, _ := p.expectPunct(")")
		return &Node{Kind: KindParenthesizedExpression, Range: source.ByteRange{Start: t.Range.Start, End: end.Range.End}, Children: []*Node{inner}}
	case p.isPunct("{"):
		return p.parseArrayLiteral()
	case t.Kind == lexer.KindIdent:
		p.advance()
		return &Node{Kind: KindIdentifier, Range: t.Range, Text: t.Text}
	case t.Kind == lexer.KindKeyword && t.Text == "this":
		p.advance()
		return &Node{Kind: KindThis, Range: t.Range}
	case t.Kind == lexer.KindKeyword && t.Text == "null":
		p.advance()
		return &Node{Kind: KindNull, Range: t.Range}
	case t.Kind == lexer.KindKeyword && (t.Text == "true" || t.Text == "false"):
		p.advance()
		return &Node{Kind: KindBoolLiteral, Range: t.Range, Text: t.Text}
	case t.Kind == lexer.KindIntLiteral || t.Kind == lexer.KindHexLiteral || t.Kind == lexer.KindOctalLiteral || t.Kind == lexer.KindBinLiteral:
		p.advance()
		return &Node{Kind: KindIntLiteral, Range: t.Range, Text: t.Text}
	case t.Kind == lexer.KindFloatLiteral:
		p.advance()
		return &Node{Kind: KindFloatLiteral, Range: t.Range, Text: t.Text}
	case t.Kind == lexer.KindCharLiteral:
		p.advance()
		return &Node{Kind: KindCharLiteral, Range: t.Range, Text: t.Text}
	case t.Kind == lexer.KindStringLiteral:
		p.advance()
		return &Node{Kind: KindStringLiteral, Range: t.Range, Text: t.Text}
	default:
		return p.errorNode()
	}
}

func (p *parser) parseArrayLiteral() *Node {
	open := p.advance()
	var elems []*Node
	for !p.isPunct("}") && !p.atEOF() {
		elems = append(elems, p.parseExpression())
		if p.isPunct(",") {
			p.advance()
			continue
		}
		break
	}
	close, _ := p.expectPunct("}")
	return &Node{Kind: KindArrayLiteral, Range: source.ByteRange{Start: open.Range.Start, End: close.Range.End}, Children: elems}
}
