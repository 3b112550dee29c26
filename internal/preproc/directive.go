package preproc

import (
	"strings"

	"github.com/sourcepawn-tools/spls-core/internal/lexer"
	"github.com/sourcepawn-tools/spls-core/internal/source"
)

// handleDirective dispatches one preprocessor directive line. `line` is the
// directive's argument tokens (whitespace and comments already stripped);
// `parentActive` is whether the directive itself is reached under the
// current condition stack (an #if inside an inactive branch must still push
// a frame so #endif bookkeeping stays balanced, but the frame is forced
// inactive).
func (pp *preprocessor) handleDirective(directive lexer.Token, line []lexer.Token, stack *[]condFrame, parentActive bool) {
	name := strings.TrimPrefix(directive.Text, "#")
	name = strings.TrimSpace(name)

	switch name {
	case "define":
		pp.handleDefine(line, directive.Range)
	case "undef":
		if len(line) > 0 {
			delete(pp.macros, line[0].Text)
		}
	case "if":
		pp.pushIf(stack, line, parentActive)
	case "elseif":
		pp.elseIf(stack, line, directive.Range)
	case "else":
		pp.elseBranch(stack, directive.Range)
	case "endif":
		pp.endIf(stack, directive.Range)
	case "assert":
		if parentActive && !pp.evalCondition(line) {
			pp.diags = append(pp.diags, Diagnostic{
				Severity: SeverityError,
				Code:     CodeMalformedExpression,
				Message:  "#assert failed",
				Range:    directive.Range,
			})
		}
	case "include", "tryinclude":
		if parentActive {
			pp.handleInclude(line, directive.Range, name == "tryinclude")
		}
	case "endinput":
		if parentActive {
			pp.endInput = true
		}
	case "pragma":
		// accepted and ignored: nothing about the pragma is recorded or evaluated
	default:
		pp.diags = append(pp.diags, Diagnostic{
			Severity: SeverityWarning,
			Code:     CodeUnknownDirective,
			Message:  "unknown directive: #" + name,
			Range:    directive.Range,
		})
	}
}

func (pp *preprocessor) pushIf(stack *[]condFrame, line []lexer.Token, parentActive bool) {
	result := parentActive && pp.evalCondition(line)
	*stack = append(*stack, condFrame{active: result, anyTaken: result})
}

func (pp *preprocessor) elseIf(stack *[]condFrame, line []lexer.Token, at source.ByteRange) {
	if len(*stack) == 0 {
		pp.diags = append(pp.diags, Diagnostic{Severity: SeverityError, Code: CodeUnexpectedElse, Message: "#elseif without #if", Range: at})
		return
	}
	top := &(*stack)[len(*stack)-1]
	if top.sawElse {
		pp.diags = append(pp.diags, Diagnostic{Severity: SeverityError, Code: CodeUnexpectedElse, Message: "#elseif after #else", Range: at})
		return
	}
	parentActive := true
	for _, f := range (*stack)[:len(*stack)-1] {
		if !f.active {
			parentActive = false
			break
		}
	}
	if top.anyTaken {
		top.active = false
		return
	}
	top.active = parentActive && pp.evalCondition(line)
	if top.active {
		top.anyTaken = true
	}
}

func (pp *preprocessor) elseBranch(stack *[]condFrame, at source.ByteRange) {
	if len(*stack) == 0 {
		pp.diags = append(pp.diags, Diagnostic{Severity: SeverityError, Code: CodeUnexpectedElse, Message: "#else without #if", Range: at})
		return
	}
	top := &(*stack)[len(*stack)-1]
	if top.sawElse {
		pp.diags = append(pp.diags, Diagnostic{Severity: SeverityError, Code: CodeUnexpectedElse, Message: "duplicate #else", Range: at})
		return
	}
	top.sawElse = true
	parentActive := true
	for _, f := range (*stack)[:len(*stack)-1] {
		if !f.active {
			parentActive = false
			break
		}
	}
	top.active = parentActive && !top.anyTaken
}

func (pp *preprocessor) endIf(stack *[]condFrame, at source.ByteRange) {
	if len(*stack) == 0 {
		pp.diags = append(pp.diags, Diagnostic{Severity: SeverityError, Code: CodeUnexpectedElse, Message: "#endif without #if", Range: at})
		return
	}
	*stack = (*stack)[:len(*stack)-1]
}

func (pp *preprocessor) handleDefine(line []lexer.Token, at source.ByteRange) {
	if len(line) == 0 {
		return
	}
	name := line[0].Text
	rest := line[1:]

	var params []string
	if len(rest) > 0 && rest[0].Kind == lexer.KindPunct && rest[0].Text == "(" && rest[0].Range.Start == line[0].Range.End {
		// function-like: NAME(p1, p2) body, with '(' directly after NAME
		j := 1
		for j < len(rest) && !(rest[j].Kind == lexer.KindPunct && rest[j].Text == ")") {
			if rest[j].Kind == lexer.KindIdent {
				params = append(params, rest[j].Text)
			}
			j++
		}
		if j < len(rest) {
			j++ // consume ')'
		}
		rest = rest[j:]
		if params == nil {
			params = []string{} // zero-arg function-like macro, distinct from object-like (nil)
		}
	}

	if _, exists := pp.macros[name]; exists {
		pp.diags = append(pp.diags, Diagnostic{
			Severity: SeverityWarning,
			Code:     CodeRedefinition,
			Message:  "macro redefined: " + name,
			Range:    at,
		})
	}
	// Keep one space wherever the definition separated two body tokens, so
	// the expansion of e.g. `int a` does not run its tokens together.
	var body []lexer.Token
	for k, t := range rest {
		if k > 0 && t.Range.Start > rest[k-1].Range.End {
			body = append(body, lexer.Token{Kind: lexer.KindWhitespace, Text: " ", Range: source.ByteRange{Start: rest[k-1].Range.End, End: t.Range.Start}})
		}
		body = append(body, t)
	}

	pp.macros[name] = &Macro{
		Name:     name,
		Params:   params,
		Body:     body,
		DefFile:  pp.fileID,
		DefRange: line[0].Range,
	}
}

func (pp *preprocessor) handleInclude(line []lexer.Token, at source.ByteRange, isTry bool) {
	if len(line) == 0 {
		return
	}
	tok := line[0]
	var path string
	var quoted bool
	switch {
	case tok.Kind == lexer.KindStringLiteral:
		path = strings.Trim(tok.Text, `"`)
		quoted = true
	case tok.Kind == lexer.KindOperator && tok.Text == "<":
		var b strings.Builder
		for _, t := range line[1:] {
			if t.Kind == lexer.KindOperator && t.Text == ">" {
				break
			}
			b.WriteString(t.Text)
		}
		path = b.String()
		quoted = false
	default:
		return
	}

	kind := IncludeSystem
	if quoted {
		kind = IncludeUser
	}

	target, ok := pp.resolver.Resolve(pp.fileID, path, quoted)
	if !ok {
		if !isTry {
			pp.unresolved = append(pp.unresolved, UnresolvedInclude{Path: path, Kind: kind, Range: at})
		}
		return
	}

	if pp.visiting[target] {
		pp.diags = append(pp.diags, Diagnostic{
			Severity: SeverityError,
			Code:     CodeIncludeCycle,
			Message:  "include cycle involving " + path,
			Range:    at,
		})
		return
	}

	pp.includes = append(pp.includes, Include{Target: target, Kind: kind, Range: at})

	text, ok := pp.resolver.FileText(target)
	if !ok {
		return
	}
	pp.visiting[target] = true
	child := &preprocessor{
		fileID:   target,
		resolver: pp.resolver,
		macros:   make(map[string]*Macro),
		visiting: pp.visiting,
	}
	childResult := child.process(text)
	delete(pp.visiting, target)

	for name, m := range childResult.MacrosIntroduced {
		if _, exists := pp.macros[name]; !exists {
			pp.macros[name] = m
		}
	}
	pp.diags = append(pp.diags, childResult.Diagnostics...)
	pp.unresolved = append(pp.unresolved, childResult.UnresolvedIncludes...)
	pp.includes = append(pp.includes, childResult.Includes...)
}

// collectArguments performs balanced-parenthesis, comma-separated argument
// collection for a function-like macro invocation starting at toks[start],
// which must be the opening '('. Returns the argument token lists, the
// number of tokens consumed starting at `start` (inclusive of both parens),
// and whether toks[start] was in fact an opening paren.
func collectArguments(toks []lexer.Token, start int) (args [][]lexer.Token, consumed int, ok bool) {
	i := start
	for i < len(toks) && (toks[i].Kind == lexer.KindWhitespace || toks[i].Kind == lexer.KindComment) {
		i++
	}
	if i >= len(toks) || toks[i].Kind != lexer.KindPunct || toks[i].Text != "(" {
		return nil, 0, false
	}
	depth := 1
	i++
	var cur []lexer.Token
	for i < len(toks) && depth > 0 {
		t := toks[i]
		switch {
		case t.Kind == lexer.KindPunct && t.Text == "(":
			depth++
			cur = append(cur, t)
		case t.Kind == lexer.KindPunct && t.Text == ")":
			depth--
			if depth == 0 {
				args = append(args, trimArg(cur))
				i++
				return args, i - start, true
			}
			cur = append(cur, t)
		case t.Kind == lexer.KindPunct && t.Text == "," && depth == 1:
			args = append(args, trimArg(cur))
			cur = nil
		default:
			cur = append(cur, t)
		}
		i++
	}
	// unterminated argument list: treat what we have as consumed so the
	// caller can still make forward progress.
	if len(cur) > 0 {
		args = append(args, trimArg(cur))
	}
	return args, i - start, true
}

func trimArg(toks []lexer.Token) []lexer.Token {
	start, end := 0, len(toks)
	for start < end && (toks[start].Kind == lexer.KindWhitespace || toks[start].Kind == lexer.KindComment) {
		start++
	}
	for end > start && (toks[end-1].Kind == lexer.KindWhitespace || toks[end-1].Kind == lexer.KindComment) {
		end--
	}
	return toks[start:end]
}
