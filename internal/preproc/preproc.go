package preproc

import (
	"strings"

	"github.com/sourcepawn-tools/spls-core/internal/lexer"
	"github.com/sourcepawn-tools/spls-core/internal/source"
	"github.com/sourcepawn-tools/spls-core/internal/vfs"
)

// maxExpansionDepth bounds macro expansion recursion, matching spec.md
// §4.1's "depth limit of 5 to break recursive defines" — applied uniformly
// to both #if-expression expansion and ordinary text expansion, since an
// unbounded recursive #define is exactly as fatal in either context.
const maxExpansionDepth = 5

// IncludeResolver resolves #include/#tryinclude directives to a FileId and
// supplies the text of an already-known file so its macros can be collected.
// This is the seam spec.md §4.1 describes: "the include resolver receives
// the path, a boolean quoted, and the including file's URI."
type IncludeResolver interface {
	Resolve(fromFile vfs.FileId, path string, quoted bool) (vfs.FileId, bool)
	FileText(id vfs.FileId) (string, bool)
}

type condFrame struct {
	// active is this branch's own condition result.
	active bool
	// anyTaken records whether some earlier sibling branch in this #if group
	// already evaluated true, so a later #elseif/#else knows to stay closed.
	anyTaken bool
	sawElse  bool
}

type preprocessor struct {
	fileID     vfs.FileId
	resolver   IncludeResolver
	macros     map[string]*Macro
	diags      []Diagnostic
	includes   []Include
	unresolved []UnresolvedInclude
	evaluated  []lexer.Token
	visiting   map[vfs.FileId]bool
	endInput   bool
}

// Run preprocesses text (the raw contents of fileID) and returns the
// preprocessed output plus everything spec.md §3's PreprocessedFile names.
func Run(fileID vfs.FileId, text string, resolver IncludeResolver) *PreprocessedFile {
	pp := &preprocessor{
		fileID:   fileID,
		resolver: resolver,
		macros:   make(map[string]*Macro),
		visiting: map[vfs.FileId]bool{fileID: true},
	}
	return pp.process(text)
}

func (pp *preprocessor) process(text string) *PreprocessedFile {
	toks := lexer.Tokenize([]byte(text))
	var out strings.Builder
	offsets := &OffsetMap{}
	var stack []condFrame

	activeNow := func() bool {
		for _, f := range stack {
			if !f.active {
				return false
			}
		}
		return true
	}

	emit := func(tok lexer.Token) {
		start := out.Len()
		out.WriteString(tok.Text)
		offsets.appendIdentity(start, len(tok.Text), tok.Range.Start)
	}

	i, n := 0, len(toks)
	for i < n {
		if pp.endInput {
			break
		}
		tok := toks[i]
		switch tok.Kind {
		case lexer.KindEOF:
			i++
			continue
		case lexer.KindDirective:
			j := i + 1
			var line []lexer.Token
			for j < n && toks[j].Kind != lexer.KindNewline && toks[j].Kind != lexer.KindEOF {
				if toks[j].Kind != lexer.KindWhitespace && toks[j].Kind != lexer.KindComment {
					line = append(line, toks[j])
				}
				j++
			}
			pp.handleDirective(tok, line, &stack, activeNow())
			i = j
			continue
		case lexer.KindNewline:
			if activeNow() {
				start := out.Len()
				out.WriteByte('\n')
				offsets.appendIdentity(start, 1, tok.Range.Start)
			}
			i++
			continue
		default:
			if !activeNow() {
				i++
				continue
			}
			if tok.Kind == lexer.KindWhitespace || tok.Kind == lexer.KindComment {
				emit(tok)
				i++
				continue
			}
			if tok.Kind == lexer.KindIdent {
				if macro, ok := pp.macros[tok.Text]; ok {
					consumed := pp.expandAt(&out, offsets, toks, i, macro, 0)
					if consumed > 0 {
						i += consumed
						continue
					}
				}
			}
			emit(tok)
			i++
		}
	}

	if len(stack) > 0 {
		pp.diags = append(pp.diags, Diagnostic{
			Severity: SeverityError,
			Code:     CodeUnterminatedIf,
			Message:  "unterminated #if",
		})
	}

	return &PreprocessedFile{
		Text:               out.String(),
		Offsets:            offsets,
		MacrosIntroduced:   pp.macros,
		EvaluatedSymbols:   pp.evaluated,
		Diagnostics:        pp.diags,
		Includes:           pp.includes,
		UnresolvedIncludes: pp.unresolved,
	}
}

// expandAt expands the macro invocation for an identifier token at toks[i],
// writing its fully-expanded, recursively-substituted result to out as
// synthesized text mapped back to the invocation site. Returns the number of
// source tokens consumed (the macro name, plus its argument list for
// function-like macros), or 0 if this wasn't actually a valid invocation
// (e.g. a function-like macro name not followed by '(').
func (pp *preprocessor) expandAt(
	out *strings.Builder, offsets *OffsetMap,
	toks []lexer.Token, i int, macro *Macro, depth int,
) int {
	if depth >= maxExpansionDepth {
		pp.diags = append(pp.diags, Diagnostic{
			Severity: SeverityError,
			Code:     CodeRecursiveDefine,
			Message:  "macro expansion exceeded depth limit: " + macro.Name,
			Range:    toks[i].Range,
		})
		return 0
	}

	invocationStart := toks[i].Range.Start
	invocationEnd := toks[i].Range.End
	consumed := 1
	var paramMap map[string][]lexer.Token

	if macro.IsFunctionLike() {
		args, argTokensConsumed, ok := collectArguments(toks, i+1)
		if !ok {
			return 0 // not actually invoked (no parens): leave identifier as a plain ident
		}
		consumed += argTokensConsumed
		invocationEnd = toks[i+argTokensConsumed].Range.End
		paramMap = make(map[string][]lexer.Token, len(macro.Params))
		for pi, pname := range macro.Params {
			if pi < len(args) {
				paramMap[pname] = args[pi]
			} else {
				paramMap[pname] = nil
			}
		}
	}

	expanded := pp.substituteAndExpand(macro.Body, paramMap, depth+1)
	invocationRange := source.ByteRange{Start: invocationStart, End: invocationEnd}

	// An object-like macro name can only survive expansion when the depth
	// limit cut a recursive chain short.
	for _, t := range expanded {
		if m, ok := pp.macros[t.Text]; ok && t.Kind == lexer.KindIdent && !m.IsFunctionLike() {
			pp.diags = append(pp.diags, Diagnostic{
				Severity: SeverityError,
				Code:     CodeRecursiveDefine,
				Message:  "macro expansion exceeded depth limit: " + macro.Name,
				Range:    toks[i].Range,
			})
			break
		}
	}

	for _, t := range expanded {
		if t.Kind == lexer.KindIdent || t.Kind == lexer.KindKeyword {
			pp.evaluated = append(pp.evaluated, t)
		}
		start := out.Len()
		out.WriteString(t.Text)
		offsets.appendSynthesized(start, len(t.Text), invocationRange)
	}
	return consumed
}

// substituteAndExpand replaces parameter references in body with their
// argument tokens and recursively expands any macro invocations that result,
// bounded by maxExpansionDepth.
func (pp *preprocessor) substituteAndExpand(body []lexer.Token, params map[string][]lexer.Token, depth int) []lexer.Token {
	var substituted []lexer.Token
	for _, t := range body {
		if t.Kind == lexer.KindIdent {
			if args, ok := params[t.Text]; ok {
				substituted = append(substituted, args...)
				continue
			}
		}
		substituted = append(substituted, t)
	}

	if depth >= maxExpansionDepth {
		return substituted
	}

	var out []lexer.Token
	for idx := 0; idx < len(substituted); idx++ {
		t := substituted[idx]
		if t.Kind != lexer.KindIdent {
			out = append(out, t)
			continue
		}
		macro, ok := pp.macros[t.Text]
		if !ok {
			out = append(out, t)
			continue
		}
		if macro.IsFunctionLike() {
			args, consumed, ok := collectArguments(substituted, idx+1)
			if !ok {
				out = append(out, t)
				continue
			}
			paramMap := make(map[string][]lexer.Token, len(macro.Params))
			for pi, pname := range macro.Params {
				if pi < len(args) {
					paramMap[pname] = args[pi]
				}
			}
			out = append(out, pp.substituteAndExpand(macro.Body, paramMap, depth+1)...)
			idx += consumed
			continue
		}
		out = append(out, pp.substituteAndExpand(macro.Body, nil, depth+1)...)
	}
	return out
}
