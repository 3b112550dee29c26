// Package preproc implements the preprocessor: macro expansion, #if
// evaluation, and #include resolution, producing preprocessed text plus a
// position map back to the original source (spec.md §4.1).
package preproc

import (
	"github.com/sourcepawn-tools/spls-core/internal/lexer"
	"github.com/sourcepawn-tools/spls-core/internal/source"
	"github.com/sourcepawn-tools/spls-core/internal/vfs"
)

// Macro is a #define'd symbol: either object-like (Params == nil) or
// function-like (Params holds the parameter names, possibly empty for a
// zero-arg function-like macro).
type Macro struct {
	Name     string
	Params   []string // nil for object-like macros
	Body     []lexer.Token
	DefFile  vfs.FileId
	DefRange source.ByteRange
}

// IsFunctionLike reports whether m takes a parenthesized argument list.
func (m *Macro) IsFunctionLike() bool { return m.Params != nil }

// IncludeKind distinguishes the two #include spellings.
type IncludeKind int

const (
	IncludeSystem IncludeKind = iota // #include <path>
	IncludeUser                      // #include "path"
)

// Include is a successfully resolved #include/#tryinclude directive.
type Include struct {
	Target vfs.FileId
	Kind   IncludeKind
	Range  source.ByteRange
}

// UnresolvedInclude is an #include/#tryinclude directive whose target could
// not be found.
type UnresolvedInclude struct {
	Path  string
	Kind  IncludeKind
	Range source.ByteRange
}

// Severity levels for Diagnostic.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityInfo
)

// DiagnosticCode enumerates the preprocessor error kinds named in spec.md §7.
type DiagnosticCode string

const (
	CodeUnterminatedIf      DiagnosticCode = "unterminated_if"
	CodeUnexpectedElse      DiagnosticCode = "unexpected_else"
	CodeUnknownDirective    DiagnosticCode = "unknown_directive"
	CodeIncludeCycle        DiagnosticCode = "include_cycle"
	CodeMalformedExpression DiagnosticCode = "malformed_expression"
	CodeRecursiveDefine     DiagnosticCode = "recursive_define"
	CodeRedefinition        DiagnosticCode = "redefinition"
)

// Diagnostic is a non-fatal problem recorded during preprocessing.
type Diagnostic struct {
	Severity Severity
	Code     DiagnosticCode
	Message  string
	Range    source.ByteRange
}

// spanKind distinguishes the two offset-map entry shapes spec.md §3
// describes: an identity run copied straight from the original text, and a
// synthesized run produced by macro expansion (which maps back to the
// invocation site, not the definition).
type spanKind int

const (
	spanIdentity spanKind = iota
	spanSynthesized
)

// offsetSpan covers a contiguous half-open byte range [PPStart, PPEnd) of
// preprocessed text.
type offsetSpan struct {
	ppStart, ppEnd int
	kind           spanKind
	origStart      int // identity: original offset = origStart + (ppOffset - ppStart)
	origRange      source.ByteRange // synthesized: fixed invocation-site range
}

// OffsetMap translates preprocessed-text byte offsets back to the original
// source. It is the Go shape of spec.md §3's PreprocessedFile.offsets field.
type OffsetMap struct {
	spans []offsetSpan
}

// Translate maps a byte offset in the preprocessed text back to a range in
// the original source. synthesized is true when ppOffset fell inside
// macro-expanded text, in which case the returned range is the macro's
// invocation site rather than a precise original position.
func (m *OffsetMap) Translate(ppOffset int) (rng source.ByteRange, synthesized bool, ok bool) {
	// Spans are appended in increasing ppStart order; a linear scan from the
	// end favors the common case of translating recently-emitted positions.
	for i := len(m.spans) - 1; i >= 0; i-- {
		sp := m.spans[i]
		if ppOffset >= sp.ppStart && ppOffset < sp.ppEnd {
			if sp.kind == spanSynthesized {
				return sp.origRange, true, true
			}
			delta := ppOffset - sp.ppStart
			return source.ByteRange{Start: sp.origStart + delta, End: sp.origStart + delta}, false, true
		}
	}
	return source.ByteRange{}, false, false
}

func (m *OffsetMap) appendIdentity(ppStart, length, origStart int) {
	if length <= 0 {
		return
	}
	m.spans = append(m.spans, offsetSpan{
		ppStart: ppStart, ppEnd: ppStart + length,
		kind: spanIdentity, origStart: origStart,
	})
}

func (m *OffsetMap) appendSynthesized(ppStart, length int, origRange source.ByteRange) {
	if length <= 0 {
		return
	}
	m.spans = append(m.spans, offsetSpan{
		ppStart: ppStart, ppEnd: ppStart + length,
		kind: spanSynthesized, origRange: origRange,
	})
}

// PreprocessedFile is the output of preprocessing one file (spec.md §3).
type PreprocessedFile struct {
	Text               string
	Offsets            *OffsetMap
	MacrosIntroduced   map[string]*Macro
	EvaluatedSymbols   []lexer.Token
	Diagnostics        []Diagnostic
	Includes           []Include
	UnresolvedIncludes []UnresolvedInclude
}
