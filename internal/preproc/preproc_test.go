package preproc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sourcepawn-tools/spls-core/internal/vfs"
)

// memResolver is a fixed-table IncludeResolver for tests: paths map directly
// to file contents, with no directory semantics.
type memResolver struct {
	interner *vfs.Interner
	files    map[string]string // path -> text
}

func newMemResolver(files map[string]string) *memResolver {
	r := &memResolver{interner: vfs.NewInterner(), files: files}
	return r
}

func (r *memResolver) Resolve(_ vfs.FileId, path string, _ bool) (vfs.FileId, bool) {
	if _, ok := r.files[path]; !ok {
		return vfs.FileId(0), false
	}
	return r.interner.Intern(path), true
}

func (r *memResolver) FileText(id vfs.FileId) (string, bool) {
	path := r.interner.Path(id)
	text, ok := r.files[path]
	return text, ok
}

func runText(t *testing.T, text string, files map[string]string) *PreprocessedFile {
	t.Helper()
	r := newMemResolver(files)
	main := r.interner.Intern("main.sp")
	return Run(main, text, r)
}

func TestObjectLikeMacroExpansion(t *testing.T) {
	out := runText(t, "#define FOO 42\nint x = FOO;\n", nil)
	assert.Contains(t, out.Text, "int x = 42;")
	assert.Empty(t, out.Diagnostics)
}

func TestFunctionLikeMacroExpansion(t *testing.T) {
	out := runText(t, "#define ADD(a, b) ((a) + (b))\nint x = ADD(1, 2);\n", nil)
	assert.Contains(t, out.Text, "((1) + (2))")
}

func TestFunctionLikeMacroNameWithoutCallLeftAlone(t *testing.T) {
	out := runText(t, "#define ADD(a, b) ((a) + (b))\nFunc fn = ADD;\n", nil)
	assert.Contains(t, out.Text, "Func fn = ADD;")
}

func TestNestedMacroExpansion(t *testing.T) {
	out := runText(t, "#define A 1\n#define B (A+A)\nint x = B;\n", nil)
	assert.Contains(t, out.Text, "(1+1)")
}

func TestRecursiveMacroDepthLimit(t *testing.T) {
	// Each level references the next, none ever bottoms out: should produce a
	// recursive-define diagnostic rather than hang or overflow.
	out := runText(t, "#define A B\n#define B A\nint x = A;\n", nil)
	found := false
	for _, d := range out.Diagnostics {
		if d.Code == CodeRecursiveDefine {
			found = true
		}
	}
	assert.True(t, found)
}

func TestUndefRemovesMacro(t *testing.T) {
	out := runText(t, "#define FOO 1\n#undef FOO\nint x = FOO;\n", nil)
	assert.Contains(t, out.Text, "int x = FOO;")
}

func TestRedefinitionWarns(t *testing.T) {
	out := runText(t, "#define FOO 1\n#define FOO 2\n", nil)
	require.Len(t, out.Diagnostics, 1)
	assert.Equal(t, CodeRedefinition, out.Diagnostics[0].Code)
	assert.Equal(t, SeverityWarning, out.Diagnostics[0].Severity)
}

func TestIfTrueBranchTaken(t *testing.T) {
	out := runText(t, "#if 1\nint a;\n#else\nint b;\n#endif\n", nil)
	assert.Contains(t, out.Text, "int a;")
	assert.NotContains(t, out.Text, "int b;")
}

func TestIfFalseElseBranchTaken(t *testing.T) {
	out := runText(t, "#if 0\nint a;\n#else\nint b;\n#endif\n", nil)
	assert.NotContains(t, out.Text, "int a;")
	assert.Contains(t, out.Text, "int b;")
}

func TestElseifChainOnlyFirstTrueBranchActive(t *testing.T) {
	out := runText(t, "#if 0\nint a;\n#elseif 1\nint b;\n#elseif 1\nint c;\n#else\nint d;\n#endif\n", nil)
	assert.NotContains(t, out.Text, "int a;")
	assert.Contains(t, out.Text, "int b;")
	assert.NotContains(t, out.Text, "int c;")
	assert.NotContains(t, out.Text, "int d;")
}

func TestDefinedPredicate(t *testing.T) {
	out := runText(t, "#define FOO\n#if defined(FOO)\nint a;\n#else\nint b;\n#endif\n", nil)
	assert.Contains(t, out.Text, "int a;")
	assert.NotContains(t, out.Text, "int b;")
}

func TestDefinedPredicateFalseWhenUndefined(t *testing.T) {
	out := runText(t, "#if defined(NOPE)\nint a;\n#else\nint b;\n#endif\n", nil)
	assert.NotContains(t, out.Text, "int a;")
	assert.Contains(t, out.Text, "int b;")
}

func TestConditionArithmeticAndComparison(t *testing.T) {
	out := runText(t, "#define VERSION 3\n#if VERSION >= 2 && VERSION < 10\nint a;\n#endif\n", nil)
	assert.Contains(t, out.Text, "int a;")
}

func TestConditionBitwiseAndUnary(t *testing.T) {
	out := runText(t, "#if !(0) && (1 | 0) == 1\nint a;\n#endif\n", nil)
	assert.Contains(t, out.Text, "int a;")
}

func TestNestedIfInsideInactiveBranchStillBalances(t *testing.T) {
	out := runText(t, "#if 0\n#if 1\nint a;\n#endif\nint b;\n#endif\nint c;\n", nil)
	assert.NotContains(t, out.Text, "int a;")
	assert.NotContains(t, out.Text, "int b;")
	assert.Contains(t, out.Text, "int c;")
	assert.Empty(t, out.Diagnostics)
}

func TestUnterminatedIfReportsDiagnostic(t *testing.T) {
	out := runText(t, "#if 1\nint a;\n", nil)
	require.Len(t, out.Diagnostics, 1)
	assert.Equal(t, CodeUnterminatedIf, out.Diagnostics[0].Code)
}

func TestStrayElseifReportsDiagnostic(t *testing.T) {
	out := runText(t, "#elseif 1\nint a;\n", nil)
	require.Len(t, out.Diagnostics, 1)
	assert.Equal(t, CodeUnexpectedElse, out.Diagnostics[0].Code)
}

func TestIncludeQuotedResolvesAndMergesMacros(t *testing.T) {
	files := map[string]string{
		"util.inc": "#define UTIL_VERSION 5\n",
	}
	out := runText(t, `#include "util.inc"`+"\nint x = UTIL_VERSION;\n", files)
	assert.Contains(t, out.Text, "int x = 5;")
	require.Len(t, out.Includes, 1)
	assert.Equal(t, IncludeUser, out.Includes[0].Kind)
}

func TestIncludeChevronResolvesAsSystem(t *testing.T) {
	files := map[string]string{
		"sourcemod": "#define SOURCEMOD 1\n",
	}
	out := runText(t, "#include <sourcemod>\n", files)
	require.Len(t, out.Includes, 1)
	assert.Equal(t, IncludeSystem, out.Includes[0].Kind)
}

func TestUnresolvedIncludeIsRecorded(t *testing.T) {
	out := runText(t, `#include "missing.inc"`+"\n", nil)
	require.Len(t, out.UnresolvedIncludes, 1)
	assert.Equal(t, "missing.inc", out.UnresolvedIncludes[0].Path)
}

func TestTryincludeSuppressesUnresolvedDiagnostic(t *testing.T) {
	out := runText(t, `#tryinclude "missing.inc"`+"\n", nil)
	assert.Empty(t, out.UnresolvedIncludes)
}

func TestIncludeCycleIsDetected(t *testing.T) {
	files := map[string]string{
		"a.inc": `#include "b.inc"` + "\n",
		"b.inc": `#include "a.inc"` + "\n",
	}
	out := runText(t, `#include "a.inc"`+"\n", files)
	found := false
	for _, d := range out.Diagnostics {
		if d.Code == CodeIncludeCycle {
			found = true
		}
	}
	assert.True(t, found)
}

func TestEndinputStopsProcessing(t *testing.T) {
	out := runText(t, "int a;\n#endinput\nint b;\n", nil)
	assert.Contains(t, out.Text, "int a;")
	assert.NotContains(t, out.Text, "int b;")
}

// TestOffsetMapRoundTripsIdentityText checks that untouched source text
// translates back to itself byte-for-byte through the offset map.
func TestOffsetMapRoundTripsIdentityText(t *testing.T) {
	src := "int x = 1;\n"
	out := runText(t, src, nil)
	require.Equal(t, src, out.Text)
	rng, synthesized, ok := out.Offsets.Translate(4)
	require.True(t, ok)
	assert.False(t, synthesized)
	assert.Equal(t, 4, rng.Start)
}

// TestOffsetMapMapsExpansionToInvocationSite is scenario S3 from spec.md §8:
// a position inside macro-expanded text must map back to the macro's call
// site, not its definition.
func TestOffsetMapMapsExpansionToInvocationSite(t *testing.T) {
	src := "#define FOO 42\nint x = FOO;\n"
	out := runText(t, src, nil)

	expandedAt := indexOf(out.Text, "42")
	require.GreaterOrEqual(t, expandedAt, 0)

	rng, synthesized, ok := out.Offsets.Translate(expandedAt)
	require.True(t, ok)
	assert.True(t, synthesized)

	invocationAt := indexOf(src, "FOO;")
	assert.Equal(t, invocationAt, rng.Start)
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}
