// Package diffpreview renders a set of text edits against a file's
// original text as a unified diff, for CLI display and golden-file
// testing (SPEC_FULL.md §4.12). It is the rendering half of rename
// preview: the semantics facade computes *where* to edit, this package
// shows *what would change*.
package diffpreview

import (
	"fmt"
	"sort"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/sourcepawn-tools/spls-core/internal/source"
)

// Edit is one text replacement, byte-range addressed into the file's
// current text.
type Edit struct {
	Range   source.ByteRange
	NewText string
}

// Apply returns orig with every edit applied. Edits must not overlap;
// overlapping edits are rejected rather than silently producing a
// corrupted result.
func Apply(orig string, edits []Edit) (string, error) {
	sorted := append([]Edit(nil), edits...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Range.Start < sorted[j].Range.Start })

	for i := 1; i < len(sorted); i++ {
		if sorted[i].Range.Start < sorted[i-1].Range.End {
			return "", fmt.Errorf("diffpreview: overlapping edits at byte %d", sorted[i].Range.Start)
		}
	}

	var out []byte
	cursor := 0
	for _, e := range sorted {
		if e.Range.Start < cursor || e.Range.End > len(orig) {
			return "", fmt.Errorf("diffpreview: edit range [%d,%d) out of bounds", e.Range.Start, e.Range.End)
		}
		out = append(out, orig[cursor:e.Range.Start]...)
		out = append(out, e.NewText...)
		cursor = e.Range.End
	}
	out = append(out, orig[cursor:]...)
	return string(out), nil
}

// Render applies edits to orig and returns the unified diff between the
// two, the same way the teacher's own UnifiedDiff helper renders a
// preview: three lines of context, filename repeated with a "(modified)"
// suffix on the new side.
func Render(orig string, edits []Edit, filename string) (string, error) {
	modified, err := Apply(orig, edits)
	if err != nil {
		return "", err
	}
	d := difflib.UnifiedDiff{
		A:        difflib.SplitLines(orig),
		B:        difflib.SplitLines(modified),
		FromFile: filename,
		ToFile:   filename + " (modified)",
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(d)
	if err != nil {
		return "", fmt.Errorf("diffpreview: %w", err)
	}
	return text, nil
}
