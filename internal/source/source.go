// Package source holds the raw, host-supplied facts the rest of the
// pipeline treats as inputs: file text, source roots, and the positions and
// ranges every derived component addresses text with.
package source

import (
	"path/filepath"
	"strings"

	"github.com/sourcepawn-tools/spls-core/internal/vfs"
)

// Position is a zero-based line/column pair, matching the convention used
// throughout the spec for offsets and ranges (so the eventual LSP wrapper
// can hand these straight to a client with no further translation).
type Position struct {
	Line   int
	Column int
}

// Range is a half-open [Start, End) span of Positions.
type Range struct {
	Start Position
	End   Position
}

// Contains reports whether p falls within r.
func (r Range) Contains(p Position) bool {
	if p.Line < r.Start.Line || p.Line > r.End.Line {
		return false
	}
	if p.Line == r.Start.Line && p.Column < r.Start.Column {
		return false
	}
	if p.Line == r.End.Line && p.Column >= r.End.Column {
		return false
	}
	return true
}

// ByteRange is a half-open [Start, End) span of byte offsets into some text.
type ByteRange struct {
	Start int
	End   int
}

// Len returns the number of bytes the range spans.
func (r ByteRange) Len() int { return r.End - r.Start }

// SourceRootId identifies one SourceRoot among the ordered search list.
type SourceRootId uint32

// SourceRoot is a directory scope holding a set of FileIds, with a method to
// resolve a path relative to the root to a contained FileId. Multiple source
// roots form an ordered search list (spec.md §3).
type SourceRoot struct {
	ID      SourceRootId
	Path    string // absolute, OS-native directory path this root is rooted at
	members map[string]vfs.FileId
}

// NewSourceRoot creates an empty SourceRoot rooted at path.
func NewSourceRoot(id SourceRootId, path string) *SourceRoot {
	return &SourceRoot{ID: id, Path: path, members: make(map[string]vfs.FileId)}
}

// Add registers a file as a member of this root, addressed by its path
// relative to the root (always slash-separated, regardless of host OS).
func (sr *SourceRoot) Add(relPath string, id vfs.FileId) {
	sr.members[normalizeRel(relPath)] = id
}

// Resolve looks up a FileId by a path relative to this root.
func (sr *SourceRoot) Resolve(relPath string) (vfs.FileId, bool) {
	id, ok := sr.members[normalizeRel(relPath)]
	return id, ok
}

// Members returns every FileId contained in this root.
func (sr *SourceRoot) Members() []vfs.FileId {
	out := make([]vfs.FileId, 0, len(sr.members))
	for _, id := range sr.members {
		out = append(out, id)
	}
	return out
}

func normalizeRel(p string) string {
	return filepath.ToSlash(filepath.Clean(p))
}

// RelativeTo returns path expressed relative to this root's directory, in
// slash-separated form, or false if path does not live under the root.
func (sr *SourceRoot) RelativeTo(absPath string) (string, bool) {
	rel, err := filepath.Rel(sr.Path, absPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// OffsetToPosition converts a byte offset into text to a line/column
// Position. Used to translate the byte-range based offset map the
// preprocessor builds into the line/column positions IDE features and tests
// work with.
func OffsetToPosition(text string, offset int) Position {
	if offset > len(text) {
		offset = len(text)
	}
	line, col := 0, 0
	for i := 0; i < offset; i++ {
		if text[i] == '\n' {
			line++
			col = 0
		} else {
			col++
		}
	}
	return Position{Line: line, Column: col}
}

// PositionToOffset converts a line/column Position back to a byte offset
// into text. Returns len(text) if the position is past the end.
func PositionToOffset(text string, pos Position) int {
	line, col := 0, 0
	for i := 0; i < len(text); i++ {
		if line == pos.Line && col == pos.Column {
			return i
		}
		if text[i] == '\n' {
			line++
			col = 0
		} else {
			col++
		}
	}
	return len(text)
}
