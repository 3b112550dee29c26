package source

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sourcepawn-tools/spls-core/internal/vfs"
)

func TestRangeContains(t *testing.T) {
	r := Range{Start: Position{Line: 1, Column: 2}, End: Position{Line: 1, Column: 8}}
	assert.True(t, r.Contains(Position{Line: 1, Column: 2}))
	assert.True(t, r.Contains(Position{Line: 1, Column: 7}))
	assert.False(t, r.Contains(Position{Line: 1, Column: 8}))
	assert.False(t, r.Contains(Position{Line: 0, Column: 5}))
}

func TestSourceRootAddResolve(t *testing.T) {
	sr := NewSourceRoot(1, "/proj")
	sr.Add("util.inc", vfs.FileId(2))
	sr.Add("./nested/a.sp", vfs.FileId(3))

	id, ok := sr.Resolve("util.inc")
	assert.True(t, ok)
	assert.Equal(t, vfs.FileId(2), id)

	id, ok = sr.Resolve("nested/a.sp")
	assert.True(t, ok)
	assert.Equal(t, vfs.FileId(3), id)

	_, ok = sr.Resolve("missing.inc")
	assert.False(t, ok)

	assert.ElementsMatch(t, []vfs.FileId{2, 3}, sr.Members())
}

func TestSourceRootRelativeTo(t *testing.T) {
	sr := NewSourceRoot(1, "/proj")
	rel, ok := sr.RelativeTo("/proj/nested/a.sp")
	assert.True(t, ok)
	assert.Equal(t, "nested/a.sp", rel)

	_, ok = sr.RelativeTo("/other/a.sp")
	assert.False(t, ok)
}
