package vfs

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInternerStableAcrossRepeatedCalls(t *testing.T) {
	in := NewInterner()
	id1 := in.Intern("main.sp")
	id2 := in.Intern("util.inc")
	id3 := in.Intern("main.sp")

	assert.Equal(t, id1, id3)
	assert.NotEqual(t, id1, id2)
	assert.Equal(t, "main.sp", in.Path(id1))
	assert.Equal(t, "util.inc", in.Path(id2))
}

func TestInternerLookupMissing(t *testing.T) {
	in := NewInterner()
	_, ok := in.Lookup("nope.sp")
	assert.False(t, ok)
}

func TestInternerPathPanicsOnUnknownID(t *testing.T) {
	in := NewInterner()
	assert.Panics(t, func() { in.Path(FileId(999)) })
}

func TestInternerConcurrentIntern(t *testing.T) {
	in := NewInterner()
	var wg sync.WaitGroup
	ids := make([]FileId, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i] = in.Intern("shared.sp")
		}(i)
	}
	wg.Wait()

	first := ids[0]
	for _, id := range ids {
		assert.Equal(t, first, id)
	}
	require.Equal(t, 1, in.Len())
}

func TestExtensionFromPath(t *testing.T) {
	cases := []struct {
		path string
		want FileExtension
	}{
		{"main.sp", ExtSp},
		{"plugin.sma", ExtSma},
		{"util.inc", ExtInc},
		{"README.md", ExtUnknown},
		{"Main.SP", ExtSp},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, ExtensionFromPath(c.path), c.path)
	}
}
