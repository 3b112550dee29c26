// Package vfs provides the path interner: a stable bijection between
// document URIs and compact FileIds, plus the file-extension vocabulary the
// rest of the pipeline keys off of.
package vfs

import (
	"fmt"
	"strings"
	"sync"
)

// FileId is an opaque handle to a file, stable for the lifetime of a
// session. The zero value is never a valid FileId.
type FileId uint32

// FileExtension distinguishes the two dialects this pipeline understands.
// ".sma" files are always SourcePawn source under the AMXXPawn dialect; the
// dialect itself is a config.Config concern, not an extension concern, since
// ".inc" files are shared between both.
type FileExtension int

const (
	ExtUnknown FileExtension = iota
	ExtSp                   // .sp
	ExtSma                  // .sma
	ExtInc                  // .inc
)

func (e FileExtension) String() string {
	switch e {
	case ExtSp:
		return "sp"
	case ExtSma:
		return "sma"
	case ExtInc:
		return "inc"
	default:
		return "unknown"
	}
}

// ExtensionFromPath classifies a path by its suffix. Matching is
// case-insensitive, matching the host filesystems this pipeline is most
// often run against.
func ExtensionFromPath(path string) FileExtension {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".sp"):
		return ExtSp
	case strings.HasSuffix(lower, ".sma"):
		return ExtSma
	case strings.HasSuffix(lower, ".inc"):
		return ExtInc
	default:
		return ExtUnknown
	}
}

// Interner is an append-only, concurrently-readable bijection between URIs
// (or any string path form the host chooses) and FileIds. Append-only is
// load-bearing: spec.md §5 requires FileIds to stay stable for the session,
// and a concurrent reader must never observe a FileId being reused.
type Interner struct {
	mu        sync.RWMutex
	byPath    map[string]FileId
	pathsByID []string // index i holds the path for FileId(i+1)
}

// NewInterner creates an empty interner.
func NewInterner() *Interner {
	return &Interner{
		byPath: make(map[string]FileId),
	}
}

// Intern returns the FileId for path, allocating a new one if path has never
// been seen before. Safe for concurrent use.
func (in *Interner) Intern(path string) FileId {
	in.mu.RLock()
	if id, ok := in.byPath[path]; ok {
		in.mu.RUnlock()
		return id
	}
	in.mu.RUnlock()

	in.mu.Lock()
	defer in.mu.Unlock()
	if id, ok := in.byPath[path]; ok {
		return id
	}
	in.pathsByID = append(in.pathsByID, path)
	id := FileId(len(in.pathsByID))
	in.byPath[path] = id
	return id
}

// Lookup returns the FileId already assigned to path, if any.
func (in *Interner) Lookup(path string) (FileId, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	id, ok := in.byPath[path]
	return id, ok
}

// Path returns the path a FileId was interned from. Panics on an unknown
// FileId: that can only happen from a caller holding a stale or fabricated
// FileId, never from input data, so per spec.md §7 it is a fatal internal
// invariant violation rather than a recoverable error.
func (in *Interner) Path(id FileId) string {
	in.mu.RLock()
	defer in.mu.RUnlock()
	idx := int(id) - 1
	if idx < 0 || idx >= len(in.pathsByID) {
		panic(fmt.Sprintf("spcore: invariant violation: unknown FileId %d", id))
	}
	return in.pathsByID[idx]
}

// Len returns the number of interned paths.
func (in *Interner) Len() int {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return len(in.pathsByID)
}
