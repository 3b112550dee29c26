// Package diag implements the diagnostics and logging ambient stack: a
// per-file diagnostic accumulator and a small leveled logger used across
// the pipeline. It supplements the linter pass the original
// hollacs/sourcepawn-vscode implementation performs in src/linter.rs by
// invoking the external spcomp compiler — out of scope here (spec.md §1
// treats spcomp as an external collaborator) — with diagnostics gathered
// straight from this pipeline's own stages instead: preprocessing,
// syntax-error collection, and name resolution.
package diag

import (
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/sourcepawn-tools/spls-core/internal/source"
	"github.com/sourcepawn-tools/spls-core/internal/vfs"
)

// Severity mirrors preproc.Severity but is not coupled to it — diagnostics
// accumulated here also originate from the syntax and resolve packages,
// neither of which should import preproc just to share this enum.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityInfo
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	default:
		return "unknown"
	}
}

// Code is a short machine-readable diagnostic category, e.g.
// "unterminated_if" or "duplicate_declaration".
type Code string

// Diagnostic is one problem attached to a file, per SPEC_FULL.md §3.
type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	File     vfs.FileId
	Range    source.ByteRange
}

// Collector accumulates diagnostics across a file's pipeline stages.
type Collector struct {
	mu     sync.Mutex
	byFile map[vfs.FileId][]Diagnostic
}

// NewCollector returns an empty Collector.
func NewCollector() *Collector {
	return &Collector{byFile: make(map[vfs.FileId][]Diagnostic)}
}

// Add records one diagnostic.
func (c *Collector) Add(d Diagnostic) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byFile[d.File] = append(c.byFile[d.File], d)
}

// AddAll records every diagnostic in ds.
func (c *Collector) AddAll(ds []Diagnostic) {
	for _, d := range ds {
		c.Add(d)
	}
}

// For returns file's diagnostics, ordered by range start for stable
// output.
func (c *Collector) For(file vfs.FileId) []Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := append([]Diagnostic(nil), c.byFile[file]...)
	sort.Slice(out, func(i, j int) bool { return out[i].Range.Start < out[j].Range.Start })
	return out
}

// Clear drops every diagnostic recorded for file, for re-accumulation after
// a re-run of its pipeline stages.
func (c *Collector) Clear(file vfs.FileId) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.byFile, file)
}

// Level is a logger's verbosity threshold.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "?"
	}
}

// Logger is a minimal leveled logger, text output only — this pipeline has
// no metrics/observability concern, just structured diagnostic text
// (spec.md's non-goals exclude neither; SPEC_FULL.md §4.11 carries it as
// ambient stack regardless).
type Logger struct {
	mu    sync.Mutex
	out   io.Writer
	level Level
}

// NewLogger creates a Logger writing to out at the given minimum level. A
// nil out defaults to os.Stderr.
func NewLogger(out io.Writer, level Level) *Logger {
	if out == nil {
		out = os.Stderr
	}
	return &Logger{out: out, level: level}
}

func (l *Logger) log(level Level, format string, args ...any) {
	if level < l.level {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.out, "%s [%s] %s\n", time.Now().Format(time.RFC3339), level, fmt.Sprintf(format, args...))
}

func (l *Logger) Debug(format string, args ...any) { l.log(LevelDebug, format, args...) }
func (l *Logger) Info(format string, args ...any)  { l.log(LevelInfo, format, args...) }
func (l *Logger) Warn(format string, args ...any)  { l.log(LevelWarn, format, args...) }
func (l *Logger) Error(format string, args ...any) { l.log(LevelError, format, args...) }
