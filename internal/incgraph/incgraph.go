// Package incgraph builds the include graph: a directed graph whose edges
// are #include/#tryinclude directives between files (spec.md §4.4). Its
// scan is a cheap directive-only lexer pass, not a full preprocess — it
// intentionally walks directives found inside inactive `#if` branches too,
// so the graph answers "what could this file pull in" conservatively. The
// preprocessor's own #include handling (internal/preproc), which does
// respect the condition stack, remains the source of truth for what is
// actually compiled into a given build.
package incgraph

import (
	"strings"

	"github.com/sourcepawn-tools/spls-core/internal/lexer"
	"github.com/sourcepawn-tools/spls-core/internal/source"
	"github.com/sourcepawn-tools/spls-core/internal/vfs"
)

// Resolver resolves a raw #include/#tryinclude path to a FileId, the same
// contract the preprocessor's IncludeResolver uses.
type Resolver interface {
	Resolve(fromFile vfs.FileId, path string, quoted bool) (vfs.FileId, bool)
}

// Edge is one resolved #include/#tryinclude directive.
type Edge struct {
	Source vfs.FileId
	Target vfs.FileId
	Range  source.ByteRange
}

// Unresolved is an #include/#tryinclude directive whose target could not be
// resolved at scan time.
type Unresolved struct {
	Source vfs.FileId
	Path   string
	Range  source.ByteRange
}

// Graph is the complete include graph over a known set of files.
type Graph struct {
	edges      []Edge
	unresolved []Unresolved
	adjacency  map[vfs.FileId][]vfs.FileId // source -> targets
	reverse    map[vfs.FileId][]vfs.FileId // target -> sources
	nodes      map[vfs.FileId]bool
}

// ScanIncludes extracts every #include/#tryinclude directive from text
// using a bounded lexer pass over directive tokens — not a regex over the
// whole file, which would misfire inside block comments and string
// literals — and resolves each target via resolver. Directives inside
// inactive `#if` branches are included (Open Question (a): kept as the
// source's behavior).
func ScanIncludes(file vfs.FileId, text string, resolver Resolver) ([]Edge, []Unresolved) {
	toks := lexer.Tokenize([]byte(text))
	var edges []Edge
	var unresolved []Unresolved

	for i := 0; i < len(toks); i++ {
		t := toks[i]
		if t.Kind != lexer.KindDirective {
			continue
		}
		name := strings.TrimSpace(strings.TrimPrefix(t.Text, "#"))
		if name != "include" && name != "tryinclude" {
			continue
		}
		j := i + 1
		var line []lexer.Token
		for j < len(toks) && toks[j].Kind != lexer.KindNewline && toks[j].Kind != lexer.KindEOF {
			if toks[j].Kind != lexer.KindWhitespace && toks[j].Kind != lexer.KindComment {
				line = append(line, toks[j])
			}
			j++
		}
		i = j - 1

		path, quoted, ok := parseIncludeArg(line)
		if !ok {
			continue
		}
		target, resolved := resolver.Resolve(file, path, quoted)
		at := t.Range
		if len(line) > 0 {
			at = source.ByteRange{Start: t.Range.Start, End: line[len(line)-1].Range.End}
		}
		if resolved {
			edges = append(edges, Edge{Source: file, Target: target, Range: at})
		} else {
			unresolved = append(unresolved, Unresolved{Source: file, Path: path, Range: at})
		}
	}
	return edges, unresolved
}

func parseIncludeArg(line []lexer.Token) (path string, quoted bool, ok bool) {
	if len(line) == 0 {
		return "", false, false
	}
	tok := line[0]
	switch {
	case tok.Kind == lexer.KindStringLiteral:
		return strings.Trim(tok.Text, `"`), true, true
	case (tok.Kind == lexer.KindOperator || tok.Kind == lexer.KindPunct) && tok.Text == "<":
		var b strings.Builder
		for _, t := range line[1:] {
			if (t.Kind == lexer.KindOperator || t.Kind == lexer.KindPunct) && t.Text == ">" {
				break
			}
			b.WriteString(t.Text)
		}
		return b.String(), false, true
	default:
		return "", false, false
	}
}

// Build assembles a Graph from a flat edge/unresolved list, typically the
// concatenation of ScanIncludes over every known file.
func Build(allFiles []vfs.FileId, edges []Edge, unresolved []Unresolved) *Graph {
	g := &Graph{
		edges:      edges,
		unresolved: unresolved,
		adjacency:  make(map[vfs.FileId][]vfs.FileId),
		reverse:    make(map[vfs.FileId][]vfs.FileId),
		nodes:      make(map[vfs.FileId]bool),
	}
	for _, f := range allFiles {
		g.nodes[f] = true
	}
	for _, e := range edges {
		g.nodes[e.Source] = true
		g.nodes[e.Target] = true
		g.adjacency[e.Source] = append(g.adjacency[e.Source], e.Target)
		g.reverse[e.Target] = append(g.reverse[e.Target], e.Source)
	}
	return g
}

// Edges returns every resolved include edge.
func (g *Graph) Edges() []Edge { return g.edges }

// Unresolved returns every include that could not be resolved.
func (g *Graph) Unresolved() []Unresolved { return g.unresolved }

// HasEdge reports whether source directly includes target.
func (g *Graph) HasEdge(source, target vfs.FileId) bool {
	for _, t := range g.adjacency[source] {
		if t == target {
			return true
		}
	}
	return false
}

// Roots returns every file with in-degree 0 — typically the .sp/.sma entry
// files of a project, per spec.md §4.4.
func (g *Graph) Roots() []vfs.FileId {
	var roots []vfs.FileId
	for f := range g.nodes {
		if len(g.reverse[f]) == 0 {
			roots = append(roots, f)
		}
	}
	return roots
}

// ProjectSubgraph returns the weakly connected component containing f,
// intersected with the descendants of any root that has f as a descendant
// (spec.md §4.4): the set of files relevant to f within the project(s) that
// actually pull f in, rather than every file merely path-connected to it.
func (g *Graph) ProjectSubgraph(f vfs.FileId) []vfs.FileId {
	if !g.nodes[f] {
		return nil
	}
	wcc := g.weaklyConnected(f)

	relevant := map[vfs.FileId]bool{}
	for _, r := range g.Roots() {
		descendants := g.Reachable(r)
		isAncestorOfF := r == f
		for _, d := range descendants {
			if d == f {
				isAncestorOfF = true
			}
		}
		if !isAncestorOfF {
			continue
		}
		relevant[r] = true
		for _, d := range descendants {
			relevant[d] = true
		}
	}

	out := make([]vfs.FileId, 0, len(wcc))
	for _, n := range wcc {
		if relevant[n] {
			out = append(out, n)
		}
	}
	return out
}

// weaklyConnected returns every file reachable from f following edges in
// either direction.
func (g *Graph) weaklyConnected(f vfs.FileId) []vfs.FileId {
	seen := map[vfs.FileId]bool{f: true}
	queue := []vfs.FileId{f}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, n := range g.adjacency[cur] {
			if !seen[n] {
				seen[n] = true
				queue = append(queue, n)
			}
		}
		for _, n := range g.reverse[cur] {
			if !seen[n] {
				seen[n] = true
				queue = append(queue, n)
			}
		}
	}
	out := make([]vfs.FileId, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	return out
}

// Reachable returns every file reachable from f by following edges
// forward only (the directed descendant set, not the weakly connected
// component ProjectSubgraph computes). Used by invariant 5's "target ∈
// reachable(source)" check.
func (g *Graph) Reachable(f vfs.FileId) []vfs.FileId {
	seen := map[vfs.FileId]bool{}
	queue := []vfs.FileId{f}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, n := range g.adjacency[cur] {
			if !seen[n] {
				seen[n] = true
				queue = append(queue, n)
			}
		}
	}
	out := make([]vfs.FileId, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	return out
}
