// Package hostloader is a concrete, swappable file-discovery collaborator:
// it walks a directory tree, classifies SourcePawn/AMXXPawn source files,
// and feeds them into a query database's input setters. It is not part of
// the core query graph — spec.md §1 names the abstract FileLoader an
// external collaborator, and this package is one implementation of that
// role, for use by cmd/spls and tests rather than by the core itself.
package hostloader

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	ignore "github.com/sabhiram/go-gitignore"

	"github.com/sourcepawn-tools/spls-core/internal/querydb"
	"github.com/sourcepawn-tools/spls-core/internal/source"
	"github.com/sourcepawn-tools/spls-core/internal/vfs"
)

// skipDirs names directories never descended into, regardless of gitignore
// state — mirroring the non-source directories a SourcePawn project never
// wants scanned for compilation units.
var skipDirs = []string{".git", ".svn", ".hg", "node_modules", ".spls"}

// Config controls directory discovery. IncludesDirectories is also the
// search list spec.md §6 uses for resolving chevron-form #include
// directives, so the Loader keeps a copy for Resolve.
type Config struct {
	Root                string
	IncludesDirectories []string
	IncludeGlobs        []string
	ExcludeGlobs        []string
	NoGitignore         bool
	MaxBytes            int64
}

// Loader discovers SourcePawn/AMXXPawn source files under a root directory
// and resolves #include directives against a configured search path. It
// implements querydb.IncludePathResolver, so a *Loader can be passed
// directly to querydb.New. Resolve is called from query evaluation, so a
// Loader that has been handed its database (via Load) can register files
// discovered only through #include on demand.
type Loader struct {
	cfg       Config
	interner  *vfs.Interner
	gitignore *ignore.GitIgnore

	db     *querydb.Database
	rootID source.SourceRootId
}

// New creates a Loader for cfg. If cfg.NoGitignore is false, it looks for a
// .gitignore in cfg.Root and loads it; a missing or unreadable .gitignore is
// not an error, matching the teacher's "silently fail" stance on an
// optional file.
func New(cfg Config) *Loader {
	l := &Loader{cfg: cfg, interner: vfs.NewInterner()}
	if !cfg.NoGitignore {
		l.loadGitignore()
	}
	return l
}

func (l *Loader) loadGitignore() {
	path := filepath.Join(l.cfg.Root, ".gitignore")
	if _, err := os.Stat(path); err != nil {
		return
	}
	gi, err := ignore.CompileIgnoreFile(path)
	if err != nil {
		return
	}
	l.gitignore = gi
}

// Interner returns the path interner the Loader assigns FileIds from. The
// host keeps this around to translate a FileId back to a path for
// diagnostics or LSP URIs.
func (l *Loader) Interner() *vfs.Interner {
	return l.interner
}

// Load walks cfg.Root, reads every matching file's text, and feeds the
// discovered set into db's inputs: set_file_text, set_known_files,
// set_source_root(s), and set_file_source_root for every discovered file.
func (l *Loader) Load(db *querydb.Database) error {
	l.db = db
	l.rootID = 1
	root := source.NewSourceRoot(l.rootID, l.cfg.Root)

	var known []querydb.FileInfo
	walkErr := filepath.WalkDir(l.cfg.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(l.cfg.Root, path)
		if relErr != nil {
			return nil
		}
		if d.IsDir() {
			if rel != "." && l.shouldSkipDir(rel) {
				return fs.SkipDir
			}
			return nil
		}
		if !l.shouldProcessFile(rel) {
			return nil
		}

		text, err := readSourceText(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}

		ext := vfs.ExtensionFromPath(path)
		id := l.interner.Intern(filepath.ToSlash(path))
		db.SetFileText(id, text)
		known = append(known, querydb.FileInfo{Id: id, Ext: ext})
		root.Add(rel, id)

		return nil
	})
	if walkErr != nil {
		return fmt.Errorf("walking %s: %w", l.cfg.Root, walkErr)
	}

	db.SetKnownFiles(known)
	db.SetSourceRoot(root)
	for _, fi := range known {
		db.SetFileSourceRoot(fi.Id, root.ID)
	}
	return nil
}

func (l *Loader) shouldSkipDir(rel string) bool {
	base := filepath.Base(rel)
	for _, skip := range skipDirs {
		if base == skip {
			return true
		}
	}
	if strings.HasPrefix(base, ".") {
		return true
	}
	if l.gitignore != nil && l.gitignore.MatchesPath(filepath.ToSlash(rel)) {
		return true
	}
	return false
}

func (l *Loader) shouldProcessFile(rel string) bool {
	ext := vfs.ExtensionFromPath(rel)
	if ext == vfs.ExtUnknown {
		return false
	}

	slashRel := filepath.ToSlash(rel)
	if l.gitignore != nil && l.gitignore.MatchesPath(slashRel) {
		return false
	}

	if len(l.cfg.IncludeGlobs) > 0 {
		matched := false
		for _, pattern := range l.cfg.IncludeGlobs {
			if ok, _ := doublestar.Match(pattern, slashRel); ok {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	for _, pattern := range l.cfg.ExcludeGlobs {
		if ok, _ := doublestar.Match(pattern, slashRel); ok {
			return false
		}
	}

	if l.cfg.MaxBytes > 0 {
		if info, err := os.Stat(filepath.Join(l.cfg.Root, rel)); err == nil && info.Size() > l.cfg.MaxBytes {
			return false
		}
	}

	return true
}

// readSourceText reads path and strips a leading UTF-8 BOM, per spec.md §6's
// file-format note.
func readSourceText(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	const bom = "\xef\xbb\xbf"
	s := string(raw)
	return strings.TrimPrefix(s, bom), nil
}

// Resolve implements querydb.IncludePathResolver, following spec.md §6's
// include search algorithm: quoted form probes the including file's own
// directory (and its "include" subdirectory) before falling back to the
// configured search list; chevron form only probes the configured search
// list. A path with no extension is tried with ".inc" and ".sp" appended,
// mirroring the original implementation's include-extension inference.
func (l *Loader) Resolve(fromFile vfs.FileId, path string, quoted bool) (vfs.FileId, bool) {
	var dirs []string
	if quoted {
		fromPath := l.interner.Path(fromFile)
		fromDir := filepath.Dir(fromPath)
		dirs = append(dirs, fromDir, filepath.Join(fromDir, "include"))
	}
	dirs = append(dirs, l.cfg.IncludesDirectories...)

	candidates := candidateNames(path)
	for _, dir := range dirs {
		for _, name := range candidates {
			full := filepath.Join(dir, name)
			if info, err := os.Stat(full); err == nil && !info.IsDir() {
				return l.loadOnDemand(full)
			}
		}
	}
	return 0, false
}

// candidateNames returns the filenames to probe for an #include path: the
// path as written if it has an extension of its own; otherwise the path with
// ".inc" appended, then with ".sp" appended, then the path as written.
func candidateNames(path string) []string {
	if vfs.ExtensionFromPath(path) != vfs.ExtUnknown {
		return []string{path}
	}
	return []string{path + ".inc", path + ".sp", path}
}

// loadOnDemand interns and, if not already read, loads the text of a file
// discovered only via #include resolution rather than the initial
// directory walk (for example a shared include living outside the project
// root but inside a configured includes_directories entry), registering it
// with the database's inputs so later queries see it as an ordinary known
// file.
func (l *Loader) loadOnDemand(full string) (vfs.FileId, bool) {
	slashFull := filepath.ToSlash(full)
	if id, existing := l.interner.Lookup(slashFull); existing {
		return id, true
	}
	text, err := readSourceText(full)
	if err != nil {
		return 0, false
	}
	id := l.interner.Intern(slashFull)
	if l.db == nil {
		return id, true
	}
	l.db.SetFileText(id, text)
	l.db.SetKnownFiles(append(l.db.KnownFiles(), querydb.FileInfo{Id: id, Ext: vfs.ExtensionFromPath(full)}))
	if rel, ok := relativeTo(l.cfg.Root, full); ok {
		if root, ok := l.db.SourceRoot(l.rootID); ok {
			root.Add(rel, id)
		}
	}
	l.db.SetFileSourceRoot(id, l.rootID)
	return id, true
}

func relativeTo(root, full string) (string, bool) {
	rel, err := filepath.Rel(root, full)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return rel, true
}
