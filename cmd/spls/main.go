// Command spls is a command-line front end over the semantics facade,
// standing in for the out-of-scope LSP transport during development: every
// subcommand loads a project from disk with internal/hostloader and
// internal/config, then drives internal/semantics directly and prints the
// result.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sourcepawn-tools/spls-core/internal/config"
	"github.com/sourcepawn-tools/spls-core/internal/diffpreview"
	"github.com/sourcepawn-tools/spls-core/internal/hostloader"
	"github.com/sourcepawn-tools/spls-core/internal/querydb"
	"github.com/sourcepawn-tools/spls-core/internal/semantics"
	"github.com/sourcepawn-tools/spls-core/internal/source"
	"github.com/sourcepawn-tools/spls-core/internal/vfs"
)

// rootFlags holds the persistent flags shared by every subcommand.
type rootFlags struct {
	root                string
	includesDirectories []string
	includeGlobs        []string
	excludeGlobs        []string
	noGitignore         bool
	amxxpawnMode        bool
	disableSyntaxLinter bool
}

// project is a loaded workspace: the loader (for path<->FileId and
// on-demand #include resolution) plus the facade built over its database.
type project struct {
	loader *hostloader.Loader
	db     *querydb.Database
	facade *semantics.Facade
}

func loadProject(f rootFlags) (*project, error) {
	root, err := filepath.Abs(f.root)
	if err != nil {
		return nil, fmt.Errorf("resolving root %s: %w", f.root, err)
	}

	amxxpawn := f.amxxpawnMode
	disableLinter := f.disableSyntaxLinter
	cfg, err := config.Load(root, config.Overrides{
		IncludesDirectories: f.includesDirectories,
		AmxxpawnMode:        &amxxpawn,
		DisableSyntaxLinter: &disableLinter,
	})
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	loader := hostloader.New(hostloader.Config{
		Root:                root,
		IncludesDirectories: cfg.IncludesDirectories,
		IncludeGlobs:        f.includeGlobs,
		ExcludeGlobs:        f.excludeGlobs,
		NoGitignore:         f.noGitignore,
	})
	db := querydb.New(loader)
	if err := loader.Load(db); err != nil {
		return nil, fmt.Errorf("loading project: %w", err)
	}

	return &project{loader: loader, db: db, facade: semantics.New(db)}, nil
}

// fileID resolves a path argument (relative to the project root, or
// absolute) to the FileId the loader assigned it.
func (p *project) fileID(root, path string) (vfs.FileId, error) {
	abs := path
	if !filepath.IsAbs(path) {
		abs = filepath.Join(root, path)
	}
	id, ok := p.loader.Interner().Lookup(filepath.ToSlash(abs))
	if !ok {
		return 0, fmt.Errorf("%s is not a known file of this project", path)
	}
	return id, nil
}

func parsePosition(lineStr, colStr string) (source.Position, error) {
	line, err := strconv.Atoi(lineStr)
	if err != nil {
		return source.Position{}, fmt.Errorf("invalid line %q: %w", lineStr, err)
	}
	col, err := strconv.Atoi(colStr)
	if err != nil {
		return source.Position{}, fmt.Errorf("invalid column %q: %w", colStr, err)
	}
	// CLI positions are 1-based for humans; source.Position is 0-based.
	return source.Position{Line: line - 1, Column: col - 1}, nil
}

func main() {
	var flags rootFlags

	rootCmd := &cobra.Command{
		Use:   "spls",
		Short: "SourcePawn semantic analysis CLI",
		Long:  "Drives the SourcePawn/AMXXPawn incremental semantic analysis pipeline directly, standing in for the LSP transport during development.",
	}
	rootCmd.PersistentFlags().StringVar(&flags.root, "root", ".", "Project root directory.")
	rootCmd.PersistentFlags().StringSliceVar(&flags.includesDirectories, "includes", nil, "Additional include search directories.")
	rootCmd.PersistentFlags().StringSliceVar(&flags.includeGlobs, "include", nil, "Include file patterns (glob).")
	rootCmd.PersistentFlags().StringSliceVar(&flags.excludeGlobs, "exclude", nil, "Exclude file patterns (glob).")
	rootCmd.PersistentFlags().BoolVar(&flags.noGitignore, "no-gitignore", false, "Disable .gitignore filtering during discovery.")
	rootCmd.PersistentFlags().BoolVar(&flags.amxxpawnMode, "amxxpawn", false, "Parse files under the AMXXPawn dialect.")
	rootCmd.PersistentFlags().BoolVar(&flags.disableSyntaxLinter, "no-syntax-linter", false, "Suppress syntax-error diagnostics.")

	rootCmd.AddCommand(
		newDiagnosticsCmd(&flags),
		newDefinitionCmd(&flags),
		newHoverCmd(&flags),
		newReferencesCmd(&flags),
		newRenameCmd(&flags),
		newSymbolsCmd(&flags),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newDiagnosticsCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "diagnostics [file]",
		Short: "Report diagnostics for one file, or every known file.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProject(*flags)
			if err != nil {
				return err
			}
			root, _ := filepath.Abs(flags.root)

			var files []vfs.FileId
			if len(args) == 1 {
				id, err := p.fileID(root, args[0])
				if err != nil {
					return err
				}
				files = []vfs.FileId{id}
			} else {
				for _, fi := range p.db.KnownFiles() {
					files = append(files, fi.Id)
				}
			}

			total := 0
			for _, id := range files {
				for _, d := range p.facade.Diagnostics(id) {
					fmt.Printf("%s:%d:%d: %s [%s] %s\n",
						p.loader.Interner().Path(id),
						d.Range.Start, d.Range.End, d.Severity, d.Code, d.Message)
					total++
				}
			}
			if total == 0 {
				fmt.Println("no diagnostics")
			}
			return nil
		},
	}
}

func newDefinitionCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "definition <file> <line> <col>",
		Short: "Show the definition a position resolves to.",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProject(*flags)
			if err != nil {
				return err
			}
			root, _ := filepath.Abs(flags.root)
			id, err := p.fileID(root, args[0])
			if err != nil {
				return err
			}
			pos, err := parsePosition(args[1], args[2])
			if err != nil {
				return err
			}

			def, ok := p.facade.Definition(id, pos)
			if !ok {
				fmt.Println("no definition found")
				return nil
			}
			fmt.Printf("%s (kind %d) at %s:[%d,%d)\n", def.Name, def.Kind,
				p.loader.Interner().Path(def.Def.File), def.Range.Start, def.Range.End)
			return nil
		},
	}
}

func newHoverCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "hover <file> <line> <col>",
		Short: "Show hover text for a position.",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProject(*flags)
			if err != nil {
				return err
			}
			root, _ := filepath.Abs(flags.root)
			id, err := p.fileID(root, args[0])
			if err != nil {
				return err
			}
			pos, err := parsePosition(args[1], args[2])
			if err != nil {
				return err
			}

			hover, ok := p.facade.Hover(id, pos)
			if !ok {
				fmt.Println("no hover information")
				return nil
			}
			fmt.Println(hover.Contents)
			return nil
		},
	}
}

func newReferencesCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "references <file> <line> <col>",
		Short: "List every reference to the definition at a position.",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProject(*flags)
			if err != nil {
				return err
			}
			root, _ := filepath.Abs(flags.root)
			id, err := p.fileID(root, args[0])
			if err != nil {
				return err
			}
			pos, err := parsePosition(args[1], args[2])
			if err != nil {
				return err
			}

			refs, ok := p.facade.References(id, pos)
			if !ok {
				fmt.Println("no definition found")
				return nil
			}
			for _, r := range refs {
				fmt.Printf("%s:[%d,%d)\n", p.loader.Interner().Path(r.File), r.Range.Start, r.Range.End)
			}
			return nil
		},
	}
}

func newRenameCmd(flags *rootFlags) *cobra.Command {
	var write bool

	cmd := &cobra.Command{
		Use:   "rename <file> <line> <col> <new-name>",
		Short: "Rename the definition at a position.",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProject(*flags)
			if err != nil {
				return err
			}
			root, _ := filepath.Abs(flags.root)
			id, err := p.fileID(root, args[0])
			if err != nil {
				return err
			}
			pos, err := parsePosition(args[1], args[2])
			if err != nil {
				return err
			}
			newName := args[3]

			edit, err := p.facade.Rename(id, pos, newName)
			if err != nil {
				return err
			}

			for file, edits := range edit {
				path := p.loader.Interner().Path(file)
				text, ok := p.db.FileText(file)
				if !ok {
					continue
				}
				previewEdits := make([]diffpreview.Edit, len(edits))
				for i, e := range edits {
					previewEdits[i] = diffpreview.Edit{Range: e.Range, NewText: e.NewText}
				}

				if !write {
					out, err := diffpreview.Render(text, previewEdits, path)
					if err != nil {
						return fmt.Errorf("rendering diff for %s: %w", path, err)
					}
					fmt.Print(out)
					continue
				}

				applied, err := diffpreview.Apply(text, previewEdits)
				if err != nil {
					return fmt.Errorf("applying edit to %s: %w", path, err)
				}
				if err := os.WriteFile(path, []byte(applied), 0o644); err != nil {
					return fmt.Errorf("writing %s: %w", path, err)
				}
				fmt.Printf("renamed in %s\n", path)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&write, "write", false, "Write the rename to disk instead of printing a unified diff preview.")
	return cmd
}

func newSymbolsCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "symbols <file>",
		Short: "List the top-level symbols declared in a file.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProject(*flags)
			if err != nil {
				return err
			}
			root, _ := filepath.Abs(flags.root)
			id, err := p.fileID(root, args[0])
			if err != nil {
				return err
			}

			printSymbols(p.facade.DocumentSymbols(id), 0)
			return nil
		},
	}
}

func printSymbols(symbols []semantics.DocumentSymbol, depth int) {
	indent := ""
	for i := 0; i < depth; i++ {
		indent += "  "
	}
	for _, s := range symbols {
		fmt.Printf("%s%s (kind %d) [%d,%d)\n", indent, s.Name, s.Kind, s.Range.Start, s.Range.End)
		printSymbols(s.Children, depth+1)
	}
}
