// Package config loads the Config spec.md §6 names: includes_directories,
// main_path, amxxpawn_mode, disable_syntax_linter, spcomp_path. Precedence,
// lowest to highest: built-in defaults, a .spls.yaml project file,
// environment variables (optionally overlaid from a .env file), then
// explicit CLI flag overrides.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the configuration surface spec.md §6 recognizes, field for
// field.
type Config struct {
	IncludesDirectories []string `yaml:"includes_directories"`
	MainPath            *string  `yaml:"main_path"`
	AmxxpawnMode        bool     `yaml:"amxxpawn_mode"`
	DisableSyntaxLinter bool     `yaml:"disable_syntax_linter"`
	SpcompPath          *string  `yaml:"spcomp_path"`
}

// Default returns the built-in defaults: no configured include directories,
// no main file pinned, SourcePawn (not AMXXPawn) dialect, the syntax linter
// enabled, and no spcomp binary configured.
func Default() Config {
	return Config{}
}

// Overrides carries explicit CLI flag values. A nil pointer field means
// "not passed on the command line" and leaves the lower-precedence value in
// place; a non-nil field always wins.
type Overrides struct {
	IncludesDirectories []string
	MainPath            *string
	AmxxpawnMode        *bool
	DisableSyntaxLinter *bool
	SpcompPath          *string
}

// Load resolves Config for a project rooted at root, applying the
// precedence documented on the package: defaults, .spls.yaml, environment
// (with an optional .env overlay), then overrides.
func Load(root string, overrides Overrides) (Config, error) {
	cfg := Default()

	if err := applyYAMLFile(&cfg, filepath.Join(root, ".spls.yaml")); err != nil {
		return Config{}, err
	}

	_ = godotenv.Load(filepath.Join(root, ".env"))
	applyEnv(&cfg)

	applyOverrides(&cfg, overrides)

	return cfg, nil
}

func applyYAMLFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var fileCfg Config
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return err
	}
	mergeInto(cfg, fileCfg)
	return nil
}

// mergeInto copies every field fileCfg sets over cfg's current value. It is
// additive rather than destructive: a .spls.yaml that omits a field leaves
// the existing default untouched.
func mergeInto(cfg *Config, fileCfg Config) {
	if len(fileCfg.IncludesDirectories) > 0 {
		cfg.IncludesDirectories = fileCfg.IncludesDirectories
	}
	if fileCfg.MainPath != nil {
		cfg.MainPath = fileCfg.MainPath
	}
	cfg.AmxxpawnMode = cfg.AmxxpawnMode || fileCfg.AmxxpawnMode
	cfg.DisableSyntaxLinter = cfg.DisableSyntaxLinter || fileCfg.DisableSyntaxLinter
	if fileCfg.SpcompPath != nil {
		cfg.SpcompPath = fileCfg.SpcompPath
	}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("SPLS_INCLUDES_DIRECTORIES"); v != "" {
		cfg.IncludesDirectories = strings.Split(v, string(os.PathListSeparator))
	}
	if v := os.Getenv("SPLS_MAIN_PATH"); v != "" {
		cfg.MainPath = &v
	}
	if v := os.Getenv("SPLS_AMXXPAWN_MODE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.AmxxpawnMode = b
		}
	}
	if v := os.Getenv("SPLS_DISABLE_SYNTAX_LINTER"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.DisableSyntaxLinter = b
		}
	}
	if v := os.Getenv("SPLS_SPCOMP_PATH"); v != "" {
		cfg.SpcompPath = &v
	}
}

func applyOverrides(cfg *Config, o Overrides) {
	if len(o.IncludesDirectories) > 0 {
		cfg.IncludesDirectories = o.IncludesDirectories
	}
	if o.MainPath != nil {
		cfg.MainPath = o.MainPath
	}
	if o.AmxxpawnMode != nil {
		cfg.AmxxpawnMode = *o.AmxxpawnMode
	}
	if o.DisableSyntaxLinter != nil {
		cfg.DisableSyntaxLinter = *o.DisableSyntaxLinter
	}
	if o.SpcompPath != nil {
		cfg.SpcompPath = o.SpcompPath
	}
}
