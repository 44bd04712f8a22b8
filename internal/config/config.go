// Package config loads .planloom.yaml from a project directory.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/joshharrison/planloom/internal/parser"
)

const (
	// FileName is the project config file, looked up in the project dir.
	FileName = ".planloom.yaml"

	DefaultPlanFile = "PLAN.md"
	DefaultStateDir = ".planloom"
)

const defaultConfigYAML = `# planloom project configuration
version: 1

# Plan document to parse, relative to this file.
plan_file: PLAN.md

# Where completion progress is stored.
state_dir: .planloom

# Optional text/template for per-task agent briefs.
# prompt_template: .planloom/brief.tmpl

claude:
  # Model used by "planloom infer-deps". Empty means the built-in default.
  model: ""

log:
  level: warn   # debug, info, warn, error
  format: text  # text or json

# Override parts of the plan grammar. Omitted keys keep the defaults.
# grammar:
#   id_pattern: 'STORY-\d+'
#   headings:
#     - '^#{1,6}\s+(?P<id>{{id}})\s*[:\-]\s*(?P<title>.*)$'
#   dependency_labels: [Dependencies, Blocked by]
#   estimate_labels: [Estimated Time, Size]
#   none_values: [None, N/A]
`

// ClaudeConfig configures dependency inference.
type ClaudeConfig struct {
	Model string `yaml:"model"`
}

// LogConfig configures the CLI logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config models .planloom.yaml.
type Config struct {
	Version        int            `yaml:"version"`
	PlanFile       string         `yaml:"plan_file"`
	StateDir       string         `yaml:"state_dir"`
	PromptTemplate string         `yaml:"prompt_template,omitempty"`
	Claude         ClaudeConfig   `yaml:"claude"`
	Log            LogConfig      `yaml:"log"`
	Grammar        parser.Grammar `yaml:"grammar,omitempty"`

	// Dir is the directory the config was loaded from. Relative paths
	// resolve against it.
	Dir string `yaml:"-"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Version:  1,
		PlanFile: DefaultPlanFile,
		StateDir: DefaultStateDir,
		Log:      LogConfig{Level: "warn", Format: "text"},
	}
}

// Path returns the config file location inside dir.
func Path(dir string) string {
	return filepath.Join(dir, FileName)
}

// Load reads dir/.planloom.yaml. A missing file yields defaults.
func Load(dir string) (*Config, error) {
	cfg := Default()
	cfg.Dir = dir

	path := Path(dir)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = 1
	}
	c.PlanFile = strings.TrimSpace(c.PlanFile)
	if c.PlanFile == "" {
		c.PlanFile = DefaultPlanFile
	}
	c.StateDir = strings.TrimSpace(c.StateDir)
	if c.StateDir == "" {
		c.StateDir = DefaultStateDir
	}
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	if c.Log.Level == "" {
		c.Log.Level = "warn"
	}
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

func (c *Config) validate() error {
	if c.Version != 1 {
		return fmt.Errorf("unsupported config version %d", c.Version)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	if err := c.ParserGrammar().Compile(); err != nil {
		return err
	}
	return nil
}

// ParserGrammar returns the default grammar with the configured overrides.
func (c *Config) ParserGrammar() parser.Grammar {
	return parser.DefaultGrammar().Merge(c.Grammar)
}

// Resolve makes a config-relative path absolute against Dir.
func (c *Config) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Dir, p)
}

// PlanPath returns the resolved plan file path.
func (c *Config) PlanPath() string {
	return c.Resolve(c.PlanFile)
}

// StatePath returns the resolved state directory.
func (c *Config) StatePath() string {
	return c.Resolve(c.StateDir)
}

// WriteDefault writes a commented config to dir. It refuses to overwrite an
// existing file.
func WriteDefault(dir string) (string, error) {
	path := Path(dir)
	if _, err := os.Stat(path); err == nil {
		return path, fmt.Errorf("config: %s already exists", path)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return path, fmt.Errorf("config: stat %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(defaultConfigYAML), 0644); err != nil {
		return path, fmt.Errorf("config: write %s: %w", path, err)
	}
	return path, nil
}
