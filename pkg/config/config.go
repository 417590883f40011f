// Package config handles loading and saving gitgraph configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config:  ~/.config/gg/config.yaml
//   - State:   ~/.local/state/gg/ (view-state snapshot, review database)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Repository is a registered repository in the config.
type Repository struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

// OnLoadConfig controls the default branch selection applied when a
// repository's info loads and no branches are selected yet.
type OnLoadConfig struct {
	ShowCheckedOutBranch bool     `yaml:"show_checked_out_branch"`
	ShowSpecificBranches []string `yaml:"show_specific_branches,omitempty"`
}

// UIConfig holds UI preference defaults. Per-repository overrides live in
// the persisted repository set, not here.
type UIConfig struct {
	MaxCommits         int          `yaml:"max_commits,omitempty"`
	ShowTags           bool         `yaml:"show_tags"`
	ShowRemoteBranches bool         `yaml:"show_remote_branches"`
	ShowStashes        bool         `yaml:"show_stashes"`
	IncludeReflog      bool         `yaml:"include_reflog,omitempty"`
	FirstParentOnly    bool         `yaml:"first_parent_only,omitempty"`
	Ordering           string       `yaml:"ordering,omitempty"` // date, author-date, topo
	FetchAvatars       bool         `yaml:"fetch_avatars,omitempty"`
	OnLoad             OnLoadConfig `yaml:"on_load"`
}

// AIConfig controls the commit analysis service.
type AIConfig struct {
	Enabled bool `yaml:"enabled,omitempty"`
}

// Config is the top-level configuration for gitgraph.
type Config struct {
	Repositories []Repository `yaml:"repositories,omitempty"`
	UI           UIConfig     `yaml:"ui"`
	AI           AIConfig     `yaml:"ai,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		UI: UIConfig{
			MaxCommits:         300,
			ShowTags:           true,
			ShowRemoteBranches: true,
			ShowStashes:        true,
			Ordering:           "date",
			OnLoad: OnLoadConfig{
				ShowCheckedOutBranch: true,
			},
		},
	}
}

// ConfigDir returns the XDG config directory for gitgraph.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "gg")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "gg")
}

// StateDir returns the XDG state directory for gitgraph.
func StateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "gg")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "state", "gg")
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Load reads the config file from the XDG config directory.
// Returns DefaultConfig if the file doesn't exist.
func Load() (Config, error) {
	path := ConfigPath()
	if path == "" {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads config from a specific path.
// Returns DefaultConfig if the file doesn't exist.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.UI.MaxCommits <= 0 {
		cfg.UI.MaxCommits = 300
	}

	for i := range cfg.Repositories {
		cfg.Repositories[i].Path = expandHome(cfg.Repositories[i].Path)
	}

	return cfg, nil
}

// Save writes the config to the XDG config directory.
func Save(cfg Config) error {
	path := ConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the config to a specific path.
func SaveTo(cfg Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// FindRepository returns the registered repository with the given name or
// path, or nil.
func (c Config) FindRepository(nameOrPath string) *Repository {
	for i := range c.Repositories {
		if strings.EqualFold(c.Repositories[i].Name, nameOrPath) || c.Repositories[i].Path == nameOrPath {
			return &c.Repositories[i]
		}
	}
	return nil
}

// RepositoryPaths returns the configured repository paths in sort order.
func (c Config) RepositoryPaths() []string {
	paths := make([]string, 0, len(c.Repositories))
	for _, r := range c.Repositories {
		paths = append(paths, r.Path)
	}
	return paths
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}
