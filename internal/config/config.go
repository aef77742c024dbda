package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration. AssetPath and GeneratedPath are
// relative to SiteDir.
type Paths struct {
	SiteDir       string `toml:"site_dir" yaml:"site_dir"`
	AssetPath     string `toml:"asset_path" yaml:"asset_path"`
	GeneratedPath string `toml:"generated_path" yaml:"generated_path"`
	StateDir      string `toml:"state_dir" yaml:"state_dir"`
	LogDir        string `toml:"log_dir" yaml:"log_dir"`
}

// Derive contains configuration for the derivation engine.
type Derive struct {
	Workers                 int   `toml:"workers" yaml:"workers"`
	JPEGQuality             int   `toml:"jpeg_quality" yaml:"jpeg_quality"`
	FingerprintCacheEntries int64 `toml:"fingerprint_cache_entries" yaml:"fingerprint_cache_entries"`
}

// Manifest controls the SQLite record of derived files.
type Manifest struct {
	Enabled bool `toml:"enabled" yaml:"enabled"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format" yaml:"format"`
	Level  string `toml:"level" yaml:"level"`
}

// Config encapsulates all configuration values for picture.
//
// Configuration sections:
//   - Paths: site, asset, generated, state, and log directories
//   - Markup: picturefill or picture
//   - Presets: named source sets with densities and attributes
//   - Derive: worker count, encoder quality, fingerprint memo size
//   - Manifest: derived file bookkeeping
//   - Logging: log format and level
type Config struct {
	Paths    Paths              `toml:"paths" yaml:"paths"`
	Markup   string             `toml:"markup" yaml:"markup"`
	Presets  map[string]*Preset `toml:"-" yaml:"-"`
	Derive   Derive             `toml:"derive" yaml:"derive"`
	Manifest Manifest           `toml:"manifest" yaml:"manifest"`
	Logging  Logging            `toml:"logging" yaml:"logging"`

	// origin is the directory of the loaded config file. A Jekyll config
	// resolves its site directory against it.
	origin string
	jekyll bool
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		data, err := os.ReadFile(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		if isYAML(resolvedPath) {
			err = decodeYAML(data, &cfg)
		} else {
			err = decodeTOML(data, &cfg)
		}
		if err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
		cfg.origin = filepath.Dir(resolvedPath)
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// Parse decodes, normalizes, and validates configuration text. Relative paths
// resolve against dir.
func Parse(data []byte, yamlFormat bool, dir string) (*Config, error) {
	cfg := Default()
	var err error
	if yamlFormat {
		err = decodeYAML(data, &cfg)
	} else {
		err = decodeTOML(data, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.origin = dir
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func decodeTOML(data []byte, cfg *Config) error {
	if err := toml.NewDecoder(bytes.NewReader(data)).Decode(cfg); err != nil {
		return err
	}
	var doc struct {
		Presets map[string]tomlPreset `toml:"presets"`
	}
	if err := toml.NewDecoder(bytes.NewReader(data)).Decode(&doc); err != nil {
		return err
	}
	if len(doc.Presets) > 0 {
		cfg.Presets = make(map[string]*Preset, len(doc.Presets))
		for name, raw := range doc.Presets {
			cfg.Presets[name] = raw.preset(name)
		}
	}
	return nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		return true
	}
	return false
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}
	candidates := []string{defaultPath}
	for _, name := range []string{projectConfigName, jekyllConfigName} {
		abs, err := filepath.Abs(name)
		if err != nil {
			return "", false, err
		}
		candidates = append(candidates, abs)
	}

	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true, nil
		}
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the state and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// ManifestPath returns the manifest database location.
func (c *Config) ManifestPath() string {
	return filepath.Join(c.Paths.StateDir, manifestFileName)
}

// LockDir returns the directory holding cross-process write locks.
func (c *Config) LockDir() string {
	return filepath.Join(c.Paths.StateDir, lockDirName)
}

// AssetDir returns the absolute source image directory.
func (c *Config) AssetDir() string {
	return filepath.Join(c.Paths.SiteDir, filepath.FromSlash(c.Paths.AssetPath))
}

// GeneratedDir returns the absolute derived image directory.
func (c *Config) GeneratedDir() string {
	return filepath.Join(c.Paths.SiteDir, filepath.FromSlash(c.Paths.GeneratedPath))
}

// Preset returns the named preset, or nil.
func (c *Config) Preset(name string) *Preset {
	if c == nil || c.Presets == nil {
		return nil
	}
	return c.Presets[name]
}

// PresetNames returns preset names in sorted order.
func (c *Config) PresetNames() []string {
	return sortedKeys(c.Presets)
}

// WorkerCount returns the derivation pool size.
func (c *Config) WorkerCount() int {
	if c.Derive.Workers > 0 {
		return c.Derive.Workers
	}
	return runtime.NumCPU()
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
