package testsupport

import (
	"path/filepath"
	"testing"

	"picture/internal/config"
	"picture/internal/srcset"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config rooted in a unique temp site directory. The
// asset path is "assets", a single "default" preset is defined, and the
// manifest is disabled unless WithManifest is given.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.SiteDir = filepath.Join(base, "site")
	cfgVal.Paths.AssetPath = "assets"
	cfgVal.Paths.GeneratedPath = "assets/generated"
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Derive.Workers = 4
	cfgVal.Manifest.Enabled = false
	cfgVal.Presets = map[string]*config.Preset{
		config.DefaultPresetName: {
			Name: config.DefaultPresetName,
			Sources: []srcset.Source{
				{Key: "source_medium", Width: 400, Media: "(min-width: 40em)"},
				{Key: "source_default", Width: 200},
			},
		},
	}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return builder.cfg
}

// WithMarkup selects the markup style.
func WithMarkup(markup string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Markup = markup
	}
}

// WithPreset adds or replaces a preset.
func WithPreset(p *config.Preset) ConfigOption {
	return func(b *configBuilder) {
		if b.cfg.Presets == nil {
			b.cfg.Presets = map[string]*config.Preset{}
		}
		b.cfg.Presets[p.Name] = p
	}
}

// WithManifest enables the manifest database under the state directory.
func WithManifest() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Manifest.Enabled = true
	}
}

// AssetPath returns the absolute location of a source image.
func AssetPath(cfg *config.Config, rel string) string {
	return filepath.Join(cfg.AssetDir(), filepath.FromSlash(rel))
}
