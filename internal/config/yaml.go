package config

import (
	"fmt"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"picture/internal/srcset"
)

// jekyllSite is the subset of a Jekyll _config.yml that picture reads.
type jekyllSite struct {
	Source  string         `yaml:"source"`
	Picture *jekyllPicture `yaml:"picture"`
}

// jekyllPicture is the picture block. Presets stay a raw node so source and
// attribute order survive decoding.
type jekyllPicture struct {
	Markup        string    `yaml:"markup"`
	AssetPath     string    `yaml:"asset_path"`
	GeneratedPath string    `yaml:"generated_path"`
	StateDir      string    `yaml:"state_dir"`
	LogDir        string    `yaml:"log_dir"`
	Derive        Derive    `yaml:"derive"`
	Manifest      Manifest  `yaml:"manifest"`
	Logging       Logging   `yaml:"logging"`
	Presets       yaml.Node `yaml:"presets"`
}

type jekyllSource struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Media  string `yaml:"media"`
}

func decodeYAML(data []byte, cfg *Config) error {
	// The block is pre-filled so keys absent from the file keep their defaults.
	block := &jekyllPicture{
		Markup:        cfg.Markup,
		AssetPath:     cfg.Paths.AssetPath,
		GeneratedPath: cfg.Paths.GeneratedPath,
		StateDir:      cfg.Paths.StateDir,
		LogDir:        cfg.Paths.LogDir,
		Derive:        cfg.Derive,
		Manifest:      cfg.Manifest,
		Logging:       cfg.Logging,
	}
	site := jekyllSite{Picture: block}
	if err := yaml.Unmarshal(data, &site); err != nil {
		return fmt.Errorf("picture: %w", err)
	}
	cfg.jekyll = true
	if site.Source != "" {
		cfg.Paths.SiteDir = site.Source
	}
	if site.Picture == nil {
		return nil
	}
	block = site.Picture

	cfg.Markup = block.Markup
	cfg.Paths.AssetPath = block.AssetPath
	cfg.Paths.GeneratedPath = block.GeneratedPath
	cfg.Paths.StateDir = block.StateDir
	cfg.Paths.LogDir = block.LogDir
	cfg.Derive = block.Derive
	cfg.Manifest = block.Manifest
	cfg.Logging = block.Logging

	presets, err := decodeYAMLPresets(&block.Presets)
	if err != nil {
		return err
	}
	if presets != nil {
		cfg.Presets = presets
	}
	return nil
}

func decodeYAMLPresets(node *yaml.Node) (map[string]*Preset, error) {
	if node.Kind == 0 {
		return nil, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("picture.presets: line %d: expected a mapping", node.Line)
	}
	out := make(map[string]*Preset, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		name := node.Content[i].Value
		preset, err := decodeYAMLPreset(name, node.Content[i+1])
		if err != nil {
			return nil, err
		}
		out[name] = preset
	}
	return out, nil
}

// decodeYAMLPreset reads one preset. Every key other than ppi and attr names
// a source, in document order.
func decodeYAMLPreset(name string, node *yaml.Node) (*Preset, error) {
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("picture.presets.%s: line %d: expected a mapping", name, node.Line)
	}
	p := &Preset{Name: name}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i].Value, node.Content[i+1]
		switch key {
		case "ppi":
			if err := value.Decode(&p.PPI); err != nil {
				return nil, fmt.Errorf("picture.presets.%s.ppi: %w", name, err)
			}
		case "attr":
			attrs, err := decodeYAMLAttrs(value)
			if err != nil {
				return nil, fmt.Errorf("picture.presets.%s.attr: %w", name, err)
			}
			p.Attrs = attrs
		default:
			var src jekyllSource
			if err := value.Decode(&src); err != nil {
				return nil, fmt.Errorf("picture.presets.%s.%s: %w", name, key, err)
			}
			p.Sources = append(p.Sources, srcset.Source{
				Key:    key,
				Width:  src.Width,
				Height: src.Height,
				Media:  src.Media,
			})
		}
	}
	return p, nil
}

func decodeYAMLAttrs(node *yaml.Node) ([]Attr, error) {
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: expected a mapping", node.Line)
	}
	attrs := make([]Attr, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		name, value := node.Content[i].Value, node.Content[i+1]
		if value.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("%s: line %d: expected a scalar", name, value.Line)
		}
		var raw any
		if err := value.Decode(&raw); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if n, ok := raw.(int); ok {
			raw = int64(n)
		}
		attrs = append(attrs, Attr{Name: name, Value: attrValue(raw)})
	}
	return attrs, nil
}

// siteDirFor resolves a Jekyll source directory against the config file.
func siteDirFor(origin, source string) string {
	if source == "" || filepath.IsAbs(source) || origin == "" {
		return source
	}
	return filepath.Join(origin, source)
}
