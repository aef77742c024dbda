package config

import (
	"fmt"
	"sort"
	"strconv"

	"picture/internal/srcset"
)

// DefaultPresetName is used when a directive names no preset.
const DefaultPresetName = "default"

// Attr is a preset-level HTML attribute. A nil Value is a bare attribute.
type Attr struct {
	Name  string  `json:"name"`
	Value *string `json:"value,omitempty"`
}

// Preset is a named, ordered source set plus its densities and default
// attributes. Presets loaded from configuration are shared; call Clone before
// modifying one.
type Preset struct {
	Name    string          `json:"name"`
	PPI     []float64       `json:"ppi,omitempty"`
	Attrs   []Attr          `json:"attrs,omitempty"`
	Sources []srcset.Source `json:"sources"`
}

// Clone returns a deep copy of the preset.
func (p *Preset) Clone() *Preset {
	if p == nil {
		return nil
	}
	out := &Preset{Name: p.Name}
	if p.PPI != nil {
		out.PPI = append([]float64(nil), p.PPI...)
	}
	if p.Attrs != nil {
		out.Attrs = make([]Attr, len(p.Attrs))
		for i, a := range p.Attrs {
			out.Attrs[i] = Attr{Name: a.Name}
			if a.Value != nil {
				v := *a.Value
				out.Attrs[i].Value = &v
			}
		}
	}
	out.Sources = append([]srcset.Source(nil), p.Sources...)
	return out
}

// SourceSet returns the preset sources as an independent set.
func (p *Preset) SourceSet() srcset.Set {
	return srcset.NewSet(p.Sources...)
}

// Densities returns the preset PPI list as densities.
func (p *Preset) Densities() []srcset.Density {
	if len(p.PPI) == 0 {
		return nil
	}
	out := make([]srcset.Density, len(p.PPI))
	for i, v := range p.PPI {
		out[i] = srcset.Density(v)
	}
	return out
}

// HasSource reports whether key names one of the preset sources.
func (p *Preset) HasSource(key string) bool {
	for _, src := range p.Sources {
		if src.Key == key {
			return true
		}
	}
	return false
}

func (p *Preset) validate() error {
	for _, v := range p.PPI {
		if v <= 0 {
			return srcset.WithPreset(srcset.Configf("", "ppi values must be positive, got %v", v), p.Name)
		}
	}
	if len(p.Sources) == 0 {
		return srcset.WithPreset(srcset.Configf("", "preset defines no sources"), p.Name)
	}
	seen := make(map[string]struct{}, len(p.Attrs))
	for _, a := range p.Attrs {
		if a.Name == "" {
			return srcset.WithPreset(srcset.Configf("", "attribute name must not be empty"), p.Name)
		}
		if _, dup := seen[a.Name]; dup {
			return srcset.WithPreset(srcset.Configf("", "duplicate attribute %q", a.Name), p.Name)
		}
		seen[a.Name] = struct{}{}
	}
	keys := make(map[string]struct{}, len(p.Sources))
	for _, src := range p.Sources {
		if err := src.Validate(); err != nil {
			return srcset.WithPreset(err, p.Name)
		}
		if _, dup := keys[src.Key]; dup {
			return srcset.WithPreset(srcset.Configf(src.Key, "duplicate source key"), p.Name)
		}
		keys[src.Key] = struct{}{}
	}
	return nil
}

type tomlSource struct {
	Key    string `toml:"key"`
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
	Media  string `toml:"media"`
}

type tomlPreset struct {
	PPI     []float64      `toml:"ppi"`
	Attr    map[string]any `toml:"attr"`
	Sources []tomlSource   `toml:"sources"`
}

// preset converts a decoded TOML table. TOML tables carry no key order, so
// attributes are emitted alphabetically.
func (t tomlPreset) preset(name string) *Preset {
	p := &Preset{Name: name, PPI: t.PPI}
	for _, key := range sortedKeys(t.Attr) {
		p.Attrs = append(p.Attrs, Attr{Name: key, Value: attrValue(t.Attr[key])})
	}
	for _, src := range t.Sources {
		p.Sources = append(p.Sources, srcset.Source{
			Key:    src.Key,
			Width:  src.Width,
			Height: src.Height,
			Media:  src.Media,
		})
	}
	return p
}

// attrValue maps a configured attribute value; nil and true mean a bare
// attribute.
func attrValue(v any) *string {
	var s string
	switch value := v.(type) {
	case nil:
		return nil
	case bool:
		if value {
			return nil
		}
		s = "false"
	case string:
		s = value
	case int64:
		s = strconv.FormatInt(value, 10)
	case float64:
		s = strconv.FormatFloat(value, 'f', -1, 64)
	default:
		s = fmt.Sprint(value)
	}
	return &s
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
