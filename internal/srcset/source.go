package srcset

import (
	"math"
	"strconv"
	"strings"
)

// Source is one named target configuration. Width and Height are pixels;
// zero means unset. Src is the image path relative to the asset directory.
type Source struct {
	Key    string `json:"key"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
	Media  string `json:"media,omitempty"`
	Src    string `json:"src"`
}

// Validate reports whether the source can be derived.
func (s Source) Validate() error {
	if strings.TrimSpace(s.Key) == "" {
		return Configf("", "source key must not be empty")
	}
	if s.Width < 0 || s.Height < 0 {
		return Configf(s.Key, "width and height must not be negative")
	}
	if s.Width == 0 && s.Height == 0 {
		return Configf(s.Key, "at least one of width and height must be set")
	}
	return nil
}

// Density is a pixel-density multiplier such as 2 for "retina" displays.
type Density float64

// String formats the density with the shortest exact decimal form ("2",
// "1.5"); the same text appears in synthesized keys and media queries.
func (d Density) String() string {
	return strconv.FormatFloat(float64(d), 'f', -1, 64)
}

// DPI returns the CSS resolution matching the density (96dpi per 1x).
func (d Density) DPI() int {
	return int(math.Round(float64(d) * 96))
}

// Scale multiplies a pixel dimension by the density. Unset (zero) stays unset.
func (d Density) Scale(px int) int {
	if px == 0 {
		return 0
	}
	scaled := int(math.Round(float64(px) * float64(d)))
	if scaled < 1 {
		return 1
	}
	return scaled
}

// Set is an ordered list of sources keyed by Source.Key.
type Set struct {
	sources []Source
}

// NewSet builds a set from sources in the given order.
func NewSet(sources ...Source) Set {
	out := make([]Source, len(sources))
	copy(out, sources)
	return Set{sources: out}
}

// Len returns the number of sources.
func (s Set) Len() int { return len(s.sources) }

// Sources returns a copy of the sources in emission order.
func (s Set) Sources() []Source {
	out := make([]Source, len(s.sources))
	copy(out, s.sources)
	return out
}

// Keys returns the source keys in emission order.
func (s Set) Keys() []string {
	keys := make([]string, len(s.sources))
	for i, src := range s.sources {
		keys[i] = src.Key
	}
	return keys
}

// Index returns the position of key, or -1.
func (s Set) Index(key string) int {
	for i, src := range s.sources {
		if src.Key == key {
			return i
		}
	}
	return -1
}

// Get returns the source stored under key.
func (s Set) Get(key string) (Source, bool) {
	if i := s.Index(key); i >= 0 {
		return s.sources[i], true
	}
	return Source{}, false
}

// Clone returns an independent copy of the set.
func (s Set) Clone() Set {
	return NewSet(s.sources...)
}

// Append adds src at the end of the set.
func (s *Set) Append(src Source) error {
	if s.Index(src.Key) >= 0 {
		return Configf(src.Key, "duplicate source key")
	}
	s.sources = append(s.sources, src)
	return nil
}

// InsertBefore places src immediately in front of the source stored under key.
func (s *Set) InsertBefore(key string, src Source) error {
	pos := s.Index(key)
	if pos < 0 {
		return Configf(key, "source not found")
	}
	if s.Index(src.Key) >= 0 {
		return Configf(src.Key, "duplicate source key")
	}
	s.sources = append(s.sources, Source{})
	copy(s.sources[pos+1:], s.sources[pos:])
	s.sources[pos] = src
	return nil
}

// Replace overwrites the source stored under src.Key.
func (s *Set) Replace(src Source) error {
	pos := s.Index(src.Key)
	if pos < 0 {
		return Configf(src.Key, "source not found")
	}
	s.sources[pos] = src
	return nil
}
