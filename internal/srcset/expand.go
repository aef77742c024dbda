package srcset

import (
	"fmt"
	"sort"
	"strings"
)

// Validate checks every source in the set. It does no I/O.
func Validate(set Set) error {
	seen := make(map[string]struct{}, set.Len())
	for _, src := range set.sources {
		if err := src.Validate(); err != nil {
			return err
		}
		if strings.TrimSpace(src.Src) == "" {
			return Configf(src.Key, "no image path resolved")
		}
		if _, dup := seen[src.Key]; dup {
			return Configf(src.Key, "duplicate source key")
		}
		seen[src.Key] = struct{}{}
	}
	return nil
}

// SortDensities returns the densities ordered largest first with duplicates
// removed. Non-positive values are rejected.
func SortDensities(densities []Density) ([]Density, error) {
	out := make([]Density, 0, len(densities))
	seen := make(map[Density]struct{}, len(densities))
	for _, d := range densities {
		if d <= 0 {
			return nil, Configf("", "density %s must be positive", d)
		}
		if _, dup := seen[d]; dup {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] > out[j] })
	return out, nil
}

// DensityKey names the variant of key generated for density d.
func DensityKey(key string, d Density) string {
	return fmt.Sprintf("%s-x%s", key, d)
}

// DensityMedia synthesizes the media query selecting density d, scoped to
// media when it is non-empty. Both the WebKit pixel-ratio feature and the
// standard resolution feature are emitted.
func DensityMedia(media string, d Density) string {
	media = strings.TrimSpace(media)
	if media == "" {
		return fmt.Sprintf("(-webkit-min-device-pixel-ratio: %s), (min-resolution: %ddpi)", d, d.DPI())
	}
	return fmt.Sprintf("%s and (-webkit-min-device-pixel-ratio: %s), %s and (min-resolution: %ddpi)", media, d, media, d.DPI())
}

// Expand returns the set with density variants inserted. For every source K
// and every density d (largest first, 1 skipped) a source keyed "K-x{d}" with
// scaled dimensions and a density media query is placed directly before K.
// With no densities the result is a copy of set.
func Expand(set Set, densities []Density) (Set, error) {
	if err := Validate(set); err != nil {
		return Set{}, err
	}
	out := set.Clone()
	if len(densities) == 0 {
		return out, nil
	}
	sorted, err := SortDensities(densities)
	if err != nil {
		return Set{}, err
	}

	for _, src := range set.sources {
		for _, d := range sorted {
			if d == 1 {
				continue
			}
			variant := Source{
				Key:    DensityKey(src.Key, d),
				Width:  d.Scale(src.Width),
				Height: d.Scale(src.Height),
				Media:  DensityMedia(src.Media, d),
				Src:    src.Src,
			}
			if err := out.InsertBefore(src.Key, variant); err != nil {
				return Set{}, err
			}
		}
	}
	return out, nil
}
