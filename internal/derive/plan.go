package derive

import (
	"fmt"
	"math"

	"picture/internal/srcset"
)

// Box is the pixel size a derivative is produced at.
type Box struct {
	Width  int
	Height int
	// Capped is set when the requested box exceeded the source and was shrunk.
	Capped bool
}

// Plan computes the output box for a width/height request (zero = unset)
// against a native image size.
//
// A single axis is completed from the native ratio. When both axes are given
// the requested ratio wins and the image is cropped. If the box exceeds the
// native size on either axis it is reduced to the largest box with the
// requested ratio that fits, anchored on the axis that overflows relative to
// the native ratio. Values are rounded to whole pixels only after that
// adjustment.
func Plan(nativeWidth, nativeHeight, width, height int) (Box, error) {
	if nativeWidth <= 0 || nativeHeight <= 0 {
		return Box{}, fmt.Errorf("derive: invalid native size %dx%d", nativeWidth, nativeHeight)
	}
	if width < 0 || height < 0 {
		return Box{}, srcset.Configf("", "width and height must not be negative")
	}
	if width == 0 && height == 0 {
		return Box{}, srcset.Configf("", "at least one of width and height must be set")
	}

	nw, nh := float64(nativeWidth), float64(nativeHeight)
	nativeRatio := nw / nh

	w, h := float64(width), float64(height)
	if width == 0 {
		w = h * nativeRatio
	}
	if height == 0 {
		h = w / nativeRatio
	}
	ratio := w / h

	box := Box{}
	if w > nw || h > nh {
		box.Capped = true
		switch {
		case ratio < nativeRatio:
			h = nh
			w = h * ratio
		case ratio > nativeRatio:
			w = nw
			h = w / ratio
		default:
			w, h = nw, nh
		}
	}

	box.Width = clampPixels(w, nativeWidth)
	box.Height = clampPixels(h, nativeHeight)
	return box, nil
}

func clampPixels(v float64, limit int) int {
	px := int(math.Round(v))
	if px < 1 {
		px = 1
	}
	if px > limit {
		px = limit
	}
	return px
}
