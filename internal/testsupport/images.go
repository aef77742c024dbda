package testsupport

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
)

// NewImage returns a deterministic gradient. Different seeds yield different
// pixels.
func NewImage(width, height int, seed uint8) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x*255/max(width, 1)) ^ seed,
				G: uint8(y*255/max(height, 1)),
				B: seed,
				A: 0xff,
			})
		}
	}
	return img
}

// WriteImage encodes a gradient of the given size at path; the format follows
// the file extension.
func WriteImage(t testing.TB, path string, width, height int) {
	t.Helper()
	SaveImage(t, path, NewImage(width, height, 0))
}

// SaveImage encodes img at path, creating parent directories.
func SaveImage(t testing.TB, path string, img image.Image) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := imaging.Save(img, path); err != nil {
		t.Fatalf("save image %s: %v", path, err)
	}
}

// EditPixel rewrites the image at path with one pixel changed.
func EditPixel(t testing.TB, path string, x, y int) {
	t.Helper()
	src, err := imaging.Open(path)
	if err != nil {
		t.Fatalf("open image %s: %v", path, err)
	}
	img := imaging.Clone(src)
	c := img.NRGBAAt(x, y)
	c.R ^= 0xff
	img.SetNRGBA(x, y, c)
	SaveImage(t, path, img)
}

// WriteFile writes content at path, creating parent directories.
func WriteFile(t testing.TB, path string, content []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
