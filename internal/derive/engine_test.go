package derive_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/disintegration/imaging"

	"picture/internal/derive"
	"picture/internal/manifest"
	"picture/internal/srcset"
	"picture/internal/testsupport"
)

func newEngine(t *testing.T, opts ...derive.Option) (*derive.Engine, string) {
	t.Helper()
	site := t.TempDir()
	engine, err := derive.New(derive.Roots{Site: site, Assets: "assets", Generated: "assets/generated"}, opts...)
	if err != nil {
		t.Fatalf("derive.New: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine, site
}

func writeSource(t *testing.T, site, rel string, w, h int) string {
	t.Helper()
	path := filepath.Join(site, "assets", filepath.FromSlash(rel))
	testsupport.WriteImage(t, path, w, h)
	return path
}

func decodedSize(t *testing.T, path string) (int, int) {
	t.Helper()
	img, err := imaging.Open(path)
	if err != nil {
		t.Fatalf("open derived image: %v", err)
	}
	b := img.Bounds()
	return b.Dx(), b.Dy()
}

func TestDeriveWidthOnly(t *testing.T) {
	engine, site := newEngine(t)
	writeSource(t, site, "photos/beach.jpg", 2000, 1000)

	img, err := engine.Derive(context.Background(), derive.Job{Src: "photos/beach.jpg", Width: 400})
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	if img.Width != 400 || img.Height != 200 || img.Capped {
		t.Fatalf("unexpected image: %+v", img)
	}
	if !img.Generated {
		t.Fatal("expected first derivation to generate the file")
	}
	wantPrefix := "/assets/generated/photos/beach-400x200-"
	if !strings.HasPrefix(img.Path, wantPrefix) || !strings.HasSuffix(img.Path, ".jpg") {
		t.Fatalf("path = %q, want prefix %q", img.Path, wantPrefix)
	}
	if len(img.Digest) != derive.DigestLength {
		t.Fatalf("digest %q has wrong length", img.Digest)
	}
	if img.File != filepath.Join(site, filepath.FromSlash(strings.TrimPrefix(img.Path, "/"))) {
		t.Fatalf("file %q does not match path %q", img.File, img.Path)
	}
	if w, h := decodedSize(t, img.File); w != 400 || h != 200 {
		t.Fatalf("derived file is %dx%d", w, h)
	}
}

func TestDeriveNeverUpscales(t *testing.T) {
	engine, site := newEngine(t)
	writeSource(t, site, "small.png", 2000, 1000)

	img, err := engine.Derive(context.Background(), derive.Job{Src: "small.png", Width: 3000})
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	if img.Width != 2000 || img.Height != 1000 || !img.Capped {
		t.Fatalf("unexpected image: %+v", img)
	}
	if w, h := decodedSize(t, img.File); w != 2000 || h != 1000 {
		t.Fatalf("derived file is %dx%d", w, h)
	}
}

func TestDeriveCropsToRequestedBox(t *testing.T) {
	engine, site := newEngine(t)
	writeSource(t, site, "wide.png", 300, 100)

	img, err := engine.Derive(context.Background(), derive.Job{Src: "wide.png", Width: 50, Height: 50})
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	if w, h := decodedSize(t, img.File); w != 50 || h != 50 {
		t.Fatalf("derived file is %dx%d", w, h)
	}
}

func TestDeriveIsIdempotent(t *testing.T) {
	engine, site := newEngine(t)
	writeSource(t, site, "a.jpg", 800, 600)
	job := derive.Job{Src: "a.jpg", Height: 300}

	first, err := engine.Derive(context.Background(), job)
	if err != nil {
		t.Fatalf("first Derive: %v", err)
	}
	past := time.Now().Add(-time.Hour).Truncate(time.Second)
	if err := os.Chtimes(first.File, past, past); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	second, err := engine.Derive(context.Background(), job)
	if err != nil {
		t.Fatalf("second Derive: %v", err)
	}
	if second.Generated {
		t.Fatal("expected second derivation to reuse the file")
	}
	if second.Path != first.Path {
		t.Fatalf("paths differ: %q vs %q", first.Path, second.Path)
	}
	info, err := os.Stat(second.File)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if !info.ModTime().Equal(past) {
		t.Fatalf("derived file was rewritten: mtime %v", info.ModTime())
	}
}

func TestDeriveEditedSourceGetsNewPath(t *testing.T) {
	engine, site := newEngine(t)
	src := writeSource(t, site, "edit.png", 64, 64)
	job := derive.Job{Src: "edit.png", Width: 32}

	before, err := engine.Derive(context.Background(), job)
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}

	testsupport.EditPixel(t, src, 10, 10)
	later := time.Now().Add(time.Minute)
	if err := os.Chtimes(src, later, later); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	after, err := engine.Derive(context.Background(), job)
	if err != nil {
		t.Fatalf("Derive after edit: %v", err)
	}
	if after.Digest == before.Digest || after.Path == before.Path {
		t.Fatalf("expected a new digest and path after editing: %+v vs %+v", before, after)
	}
	if !after.Generated {
		t.Fatal("expected edited source to generate a new derivative")
	}
	if _, err := os.Stat(before.File); err != nil {
		t.Fatalf("old derivative should remain until pruned: %v", err)
	}
}

func TestDeriveConcurrentSameJobWritesOnce(t *testing.T) {
	engine, site := newEngine(t, derive.WithLockDir(filepath.Join(t.TempDir(), "locks")))
	writeSource(t, site, "race.jpg", 640, 480)
	job := derive.Job{Src: "race.jpg", Width: 320}

	const workers = 8
	results := make([]derive.Image, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = engine.Derive(context.Background(), job)
		}(i)
	}
	wg.Wait()

	generated := 0
	for i := range results {
		if errs[i] != nil {
			t.Fatalf("worker %d: %v", i, errs[i])
		}
		if results[i].Path != results[0].Path {
			t.Fatalf("worker %d got %q, want %q", i, results[i].Path, results[0].Path)
		}
		if results[i].Generated {
			generated++
		}
	}
	if generated != 1 {
		t.Fatalf("expected exactly one writer, got %d", generated)
	}

	entries, err := os.ReadDir(filepath.Dir(results[0].File))
	if err != nil {
		t.Fatalf("read output dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the derivative in the output dir, got %d entries", len(entries))
	}
}

func TestDeriveErrors(t *testing.T) {
	engine, site := newEngine(t)
	testsupport.WriteFile(t, filepath.Join(site, "assets", "broken.jpg"), []byte("not an image"))

	tests := []struct {
		name     string
		job      derive.Job
		target   error
		wantKind string
	}{
		{"missing source", derive.Job{Src: "nope.jpg", Width: 10}, derive.ErrSourceNotFound, "not_found"},
		{"undecodable source", derive.Job{Src: "broken.jpg", Width: 10}, derive.ErrSourceUnreadable, "unreadable"},
		{"no dimensions", derive.Job{Src: "nope.jpg"}, srcset.ErrConfiguration, "configuration"},
		{"escapes asset dir", derive.Job{Src: "../../etc/passwd.jpg", Width: 10}, srcset.ErrConfiguration, "configuration"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.Derive(context.Background(), tt.job)
			if !errors.Is(err, tt.target) {
				t.Fatalf("expected %v, got %v", tt.target, err)
			}
			var kinded interface{ ErrorKind() string }
			if !errors.As(err, &kinded) || kinded.ErrorKind() != tt.wantKind {
				t.Fatalf("expected kind %q for %v", tt.wantKind, err)
			}
		})
	}
}

func TestDeriveRecordsManifest(t *testing.T) {
	store, err := manifest.Open(filepath.Join(t.TempDir(), "manifest.db"))
	if err != nil {
		t.Fatalf("manifest.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	engine, site := newEngine(t, derive.WithRecorder(store))
	src := writeSource(t, site, "m.jpg", 400, 400)
	job := derive.Job{Src: "m.jpg", Width: 100}

	img, err := engine.Derive(context.Background(), job)
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	entry, err := store.Get(context.Background(), img.File)
	if err != nil || entry == nil {
		t.Fatalf("manifest entry missing: %v", err)
	}
	if entry.SourcePath != src || entry.Digest != img.Digest || entry.URLPath != img.Path {
		t.Fatalf("unexpected entry: %+v", entry)
	}
	if entry.SizeBytes <= 0 {
		t.Fatalf("expected size to be recorded: %+v", entry)
	}

	if err := store.Delete(context.Background(), img.File); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := engine.Derive(context.Background(), job); err != nil {
		t.Fatalf("second Derive: %v", err)
	}
	if entry, err := store.Get(context.Background(), img.File); err != nil || entry == nil {
		t.Fatalf("reused derivative should be re-recorded: %v", err)
	}
}

func TestFingerprintIgnoresContainer(t *testing.T) {
	engine, site := newEngine(t, derive.WithFingerprintCache(0))
	img := testsupport.NewImage(40, 30, 7)
	testsupport.SaveImage(t, filepath.Join(site, "assets", "a.png"), img)
	testsupport.SaveImage(t, filepath.Join(site, "assets", "b.png"), img)

	a, err := engine.Fingerprint("a.png")
	if err != nil {
		t.Fatalf("Fingerprint a: %v", err)
	}
	b, err := engine.Fingerprint("b.png")
	if err != nil {
		t.Fatalf("Fingerprint b: %v", err)
	}
	if a != b {
		t.Fatalf("identical pixels should share a fingerprint: %+v vs %+v", a, b)
	}
	if a.Width != 40 || a.Height != 30 {
		t.Fatalf("unexpected native size: %+v", a)
	}
	if other := derive.FingerprintImage(testsupport.NewImage(40, 30, 8)); other.Digest == a.Digest {
		t.Fatal("different pixels should change the digest")
	}
}

func TestFingerprintSeesEditWithRestoredMtime(t *testing.T) {
	engine, site := newEngine(t)
	src := writeSource(t, site, "same.bmp", 32, 32)
	before, err := os.Stat(src)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}

	first, err := engine.Fingerprint("same.bmp")
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	// Let the memo admit the entry before the file changes.
	time.Sleep(20 * time.Millisecond)
	if again, err := engine.Fingerprint("same.bmp"); err != nil || again != first {
		t.Fatalf("unchanged file should keep its fingerprint: %+v %v", again, err)
	}

	testsupport.EditPixel(t, src, 1, 1)
	if err := os.Chtimes(src, before.ModTime(), before.ModTime()); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	after, err := os.Stat(src)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if after.Size() != before.Size() || !after.ModTime().Equal(before.ModTime()) {
		t.Fatalf("edit should keep size and mtime: %d/%v vs %d/%v", before.Size(), before.ModTime(), after.Size(), after.ModTime())
	}

	edited, err := engine.Fingerprint("same.bmp")
	if err != nil {
		t.Fatalf("Fingerprint after edit: %v", err)
	}
	if edited.Digest == first.Digest {
		t.Fatalf("edit with restored mtime returned a stale digest %s", first.Digest)
	}
}

func TestNewRequiresRoots(t *testing.T) {
	if _, err := derive.New(derive.Roots{Generated: "g"}); err == nil {
		t.Fatal("expected error without site root")
	}
	if _, err := derive.New(derive.Roots{Site: t.TempDir()}); err == nil {
		t.Fatal("expected error without generated path")
	}
}
