package derive

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"golang.org/x/text/unicode/norm"

	"picture/internal/fileutil"
	"picture/internal/logging"
	"picture/internal/manifest"
	"picture/internal/srcset"
)

// Roots locates the trees an engine reads from and writes to. Assets and
// Generated are relative to Site; Generated also forms the URL prefix of
// derived images.
type Roots struct {
	Site      string
	Assets    string
	Generated string
}

// Job is one derivation request. Src is relative to the asset directory.
// Width and Height are target pixels; zero means unset.
type Job struct {
	Src    string
	Width  int
	Height int
}

// JobFor converts a source-set entry into a job.
func JobFor(src srcset.Source) Job {
	return Job{Src: src.Src, Width: src.Width, Height: src.Height}
}

// Image describes a derived file.
type Image struct {
	// Path is the site-root-relative URL of the derivative.
	Path string `json:"path"`
	// File is the absolute location on disk.
	File   string `json:"file"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Digest string `json:"digest"`
	// Generated reports whether this call wrote the file.
	Generated bool `json:"generated"`
	// Capped reports that the requested box was shrunk to avoid upscaling.
	Capped bool `json:"capped"`
}

// Recorder receives bookkeeping about derived files. Failures are logged and
// never fail a derivation.
type Recorder interface {
	Record(ctx context.Context, e manifest.Entry) error
	Touch(ctx context.Context, outputPath string, at time.Time) (bool, error)
}

// Engine derives images. It is safe for concurrent use.
type Engine struct {
	roots        Roots
	logger       *slog.Logger
	recorder     Recorder
	lockDir      string
	jpegQuality  int
	filter       imaging.ResampleFilter
	cacheEntries int64

	fingerprints *fingerprintCache
	locks        *pathLocks
}

// Option customizes an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithRecorder records derived files, typically in a manifest.Store.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithLockDir enables cross-process file locks stored under dir.
func WithLockDir(dir string) Option {
	return func(e *Engine) { e.lockDir = strings.TrimSpace(dir) }
}

// WithJPEGQuality sets the JPEG encoder quality (1-100).
func WithJPEGQuality(q int) Option {
	return func(e *Engine) {
		if q >= 1 && q <= 100 {
			e.jpegQuality = q
		}
	}
}

// WithFilter selects the resampling filter.
func WithFilter(f imaging.ResampleFilter) Option {
	return func(e *Engine) { e.filter = f }
}

// WithFingerprintCache sets how many source fingerprints are memoized.
// Zero disables the memo.
func WithFingerprintCache(entries int64) Option {
	return func(e *Engine) { e.cacheEntries = entries }
}

// New constructs an engine rooted at roots.
func New(roots Roots, opts ...Option) (*Engine, error) {
	if strings.TrimSpace(roots.Site) == "" {
		return nil, errors.New("derive: site root is required")
	}
	if strings.TrimSpace(roots.Generated) == "" {
		return nil, errors.New("derive: generated path is required")
	}
	e := &Engine{
		roots:        roots,
		jpegQuality:  85,
		filter:       imaging.Lanczos,
		cacheEntries: 1024,
		locks:        newPathLocks(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = logging.NewComponentLogger(e.logger, "derive")

	fps, err := newFingerprintCache(e.cacheEntries)
	if err != nil {
		return nil, err
	}
	e.fingerprints = fps
	return e, nil
}

// Close releases in-memory caches.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.fingerprints.close()
}

// Roots returns the directories the engine was built with.
func (e *Engine) Roots() Roots { return e.roots }

// SourcePath resolves src against the site and asset directories.
func (e *Engine) SourcePath(src string) string {
	return filepath.Join(e.roots.Site, e.roots.Assets, filepath.FromSlash(src))
}

// Derive produces (or reuses) the derivative described by job.
func (e *Engine) Derive(ctx context.Context, job Job) (Image, error) {
	if job.Width == 0 && job.Height == 0 {
		return Image{}, srcset.Configf("", "at least one of width and height must be set for %s", job.Src)
	}
	rel, err := cleanRelative(job.Src)
	if err != nil {
		return Image{}, err
	}
	srcPath := e.SourcePath(rel)

	fp, img, err := e.fingerprint(srcPath)
	if err != nil {
		return Image{}, err
	}

	box, err := Plan(fp.Width, fp.Height, job.Width, job.Height)
	if err != nil {
		return Image{}, fmt.Errorf("derive %s: %w", rel, err)
	}
	if box.Capped {
		logging.WarnWithContext(e.logger, "source smaller than requested size; deriving as large as possible without upscaling",
			"upscale_prevented",
			logging.String("source", filepath.ToSlash(filepath.Join(e.roots.Assets, rel))),
			logging.Int("native_width", fp.Width),
			logging.Int("native_height", fp.Height),
			logging.Int("requested_width", job.Width),
			logging.Int("requested_height", job.Height),
			logging.Int("width", box.Width),
			logging.Int("height", box.Height),
			logging.String(logging.FieldErrorHint, "supply a larger source image or lower the preset size"),
			logging.String(logging.FieldImpact, "derived image is smaller than requested"),
		)
	}

	name := OutputName(rel, box.Width, box.Height, fp.Digest)
	subdir := filepath.Dir(rel)
	out := Image{
		Path:   URLPath(e.roots.Generated, subdir, name),
		File:   filepath.Join(e.roots.Site, e.roots.Generated, subdir, name),
		Width:  box.Width,
		Height: box.Height,
		Digest: fp.Digest,
		Capped: box.Capped,
	}

	if fileExists(out.File) {
		e.touch(ctx, out, srcPath)
		return out, nil
	}

	generated, err := e.generate(ctx, srcPath, img, out)
	if err != nil {
		return Image{}, err
	}
	out.Generated = generated
	return out, nil
}

// Fingerprint returns the digest and native size of src (relative to the
// asset directory).
func (e *Engine) Fingerprint(src string) (Fingerprint, error) {
	rel, err := cleanRelative(src)
	if err != nil {
		return Fingerprint{}, err
	}
	fp, _, err := e.fingerprint(e.SourcePath(rel))
	return fp, err
}

// FingerprintFile is Fingerprint for an absolute source path.
func (e *Engine) FingerprintFile(path string) (Fingerprint, error) {
	fp, _, err := e.fingerprint(path)
	return fp, err
}

// fingerprint returns the fingerprint of path and, when it had to decode the
// file, the decoded image.
func (e *Engine) fingerprint(path string) (Fingerprint, image.Image, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Fingerprint{}, nil, sourceNotFound(path)
		}
		return Fingerprint{}, nil, sourceUnreadable(path, err)
	}
	if info.IsDir() {
		return Fingerprint{}, nil, sourceUnreadable(path, errors.New("is a directory"))
	}

	key := fingerprintKey(path, info)
	if fp, ok := e.fingerprints.get(key); ok {
		return fp, nil, nil
	}

	img, err := imaging.Open(path)
	if err != nil {
		return Fingerprint{}, nil, sourceUnreadable(path, err)
	}
	fp := FingerprintImage(img)
	e.fingerprints.set(key, fp)
	return fp, img, nil
}

func (e *Engine) generate(ctx context.Context, srcPath string, img image.Image, out Image) (bool, error) {
	format, err := imaging.FormatFromFilename(out.File)
	if err != nil {
		return false, fmt.Errorf("derive %s: %w", out.Path, err)
	}
	dir := filepath.Dir(out.File)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, fmt.Errorf("derive: create output directory: %w", err)
	}

	unlock, err := e.acquireWriteLock(ctx, out.File)
	if err != nil {
		return false, err
	}
	defer unlock()

	// Another writer may have finished while we waited for the lock.
	if fileExists(out.File) {
		e.touch(ctx, out, srcPath)
		return false, nil
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	if img == nil {
		img, err = imaging.Open(srcPath)
		if err != nil {
			return false, sourceUnreadable(srcPath, err)
		}
	}
	dst := imaging.Fill(img, out.Width, out.Height, imaging.Center, e.filter)

	size, err := fileutil.WriteAtomic(out.File, 0o644, func(f *os.File) error {
		return imaging.Encode(f, dst, format, imaging.JPEGQuality(e.jpegQuality))
	})
	if err != nil {
		return false, fmt.Errorf("derive %s: %w", out.Path, err)
	}

	e.logger.InfoContext(ctx, "generated derived image",
		logging.String("path", out.Path),
		logging.Int("width", out.Width),
		logging.Int("height", out.Height),
		logging.String("digest", out.Digest),
	)
	e.record(ctx, out, srcPath, size)
	return true, nil
}

func (e *Engine) record(ctx context.Context, out Image, srcPath string, size int64) {
	if e.recorder == nil {
		return
	}
	now := time.Now().UTC()
	err := e.recorder.Record(ctx, manifest.Entry{
		OutputPath: out.File,
		URLPath:    out.Path,
		SourcePath: srcPath,
		Digest:     out.Digest,
		Width:      out.Width,
		Height:     out.Height,
		SizeBytes:  size,
		CreatedAt:  now,
		LastUsedAt: now,
	})
	if err != nil {
		logging.WarnWithContext(e.logger, "failed to record derived image", "manifest_record_failed",
			logging.String("path", out.Path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the manifest database under state_dir"),
			logging.String(logging.FieldImpact, "cache stats and prune will not see this file"),
		)
	}
}

// touch refreshes the manifest for a reused derivative, recording it when the
// manifest has never seen it.
func (e *Engine) touch(ctx context.Context, out Image, srcPath string) {
	if e.recorder == nil {
		return
	}
	found, err := e.recorder.Touch(ctx, out.File, time.Now())
	if err == nil && found {
		return
	}
	var size int64
	if info, statErr := os.Stat(out.File); statErr == nil {
		size = info.Size()
	}
	e.record(ctx, out, srcPath, size)
}

// OutputName builds "{base}-{W}x{H}-{digest}{ext}" for the source file name.
// The base is normalized to NFC so the same logical name maps to the same
// derivative regardless of how the filesystem stores it.
func OutputName(src string, width, height int, digest string) string {
	base := filepath.Base(src)
	ext := filepath.Ext(base)
	stem := norm.NFC.String(strings.TrimSuffix(base, ext))
	return fmt.Sprintf("%s-%dx%d-%s%s", stem, width, height, digest, ext)
}

// URLPath joins the generated prefix, source subdirectory, and file name into
// a cleaned, rooted URL path.
func URLPath(generated, subdir, name string) string {
	return path.Clean("/" + path.Join(filepath.ToSlash(generated), filepath.ToSlash(subdir), name))
}

func cleanRelative(src string) (string, error) {
	trimmed := strings.TrimSpace(src)
	if trimmed == "" {
		return "", srcset.Configf("", "image path is empty")
	}
	cleaned := filepath.Clean(filepath.FromSlash(strings.TrimPrefix(filepath.ToSlash(trimmed), "/")))
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", srcset.Configf("", "image path %q escapes the asset directory", src)
	}
	return cleaned, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
