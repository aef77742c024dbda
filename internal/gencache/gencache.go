package gencache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"picture/internal/derive"
	"picture/internal/fileutil"
	"picture/internal/logging"
	"picture/internal/manifest"
)

// ErrNoManifest is returned by operations that need the manifest when it is
// disabled.
var ErrNoManifest = errors.New("gencache: manifest is disabled")

// Orphan reasons.
const (
	ReasonSourceMissing = "source_missing"
	ReasonSourceChanged = "source_changed"
	ReasonFileMissing   = "file_missing"
)

// statfsFunc allows tests to stub filesystem stats.
type statfsFunc func(path string) (total uint64, free uint64, err error)

// Fingerprinter reports the current digest of a source file.
type Fingerprinter interface {
	FingerprintFile(path string) (derive.Fingerprint, error)
}

// Manager reports on and prunes the generated directory.
type Manager struct {
	root   string
	store  *manifest.Store
	fp     Fingerprinter
	logger *slog.Logger
	statfs statfsFunc
}

// Stats describes current cache usage.
type Stats struct {
	Root         string    `json:"root"`
	Files        int       `json:"files"`
	TotalBytes   int64     `json:"total_bytes"`
	Newest       time.Time `json:"newest,omitzero"`
	Entries      int       `json:"manifest_entries"`
	Sources      int       `json:"manifest_sources"`
	Orphans      int       `json:"orphans"`
	OrphanBytes  int64     `json:"orphan_bytes"`
	FreeBytes    uint64    `json:"free_bytes"`
	TotalFSBytes uint64    `json:"total_fs_bytes"`
	FreeRatio    float64   `json:"free_ratio"`
	Manifest     bool      `json:"manifest"`
}

// Orphan is a derivative that no current source maps to.
type Orphan struct {
	OutputPath string `json:"output_path"`
	URLPath    string `json:"url_path"`
	SourcePath string `json:"source_path"`
	Reason     string `json:"reason"`
	SizeBytes  int64  `json:"size_bytes"`
}

// PruneResult summarizes a prune pass.
type PruneResult struct {
	Orphans    []Orphan `json:"orphans"`
	FreedBytes int64    `json:"freed_bytes"`
	DryRun     bool     `json:"dry_run"`
}

// NewManager builds a manager for the generated directory root. store may be
// nil when the manifest is disabled; stats then cover disk usage only.
func NewManager(root string, store *manifest.Store, fp Fingerprinter, logger *slog.Logger) *Manager {
	return &Manager{
		root:   strings.TrimSpace(root),
		store:  store,
		fp:     fp,
		logger: logging.NewComponentLogger(logger, "gencache"),
		statfs: realStatfs,
	}
}

// Stats returns current cache usage and filesystem free-space info.
func (m *Manager) Stats(ctx context.Context) (Stats, error) {
	s := Stats{Root: m.root, Manifest: m.store != nil}
	files, size, newest, err := fileutil.TreeUsage(m.root)
	if err != nil {
		return s, fmt.Errorf("gencache: scan %s: %w", m.root, err)
	}
	s.Files, s.TotalBytes, s.Newest = files, size, newest

	total, free, err := m.statfs(existingAncestor(m.root))
	if err != nil {
		return s, fmt.Errorf("gencache: statfs: %w", err)
	}
	s.TotalFSBytes, s.FreeBytes = total, free
	s.FreeRatio = 1.0
	if total > 0 {
		s.FreeRatio = float64(free) / float64(total)
	}

	if m.store == nil {
		return s, nil
	}
	ms, err := m.store.Stats(ctx)
	if err != nil {
		return s, err
	}
	s.Entries, s.Sources = ms.Entries, ms.Sources
	orphans, err := m.Orphans(ctx)
	if err != nil {
		return s, err
	}
	s.Orphans = len(orphans)
	for _, o := range orphans {
		s.OrphanBytes += o.SizeBytes
	}
	if files == 0 {
		m.logger.InfoContext(ctx, "generated directory empty", logging.String("root", m.root))
	}
	return s, nil
}

// Orphans lists manifest entries whose derivative no longer matches a source.
func (m *Manager) Orphans(ctx context.Context) ([]Orphan, error) {
	if m.store == nil {
		return nil, ErrNoManifest
	}
	entries, err := m.store.List(ctx)
	if err != nil {
		return nil, err
	}

	digests := make(map[string]string)
	var orphans []Orphan
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		orphan := Orphan{OutputPath: e.OutputPath, URLPath: e.URLPath, SourcePath: e.SourcePath, SizeBytes: e.SizeBytes}
		if !fileExists(e.OutputPath) {
			orphan.Reason = ReasonFileMissing
			orphan.SizeBytes = 0
			orphans = append(orphans, orphan)
			continue
		}

		digest, ok := digests[e.SourcePath]
		if !ok {
			digest, err = m.sourceDigest(e.SourcePath)
			if err != nil {
				logging.WarnWithContext(m.logger, "gencache: skip entry; source unreadable", "gencache_source_unreadable",
					logging.String("source", e.SourcePath),
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "fix or remove the source image, then prune again"),
					logging.String(logging.FieldImpact, "derivatives of this source are kept"),
				)
				continue
			}
			digests[e.SourcePath] = digest
		}
		switch {
		case digest == "":
			orphan.Reason = ReasonSourceMissing
		case digest != e.Digest:
			orphan.Reason = ReasonSourceChanged
		default:
			continue
		}
		orphans = append(orphans, orphan)
	}
	return orphans, nil
}

// sourceDigest returns "" when the source no longer exists.
func (m *Manager) sourceDigest(path string) (string, error) {
	fp, err := m.fp.FingerprintFile(path)
	if errors.Is(err, derive.ErrSourceNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return fp.Digest, nil
}

// Prune removes orphaned derivatives and their manifest rows. With dryRun
// set nothing is changed and the result lists what would be removed.
func (m *Manager) Prune(ctx context.Context, dryRun bool) (PruneResult, error) {
	res := PruneResult{DryRun: dryRun}
	orphans, err := m.Orphans(ctx)
	if err != nil {
		return res, err
	}
	res.Orphans = orphans
	for _, o := range orphans {
		res.FreedBytes += o.SizeBytes
	}
	if dryRun {
		return res, nil
	}

	for _, o := range orphans {
		if o.Reason != ReasonFileMissing {
			if err := os.Remove(o.OutputPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return res, fmt.Errorf("gencache: remove %q: %w", o.OutputPath, err)
			}
		}
		if err := m.store.Delete(ctx, o.OutputPath); err != nil {
			return res, err
		}
		m.logger.InfoContext(ctx, "pruned derived image",
			logging.String("path", o.URLPath),
			logging.String("reason", o.Reason),
			logging.Int64("size_bytes", o.SizeBytes),
		)
	}
	return res, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// existingAncestor returns path or its closest existing parent.
func existingAncestor(path string) string {
	for {
		if _, err := os.Stat(path); err == nil {
			return path
		}
		parent := filepath.Dir(path)
		if parent == path {
			return path
		}
		path = parent
	}
}

func realStatfs(path string) (uint64, uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, 0, err
	}
	total := stat.Blocks * uint64(stat.Bsize)
	free := stat.Bavail * uint64(stat.Bsize)
	return total, free, nil
}
