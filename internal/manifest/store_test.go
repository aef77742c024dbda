package manifest_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"picture/internal/manifest"
)

func openStore(t *testing.T) *manifest.Store {
	t.Helper()
	store, err := manifest.Open(filepath.Join(t.TempDir(), "state", "manifest.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRecordAndGet(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	entry := manifest.Entry{
		OutputPath: "/site/generated/cat-400x200-abc123.jpg",
		URLPath:    "/generated/cat-400x200-abc123.jpg",
		SourcePath: "/site/cat.jpg",
		Digest:     "abc123",
		Width:      400,
		Height:     200,
		SizeBytes:  1234,
	}
	if err := store.Record(ctx, entry); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	got, err := store.Get(ctx, entry.OutputPath)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected recorded entry")
	}
	if got.Digest != "abc123" || got.Width != 400 || got.Height != 200 || got.SizeBytes != 1234 {
		t.Fatalf("unexpected entry: %#v", got)
	}
	if got.CreatedAt.IsZero() || got.LastUsedAt.IsZero() {
		t.Fatalf("expected timestamps, got %#v", got)
	}

	missing, err := store.Get(ctx, "/nope")
	if err != nil {
		t.Fatalf("Get missing failed: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for missing entry, got %#v", missing)
	}
}

func TestRecordUpsertKeepsCreatedAt(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	first := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	entry := manifest.Entry{OutputPath: "/o.jpg", URLPath: "/o.jpg", SourcePath: "/s.jpg", Digest: "aaaaaa", Width: 1, Height: 1, CreatedAt: first, LastUsedAt: first}
	if err := store.Record(ctx, entry); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	later := first.Add(time.Hour)
	entry.Digest = "bbbbbb"
	entry.CreatedAt = later
	entry.LastUsedAt = later
	if err := store.Record(ctx, entry); err != nil {
		t.Fatalf("second Record failed: %v", err)
	}

	got, err := store.Get(ctx, "/o.jpg")
	if err != nil || got == nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !got.CreatedAt.Equal(first) {
		t.Fatalf("created_at changed: %v", got.CreatedAt)
	}
	if !got.LastUsedAt.Equal(later) || got.Digest != "bbbbbb" {
		t.Fatalf("expected refreshed row, got %#v", got)
	}
}

func TestTouchListDeleteStats(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	for _, e := range []manifest.Entry{
		{OutputPath: "/g/b-1x1-aaaaaa.png", URLPath: "/g/b.png", SourcePath: "/s/b.png", Digest: "aaaaaa", Width: 1, Height: 1, SizeBytes: 10},
		{OutputPath: "/g/a-2x2-aaaaaa.png", URLPath: "/g/a.png", SourcePath: "/s/a.png", Digest: "aaaaaa", Width: 2, Height: 2, SizeBytes: 20},
		{OutputPath: "/g/a-4x4-aaaaaa.png", URLPath: "/g/a4.png", SourcePath: "/s/a.png", Digest: "aaaaaa", Width: 4, Height: 4, SizeBytes: 40},
	} {
		if err := store.Record(ctx, e); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	ok, err := store.Touch(ctx, "/g/a-2x2-aaaaaa.png", time.Now())
	if err != nil || !ok {
		t.Fatalf("Touch existing: ok=%v err=%v", ok, err)
	}
	ok, err = store.Touch(ctx, "/missing.png", time.Now())
	if err != nil || ok {
		t.Fatalf("Touch missing: ok=%v err=%v", ok, err)
	}

	entries, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 3 || entries[0].OutputPath != "/g/a-2x2-aaaaaa.png" || entries[2].SourcePath != "/s/b.png" {
		t.Fatalf("unexpected list order: %#v", entries)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Entries != 3 || stats.Sources != 2 || stats.TotalBytes != 70 {
		t.Fatalf("unexpected stats: %#v", stats)
	}

	if err := store.Delete(ctx, "/g/b-1x1-aaaaaa.png"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	stats, err = store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Entries != 2 || stats.Sources != 1 {
		t.Fatalf("unexpected stats after delete: %#v", stats)
	}
}

func TestReopenKeepsEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.db")
	store, err := manifest.Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	ctx := context.Background()
	if err := store.Record(ctx, manifest.Entry{OutputPath: "/x.jpg", URLPath: "/x.jpg", SourcePath: "/s.jpg", Digest: "cccccc", Width: 1, Height: 1}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := manifest.Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()
	got, err := reopened.Get(ctx, "/x.jpg")
	if err != nil || got == nil {
		t.Fatalf("expected entry after reopen, got %#v err=%v", got, err)
	}
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	if _, err := manifest.Open("  "); err == nil {
		t.Fatal("expected error for empty path")
	}
}
