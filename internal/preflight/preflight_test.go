package preflight

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"picture/internal/testsupport"
)

func TestCheckReadable_OK(t *testing.T) {
	result := CheckReadable("test", t.TempDir())
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckReadable_NotExist(t *testing.T) {
	result := CheckReadable("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if !strings.Contains(result.Detail, "does not exist") {
		t.Fatalf("unexpected detail: %s", result.Detail)
	}
}

func TestCheckReadable_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if result := CheckReadable("test", f); result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckWritable_MissingUnderWritableParent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	result := CheckWritable("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
	if !strings.Contains(result.Detail, "will be created") {
		t.Fatalf("unexpected detail: %s", result.Detail)
	}
}

func TestCheckWritable_ParentIsFile(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if result := CheckWritable("test", filepath.Join(f, "sub")); result.Passed {
		t.Fatal("expected failure when the nearest parent is a file")
	}
}

func TestRunAll(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	results := RunAll(cfg)
	failed := Failed(results)
	if len(failed) != 2 || failed[0].Name != "Site directory" || failed[1].Name != "Asset directory" {
		t.Fatalf("expected the missing site and asset directories to fail, got %+v", failed)
	}

	if err := os.MkdirAll(cfg.AssetDir(), 0o755); err != nil {
		t.Fatal(err)
	}
	if failed := Failed(RunAll(cfg)); len(failed) != 0 {
		t.Fatalf("expected all checks to pass, got %+v", failed)
	}
}
