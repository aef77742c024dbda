package fileutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// WriteAtomic creates path by running write against a temporary file in the
// same directory, flushing it to disk, and renaming it into place. A failed
// write leaves nothing behind at path. It returns the size written.
func WriteAtomic(path string, mode os.FileMode, write func(*os.File) error) (int64, error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = os.Remove(tmpPath)
	}

	if err := write(tmp); err != nil {
		_ = tmp.Close()
		cleanup()
		return 0, err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return 0, fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return 0, fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, mode); err != nil {
		cleanup()
		return 0, fmt.Errorf("chmod temp file: %w", err)
	}
	info, err := os.Stat(tmpPath)
	if err != nil {
		cleanup()
		return 0, fmt.Errorf("stat temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		cleanup()
		return 0, fmt.Errorf("rename temp file: %w", err)
	}
	return info.Size(), nil
}

// TreeUsage walks root and returns the number of regular files, their total
// size, and the newest modification time. A missing root is empty.
func TreeUsage(root string) (files int, bytes int64, newest time.Time, err error) {
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if errors.Is(walkErr, fs.ErrNotExist) && path == root {
				return filepath.SkipAll
			}
			return walkErr
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		files++
		bytes += info.Size()
		if info.ModTime().After(newest) {
			newest = info.ModTime()
		}
		return nil
	})
	return files, bytes, newest, err
}
