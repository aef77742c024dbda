package preflight

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"

	"picture/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// RunAll executes the directory checks for cfg.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckReadable("Site directory", cfg.Paths.SiteDir),
		CheckReadable("Asset directory", cfg.AssetDir()),
		CheckWritable("Generated directory", cfg.GeneratedDir()),
	}
	if cfg.Paths.StateDir != "" {
		results = append(results, CheckWritable("State directory", cfg.Paths.StateDir))
	}
	if cfg.Paths.LogDir != "" {
		results = append(results, CheckWritable("Log directory", cfg.Paths.LogDir))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}

// CheckReadable verifies that the directory exists and can be listed.
func CheckReadable(name, path string) Result {
	if res, ok := statDir(name, path); !ok {
		return res
	}
	if err := unix.Access(path, unix.R_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read ok)", path)}
}

// CheckWritable verifies that the directory is writable. A missing directory
// passes when its nearest existing parent is writable, since it is created on
// first use.
func CheckWritable(name, path string) Result {
	target := path
	missing := false
	for {
		if _, err := os.Stat(target); err == nil {
			break
		} else if !os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", target, err)}
		}
		missing = true
		parent := filepath.Dir(target)
		if parent == target {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: no existing parent)", path)}
		}
		target = parent
	}
	if res, ok := statDir(name, target); !ok {
		return res
	}
	if err := unix.Access(target, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", target, err)}
	}
	if missing {
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (will be created under %s)", path, target)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

func statDir(name, path string) (Result, bool) {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "(error: path is empty)"}, false
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}, false
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}, false
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}, false
	}
	return Result{}, true
}
