//go:build !linux && !darwin

package derive

import "os"

// changeStamp is unavailable here; the memo falls back to size and mtime.
func changeStamp(os.FileInfo) string { return "" }
