//go:build linux

package derive

import (
	"fmt"
	"os"
	"syscall"
)

// changeStamp identifies the inode and its last status change. Tools that
// restore mtime after rewriting a file cannot restore ctime.
func changeStamp(info os.FileInfo) string {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return ""
	}
	return fmt.Sprintf("%d|%d.%09d", st.Ino, st.Ctim.Sec, st.Ctim.Nsec)
}
