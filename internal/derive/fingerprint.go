package derive

import (
	"fmt"
	"os"

	"github.com/dgraph-io/ristretto"
)

// fingerprintCache memoizes source fingerprints for the life of the process.
// Entries are keyed on path, size, modification time, inode, and status
// change time, so an edited file is re-read even when its mtime was restored
// (cp -p, rsync -t). On platforms without ctime only size and mtime are
// compared. A nil cache is valid and never hits.
type fingerprintCache struct {
	c *ristretto.Cache
}

func newFingerprintCache(entries int64) (*fingerprintCache, error) {
	if entries <= 0 {
		return nil, nil
	}
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: entries * 10,
		MaxCost:     entries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("derive: fingerprint cache: %w", err)
	}
	return &fingerprintCache{c: c}, nil
}

func fingerprintKey(path string, info os.FileInfo) string {
	return fmt.Sprintf("%s|%d|%d|%s", path, info.Size(), info.ModTime().UnixNano(), changeStamp(info))
}

func (f *fingerprintCache) get(key string) (Fingerprint, bool) {
	if f == nil {
		return Fingerprint{}, false
	}
	v, ok := f.c.Get(key)
	if !ok {
		return Fingerprint{}, false
	}
	fp, ok := v.(Fingerprint)
	if !ok {
		f.c.Del(key)
		return Fingerprint{}, false
	}
	return fp, true
}

func (f *fingerprintCache) set(key string, fp Fingerprint) {
	if f == nil {
		return
	}
	f.c.Set(key, fp, 1)
}

func (f *fingerprintCache) close() {
	if f == nil {
		return
	}
	f.c.Close()
}
