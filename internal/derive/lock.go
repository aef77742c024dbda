package derive

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

const lockRetryDelay = 20 * time.Millisecond

// pathLocks serializes writers per output path inside one process.
type pathLocks struct {
	mu    sync.Mutex
	locks map[string]*pathLock
}

type pathLock struct {
	mu   sync.Mutex
	refs int
}

func newPathLocks() *pathLocks {
	return &pathLocks{locks: make(map[string]*pathLock)}
}

func (p *pathLocks) lock(key string) func() {
	p.mu.Lock()
	l, ok := p.locks[key]
	if !ok {
		l = &pathLock{}
		p.locks[key] = l
	}
	l.refs++
	p.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		p.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(p.locks, key)
		}
		p.mu.Unlock()
	}
}

// acquireWriteLock takes the in-process lock for target and, when lockDir is
// set, an advisory file lock shared with other processes deriving into the
// same tree. The returned func releases both.
func (e *Engine) acquireWriteLock(ctx context.Context, target string) (func(), error) {
	release := e.locks.lock(target)
	if e.lockDir == "" {
		return release, nil
	}

	if err := os.MkdirAll(e.lockDir, 0o755); err != nil {
		release()
		return nil, fmt.Errorf("derive: create lock directory: %w", err)
	}
	sum := sha256.Sum256([]byte(target))
	fl := flock.New(filepath.Join(e.lockDir, hex.EncodeToString(sum[:8])+".lock"))
	ok, err := fl.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		release()
		return nil, fmt.Errorf("derive: lock %s: %w", target, err)
	}
	if !ok {
		release()
		return nil, fmt.Errorf("derive: lock %s: not acquired", target)
	}
	return func() {
		_ = fl.Unlock()
		release()
	}, nil
}
