package lock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	fileLockDirName   = ".vacancyfeed.lock"
	fileLockOwnerFile = "owner.json"
)

// FileLock is a mkdir-based lock next to the record store. Creating a
// directory is atomic on local filesystems, so only one process wins.
type FileLock struct {
	dir        string
	staleAfter time.Duration // zero: never break a lock
	now        func() time.Time
}

// NewFileLock returns a lock living in dir. A lock older than staleAfter is
// assumed abandoned by a crashed process and is broken.
func NewFileLock(dir string, staleAfter time.Duration) *FileLock {
	return &FileLock{dir: dir, staleAfter: staleAfter, now: time.Now}
}

// Path returns the lock directory.
func (l *FileLock) Path() string {
	return filepath.Join(l.dir, fileLockDirName)
}

// Acquire takes the lock or fails with ErrLocked.
func (l *FileLock) Acquire(ctx context.Context) (func() error, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(l.dir) == "" {
		return nil, fmt.Errorf("lock directory is required")
	}
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock parent %s: %w", l.dir, err)
	}

	lockDir := l.Path()
	err := os.Mkdir(lockDir, 0o755)
	if errors.Is(err, fs.ErrExist) && l.breakStale(lockDir) {
		err = os.Mkdir(lockDir, 0o755)
	}
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			if owner, ok := readOwner(lockDir); ok {
				return nil, fmt.Errorf("%w: %s (pid=%d created_at=%s host=%s)",
					ErrLocked, lockDir, owner.PID, owner.CreatedAt, owner.Hostname)
			}
			return nil, fmt.Errorf("%w: %s", ErrLocked, lockDir)
		}
		return nil, fmt.Errorf("acquire run lock %s: %w", lockDir, err)
	}

	owner := Owner{
		PID:       os.Getpid(),
		CreatedAt: l.now().UTC().Format(time.RFC3339),
		Hostname:  hostnameOrUnknown(),
	}
	data, err := json.Marshal(owner)
	if err == nil {
		err = os.WriteFile(filepath.Join(lockDir, fileLockOwnerFile), data, 0o644)
	}
	if err != nil {
		_ = os.RemoveAll(lockDir)
		return nil, fmt.Errorf("write run lock owner for %s: %w", lockDir, err)
	}

	return func() error { return release(lockDir) }, nil
}

// breakStale removes the lock dir if its owner record is older than staleAfter.
func (l *FileLock) breakStale(lockDir string) bool {
	if l.staleAfter <= 0 {
		return false
	}
	owner, ok := readOwner(lockDir)
	if !ok {
		return false
	}
	created, err := time.Parse(time.RFC3339, owner.CreatedAt)
	if err != nil || l.now().Sub(created) < l.staleAfter {
		return false
	}
	return os.RemoveAll(lockDir) == nil
}

func readOwner(lockDir string) (Owner, bool) {
	data, err := os.ReadFile(filepath.Join(lockDir, fileLockOwnerFile))
	if err != nil {
		return Owner{}, false
	}
	var owner Owner
	if err := json.Unmarshal(data, &owner); err != nil || owner.PID <= 0 || owner.CreatedAt == "" {
		return Owner{}, false
	}
	return owner, true
}

func release(lockDir string) error {
	_ = os.Remove(filepath.Join(lockDir, fileLockOwnerFile))
	if err := os.Remove(lockDir); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("release run lock %s: %w", lockDir, err)
	}
	return nil
}
