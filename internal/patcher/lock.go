package patcher

import (
	"fmt"
	"os"
	"path/filepath"

	"sentryd/internal/errs"
)

const lockFileName = "sentryd.lock"

// lock is an advisory single-writer-per-project lock: a file created with
// O_EXCL in the backup directory. It is not a kernel-level flock — another
// sentryd process honoring the same convention is required for it to mean
// anything, which is the case for every entry point into the Patcher.
type lock struct {
	path string
}

// acquireLock creates backupDir if needed and claims the lock file inside
// it, failing if another run already holds it.
func acquireLock(backupDir string) (*lock, error) {
	if err := os.MkdirAll(backupDir, 0o755); err != nil {
		return nil, errs.Wrap(errs.KindIOError, err, "creating backup directory %s", backupDir)
	}
	path := filepath.Join(backupDir, lockFileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, errs.New(errs.KindIOError, "another patcher run holds the lock at %s", path)
		}
		return nil, errs.Wrap(errs.KindIOError, err, "acquiring patcher lock")
	}
	fmt.Fprintf(f, "pid=%d\n", os.Getpid())
	f.Close()
	return &lock{path: path}, nil
}

// release removes the lock file. Safe to call even if the file was already
// removed out-of-band.
func (l *lock) release() error {
	if l == nil {
		return nil
	}
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return errs.Wrap(errs.KindIOError, err, "releasing patcher lock")
	}
	return nil
}
