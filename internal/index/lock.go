package index

import (
	"fmt"
	"os"
)

// RebuildLock is held for the duration of a full reindex.
type RebuildLock struct {
	file *os.File
}

// AcquireRebuildLock takes the exclusive rebuild lock next to the database
// file. It returns ErrIndexLocked when another process holds it. Databases
// without a local file (in-memory, libsql) get a no-op lock.
func (d *Database) AcquireRebuildLock() (*RebuildLock, error) {
	if d.lockPath == "" {
		return &RebuildLock{}, nil
	}

	f, err := os.OpenFile(d.lockPath, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open rebuild lock: %w", err)
	}
	if err := tryLockExclusive(f); err != nil {
		f.Close()
		if lockContended(err) {
			return nil, ErrIndexLocked
		}
		return nil, fmt.Errorf("failed to acquire rebuild lock: %w", err)
	}
	return &RebuildLock{file: f}, nil
}

// Release drops the lock. Safe to call on a nil or no-op lock.
func (l *RebuildLock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	unlockErr := releaseLock(l.file)
	closeErr := l.file.Close()
	l.file = nil
	if unlockErr != nil {
		return unlockErr
	}
	return closeErr
}
