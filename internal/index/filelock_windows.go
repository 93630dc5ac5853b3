//go:build windows

package index

import (
	"errors"
	"os"

	"golang.org/x/sys/windows"
)

const rebuildLockRegion uint32 = 1

func tryLockExclusive(f *os.File) error {
	var ol windows.Overlapped
	return windows.LockFileEx(
		windows.Handle(f.Fd()),
		windows.LOCKFILE_EXCLUSIVE_LOCK|windows.LOCKFILE_FAIL_IMMEDIATELY,
		0,
		rebuildLockRegion,
		0,
		&ol,
	)
}

func releaseLock(f *os.File) error {
	var ol windows.Overlapped
	return windows.UnlockFileEx(windows.Handle(f.Fd()), 0, rebuildLockRegion, 0, &ol)
}

func lockContended(err error) bool {
	return errors.Is(err, windows.ERROR_LOCK_VIOLATION) ||
		errors.Is(err, windows.ERROR_SHARING_VIOLATION)
}
