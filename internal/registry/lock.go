package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"
)

const lockFileName = "publish.lock"

type publishLock struct {
	file *os.File
}

// acquirePublishLock takes an exclusive flock on the registry lock file,
// polling every 100ms until the configured wait elapses.
func (r *Registry) acquirePublishLock() (*publishLock, error) {
	path := filepath.Join(r.dir, lockFileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	deadline := time.Now().Add(r.lockWait)
	for {
		err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
		if err == nil {
			break
		}
		if err != syscall.EWOULDBLOCK {
			f.Close()
			return nil, fmt.Errorf("acquire publish lock: %w", err)
		}
		if time.Now().After(deadline) {
			f.Close()
			return nil, fmt.Errorf("acquire publish lock: timed out after %s (another publish in progress)", r.lockWait)
		}
		time.Sleep(100 * time.Millisecond)
	}

	if err := f.Truncate(0); err == nil {
		fmt.Fprintf(f, "%d\n", os.Getpid())
	}
	return &publishLock{file: f}, nil
}

func (l *publishLock) release() {
	if l.file == nil {
		return
	}
	_ = syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)
	_ = l.file.Close()
	l.file = nil
}
