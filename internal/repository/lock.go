package repository

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"syscall"
	"time"
)

// staleAfter is how old a lock may get before another process takes it over.
const staleAfter = 30 * time.Minute

// LockFile is the metadata stored in a lock file.
type LockFile struct {
	PID       int       `json:"pid"`
	Hostname  string    `json:"hostname"`
	Owner     string    `json:"owner"` // e.g. "preferences", "autostart"
	Timestamp time.Time `json:"timestamp"`
}

// FileLock is an advisory flock-based lock guarding a user file that
// several genshell processes may rewrite at once.
type FileLock struct {
	path  string
	file  *os.File
	owner string
}

// NewFileLock creates a lock at path. Nothing is touched until Acquire.
func NewFileLock(path, owner string) *FileLock {
	return &FileLock{
		path:  path,
		owner: owner,
	}
}

// Acquire takes the lock without blocking. A lock left by a dead process
// or older than 30 minutes is taken over.
func (l *FileLock) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}

	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}

	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		if closeErr := file.Close(); closeErr != nil {
			slog.Warn("failed to close lock file", "path", l.path, "error", closeErr)
		}

		existing, readErr := l.readLockFile()
		if readErr == nil && isStale(existing) {
			return l.stealLock()
		}
		if readErr == nil {
			age := time.Since(existing.Timestamp).Round(time.Second)
			return fmt.Errorf("%s locked by %s (PID %d, %v ago)",
				filepath.Base(l.path), existing.Owner, existing.PID, age)
		}
		return fmt.Errorf("failed to acquire lock: %w", err)
	}

	l.file = file

	hostname, _ := os.Hostname()
	data, _ := json.MarshalIndent(LockFile{
		PID:       os.Getpid(),
		Hostname:  hostname,
		Owner:     l.owner,
		Timestamp: time.Now(),
	}, "", "  ")
	if err := file.Truncate(0); err != nil {
		return fmt.Errorf("truncate lock file: %w", err)
	}
	if _, err := file.WriteAt(data, 0); err != nil {
		return fmt.Errorf("write lock metadata: %w", err)
	}

	return nil
}

// Release drops the lock and removes the lock file.
func (l *FileLock) Release() error {
	if l.file == nil {
		return nil
	}

	if err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN); err != nil {
		slog.Warn("failed to release flock", "path", l.path, "error", err)
	}
	if err := l.file.Close(); err != nil {
		slog.Warn("failed to close lock file", "path", l.path, "error", err)
	}
	l.file = nil

	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// withLock runs fn while holding a lock next to path.
func withLock(path, owner string, fn func() error) (err error) {
	lock := NewFileLock(path+".lock", owner)
	if err := lock.Acquire(); err != nil {
		return err
	}
	defer func() {
		if releaseErr := lock.Release(); releaseErr != nil && err == nil {
			err = fmt.Errorf("release lock: %w", releaseErr)
		}
	}()
	return fn()
}

func (l *FileLock) readLockFile() (*LockFile, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, err
	}

	var lock LockFile
	if err := json.Unmarshal(data, &lock); err != nil {
		return nil, err
	}
	return &lock, nil
}

func isStale(lock *LockFile) bool {
	process, err := os.FindProcess(lock.PID)
	if err != nil {
		return true
	}
	// FindProcess always succeeds on Unix; signal 0 probes liveness
	if err := process.Signal(syscall.Signal(0)); err != nil {
		return true
	}
	return time.Since(lock.Timestamp) > staleAfter
}

func (l *FileLock) stealLock() error {
	_ = os.Remove(l.path)
	return l.Acquire()
}
