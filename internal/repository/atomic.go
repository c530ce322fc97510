package repository

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// FileTx replaces one file atomically. Content is staged in a sibling temp
// file and swapped in on Commit; the previous version is kept as a backup
// until the swap succeeds.
type FileTx struct {
	path       string
	tempPath   string
	backupPath string
	perm       os.FileMode
	staged     bool
	committed  bool
}

// NewFileTx starts a transaction for path. A symlinked path is resolved
// first so the link stays in place and its target is replaced.
func NewFileTx(path string, perm os.FileMode) *FileTx {
	path = resolveLink(path)
	stamp := time.Now().UnixNano()
	return &FileTx{
		path:       path,
		tempPath:   fmt.Sprintf("%s.tmp.%d", path, stamp),
		backupPath: fmt.Sprintf("%s.backup.%d", path, stamp),
		perm:       perm,
	}
}

// Write stages content. It may be called more than once; the last call wins.
func (tx *FileTx) Write(content []byte) error {
	if tx.committed {
		return errors.New("transaction already committed")
	}
	if err := os.MkdirAll(filepath.Dir(tx.path), 0o755); err != nil {
		return fmt.Errorf("create parent directory: %w", err)
	}

	f, err := os.OpenFile(tx.tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, tx.perm)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := f.Write(content); err != nil {
		_ = f.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	tx.staged = true
	return nil
}

// Commit swaps the staged content into place.
func (tx *FileTx) Commit() error {
	if tx.committed {
		return errors.New("transaction already committed")
	}
	if !tx.staged {
		return errors.New("nothing staged")
	}

	hadOriginal := false
	if _, err := os.Stat(tx.path); err == nil {
		if err := os.Rename(tx.path, tx.backupPath); err != nil {
			return fmt.Errorf("backup original: %w", err)
		}
		hadOriginal = true
	}

	if err := os.Rename(tx.tempPath, tx.path); err != nil {
		if hadOriginal {
			if restoreErr := os.Rename(tx.backupPath, tx.path); restoreErr != nil {
				return fmt.Errorf("commit failed: %w (restore failed: %v, backup at %s)", err, restoreErr, tx.backupPath)
			}
		}
		return fmt.Errorf("commit failed: %w", err)
	}

	if hadOriginal {
		_ = os.Remove(tx.backupPath)
	}
	tx.committed = true
	return nil
}

// Rollback discards staged content. A committed transaction is left alone.
func (tx *FileTx) Rollback() error {
	if tx.committed {
		return nil
	}
	if err := os.Remove(tx.tempPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove temp file: %w", err)
	}
	tx.staged = false
	return nil
}

// resolveLink follows symlinks at path, including a dangling final link.
// Paths that are not links, or cannot be read, are returned unchanged.
func resolveLink(path string) string {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return resolved
	}
	for range maxLinkHops {
		target, err := os.Readlink(path)
		if err != nil {
			return path
		}
		if !filepath.IsAbs(target) {
			target = filepath.Join(filepath.Dir(path), target)
		}
		path = target
	}
	return path
}

const maxLinkHops = 40

// WriteFileAtomic replaces path with content in one step.
func WriteFileAtomic(path string, content []byte, perm os.FileMode) error {
	tx := NewFileTx(path, perm)
	if err := tx.Write(content); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		_ = tx.Rollback()
		return err
	}
	return nil
}
