package settings

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

const (
	lockSuffix       = ".lock"
	tmpPattern       = ".tmp-*"
	lockRetryDelay   = 10 * time.Millisecond
	defaultLockWait  = 5 * time.Second
	settingsFileMode = 0644
)

// Storage reads and writes the persisted settings blob.
type Storage interface {
	// Read returns the stored blob, or nil when nothing has been stored yet.
	Read(ctx context.Context) ([]byte, error)
	// Write replaces the stored blob.
	Write(ctx context.Context, data []byte) error
}

// FileStorage keeps the settings blob in a single JSON file. Writes are
// serialized across processes with a lock file and are atomic.
type FileStorage struct {
	path     string
	lockWait time.Duration
}

// NewFileStorage creates a FileStorage for the file at path.
func NewFileStorage(path string) *FileStorage {
	return &FileStorage{
		path:     path,
		lockWait: defaultLockWait,
	}
}

// Path returns the settings file path.
func (s *FileStorage) Path() string {
	return s.path
}

// Read loads the settings file. A missing file is not an error.
func (s *FileStorage) Read(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}
	return data, nil
}

// Write stores data under an exclusive file lock.
func (s *FileStorage) Write(ctx context.Context, data []byte) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	lockCtx, cancel := context.WithTimeout(ctx, s.lockWait)
	defer cancel()

	fileLock := flock.New(s.path + lockSuffix)
	locked, err := fileLock.TryLockContext(lockCtx, lockRetryDelay)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrSettingsLocked
		}
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !locked {
		return ErrSettingsLocked
	}
	defer fileLock.Unlock()

	if err := atomicWrite(s.path, data); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}
	return nil
}

// atomicWrite writes data to a file atomically using a temp file and rename
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)

	tmpFile, err := os.CreateTemp(dir, tmpPattern)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	tmpPath := tmpFile.Name()
	defer func() {
		tmpFile.Close()
		os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}

	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}

	if err := tmpFile.Chmod(settingsFileMode); err != nil {
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}

	tmpFile.Close()

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}
