package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/gofrs/flock"
)

// FileStorage stores every key in a single JSON object file.
//
// Each operation takes a flock on "<path>.lock" so several processes can share one cache file.
// Writes go to a temp file and are renamed into place. A Flock is not safe to share between
// goroutines, so mu serializes access within the process.
type FileStorage struct {
	mu       sync.Mutex
	path     string
	lock     *flock.Flock
	maxBytes int64
}

// NewFileStorage opens (without creating) the file at path. maxBytes <= 0 disables the quota.
func NewFileStorage(path string, maxBytes int64) (*FileStorage, error) {
	if path == "" {
		return nil, fmt.Errorf("file storage requires a path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &FileStorage{
		path:     path,
		lock:     flock.New(path + ".lock"),
		maxBytes: maxBytes,
	}, nil
}

// Path returns the backing file path.
func (f *FileStorage) Path() string { return f.path }

func (f *FileStorage) GetItem(key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.lock.RLock(); err != nil {
		return "", false, fmt.Errorf("acquire lock: %w", err)
	}
	defer f.lock.Unlock()

	items, err := f.load()
	if err != nil {
		return "", false, err
	}
	v, ok := items[key]
	return v, ok, nil
}

func (f *FileStorage) SetItem(key, value string) error {
	return f.update(func(items map[string]string) { items[key] = value })
}

func (f *FileStorage) RemoveItem(key string) error {
	return f.update(func(items map[string]string) { delete(items, key) })
}

func (f *FileStorage) Keys() ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.lock.RLock(); err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	defer f.lock.Unlock()

	items, err := f.load()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(items))
	for k := range items {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys, nil
}

func (f *FileStorage) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.lock.Close()
}

func (f *FileStorage) update(mutate func(map[string]string)) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.lock.Lock(); err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	defer f.lock.Unlock()

	items, err := f.load()
	if err != nil {
		return err
	}
	mutate(items)

	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode storage file: %w", err)
	}
	if f.maxBytes > 0 && int64(len(data)) > f.maxBytes {
		return fmt.Errorf("%w: %d bytes > %d", ErrQuotaExceeded, len(data), f.maxBytes)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write storage file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write storage file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("failed to replace storage file: %w", err)
	}
	return nil
}

// load reads the file; a missing file is an empty store, an unreadable one is [ErrCorrupt].
func (f *FileStorage) load() (map[string]string, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return make(map[string]string), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read storage file: %w", err)
	}

	items := make(map[string]string)
	if len(data) == 0 {
		return items, nil
	}
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, f.path, err)
	}
	return items, nil
}
