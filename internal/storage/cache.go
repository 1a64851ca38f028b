// internal/storage/cache.go

// Package storage keeps fetched camera images on local disk. Entries are
// written to a temporary file and renamed into place once complete, so a
// reader never sees a partial image.
package storage

import (
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"
)

// ErrNotCached is returned when an entry is not in the cache.
var ErrNotCached = errors.New("storage: not cached")

// ErrBadName is returned for names that would escape the cache directory.
var ErrBadName = errors.New("storage: invalid entry name")

// Cache is a directory of image blobs keyed by catalog name.
type Cache struct {
	dir    string
	logger *zap.Logger
}

// NewCache creates the cache directory if needed.
func NewCache(dir string, logger *zap.Logger) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &Cache{dir: dir, logger: logger}, nil
}

// Dir returns the cache root.
func (c *Cache) Dir() string { return c.dir }

func (c *Cache) path(name string) (string, error) {
	clean := filepath.Clean("/" + filepath.FromSlash(name))
	if clean == "/" || strings.Contains(name, "\x00") {
		return "", fmt.Errorf("%w: %q", ErrBadName, name)
	}
	return filepath.Join(c.dir, clean), nil
}

// Has reports whether name is cached.
func (c *Cache) Has(name string) bool {
	p, err := c.path(name)
	if err != nil {
		return false
	}
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}

// Open returns the cached blob. The caller closes the file.
func (c *Cache) Open(name string) (*os.File, fs.FileInfo, error) {
	p, err := c.path(name)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil, fmt.Errorf("%s: %w", name, ErrNotCached)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open cached %s: %w", name, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("failed to stat cached %s: %w", name, err)
	}
	return f, info, nil
}

// ReadFile returns the whole cached blob.
func (c *Cache) ReadFile(name string) ([]byte, error) {
	p, err := c.path(name)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", name, ErrNotCached)
	}
	return b, err
}

// Remove deletes a cached entry. Removing a missing entry is not an error.
func (c *Cache) Remove(name string) error {
	p, err := c.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove cached %s: %w", name, err)
	}
	return nil
}

// Put stores data under name in one step and returns its digest.
func (c *Cache) Put(name string, data []byte) (string, error) {
	w, err := c.Create(name)
	if err != nil {
		return "", err
	}
	if err := w.Store(data); err != nil {
		w.Abort()
		return "", err
	}
	return w.Commit()
}

// Create starts a new entry. Nothing is visible under name until Commit.
func (c *Cache) Create(name string) (*Writer, error) {
	p, err := c.path(name)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	f, err := os.CreateTemp(filepath.Dir(p), ".partial-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create cache entry: %w", err)
	}
	h, _ := blake2b.New256(nil)
	return &Writer{cache: c, name: name, path: p, file: f, hash: h}, nil
}

// Writer streams one image into the cache while hashing it.
type Writer struct {
	cache *Cache
	name  string
	path  string
	file  *os.File
	hash  hash.Hash
	size  int64
	done  bool
}

// Store appends a chunk. Its signature matches eph.StoreFunc.
func (w *Writer) Store(chunk []byte) error {
	if w.done {
		return fmt.Errorf("cache entry %s already finished", w.name)
	}
	if _, err := w.file.Write(chunk); err != nil {
		return fmt.Errorf("failed to write cache entry %s: %w", w.name, err)
	}
	w.hash.Write(chunk)
	w.size += int64(len(chunk))
	return nil
}

// Size returns the number of bytes stored so far.
func (w *Writer) Size() int64 { return w.size }

// Commit publishes the entry and returns its hex blake2b-256 digest.
func (w *Writer) Commit() (string, error) {
	if w.done {
		return "", fmt.Errorf("cache entry %s already finished", w.name)
	}
	w.done = true
	tmp := w.file.Name()
	if err := w.file.Close(); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("failed to close cache entry %s: %w", w.name, err)
	}
	if err := os.Chmod(tmp, 0o444); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("failed to chmod cache entry %s: %w", w.name, err)
	}
	if err := os.Rename(tmp, w.path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("failed to commit cache entry %s: %w", w.name, err)
	}
	digest := hex.EncodeToString(w.hash.Sum(nil))
	w.cache.logger.Debug("Cached image",
		zap.String("name", w.name),
		zap.Int64("bytes", w.size),
		zap.String("digest", digest))
	return digest, nil
}

// Abort discards the entry. It is safe to call after Commit.
func (w *Writer) Abort() {
	if w.done {
		return
	}
	w.done = true
	tmp := w.file.Name()
	w.file.Close()
	os.Remove(tmp)
}

// Digest returns the hex blake2b-256 digest of data.
func Digest(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}
