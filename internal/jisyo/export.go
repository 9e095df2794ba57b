package jisyo

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var ErrAtomicWriteFailed = errors.New("jisyo: atomic write failed")

// FileExporter is a Persister that mirrors a layer into an SKK text file.
// Every mutation rewrites the whole file through a temporary file and a
// rename while holding an exclusive lock on <path>.lock.
type FileExporter struct {
	mu    sync.Mutex
	path  string
	perm  os.FileMode
	layer Layer
	json  bool
}

// NewFileExporter creates an exporter writing layer to path. Paths ending in
// ".json" are written in the JSON layout.
func NewFileExporter(path string, layer Layer) *FileExporter {
	return &FileExporter{
		path:  path,
		perm:  0600,
		layer: layer,
		json:  strings.HasSuffix(path, ".json"),
	}
}

// Path returns the destination file.
func (e *FileExporter) Path() string {
	return e.path
}

// SaveEntry implements Persister. The layer already holds the new list, so
// the arguments are only used to decide that a write is needed.
func (e *FileExporter) SaveEntry(string, []Candidate) error {
	return e.Export()
}

// DeleteEntry implements Persister.
func (e *FileExporter) DeleteEntry(string) error {
	return e.Export()
}

// Export writes the current layer contents.
func (e *FileExporter) Export() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var buf bytes.Buffer
	var err error
	if e.json {
		err = WriteJSON(&buf, e.layer)
	} else {
		err = WriteJisyo(&buf, e.layer)
	}
	if err != nil {
		return fmt.Errorf("encode dictionary: %w", err)
	}
	return writeFileAtomic(e.path, buf.Bytes(), e.perm)
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	lock, err := os.OpenFile(path+".lock", os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}
	defer lock.Close()
	if err := lockFile(lock); err != nil {
		return fmt.Errorf("lock %s: %w", path, err)
	}
	defer unlockFile(lock)

	tempPath := path + ".tmp." + randomSuffix()
	f, err := os.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tempPath)
		return fmt.Errorf("write: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tempPath)
		return fmt.Errorf("sync: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("close: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("%w: %v", ErrAtomicWriteFailed, err)
	}
	return nil
}

func randomSuffix() string {
	var b [8]byte
	rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
