// Package storage keeps downloaded judgment documents on local disk.
package storage

import (
	"crypto/rand"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/JustJay7/court-data-service/pkg/logger"
	"github.com/oklog/ulid/v2"
)

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// StoredFile describes a document written by FileStore.
type StoredFile struct {
	Filename string
	Path     string
	Size     int64
}

// FileStore writes documents below a root directory, grouped into
// YYYY/MM subdirectories.
type FileStore struct {
	root    string
	logger  *logger.Logger
	now     func() time.Time
	mu      sync.Mutex
	entropy io.Reader
}

func NewFileStore(root string, logger *logger.Logger) (*FileStore, error) {
	if root == "" {
		return nil, fmt.Errorf("download directory is not set")
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create download directory: %w", err)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	return &FileStore{
		root:    abs,
		logger:  logger.With("component", "FileStore"),
		now:     time.Now,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}, nil
}

// Root returns the absolute storage directory.
func (s *FileStore) Root() string { return s.root }

// Save writes data as a new judgment file for queryID.
func (s *FileStore) Save(queryID uint, data []byte) (*StoredFile, error) {
	now := s.now().UTC()
	dir := filepath.Join(s.root, fmt.Sprintf("%d", now.Year()), fmt.Sprintf("%02d", now.Month()))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	s.mu.Lock()
	id, err := ulid.New(ulid.Timestamp(now), s.entropy)
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to generate file id: %w", err)
	}

	filename := SanitizeFilename(fmt.Sprintf("judgment_%d_%s.pdf", queryID, id.String()))
	fullPath := filepath.Join(dir, filename)

	file, err := os.OpenFile(fullPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	size, err := file.Write(data)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(fullPath)
		return nil, fmt.Errorf("failed to save file: %w", err)
	}

	s.logger.Info("Judgment saved", "query_id", queryID, "size", size, "path", fullPath)
	return &StoredFile{Filename: filename, Path: fullPath, Size: int64(size)}, nil
}

// Open opens a stored file. Paths outside the storage root are refused.
func (s *FileStore) Open(path string) (*os.File, error) {
	clean, err := s.contain(path)
	if err != nil {
		return nil, err
	}
	return os.Open(clean)
}

// Remove deletes a stored file. Missing files are not an error.
func (s *FileStore) Remove(path string) error {
	clean, err := s.contain(path)
	if err != nil {
		return err
	}
	if err := os.Remove(clean); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *FileStore) contain(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(s.root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q is outside the download directory", path)
	}
	return abs, nil
}

// SanitizeFilename replaces characters that are unsafe in file names.
func SanitizeFilename(name string) string {
	name = filepath.Base(name)
	name = unsafeChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		return "document"
	}
	return name
}
