package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/imedaveo16/imed-dz/internal/core/ports"
)

var (
	// ErrPayloadTooLarge indicates the payload exceeded the byte limit.
	ErrPayloadTooLarge = errors.New("payload exceeds the size limit")

	// ErrInvalidPath indicates a path that escapes the store root.
	ErrInvalidPath = errors.New("invalid blob path")
)

// DiskStore implements ports.BlobStore on the local filesystem. Payloads are
// laid out as <base>/<group>/<year>/<month>/<uuid><ext> and referenced by
// their path relative to the base directory.
type DiskStore struct {
	baseDir string
}

// NewDiskStore creates the store, ensuring the base directory exists.
func NewDiskStore(baseDir string) (*DiskStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create blob directory: %w", err)
	}
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, err
	}
	return &DiskStore{baseDir: abs}, nil
}

// Save streams the payload to disk, enforcing the byte limit.
func (s *DiskStore) Save(ctx context.Context, group, name string, r io.Reader, limit int64) (string, int64, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}

	dir := filepath.Join(s.baseDir, sanitizeSegment(group), time.Now().UTC().Format("2006/01"))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", 0, fmt.Errorf("failed to create payload directory: %w", err)
	}

	filename := uuid.New().String() + sanitizeExt(name)
	fullPath := filepath.Join(dir, filename)

	f, err := os.Create(fullPath)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create payload file: %w", err)
	}

	// Read one byte past the limit to detect oversize payloads.
	written, err := io.Copy(f, io.LimitReader(r, limit+1))
	closeErr := f.Close()
	if err != nil {
		os.Remove(fullPath)
		return "", 0, fmt.Errorf("failed to write payload: %w", err)
	}
	if closeErr != nil {
		os.Remove(fullPath)
		return "", 0, closeErr
	}
	if written > limit {
		os.Remove(fullPath)
		return "", 0, ErrPayloadTooLarge
	}

	rel, err := filepath.Rel(s.baseDir, fullPath)
	if err != nil {
		os.Remove(fullPath)
		return "", 0, err
	}
	return filepath.ToSlash(rel), written, nil
}

// Open returns a reader over a stored payload.
func (s *DiskStore) Open(path string) (io.ReadCloser, error) {
	full, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	return os.Open(full)
}

// Remove deletes a stored payload.
func (s *DiskStore) Remove(path string) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	return os.Remove(full)
}

// resolve maps a stored relative path back to an absolute one, rejecting
// anything that would escape the base directory.
func (s *DiskStore) resolve(path string) (string, error) {
	if path == "" {
		return "", ErrInvalidPath
	}
	full := filepath.Join(s.baseDir, filepath.FromSlash(path))
	full = filepath.Clean(full)
	if !strings.HasPrefix(full, s.baseDir+string(os.PathSeparator)) {
		return "", ErrInvalidPath
	}
	return full, nil
}

// sanitizeSegment keeps directory names to a safe charset.
func sanitizeSegment(segment string) string {
	var b strings.Builder
	for _, r := range segment {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "misc"
	}
	return b.String()
}

// sanitizeExt extracts a safe lowercase extension from the client filename.
func sanitizeExt(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if len(ext) > 8 {
		return ""
	}
	for _, r := range ext {
		if r != '.' && (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}

// Ensure interface compliance
var _ ports.BlobStore = (*DiskStore)(nil)
