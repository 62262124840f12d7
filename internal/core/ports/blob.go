package ports

import (
	"context"
	"io"
)

// BlobStore persists attachment payloads outside the database. Keys are
// grouped per report; implementations must reject names that escape the
// store root.
type BlobStore interface {
	// Save streams the payload to storage, enforcing the byte limit.
	// Returns the stored path and the number of bytes written.
	Save(ctx context.Context, group, name string, r io.Reader, limit int64) (string, int64, error)

	// Open returns a reader over a stored payload.
	Open(path string) (io.ReadCloser, error)

	// Remove deletes a stored payload.
	Remove(path string) error
}
