// Package blob stores physical payloads. Each uploaded file lives under a
// random storage key; the metadata row in content_entries is the only thing
// that references it.
package blob

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
)

// Object describes one stored payload, as seen by the orphan scan.
type Object struct {
	Key     string
	Size    int64
	ModTime time.Time
}

// Store is the payload storage contract shared by the filesystem and S3
// backends. Delete treats an already-absent key as success so that removal
// stays idempotent end to end.
type Store interface {
	// Save writes the payload under key and returns the byte count written.
	// A partially written payload is removed on failure.
	Save(ctx context.Context, key string, r io.Reader) (int64, error)

	// Open returns a reader over the payload.
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the payload. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// List enumerates every stored payload, for orphan reconciliation.
	List(ctx context.Context) ([]Object, error)
}

// RandomKey produces a date-sharded random storage key, e.g.
// "2026/8/30/9f1c...". Sharding by date keeps directory fanout bounded and
// gives the orphan scan a cheap notion of payload age on backends without
// reliable mod times.
func RandomKey(now time.Time) string {
	return fmt.Sprintf("%d/%d/%d/%v", now.Year(), int(now.Month()), now.Day(), uuid.New())
}
