package models

import "time"

// ContentKind distinguishes the two instances of the content abstraction:
// uploaded files (binary payload on the blob store, metered against the
// byte quota) and clipboard entries (inline text, metered by character
// count against separate caps).
type ContentKind string

const (
	KindFile ContentKind = "file"
	KindClip ContentKind = "clip"
)

// ContentEntry is one stored file or one clipboard item.
type ContentEntry struct {
	// ID is the opaque content identifier (uuid).
	ID string
	// AccountID is the owning account. Ownership is enforced on every read.
	AccountID string
	// Kind is file or clip.
	Kind ContentKind
	// Name is the user-visible name (original filename or clip title).
	Name string
	// SizeBytes is the payload size for files; 0 for clips.
	SizeBytes int64
	// CharCount is the text length for clips; 0 for files.
	CharCount int64
	// StorageKey locates the physical payload on the blob store (files only).
	StorageKey string
	// Body holds the inline text (clips only).
	Body string
	// FolderID is the containing folder, nil for root-level content.
	FolderID *string
	// CreatedAt is the creation timestamp.
	CreatedAt time.Time
	// ExpiresAt is CreatedAt plus the retention window. Content past this
	// instant is removed by the reconciliation sweeper.
	ExpiresAt time.Time
}

// IsFile reports whether the entry carries a blob-store payload.
func (e *ContentEntry) IsFile() bool {
	return e.Kind == KindFile
}
