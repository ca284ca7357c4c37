package contents

import (
	"context"
	"time"

	"github.com/campusshare/campusshare/internal/server/models"
)

// Repository persists content metadata (files and clips). The expiry index
// is the expires_at B-tree index behind SelectDue; it lives with the row, so
// it can never diverge from the authoritative expires_at value.
type Repository interface {
	Create(ctx context.Context, entry *models.ContentEntry) error

	// GetByID enforces ownership in the query itself: an entry owned by a
	// different account is indistinguishable from a missing one.
	GetByID(ctx context.Context, id string, accountID string) (*models.ContentEntry, error)

	// Delete removes the metadata row and returns it. Exactly one caller of
	// a racing pair observes the row; the loser gets ErrorNotFound, which is
	// what makes removal idempotent with a single quota decrement.
	Delete(ctx context.Context, id string) (*models.ContentEntry, error)

	// SelectDue returns ids of entries with expires_at <= asOf, oldest
	// first, at most limit of them.
	SelectDue(ctx context.Context, asOf time.Time, limit int) ([]string, error)

	ExtendExpiry(ctx context.Context, id string, accountID string, expiresAt time.Time) error

	ListByAccount(ctx context.Context, accountID string) ([]string, error)
	ListByFolder(ctx context.Context, folderID string) ([]string, error)
	CountClips(ctx context.Context, accountID string) (int64, error)

	// ExistsByStorageKey reports whether any entry references the blob key;
	// used by the sweeper's orphan pass.
	ExistsByStorageKey(ctx context.Context, key string) (bool, error)
}
