package folders

import (
	"context"

	"github.com/campusshare/campusshare/internal/server/models"
)

// Repository persists the per-account folder tree.
type Repository interface {
	Create(ctx context.Context, folder *models.Folder) error
	GetByID(ctx context.Context, id string, accountID string) (*models.Folder, error)

	// ListChildren returns ids of the folders directly under parentID.
	ListChildren(ctx context.Context, parentID string) ([]string, error)

	// ListByAccount returns ids of every folder the account owns.
	ListByAccount(ctx context.Context, accountID string) ([]string, error)

	// AncestorChain returns the ids on the path from folderID up to the
	// root, starting with folderID itself. Move uses it to reject
	// reparenting a folder under its own descendant.
	AncestorChain(ctx context.Context, folderID string) ([]string, error)

	SetParent(ctx context.Context, id string, accountID string, parentID *string) error
	Delete(ctx context.Context, id string) error

	// DeleteByAccount drops an account's whole tree in one statement;
	// used only by the account deletion cascade after all content is gone.
	DeleteByAccount(ctx context.Context, accountID string) error
}
