package accounts

import (
	"context"

	"github.com/campusshare/campusshare/internal/server/models"
)

// Repository is the quota ledger: the single writer of an account's
// storage_used_bytes. All byte accounting goes through Reserve/Release.
type Repository interface {
	Create(ctx context.Context, account *models.Account) (*models.Account, error)
	GetByID(ctx context.Context, id string) (*models.Account, error)

	// Reserve atomically adds bytes to the account's usage iff the result
	// stays within the limit. Returns a *common.QuotaExceededError
	// (matching common.ErrorOverQuota) when there is no room.
	Reserve(ctx context.Context, accountID string, bytes int64) error

	// Release subtracts bytes from the account's usage, clamped at zero.
	// The returned drift flag is true when the decrement would have gone
	// negative, which indicates earlier accounting drift.
	Release(ctx context.Context, accountID string, bytes int64) (drift bool, err error)

	// SettleUsage forces usage to zero; used only by account deletion.
	SettleUsage(ctx context.Context, accountID string) error

	Delete(ctx context.Context, accountID string) error
}
