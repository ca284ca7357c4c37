package inmemory

import (
	"context"
	"sync"
	"time"

	"github.com/campusshare/campusshare/internal/common"
	"github.com/campusshare/campusshare/internal/server/models"
)

// AccountRepository is the in-memory quota ledger. Reserve performs the
// check and the increment under one lock, mirroring the conditional UPDATE
// of the PostgreSQL ledger.
type AccountRepository struct {
	mu       sync.Mutex
	accounts map[string]*models.Account
}

func NewAccountRepository() *AccountRepository {
	return &AccountRepository{accounts: make(map[string]*models.Account)}
}

func (r *AccountRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	account.CreatedAt = time.Now()
	cp := *account
	r.accounts[account.ID] = &cp
	return account, nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.accounts[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *AccountRepository) Reserve(ctx context.Context, accountID string, bytes int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.accounts[accountID]
	if !ok {
		return common.ErrorNotFound
	}
	if a.StorageUsedBytes+bytes > a.StorageLimitBytes {
		return &common.QuotaExceededError{
			Requested: bytes,
			Used:      a.StorageUsedBytes,
			Limit:     a.StorageLimitBytes,
		}
	}
	a.StorageUsedBytes += bytes
	return nil
}

func (r *AccountRepository) Release(ctx context.Context, accountID string, bytes int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.accounts[accountID]
	if !ok {
		return false, common.ErrorNotFound
	}
	drift := a.StorageUsedBytes < bytes
	a.StorageUsedBytes -= bytes
	if a.StorageUsedBytes < 0 {
		a.StorageUsedBytes = 0
	}
	return drift, nil
}

func (r *AccountRepository) SettleUsage(ctx context.Context, accountID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.accounts[accountID]
	if !ok {
		return common.ErrorNotFound
	}
	a.StorageUsedBytes = 0
	return nil
}

func (r *AccountRepository) Delete(ctx context.Context, accountID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.accounts[accountID]; !ok {
		return common.ErrorNotFound
	}
	delete(r.accounts, accountID)
	return nil
}
