// Package accounts provides the PostgreSQL-backed quota ledger. The
// conditional UPDATE in Reserve is the only admission check: reservation and
// commit are one atomic statement, so two racing uploads on a near-full
// account cannot both pass.
package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/campusshare/campusshare/internal/common"
	"github.com/campusshare/campusshare/internal/dbx"
	"github.com/campusshare/campusshare/internal/server/models"
)

// PostgresRepository implements the quota ledger over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new account row and returns it with CreatedAt populated.
func (r *PostgresRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {

	query :=
		`INSERT INTO accounts (id, name, storage_used_bytes, storage_limit_bytes)
         VALUES ($1, $2, $3, $4)
		 RETURNING created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		account.ID, account.Name, account.StorageUsedBytes, account.StorageLimitBytes).Scan(&account.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return account, nil
}

// GetByID returns the account with its current ledger values.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	query :=
		`SELECT id, name, storage_used_bytes, storage_limit_bytes, created_at FROM accounts
		 WHERE id = $1
		 `

	account := &models.Account{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&account.ID, &account.Name, &account.StorageUsedBytes, &account.StorageLimitBytes, &account.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return account, nil
}

// Reserve applies a single conditional increment: the row is updated only if
// the new usage fits the limit. Zero rows affected means either the account
// is missing or the quota is exhausted; a follow-up read disambiguates and
// supplies the used/limit figures for the rejection.
func (r *PostgresRepository) Reserve(ctx context.Context, accountID string, bytes int64) error {
	query :=
		`UPDATE accounts SET storage_used_bytes = storage_used_bytes + $2
		 WHERE id = $1 AND storage_used_bytes + $2 <= storage_limit_bytes
		 RETURNING storage_used_bytes
		 `

	var used int64
	err := r.db.QueryRowContext(ctx, query, accountID, bytes).Scan(&used)

	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("db error: %w", err)
	}

	account, err := r.GetByID(ctx, accountID)
	if err != nil {
		return err
	}

	return &common.QuotaExceededError{
		Requested: bytes,
		Used:      account.StorageUsedBytes,
		Limit:     account.StorageLimitBytes,
	}
}

// Release decrements usage with a clamp at zero. The previous value is
// captured in the same statement so the caller learns whether the decrement
// was short (ledger drift); drift is reported, never fatal.
func (r *PostgresRepository) Release(ctx context.Context, accountID string, bytes int64) (bool, error) {
	query :=
		`UPDATE accounts AS a SET storage_used_bytes = GREATEST(a.storage_used_bytes - $2, 0)
		 FROM (SELECT id, storage_used_bytes AS prev_used FROM accounts WHERE id = $1 FOR UPDATE) prev
		 WHERE a.id = prev.id
		 RETURNING prev.prev_used
		 `

	var prevUsed int64
	err := r.db.QueryRowContext(ctx, query, accountID, bytes).Scan(&prevUsed)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, common.ErrorNotFound
		}
		return false, fmt.Errorf("db error: %w", err)
	}

	return prevUsed < bytes, nil
}

// SettleUsage zeroes the ledger as the final step of account deletion.
func (r *PostgresRepository) SettleUsage(ctx context.Context, accountID string) error {
	query := `UPDATE accounts SET storage_used_bytes = 0 WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, accountID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	ra, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if ra == 0 {
		return common.ErrorNotFound
	}
	return nil
}

// Delete removes the account row. Content rows must already be gone.
func (r *PostgresRepository) Delete(ctx context.Context, accountID string) error {
	query := `DELETE FROM accounts WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, accountID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	ra, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if ra == 0 {
		return common.ErrorNotFound
	}
	return nil
}
