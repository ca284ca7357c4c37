// Package contents provides the PostgreSQL-backed content store for files
// and clipboard entries.
package contents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/campusshare/campusshare/internal/common"
	"github.com/campusshare/campusshare/internal/dbx"
	"github.com/campusshare/campusshare/internal/server/models"
)

// PostgresRepository implements content storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new entry. The expiry timestamp is computed by the
// service layer; this method stores it verbatim.
func (r *PostgresRepository) Create(ctx context.Context, entry *models.ContentEntry) error {
	query := `
		INSERT INTO content_entries (id, account_id, kind, name, size_bytes, char_count, storage_key, body, folder_id, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	res, err := r.db.ExecContext(ctx, query,
		entry.ID, entry.AccountID, entry.Kind, entry.Name, entry.SizeBytes, entry.CharCount,
		entry.StorageKey, entry.Body, entry.FolderID, entry.CreatedAt, entry.ExpiresAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n != 1 {
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
	return nil
}

// GetByID returns the entry iff it exists and belongs to accountID.
func (r *PostgresRepository) GetByID(ctx context.Context, id string, accountID string) (*models.ContentEntry, error) {
	query := ` SELECT id, account_id, kind, name, size_bytes, char_count, storage_key, body, folder_id, created_at, expires_at from content_entries
		WHERE id=$1 and account_id=$2
		`

	entry := &models.ContentEntry{}
	err := r.db.QueryRowContext(ctx, query, id, accountID).Scan(
		&entry.ID, &entry.AccountID, &entry.Kind, &entry.Name, &entry.SizeBytes, &entry.CharCount,
		&entry.StorageKey, &entry.Body, &entry.FolderID, &entry.CreatedAt, &entry.ExpiresAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return entry, nil
}

// Delete removes the row and hands back what was removed so the caller can
// release the blob and the quota. A second delete of the same id finds no
// row and gets ErrorNotFound.
func (r *PostgresRepository) Delete(ctx context.Context, id string) (*models.ContentEntry, error) {
	query := `DELETE FROM content_entries WHERE id=$1
		RETURNING id, account_id, kind, name, size_bytes, char_count, storage_key, folder_id, expires_at
		`

	entry := &models.ContentEntry{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&entry.ID, &entry.AccountID, &entry.Kind, &entry.Name, &entry.SizeBytes, &entry.CharCount,
		&entry.StorageKey, &entry.FolderID, &entry.ExpiresAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return entry, nil
}

// SelectDue returns ids of entries due for removal as of asOf, oldest first,
// so a partial sweep frees the most-overdue space before anything else.
func (r *PostgresRepository) SelectDue(ctx context.Context, asOf time.Time, limit int) ([]string, error) {
	query := ` SELECT id from content_entries
		WHERE expires_at<=$1
		ORDER BY expires_at ASC
		LIMIT $2
		`
	rows, err := r.db.QueryContext(ctx, query, asOf, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select due entries: %w", err)
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		result = append(result, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ExtendExpiry rewrites expires_at for an owned entry. The expires_at index
// is updated with the row.
func (r *PostgresRepository) ExtendExpiry(ctx context.Context, id string, accountID string, expiresAt time.Time) error {
	query := `UPDATE content_entries SET expires_at=$3 WHERE id=$1 and account_id=$2`

	result, err := r.db.ExecContext(ctx, query, id, accountID, expiresAt)
	if err != nil {
		return fmt.Errorf("failed to extend expiry: %w", err)
	}
	ra, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra == 0 {
		return common.ErrorNotFound
	}
	return nil
}

// ListByAccount returns all entry ids owned by accountID.
func (r *PostgresRepository) ListByAccount(ctx context.Context, accountID string) ([]string, error) {
	query := ` SELECT id from content_entries
		WHERE account_id=$1
		`
	return r.selectIDs(ctx, query, accountID)
}

// ListByFolder returns entry ids stored directly in the folder.
func (r *PostgresRepository) ListByFolder(ctx context.Context, folderID string) ([]string, error) {
	query := ` SELECT id from content_entries
		WHERE folder_id=$1
		`
	return r.selectIDs(ctx, query, folderID)
}

func (r *PostgresRepository) selectIDs(ctx context.Context, query string, arg any) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to select entries: %w", err)
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		result = append(result, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// CountClips returns the number of clip entries the account currently holds.
func (r *PostgresRepository) CountClips(ctx context.Context, accountID string) (int64, error) {
	query := `SELECT count(*) from content_entries WHERE account_id=$1 and kind='clip'`

	var n int64
	if err := r.db.QueryRowContext(ctx, query, accountID).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

// ExistsByStorageKey reports whether any entry references the given blob key.
func (r *PostgresRepository) ExistsByStorageKey(ctx context.Context, key string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 from content_entries WHERE storage_key=$1)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, key).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}
