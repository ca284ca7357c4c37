// Package folders provides the PostgreSQL-backed folder tree.
package folders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/campusshare/campusshare/internal/common"
	"github.com/campusshare/campusshare/internal/dbx"
	"github.com/campusshare/campusshare/internal/server/models"
)

// PostgresRepository implements folder storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a folder node.
func (r *PostgresRepository) Create(ctx context.Context, folder *models.Folder) error {
	query := `
		INSERT INTO folders (id, account_id, parent_id, name)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.db.ExecContext(ctx, query, folder.ID, folder.AccountID, folder.ParentID, folder.Name)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// GetByID returns the folder iff it exists and belongs to accountID.
func (r *PostgresRepository) GetByID(ctx context.Context, id string, accountID string) (*models.Folder, error) {
	query := ` SELECT id, account_id, parent_id, name, created_at from folders
		WHERE id=$1 and account_id=$2
		`

	folder := &models.Folder{}
	err := r.db.QueryRowContext(ctx, query, id, accountID).Scan(
		&folder.ID, &folder.AccountID, &folder.ParentID, &folder.Name, &folder.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return folder, nil
}

// ListChildren returns the ids of folders whose parent is parentID.
func (r *PostgresRepository) ListChildren(ctx context.Context, parentID string) ([]string, error) {
	query := ` SELECT id from folders
		WHERE parent_id=$1
		`
	return r.selectIDs(ctx, query, parentID)
}

// ListByAccount returns the ids of all folders the account owns.
func (r *PostgresRepository) ListByAccount(ctx context.Context, accountID string) ([]string, error) {
	query := ` SELECT id from folders
		WHERE account_id=$1
		`
	return r.selectIDs(ctx, query, accountID)
}

func (r *PostgresRepository) selectIDs(ctx context.Context, query string, arg any) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to select folders: %w", err)
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

// AncestorChain walks parent pointers from folderID to the root with a
// recursive CTE. The first element is folderID itself.
func (r *PostgresRepository) AncestorChain(ctx context.Context, folderID string) ([]string, error) {
	query := `
		WITH RECURSIVE chain AS (
			SELECT id, parent_id, 0 AS depth FROM folders WHERE id=$1
			UNION ALL
			SELECT f.id, f.parent_id, c.depth+1 FROM folders f JOIN chain c ON f.id = c.parent_id
		)
		SELECT id FROM chain ORDER BY depth
	`
	rows, err := r.db.QueryContext(ctx, query, folderID)
	if err != nil {
		return nil, fmt.Errorf("failed to select ancestor chain: %w", err)
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
	if len(result) == 0 {
		return nil, common.ErrorNotFound
	}
	return result, nil
}

// SetParent reparents an owned folder. The cycle check happens in the
// service before this call.
func (r *PostgresRepository) SetParent(ctx context.Context, id string, accountID string, parentID *string) error {
	query := `UPDATE folders SET parent_id=$3 WHERE id=$1 and account_id=$2`

	result, err := r.db.ExecContext(ctx, query, id, accountID, parentID)
	if err != nil {
		return fmt.Errorf("failed to set parent: %w", err)
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

// DeleteByAccount removes every folder the account owns. Parent and child
// rows go in the same statement, so the self-referencing constraint holds.
func (r *PostgresRepository) DeleteByAccount(ctx context.Context, accountID string) error {
	query := `DELETE FROM folders WHERE account_id=$1`

	_, err := r.db.ExecContext(ctx, query, accountID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Delete removes a folder node. Children and content must already be gone.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM folders WHERE id=$1`

	result, err := r.db.ExecContext(ctx, query, id)
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
