// Package inmemory provides map-backed repository implementations with the
// same semantics as the PostgreSQL ones, including the atomic conditional
// quota reserve. Service and sweeper tests run against these.
package inmemory

import (
	"context"
	"database/sql"

	"github.com/campusshare/campusshare/internal/dbx"
	"github.com/campusshare/campusshare/internal/server/repositories/accounts"
	"github.com/campusshare/campusshare/internal/server/repositories/contents"
	"github.com/campusshare/campusshare/internal/server/repositories/folders"
)

// RepositoryManager vends the in-memory repositories. The DBTX argument is
// ignored; state lives in the repositories themselves.
type RepositoryManager struct {
	accounts *AccountRepository
	contents *ContentRepository
	folders  *FolderRepository
}

// NewRepositoryManager constructs a manager with empty repositories.
func NewRepositoryManager() *RepositoryManager {
	return &RepositoryManager{
		accounts: NewAccountRepository(),
		contents: NewContentRepository(),
		folders:  NewFolderRepository(),
	}
}

func (m *RepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	return nil
}

func (m *RepositoryManager) Accounts(db dbx.DBTX) accounts.Repository {
	return m.accounts
}

func (m *RepositoryManager) Contents(db dbx.DBTX) contents.Repository {
	return m.contents
}

func (m *RepositoryManager) Folders(db dbx.DBTX) folders.Repository {
	return m.folders
}
