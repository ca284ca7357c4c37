package repomanager

import (
	"context"
	"database/sql"

	"github.com/campusshare/campusshare/internal/dbx"
	"github.com/campusshare/campusshare/internal/server/repositories/accounts"
	"github.com/campusshare/campusshare/internal/server/repositories/contents"
	"github.com/campusshare/campusshare/internal/server/repositories/folders"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Accounts(db dbx.DBTX) accounts.Repository
	Contents(db dbx.DBTX) contents.Repository
	Folders(db dbx.DBTX) folders.Repository
}
