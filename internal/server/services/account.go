package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/campusshare/campusshare/internal/common"
	"github.com/campusshare/campusshare/internal/dbx"
	"github.com/campusshare/campusshare/internal/logging"
	sc "github.com/campusshare/campusshare/internal/server/config"
	"github.com/campusshare/campusshare/internal/server/models"
	"github.com/campusshare/campusshare/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// AccountService manages account lifecycle. Deleting an account cascades
// over all its content through the single Remove path, then settles the
// ledger to zero before the row disappears.
type AccountService struct {
	db      *sql.DB
	repos   repomanager.RepositoryManager
	content *ContentService
	config  *sc.Config
	logger  logging.Logger
}

// NewAccountService wires the account service.
func NewAccountService(db *sql.DB, repos repomanager.RepositoryManager, content *ContentService, config *sc.Config, logger logging.Logger) *AccountService {
	return &AccountService{db: db, repos: repos, content: content, config: config, logger: logger}
}

// Create registers an account with the configured default storage limit.
func (s *AccountService) Create(ctx context.Context, name string) (*models.Account, error) {
	account := &models.Account{
		ID:                uuid.NewString(),
		Name:              name,
		StorageLimitBytes: s.config.DefaultStorageLimitBytes,
	}
	return s.repos.Accounts(s.db).Create(ctx, account)
}

// Get returns the account with its current usage and limit.
func (s *AccountService) Get(ctx context.Context, id string) (*models.Account, error) {
	return s.repos.Accounts(s.db).GetByID(ctx, id)
}

// Delete removes the account and everything it owns. Content goes first
// (payloads and ledger settled per entry); the folder rows, the final
// usage settlement and the account row are then removed in one transaction.
func (s *AccountService) Delete(ctx context.Context, id string) error {
	if _, err := s.repos.Accounts(s.db).GetByID(ctx, id); err != nil {
		return err
	}

	entryIDs, err := s.repos.Contents(s.db).ListByAccount(ctx, id)
	if err != nil {
		return fmt.Errorf("list account entries: %w", err)
	}
	for _, entryID := range entryIDs {
		if _, err := s.content.Remove(ctx, entryID); err != nil && !errors.Is(err, common.ErrorNotFound) {
			return fmt.Errorf("remove entry %s: %w", entryID, err)
		}
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repos.Folders(tx).DeleteByAccount(ctx, id); err != nil {
			return fmt.Errorf("delete folders: %w", err)
		}
		if err := s.repos.Accounts(tx).SettleUsage(ctx, id); err != nil {
			return fmt.Errorf("settle usage: %w", err)
		}
		return s.repos.Accounts(tx).Delete(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}

	return nil
}
