package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/campusshare/campusshare/internal/common"
	"github.com/campusshare/campusshare/internal/dbx"
	"github.com/campusshare/campusshare/internal/logging"
	"github.com/campusshare/campusshare/internal/server/models"
	"github.com/campusshare/campusshare/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// FolderService manages the per-account folder tree. The tree stays acyclic
// because Move refuses to reparent a folder under its own descendant; no
// implicit cascade hooks are involved anywhere.
type FolderService struct {
	db      dbx.DBTX
	repos   repomanager.RepositoryManager
	content *ContentService
	logger  logging.Logger
}

// NewFolderService wires the folder service.
func NewFolderService(db dbx.DBTX, repos repomanager.RepositoryManager, content *ContentService, logger logging.Logger) *FolderService {
	return &FolderService{db: db, repos: repos, content: content, logger: logger}
}

// Create adds a folder, optionally under an existing parent the same
// account owns.
func (s *FolderService) Create(ctx context.Context, accountID string, name string, parentID *string) (*models.Folder, error) {
	folderRepo := s.repos.Folders(s.db)

	if parentID != nil {
		if _, err := folderRepo.GetByID(ctx, *parentID, accountID); err != nil {
			return nil, fmt.Errorf("parent folder: %w", err)
		}
	}

	folder := &models.Folder{
		ID:        uuid.NewString(),
		AccountID: accountID,
		ParentID:  parentID,
		Name:      name,
	}
	if err := folderRepo.Create(ctx, folder); err != nil {
		return nil, fmt.Errorf("create folder: %w", err)
	}
	return folder, nil
}

// Move reparents a folder. Before touching anything it walks the ownership
// chain of the new parent: if the folder itself appears there, the move
// would create a cycle and is rejected.
func (s *FolderService) Move(ctx context.Context, accountID string, folderID string, newParentID *string) error {
	folderRepo := s.repos.Folders(s.db)

	if _, err := folderRepo.GetByID(ctx, folderID, accountID); err != nil {
		return err
	}

	if newParentID != nil {
		if _, err := folderRepo.GetByID(ctx, *newParentID, accountID); err != nil {
			return fmt.Errorf("new parent: %w", err)
		}

		chain, err := folderRepo.AncestorChain(ctx, *newParentID)
		if err != nil {
			return fmt.Errorf("ancestor chain: %w", err)
		}
		for _, id := range chain {
			if id == folderID {
				return common.ErrorFolderCycle
			}
		}
	}

	return folderRepo.SetParent(ctx, folderID, accountID, newParentID)
}

// Remove deletes a folder subtree depth-first and returns the bytes freed.
// Entries are removed through ContentService.Remove, the single removal
// path, so the quota ledger and payloads are settled exactly as for a
// direct user delete.
func (s *FolderService) Remove(ctx context.Context, accountID string, folderID string) (int64, error) {
	folderRepo := s.repos.Folders(s.db)

	if _, err := folderRepo.GetByID(ctx, folderID, accountID); err != nil {
		return 0, err
	}

	return s.removeSubtree(ctx, folderID)
}

func (s *FolderService) removeSubtree(ctx context.Context, folderID string) (int64, error) {
	folderRepo := s.repos.Folders(s.db)
	contentRepo := s.repos.Contents(s.db)

	var freed int64

	children, err := folderRepo.ListChildren(ctx, folderID)
	if err != nil {
		return freed, fmt.Errorf("list children: %w", err)
	}
	for _, child := range children {
		n, err := s.removeSubtree(ctx, child)
		freed += n
		if err != nil {
			return freed, err
		}
	}

	entryIDs, err := contentRepo.ListByFolder(ctx, folderID)
	if err != nil {
		return freed, fmt.Errorf("list folder entries: %w", err)
	}
	for _, id := range entryIDs {
		n, err := s.content.Remove(ctx, id)
		freed += n
		if err != nil && !errors.Is(err, common.ErrorNotFound) {
			return freed, fmt.Errorf("remove entry %s: %w", id, err)
		}
	}

	if err := folderRepo.Delete(ctx, folderID); err != nil {
		return freed, fmt.Errorf("delete folder: %w", err)
	}
	return freed, nil
}
