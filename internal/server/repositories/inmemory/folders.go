package inmemory

import (
	"context"
	"sync"
	"time"

	"github.com/campusshare/campusshare/internal/common"
	"github.com/campusshare/campusshare/internal/server/models"
)

// FolderRepository is the in-memory folder tree.
type FolderRepository struct {
	mu      sync.Mutex
	folders map[string]*models.Folder
}

func NewFolderRepository() *FolderRepository {
	return &FolderRepository{folders: make(map[string]*models.Folder)}
}

func (r *FolderRepository) Create(ctx context.Context, folder *models.Folder) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	folder.CreatedAt = time.Now()
	cp := *folder
	r.folders[folder.ID] = &cp
	return nil
}

func (r *FolderRepository) GetByID(ctx context.Context, id string, accountID string) (*models.Folder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.folders[id]
	if !ok || f.AccountID != accountID {
		return nil, common.ErrorNotFound
	}
	cp := *f
	return &cp, nil
}

func (r *FolderRepository) ListChildren(ctx context.Context, parentID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []string
	for _, f := range r.folders {
		if f.ParentID != nil && *f.ParentID == parentID {
			result = append(result, f.ID)
		}
	}
	return result, nil
}

func (r *FolderRepository) ListByAccount(ctx context.Context, accountID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []string
	for _, f := range r.folders {
		if f.AccountID == accountID {
			result = append(result, f.ID)
		}
	}
	return result, nil
}

func (r *FolderRepository) AncestorChain(ctx context.Context, folderID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var chain []string
	id := folderID
	for {
		f, ok := r.folders[id]
		if !ok {
			if len(chain) == 0 {
				return nil, common.ErrorNotFound
			}
			return chain, nil
		}
		chain = append(chain, id)
		if f.ParentID == nil {
			return chain, nil
		}
		id = *f.ParentID
	}
}

func (r *FolderRepository) SetParent(ctx context.Context, id string, accountID string, parentID *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.folders[id]
	if !ok || f.AccountID != accountID {
		return common.ErrorNotFound
	}
	f.ParentID = parentID
	return nil
}

func (r *FolderRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.folders[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.folders, id)
	return nil
}

func (r *FolderRepository) DeleteByAccount(ctx context.Context, accountID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, f := range r.folders {
		if f.AccountID == accountID {
			delete(r.folders, id)
		}
	}
	return nil
}
