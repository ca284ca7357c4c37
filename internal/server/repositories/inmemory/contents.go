package inmemory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/campusshare/campusshare/internal/common"
	"github.com/campusshare/campusshare/internal/server/models"
)

// ContentRepository is the in-memory content store.
type ContentRepository struct {
	mu      sync.Mutex
	entries map[string]*models.ContentEntry
}

func NewContentRepository() *ContentRepository {
	return &ContentRepository{entries: make(map[string]*models.ContentEntry)}
}

func (r *ContentRepository) Create(ctx context.Context, entry *models.ContentEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *entry
	r.entries[entry.ID] = &cp
	return nil
}

func (r *ContentRepository) GetByID(ctx context.Context, id string, accountID string) (*models.ContentEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok || e.AccountID != accountID {
		return nil, common.ErrorNotFound
	}
	cp := *e
	return &cp, nil
}

func (r *ContentRepository) Delete(ctx context.Context, id string) (*models.ContentEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	delete(r.entries, id)
	cp := *e
	return &cp, nil
}

func (r *ContentRepository) SelectDue(ctx context.Context, asOf time.Time, limit int) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	type due struct {
		id        string
		expiresAt time.Time
	}
	var dues []due
	for _, e := range r.entries {
		if !e.ExpiresAt.After(asOf) {
			dues = append(dues, due{id: e.ID, expiresAt: e.ExpiresAt})
		}
	}
	sort.Slice(dues, func(i, j int) bool { return dues[i].expiresAt.Before(dues[j].expiresAt) })

	var result []string
	for _, d := range dues {
		if len(result) == limit {
			break
		}
		result = append(result, d.id)
	}
	return result, nil
}

func (r *ContentRepository) ExtendExpiry(ctx context.Context, id string, accountID string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok || e.AccountID != accountID {
		return common.ErrorNotFound
	}
	e.ExpiresAt = expiresAt
	return nil
}

func (r *ContentRepository) ListByAccount(ctx context.Context, accountID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []string
	for _, e := range r.entries {
		if e.AccountID == accountID {
			result = append(result, e.ID)
		}
	}
	return result, nil
}

func (r *ContentRepository) ListByFolder(ctx context.Context, folderID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []string
	for _, e := range r.entries {
		if e.FolderID != nil && *e.FolderID == folderID {
			result = append(result, e.ID)
		}
	}
	return result, nil
}

func (r *ContentRepository) CountClips(ctx context.Context, accountID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for _, e := range r.entries {
		if e.AccountID == accountID && e.Kind == models.KindClip {
			n++
		}
	}
	return n, nil
}

func (r *ContentRepository) ExistsByStorageKey(ctx context.Context, key string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.entries {
		if e.StorageKey == key {
			return true, nil
		}
	}
	return false, nil
}
