// Package services implements the storage core on top of the repositories:
// admission control, content lifecycle, folder tree and account cascade.
package services

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/campusshare/campusshare/internal/common"
	"github.com/campusshare/campusshare/internal/dbx"
	"github.com/campusshare/campusshare/internal/logging"
	"github.com/campusshare/campusshare/internal/server/blob"
	sc "github.com/campusshare/campusshare/internal/server/config"
	"github.com/campusshare/campusshare/internal/server/models"
	"github.com/campusshare/campusshare/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// ContentService owns the content lifecycle. Every deletion pathway — user
// action, folder cascade, account cascade, sweeper — goes through Remove, so
// payload removal and ledger release can never be bypassed.
type ContentService struct {
	db     dbx.DBTX
	repos  repomanager.RepositoryManager
	blobs  blob.Store
	config *sc.Config
	logger logging.Logger

	// now is a clock seam for expiry tests.
	now func() time.Time
}

// NewContentService wires the content service.
func NewContentService(db dbx.DBTX, repos repomanager.RepositoryManager, blobs blob.Store, config *sc.Config, logger logging.Logger) *ContentService {
	return &ContentService{
		db:     db,
		repos:  repos,
		blobs:  blobs,
		config: config,
		logger: logger,
		now:    time.Now,
	}
}

// CreateFile admits, stores and registers one uploaded file.
//
// The quota reservation is a single conditional increment on the account
// row, so it both checks and commits the bytes before any payload I/O; every
// failure after it releases the reservation and removes the partial payload.
// The ingress handler has already validated content type and per-file size.
func (s *ContentService) CreateFile(ctx context.Context, accountID string, name string, folderID *string, sizeBytes int64, r io.Reader) (*models.ContentEntry, error) {
	if sizeBytes < 0 {
		return nil, fmt.Errorf("negative size: %w", common.ErrorInternal)
	}

	accountRepo := s.repos.Accounts(s.db)
	contentRepo := s.repos.Contents(s.db)

	if err := accountRepo.Reserve(ctx, accountID, sizeBytes); err != nil {
		return nil, fmt.Errorf("reserve quota: %w", err)
	}

	now := s.now()
	key := blob.RandomKey(now)

	written, err := s.blobs.Save(ctx, key, r)
	if err != nil {
		s.rollbackCreate(ctx, accountID, sizeBytes, key)
		return nil, fmt.Errorf("save payload: %w: %v", common.ErrorPayloadIO, err)
	}
	if written != sizeBytes {
		// Aborted or truncated upload: nothing may be committed.
		s.rollbackCreate(ctx, accountID, sizeBytes, key)
		return nil, fmt.Errorf("payload size mismatch: declared %d, written %d: %w", sizeBytes, written, common.ErrorPayloadIO)
	}

	entry := &models.ContentEntry{
		ID:         uuid.NewString(),
		AccountID:  accountID,
		Kind:       models.KindFile,
		Name:       name,
		SizeBytes:  sizeBytes,
		StorageKey: key,
		FolderID:   folderID,
		CreatedAt:  now,
		ExpiresAt:  now.AddDate(0, 0, s.config.RetentionDays),
	}

	if err := contentRepo.Create(ctx, entry); err != nil {
		s.rollbackCreate(ctx, accountID, sizeBytes, key)
		return nil, fmt.Errorf("create entry: %w", err)
	}

	return entry, nil
}

// rollbackCreate undoes a reservation after a failed file create: the
// payload (possibly partial) is removed and the reserved bytes returned.
func (s *ContentService) rollbackCreate(ctx context.Context, accountID string, sizeBytes int64, key string) {
	if err := s.blobs.Delete(ctx, key); err != nil {
		s.logger.Error(ctx, "rollback: payload delete failed", "key", key, "error", err.Error())
	}
	drift, err := s.repos.Accounts(s.db).Release(ctx, accountID, sizeBytes)
	if err != nil {
		s.logger.Error(ctx, "rollback: quota release failed", "account_id", accountID, "bytes", sizeBytes, "error", err.Error())
		return
	}
	if drift {
		s.logger.Warn(ctx, "ledger drift on rollback", "account_id", accountID, "bytes", sizeBytes)
	}
}

// CreateClip stores one clipboard entry. Clips never touch the byte quota;
// they are bounded by a per-clip character cap and a per-account count cap.
func (s *ContentService) CreateClip(ctx context.Context, accountID string, name string, folderID *string, body string) (*models.ContentEntry, error) {
	contentRepo := s.repos.Contents(s.db)

	chars := int64(utf8.RuneCountInString(body))
	if chars > int64(s.config.MaxClipChars) {
		return nil, fmt.Errorf("clip is %d chars, cap is %d: %w", chars, s.config.MaxClipChars, common.ErrorClipTooLong)
	}

	count, err := contentRepo.CountClips(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("count clips: %w", err)
	}
	if count >= int64(s.config.MaxClipCount) {
		return nil, fmt.Errorf("account has %d clips, cap is %d: %w", count, s.config.MaxClipCount, common.ErrorClipLimitReached)
	}

	now := s.now()
	entry := &models.ContentEntry{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Kind:      models.KindClip,
		Name:      name,
		CharCount: chars,
		Body:      body,
		FolderID:  folderID,
		CreatedAt: now,
		ExpiresAt: now.AddDate(0, 0, s.config.RetentionDays),
	}

	if err := contentRepo.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("create entry: %w", err)
	}

	return entry, nil
}

// Get returns the metadata of an owned entry.
func (s *ContentService) Get(ctx context.Context, id string, accountID string) (*models.ContentEntry, error) {
	return s.repos.Contents(s.db).GetByID(ctx, id, accountID)
}

// Open returns the entry together with a reader over its payload. For clips
// the payload is the inline body.
func (s *ContentService) Open(ctx context.Context, id string, accountID string) (*models.ContentEntry, io.ReadCloser, error) {
	entry, err := s.repos.Contents(s.db).GetByID(ctx, id, accountID)
	if err != nil {
		return nil, nil, err
	}

	if !entry.IsFile() {
		return entry, io.NopCloser(strings.NewReader(entry.Body)), nil
	}

	rc, err := s.blobs.Open(ctx, entry.StorageKey)
	if err != nil {
		return nil, nil, fmt.Errorf("open payload: %w: %v", common.ErrorPayloadIO, err)
	}
	return entry, rc, nil
}

// Remove deletes one entry and returns the bytes freed (0 for clips).
//
// The metadata row goes first: of two racing removals only the one that
// observes the row proceeds to release quota, so a double delete cannot
// decrement twice. A payload that is already gone, or whose deletion fails,
// never blocks the ledger release — the failure is logged and the quota is
// recovered anyway.
func (s *ContentService) Remove(ctx context.Context, id string) (int64, error) {
	entry, err := s.repos.Contents(s.db).Delete(ctx, id)
	if err != nil {
		return 0, err
	}

	if !entry.IsFile() {
		return 0, nil
	}

	drift, err := s.repos.Accounts(s.db).Release(ctx, entry.AccountID, entry.SizeBytes)
	if err != nil {
		s.logger.Error(ctx, "quota release failed", "account_id", entry.AccountID, "content_id", id, "error", err.Error())
	} else if drift {
		s.logger.Warn(ctx, "ledger drift on release", "account_id", entry.AccountID, "content_id", id, "bytes", entry.SizeBytes)
	}

	if err := s.blobs.Delete(ctx, entry.StorageKey); err != nil {
		s.logger.Error(ctx, "payload delete failed", "key", entry.StorageKey, "content_id", id, "error", err.Error())
	}

	return entry.SizeBytes, nil
}

// ExtendExpiry renews an owned entry's retention: the expiry is recomputed
// from now, not pushed out from its previous value.
func (s *ContentService) ExtendExpiry(ctx context.Context, id string, accountID string, days int) error {
	expiresAt := s.now().AddDate(0, 0, days)
	return s.repos.Contents(s.db).ExtendExpiry(ctx, id, accountID, expiresAt)
}
