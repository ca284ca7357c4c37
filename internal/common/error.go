// Package common defines shared constants and sentinel errors used across
// the Campus Share storage layers. Callers should use errors.Is to match
// these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")

	// Admission control: the account has no room for the requested bytes.
	// Normal outcome, not a server fault.
	ErrorOverQuota = errors.New("storage quota exceeded")

	// Physical payload read/write/delete failed independently of metadata.
	// Retryable from the caller's point of view.
	ErrorPayloadIO = errors.New("payload io error")

	// Clipboard limits (clips are capped by count and length, not bytes).
	ErrorClipLimitReached = errors.New("clip limit reached")
	ErrorClipTooLong      = errors.New("clip too long")

	// Folder tree errors.
	ErrorFolderCycle = errors.New("folder cannot be moved under its own descendant")
)

// QuotaExceededError carries the account's usage figures so callers can tell
// the user how much room is left. It matches ErrorOverQuota via errors.Is.
type QuotaExceededError struct {
	Requested int64
	Used      int64
	Limit     int64
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("storage quota exceeded: requested %d bytes, used %d of %d", e.Requested, e.Used, e.Limit)
}

func (e *QuotaExceededError) Unwrap() error {
	return ErrorOverQuota
}
