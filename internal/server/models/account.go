// Package models defines server-side data models persisted in the database.
package models

import "time"

// Account is a student identity together with its storage ledger fields.
// StorageUsedBytes and StorageLimitBytes are mutated only through the
// accounts repository ledger operations, never set directly elsewhere.
type Account struct {
	// ID is the account identifier (uuid).
	ID string
	// Name is the display name.
	Name string
	// StorageUsedBytes is the committed byte usage across all file entries.
	// Invariant after any committed operation: 0 <= used <= limit.
	StorageUsedBytes int64
	// StorageLimitBytes is the account's byte quota.
	StorageLimitBytes int64
	// CreatedAt is when the account was registered.
	CreatedAt time.Time
}

// AvailableBytes returns the remaining quota headroom.
func (a *Account) AvailableBytes() int64 {
	avail := a.StorageLimitBytes - a.StorageUsedBytes
	if avail < 0 {
		return 0
	}
	return avail
}
