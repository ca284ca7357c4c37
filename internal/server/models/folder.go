package models

import "time"

// Folder is a node in an account's folder tree. The tree is a
// parent-pointer structure; acyclicity is guaranteed by the move
// operation's ancestor-chain check, not by the schema.
type Folder struct {
	ID        string
	AccountID string
	// ParentID is nil for top-level folders.
	ParentID  *string
	Name      string
	CreatedAt time.Time
}
