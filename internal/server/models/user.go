// Package models defines the server-side data models persisted in the database.
package models

import "time"

// User is an account. Rows are never hard-deleted; DeletedAt marks a closed
// account whose notes and sessions have been purged.
type User struct {
	ID           int64
	UserName     string
	PasswordHash string
	Email        *string
	Salt         *string
	CreatedAt    time.Time
	DeletedAt    *time.Time
}

// Identity is what a valid session token resolves to.
type Identity struct {
	UserID   int64
	UserName string
}
