package models

import "time"

// AuthToken is a session token. Its presence in the store is the only
// proof of validity; deleting it revokes it.
type AuthToken struct {
	Token     string
	UserID    int64
	UserName  string
	CreatedAt time.Time
}
