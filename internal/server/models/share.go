package models

import "time"

// Share is a public link to exactly one note. At most one share exists per note.
type Share struct {
	Token     string
	NoteToken string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt *time.Time
	// Public, when set, lists the share on the owner's publications page
	// under this tag.
	Public    *string
	ViewCount int64
}

// Expired reports whether the share has an expiry that lies before now.
func (s *Share) Expired(now time.Time) bool {
	return s.ExpiresAt != nil && s.ExpiresAt.Before(now)
}

// SharedNote is what an anonymous visitor of a share link receives.
type SharedNote struct {
	CreatedAt  time.Time
	ModifiedAt time.Time
	Metadata   string
	Key        string
	Content    string
	ViewCount  int64
}

// Publication is a public share as listed for a username.
type Publication struct {
	Token      string
	Public     string
	CreatedAt  time.Time
	ModifiedAt time.Time
	Metadata   string
	Key        string
}
