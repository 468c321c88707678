package models

import "time"

// NoteState is the lifecycle position of a note: Active → Deleted → Purged.
// Purged notes no longer exist in storage, so only the first two are
// observable.
type NoteState int

const (
	NoteActive NoteState = iota
	NoteDeleted
)

func (s NoteState) String() string {
	switch s {
	case NoteActive:
		return "active"
	case NoteDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// Note is an encrypted note. Metadata, Key and Content are opaque blobs
// produced by the client and never interpreted by the server.
type Note struct {
	Token      string
	UserID     int64
	CreatedAt  time.Time
	ModifiedAt time.Time
	DeletedAt  *time.Time
	Metadata   string
	Key        string
	Content    string
}

func (n *Note) State() NoteState {
	if n.DeletedAt != nil {
		return NoteDeleted
	}
	return NoteActive
}

// NoteContent is the client-supplied part of a note.
type NoteContent struct {
	Metadata string
	Key      string
	Content  string
}
