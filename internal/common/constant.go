package common

// TokenCookieName is the HTTP-only cookie carrying the session token.
const TokenCookieName = "token"

// Lengths of the alphanumeric tokens handed out by the server.
const (
	AuthTokenLength  = 128
	NoteTokenLength  = 32
	ShareTokenLength = 32
)
