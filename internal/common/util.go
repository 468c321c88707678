package common

import (
	"crypto/rand"
	"math/big"
)

const alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// MakeRandAlphanumericString returns a string of n characters drawn uniformly
// from [A-Za-z0-9] using crypto/rand.
func MakeRandAlphanumericString(n int) (string, error) {
	b := make([]byte, n)
	max := big.NewInt(int64(len(alphanumeric)))
	for i := range b {
		v, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = alphanumeric[v.Int64()]
	}
	return string(b), nil
}

// TruncateToken shortens a secret token for logging, e.g. "abcdef..uvwxyz".
// Tokens of 12 characters or fewer are fully masked.
func TruncateToken(token string) string {
	if len(token) <= 12 {
		return "***"
	}
	return token[:6] + ".." + token[len(token)-6:]
}

// WipeBytes overwrites b with zeros so secrets do not linger in memory.
func WipeBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
