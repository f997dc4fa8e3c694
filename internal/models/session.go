package models

import (
	"crypto/sha256"
	"encoding/hex"
)

// Session is the signed-in administrator's credential plus display identity.
type Session struct {
	Token       string `json:"-"`
	DisplayName string `json:"displayName"`
}

// Valid reports whether a token is present.
func (s Session) Valid() bool {
	return s.Token != ""
}

// ViewKey derives a stable storage key for the session's roster view. A new
// login yields a new token and therefore a fresh view.
func (s Session) ViewKey() string {
	sum := sha256.Sum256([]byte(s.Token))
	return hex.EncodeToString(sum[:16])
}
