package workspaces

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
)

// NewInviteCode returns an 8-character uppercase hex code derived from 4
// random bytes. Uniqueness is enforced by the workspace table's unique
// index; Create regenerates on collision.
func NewInviteCode() string {
	buf := make([]byte, 4)

	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms
		panic(err)
	}

	return strings.ToUpper(hex.EncodeToString(buf))
}
