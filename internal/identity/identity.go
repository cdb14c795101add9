// Package identity implements the classroom service's lightweight,
// cookie-based anonymization: an opaque per-browser user id, and a
// deterministic display name and row color derived from it so a user can
// recognize their own row without the server ever storing real names.
package identity

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
)

// CookieName is the name of the cookie holding the opaque user id.
const CookieName = "perfclass_uid"

// displaySalt is mixed into the display-name hash so the derived name
// cannot be reversed into the raw user id by a third party who only
// observes the leaderboard.
const displaySalt = "saltyAZErap"

var userIDPattern = regexp.MustCompile(`^[0-9a-f]{8}$`)

// NewUserID generates a fresh opaque user id: 4 random bytes, hex-encoded.
func NewUserID() (string, error) {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate user id: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// IsValidUserID reports whether s has the shape of a user id minted by
// NewUserID: exactly 8 lowercase hex digits. A cookie that fails this
// check is treated as absent, not trusted.
func IsValidUserID(s string) bool {
	return userIDPattern.MatchString(s)
}

// hashBytes computes the 4-byte digest display name and row color are both
// derived from: the first 4 bytes of sha256(user_id + "__" + task +
// "__saltyAZErap").
func hashBytes(userID, taskName string) [4]byte {
	sum := sha256.Sum256([]byte(userID + "__" + taskName + "__" + displaySalt))
	var out [4]byte
	copy(out[:], sum[:4])
	return out
}

// DisplayName derives a stable, non-reversible per-task display name for a
// user id: an 8-hex-digit rendering of hashBytes. The same user id yields
// the same name within a task, and a different name on another task, so a
// student cannot be tracked across unrelated leaderboards by name alone.
func DisplayName(userID, taskName string) string {
	b := hashBytes(userID, taskName)
	return hex.EncodeToString(b[:])
}

// RowColor derives a muted background color (as a "#rrggbb" hex string)
// from the lowest three bytes of the same hash used for DisplayName, each
// masked with 0x7F to keep the palette muted.
func RowColor(userID, taskName string) string {
	b := hashBytes(userID, taskName)
	r := b[1] & 0x7f
	g := b[2] & 0x7f
	bl := b[3] & 0x7f
	return fmt.Sprintf("#%02x%02x%02x", r, g, bl)
}
