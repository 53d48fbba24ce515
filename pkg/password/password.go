// Package password hashes and verifies account passwords with bcrypt.
package password

import (
	"golang.org/x/crypto/bcrypt"
)

// MaxBytes is the longest input bcrypt considers. Longer passwords are
// truncated before hashing and verification so digests stay compatible.
const MaxBytes = 72

// Hasher hashes passwords at a fixed bcrypt cost.
type Hasher struct {
	cost int
}

// NewHasher returns a Hasher using cost, or bcrypt.DefaultCost when cost is out of range.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

// Hash returns the bcrypt digest of plain.
func (h *Hasher) Hash(plain string) ([]byte, error) {
	return bcrypt.GenerateFromPassword(truncate(plain), h.cost)
}

// Verify reports whether plain matches digest.
func (h *Hasher) Verify(plain string, digest []byte) bool {
	if len(digest) == 0 {
		return false
	}
	return bcrypt.CompareHashAndPassword(digest, truncate(plain)) == nil
}

func truncate(plain string) []byte {
	b := []byte(plain)
	if len(b) > MaxBytes {
		b = b[:MaxBytes]
	}
	return b
}
