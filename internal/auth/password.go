package auth

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"digital-wallet/internal/domain"
)

// Hasher one-way transforms plaintext secrets into storable digests.
type Hasher struct {
	cost int
}

// NewHasher builds a Hasher with the given bcrypt cost. Costs outside
// bcrypt's supported range fall back to the default cost; tests may pass
// bcrypt.MinCost to stay fast.
func NewHasher(cost int) Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return Hasher{cost: cost}
}

// Hash derives a salted digest from plaintext. The plaintext length bounds
// are enforced here so no unhashed secret outside them can ever reach the
// store.
func (h Hasher) Hash(plaintext string) (string, error) {
	if err := domain.ValidatePassword(plaintext); err != nil {
		return "", err
	}
	digest, err := bcrypt.GenerateFromPassword(predigest(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(digest), nil
}

// Verify reports whether plaintext matches the stored digest. Malformed
// digests and mismatches both report false; verification never fails loudly.
func (h Hasher) Verify(plaintext, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), predigest(plaintext)) == nil
}

// predigest collapses the plaintext to a fixed-width value before bcrypt.
// bcrypt only reads the first 72 bytes of its input, so without this step
// long secrets would either be rejected or silently share digests with any
// secret agreeing on a 72-byte prefix.
func predigest(plaintext string) []byte {
	sum := sha256.Sum256([]byte(plaintext))
	encoded := make([]byte, base64.RawStdEncoding.EncodedLen(len(sum)))
	base64.RawStdEncoding.Encode(encoded, sum[:])
	return encoded
}
