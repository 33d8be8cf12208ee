package auth

import (
	"github.com/charlesng35/authcore/pkg/crypto"
)

// PasswordHasher encodes and verifies password secrets and enforces the
// password strength policy.
type PasswordHasher struct{}

// NewPasswordHasher returns the Argon2id-backed hasher.
func NewPasswordHasher() *PasswordHasher {
	return &PasswordHasher{}
}

// Encode derives a salted hash of the secret. Two calls on the same secret
// yield different encodings.
func (h *PasswordHasher) Encode(secret string) (string, error) {
	return crypto.HashPassword(secret)
}

// Verify reports whether the secret matches the stored encoding. Undecodable
// encodings verify as false.
func (h *PasswordHasher) Verify(secret, stored string) bool {
	return crypto.VerifyPassword(stored, secret)
}

// ValidatePolicy checks the secret against the strength policy, returning a
// *crypto.PolicyError naming the first unmet rule.
func (h *PasswordHasher) ValidatePolicy(secret string) error {
	return crypto.ValidatePasswordPolicy(secret)
}

// GenerateRandom produces a random secret guaranteed to pass ValidatePolicy.
func (h *PasswordHasher) GenerateRandom(length int) (string, error) {
	return crypto.GeneratePassword(length)
}
