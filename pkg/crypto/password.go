package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2id cost parameters. Changing these invalidates no stored hashes
// because every hash carries its own parameters.
const (
	argonMemory      uint32 = 64 * 1024
	argonIterations  uint32 = 3
	argonParallelism uint8  = 1
	argonSaltLength         = 16
	argonKeyLength   uint32 = 32
)

const (
	lowerChars   = "abcdefghijklmnopqrstuvwxyz"
	upperChars   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digitChars   = "0123456789"
	specialChars = "@$!%*?&"
)

// Password length bounds enforced by the policy.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 128
)

// Policy violation codes surfaced by ValidatePasswordPolicy.
const (
	CodePasswordRequired = "PASSWORD_REQUIRED"
	CodePasswordTooShort = "PASSWORD_TOO_SHORT"
	CodePasswordTooLong  = "PASSWORD_TOO_LONG"
	CodePasswordWeak     = "PASSWORD_WEAK"
)

// PolicyError reports the first password policy rule a candidate fails.
type PolicyError struct {
	Code    string
	Message string
}

func (e *PolicyError) Error() string {
	return e.Message
}

// HashPassword derives an Argon2id hash of the password with a fresh random
// salt and returns a self-describing encoded string.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("crypto: password must not be empty")
	}

	salt := make([]byte, argonSaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("crypto: generate salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, argonIterations, argonMemory, argonParallelism, argonKeyLength)

	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		argonMemory,
		argonIterations,
		argonParallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	)
	return encoded, nil
}

// VerifyPassword recomputes the hash for the candidate using the salt and
// parameters embedded in the stored encoding and compares in constant time.
// Any decode failure yields false rather than an error.
func VerifyPassword(encoded, password string) bool {
	salt, key, memory, iterations, parallelism, ok := decodeArgon2(encoded)
	if !ok {
		return false
	}

	candidate := argon2.IDKey([]byte(password), salt, iterations, memory, parallelism, uint32(len(key)))
	return subtle.ConstantTimeCompare(candidate, key) == 1
}

func decodeArgon2(encoded string) (salt, key []byte, memory, iterations uint32, parallelism uint8, ok bool) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return nil, nil, 0, 0, 0, false
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return nil, nil, 0, 0, 0, false
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism); err != nil {
		return nil, nil, 0, 0, 0, false
	}
	if memory == 0 || iterations == 0 || parallelism == 0 {
		return nil, nil, 0, 0, 0, false
	}

	var err error
	if salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return nil, nil, 0, 0, 0, false
	}
	if key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil {
		return nil, nil, 0, 0, 0, false
	}
	if len(salt) == 0 || len(key) == 0 {
		return nil, nil, 0, 0, 0, false
	}

	return salt, key, memory, iterations, parallelism, true
}

// ValidatePasswordPolicy checks the candidate against the password policy:
// length within bounds, and at least one lowercase, uppercase, digit, and
// special character. The first failing rule is returned.
func ValidatePasswordPolicy(password string) error {
	if password == "" {
		return &PolicyError{Code: CodePasswordRequired, Message: "Password is required"}
	}
	if len(password) < MinPasswordLength {
		return &PolicyError{
			Code:    CodePasswordTooShort,
			Message: fmt.Sprintf("Password must be at least %d characters long", MinPasswordLength),
		}
	}
	if len(password) > MaxPasswordLength {
		return &PolicyError{
			Code:    CodePasswordTooLong,
			Message: fmt.Sprintf("Password must be no more than %d characters long", MaxPasswordLength),
		}
	}

	var hasLower, hasUpper, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case strings.ContainsRune(lowerChars, r):
			hasLower = true
		case strings.ContainsRune(upperChars, r):
			hasUpper = true
		case strings.ContainsRune(digitChars, r):
			hasDigit = true
		case strings.ContainsRune(specialChars, r):
			hasSpecial = true
		}
	}

	if !hasLower || !hasUpper || !hasDigit || !hasSpecial {
		return &PolicyError{
			Code: CodePasswordWeak,
			Message: "Password must contain at least one lowercase letter, one uppercase letter, " +
				"one digit, and one special character (" + specialChars + ")",
		}
	}

	return nil
}

// GeneratePassword produces a random password of the requested length that
// always satisfies the policy: one character from each required class is
// placed first, the remainder is filled from the full alphabet, and the
// result is shuffled.
func GeneratePassword(length int) (string, error) {
	if length < MinPasswordLength || length > MaxPasswordLength {
		return "", fmt.Errorf("crypto: password length must be between %d and %d", MinPasswordLength, MaxPasswordLength)
	}

	allChars := lowerChars + upperChars + digitChars + specialChars

	buf := make([]byte, 0, length)
	for _, class := range []string{lowerChars, upperChars, digitChars, specialChars} {
		c, err := randomChar(class)
		if err != nil {
			return "", err
		}
		buf = append(buf, c)
	}
	for len(buf) < length {
		c, err := randomChar(allChars)
		if err != nil {
			return "", err
		}
		buf = append(buf, c)
	}

	for i := range buf {
		j, err := randomInt(len(buf))
		if err != nil {
			return "", err
		}
		buf[i], buf[j] = buf[j], buf[i]
	}

	return string(buf), nil
}

func randomChar(alphabet string) (byte, error) {
	i, err := randomInt(len(alphabet))
	if err != nil {
		return 0, err
	}
	return alphabet[i], nil
}

func randomInt(max int) (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		return 0, fmt.Errorf("crypto: random int: %w", err)
	}
	return int(n.Int64()), nil
}
