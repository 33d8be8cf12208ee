package auth

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// API key format bounds. Keys are opaque strings carrying the "ak_" prefix.
const (
	APIKeyPrefix    = "ak_"
	APIKeyMinLength = 32
	APIKeyMaxLength = 128
)

// ErrInvalidAPIKeyFormat rejects keys that cannot have been issued.
var ErrInvalidAPIKeyFormat = errors.New("api key: invalid format")

// APIKeyRegistry associates issued keys with the username that owns them.
// Only a digest of each key is retained; the registry is safe for concurrent
// use.
type APIKeyRegistry struct {
	mu   sync.RWMutex
	keys map[[sha256.Size]byte]string
}

// NewAPIKeyRegistry constructs an empty registry.
func NewAPIKeyRegistry() *APIKeyRegistry {
	return &APIKeyRegistry{
		keys: make(map[[sha256.Size]byte]string),
	}
}

// CheckAPIKeyFormat validates the structural shape of a key.
func CheckAPIKeyFormat(key string) error {
	if !strings.HasPrefix(key, APIKeyPrefix) {
		return ErrInvalidAPIKeyFormat
	}
	if len(key) < APIKeyMinLength || len(key) > APIKeyMaxLength {
		return ErrInvalidAPIKeyFormat
	}
	return nil
}

// Register associates a key with its owning username.
func (r *APIKeyRegistry) Register(key, username string) error {
	if err := CheckAPIKeyFormat(key); err != nil {
		return err
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return fmt.Errorf("api key: owning username is required")
	}

	r.mu.Lock()
	r.keys[sha256.Sum256([]byte(key))] = username
	r.mu.Unlock()
	return nil
}

// Lookup resolves a key to its owning username. The key itself is never
// stored; lookup compares digests.
func (r *APIKeyRegistry) Lookup(key string) (string, bool) {
	if CheckAPIKeyFormat(key) != nil {
		return "", false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	username, ok := r.keys[sha256.Sum256([]byte(key))]
	return username, ok
}

// Remove deletes a key from the registry.
func (r *APIKeyRegistry) Remove(key string) {
	r.mu.Lock()
	delete(r.keys, sha256.Sum256([]byte(key)))
	r.mu.Unlock()
}
