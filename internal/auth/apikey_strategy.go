package auth

import (
	"context"
	"errors"

	"github.com/charlesng35/authcore/pkg/validator"
)

// APIKeyStrategy authenticates requests presenting a pre-issued opaque key.
// It differs from the password strategies only in how the secret is checked:
// the key resolves through the registry to its owning user instead of a
// password hash comparison.
type APIKeyStrategy struct {
	deps StrategyDeps
	keys *APIKeyRegistry
}

// NewAPIKeyStrategy builds the strategy after checking its collaborators.
func NewAPIKeyStrategy(deps StrategyDeps, keys *APIKeyRegistry) (*APIKeyStrategy, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if keys == nil {
		return nil, errors.New("strategy: api key registry is required")
	}
	return &APIKeyStrategy{deps: deps, keys: keys}, nil
}

func (s *APIKeyStrategy) Type() Type {
	return TypeAPIKey
}

func (s *APIKeyStrategy) Validate(req Request) error {
	r, ok := req.(APIKeyRequest)
	if !ok {
		return ErrInvalidRequestType
	}

	if err := validator.ValidateStruct(r); err != nil {
		return err
	}

	if err := CheckAPIKeyFormat(r.Key); err != nil {
		return validator.ValidationErrors{{
			Field:   "key",
			Code:    "KEY_INVALID_FORMAT",
			Message: "key must start with " + APIKeyPrefix,
		}}
	}
	return nil
}

func (s *APIKeyStrategy) Authenticate(ctx context.Context, req Request) (*Result, error) {
	r, ok := req.(APIKeyRequest)
	if !ok {
		return nil, ErrInvalidRequestType
	}

	if err := s.Validate(r); err != nil {
		return nil, err
	}

	username, ok := s.keys.Lookup(r.Key)
	if !ok {
		return nil, ErrInvalidCredentials
	}

	user, err := s.deps.Directory.FindActiveByUsername(ctx, username)
	if err != nil {
		return nil, credentialLookupError(err)
	}

	if err := checkAccountGates(ctx, s.deps, user); err != nil {
		return nil, err
	}

	return finishLogin(ctx, s.deps, s.Type(), user, r.Metadata())
}
