package auth

import (
	"context"
	"errors"

	"github.com/charlesng35/authcore/pkg/validator"
)

// UsernamePasswordStrategy authenticates unique-username/password requests.
type UsernamePasswordStrategy struct {
	deps StrategyDeps
}

// NewUsernamePasswordStrategy builds the strategy after checking its collaborators.
func NewUsernamePasswordStrategy(deps StrategyDeps) (*UsernamePasswordStrategy, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if deps.Hasher == nil {
		return nil, errors.New("strategy: password hasher is required")
	}
	return &UsernamePasswordStrategy{deps: deps}, nil
}

func (s *UsernamePasswordStrategy) Type() Type {
	return TypeUsernamePassword
}

func (s *UsernamePasswordStrategy) Validate(req Request) error {
	r, ok := req.(UsernamePasswordRequest)
	if !ok {
		return ErrInvalidRequestType
	}
	return validator.ValidateStruct(r)
}

func (s *UsernamePasswordStrategy) Authenticate(ctx context.Context, req Request) (*Result, error) {
	r, ok := req.(UsernamePasswordRequest)
	if !ok {
		return nil, ErrInvalidRequestType
	}

	if err := s.Validate(r); err != nil {
		return nil, err
	}

	user, err := s.deps.Directory.FindActiveByUsername(ctx, r.Username)
	if err != nil {
		return nil, credentialLookupError(err)
	}

	if err := checkAccountGates(ctx, s.deps, user); err != nil {
		return nil, err
	}

	if !s.deps.Hasher.Verify(r.Password, user.Password) {
		return nil, failCredential(ctx, s.deps, s.Type(), user)
	}

	return finishLogin(ctx, s.deps, s.Type(), user, r.Metadata())
}

// EmailPasswordStrategy authenticates unique-email/password requests.
type EmailPasswordStrategy struct {
	deps StrategyDeps
}

// NewEmailPasswordStrategy builds the strategy after checking its collaborators.
func NewEmailPasswordStrategy(deps StrategyDeps) (*EmailPasswordStrategy, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if deps.Hasher == nil {
		return nil, errors.New("strategy: password hasher is required")
	}
	return &EmailPasswordStrategy{deps: deps}, nil
}

func (s *EmailPasswordStrategy) Type() Type {
	return TypeEmailPassword
}

func (s *EmailPasswordStrategy) Validate(req Request) error {
	r, ok := req.(EmailPasswordRequest)
	if !ok {
		return ErrInvalidRequestType
	}
	return validator.ValidateStruct(r)
}

func (s *EmailPasswordStrategy) Authenticate(ctx context.Context, req Request) (*Result, error) {
	r, ok := req.(EmailPasswordRequest)
	if !ok {
		return nil, ErrInvalidRequestType
	}

	if err := s.Validate(r); err != nil {
		return nil, err
	}

	user, err := s.deps.Directory.FindActiveByEmail(ctx, r.Email)
	if err != nil {
		return nil, credentialLookupError(err)
	}

	if err := checkAccountGates(ctx, s.deps, user); err != nil {
		return nil, err
	}

	if !s.deps.Hasher.Verify(r.Password, user.Password) {
		return nil, failCredential(ctx, s.deps, s.Type(), user)
	}

	return finishLogin(ctx, s.deps, s.Type(), user, r.Metadata())
}

// credentialLookupError hides directory misses behind the generic credential
// failure so account existence cannot be probed.
func credentialLookupError(err error) error {
	if errors.Is(err, ErrUserNotFound) {
		return ErrInvalidCredentials
	}
	return err
}
