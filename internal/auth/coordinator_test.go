package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubStrategy struct {
	authType Type
	result   *Result
	err      error
	calls    int
}

func (s *stubStrategy) Type() Type { return s.authType }

func (s *stubStrategy) Validate(req Request) error { return nil }

func (s *stubStrategy) Authenticate(ctx context.Context, req Request) (*Result, error) {
	s.calls++
	return s.result, s.err
}

func TestCoordinatorDispatchesByType(t *testing.T) {
	password := &stubStrategy{authType: TypeUsernamePassword, result: &Result{SessionID: "s-1"}}
	apiKey := &stubStrategy{authType: TypeAPIKey, result: &Result{SessionID: "s-2"}}
	coordinator := NewCoordinator(password, apiKey)

	result, err := coordinator.Authenticate(context.Background(), APIKeyRequest{Key: "ak_value"})
	require.NoError(t, err)
	require.Equal(t, "s-2", result.SessionID)
	require.Equal(t, 1, apiKey.calls)
	require.Zero(t, password.calls)
}

func TestCoordinatorUnsupportedType(t *testing.T) {
	coordinator := NewCoordinator(&stubStrategy{authType: TypeUsernamePassword})

	_, err := coordinator.Authenticate(context.Background(), EmailPasswordRequest{})
	require.ErrorIs(t, err, ErrUnsupportedAuthType)
	require.Contains(t, err.Error(), string(TypeEmailPassword))
}

func TestCoordinatorNilRequest(t *testing.T) {
	coordinator := NewCoordinator()

	_, err := coordinator.Authenticate(context.Background(), nil)
	require.ErrorIs(t, err, ErrInvalidRequestType)
}

func TestCoordinatorLastRegistrationWins(t *testing.T) {
	first := &stubStrategy{authType: TypeUsernamePassword}
	second := &stubStrategy{authType: TypeUsernamePassword}
	coordinator := NewCoordinator(first)
	coordinator.RegisterStrategy(second)

	_, err := coordinator.Authenticate(context.Background(), UsernamePasswordRequest{})
	require.NoError(t, err)
	require.Zero(t, first.calls)
	require.Equal(t, 1, second.calls)
}

func TestCoordinatorSupportedTypes(t *testing.T) {
	coordinator := NewCoordinator(
		&stubStrategy{authType: TypeUsernamePassword},
		&stubStrategy{authType: TypeAPIKey},
		&stubStrategy{authType: TypeEmailPassword},
	)

	require.Equal(t,
		[]Type{TypeAPIKey, TypeEmailPassword, TypeUsernamePassword},
		coordinator.SupportedTypes())
}
