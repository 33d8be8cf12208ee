package auth

import (
	"time"

	"github.com/charlesng35/authcore/internal/models"
)

// Type discriminates authentication request variants. Strategies register
// under their type; new methods add a constant and a strategy without
// touching the coordinator.
type Type string

const (
	TypeUsernamePassword Type = "username_password"
	TypeEmailPassword    Type = "email_password"
	TypeAPIKey           Type = "api_key"
)

// TokenTypeBearer is the token_type value attached to every result.
const TokenTypeBearer = "Bearer"

// RequestMetadata carries the client context common to every request variant.
type RequestMetadata struct {
	ClientID     string `json:"client_id,omitempty"`
	ClientSecret string `json:"client_secret,omitempty"`
	RedirectURI  string `json:"redirect_uri,omitempty"`
	State        string `json:"state,omitempty"`
	IPAddress    string `json:"ip_address,omitempty"`
	UserAgent    string `json:"user_agent,omitempty"`
}

// Request is a tagged authentication request. The concrete type carries the
// credential fields for its variant.
type Request interface {
	Type() Type
	Metadata() RequestMetadata
}

// UsernamePasswordRequest authenticates by unique username and password.
type UsernamePasswordRequest struct {
	RequestMetadata

	Username string `json:"username" validate:"required,max=50"`
	Password string `json:"password" validate:"required,max=128"`
}

func (r UsernamePasswordRequest) Type() Type                { return TypeUsernamePassword }
func (r UsernamePasswordRequest) Metadata() RequestMetadata { return r.RequestMetadata }

// EmailPasswordRequest authenticates by unique email and password.
type EmailPasswordRequest struct {
	RequestMetadata

	Email    string `json:"email" validate:"required,email,max=100"`
	Password string `json:"password" validate:"required,max=128"`
}

func (r EmailPasswordRequest) Type() Type                { return TypeEmailPassword }
func (r EmailPasswordRequest) Metadata() RequestMetadata { return r.RequestMetadata }

// APIKeyRequest authenticates by a pre-issued opaque key.
type APIKeyRequest struct {
	RequestMetadata

	Key string `json:"key" validate:"required,min=32,max=128"`
}

func (r APIKeyRequest) Type() Type                { return TypeAPIKey }
func (r APIKeyRequest) Metadata() RequestMetadata { return r.RequestMetadata }

// Result is the payload returned on successful authentication or rotation.
type Result struct {
	User         models.UserSummary `json:"user"`
	AccessToken  string             `json:"access_token"`
	RefreshToken string             `json:"refresh_token"`
	TokenType    string             `json:"token_type"`
	ExpiresIn    int64              `json:"expires_in"`
	ExpiresAt    time.Time          `json:"expires_at"`
	Roles        []string           `json:"roles"`
	SessionID    string             `json:"session_id"`
	LastLogin    *time.Time         `json:"last_login,omitempty"`
}

// TokenValidationResult reports the outcome of validating a signed token.
type TokenValidationResult struct {
	Valid        bool       `json:"valid"`
	Username     string     `json:"username,omitempty"`
	Roles        []string   `json:"roles,omitempty"`
	IssuedAt     *time.Time `json:"issued_at,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	ErrorCode    string     `json:"error_code,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
}
