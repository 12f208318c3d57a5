package models

import "time"

// AuthType identifies how NodeRef authenticates against a registered server.
type AuthType string

const (
	AuthBasic AuthType = "basic"
	AuthOIDC  AuthType = "openid_connect"
)

// Server is a registered remote repository endpoint owned by a user.
// Token and RefreshToken are stored encrypted (enc.v1 envelope); the storage
// layer never sees plaintext credentials.
type Server struct {
	ID         string
	UserID     string
	BaseURL    string
	ServerType string
	AuthType   AuthType

	Username     string
	Token        string
	RefreshToken string
	TokenExpiry  *time.Time

	OIDCHost     string
	OIDCRealm    string
	OIDCClientID string

	Label        string
	Color        string
	DisplayOrder int
	Thumbnail    string

	LastAccessed *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Validate checks the auth-type field invariants: basic requires a username,
// openid_connect requires the full OIDC issuer trio.
func (s *Server) Validate() error {
	switch s.AuthType {
	case AuthBasic:
		if s.Username == "" {
			return ErrInvalidServer("basic auth requires a username")
		}
	case AuthOIDC:
		if s.OIDCHost == "" || s.OIDCRealm == "" || s.OIDCClientID == "" {
			return ErrInvalidServer("openid_connect requires oidcHost, oidcRealm and oidcClientId")
		}
	default:
		return ErrInvalidServer("unknown auth type " + string(s.AuthType))
	}
	return nil
}

// ErrInvalidServer reports a server entity that violates a field invariant.
type ErrInvalidServer string

func (e ErrInvalidServer) Error() string { return "invalid server: " + string(e) }

// TokenNearExpiry reports whether the stored token expires within the given
// lookahead window. Servers with no recorded expiry are never near expiry.
func (s *Server) TokenNearExpiry(lookahead time.Duration) bool {
	if s.TokenExpiry == nil {
		return false
	}
	return time.Now().Add(lookahead).After(*s.TokenExpiry)
}
