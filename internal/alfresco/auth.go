package alfresco

// AuthKind discriminates the auth descriptor union.
type AuthKind int

const (
	AuthKindBasic AuthKind = iota
	AuthKindOAuth2
)

// AuthDescriptor describes how to authenticate against one server. It lives
// only in memory, as a cache key and refresh carrier; credentials at rest are
// always encrypted through the Server entity.
type AuthDescriptor struct {
	Kind AuthKind

	// Basic
	Username string
	Password string

	// OAuth2
	ClientID     string
	Host         string
	Realm        string
	AccessToken  string
	RefreshToken string
}

// BasicAuth builds a basic-auth descriptor.
func BasicAuth(username, password string) *AuthDescriptor {
	return &AuthDescriptor{Kind: AuthKindBasic, Username: username, Password: password}
}

// OAuth2Auth builds an OAuth2/OIDC descriptor.
func OAuth2Auth(clientID, host, realm, accessToken, refreshToken string) *AuthDescriptor {
	return &AuthDescriptor{
		Kind:         AuthKindOAuth2,
		ClientID:     clientID,
		Host:         host,
		Realm:        realm,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}
}

// Signature identifies a descriptor for cache keying: the username for basic
// auth, clientID+realm for OAuth2. Token values are deliberately excluded so
// a refresh does not change the cache key.
func (d *AuthDescriptor) Signature() string {
	if d == nil {
		return "anon"
	}
	switch d.Kind {
	case AuthKindOAuth2:
		return "oauth2:" + d.ClientID + "@" + d.Realm
	default:
		return "basic:" + d.Username
	}
}
