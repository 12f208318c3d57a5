package alfresco

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// TokenSet is the result of a refresh-token exchange. RefreshToken is empty
// when the provider did not rotate it; ExpiresAt is nil when no expiry could
// be determined.
type TokenSet struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    *time.Time
}

// OIDCService exchanges OAuth access tokens for repository tickets and
// performs refresh-token grants against an identity provider.
type OIDCService struct {
	httpc *http.Client
}

// NewOIDCService creates an OIDCService with its own HTTP client.
func NewOIDCService() *OIDCService {
	return &OIDCService{httpc: &http.Client{Timeout: 30 * time.Second}}
}

// ExchangeTokenForTicket trades an OIDC access token for a legacy repository
// ticket via the public authentication API.
func (s *OIDCService) ExchangeTokenForTicket(ctx context.Context, baseURL, accessToken string) (string, error) {
	client := &Client{
		hostRoot: NormalizeBaseURL(baseURL),
		rawBase:  strings.TrimRight(baseURL, "/"),
		auth:     OAuth2Auth("", "", "", accessToken, ""),
		httpc:    s.httpc,
	}
	result, err := client.do(ctx, http.MethodGet,
		client.hostRoot+"/alfresco/api/-default-/public/authentication/versions/1/tickets/-me-", nil, nil)
	if err != nil {
		return "", fmt.Errorf("ticket exchange: %w", err)
	}

	envelope, _ := result.(map[string]any)
	entry, _ := envelope["entry"].(map[string]any)
	ticket, _ := entry["id"].(string)
	if ticket == "" {
		return "", fmt.Errorf("ticket exchange: response has no entry.id")
	}
	return ticket, nil
}

// TokenEndpoint builds the identity provider's token endpoint URL. Hosts
// configured with the legacy /auth context keep it; bare hosts get the
// modern path layout.
func TokenEndpoint(issuerHost, realm string) string {
	host := strings.TrimRight(issuerHost, "/")
	return host + "/realms/" + realm + "/protocol/openid-connect/token"
}

// RefreshTokens performs a refresh_token grant exchange. The new refresh
// token is empty when the provider did not issue one; expiry falls back to
// the access token's exp claim when expires_in is absent.
func (s *OIDCService) RefreshTokens(ctx context.Context, issuerHost, realm, clientID, refreshToken string) (*TokenSet, error) {
	conf := &oauth2.Config{
		ClientID: clientID,
		Endpoint: oauth2.Endpoint{
			TokenURL: TokenEndpoint(issuerHost, realm),
			// Public client: no secret, client_id travels in the form body.
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpc)
	tok, err := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, fmt.Errorf("refresh token exchange: %w", err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("refresh token exchange: no access token in response")
	}

	set := &TokenSet{AccessToken: tok.AccessToken}
	if tok.RefreshToken != refreshToken {
		set.RefreshToken = tok.RefreshToken
	}
	if !tok.Expiry.IsZero() {
		expiry := tok.Expiry
		set.ExpiresAt = &expiry
	} else if exp := tokenExpFromJWT(tok.AccessToken); exp != nil {
		set.ExpiresAt = exp
	}
	return set, nil
}

// tokenExpFromJWT extracts the exp claim from a JWT access token without
// verifying the signature. Verification is the repository's job; we only
// need the expiry to schedule refreshes.
func tokenExpFromJWT(accessToken string) *time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return nil
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil
	}
	t := exp.Time
	return &t
}
