package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/org/noderef/internal/alfresco"
	"github.com/org/noderef/internal/crypto"
	"github.com/org/noderef/internal/storage"
	"github.com/org/noderef/pkg/models"
)

// refreshWindow is how far ahead of token expiry a refresh is attempted.
const refreshWindow = 5 * time.Minute

// RefreshOutcome reports what happened to a server's OIDC tokens while
// building an authenticated client.
type RefreshOutcome int

const (
	// RefreshNotNeeded means the stored token was still fresh (or the
	// server uses basic auth).
	RefreshNotNeeded RefreshOutcome = iota
	// Refreshed means new tokens were obtained and persisted.
	Refreshed
	// RefreshFailed means the refresh grant failed; the stale token is
	// used as-is and the caller may see a downstream 401.
	RefreshFailed
)

func (o RefreshOutcome) String() string {
	switch o {
	case Refreshed:
		return "refreshed"
	case RefreshFailed:
		return "refresh_failed"
	default:
		return "not_needed"
	}
}

// ClientProvider turns a stored Server entity into a live, authenticated
// repository client. It decrypts credentials, refreshes near-expiry OIDC
// tokens best-effort, and hands out cached clients.
type ClientProvider struct {
	store  storage.StorageBackend
	cipher *crypto.Cipher
	cache  *alfresco.ClientCache
	oidc   *alfresco.OIDCService
}

// NewClientProvider wires a provider over the shared storage, cipher, client
// cache and OIDC service.
func NewClientProvider(store storage.StorageBackend, cipher *crypto.Cipher, cache *alfresco.ClientCache, oidc *alfresco.OIDCService) *ClientProvider {
	return &ClientProvider{store: store, cipher: cipher, cache: cache, oidc: oidc}
}

// AuthenticatedClient loads the server, decrypts its credentials and returns
// a cached client carrying them. A nil client with a nil error means the
// server has no usable credentials yet; the caller decides whether that is an
// error. Token refresh failures never fail the call: the stale token is kept
// and RefreshFailed is reported.
func (p *ClientProvider) AuthenticatedClient(ctx context.Context, userID, serverID string) (*alfresco.Client, RefreshOutcome, error) {
	server, err := p.store.GetServer(ctx, userID, serverID)
	if err != nil {
		return nil, RefreshNotNeeded, err
	}

	token, err := p.cipher.DecryptSecret(server.Token)
	if err != nil {
		return nil, RefreshNotNeeded, fmt.Errorf("decrypting server token: %w", err)
	}
	refreshToken, err := p.cipher.DecryptSecret(server.RefreshToken)
	if err != nil {
		return nil, RefreshNotNeeded, fmt.Errorf("decrypting refresh token: %w", err)
	}

	outcome := RefreshNotNeeded
	if server.AuthType == models.AuthOIDC && refreshToken != "" && server.TokenNearExpiry(refreshWindow) {
		outcome = p.refreshTokens(ctx, server, &token, &refreshToken)
	}

	var descriptor *alfresco.AuthDescriptor
	switch server.AuthType {
	case models.AuthBasic:
		if server.Username == "" || token == "" {
			return nil, outcome, nil
		}
		descriptor = alfresco.BasicAuth(server.Username, token)
	case models.AuthOIDC:
		if token == "" {
			return nil, outcome, nil
		}
		descriptor = alfresco.OAuth2Auth(server.OIDCClientID, server.OIDCHost, server.OIDCRealm, token, refreshToken)
	default:
		return nil, outcome, fmt.Errorf("server %s has unknown auth type %q", server.ID, server.AuthType)
	}

	client := p.cache.Get(server.BaseURL, descriptor)
	if err := p.store.TouchServerAccess(ctx, server.ID); err != nil {
		log.Warn().Err(err).Str("server_id", server.ID).Msg("recording server access failed")
	}
	return client, outcome, nil
}

// refreshTokens runs the refresh grant and persists the result. On success
// the decrypted token values are updated in place so the caller builds its
// descriptor from the fresh pair.
func (p *ClientProvider) refreshTokens(ctx context.Context, server *models.Server, token, refreshToken *string) RefreshOutcome {
	set, err := p.oidc.RefreshTokens(ctx, server.OIDCHost, server.OIDCRealm, server.OIDCClientID, *refreshToken)
	if err != nil {
		log.Warn().Err(err).Str("server_id", server.ID).Msg("token refresh failed, using stale token")
		return RefreshFailed
	}

	newRefresh := *refreshToken
	if set.RefreshToken != "" {
		newRefresh = set.RefreshToken
	}

	encToken, err := p.cipher.EncryptSecret(set.AccessToken)
	if err != nil {
		log.Warn().Err(err).Str("server_id", server.ID).Msg("encrypting refreshed token failed, using stale token")
		return RefreshFailed
	}
	encRefresh, err := p.cipher.EncryptSecret(newRefresh)
	if err != nil {
		log.Warn().Err(err).Str("server_id", server.ID).Msg("encrypting refreshed token failed, using stale token")
		return RefreshFailed
	}
	if err := p.store.UpdateServerTokens(ctx, server.ID, encToken, encRefresh, set.ExpiresAt); err != nil {
		log.Warn().Err(err).Str("server_id", server.ID).Msg("persisting refreshed tokens failed, using stale token")
		return RefreshFailed
	}

	// Mutate any live cached client so in-flight callers pick up the new
	// token without a reconnect.
	descriptor := alfresco.OAuth2Auth(server.OIDCClientID, server.OIDCHost, server.OIDCRealm, *token, *refreshToken)
	p.cache.UpdateOAuth2Token(server.BaseURL, descriptor, set.AccessToken, set.RefreshToken)

	*token = set.AccessToken
	*refreshToken = newRefresh
	server.TokenExpiry = set.ExpiresAt
	log.Info().Str("server_id", server.ID).Msg("refreshed OIDC tokens")
	return Refreshed
}
