package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/org/noderef/internal/alfresco"
	"github.com/org/noderef/internal/crypto"
	"github.com/org/noderef/internal/storage"
	"github.com/org/noderef/pkg/models"
)

type serverStore struct {
	storage.StorageBackend
	servers map[string]*models.Server

	tokenUpdates int
	touched      int
}

func newServerStore() *serverStore {
	return &serverStore{servers: make(map[string]*models.Server)}
}

func (s *serverStore) GetServer(_ context.Context, userID, id string) (*models.Server, error) {
	srv, ok := s.servers[id]
	if !ok || srv.UserID != userID {
		return nil, storage.ErrNotFound
	}
	cp := *srv
	return &cp, nil
}

func (s *serverStore) UpdateServerTokens(_ context.Context, id, token, refreshToken string, expiry *time.Time) error {
	srv, ok := s.servers[id]
	if !ok {
		return storage.ErrNotFound
	}
	srv.Token = token
	srv.RefreshToken = refreshToken
	srv.TokenExpiry = expiry
	s.tokenUpdates++
	return nil
}

func (s *serverStore) TouchServerAccess(_ context.Context, id string) error {
	s.touched++
	return nil
}

func testCipher(t *testing.T) *crypto.Cipher {
	t.Helper()
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	return crypto.NewCipher(key)
}

func encrypt(t *testing.T, c *crypto.Cipher, plaintext string) string {
	t.Helper()
	enc, err := c.EncryptSecret(plaintext)
	if err != nil {
		t.Fatalf("EncryptSecret: %v", err)
	}
	return enc
}

// fakeIdP serves the refresh grant endpoint for realm "test".
func fakeIdP(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/realms/test/protocol/openid-connect/token" {
			t.Errorf("unexpected IdP path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newProvider(store *serverStore, cipher *crypto.Cipher) (*ClientProvider, *alfresco.ClientCache) {
	cache := alfresco.NewClientCache()
	return NewClientProvider(store, cipher, cache, alfresco.NewOIDCService()), cache
}

func TestAuthenticatedClientBasic(t *testing.T) {
	cipher := testCipher(t)
	store := newServerStore()
	store.servers["srv-1"] = &models.Server{
		ID:       "srv-1",
		UserID:   "user-1",
		BaseURL:  "https://repo.example.com",
		AuthType: models.AuthBasic,
		Username: "admin",
		Token:    encrypt(t, cipher, "hunter2"),
	}
	provider, cache := newProvider(store, cipher)

	client, outcome, err := provider.AuthenticatedClient(context.Background(), "user-1", "srv-1")
	if err != nil {
		t.Fatalf("AuthenticatedClient: %v", err)
	}
	if client == nil {
		t.Fatal("client is nil")
	}
	if outcome != RefreshNotNeeded {
		t.Errorf("outcome = %v, want RefreshNotNeeded", outcome)
	}
	if cache.Len() != 1 {
		t.Errorf("cache len = %d, want 1", cache.Len())
	}
	if store.touched != 1 {
		t.Errorf("touched = %d, want 1", store.touched)
	}
}

func TestAuthenticatedClientMissingCredentials(t *testing.T) {
	cipher := testCipher(t)
	store := newServerStore()
	store.servers["srv-1"] = &models.Server{
		ID:       "srv-1",
		UserID:   "user-1",
		BaseURL:  "https://repo.example.com",
		AuthType: models.AuthBasic,
		Username: "admin",
	}
	provider, _ := newProvider(store, cipher)

	client, _, err := provider.AuthenticatedClient(context.Background(), "user-1", "srv-1")
	if err != nil {
		t.Fatalf("AuthenticatedClient: %v", err)
	}
	if client != nil {
		t.Error("expected nil client for server with no stored token")
	}
}

func TestAuthenticatedClientRefreshesNearExpiry(t *testing.T) {
	idp := fakeIdP(t, http.StatusOK,
		`{"access_token":"new-access","refresh_token":"new-refresh","token_type":"Bearer","expires_in":300}`)

	cipher := testCipher(t)
	store := newServerStore()
	soon := time.Now().Add(time.Minute)
	store.servers["srv-1"] = &models.Server{
		ID:           "srv-1",
		UserID:       "user-1",
		BaseURL:      "https://repo.example.com",
		AuthType:     models.AuthOIDC,
		Token:        encrypt(t, cipher, "old-access"),
		RefreshToken: encrypt(t, cipher, "old-refresh"),
		TokenExpiry:  &soon,
		OIDCHost:     idp.URL,
		OIDCRealm:    "test",
		OIDCClientID: "noderef-desktop",
	}
	provider, _ := newProvider(store, cipher)

	client, outcome, err := provider.AuthenticatedClient(context.Background(), "user-1", "srv-1")
	if err != nil {
		t.Fatalf("AuthenticatedClient: %v", err)
	}
	if client == nil {
		t.Fatal("client is nil")
	}
	if outcome != Refreshed {
		t.Errorf("outcome = %v, want Refreshed", outcome)
	}
	if store.tokenUpdates != 1 {
		t.Fatalf("tokenUpdates = %d, want 1", store.tokenUpdates)
	}
	gotAccess, err := cipher.DecryptSecret(store.servers["srv-1"].Token)
	if err != nil || gotAccess != "new-access" {
		t.Errorf("stored access token = %q (%v), want new-access", gotAccess, err)
	}
	gotRefresh, err := cipher.DecryptSecret(store.servers["srv-1"].RefreshToken)
	if err != nil || gotRefresh != "new-refresh" {
		t.Errorf("stored refresh token = %q (%v), want new-refresh", gotRefresh, err)
	}
}

func TestAuthenticatedClientSkipsRefreshWhenFresh(t *testing.T) {
	idp := fakeIdP(t, http.StatusOK, `{}`)

	cipher := testCipher(t)
	store := newServerStore()
	later := time.Now().Add(time.Hour)
	store.servers["srv-1"] = &models.Server{
		ID:           "srv-1",
		UserID:       "user-1",
		BaseURL:      "https://repo.example.com",
		AuthType:     models.AuthOIDC,
		Token:        encrypt(t, cipher, "access"),
		RefreshToken: encrypt(t, cipher, "refresh"),
		TokenExpiry:  &later,
		OIDCHost:     idp.URL,
		OIDCRealm:    "test",
		OIDCClientID: "noderef-desktop",
	}
	provider, _ := newProvider(store, cipher)

	_, outcome, err := provider.AuthenticatedClient(context.Background(), "user-1", "srv-1")
	if err != nil {
		t.Fatalf("AuthenticatedClient: %v", err)
	}
	if outcome != RefreshNotNeeded {
		t.Errorf("outcome = %v, want RefreshNotNeeded", outcome)
	}
	if store.tokenUpdates != 0 {
		t.Errorf("tokenUpdates = %d, want 0", store.tokenUpdates)
	}
}

func TestAuthenticatedClientRefreshFailureUsesStaleToken(t *testing.T) {
	idp := fakeIdP(t, http.StatusBadRequest, `{"error":"invalid_grant"}`)

	cipher := testCipher(t)
	store := newServerStore()
	soon := time.Now().Add(time.Minute)
	store.servers["srv-1"] = &models.Server{
		ID:           "srv-1",
		UserID:       "user-1",
		BaseURL:      "https://repo.example.com",
		AuthType:     models.AuthOIDC,
		Token:        encrypt(t, cipher, "stale-access"),
		RefreshToken: encrypt(t, cipher, "stale-refresh"),
		TokenExpiry:  &soon,
		OIDCHost:     idp.URL,
		OIDCRealm:    "test",
		OIDCClientID: "noderef-desktop",
	}
	provider, _ := newProvider(store, cipher)

	client, outcome, err := provider.AuthenticatedClient(context.Background(), "user-1", "srv-1")
	if err != nil {
		t.Fatalf("AuthenticatedClient: %v", err)
	}
	if client == nil {
		t.Fatal("client is nil, want stale-token client")
	}
	if outcome != RefreshFailed {
		t.Errorf("outcome = %v, want RefreshFailed", outcome)
	}
	if store.tokenUpdates != 0 {
		t.Errorf("tokenUpdates = %d, want 0", store.tokenUpdates)
	}
}

func TestAuthenticatedClientUnknownServer(t *testing.T) {
	provider, _ := newProvider(newServerStore(), testCipher(t))
	if _, _, err := provider.AuthenticatedClient(context.Background(), "user-1", "nope"); err == nil {
		t.Error("expected error for unknown server")
	}
}
