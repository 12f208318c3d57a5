package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/org/noderef/internal/storage"
	"github.com/org/noderef/pkg/models"
)

// sessionStore is a minimal in-memory backend covering the session methods.
// The embedded interface panics on anything else, which doubles as a check
// that the service stays inside its lane.
type sessionStore struct {
	storage.StorageBackend
	sessions map[string]*models.Session // keyed by token hash
	byID     map[string]*models.Session
}

func newSessionStore() *sessionStore {
	return &sessionStore{
		sessions: make(map[string]*models.Session),
		byID:     make(map[string]*models.Session),
	}
}

func (s *sessionStore) WriteSession(_ context.Context, sess *models.Session, tokenHash string) error {
	cp := *sess
	s.sessions[tokenHash] = &cp
	s.byID[sess.ID] = &cp
	return nil
}

func (s *sessionStore) GetSessionByHash(_ context.Context, tokenHash string) (*models.Session, error) {
	sess, ok := s.sessions[tokenHash]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *sess
	return &cp, nil
}

func (s *sessionStore) RevokeSession(_ context.Context, id string) error {
	sess, ok := s.byID[id]
	if !ok {
		return storage.ErrNotFound
	}
	now := time.Now().UTC()
	sess.RevokedAt = &now
	return nil
}

func TestSessionLifecycle(t *testing.T) {
	store := newSessionStore()
	svc := NewSessionService(store)
	ctx := context.Background()

	sess, plaintext, err := svc.CreateSession(ctx, "user-1", time.Hour)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if !strings.HasPrefix(plaintext, "nrs_") {
		t.Errorf("token %q missing nrs_ prefix", plaintext)
	}
	if sess.UserID != "user-1" {
		t.Errorf("UserID = %q", sess.UserID)
	}

	got, err := svc.ValidateSession(ctx, plaintext)
	if err != nil {
		t.Fatalf("ValidateSession: %v", err)
	}
	if got.ID != sess.ID {
		t.Errorf("validated session ID = %q, want %q", got.ID, sess.ID)
	}

	if err := svc.RevokeSession(ctx, sess.ID); err != nil {
		t.Fatalf("RevokeSession: %v", err)
	}
	if _, err := svc.ValidateSession(ctx, plaintext); err != ErrInvalidSession {
		t.Errorf("after revoke: err = %v, want ErrInvalidSession", err)
	}
}

func TestValidateSessionUnknownToken(t *testing.T) {
	svc := NewSessionService(newSessionStore())
	if _, err := svc.ValidateSession(context.Background(), "nrs_bogus"); err != ErrInvalidSession {
		t.Errorf("err = %v, want ErrInvalidSession", err)
	}
}

func TestValidateSessionExpired(t *testing.T) {
	store := newSessionStore()
	svc := NewSessionService(store)
	ctx := context.Background()

	_, plaintext, err := svc.CreateSession(ctx, "user-1", time.Hour)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	// Backdate the stored expiry.
	store.sessions[HashSessionToken(plaintext)].ExpiresAt = time.Now().Add(-time.Minute)

	if _, err := svc.ValidateSession(ctx, plaintext); err != ErrInvalidSession {
		t.Errorf("err = %v, want ErrInvalidSession", err)
	}
}

func TestCreateSessionDefaultTTL(t *testing.T) {
	store := newSessionStore()
	svc := NewSessionService(store)

	sess, _, err := svc.CreateSession(context.Background(), "user-1", 0)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	ttl := sess.ExpiresAt.Sub(sess.CreatedAt)
	if ttl != DefaultSessionTTL {
		t.Errorf("ttl = %v, want %v", ttl, DefaultSessionTTL)
	}
}

func TestSessionTokensAreUnique(t *testing.T) {
	svc := NewSessionService(newSessionStore())
	seen := make(map[string]bool)
	for i := 0; i < 10; i++ {
		_, plaintext, err := svc.CreateSession(context.Background(), "user-1", time.Hour)
		if err != nil {
			t.Fatalf("CreateSession: %v", err)
		}
		if seen[plaintext] {
			t.Fatalf("duplicate token generated")
		}
		seen[plaintext] = true
	}
}
