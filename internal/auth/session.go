package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/org/noderef/internal/storage"
	"github.com/org/noderef/pkg/models"
)

const tokenPrefix = "nrs_"

// DefaultSessionTTL is applied when a login does not request a specific TTL.
const DefaultSessionTTL = 24 * time.Hour

// ErrInvalidSession is returned for tokens that are unknown, expired, or revoked.
var ErrInvalidSession = errors.New("invalid session")

// SessionService handles session creation, validation, and revocation.
type SessionService struct {
	store storage.StorageBackend
}

// NewSessionService creates a SessionService backed by the given storage.
func NewSessionService(store storage.StorageBackend) *SessionService {
	return &SessionService{store: store}
}

// CreateSession generates a new session for the user and persists it.
// Returns the session model and the plaintext token (shown once to the caller).
func (s *SessionService) CreateSession(ctx context.Context, userID string, ttl time.Duration) (*models.Session, string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, "", fmt.Errorf("generating session token: %w", err)
	}
	plaintext := tokenPrefix + base64.RawURLEncoding.EncodeToString(raw)

	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	now := time.Now().UTC()
	sess := &models.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := s.store.WriteSession(ctx, sess, hashToken(plaintext)); err != nil {
		return nil, "", fmt.Errorf("persisting session: %w", err)
	}
	return sess, plaintext, nil
}

// ValidateSession looks up a session by its plaintext token.
// Returns ErrInvalidSession if not found, expired, or revoked.
func (s *SessionService) ValidateSession(ctx context.Context, plaintext string) (*models.Session, error) {
	sess, err := s.store.GetSessionByHash(ctx, hashToken(plaintext))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrInvalidSession
		}
		return nil, err
	}
	if sess.IsRevoked() || sess.IsExpired() {
		return nil, ErrInvalidSession
	}
	return sess, nil
}

// RevokeSession revokes a session by ID. Revoking an already revoked session
// is a no-op.
func (s *SessionService) RevokeSession(ctx context.Context, sessionID string) error {
	return s.store.RevokeSession(ctx, sessionID)
}

// HashSessionToken returns the SHA-256 hex hash of a plaintext session token.
// Exported for use by middleware and the audit trail.
func HashSessionToken(plaintext string) string {
	return hashToken(plaintext)
}

func hashToken(plaintext string) string {
	h := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(h[:])
}
