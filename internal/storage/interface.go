package storage

import (
	"context"
	"errors"
	"time"

	"github.com/org/noderef/pkg/models"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// ErrAlreadyExists is returned when trying to create a resource that already exists.
var ErrAlreadyExists = errors.New("already exists")

// StorageBackend defines the persistence interface for NodeRef.
type StorageBackend interface {
	// Users
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)

	// Sessions
	WriteSession(ctx context.Context, session *models.Session, tokenHash string) error
	GetSessionByHash(ctx context.Context, tokenHash string) (*models.Session, error)
	RevokeSession(ctx context.Context, id string) error

	// Servers. DisplayOrder is assigned on create and kept contiguous from 0
	// per user across delete and reorder.
	CreateServer(ctx context.Context, server *models.Server) error
	GetServer(ctx context.Context, userID, id string) (*models.Server, error)
	ListServers(ctx context.Context, userID string) ([]*models.Server, error)
	UpdateServer(ctx context.Context, server *models.Server) error
	UpdateServerTokens(ctx context.Context, id, token, refreshToken string, expiry *time.Time) error
	ReorderServers(ctx context.Context, userID string, orderedIDs []string) error
	TouchServerAccess(ctx context.Context, id string) error
	DeleteServer(ctx context.Context, userID, id string) error
	DeleteUserServers(ctx context.Context, userID string) error

	// Command history
	WriteCommandHistory(ctx context.Context, entry *models.CommandHistory) error
	ListCommandHistory(ctx context.Context, userID string, limit int) ([]*models.CommandHistory, error)

	// AI settings
	GetAISettings(ctx context.Context, userID string) (*models.AISettings, error)
	UpsertAISettings(ctx context.Context, settings *models.AISettings) error

	// Audit
	WriteAuditEntry(ctx context.Context, entry *models.AuditEntry) error
	QueryAuditLog(ctx context.Context, filter AuditFilter) ([]*models.AuditEntry, error)

	// Lifecycle
	Close()
}

// AuditFilter specifies query parameters for audit log retrieval.
type AuditFilter struct {
	Path   string
	Since  *time.Time
	Limit  int
	Offset int
}
