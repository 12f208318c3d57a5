package models

import "time"

// AuditEntry records a single RPC request event.
type AuditEntry struct {
	ID             int64
	RequestID      string
	Timestamp      time.Time
	SessionHash    string
	Operation      string
	Path           string
	Status         string
	ResponseCode   int
	ResponseTimeMs int64
	ClientIP       string
}

// CommandHistory records one dispatched proxy call so the console UI can
// replay and autocomplete past commands.
type CommandHistory struct {
	ID        int64
	UserID    string
	ServerID  string
	Method    string
	Args      string // JSON-encoded args as submitted
	Succeeded bool
	ErrorCode string
	CreatedAt time.Time
}

// AISettings holds a user's AI console configuration.
type AISettings struct {
	UserID    string
	APIKey    string // stored encrypted
	Model     string
	Enabled   bool
	UpdatedAt time.Time
}
