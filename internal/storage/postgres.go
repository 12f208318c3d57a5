package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/org/noderef/pkg/models"
)

// PostgresBackend is a StorageBackend backed by PostgreSQL.
type PostgresBackend struct {
	pool *pgxpool.Pool
}

// NewPostgresBackend opens a pgxpool connection and returns a ready backend.
func NewPostgresBackend(ctx context.Context, connStr string) (*PostgresBackend, error) {
	cfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parsing postgres config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return &PostgresBackend{pool: pool}, nil
}

func (p *PostgresBackend) Close() {
	p.pool.Close()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// --- Users ---

func (p *PostgresBackend) CreateUser(ctx context.Context, user *models.User) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO users (id, username, password_hash, created_at) VALUES ($1, $2, $3, $4)`,
		user.ID, user.Username, user.PasswordHash, user.CreatedAt,
	)
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	return err
}

func (p *PostgresBackend) GetUser(ctx context.Context, id string) (*models.User, error) {
	return p.scanUser(p.pool.QueryRow(ctx,
		`SELECT id, username, password_hash, created_at FROM users WHERE id = $1`, id))
}

func (p *PostgresBackend) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return p.scanUser(p.pool.QueryRow(ctx,
		`SELECT id, username, password_hash, created_at FROM users WHERE username = $1`, username))
}

func (p *PostgresBackend) scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// --- Sessions ---

func (p *PostgresBackend) WriteSession(ctx context.Context, s *models.Session, tokenHash string) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO sessions (id, user_id, token_hash, created_at, expires_at) VALUES ($1, $2, $3, $4, $5)`,
		s.ID, s.UserID, tokenHash, s.CreatedAt, s.ExpiresAt,
	)
	return err
}

func (p *PostgresBackend) GetSessionByHash(ctx context.Context, tokenHash string) (*models.Session, error) {
	var s models.Session
	err := p.pool.QueryRow(ctx,
		`SELECT id, user_id, created_at, expires_at, revoked_at FROM sessions WHERE token_hash = $1`,
		tokenHash,
	).Scan(&s.ID, &s.UserID, &s.CreatedAt, &s.ExpiresAt, &s.RevokedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (p *PostgresBackend) RevokeSession(ctx context.Context, id string) error {
	_, err := p.pool.Exec(ctx, `UPDATE sessions SET revoked_at = NOW() WHERE id = $1`, id)
	return err
}

// --- Servers ---

const serverColumns = `id, user_id, base_url, server_type, auth_type, username, token,
	refresh_token, token_expiry, oidc_host, oidc_realm, oidc_client_id,
	label, color, display_order, thumbnail, last_accessed, created_at, updated_at`

func (p *PostgresBackend) CreateServer(ctx context.Context, s *models.Server) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	// New servers go to the end of the user's ordering.
	var order int
	if err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM servers WHERE user_id = $1`, s.UserID,
	).Scan(&order); err != nil {
		return fmt.Errorf("counting servers: %w", err)
	}
	s.DisplayOrder = order

	_, err = tx.Exec(ctx,
		`INSERT INTO servers (`+serverColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
		s.ID, s.UserID, s.BaseURL, s.ServerType, s.AuthType, s.Username, s.Token,
		s.RefreshToken, s.TokenExpiry, s.OIDCHost, s.OIDCRealm, s.OIDCClientID,
		s.Label, s.Color, s.DisplayOrder, s.Thumbnail, s.LastAccessed, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("inserting server: %w", err)
	}
	return tx.Commit(ctx)
}

func (p *PostgresBackend) GetServer(ctx context.Context, userID, id string) (*models.Server, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT `+serverColumns+` FROM servers WHERE user_id = $1 AND id = $2`, userID, id)
	return scanServer(row)
}

func (p *PostgresBackend) ListServers(ctx context.Context, userID string) ([]*models.Server, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT `+serverColumns+` FROM servers WHERE user_id = $1 ORDER BY display_order`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var servers []*models.Server
	for rows.Next() {
		s, err := scanServer(rows)
		if err != nil {
			return nil, err
		}
		servers = append(servers, s)
	}
	return servers, rows.Err()
}

func scanServer(row pgx.Row) (*models.Server, error) {
	var s models.Server
	err := row.Scan(
		&s.ID, &s.UserID, &s.BaseURL, &s.ServerType, &s.AuthType, &s.Username, &s.Token,
		&s.RefreshToken, &s.TokenExpiry, &s.OIDCHost, &s.OIDCRealm, &s.OIDCClientID,
		&s.Label, &s.Color, &s.DisplayOrder, &s.Thumbnail, &s.LastAccessed, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (p *PostgresBackend) UpdateServer(ctx context.Context, s *models.Server) error {
	tag, err := p.pool.Exec(ctx,
		`UPDATE servers SET base_url = $3, server_type = $4, auth_type = $5, username = $6,
		   token = $7, refresh_token = $8, token_expiry = $9, oidc_host = $10, oidc_realm = $11,
		   oidc_client_id = $12, label = $13, color = $14, thumbnail = $15, updated_at = NOW()
		 WHERE user_id = $1 AND id = $2`,
		s.UserID, s.ID, s.BaseURL, s.ServerType, s.AuthType, s.Username,
		s.Token, s.RefreshToken, s.TokenExpiry, s.OIDCHost, s.OIDCRealm,
		s.OIDCClientID, s.Label, s.Color, s.Thumbnail,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresBackend) UpdateServerTokens(ctx context.Context, id, token, refreshToken string, expiry *time.Time) error {
	tag, err := p.pool.Exec(ctx,
		`UPDATE servers SET token = $2, refresh_token = $3, token_expiry = $4, updated_at = NOW() WHERE id = $1`,
		id, token, refreshToken, expiry,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresBackend) ReorderServers(ctx context.Context, userID string, orderedIDs []string) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var count int
	if err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM servers WHERE user_id = $1`, userID,
	).Scan(&count); err != nil {
		return err
	}
	if count != len(orderedIDs) {
		return fmt.Errorf("reorder must cover all %d servers, got %d ids", count, len(orderedIDs))
	}

	for order, id := range orderedIDs {
		tag, err := tx.Exec(ctx,
			`UPDATE servers SET display_order = $3, updated_at = NOW() WHERE user_id = $1 AND id = $2`,
			userID, id, order,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("server %s: %w", id, ErrNotFound)
		}
	}
	return tx.Commit(ctx)
}

func (p *PostgresBackend) TouchServerAccess(ctx context.Context, id string) error {
	_, err := p.pool.Exec(ctx, `UPDATE servers SET last_accessed = NOW() WHERE id = $1`, id)
	return err
}

func (p *PostgresBackend) DeleteServer(ctx context.Context, userID, id string) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	tag, err := tx.Exec(ctx, `DELETE FROM servers WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	// Close the gap so display_order stays contiguous from 0.
	_, err = tx.Exec(ctx,
		`WITH ranked AS (
		   SELECT id, ROW_NUMBER() OVER (ORDER BY display_order) - 1 AS new_order
		   FROM servers WHERE user_id = $1
		 )
		 UPDATE servers SET display_order = ranked.new_order
		 FROM ranked WHERE servers.id = ranked.id`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("resequencing display order: %w", err)
	}
	return tx.Commit(ctx)
}

func (p *PostgresBackend) DeleteUserServers(ctx context.Context, userID string) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM servers WHERE user_id = $1`, userID)
	return err
}

// --- Command history ---

func (p *PostgresBackend) WriteCommandHistory(ctx context.Context, e *models.CommandHistory) error {
	return p.pool.QueryRow(ctx,
		`INSERT INTO command_history (user_id, server_id, method, args, succeeded, error_code, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		e.UserID, e.ServerID, e.Method, e.Args, e.Succeeded, e.ErrorCode, e.CreatedAt,
	).Scan(&e.ID)
}

func (p *PostgresBackend) ListCommandHistory(ctx context.Context, userID string, limit int) ([]*models.CommandHistory, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := p.pool.Query(ctx,
		`SELECT id, user_id, server_id, method, args, succeeded, error_code, created_at
		 FROM command_history WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.CommandHistory
	for rows.Next() {
		var e models.CommandHistory
		if err := rows.Scan(&e.ID, &e.UserID, &e.ServerID, &e.Method, &e.Args, &e.Succeeded, &e.ErrorCode, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// --- AI settings ---

func (p *PostgresBackend) GetAISettings(ctx context.Context, userID string) (*models.AISettings, error) {
	var s models.AISettings
	err := p.pool.QueryRow(ctx,
		`SELECT user_id, api_key, model, enabled, updated_at FROM user_ai_settings WHERE user_id = $1`,
		userID,
	).Scan(&s.UserID, &s.APIKey, &s.Model, &s.Enabled, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (p *PostgresBackend) UpsertAISettings(ctx context.Context, s *models.AISettings) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO user_ai_settings (user_id, api_key, model, enabled, updated_at)
		 VALUES ($1, $2, $3, $4, NOW())
		 ON CONFLICT (user_id) DO UPDATE SET
		   api_key = EXCLUDED.api_key, model = EXCLUDED.model,
		   enabled = EXCLUDED.enabled, updated_at = NOW()`,
		s.UserID, s.APIKey, s.Model, s.Enabled,
	)
	return err
}

// --- Audit ---

func (p *PostgresBackend) WriteAuditEntry(ctx context.Context, e *models.AuditEntry) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO audit_log (request_id, timestamp, session_hash, operation, path, status, response_code, response_time_ms, client_ip)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		e.RequestID, e.Timestamp, e.SessionHash, e.Operation, e.Path, e.Status, e.ResponseCode, e.ResponseTimeMs, e.ClientIP,
	)
	return err
}

func (p *PostgresBackend) QueryAuditLog(ctx context.Context, filter AuditFilter) ([]*models.AuditEntry, error) {
	query := `SELECT id, request_id, timestamp, session_hash, operation, path, status, response_code, response_time_ms, client_ip
	          FROM audit_log WHERE 1=1`
	args := []any{}
	n := 1
	if filter.Path != "" {
		query += fmt.Sprintf(" AND path LIKE $%d", n)
		args = append(args, filter.Path+"%")
		n++
	}
	if filter.Since != nil {
		query += fmt.Sprintf(" AND timestamp >= $%d", n)
		args = append(args, *filter.Since)
		n++
	}
	query += " ORDER BY timestamp DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", n)
		args = append(args, filter.Limit)
		n++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", n)
		args = append(args, filter.Offset)
	}

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.AuditEntry
	for rows.Next() {
		var e models.AuditEntry
		if err := rows.Scan(&e.ID, &e.RequestID, &e.Timestamp, &e.SessionHash, &e.Operation, &e.Path,
			&e.Status, &e.ResponseCode, &e.ResponseTimeMs, &e.ClientIP); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
