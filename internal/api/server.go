package api

import (
	"context"
	"crypto/tls"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/org/noderef/internal/ai"
	"github.com/org/noderef/internal/alfresco"
	"github.com/org/noderef/internal/audit"
	"github.com/org/noderef/internal/auth"
	"github.com/org/noderef/internal/crypto"
	"github.com/org/noderef/internal/storage"
	"github.com/org/noderef/pkg/models"
)

// Config holds server configuration.
type Config struct {
	ListenAddr      string
	TLSCertFile     string
	TLSKeyFile      string
	DBUrl           string
	MigrationsDir   string
	EnableAIConsole bool
}

// AuditLogger is the interface the server needs from an audit logger.
type AuditLogger interface {
	LogRequest(ctx context.Context, entry *models.AuditEntry)
	Query(ctx context.Context, filter storage.AuditFilter) ([]*models.AuditEntry, error)
}

// Server is the RPC server backing the desktop UI and CLI.
type Server struct {
	store      storage.StorageBackend
	cipher     *crypto.Cipher
	cache      *alfresco.ClientCache
	dispatcher *alfresco.Dispatcher
	oidc       *alfresco.OIDCService
	sessions   *auth.SessionService
	provider   *auth.ClientProvider
	auditor    AuditLogger
	validate   *validator.Validate

	// newCompleter is swappable so tests never hit the real API.
	newCompleter func(apiKey, model string) ai.Completer

	cfg     Config
	httpSrv *http.Server
}

// NewServer creates a fully wired Server over the given storage and cipher.
func NewServer(store storage.StorageBackend, cipher *crypto.Cipher, cfg Config) *Server {
	cache := alfresco.NewClientCache()
	oidc := alfresco.NewOIDCService()

	return &Server{
		store:      store,
		cipher:     cipher,
		cache:      cache,
		dispatcher: alfresco.NewDispatcher(cache),
		oidc:       oidc,
		sessions:   auth.NewSessionService(store),
		provider:   auth.NewClientProvider(store, cipher, cache, oidc),
		auditor:    audit.NewLogger(store),
		validate:   validator.New(),
		newCompleter: func(apiKey, model string) ai.Completer {
			return ai.NewClaudeCompleter(apiKey, model)
		},
		cfg: cfg,
	}
}

// ClientCache exposes the repository client cache (for shutdown disposal).
func (s *Server) ClientCache() *alfresco.ClientCache {
	return s.cache
}

// BuildRouter wires up all routes and returns a chi router.
func (s *Server) BuildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(metricsMiddleware)
	r.Use(newRateLimiter(100, 200).middleware)
	r.Use(auditMiddleware(s.auditor))

	// Prometheus metrics (unauthenticated)
	r.Handle("/metrics", MetricsHandler())

	// Public routes (no auth required)
	r.Group(func(r chi.Router) {
		r.Get("/v1/sys/health", s.HealthHandler)
		r.Post("/v1/auth/register", s.RegisterHandler)
		r.Post("/v1/auth/login", s.LoginHandler)
	})

	// Authenticated routes
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware(s.sessions))

		r.Post("/v1/auth/logout", s.LogoutHandler)
		r.Get("/v1/sys/audit-log", s.AuditLogHandler)

		// Server registry
		r.Post("/v1/servers", s.ServerCreateHandler)
		r.Get("/v1/servers", s.ServerListHandler)
		r.Put("/v1/servers/reorder", s.ServerReorderHandler)
		r.Get("/v1/servers/{id}", s.ServerGetHandler)
		r.Put("/v1/servers/{id}", s.ServerUpdateHandler)
		r.Delete("/v1/servers/{id}", s.ServerDeleteHandler)
		r.Post("/v1/servers/{id}/ticket", s.ServerTicketHandler)
		r.Get("/v1/servers/{id}/logs", s.ServerLogsHandler)
		r.Get("/v1/servers/{id}/logs/{file}", s.ServerLogFileHandler)

		// Proxy dispatch + console history
		r.Post("/v1/proxy", s.ProxyHandler)
		r.Get("/v1/history", s.HistoryHandler)

		// AI console
		r.Get("/v1/ai/status", s.AIStatusHandler)
		r.Put("/v1/ai/settings", s.AISettingsHandler)
		r.Post("/v1/ai/router", s.AIRouterHandler)
		r.Post("/v1/ai/execute", s.AIExecuteHandler)
	})

	return r
}

// Start begins listening on the configured address.
func (s *Server) Start() error {
	handler := s.BuildRouter()

	s.httpSrv = &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second, // proxy calls can be slow downstream
		IdleTimeout:  60 * time.Second,
	}

	if s.cfg.TLSCertFile != "" && s.cfg.TLSKeyFile != "" {
		tlsCfg := &tls.Config{
			MinVersion: tls.VersionTLS12,
			CurvePreferences: []tls.CurveID{
				tls.CurveP256,
				tls.X25519,
			},
		}
		s.httpSrv.TLSConfig = tlsCfg
		log.Info().Str("addr", s.cfg.ListenAddr).Msg("starting HTTPS server")
		return s.httpSrv.ListenAndServeTLS(s.cfg.TLSCertFile, s.cfg.TLSKeyFile)
	}

	log.Info().Str("addr", s.cfg.ListenAddr).Msg("starting HTTP server")
	return s.httpSrv.ListenAndServe()
}

// Shutdown gracefully stops the server and disposes the client cache.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cache.Clear()
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}
