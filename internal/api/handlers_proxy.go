package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/org/noderef/internal/alfresco"
	"github.com/org/noderef/internal/auth"
	"github.com/org/noderef/pkg/models"
)

// proxyRequest is the JSON shape of a proxied repository call.
type proxyRequest struct {
	BaseURL  string          `json:"baseUrl"`
	ServerID string          `json:"serverId"`
	Method   string          `json:"method" validate:"required"`
	Args     json.RawMessage `json:"args,omitempty"`
}

// ProxyHandler handles POST /v1/proxy. It resolves the dotted method against
// the registry and invokes it, with the server's authenticated client when a
// serverId is given and an unauthenticated one otherwise. Every call is
// recorded to the command history.
func (s *Server) ProxyHandler(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromCtx(r.Context())

	var req proxyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	var client *alfresco.Client
	baseURL := req.BaseURL
	if req.ServerID != "" {
		srv, err := s.store.GetServer(r.Context(), sess.UserID, req.ServerID)
		if err != nil {
			writeError(w, http.StatusNotFound, alfresco.CodeNotFound, "server not found")
			return
		}
		if baseURL == "" {
			baseURL = srv.BaseURL
		}
		var outcome auth.RefreshOutcome
		client, outcome, err = s.provider.AuthenticatedClient(r.Context(), srv.UserID, srv.ID)
		tokenRefreshesTotal.WithLabelValues(outcome.String()).Inc()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "INTERNAL", err.Error())
			return
		}
	}
	if baseURL == "" {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "baseUrl or serverId is required")
		return
	}

	var rawArgs any
	if len(req.Args) > 0 {
		if err := json.Unmarshal(req.Args, &rawArgs); err != nil {
			writeError(w, http.StatusBadRequest, alfresco.CodeInvalidArgs, "args must be a JSON array or object")
			return
		}
	}

	result, err := s.dispatcher.Call(r.Context(), baseURL, req.Method, rawArgs, client)
	s.recordHistory(r, sess.UserID, &req, err)

	namespace := req.Method
	if i := strings.Index(namespace, "."); i > 0 {
		namespace = namespace[:i]
	}
	code := "OK"
	if err != nil {
		code = alfresco.Normalize(err).Code
	}
	proxyCallsTotal.WithLabelValues(namespace, code).Inc()
	clientCacheEntries.Set(float64(s.cache.Len()))

	if err != nil {
		writeDispatchError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": result})
}

// recordHistory writes the call to the console command history, best-effort.
func (s *Server) recordHistory(r *http.Request, userID string, req *proxyRequest, callErr error) {
	entry := &models.CommandHistory{
		UserID:    userID,
		ServerID:  req.ServerID,
		Method:    req.Method,
		Args:      string(req.Args),
		Succeeded: callErr == nil,
		CreatedAt: time.Now().UTC(),
	}
	if callErr != nil {
		entry.ErrorCode = alfresco.Normalize(callErr).Code
	}
	if err := s.store.WriteCommandHistory(r.Context(), entry); err != nil {
		log.Warn().Err(err).Msg("recording command history failed")
	}
}

// HistoryHandler handles GET /v1/history
func (s *Server) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromCtx(r.Context())

	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}

	entries, err := s.store.ListCommandHistory(r.Context(), sess.UserID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "STORAGE_ERROR", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": entries})
}
