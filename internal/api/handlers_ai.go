package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/org/noderef/internal/ai"
	"github.com/org/noderef/internal/alfresco"
	"github.com/org/noderef/internal/storage"
	"github.com/org/noderef/pkg/models"
)

// AIStatusHandler handles GET /v1/ai/status
func (s *Server) AIStatusHandler(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromCtx(r.Context())

	configured := false
	model := ""
	if s.cfg.EnableAIConsole {
		settings, err := s.store.GetAISettings(r.Context(), sess.UserID)
		if err == nil && settings.Enabled && settings.APIKey != "" {
			configured = true
			model = settings.Model
			if model == "" {
				model = ai.DefaultModel
			}
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"enabled":    s.cfg.EnableAIConsole,
		"configured": configured,
		"model":      model,
	})
}

// AISettingsHandler handles PUT /v1/ai/settings
func (s *Server) AISettingsHandler(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromCtx(r.Context())

	var req struct {
		APIKey  string `json:"apiKey"`
		Model   string `json:"model"`
		Enabled bool   `json:"enabled"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
		return
	}

	settings := &models.AISettings{
		UserID:  sess.UserID,
		Model:   req.Model,
		Enabled: req.Enabled,
	}
	if req.APIKey != "" {
		enc, err := s.cipher.EncryptSecret(req.APIKey)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "INTERNAL", "encrypting API key failed")
			return
		}
		settings.APIKey = enc
	}

	if err := s.store.UpsertAISettings(r.Context(), settings); err != nil {
		writeError(w, http.StatusInternalServerError, "STORAGE_ERROR", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AIRouterHandler handles POST /v1/ai/router. It returns the model's method
// choice without executing it.
func (s *Server) AIRouterHandler(w http.ResponseWriter, r *http.Request) {
	router, ok := s.userRouter(w, r)
	if !ok {
		return
	}

	var req struct {
		Instruction string `json:"instruction" validate:"required"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	call, err := router.Route(r.Context(), req.Instruction)
	if err != nil {
		writeError(w, http.StatusBadGateway, "AI_ROUTER_FAILED", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, call)
}

// AIExecuteHandler handles POST /v1/ai/execute. It routes the instruction and
// dispatches the resulting call against the target server in one round trip.
func (s *Server) AIExecuteHandler(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromCtx(r.Context())
	router, ok := s.userRouter(w, r)
	if !ok {
		return
	}

	var req struct {
		Instruction string `json:"instruction" validate:"required"`
		ServerID    string `json:"serverId" validate:"required"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	call, err := router.Route(r.Context(), req.Instruction)
	if err != nil {
		writeError(w, http.StatusBadGateway, "AI_ROUTER_FAILED", err.Error())
		return
	}

	srv, err := s.store.GetServer(r.Context(), sess.UserID, req.ServerID)
	if err != nil {
		writeError(w, http.StatusNotFound, alfresco.CodeNotFound, "server not found")
		return
	}
	client, outcome, err := s.provider.AuthenticatedClient(r.Context(), srv.UserID, srv.ID)
	tokenRefreshesTotal.WithLabelValues(outcome.String()).Inc()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL", err.Error())
		return
	}

	var rawArgs any
	if len(call.Args) > 0 {
		if err := json.Unmarshal(call.Args, &rawArgs); err != nil {
			writeError(w, http.StatusBadGateway, "AI_ROUTER_FAILED", "model produced unparseable args")
			return
		}
	}

	result, err := s.dispatcher.Call(r.Context(), srv.BaseURL, call.Method, rawArgs, client)
	if err != nil {
		writeDispatchError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"call": call, "data": result})
}

// userRouter builds an AI router from the session user's settings. Writes
// the error response and returns false when the console is disabled or
// unconfigured.
func (s *Server) userRouter(w http.ResponseWriter, r *http.Request) (*ai.Router, bool) {
	if !s.cfg.EnableAIConsole {
		writeError(w, http.StatusNotFound, "AI_DISABLED", "AI console is disabled")
		return nil, false
	}

	sess := sessionFromCtx(r.Context())
	settings, err := s.store.GetAISettings(r.Context(), sess.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusBadRequest, CodeAIConfigMissing, "AI console is not configured")
			return nil, false
		}
		writeError(w, http.StatusInternalServerError, "STORAGE_ERROR", err.Error())
		return nil, false
	}
	if !settings.Enabled || settings.APIKey == "" {
		writeError(w, http.StatusBadRequest, CodeAIConfigMissing, "AI console is not configured")
		return nil, false
	}

	apiKey, err := s.cipher.DecryptSecret(settings.APIKey)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL", "decrypting API key failed")
		return nil, false
	}
	return ai.NewRouter(s.newCompleter(apiKey, settings.Model)), true
}
