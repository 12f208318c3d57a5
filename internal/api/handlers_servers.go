package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/org/noderef/internal/alfresco"
	"github.com/org/noderef/internal/storage"
	"github.com/org/noderef/pkg/models"
)

// serverPayload is the request body for creating and updating a server.
// Credentials are plaintext in transit and encrypted before they reach
// storage.
type serverPayload struct {
	BaseURL      string `json:"baseUrl" validate:"required,url"`
	ServerType   string `json:"serverType"`
	AuthType     string `json:"authType" validate:"required,oneof=basic openid_connect"`
	Username     string `json:"username"`
	Password     string `json:"password"`
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
	OIDCHost     string `json:"oidcHost"`
	OIDCRealm    string `json:"oidcRealm"`
	OIDCClientID string `json:"oidcClientId"`
	Label        string `json:"label"`
	Color        string `json:"color"`
	Thumbnail    string `json:"thumbnail"`
}

// serverView is the response shape. Stored credentials never leave the
// server; only their presence is reported.
type serverView struct {
	ID           string     `json:"id"`
	BaseURL      string     `json:"baseUrl"`
	ServerType   string     `json:"serverType,omitempty"`
	AuthType     string     `json:"authType"`
	Username     string     `json:"username,omitempty"`
	HasToken     bool       `json:"hasToken"`
	TokenExpiry  *time.Time `json:"tokenExpiry,omitempty"`
	OIDCHost     string     `json:"oidcHost,omitempty"`
	OIDCRealm    string     `json:"oidcRealm,omitempty"`
	OIDCClientID string     `json:"oidcClientId,omitempty"`
	Label        string     `json:"label,omitempty"`
	Color        string     `json:"color,omitempty"`
	DisplayOrder int        `json:"displayOrder"`
	Thumbnail    string     `json:"thumbnail,omitempty"`
	LastAccessed *time.Time `json:"lastAccessed,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

func viewOf(srv *models.Server) serverView {
	return serverView{
		ID:           srv.ID,
		BaseURL:      srv.BaseURL,
		ServerType:   srv.ServerType,
		AuthType:     string(srv.AuthType),
		Username:     srv.Username,
		HasToken:     srv.Token != "",
		TokenExpiry:  srv.TokenExpiry,
		OIDCHost:     srv.OIDCHost,
		OIDCRealm:    srv.OIDCRealm,
		OIDCClientID: srv.OIDCClientID,
		Label:        srv.Label,
		Color:        srv.Color,
		DisplayOrder: srv.DisplayOrder,
		Thumbnail:    srv.Thumbnail,
		LastAccessed: srv.LastAccessed,
		CreatedAt:    srv.CreatedAt,
	}
}

// ServerCreateHandler handles POST /v1/servers
func (s *Server) ServerCreateHandler(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromCtx(r.Context())

	var req serverPayload
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	now := time.Now().UTC()
	srv := &models.Server{
		ID:           uuid.NewString(),
		UserID:       sess.UserID,
		BaseURL:      req.BaseURL,
		ServerType:   req.ServerType,
		AuthType:     models.AuthType(req.AuthType),
		Username:     req.Username,
		OIDCHost:     req.OIDCHost,
		OIDCRealm:    req.OIDCRealm,
		OIDCClientID: req.OIDCClientID,
		Label:        req.Label,
		Color:        req.Color,
		Thumbnail:    req.Thumbnail,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := srv.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	if err := s.setCredentials(srv, &req); err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL", "encrypting credentials failed")
		return
	}

	if err := s.store.CreateServer(r.Context(), srv); err != nil {
		writeError(w, http.StatusInternalServerError, "STORAGE_ERROR", err.Error())
		return
	}

	log.Info().Str("server_id", srv.ID).Str("base_url", srv.BaseURL).Msg("registered server")
	writeJSON(w, http.StatusCreated, viewOf(srv))
}

// setCredentials encrypts the submitted secrets into the entity. Basic auth
// stores the password in the token column.
func (s *Server) setCredentials(srv *models.Server, req *serverPayload) error {
	secret := req.Token
	if srv.AuthType == models.AuthBasic && req.Password != "" {
		secret = req.Password
	}
	if secret != "" {
		enc, err := s.cipher.EncryptSecret(secret)
		if err != nil {
			return err
		}
		srv.Token = enc
	}
	if req.RefreshToken != "" {
		enc, err := s.cipher.EncryptSecret(req.RefreshToken)
		if err != nil {
			return err
		}
		srv.RefreshToken = enc
	}
	return nil
}

// ServerListHandler handles GET /v1/servers
func (s *Server) ServerListHandler(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromCtx(r.Context())
	servers, err := s.store.ListServers(r.Context(), sess.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "STORAGE_ERROR", err.Error())
		return
	}
	views := make([]serverView, len(servers))
	for i, srv := range servers {
		views[i] = viewOf(srv)
	}
	writeJSON(w, http.StatusOK, map[string]any{"servers": views})
}

// ServerGetHandler handles GET /v1/servers/{id}
func (s *Server) ServerGetHandler(w http.ResponseWriter, r *http.Request) {
	srv, ok := s.loadServer(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, viewOf(srv))
}

// ServerUpdateHandler handles PUT /v1/servers/{id}
func (s *Server) ServerUpdateHandler(w http.ResponseWriter, r *http.Request) {
	srv, ok := s.loadServer(w, r)
	if !ok {
		return
	}

	var req serverPayload
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	oldBaseURL := srv.BaseURL
	srv.BaseURL = req.BaseURL
	srv.ServerType = req.ServerType
	srv.AuthType = models.AuthType(req.AuthType)
	srv.Username = req.Username
	srv.OIDCHost = req.OIDCHost
	srv.OIDCRealm = req.OIDCRealm
	srv.OIDCClientID = req.OIDCClientID
	srv.Label = req.Label
	srv.Color = req.Color
	srv.Thumbnail = req.Thumbnail
	srv.UpdatedAt = time.Now().UTC()

	if err := srv.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	// Absent credentials keep the stored ones.
	if err := s.setCredentials(srv, &req); err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL", "encrypting credentials failed")
		return
	}

	if err := s.store.UpdateServer(r.Context(), srv); err != nil {
		writeError(w, http.StatusInternalServerError, "STORAGE_ERROR", err.Error())
		return
	}

	// Stale clients for the old endpoint or credentials must not be reused.
	s.cache.Drop(oldBaseURL, nil)
	clientCacheEntries.Set(float64(s.cache.Len()))
	writeJSON(w, http.StatusOK, viewOf(srv))
}

// ServerDeleteHandler handles DELETE /v1/servers/{id}
func (s *Server) ServerDeleteHandler(w http.ResponseWriter, r *http.Request) {
	srv, ok := s.loadServer(w, r)
	if !ok {
		return
	}
	if err := s.store.DeleteServer(r.Context(), srv.UserID, srv.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "STORAGE_ERROR", err.Error())
		return
	}
	s.cache.Drop(srv.BaseURL, nil)
	clientCacheEntries.Set(float64(s.cache.Len()))
	w.WriteHeader(http.StatusNoContent)
}

// ServerReorderHandler handles PUT /v1/servers/reorder
func (s *Server) ServerReorderHandler(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromCtx(r.Context())

	var req struct {
		Order []string `json:"order" validate:"required,min=1"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	if err := s.store.ReorderServers(r.Context(), sess.UserID, req.Order); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ServerTicketHandler handles POST /v1/servers/{id}/ticket. It exchanges the
// server's OIDC access token for a legacy repository ticket, refreshing the
// token first when it is near expiry.
func (s *Server) ServerTicketHandler(w http.ResponseWriter, r *http.Request) {
	srv, ok := s.loadServer(w, r)
	if !ok {
		return
	}
	if srv.AuthType != models.AuthOIDC {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "ticket exchange requires an openid_connect server")
		return
	}

	// Runs the near-expiry refresh as a side effect.
	client, outcome, err := s.provider.AuthenticatedClient(r.Context(), srv.UserID, srv.ID)
	tokenRefreshesTotal.WithLabelValues(outcome.String()).Inc()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL", err.Error())
		return
	}
	if client == nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "server has no stored access token")
		return
	}

	accessToken := client.AuthDescriptor().AccessToken
	ticket, err := s.oidc.ExchangeTokenForTicket(r.Context(), srv.BaseURL, accessToken)
	if err != nil {
		writeDispatchError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ticket": ticket})
}

// ServerLogsHandler handles GET /v1/servers/{id}/logs. It lists the
// repository's log files via the OOTBee support-tools web script.
func (s *Server) ServerLogsHandler(w http.ResponseWriter, r *http.Request) {
	srv, ok := s.loadServer(w, r)
	if !ok {
		return
	}
	args := []any{"GET", "ootbee/admin/log4j-log-files", map[string]any{"format": "json"}}
	s.dispatchForServer(w, r, srv, "webscript.executeWebScript", args)
}

// ServerLogFileHandler handles GET /v1/servers/{id}/logs/{file}
func (s *Server) ServerLogFileHandler(w http.ResponseWriter, r *http.Request) {
	srv, ok := s.loadServer(w, r)
	if !ok {
		return
	}
	file := chi.URLParam(r, "file")
	args := []any{"GET", "ootbee/admin/log4j-log-file", map[string]any{"file": file}}
	s.dispatchForServer(w, r, srv, "webscript.executeWebScript", args)
}

// dispatchForServer runs one dispatcher call with the server's authenticated
// client and writes the result.
func (s *Server) dispatchForServer(w http.ResponseWriter, r *http.Request, srv *models.Server, method string, args any) {
	client, outcome, err := s.provider.AuthenticatedClient(r.Context(), srv.UserID, srv.ID)
	tokenRefreshesTotal.WithLabelValues(outcome.String()).Inc()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL", err.Error())
		return
	}

	result, err := s.dispatcher.Call(r.Context(), srv.BaseURL, method, args, client)
	if err != nil {
		writeDispatchError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": result})
}

// loadServer fetches the path server scoped to the session user, writing the
// error response on failure.
func (s *Server) loadServer(w http.ResponseWriter, r *http.Request) (*models.Server, bool) {
	sess := sessionFromCtx(r.Context())
	id := chi.URLParam(r, "id")
	srv, err := s.store.GetServer(r.Context(), sess.UserID, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, alfresco.CodeNotFound, "server not found")
			return nil, false
		}
		writeError(w, http.StatusInternalServerError, "STORAGE_ERROR", err.Error())
		return nil, false
	}
	return srv, true
}
