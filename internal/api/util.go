package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/org/noderef/internal/alfresco"
)

// CodeAIConfigMissing signals the AI console is enabled but unconfigured for
// the user; the UI prompts for reconfiguration on it.
const CodeAIConfigMissing = "AI_CONFIG_MISSING"

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func decodeJSON(r *http.Request, dst any) error {
	return json.NewDecoder(r.Body).Decode(dst)
}

// errorBody is the RPC error envelope. Callers branch on Code, never on
// Message text.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, map[string]any{"error": errorBody{Code: code, Message: msg}})
}

// writeDispatchError maps a normalized dispatch error onto an HTTP status and
// the standard envelope.
func writeDispatchError(w http.ResponseWriter, err error) {
	var apiErr *alfresco.Error
	if !errors.As(err, &apiErr) {
		apiErr = alfresco.Normalize(err)
	}
	writeJSON(w, statusForCode(apiErr.Code), map[string]any{
		"error": errorBody{Code: apiErr.Code, Message: apiErr.Message, Details: apiErr.Details},
	})
}

func statusForCode(code string) int {
	switch code {
	case alfresco.CodeInvalidMethodFormat, alfresco.CodeUnknownNamespace,
		alfresco.CodeMethodNotFound, alfresco.CodeInvalidArgs, CodeAIConfigMissing:
		return http.StatusBadRequest
	case alfresco.CodeUnauthorized:
		return http.StatusUnauthorized
	case alfresco.CodePermissionDenied:
		return http.StatusForbidden
	case alfresco.CodeNotFound:
		return http.StatusNotFound
	case alfresco.CodeTimeout:
		return http.StatusGatewayTimeout
	case alfresco.CodeNetworkError, alfresco.CodeServerError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
