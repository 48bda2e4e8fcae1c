package httpapi

import (
	"net/http"
	"strings"

	"leadscout-engine/internal/secrets"
)

// SecretsHandler manages /api/secrets/{account}. Values go straight to the
// OS keychain and are never echoed back.
type SecretsHandler struct{}

type setSecretReq struct {
	Value string `json:"value"`
}

func accountFromPath(path string) string {
	return strings.TrimPrefix(path, "/api/secrets/")
}

func (h SecretsHandler) Set(w http.ResponseWriter, r *http.Request) {
	account := accountFromPath(r.URL.Path)
	if !secrets.Known(account) {
		WriteError(w, r, http.StatusNotFound, "unknown_secret", "unknown secret account: "+account)
		return
	}

	var req setSecretReq
	if !readJSON(w, r, &req) {
		return
	}
	if err := secrets.Set(account, req.Value); err != nil {
		WriteError(w, r, http.StatusBadRequest, "store_failed", "failed to store secret: "+err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h SecretsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	account := accountFromPath(r.URL.Path)
	if !secrets.Known(account) {
		WriteError(w, r, http.StatusNotFound, "unknown_secret", "unknown secret account: "+account)
		return
	}
	if err := secrets.Delete(account); err != nil {
		WriteError(w, r, http.StatusBadRequest, "delete_failed", "failed to delete secret: "+err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
