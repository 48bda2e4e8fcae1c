package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
)

// maxBodyBytes caps request bodies; every payload the API accepts is far
// smaller than this.
const maxBodyBytes = 1 << 20

// readJSON decodes a request body into dst, answering 400 itself on bad
// input. Callers stop when it returns false.
func readJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(dst); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_json", "invalid JSON: "+err.Error())
		return false
	}
	return true
}

// methodMux dispatches on HTTP method, answering 405 in the API's error
// shape for anything unrouted.
func methodMux(m map[string]http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h, ok := m[r.Method]; ok {
			h(w, r)
			return
		}
		WriteError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	}
}
