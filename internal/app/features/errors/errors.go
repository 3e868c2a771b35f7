// internal/app/features/errors/errors.go
package errors

import (
	"encoding/json"
	"net/http"

	"github.com/dalemusser/chapterhub/internal/app/system/outreach"
	"go.uber.org/zap"
)

// body is the JSON shape of every error response.
type body struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// StatusFor maps a precondition error to its HTTP status. Errors that are
// not preconditions are internal (500).
func StatusFor(err error) int {
	switch outreach.Code(err) {
	case "not_found":
		return http.StatusNotFound
	case "already_exists", "already_claimed", "not_claimed", "not_rotated":
		return http.StatusConflict
	case "not_owner", "gender_mismatch":
		return http.StatusForbidden
	case "not_eligible", "inactive_member", "no_eligible_staff", "invalid_input":
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// Render writes err as a JSON error response. Internal errors are logged and
// their detail is withheld from the client.
func Render(w http.ResponseWriter, log *zap.Logger, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		if log != nil {
			log.Error("request failed", zap.Error(err))
		}
		Write(w, status, "internal error", "internal")
		return
	}
	Write(w, status, err.Error(), outreach.Code(err))
}

// Write sends a JSON error body with status.
func Write(w http.ResponseWriter, status int, msg, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body{Error: msg, Code: code})
}
