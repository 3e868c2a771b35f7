// internal/app/features/errors/render.go
package errors

import (
	"net/http"

	"github.com/dalemusser/chapterhub/internal/app/system/inputval"
)

// RenderUnauthorized reports a missing or unusable session.
func RenderUnauthorized(w http.ResponseWriter) {
	Write(w, http.StatusUnauthorized, "sign in required", "unauthorized")
}

// RenderForbidden reports a signed-in user acting outside their role.
func RenderForbidden(w http.ResponseWriter, msg string) {
	if msg == "" {
		msg = "access denied"
	}
	Write(w, http.StatusForbidden, msg, "forbidden")
}

// RenderBadRequest reports a body or parameter that could not be parsed.
func RenderBadRequest(w http.ResponseWriter, msg string) {
	Write(w, http.StatusBadRequest, msg, "bad_request")
}

// RenderInvalid reports failed validation rules.
func RenderInvalid(w http.ResponseWriter, res *inputval.Result) {
	Write(w, http.StatusUnprocessableEntity, res.All(), "invalid_input")
}
