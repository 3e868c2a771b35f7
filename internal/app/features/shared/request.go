// Package shared holds request and response helpers used by every JSON
// feature.
package shared

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	uierrors "github.com/dalemusser/chapterhub/internal/app/features/errors"
	"github.com/dalemusser/chapterhub/internal/app/system/authz"
	"github.com/dalemusser/chapterhub/internal/app/system/inputval"
	"github.com/dalemusser/chapterhub/internal/app/system/outreach"
	"github.com/dalemusser/chapterhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const maxBody = 1 << 20

// WriteJSON writes v with status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// DecodeJSON reads the request body into dst and validates it. An empty
// body leaves dst unchanged. On failure it writes the response and returns
// false.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		uierrors.RenderBadRequest(w, fmt.Sprintf("bad request body: %v", err))
		return false
	}
	if res := inputval.Validate(dst); res.HasErrors() {
		uierrors.RenderInvalid(w, res)
		return false
	}
	return true
}

// IDParam parses the named URL parameter as an ObjectID. On failure it
// writes a 400 and returns false.
func IDParam(w http.ResponseWriter, r *http.Request, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, name))
	if err != nil {
		uierrors.RenderBadRequest(w, "bad "+name)
		return primitive.NilObjectID, false
	}
	return id, true
}

// Caller returns the signed-in committee member. On failure it writes a
// 401 and returns false.
func Caller(w http.ResponseWriter, r *http.Request) (outreach.Caller, bool) {
	c, ok := authz.Caller(r)
	if !ok {
		uierrors.RenderUnauthorized(w)
		return outreach.Caller{}, false
	}
	return c, true
}

// MonthQuery reads ?month=YYYY-MM. A missing value yields ok with a nil
// period.
func MonthQuery(w http.ResponseWriter, r *http.Request) (*models.Period, bool) {
	s := r.URL.Query().Get("month")
	if s == "" {
		return nil, true
	}
	p, err := models.ParseMonth(s)
	if err != nil {
		uierrors.RenderBadRequest(w, err.Error())
		return nil, false
	}
	return &p, true
}

// Preview reports whether ?preview is set to a true value.
func Preview(r *http.Request) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get("preview"))
	return v
}

// IntQuery reads an optional positive integer parameter.
func IntQuery(w http.ResponseWriter, r *http.Request, name string) (*int, bool) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return nil, true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		uierrors.RenderBadRequest(w, name+" must be a positive integer")
		return nil, false
	}
	return &n, true
}
