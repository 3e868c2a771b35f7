// internal/app/system/authz/authz.go
package authz

import (
	"net/http"
	"strings"

	"github.com/dalemusser/chapterhub/internal/app/policy/staffpolicy"
	"github.com/dalemusser/chapterhub/internal/app/system/auth"
	"github.com/dalemusser/chapterhub/internal/app/system/outreach"
	"github.com/dalemusser/chapterhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserCtx returns the user's role (lowercased), name, Mongo ObjectID, and a found flag.
// If no user is present in context or the user ID is malformed, it returns
// "visitor", "", NilObjectID, false, so ok=true always means a valid user ID.
func UserCtx(r *http.Request) (role string, name string, userID primitive.ObjectID, ok bool) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		return "visitor", "", primitive.NilObjectID, false
	}
	userID, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		// Malformed user ID in session: fail closed.
		return "visitor", "", primitive.NilObjectID, false
	}
	return strings.ToLower(user.Role), user.Name, userID, true
}

// Caller returns the signed-in committee member as an outreach.Caller.
func Caller(r *http.Request) (outreach.Caller, bool) {
	role, _, id, ok := UserCtx(r)
	if !ok {
		return outreach.Caller{}, false
	}
	user, _ := auth.CurrentUser(r)
	gender, _ := models.ParseGender(user.Gender)
	return outreach.Caller{ID: id, Gender: gender, Role: role}, true
}

// IsAdmin reports whether the current request's user may run
// administrative operations.
func IsAdmin(r *http.Request) bool {
	role, _, _, ok := UserCtx(r)
	return ok && staffpolicy.IsAdminRole(role)
}
