package settings_test

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/chapterhub/internal/app/features/settings"
	"github.com/dalemusser/chapterhub/internal/app/store/memstore"
	"github.com/dalemusser/chapterhub/internal/app/system/auth"
	"github.com/dalemusser/chapterhub/internal/app/system/authz"
	"github.com/dalemusser/chapterhub/internal/domain/models"
	"github.com/dalemusser/chapterhub/internal/testutil"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type view struct {
	UnresponsiveThresholdDays int    `json:"unresponsive_threshold_days"`
	RotationDayOfMonth        int    `json:"rotation_day_of_month"`
	CurrentRotationMonth      string `json:"current_rotation_month"`
}

func newRouter(t *testing.T) (chi.Router, *memstore.DB) {
	t.Helper()
	db := memstore.New()
	sm, err := auth.NewSessionManager("0123456789abcdef0123456789abcdef", "", "", time.Hour, false, zap.NewNop())
	if err != nil {
		t.Fatalf("NewSessionManager: %v", err)
	}
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)
	settings.NewHandler(db.Settings(), zap.NewNop()).MountRoutes(r, sm.RequireRole(authz.AdminRoles...))
	return r, db
}

func serve(r chi.Router, req *http.Request) *testutil.ResponseRecorder {
	rec := testutil.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestServeSettings_Defaults(t *testing.T) {
	r, _ := newRouter(t)

	rec := serve(r, testutil.NewAuthenticatedRequest("GET", "/", testutil.StaffUser(models.GenderFemale)))
	rec.AssertStatus(t, http.StatusOK)
	var v view
	rec.DecodeJSON(t, &v)
	if v.UnresponsiveThresholdDays != 30 || v.RotationDayOfMonth != 1 || v.CurrentRotationMonth != "" {
		t.Errorf("defaults: got %+v", v)
	}
}

func TestHandleSettings_PartialUpdate(t *testing.T) {
	r, _ := newRouter(t)
	admin := testutil.AdminUser()

	rec := serve(r, testutil.NewJSONRequest("PUT", "/", map[string]any{"unresponsive_threshold_days": 14}, admin))
	rec.AssertStatus(t, http.StatusOK)
	var v view
	rec.DecodeJSON(t, &v)
	if v.UnresponsiveThresholdDays != 14 || v.RotationDayOfMonth != 1 {
		t.Errorf("after threshold update: got %+v", v)
	}

	rec = serve(r, testutil.NewJSONRequest("PUT", "/", map[string]any{"rotation_day_of_month": 5, "current_rotation_month": "2026-09"}, admin))
	rec.AssertStatus(t, http.StatusOK)
	rec.DecodeJSON(t, &v)
	if v != (view{14, 5, "2026-09"}) {
		t.Errorf("after second update: got %+v", v)
	}
}

func TestHandleSettings_Validation(t *testing.T) {
	r, _ := newRouter(t)
	admin := testutil.AdminUser()

	tests := []struct {
		name string
		body map[string]any
	}{
		{"threshold zero", map[string]any{"unresponsive_threshold_days": 0}},
		{"rotation day past 28", map[string]any{"rotation_day_of_month": 31}},
		{"bad month", map[string]any{"current_rotation_month": "September"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			serve(r, testutil.NewJSONRequest("PUT", "/", tt.body, admin)).AssertStatus(t, http.StatusUnprocessableEntity)
		})
	}
}

func TestHandleSettings_AdminOnly(t *testing.T) {
	r, _ := newRouter(t)
	rec := serve(r, testutil.NewJSONRequest("PUT", "/", map[string]any{"rotation_day_of_month": 2}, testutil.StaffUser(models.GenderMale)))
	rec.AssertStatus(t, http.StatusForbidden)
}

func TestHandleSettings_StoreFailure(t *testing.T) {
	r, db := newRouter(t)
	db.FailOn(memstore.OpSettingsSet, errors.New("disk full"))

	rec := serve(r, testutil.NewJSONRequest("PUT", "/", map[string]any{"rotation_day_of_month": 2}, testutil.AdminUser()))
	rec.AssertStatus(t, http.StatusInternalServerError)
	rec.AssertContains(t, `"code":"internal"`)
}
