package bootstrap

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/chapterhub/internal/app/store/memstore"
	"github.com/dalemusser/chapterhub/internal/app/system/auth"
	"github.com/dalemusser/chapterhub/internal/app/system/metrics"
	"github.com/dalemusser/chapterhub/internal/domain/models"
	"github.com/dalemusser/chapterhub/internal/testutil"
	"go.uber.org/zap"
)

func memStores(db *memstore.DB) Stores {
	return Stores{
		Members:       db.Members(),
		Staff:         db.Staff(),
		Prayer:        db.Prayer(),
		Communication: db.Communication(),
		Logs:          db.Logs(),
		Transfers:     db.Transfers(),
		Settings:      db.Settings(),
		Tx:            db,
	}
}

func TestSeedSettings_KeepsSavedValues(t *testing.T) {
	db := memstore.New()
	ctx := context.Background()
	if err := db.Settings().Set(ctx, models.SettingRotationDayOfMonth, "15"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	cfg := validConfig()
	cfg.DefaultThresholdDays = 45
	cfg.DefaultRotationDay = 3
	if err := SeedSettings(ctx, db.Settings(), cfg, zap.NewNop()); err != nil {
		t.Fatalf("SeedSettings: %v", err)
	}

	values, err := db.Settings().Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if values[models.SettingUnresponsiveThresholdDays] != "45" {
		t.Errorf("threshold: got %q, want 45", values[models.SettingUnresponsiveThresholdDays])
	}
	if values[models.SettingRotationDayOfMonth] != "15" {
		t.Errorf("rotation day overwritten: got %q", values[models.SettingRotationDayOfMonth])
	}
}

func TestSeedSettings_StoreFailure(t *testing.T) {
	db := memstore.New()
	db.FailOn(memstore.OpSettingsSet, errors.New("boom"))
	if err := SeedSettings(context.Background(), db.Settings(), validConfig(), zap.NewNop()); err == nil {
		t.Fatal("expected error")
	}
}

func TestServices_Jobs(t *testing.T) {
	svc := NewServices(memStores(memstore.New()), zap.NewNop(), metrics.New())
	jobs := svc.Jobs(zap.NewNop(), time.Hour)
	if len(jobs) != 2 {
		t.Fatalf("jobs: got %d, want 2", len(jobs))
	}
	names := []string{jobs[0].Name, jobs[1].Name}
	if names[0] != "auto-transfer" || names[1] != "prayer-rotation" {
		t.Errorf("job names: got %v", names)
	}
	for _, j := range jobs {
		if j.Interval != time.Hour {
			t.Errorf("%s interval: got %v", j.Name, j.Interval)
		}
	}
}

func TestNewRouter(t *testing.T) {
	mdb := testutil.SetupTestDB(t)
	svc := NewServices(memStores(memstore.New()), zap.NewNop(), metrics.New())
	deps := DBDeps{MongoClient: mdb.Client(), MongoDatabase: mdb, Services: svc}

	sm, err := auth.NewSessionManager("0123456789abcdef0123456789abcdef", "chapterhub-session", "", time.Hour, false, zap.NewNop())
	if err != nil {
		t.Fatalf("NewSessionManager: %v", err)
	}
	router := NewRouter(deps, sm, NewRegistry(svc), zap.NewNop())

	cookie, err := sm.EncodeCookie(auth.SessionUser{
		ID: "507f1f77bcf86cd799439011", Name: "Pat", Gender: "female", Role: models.RolePresident,
	})
	if err != nil {
		t.Fatalf("EncodeCookie: %v", err)
	}

	tests := []struct {
		name     string
		method   string
		path     string
		signedIn bool
		want     int
		contains string
	}{
		{"health", "GET", "/health", false, http.StatusOK, `"status":"ok"`},
		{"metrics", "GET", "/metrics", false, http.StatusOK, "go_goroutines"},
		{"user anonymous", "GET", "/api/user", false, http.StatusOK, `"isAuthenticated":false`},
		{"user signed in", "GET", "/api/user", true, http.StatusOK, `"isAuthenticated":true`},
		{"prayer needs session", "GET", "/api/prayer/mine", false, http.StatusUnauthorized, ""},
		{"prayer list", "GET", "/api/prayer", true, http.StatusOK, `"assignments":[]`},
		{"settings needs session", "GET", "/api/settings", false, http.StatusUnauthorized, ""},
		{"settings", "GET", "/api/settings", true, http.StatusOK, `"unresponsive_threshold_days":30`},
		{"communication mine", "GET", "/api/communication/mine", true, http.StatusOK, ""},
		{"summary", "GET", "/api/summary", true, http.StatusOK, `"active_members"`},
		{"unknown", "GET", "/api/nope", true, http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.signedIn {
				req.AddCookie(&http.Cookie{Name: sm.Name(), Value: cookie})
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("status: got %d, want %d (body %s)", rec.Code, tt.want, rec.Body.String())
			}
			if tt.contains != "" && !strings.Contains(rec.Body.String(), tt.contains) {
				t.Errorf("body %q does not contain %q", rec.Body.String(), tt.contains)
			}
		})
	}
}
