package health_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/chapterhub/internal/app/features/health"
	"github.com/dalemusser/chapterhub/internal/app/store/memstore"
	"github.com/dalemusser/chapterhub/internal/domain/models"
	"github.com/dalemusser/chapterhub/internal/testutil"
	"go.uber.org/zap"
)

type report struct {
	Status        string `json:"status"`
	Database      string `json:"database"`
	Scheduler     string `json:"scheduler"`
	RotationMonth string `json:"rotation_month"`
	Message       string `json:"message"`
}

func serve(t *testing.T, h *health.Handler) (int, report) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.Serve(rec, httptest.NewRequest("GET", "/health", nil))
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q", ct)
	}
	var got report
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return rec.Code, got
}

func TestServe_Connected(t *testing.T) {
	db := testutil.SetupTestDB(t)
	settings := memstore.New().Settings()
	if err := settings.Set(context.Background(), models.SettingCurrentRotationMonth, "2026-05"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	h := health.NewHandler(db.Client(), settings, zap.NewNop())
	h.Scheduler = func() bool { return true }

	code, got := serve(t, h)
	if code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", code, http.StatusOK)
	}
	want := report{Status: "ok", Database: "connected", Scheduler: "running", RotationMonth: "2026-05"}
	if got != want {
		t.Errorf("report: got %+v, want %+v", got, want)
	}
}

func TestServe_NoSettings(t *testing.T) {
	db := testutil.SetupTestDB(t)
	code, got := serve(t, health.NewHandler(db.Client(), nil, zap.NewNop()))
	if code != http.StatusOK || got.RotationMonth != "" || got.Scheduler != "" {
		t.Errorf("got %d %+v", code, got)
	}
}

func TestServe_Disconnected(t *testing.T) {
	db := testutil.SetupTestDB(t)
	client := db.Client()
	if err := client.Disconnect(context.Background()); err != nil {
		t.Fatalf("disconnect: %v", err)
	}

	code, got := serve(t, health.NewHandler(client, nil, zap.NewNop()))
	if code != http.StatusServiceUnavailable {
		t.Fatalf("status: got %d, want %d", code, http.StatusServiceUnavailable)
	}
	if got.Status != "error" || got.Database != "disconnected" || got.Message != "Database unavailable" {
		t.Errorf("report: got %+v", got)
	}
}
