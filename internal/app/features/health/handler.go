package health

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dalemusser/chapterhub/internal/app/system/outreach"
	"github.com/dalemusser/chapterhub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Handler reports database reachability and where the prayer rotation
// stands.
type Handler struct {
	Client    *mongo.Client
	Settings  outreach.SettingsStore // optional
	Scheduler func() bool            // optional; reports whether jobs are running
	Log       *zap.Logger
}

func NewHandler(client *mongo.Client, settings outreach.SettingsStore, logger *zap.Logger) *Handler {
	return &Handler{Client: client, Settings: settings, Log: logger}
}

type status struct {
	Status        string `json:"status"`
	Database      string `json:"database"`
	Scheduler     string `json:"scheduler,omitempty"`
	RotationMonth string `json:"rotation_month,omitempty"`
	Message       string `json:"message,omitempty"`
	Error         string `json:"error,omitempty"`
}

// Serve handles GET /health. It answers 200 when Mongo answers a ping and
// 503 otherwise. The rotation month is the last month buckets were rotated
// into; it is left out when unknown.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Ping())
	defer cancel()

	w.Header().Set("Content-Type", "application/json")

	st := status{Status: "ok", Database: "connected"}
	if h.Scheduler != nil {
		st.Scheduler = "stopped"
		if h.Scheduler() {
			st.Scheduler = "running"
		}
	}

	if err := h.Client.Ping(ctx, readpref.Primary()); err != nil {
		h.Log.Error("health-check: mongo ping failed", zap.Error(err))
		st.Status = "error"
		st.Database = "disconnected"
		st.Message = "Database unavailable"
		st.Error = err.Error()
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(st)
		return
	}

	if h.Settings != nil {
		if s, err := outreach.LoadSettings(ctx, h.Settings); err != nil {
			h.Log.Warn("health-check: settings unavailable", zap.Error(err))
		} else {
			st.RotationMonth = s.CurrentRotationMonth
		}
	}

	_ = json.NewEncoder(w).Encode(st)
}
