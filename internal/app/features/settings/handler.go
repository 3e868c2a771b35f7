// internal/app/features/settings/handler.go
package settings

import (
	"context"
	"net/http"
	"strconv"

	uierrors "github.com/dalemusser/chapterhub/internal/app/features/errors"
	"github.com/dalemusser/chapterhub/internal/app/features/shared"
	"github.com/dalemusser/chapterhub/internal/app/system/outreach"
	"github.com/dalemusser/chapterhub/internal/app/system/timeouts"
	"github.com/dalemusser/chapterhub/internal/domain/models"
	"go.uber.org/zap"
)

// Handler owns the app settings endpoints.
type Handler struct {
	Store outreach.SettingsStore
	Log   *zap.Logger
}

// NewHandler constructs a Handler bound to the settings store and logger.
func NewHandler(store outreach.SettingsStore, logger *zap.Logger) *Handler {
	return &Handler{Store: store, Log: logger}
}

// settingsView is the effective configuration, defaults applied.
type settingsView struct {
	UnresponsiveThresholdDays int    `json:"unresponsive_threshold_days"`
	RotationDayOfMonth        int    `json:"rotation_day_of_month"`
	CurrentRotationMonth      string `json:"current_rotation_month"`
}

func viewOf(s outreach.Settings) settingsView {
	return settingsView{
		UnresponsiveThresholdDays: s.UnresponsiveThresholdDays,
		RotationDayOfMonth:        s.RotationDayOfMonth,
		CurrentRotationMonth:      s.CurrentRotationMonth,
	}
}

// updateRequest carries the fields to change; absent fields are kept.
type updateRequest struct {
	UnresponsiveThresholdDays *int    `json:"unresponsive_threshold_days" validate:"omitempty,min=1,max=365" label:"Unresponsive threshold"`
	RotationDayOfMonth        *int    `json:"rotation_day_of_month" validate:"omitempty,min=1,max=28" label:"Rotation day"`
	CurrentRotationMonth      *string `json:"current_rotation_month" validate:"omitempty,month" label:"Current rotation month"`
}

// ServeSettings returns the effective settings.
// GET /api/settings
func (h *Handler) ServeSettings(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	s, err := outreach.LoadSettings(ctx, h.Store)
	if err != nil {
		uierrors.Render(w, h.Log, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, viewOf(s))
}

// HandleSettings saves the given fields and returns the result.
// PUT /api/settings
func (h *Handler) HandleSettings(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if !shared.DecodeJSON(w, r, &req) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	changes := map[string]string{}
	if req.UnresponsiveThresholdDays != nil {
		changes[models.SettingUnresponsiveThresholdDays] = strconv.Itoa(*req.UnresponsiveThresholdDays)
	}
	if req.RotationDayOfMonth != nil {
		changes[models.SettingRotationDayOfMonth] = strconv.Itoa(*req.RotationDayOfMonth)
	}
	if req.CurrentRotationMonth != nil {
		changes[models.SettingCurrentRotationMonth] = *req.CurrentRotationMonth
	}
	for key, value := range changes {
		if err := h.Store.Set(ctx, key, value); err != nil {
			uierrors.Render(w, h.Log, err)
			return
		}
		h.Log.Info("setting changed", zap.String("key", key), zap.String("value", value))
	}

	s, err := outreach.LoadSettings(ctx, h.Store)
	if err != nil {
		uierrors.Render(w, h.Log, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, viewOf(s))
}
