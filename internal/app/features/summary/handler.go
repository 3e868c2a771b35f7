// internal/app/features/summary/handler.go
package summary

import (
	"context"
	"net/http"
	"time"

	"github.com/dalemusser/chapterhub/internal/app/features/shared"
	metricsstore "github.com/dalemusser/chapterhub/internal/app/store/metrics"
	"github.com/dalemusser/chapterhub/internal/app/system/timeouts"
	"github.com/dalemusser/chapterhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the chapter-wide counts.
type Handler struct {
	DB  *mongo.Database
	Log *zap.Logger
	Now func() time.Time
}

func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{DB: db, Log: logger, Now: time.Now}
}

type summaryResponse struct {
	Month string `json:"month"`
	metricsstore.Counts
}

// ServeSummary returns the counts for the month containing now.
// GET /api/summary
func (h *Handler) ServeSummary(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	now := h.Now()
	counts := metricsstore.FetchSummaryCounts(ctx, h.DB, now)
	shared.WriteJSON(w, http.StatusOK, summaryResponse{
		Month:  models.MonthOf(now).String(),
		Counts: counts,
	})
}
