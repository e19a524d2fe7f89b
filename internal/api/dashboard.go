package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"sentinel/internal/domain/article"
	domainRisk "sentinel/internal/domain/risk"
	"sentinel/internal/queue"
	"sentinel/pkg/errors"
	"sentinel/pkg/logger"
)

const (
	defaultFeedLimit = 20
	maxFeedLimit     = 100
)

// DashboardHandler serves the JSON read endpoints behind the dashboard.
type DashboardHandler struct {
	articles article.Repository
	raws     article.RawRepository
	calcs    domainRisk.Repository
	queue    *queue.Queue
	log      *logger.Logger
}

// NewDashboardHandler creates the dashboard read API.
func NewDashboardHandler(
	articles article.Repository,
	raws article.RawRepository,
	calcs domainRisk.Repository,
	q *queue.Queue,
	log *logger.Logger,
) *DashboardHandler {
	return &DashboardHandler{
		articles: articles,
		raws:     raws,
		calcs:    calcs,
		queue:    q,
		log:      log.With("component", "api"),
	}
}

// HandleRecentNews returns the analyzed news feed, highest display
// priority first.
func (h *DashboardHandler) HandleRecentNews(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	limit := defaultFeedLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if n > maxFeedLimit {
			n = maxFeedLimit
		}
		limit = n
	}

	items, err := h.articles.Feed(r.Context(), limit)
	if err != nil {
		h.log.Error("Failed to load news feed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load news feed")
		return
	}
	if items == nil {
		items = []article.FeedItem{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"news":  items,
		"count": len(items),
	})
}

// HandleCurrentRisk returns the latest daily risk calculation. An empty
// database yields a neutral default instead of an error.
func (h *DashboardHandler) HandleCurrentRisk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	latest, err := h.calcs.Latest(r.Context())
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			respondJSON(w, http.StatusOK, map[string]interface{}{
				"current_risk_score":       0.0,
				"risk_trend":               domainRisk.TrendStable,
				"contributing_factors":     []string{},
				"article_count":            0,
				"total_financial_exposure": "0",
			})
			return
		}
		h.log.Error("Failed to load risk calculation", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load risk calculation")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"current_risk_score":       latest.Score,
		"risk_trend":               latest.Trend,
		"contributing_factors":     latest.ContributingFactors,
		"article_count":            latest.ArticleCount,
		"total_financial_exposure": latest.TotalExposure.String(),
		"calculation_date":         latest.Date,
		"updated_at":               latest.UpdatedAt.Format(time.RFC3339),
	})
}

// HandleRiskBreakdown returns article counts per risk category with
// chart colors attached.
func (h *DashboardHandler) HandleRiskBreakdown(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	rows, err := h.articles.CategoryBreakdown(r.Context())
	if err != nil {
		h.log.Error("Failed to load category breakdown", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load category breakdown")
		return
	}
	for i := range rows {
		rows[i].Color = colorFor(rows[i].Category)
	}
	if rows == nil {
		rows = []article.CategoryCount{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"breakdown": rows,
	})
}

// HandleStatus reports pipeline progress counters for operators.
func (h *DashboardHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	ctx := r.Context()

	rawTotal, rawProcessed, err := h.raws.Counts(ctx)
	if err != nil {
		h.log.Error("Failed to load ingest counters", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load status")
		return
	}

	articleCount, err := h.articles.Count(ctx)
	if err != nil {
		h.log.Error("Failed to count articles", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load status")
		return
	}

	status := map[string]interface{}{
		"status":        "ok",
		"raw_total":     rawTotal,
		"raw_processed": rawProcessed,
		"raw_pending":   rawTotal - rawProcessed,
		"articles":      articleCount,
	}

	if depth, err := h.queue.Depth(ctx); err == nil {
		status["queue_depth"] = depth
	} else {
		h.log.Warn("Failed to read queue depth", "error", err)
	}

	latest, err := h.calcs.Latest(ctx)
	switch {
	case err == nil:
		status["latest_risk_score"] = latest.Score
		status["latest_risk_date"] = latest.Date
	case errors.Is(err, errors.ErrNotFound):
		// No daily calculation yet.
	default:
		h.log.Warn("Failed to read latest risk calculation", "error", err)
	}

	respondJSON(w, http.StatusOK, status)
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
