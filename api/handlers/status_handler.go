package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/suno-sync-go/internal/app"
	"github.com/yourusername/suno-sync-go/internal/domain"
	"go.uber.org/zap"
)

// StatusHandler serves the sync status: the persisted summary, the live
// missing/extra reconciliation, and the download ledger.
type StatusHandler struct {
	reconciler *app.Reconciler
	attempts   domain.AttemptRepository
	outDir     string
	logger     *zap.Logger
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(reconciler *app.Reconciler, attempts domain.AttemptRepository, outDir string, logger *zap.Logger) *StatusHandler {
	return &StatusHandler{
		reconciler: reconciler,
		attempts:   attempts,
		outDir:     outDir,
		logger:     logger,
	}
}

// GetReport handles GET /api/v1/report
// Returns the summary persisted by the last fetch pass.
func (h *StatusHandler) GetReport(c *gin.Context) {
	sum, err := app.LoadSummary(h.outDir)
	if err != nil {
		h.logger.Error("Failed to load summary", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if sum == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no report yet, run a fetch first"})
		return
	}

	c.JSON(http.StatusOK, sum)
}

// GetMissing handles GET /api/v1/missing
// Recomputes the missing set from the current cache and directory.
func (h *StatusHandler) GetMissing(c *gin.Context) {
	rec, err := h.reconciler.Reconcile()
	if err != nil {
		h.logger.Error("Failed to reconcile", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	missing := rec.Missing
	if missing == nil {
		missing = []domain.MissingClip{}
	}
	c.JSON(http.StatusOK, gin.H{
		"count":   len(missing),
		"missing": missing,
	})
}

// GetExtra handles GET /api/v1/extra
func (h *StatusHandler) GetExtra(c *gin.Context) {
	rec, err := h.reconciler.Reconcile()
	if err != nil {
		h.logger.Error("Failed to reconcile", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	extra := rec.Extra
	if extra == nil {
		extra = []string{}
	}
	c.JSON(http.StatusOK, gin.H{
		"count": len(extra),
		"extra": extra,
	})
}

// GetStats handles GET /api/v1/attempts
func (h *StatusHandler) GetStats(c *gin.Context) {
	stats, err := h.attempts.Stats()
	if err != nil {
		h.logger.Error("Failed to get ledger stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetHistory handles GET /api/v1/history
func (h *StatusHandler) GetHistory(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}

	records, err := h.attempts.History(limit)
	if err != nil {
		h.logger.Error("Failed to get download history", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if records == nil {
		records = []*domain.DownloadRecord{}
	}
	c.JSON(http.StatusOK, records)
}
