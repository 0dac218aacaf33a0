package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	infralogger "github.com/pnwmakes/h3-network-platform-sub003/infrastructure/logger"
	"github.com/pnwmakes/h3-network-platform-sub003/internal/domain"
)

type sweepSummary struct {
	Total     int `json:"total"`
	Published int `json:"published"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

type sweepResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	*domain.SweepResult
	Summary sweepSummary `json:"summary"`
}

func (r *Router) runSweep(c *gin.Context) {
	now := r.deps.Clock()

	result, err := r.deps.Sweeper.RunSweep(c.Request.Context(), now)
	if err != nil {
		r.logger.Error("Auto-publish system error", infralogger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"success":   false,
			"message":   "Auto-publish system error",
			"timestamp": now,
		})
		return
	}

	c.JSON(http.StatusOK, sweepResponse{
		Success:     true,
		Message:     fmt.Sprintf("Auto-publish completed. Processed %d items.", result.Total()),
		SweepResult: result,
		Summary: sweepSummary{
			Total:     result.Total(),
			Published: result.PublishedCount,
			Failed:    result.FailedCount,
			Skipped:   result.SkippedCount,
		},
	})
}

func (r *Router) sweepStatus(c *gin.Context) {
	report, err := r.deps.Sweeper.UpcomingAndRecent(c.Request.Context(), r.deps.Clock())
	if err != nil {
		r.logger.Error("Failed to get auto-publish status", infralogger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to get auto-publish status",
		})
		return
	}

	noCache(c)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    report,
	})
}
