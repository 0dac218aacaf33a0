package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

func (r *Router) createSchedule(c *gin.Context) {
	var body scheduleRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	req, err := body.toDomain()
	if err != nil {
		respondError(c, err, "Failed to schedule content")
		return
	}

	item, err := r.deps.Scheduler.Schedule(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		respondError(c, err, "Failed to schedule content")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":          true,
		"scheduledContent": item,
		"message":          "Content scheduled successfully",
	})
}

func (r *Router) listSchedules(c *gin.Context) {
	items, err := r.deps.Scheduler.List(c.Request.Context(), actorFrom(c))
	if err != nil {
		respondError(c, err, "Failed to fetch scheduled content")
		return
	}

	noCache(c)
	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"scheduledContent": items,
	})
}

func (r *Router) availableContent(c *gin.Context) {
	available, err := r.deps.Scheduler.Available(c.Request.Context(), actorFrom(c))
	if err != nil {
		respondError(c, err, "Failed to fetch available content")
		return
	}

	noCache(c)
	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"availableContent": available,
	})
}

func (r *Router) createRecurring(c *gin.Context) {
	var body recurringRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	req, err := body.toDomain(r.location)
	if err != nil {
		respondError(c, err, "Failed to create recurring schedule")
		return
	}

	result, err := r.deps.Scheduler.ScheduleRecurring(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		respondError(c, err, "Failed to create recurring schedule")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"scheduledItems": result.ScheduledCount,
		"skippedItems":   result.SkippedCount,
		"failedItems":    result.FailedCount,
		"items":          result.Outcomes,
		"message":        fmt.Sprintf("Successfully created %d recurring schedules", result.ScheduledCount),
	})
}

func (r *Router) updateSchedule(c *gin.Context) {
	id, ok := parseScheduleID(c)
	if !ok {
		return
	}
	var body updateRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	item, err := r.deps.Scheduler.Update(c.Request.Context(), actorFrom(c), id, body.toDomain())
	if err != nil {
		respondError(c, err, "Failed to update schedule")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"scheduledContent": item,
		"message":          "Schedule updated successfully",
	})
}

func (r *Router) cancelSchedule(c *gin.Context) {
	id, ok := parseScheduleID(c)
	if !ok {
		return
	}

	if err := r.deps.Scheduler.Cancel(c.Request.Context(), actorFrom(c), id); err != nil {
		respondError(c, err, "Failed to cancel schedule")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Schedule cancelled successfully",
	})
}
