package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/fieldserve/backend/internal/db"
	"github.com/fieldserve/backend/internal/notify"
	"github.com/fieldserve/backend/internal/schedule"
)

type Handler struct {
	Store         *db.Store
	Collection    *schedule.Collection
	Roster        *schedule.RosterCache
	Mutator       *schedule.Mutator
	Notifications *notify.Center
	Validator     *validator.Validate
	Logger        zerolog.Logger
	AdminKey      string
	NeutralColor  string
}

type ScheduleRequest struct {
	ScheduledAt time.Time `json:"scheduled_at" validate:"required"`
}

func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	if err := h.Store.Ping(ctx); err != nil {
		writeError(c, http.StatusServiceUnavailable, "DB_UNAVAILABLE", "Database unavailable", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// @Summary Unscheduled work queue
// @Description Work records awaiting a calendar slot, newest first
// @Tags schedule
// @Produce json
// @Success 200 {object} map[string]any
// @Router /api/schedule/queue [get]
func (h *Handler) ScheduleQueue(c *gin.Context) {
	records := schedule.Overlay(h.Collection.Snapshot(), h.Mutator.PendingOps())
	items := schedule.UnscheduledQueue(records)
	c.JSON(http.StatusOK, gin.H{"items": items, "count": len(items)})
}

// @Summary Calendar events
// @Description Scheduled work projected as calendar events, filtered by view scope
// @Tags schedule
// @Produce json
// @Param view query string false "team or personal"
// @Param viewer query string false "Current viewer id (personal view)"
// @Param assignee query string false "Explicit assignee filter"
// @Success 200 {object} map[string]any
// @Router /api/schedule/events [get]
func (h *Handler) ScheduleEvents(c *gin.Context) {
	opts := schedule.ViewOptions{
		Mode:         c.DefaultQuery("view", schedule.ViewTeam),
		ViewerID:     c.Query("viewer"),
		AssigneeID:   c.Query("assignee"),
		NeutralColor: h.NeutralColor,
	}
	ops := h.Mutator.PendingOps()
	records := schedule.Overlay(h.Collection.Snapshot(), ops)
	events := schedule.ProjectEvents(records, h.Roster.Current(), opts)
	schedule.MarkPending(events, ops)
	c.JSON(http.StatusOK, gin.H{"items": events})
}

func (h *Handler) TeamList(c *gin.Context) {
	roster := h.Roster.Current()
	if roster == nil {
		if err := h.Roster.Refresh(c.Request.Context()); err != nil {
			writeError(c, http.StatusServiceUnavailable, "ROSTER_UNAVAILABLE", "Failed to load team roster", err.Error())
			return
		}
		roster = h.Roster.Current()
	}
	c.JSON(http.StatusOK, gin.H{"items": roster.Members()})
}

func (h *Handler) WorkRecordsList(c *gin.Context) {
	kind := c.Query("kind")
	status := c.Query("status")
	assignee := c.Query("assignee")
	q := c.Query("q")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	items, err := h.Store.ListWorkRecords(c.Request.Context(), kind, status, assignee, q, limit, offset)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list work records", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "limit": limit, "offset": offset})
}

func (h *Handler) WorkRecordDetails(c *gin.Context) {
	id := c.Param("id")
	record, err := h.Store.GetWorkRecord(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "Work record not found", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to get work record", err.Error())
		return
	}
	c.JSON(http.StatusOK, record)
}

func (h *Handler) NotificationsList(c *gin.Context) {
	items := h.Notifications.Drain()
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// @Summary Assign a calendar slot
// @Description Gives an unscheduled record its first scheduled_at and advances its status
// @Tags schedule
// @Accept json
// @Produce json
// @Param id path string true "Work record ID"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]any
// @Router /api/work-records/{id}/assign [post]
func (h *Handler) AssignWorkRecord(c *gin.Context) {
	id := c.Param("id")
	var req ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}

	if err := h.Mutator.Assign(c.Request.Context(), id, req.ScheduledAt); err != nil {
		writeMutationError(c, err, "Failed to schedule")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "scheduled_at": req.ScheduledAt})
}

// @Summary Reschedule a calendar slot
// @Tags schedule
// @Accept json
// @Produce json
// @Param id path string true "Work record ID"
// @Success 200 {object} map[string]any
// @Router /api/work-records/{id}/reschedule [post]
func (h *Handler) RescheduleWorkRecord(c *gin.Context) {
	id := c.Param("id")
	var req ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}

	if err := h.Mutator.Reschedule(c.Request.Context(), id, req.ScheduledAt); err != nil {
		writeMutationError(c, err, "Failed to reschedule")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "scheduled_at": req.ScheduledAt})
}

func (h *Handler) Refresh(c *gin.Context) {
	if err := h.Collection.Refresh(c.Request.Context()); err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to refresh collection", err.Error())
		return
	}
	if err := h.Roster.Refresh(c.Request.Context()); err != nil {
		// Roster failure degrades to show-all; the refreshed collection still counts.
		h.Logger.Warn().Err(err).Msg("roster refresh failed")
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func writeMutationError(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, schedule.ErrRecordNotFound):
		writeError(c, http.StatusNotFound, "NOT_FOUND", "Work record not found", nil)
	case errors.Is(err, schedule.ErrAlreadyScheduled), errors.Is(err, schedule.ErrNotScheduled):
		writeError(c, http.StatusBadRequest, "INVALID_STATE", err.Error(), nil)
	default:
		writeError(c, http.StatusInternalServerError, "WRITE_REJECTED", message, err.Error())
	}
}

func writeError(c *gin.Context, status int, code string, message string, details any) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}
