package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lu123321/counseling-app/internal/model"
	"github.com/lu123321/counseling-app/internal/parse"
	"github.com/lu123321/counseling-app/internal/recurrence"
	"github.com/lu123321/counseling-app/internal/store"
)

// createEventRequest mirrors the mini-program's schedule edit form.
type createEventRequest struct {
	Title               string `json:"title" binding:"required"`
	ScheduleType        int    `json:"scheduleType" binding:"required"`
	StartTime           string `json:"startTime" binding:"required"`
	EndTime             string `json:"endTime" binding:"required"`
	Location            string `json:"location"`
	Description         string `json:"description"`
	Color               string `json:"color"`
	RemindType          int    `json:"remindType"`
	IsRecurring         bool   `json:"isRecurring"`
	RecurringType       string `json:"recurringType"`
	RecurringDays       []int  `json:"recurringDays"`
	RecurringDayOfMonth int    `json:"recurringDayOfMonth"`
	RecurringEndDate    string `json:"recurringEndDate"`
	ClientID            *int64 `json:"clientId"`
	SessionID           *int64 `json:"sessionId"`
	ClientFacing        bool   `json:"clientFacing"`
}

// updateEventRequest is the PATCH shape; absent fields stay unchanged.
type updateEventRequest struct {
	Title               *string `json:"title"`
	ScheduleType        *int    `json:"scheduleType"`
	StartTime           *string `json:"startTime"`
	EndTime             *string `json:"endTime"`
	Location            *string `json:"location"`
	Description         *string `json:"description"`
	Color               *string `json:"color"`
	RemindType          *int    `json:"remindType"`
	ReminderFired       *bool   `json:"reminderFired"`
	IsRecurring         *bool   `json:"isRecurring"`
	RecurringType       *string `json:"recurringType"`
	RecurringDays       []int   `json:"recurringDays"`
	RecurringDayOfMonth *int    `json:"recurringDayOfMonth"`
	RecurringEndDate    *string `json:"recurringEndDate"`
	ClientID            *int64  `json:"clientId"`
	ClearClient         bool    `json:"clearClient"`
	SessionID           *int64  `json:"sessionId"`
}

type transitionRequest struct {
	Status int `json:"status" binding:"required"`
}

// clientTime parses the client's "2006-01-02 15:04" timestamps,
// accepting an optional seconds component.
func clientTime(raw string, loc *time.Location) (time.Time, error) {
	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02 15:04", time.RFC3339} {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse timestamp %q", raw)
}

func (h *Handler) buildRule(recurringType string, days []int, monthDay int, endDate string) (*recurrence.Rule, error) {
	rule := &recurrence.Rule{Frequency: recurrence.Frequency(recurringType), MonthDay: monthDay}
	for _, d := range days {
		rule.Weekdays = append(rule.Weekdays, time.Weekday(d))
	}
	if endDate != "" {
		until, err := parse.Date(endDate, h.loc)
		if err != nil {
			return nil, err
		}
		rule.Until = &until
	}
	return rule, nil
}

// checkClientLink validates that a linked client actually exists.
func (h *Handler) checkClientLink(c *gin.Context, clientID *int64) bool {
	if clientID == nil || h.clients == nil {
		return true
	}
	if _, err := h.clients.GetClient(c.Request.Context(), *clientID); err != nil {
		respondError(c, err)
		return false
	}
	return true
}

// CreateEvent handles POST /api/events.
func (h *Handler) CreateEvent(c *gin.Context) {
	var req createEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	startAt, err := clientTime(req.StartTime, h.loc)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	endAt, err := clientTime(req.EndTime, h.loc)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	input := store.EventInput{
		Title:        req.Title,
		EventType:    model.EventType(req.ScheduleType),
		StartAt:      startAt,
		EndAt:        endAt,
		Location:     req.Location,
		Description:  req.Description,
		Color:        req.Color,
		RemindPolicy: model.ReminderPolicy(req.RemindType),
		ClientID:     req.ClientID,
		SessionID:    req.SessionID,
		ClientFacing: req.ClientFacing,
	}
	if req.IsRecurring {
		rule, err := h.buildRule(req.RecurringType, req.RecurringDays, req.RecurringDayOfMonth, req.RecurringEndDate)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		input.Recurrence = rule
	}

	if !h.checkClientLink(c, input.ClientID) {
		return
	}

	event, err := h.store.Create(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, event)
}

// GetEvent handles GET /api/events/:id.
func (h *Handler) GetEvent(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}
	event, err := h.store.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, event)
}

// UpdateEvent handles PATCH /api/events/:id.
func (h *Handler) UpdateEvent(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}
	var req updateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	patch := store.EventPatch{
		Title:       req.Title,
		Location:    req.Location,
		Description: req.Description,
		Color:       req.Color,
		ClientID:    req.ClientID,
		ClearClient: req.ClearClient,
		SessionID:   req.SessionID,
	}
	if req.ScheduleType != nil {
		t := model.EventType(*req.ScheduleType)
		patch.EventType = &t
	}
	if req.StartTime != nil {
		t, err := clientTime(*req.StartTime, h.loc)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		patch.StartAt = &t
	}
	if req.EndTime != nil {
		t, err := clientTime(*req.EndTime, h.loc)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		patch.EndAt = &t
	}
	if req.RemindType != nil {
		p := model.ReminderPolicy(*req.RemindType)
		patch.RemindPolicy = &p
	}
	patch.ReminderFired = req.ReminderFired
	if req.IsRecurring != nil && !*req.IsRecurring {
		patch.ClearRecurrence = true
	} else if req.RecurringType != nil {
		endDate := ""
		if req.RecurringEndDate != nil {
			endDate = *req.RecurringEndDate
		}
		monthDay := 0
		if req.RecurringDayOfMonth != nil {
			monthDay = *req.RecurringDayOfMonth
		}
		rule, err := h.buildRule(*req.RecurringType, req.RecurringDays, monthDay, endDate)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		patch.Recurrence = rule
	}

	if !h.checkClientLink(c, patch.ClientID) {
		return
	}

	event, err := h.store.Update(c.Request.Context(), id, patch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, event)
}

// DeleteEvent handles DELETE /api/events/:id. Idempotent: deleting an
// absent event still succeeds.
func (h *Handler) DeleteEvent(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}
	if err := h.store.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// TransitionStatus handles POST /api/events/:id/status.
func (h *Handler) TransitionStatus(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}
	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	event, err := h.lifecycle.Transition(c.Request.Context(), id, model.EventStatus(req.Status))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, event)
}

// ConvertToSession handles POST /api/events/:id/session, turning a
// completed consultation event into a session record.
func (h *Handler) ConvertToSession(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}
	event, err := h.store.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	session, err := h.sessions.CreateSessionFromEvent(c.Request.Context(), event)
	if err != nil {
		respondError(c, err)
		return
	}

	if _, err := h.store.Update(c.Request.Context(), id, store.EventPatch{SessionID: &session.ID}); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

func eventID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid event ID"})
		return 0, false
	}
	return id, true
}
