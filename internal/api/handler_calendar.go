package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lu123321/counseling-app/internal/parse"
	"github.com/lu123321/counseling-app/internal/view"
)

// GetMonthView handles GET /api/calendar/month?year=&month=&type=.
func (h *Handler) GetMonthView(c *gin.Context) {
	year, month, err := parse.Month(c.Query("year"), c.Query("month"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	typeFilter, err := parse.TypeFilter(c.Query("type"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	grid, err := h.views.MonthView(c.Request.Context(), year, month, typeFilter, time.Now().In(h.loc))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, grid)
}

// GetDayView handles GET /api/calendar/day?date=&type=.
func (h *Handler) GetDayView(c *gin.Context) {
	date, err := parse.Date(c.Query("date"), h.loc)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	typeFilter, err := parse.TypeFilter(c.Query("type"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	occurrences, err := h.views.DayView(c.Request.Context(), date, typeFilter)
	if err != nil {
		respondError(c, err)
		return
	}
	h.resolveClientNames(c, occurrences)
	c.JSON(http.StatusOK, occurrences)
}

// resolveClientNames fills in display names for consultation
// occurrences. A missing client record leaves the name blank rather
// than failing the whole view.
func (h *Handler) resolveClientNames(c *gin.Context, occurrences []view.Occurrence) {
	if h.clients == nil {
		return
	}
	names := make(map[int64]string)
	for i := range occurrences {
		id := occurrences[i].ClientID
		if id == nil {
			continue
		}
		name, ok := names[*id]
		if !ok {
			client, err := h.clients.GetClient(c.Request.Context(), *id)
			if err == nil {
				name = client.Name
			}
			names[*id] = name
		}
		occurrences[i].ClientName = name
	}
}
