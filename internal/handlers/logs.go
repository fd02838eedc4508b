package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"co2_sensor_proxy/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	errFromInvalid  = "invalid 'from' time; use RFC3339 or YYYY-MM-DD"
	errToInvalid    = "invalid 'to' time; use RFC3339 or YYYY-MM-DD"
	errRangeInvalid = "'from' must be <= 'to'"
	errLogsLoad     = "failed to load logs"

	layoutDateTime = "2006-01-02 15:04:05"
	layoutDate     = "2006-01-02"
)

// isDateOnly reports whether the query string represents a date without time component.
func isDateOnly(s string) bool {
	return !strings.ContainsAny(s, "T ")
}

// @Summary      List refresh events
// @Description  Filter refresh events by date (RFC3339, 'YYYY-MM-DD HH:MM:SS', or 'YYYY-MM-DD'). If 'to' is date-only, it is treated as end-of-day inclusive (23:59:59.999999999Z).
// @Tags         logs
// @Produce      json
// @Param        from  query   string  false  "Start of range (RFC3339, 'YYYY-MM-DD HH:MM:SS', or 'YYYY-MM-DD')"  example(2025-08-01)
// @Param        to    query   string  false  "End of range (RFC3339, 'YYYY-MM-DD HH:MM:SS', or 'YYYY-MM-DD'). Date-only treated as end of day."  example(2025-08-31)
// @Param        type  query   string  false  "Event type"  Enums(SUCCESS,FAILURE,SKIPPED)
// @Success      200   {object}  map[string]interface{}  "count, events"
// @Failure      400   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/logs [get]
func (h *Handler) getLogs(c *gin.Context) {
	f, msg := logFilterFromQuery(c)
	if msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	events, err := h.services.EventLog.List(c.Request.Context(), f)
	if errors.Is(err, service.ErrInvalidFilter) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errLogsLoad, "logs_list_failed", err,
			"from", f.From, "to", f.To, "type", f.Type)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":  len(events),
		"events": events,
	})
}

// logFilterFromQuery reads from/to/type. A non-empty message means a 400.
func logFilterFromQuery(c *gin.Context) (service.LogFilter, string) {
	f := service.LogFilter{Type: strings.ToUpper(strings.TrimSpace(c.Query("type")))}

	if qs := c.Query("from"); qs != "" {
		t, err := parseQueryTime(qs)
		if err != nil {
			return f, errFromInvalid
		}
		f.From = t
	}
	if qs := c.Query("to"); qs != "" {
		t, err := parseQueryTime(qs)
		if err != nil {
			return f, errToInvalid
		}
		// date-only "to" covers the whole day
		if isDateOnly(qs) {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		f.To = t
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.From.After(f.To) {
		return f, errRangeInvalid
	}
	return f, ""
}

// parseQueryTime accepts RFC3339, "YYYY-MM-DD HH:MM:SS" and "YYYY-MM-DD", returned in UTC.
func parseQueryTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, layoutDateTime, layoutDate} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf(
		"invalid time format %q, expected one of: "+
			"RFC3339 (e.g. 2025-08-27T15:04:05Z), "+
			"'YYYY-MM-DD HH:MM:SS', "+
			"'YYYY-MM-DD'",
		s,
	)
}
