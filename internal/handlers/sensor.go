package handlers

import (
	"context"
	"net/http"

	"co2_sensor_proxy/internal/models"
	"co2_sensor_proxy/internal/service"

	"github.com/gin-gonic/gin"
)

// Common response/status constants to avoid magic strings and typos.
const (
	statusOK = "ok"

	errRefreshFailed  = "upstream fetch failed; cached reading kept"
	errRefreshLimited = "manual refresh rate exceeded"
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// @Summary      Health check
// @Description  Reports cache freshness. A stale cache is still healthy.
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	resp := gin.H{"status": statusOK}
	if h.services.Sensor != nil {
		snap := h.services.Sensor.Snapshot()
		resp["cache_state"] = snap.State
		if !snap.UpdatedAt.IsZero() {
			resp["updated_at"] = snap.UpdatedAt
		}
		if snap.LastError != "" {
			resp["last_error"] = snap.LastError
		}
	}
	if h.services.Refresher != nil {
		resp["refresh"] = h.services.Refresher.Stats()
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary      Current CO2 level
// @Description  Served from cache; never contacts the upstream sensor.
// @Tags         sensor
// @Produce      json
// @Success      200  {object}  models.CharacteristicUpdate
// @Router       /api/v1/co2/level [get]
func (h *Handler) getCO2Level(c *gin.Context) {
	c.JSON(http.StatusOK, models.CharacteristicUpdate{
		Characteristic: models.CharCO2Level,
		Value:          h.services.Sensor.CO2Level(),
	})
}

// @Summary      Current CO2 detected flag
// @Tags         sensor
// @Produce      json
// @Success      200  {object}  models.CharacteristicUpdate
// @Router       /api/v1/co2/detected [get]
func (h *Handler) getCO2Detected(c *gin.Context) {
	c.JSON(http.StatusOK, models.CharacteristicUpdate{
		Characteristic: models.CharCO2Detected,
		Value:          h.services.Sensor.CO2Detected(),
	})
}

// @Summary      Cached sensor snapshot
// @Tags         sensor
// @Produce      json
// @Success      200  {object}  models.SensorSnapshot
// @Router       /api/v1/sensor [get]
func (h *Handler) getSensor(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Sensor.Snapshot())
}

// @Summary      Accessory information
// @Tags         sensor
// @Produce      json
// @Success      200  {object}  models.AccessoryInfo
// @Router       /api/v1/accessory [get]
func (h *Handler) getAccessory(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Accessory.Info())
}

// @Summary      Refresh now
// @Description  Runs one fetch outside the schedule. Shares the single-flight guard with the timer.
// @Tags         sensor
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "status, sensor"
// @Failure      409  {object}  map[string]interface{}
// @Failure      429  {object}  map[string]string
// @Failure      502  {object}  map[string]interface{}
// @Router       /api/v1/refresh [post]
func (h *Handler) refresh(c *gin.Context) {
	if h.limiter != nil && !h.limiter.Allow() {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": errRefreshLimited})
		return
	}

	// a client hang-up must not abort a fetch that other readers will see
	ctx := context.WithoutCancel(c.Request.Context())
	result := h.services.Refresher.Tick(ctx)
	snap := h.services.Sensor.Snapshot()

	switch result {
	case service.TickSkipped:
		c.JSON(http.StatusConflict, gin.H{"status": result, "sensor": snap})
	case service.TickFailed:
		if h.log != nil {
			h.log.Warnw("manual_refresh_failed", "kind", snap.LastError, "err", snap.LastErrorMessage)
		}
		c.JSON(http.StatusBadGateway, gin.H{"status": result, "error": errRefreshFailed, "sensor": snap})
	default:
		c.JSON(http.StatusOK, gin.H{"status": result, "sensor": snap})
	}
}

// @Summary      Simulated upstream reading
// @Description  Development only; same shape as the real sensor endpoint.
// @Tags         simulator
// @Produce      json
// @Success      200  {object}  co2_sensor_proxy.SensorPayload
// @Router       /sim/sensor [get]
func (h *Handler) getSimulatedSensor(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Simulator.Payload())
}
