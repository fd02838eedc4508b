package handlers

import (
	"net/http"
	"time"

	"co2_sensor_proxy/internal/logger"
	"co2_sensor_proxy/internal/service"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// DefaultManualRefreshRate is the minimum spacing of POST /api/v1/refresh calls.
const DefaultManualRefreshRate = 5 * time.Second

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	hub      *Hub
	metrics  http.Handler
	limiter  *rate.Limiter
	log      *logger.Logger
}

// Option customizes a Handler.
type Option func(*Handler)

// WithHub enables /ws backed by hub.
func WithHub(hub *Hub) Option {
	return func(h *Handler) { h.hub = hub }
}

// WithMetrics serves m on /metrics.
func WithMetrics(m http.Handler) Option {
	return func(h *Handler) { h.metrics = m }
}

// WithManualRefreshRate allows one manual refresh per every, burst 1.
// Zero or negative disables throttling.
func WithManualRefreshRate(every time.Duration) Option {
	return func(h *Handler) {
		if every <= 0 {
			h.limiter = nil
			return
		}
		h.limiter = rate.NewLimiter(rate.Every(every), 1)
	}
}

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(services *service.Service, log *logger.Logger, opts ...Option) *Handler {
	h := &Handler{
		services: services,
		limiter:  rate.NewLimiter(rate.Every(DefaultManualRefreshRate), 1),
		log:      log,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), h.requestLogger())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/health", h.health)

	if h.metrics != nil {
		router.GET("/metrics", gin.WrapH(h.metrics))
	}

	h.registerAPIRoutes(router)

	if h.hub != nil {
		router.GET("/ws", h.wsConnect)
	}
	if h.services.Simulator != nil {
		router.GET("/sim/sensor", h.getSimulatedSensor)
	}

	return router
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	{
		h.registerSensorRoutes(api)
		h.registerLogRoutes(api)
	}
}

func (h *Handler) registerSensorRoutes(api *gin.RouterGroup) {
	co2 := api.Group("/co2")
	{
		co2.GET("/level", h.getCO2Level)
		co2.GET("/detected", h.getCO2Detected)
	}
	api.GET("/sensor", h.getSensor)
	api.GET("/accessory", h.getAccessory)
	api.POST("/refresh", h.refresh)
}

func (h *Handler) registerLogRoutes(api *gin.RouterGroup) {
	api.GET("/logs", h.getLogs)
}
