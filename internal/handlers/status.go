package handlers

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/beaconlabs/beacon/internal/gateway"
)

// Runtime is the supervisor surface the status endpoints consume.
type Runtime interface {
	Status() gateway.Status
	ReloadForwarders()
}

// RuleCache exposes the forwarder index shape for status reporting.
type RuleCache interface {
	Size() int
}

type StatusHandler struct {
	logger  *slog.Logger
	runtime Runtime
	cache   RuleCache
}

func NewStatusHandler(log *slog.Logger, runtime Runtime, cache RuleCache) *StatusHandler {
	return &StatusHandler{
		logger:  log.With(slog.String("handler", "status")),
		runtime: runtime,
		cache:   cache,
	}
}

func (h *StatusHandler) Register(e *echo.Echo) {
	e.GET("/status", h.GetStatus)
	e.POST("/forwarders/reload", h.ReloadForwarders)
}

type StatusResponse struct {
	gateway.Status
	ForwarderLocations int `json:"forwarder_locations"`
}

func (h *StatusHandler) GetStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, StatusResponse{
		Status:             h.runtime.Status(),
		ForwarderLocations: h.cache.Size(),
	})
}

// ReloadForwarders kicks an asynchronous cache rebuild and returns immediately.
func (h *StatusHandler) ReloadForwarders(c echo.Context) error {
	h.runtime.ReloadForwarders()
	return c.JSON(http.StatusAccepted, map[string]string{"status": "reloading"})
}
