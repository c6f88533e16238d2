package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/beaconlabs/beacon/internal/store"
)

type SettingsHandler struct {
	store *store.Store
}

func NewSettingsHandler(st *store.Store) *SettingsHandler {
	return &SettingsHandler{store: st}
}

func (h *SettingsHandler) Register(e *echo.Echo) {
	e.GET("/settings", h.GetSettings)
	e.PUT("/settings", h.UpdateSettings)
}

type UpdateSettingsRequest struct {
	DefaultTimezone      string `json:"default_timezone" validate:"required"`
	MaxMessagesPerMinute int    `json:"max_messages_per_minute" validate:"gte=1"`
	EnableAnalytics      bool   `json:"enable_analytics"`
	AutoCleanupDays      int    `json:"auto_cleanup_days" validate:"gte=0"`
	WorkingDays          []int  `json:"working_days" validate:"required,min=1,dive,gte=0,lte=6"`
}

func (h *SettingsHandler) GetSettings(c echo.Context) error {
	settings, err := h.store.GetBotSettings(c.Request().Context())
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, settings)
}

func (h *SettingsHandler) UpdateSettings(c echo.Context) error {
	var req UpdateSettingsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	settings, err := h.store.UpdateBotSettings(c.Request().Context(), store.UpdateBotSettingsParams{
		DefaultTimezone:      req.DefaultTimezone,
		MaxMessagesPerMinute: req.MaxMessagesPerMinute,
		EnableAnalytics:      req.EnableAnalytics,
		AutoCleanupDays:      req.AutoCleanupDays,
		WorkingDays:          req.WorkingDays,
	})
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, settings)
}
