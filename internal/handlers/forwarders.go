package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/beaconlabs/beacon/internal/store"
)

type ForwarderHandler struct {
	store   *store.Store
	runtime Runtime
}

func NewForwarderHandler(st *store.Store, runtime Runtime) *ForwarderHandler {
	return &ForwarderHandler{store: st, runtime: runtime}
}

func (h *ForwarderHandler) Register(e *echo.Echo) {
	group := e.Group("/forwarders")
	group.GET("", h.ListForwarders)
	group.GET("/:id", h.GetForwarder)
	group.POST("", h.CreateForwarder)
	group.PUT("/:id", h.UpdateForwarder)
	group.POST("/:id/toggle", h.ToggleForwarder)
	group.DELETE("/:id", h.DeleteForwarder)
}

type CreateForwarderRequest struct {
	UserID               int64    `json:"user_id"`
	Name                 string   `json:"name" validate:"required"`
	SourceServerID       int64    `json:"source_server_id" validate:"required"`
	SourceChannelID      int64    `json:"source_channel_id" validate:"required"`
	SourceThreadID       *string  `json:"source_thread_id"`
	DestinationServerID  int64    `json:"destination_server_id" validate:"required"`
	DestinationChannelID int64    `json:"destination_channel_id" validate:"required"`
	DestinationThreadID  *string  `json:"destination_thread_id"`
	Keywords             []string `json:"keywords" validate:"required,min=1,dive,required"`
	MatchType            string   `json:"match_type" validate:"required,oneof=contains exact"`
}

type UpdateForwarderRequest struct {
	Name                 string   `json:"name" validate:"required"`
	SourceServerID       int64    `json:"source_server_id" validate:"required"`
	SourceChannelID      int64    `json:"source_channel_id" validate:"required"`
	SourceThreadID       *string  `json:"source_thread_id"`
	DestinationServerID  int64    `json:"destination_server_id" validate:"required"`
	DestinationChannelID int64    `json:"destination_channel_id" validate:"required"`
	DestinationThreadID  *string  `json:"destination_thread_id"`
	Keywords             []string `json:"keywords" validate:"required,min=1,dive,required"`
	MatchType            string   `json:"match_type" validate:"required,oneof=contains exact"`
	IsActive             bool     `json:"is_active"`
}

func (h *ForwarderHandler) ListForwarders(c echo.Context) error {
	items, err := h.store.ListForwarders(c.Request().Context())
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *ForwarderHandler) GetForwarder(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	item, err := h.store.GetForwarder(c.Request().Context(), id)
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, item)
}

func (h *ForwarderHandler) CreateForwarder(c echo.Context) error {
	var req CreateForwarderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	item, err := h.store.CreateForwarder(c.Request().Context(), store.CreateForwarderParams{
		UserID:               req.UserID,
		Name:                 req.Name,
		SourceServerID:       req.SourceServerID,
		SourceChannelID:      req.SourceChannelID,
		SourceThreadID:       req.SourceThreadID,
		DestinationServerID:  req.DestinationServerID,
		DestinationChannelID: req.DestinationChannelID,
		DestinationThreadID:  req.DestinationThreadID,
		Keywords:             req.Keywords,
		MatchType:            store.MatchType(req.MatchType),
	})
	if err != nil {
		return storeError(err)
	}
	h.runtime.ReloadForwarders()
	return c.JSON(http.StatusCreated, item)
}

func (h *ForwarderHandler) UpdateForwarder(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req UpdateForwarderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	item, err := h.store.UpdateForwarder(c.Request().Context(), id, store.UpdateForwarderParams{
		Name:                 req.Name,
		SourceServerID:       req.SourceServerID,
		SourceChannelID:      req.SourceChannelID,
		SourceThreadID:       req.SourceThreadID,
		DestinationServerID:  req.DestinationServerID,
		DestinationChannelID: req.DestinationChannelID,
		DestinationThreadID:  req.DestinationThreadID,
		Keywords:             req.Keywords,
		MatchType:            store.MatchType(req.MatchType),
		IsActive:             req.IsActive,
	})
	if err != nil {
		return storeError(err)
	}
	h.runtime.ReloadForwarders()
	return c.JSON(http.StatusOK, item)
}

// ToggleForwarder flips the rule's active flag.
func (h *ForwarderHandler) ToggleForwarder(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	item, err := h.store.GetForwarder(ctx, id)
	if err != nil {
		return storeError(err)
	}
	if err := h.store.SetForwarderActive(ctx, id, !item.IsActive); err != nil {
		return storeError(err)
	}
	item.IsActive = !item.IsActive
	h.runtime.ReloadForwarders()
	return c.JSON(http.StatusOK, item)
}

func (h *ForwarderHandler) DeleteForwarder(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.store.DeleteForwarder(c.Request().Context(), id); err != nil {
		return storeError(err)
	}
	h.runtime.ReloadForwarders()
	return c.NoContent(http.StatusNoContent)
}

func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}
