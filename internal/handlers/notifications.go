package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/beaconlabs/beacon/internal/store"
)

type NotificationHandler struct {
	store *store.Store
}

func NewNotificationHandler(st *store.Store) *NotificationHandler {
	return &NotificationHandler{store: st}
}

func (h *NotificationHandler) Register(e *echo.Echo) {
	group := e.Group("/notifications")
	group.GET("", h.ListNotifications)
	group.GET("/:id", h.GetNotification)
	group.POST("", h.CreateNotification)
	group.PUT("/:id", h.UpdateNotification)
	group.DELETE("/:id", h.DeleteNotification)
}

type CreateNotificationRequest struct {
	UserID          int64      `json:"user_id"`
	ServerID        int64      `json:"server_id" validate:"required"`
	ChannelID       int64      `json:"channel_id" validate:"required"`
	Title           *string    `json:"title"`
	Message         string     `json:"message" validate:"required"`
	ScheduleDate    time.Time  `json:"schedule_date" validate:"required"`
	RepeatType      string     `json:"repeat_type" validate:"required,oneof=once daily weekly monthly working_days"`
	EndDate         *time.Time `json:"end_date"`
	Timezone        string     `json:"timezone"`
	MentionEveryone bool       `json:"mention_everyone"`
}

type UpdateNotificationRequest struct {
	ChannelID       int64      `json:"channel_id" validate:"required"`
	Title           *string    `json:"title"`
	Message         string     `json:"message" validate:"required"`
	ScheduleDate    time.Time  `json:"schedule_date" validate:"required"`
	RepeatType      string     `json:"repeat_type" validate:"required,oneof=once daily weekly monthly working_days"`
	EndDate         *time.Time `json:"end_date"`
	Timezone        string     `json:"timezone"`
	MentionEveryone bool       `json:"mention_everyone"`
	IsActive        bool       `json:"is_active"`
}

func (h *NotificationHandler) ListNotifications(c echo.Context) error {
	items, err := h.store.ListNotifications(c.Request().Context())
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *NotificationHandler) GetNotification(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	item, err := h.store.GetNotification(c.Request().Context(), id)
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, item)
}

func (h *NotificationHandler) CreateNotification(c echo.Context) error {
	var req CreateNotificationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if req.EndDate != nil && req.EndDate.Before(req.ScheduleDate) {
		return echo.NewHTTPError(http.StatusBadRequest, "end_date is before schedule_date")
	}
	item, err := h.store.CreateNotification(c.Request().Context(), store.CreateNotificationParams{
		UserID:          req.UserID,
		ServerID:        req.ServerID,
		ChannelID:       req.ChannelID,
		Title:           req.Title,
		Message:         req.Message,
		ScheduleDate:    req.ScheduleDate,
		RepeatType:      store.RepeatType(req.RepeatType),
		EndDate:         req.EndDate,
		Timezone:        req.Timezone,
		MentionEveryone: req.MentionEveryone,
	})
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusCreated, item)
}

func (h *NotificationHandler) UpdateNotification(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req UpdateNotificationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if req.EndDate != nil && req.EndDate.Before(req.ScheduleDate) {
		return echo.NewHTTPError(http.StatusBadRequest, "end_date is before schedule_date")
	}
	// Reactivating or rescheduling resets the next fire to the new schedule
	// date so the row never sits active without one.
	var nextScheduled *time.Time
	if req.IsActive {
		nextScheduled = &req.ScheduleDate
	}
	item, err := h.store.UpdateNotification(c.Request().Context(), id, store.UpdateNotificationParams{
		ChannelID:       req.ChannelID,
		Title:           req.Title,
		Message:         req.Message,
		ScheduleDate:    req.ScheduleDate,
		RepeatType:      store.RepeatType(req.RepeatType),
		EndDate:         req.EndDate,
		Timezone:        req.Timezone,
		MentionEveryone: req.MentionEveryone,
		IsActive:        req.IsActive,
		NextScheduled:   nextScheduled,
	})
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, item)
}

func (h *NotificationHandler) DeleteNotification(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.store.DeleteNotification(c.Request().Context(), id); err != nil {
		return storeError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
