package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/beaconlabs/beacon/internal/gateway"
	"github.com/beaconlabs/beacon/internal/store"
)

// ThreadLister resolves live threads for a guild, used when an operator picks
// a forwarder source or destination.
type ThreadLister interface {
	FetchActiveThreads(ctx context.Context, guildPlatformID string) ([]gateway.ChannelInfo, error)
}

type ServerHandler struct {
	store   *store.Store
	threads ThreadLister
}

func NewServerHandler(st *store.Store, threads ThreadLister) *ServerHandler {
	return &ServerHandler{store: st, threads: threads}
}

func (h *ServerHandler) Register(e *echo.Echo) {
	group := e.Group("/servers")
	group.GET("", h.ListServers)
	group.GET("/:id/channels", h.ListChannels)
	group.GET("/:id/threads", h.ListThreads)
}

func (h *ServerHandler) ListServers(c echo.Context) error {
	items, err := h.store.ListServers(c.Request().Context())
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *ServerHandler) ListChannels(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	items, err := h.store.GetChannelsByServer(c.Request().Context(), id)
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, items)
}

// ListThreads reads live from the platform, not the mirror: threads are too
// churny to track in the store.
func (h *ServerHandler) ListThreads(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	srv, err := h.serverByInternalID(ctx, id)
	if err != nil {
		return storeError(err)
	}
	threads, err := h.threads.FetchActiveThreads(ctx, srv.PlatformID)
	if err != nil {
		if errors.Is(err, gateway.ErrOffline) {
			return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(http.StatusOK, threads)
}

func (h *ServerHandler) serverByInternalID(ctx context.Context, id int64) (store.Server, error) {
	servers, err := h.store.ListServers(ctx)
	if err != nil {
		return store.Server{}, err
	}
	for _, srv := range servers {
		if srv.ID == id {
			return srv, nil
		}
	}
	return store.Server{}, store.ErrNotFound
}
