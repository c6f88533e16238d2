// Package server assembles the echo instance serving the management API.
package server

import (
	"context"
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/beaconlabs/beacon/internal/handlers"
)

type Server struct {
	logger *slog.Logger
	echo   *echo.Echo
	addr   string
}

func NewServer(
	log *slog.Logger,
	addr string,
	pingHandler *handlers.PingHandler,
	statusHandler *handlers.StatusHandler,
	serverHandler *handlers.ServerHandler,
	forwarderHandler *handlers.ForwarderHandler,
	notificationHandler *handlers.NotificationHandler,
	settingsHandler *handlers.SettingsHandler,
) *Server {
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("component", "server"))
	if addr == "" {
		addr = ":8080"
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handlers.NewRequestValidator()
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogMethod: true,
		LogError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
			}
			if v.Error != nil {
				attrs = append(attrs, slog.Any("error", v.Error))
			}
			log.LogAttrs(c.Request().Context(), slog.LevelInfo, "request", attrs...)
			return nil
		},
	}))

	if pingHandler != nil {
		pingHandler.Register(e)
	}
	if statusHandler != nil {
		statusHandler.Register(e)
	}
	if serverHandler != nil {
		serverHandler.Register(e)
	}
	if forwarderHandler != nil {
		forwarderHandler.Register(e)
	}
	if notificationHandler != nil {
		notificationHandler.Register(e)
	}
	if settingsHandler != nil {
		settingsHandler.Register(e)
	}

	return &Server{
		logger: log,
		echo:   e,
		addr:   addr,
	}
}

func (s *Server) Start() error {
	s.logger.Info("http server listening", slog.String("addr", s.addr))
	return s.echo.Start(s.addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
