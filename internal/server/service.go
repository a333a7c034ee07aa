// Package server exposes the HTTP surface: the photo and gallery API, the
// Telegram relay endpoint, and static assets served through the offline
// asset cache.
package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/platebook/platebook/internal/config"
	"github.com/platebook/platebook/internal/normalize"
	"github.com/platebook/platebook/internal/relay"
	"github.com/platebook/platebook/internal/storage"
)

// Service wires the store, normalizer, relay client and asset cache into an
// echo server.
type Service struct {
	cfg    *config.AppConfig
	store  storage.Store
	norm   *normalize.Normalizer
	relay  *relay.Client
	assets http.Handler // nil disables the static routes
	log    zerolog.Logger
}

// New creates the HTTP service. assets may be nil when no asset origin is
// configured.
func New(cfg *config.AppConfig, store storage.Store, norm *normalize.Normalizer, relayClient *relay.Client, assets http.Handler, log zerolog.Logger) *Service {
	return &Service{
		cfg:    cfg,
		store:  store,
		norm:   norm,
		relay:  relayClient,
		assets: assets,
		log:    log,
	}
}

// RegisterRoutes attaches middleware and all routes to e.
func (s *Service) RegisterRoutes(e *echo.Echo) {
	e.HideBanner = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.BodyLimit(s.cfg.APIBodyLimit))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogMethod:    true,
		LogStatus:    true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, values middleware.RequestLoggerValues) error {
			s.log.Info().
				Str("method", values.Method).
				Str("uri", values.URI).
				Int("status", values.Status).
				Str("remote_ip", values.RemoteIP).
				Str("request_id", values.RequestID).
				Msg("handled request")
			return nil
		},
	}))

	e.GET("/api/states", s.listStatesHandler)
	e.GET("/api/states/:code/photo", s.getStatePhotoHandler)
	e.PUT("/api/states/:code/photo", s.putStatePhotoHandler)
	e.GET("/api/progress", s.progressHandler)

	e.POST("/api/gallery", s.addGalleryPhotoHandler)
	e.GET("/api/gallery", s.listGalleryHandler)
	e.GET("/api/gallery/:id/photo", s.getGalleryPhotoHandler)
	e.DELETE("/api/gallery/:id", s.deleteGalleryPhotoHandler)

	e.GET("/api/settings/sharecode", s.getShareCodeHandler)
	e.PUT("/api/settings/sharecode", s.putShareCodeHandler)
	e.DELETE("/api/settings/sharecode", s.deleteShareCodeHandler)

	e.POST("/api/telegram/photo", s.relayPhotoHandler)

	if s.assets != nil {
		e.GET("/*", echo.WrapHandler(s.assets))
	}
}
