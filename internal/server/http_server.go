package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/creatorpulse/creatorpulse/config"
	"github.com/creatorpulse/creatorpulse/domain"
	cperrors "github.com/creatorpulse/creatorpulse/errors"
	"github.com/creatorpulse/creatorpulse/services"
)

// API holds the HTTP handlers over the stats and analytics services. The
// handlers are thin adapters: parsing, delegation, status mapping.
type API struct {
	stats     *services.StatsService
	analytics *services.AnalyticsService
	creds     *services.CredentialService
	cleanup   *services.CleanupService
}

// NewAPI initializes the HTTP API.
func NewAPI(
	stats *services.StatsService,
	analytics *services.AnalyticsService,
	creds *services.CredentialService,
	cleanup *services.CleanupService,
) *API {
	return &API{
		stats:     stats,
		analytics: analytics,
		creds:     creds,
		cleanup:   cleanup,
	}
}

// RegisterRoutes registers the API routes.
func (a *API) RegisterRoutes(e *echo.Echo) {
	v1 := e.Group("/api/v1")
	v1.GET("/stats", a.StatsHandler)
	v1.GET("/report", a.ReportHandler)
	v1.POST("/cache/invalidate", a.InvalidateCacheHandler)
	v1.POST("/cleanup", a.CleanupHandler)
	v1.DELETE("/connections/:platform", a.DisconnectHandler)

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// parseRequests parses the "platforms" query parameter, a comma-separated
// list of platform:identifier pairs (e.g. "youtube:UCabc,twitch:somechan").
func parseRequests(c echo.Context) ([]domain.StatsRequest, error) {
	raw := c.QueryParam("platforms")
	if raw == "" {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "platforms query parameter is required")
	}

	var reqs []domain.StatsRequest
	for _, part := range strings.Split(raw, ",") {
		platform, identifier, ok := strings.Cut(strings.TrimSpace(part), ":")
		if !ok || platform == "" || identifier == "" {
			return nil, echo.NewHTTPError(http.StatusBadRequest, "platforms entries must be platform:identifier pairs")
		}
		reqs = append(reqs, domain.StatsRequest{Platform: platform, Identifier: identifier})
	}
	return reqs, nil
}

// StatsHandler returns one snapshot per requested platform. Failed
// platforms come back as fallback snapshots, never as request errors.
func (a *API) StatsHandler(c echo.Context) error {
	reqs, err := parseRequests(c)
	if err != nil {
		return err
	}
	userID := c.QueryParam("user_id")

	snapshots := a.stats.GetAllStats(c.Request().Context(), reqs, userID)
	return c.JSON(http.StatusOK, snapshots)
}

// ReportHandler fetches all requested platforms and builds the combined
// analytics report.
func (a *API) ReportHandler(c echo.Context) error {
	reqs, err := parseRequests(c)
	if err != nil {
		return err
	}
	userID := c.QueryParam("user_id")

	ctx := c.Request().Context()
	snapshots := a.stats.GetAllStats(ctx, reqs, userID)
	report := a.analytics.BuildReport(ctx, snapshots, userID)
	return c.JSON(http.StatusOK, report)
}

// InvalidateCacheHandler clears the snapshot cache (manual refresh).
func (a *API) InvalidateCacheHandler(c echo.Context) error {
	if err := a.stats.InvalidateCache(c.Request().Context()); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to invalidate cache")
	}
	return c.NoContent(http.StatusNoContent)
}

// CleanupHandler triggers the credential sweep immediately and reports the
// refreshed/removed counts.
func (a *API) CleanupHandler(c echo.Context) error {
	report, err := a.cleanup.CleanupExpiredCredentials(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cleanup sweep failed")
	}
	return c.JSON(http.StatusOK, report)
}

// DisconnectHandler removes the stored credential for one platform.
func (a *API) DisconnectHandler(c echo.Context) error {
	userID := c.QueryParam("user_id")
	if userID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id query parameter is required")
	}

	platform := c.Param("platform")
	if err := a.creds.RemoveCredential(c.Request().Context(), userID, platform); err != nil {
		if cperrors.IsStorage(err) {
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to remove credential")
		}
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// NewHTTPServer creates and configures the Echo HTTP server.
func NewHTTPServer(cfg *config.ServerConfig, api *API) *http.Server {
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			evt := log.Info()
			if v.Error != nil {
				evt = log.Error().Err(v.Error)
			}
			evt.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("HTTP request")
			return nil
		},
	}))

	api.RegisterRoutes(e)

	return &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      e,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}
