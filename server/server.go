// Package server exposes the HTTP surface described in spec.md §6 as
// echo handlers, grounded on the teacher's echo-based route shapes
// (camera_route.go's ETag/304 handling, canyon_route.go's Cache-Control
// pattern, healthcheck_router.go's readiness probe).
package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/charmbracelet/log"

	"github.com/trafikinfo/aggregator/broadcast"
	"github.com/trafikinfo/aggregator/domain"
	"github.com/trafikinfo/aggregator/eventstore"
	"github.com/trafikinfo/aggregator/geo"
	"github.com/trafikinfo/aggregator/push"
	"github.com/trafikinfo/aggregator/snapshot"
	"github.com/trafikinfo/aggregator/tvapi"
)

// LogWriter receives formatted HTTP access log lines; main.go points this
// at the TUI when one is active, matching the teacher's LogWriter hook.
var LogWriter func(string)

// RequestCounter and ErrorCounter are bumped by the access-log middleware
// for the TUI's requests/sec readout, mirroring the teacher's wiring.
var RequestCounter *int64
var ErrorCounter *int64

// StatusProvider supplies the live upstream stream connection state for
// /api/status.
type StatusProvider interface {
	Status() map[string]tvapi.StreamStatus
	ActiveCounties() []int
}

// SettingsProvider returns the currently effective Settings, combining env
// defaults with the persisted row (config.ResolveSettings does the merge).
type SettingsProvider func() domain.Settings

// Deps collects everything the HTTP surface needs. It deliberately holds
// interfaces/concrete types rather than one god-object, so each route file
// depends only on the slice it actually uses.
type Deps struct {
	Store        *eventstore.Store
	Broadcaster  *broadcast.Broadcaster
	Cameras      *geo.Index[domain.Camera]
	Stations     *geo.Index[domain.WeatherStation]
	Snapshots    *snapshot.Store
	Push         *push.Dispatcher
	TVAPIClient  *tvapi.Client
	Status       StatusProvider
	Settings     SettingsProvider
	DevMode      bool
	Logger       *log.Logger
}

// Start builds and returns a fully routed echo instance. It does not call
// e.Start; main.go owns the listen/shutdown lifecycle.
func Start(deps Deps) (*echo.Echo, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(accessLogMiddleware())
	e.Use(MetricsMiddleware())

	e.GET("/healthz", HealthzRoute(deps.Store))
	e.GET("/_/version", VersionRoute())
	e.GET("/metrics", echo.WrapHandler(metricsHandler()))

	api := e.Group("/api")

	api.GET("/events", EventsRoute(deps.Store))
	api.GET("/events/:external_id/history", EventHistoryRoute(deps.Store))

	api.GET("/road-conditions", RoadConditionsRoute(deps.Store))
	api.GET("/road-conditions/:id/history", RoadConditionHistoryRoute(deps.Store))

	api.GET("/cameras", CamerasRoute(deps.Store))
	api.POST("/cameras/:id/toggle-favorite", ToggleFavoriteRoute(deps.Store))
	api.GET("/cameras/:id/image", CameraImageRoute(deps.Cameras))

	api.GET("/icons/:id", IconRoute())
	e.Static("/api/snapshots", snapshotDir(deps))

	api.GET("/stream", StreamRoute(deps.Broadcaster))

	api.POST("/client/interest", ClientInterestRoute(deps.Store))

	api.GET("/push/vapid-public-key", VAPIDPublicKeyRoute(deps.Settings))
	api.POST("/push/subscribe", PushSubscribeRoute(deps.Store))
	api.POST("/push/unsubscribe", PushUnsubscribeRoute(deps.Store))

	api.GET("/settings", GetSettingsRoute(deps.Settings))
	api.POST("/settings", PostSettingsRoute(deps))

	api.POST("/report-base-url", ReportBaseURLRoute(deps))
	api.GET("/status", StatusRoute(deps))
	api.GET("/stats", StatsRoute(deps.Store, deps.Broadcaster))

	return e, nil
}

func snapshotDir(deps Deps) string {
	if deps.Snapshots == nil {
		return "data/snapshots"
	}
	return deps.Snapshots.BaseDir()
}

// HealthzRoute reports readiness: the eventstore must be reachable.
func HealthzRoute(store *eventstore.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		if store == nil {
			return c.String(http.StatusServiceUnavailable, "eventstore not configured")
		}
		if _, err := store.Stats(c.Request().Context()); err != nil {
			return c.String(http.StatusServiceUnavailable, "eventstore unreachable")
		}
		return c.String(http.StatusOK, "OK")
	}
}
