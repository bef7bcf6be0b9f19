package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trafikinfo/aggregator/eventstore"
)

func parseCountiesParam(c echo.Context) []int {
	raw := c.QueryParam("counties")
	if raw == "" {
		return nil
	}
	var out []int
	for _, p := range strings.Split(raw, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if n, err := strconv.Atoi(p); err == nil {
			out = append(out, n)
		}
	}
	return out
}

// EventsRoute serves GET /api/events: the current incident list, optionally
// filtered by county, with ETag/304 support matching cache_helpers.go's
// composite-ETag idiom.
func EventsRoute(store *eventstore.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		counties := parseCountiesParam(c)

		incidents, err := store.ListIncidents(ctx, counties)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "list incidents failed")
		}
		sorted := SortIncidents(incidents)

		c.Response().Header().Set("Content-Type", "application/json")
		etag, notModified, err := SetCacheHeaders(c, CacheConfig{Components: []interface{}{sorted}})
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		if notModified {
			CacheHits.WithLabelValues(c.Path()).Inc()
			return c.NoContent(http.StatusNotModified)
		}
		_ = etag
		return c.JSON(http.StatusOK, sorted)
	}
}

// EventHistoryRoute serves GET /api/events/{external_id}/history.
func EventHistoryRoute(store *eventstore.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		externalID := c.Param("external_id")
		if externalID == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "missing external_id")
		}
		history, err := store.IncidentHistory(c.Request().Context(), externalID)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "load incident history failed")
		}
		return c.JSON(http.StatusOK, history)
	}
}
