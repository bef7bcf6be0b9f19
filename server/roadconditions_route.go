package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trafikinfo/aggregator/eventstore"
)

// RoadConditionsRoute serves GET /api/road-conditions.
func RoadConditionsRoute(store *eventstore.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		counties := parseCountiesParam(c)

		conditions, err := store.ListRoadConditions(ctx, counties)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "list road conditions failed")
		}
		sorted := SortRoadConditions(conditions)

		c.Response().Header().Set("Content-Type", "application/json")
		_, notModified, err := SetCacheHeaders(c, CacheConfig{Components: []interface{}{sorted}})
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		if notModified {
			CacheHits.WithLabelValues(c.Path()).Inc()
			return c.NoContent(http.StatusNotModified)
		}
		return c.JSON(http.StatusOK, sorted)
	}
}

// RoadConditionHistoryRoute serves GET /api/road-conditions/{id}/history.
func RoadConditionHistoryRoute(store *eventstore.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Param("id")
		if id == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "missing id")
		}
		history, err := store.RoadConditionHistory(c.Request().Context(), id)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "load road condition history failed")
		}
		return c.JSON(http.StatusOK, history)
	}
}
