package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// tvIconBaseURL is the upstream severity/message-type icon service;
// icon_id values come back on every Situation entity (spec.md §3).
const tvIconBaseURL = "https://api.trafikinfo.trafikverket.se/v2/icons/"

// IconRoute serves GET /api/icons/{id}: a long-cached proxy of an upstream
// icon, so the browser never talks to the upstream domain directly and
// repeat views are served from the client's own cache via Cache-Control.
func IconRoute() echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Param("id")
		if id == "" {
			return echo.NewHTTPError(http.StatusNotFound, "icon not found")
		}
		c.Response().Header().Set("Cache-Control", "public, max-age=86400, immutable")
		return proxyImage(c.Request().Context(), c, tvIconBaseURL+id+".svg")
	}
}
