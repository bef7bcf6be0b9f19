package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trafikinfo/aggregator/broadcast"
	"github.com/trafikinfo/aggregator/eventstore"
)

type statsView struct {
	eventstore.Stats
	SSEClients int `json:"sse_clients"`
}

// StatsRoute serves the supplemented GET /api/stats endpoint, present in
// original_source/backend/main.py and dropped from the distilled spec.
func StatsRoute(store *eventstore.Store, broadcaster *broadcast.Broadcaster) echo.HandlerFunc {
	return func(c echo.Context) error {
		st, err := store.Stats(c.Request().Context())
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "load stats failed")
		}
		view := statsView{Stats: st}
		if broadcaster != nil {
			view.SSEClients = broadcaster.ClientCount()
		}
		return c.JSON(http.StatusOK, view)
	}
}
