package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trafikinfo/aggregator/domain"
	"github.com/trafikinfo/aggregator/eventstore"
)

type clientInterestBody struct {
	ClientID  string `json:"client_id"`
	Counties  []int  `json:"counties"`
	UserAgent string `json:"user_agent"`
	IsAdmin   bool   `json:"is_admin"`
}

// ClientInterestRoute serves POST /api/client/interest, recording which
// counties a live viewer currently cares about (spec.md §4.8).
func ClientInterestRoute(store *eventstore.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		var body clientInterestBody
		if err := c.Bind(&body); err != nil || body.ClientID == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "missing client_id")
		}

		counties := make(map[int]struct{}, len(body.Counties))
		for _, n := range body.Counties {
			counties[n] = struct{}{}
		}

		interest := domain.ClientInterest{
			ClientID:  body.ClientID,
			Counties:  counties,
			UserAgent: body.UserAgent,
			IsAdmin:   body.IsAdmin,
		}
		if err := store.UpsertClientInterest(c.Request().Context(), interest); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "record client interest failed")
		}
		return c.NoContent(http.StatusNoContent)
	}
}
