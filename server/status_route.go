package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trafikinfo/aggregator/tvapi"
)

type statusView struct {
	SetupRequired  bool                          `json:"setup_required"`
	Trafikverket   map[string]tvapi.StreamStatus `json:"trafikverket"`
	ActiveCounties []int                         `json:"active_counties"`
}

// StatusRoute serves GET /api/status: the upstream connection health per
// object type, the county set currently driving the interest-loop's open
// streams (spec.md §4.7), plus whether the service is idling for lack of
// an API key (spec.md §7's Configuration-missing error path).
func StatusRoute(deps Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		view := statusView{
			SetupRequired:  deps.TVAPIClient == nil || !deps.TVAPIClient.IsConfigured(),
			Trafikverket:   map[string]tvapi.StreamStatus{},
			ActiveCounties: []int{},
		}
		if deps.Status != nil {
			view.Trafikverket = deps.Status.Status()
			if ac := deps.Status.ActiveCounties(); ac != nil {
				view.ActiveCounties = ac
			}
		}
		return c.JSON(http.StatusOK, view)
	}
}
