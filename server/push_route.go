package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trafikinfo/aggregator/domain"
	"github.com/trafikinfo/aggregator/eventstore"
)

// VAPIDPublicKeyRoute serves GET /api/push/vapid-public-key, the only
// credential the browser needs to call PushManager.subscribe.
func VAPIDPublicKeyRoute(settings SettingsProvider) echo.HandlerFunc {
	return func(c echo.Context) error {
		cur := settings()
		if cur.VAPIDPublicKey == "" {
			return echo.NewHTTPError(http.StatusServiceUnavailable, "push notifications not configured")
		}
		return c.JSON(http.StatusOK, map[string]string{"public_key": cur.VAPIDPublicKey})
	}
}

type pushSubscribeBody struct {
	Endpoint           string `json:"endpoint"`
	P256DH             string `json:"p256dh"`
	Auth               string `json:"auth"`
	Counties           []int  `json:"counties"`
	MinSeverity        int    `json:"min_severity"`
	TopicRealtid       bool   `json:"topic_realtid"`
	TopicRoadCondition bool   `json:"topic_road_condition"`
	IncludeSeverity    bool   `json:"include_severity"`
	IncludeImage       bool   `json:"include_image"`
	IncludeWeather     bool   `json:"include_weather"`
	IncludeLocation    bool   `json:"include_location"`
}

// PushSubscribeRoute serves POST /api/push/subscribe.
func PushSubscribeRoute(store *eventstore.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		var body pushSubscribeBody
		if err := c.Bind(&body); err != nil || body.Endpoint == "" || body.P256DH == "" || body.Auth == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "missing subscription fields")
		}

		counties := make(map[int]struct{}, len(body.Counties))
		for _, n := range body.Counties {
			counties[n] = struct{}{}
		}

		sub := domain.PushSubscription{
			Endpoint:           body.Endpoint,
			P256DH:             body.P256DH,
			Auth:               body.Auth,
			Counties:           counties,
			MinSeverity:        body.MinSeverity,
			TopicRealtid:       body.TopicRealtid,
			TopicRoadCondition: body.TopicRoadCondition,
			IncludeSeverity:    body.IncludeSeverity,
			IncludeImage:       body.IncludeImage,
			IncludeWeather:     body.IncludeWeather,
			IncludeLocation:    body.IncludeLocation,
		}
		if err := store.UpsertPushSubscription(c.Request().Context(), sub); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "save subscription failed")
		}
		return c.NoContent(http.StatusNoContent)
	}
}

// PushUnsubscribeRoute serves POST /api/push/unsubscribe.
func PushUnsubscribeRoute(store *eventstore.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		var body struct {
			Endpoint string `json:"endpoint"`
		}
		if err := c.Bind(&body); err != nil || body.Endpoint == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "missing endpoint")
		}
		if err := store.DeletePushSubscription(c.Request().Context(), body.Endpoint); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "delete subscription failed")
		}
		return c.NoContent(http.StatusNoContent)
	}
}
