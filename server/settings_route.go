package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

// settingsView is the JSON shape for GET /api/settings: admin_password and
// the VAPID private key are write-only, per spec.md §6's Non-goal that the
// VAPID key storage format is an external collaborator's concern; this
// service still refuses to echo either secret back.
type settingsView struct {
	APIKeySet              bool    `json:"api_key_set"`
	SelectedCounties       []int   `json:"selected_counties"`
	CameraRadiusKM         float64 `json:"camera_radius_km"`
	MQTTEnabled            bool    `json:"mqtt_enabled"`
	MQTTHost               string  `json:"mqtt_host"`
	MQTTPort               int     `json:"mqtt_port"`
	MQTTUsername           string  `json:"mqtt_username"`
	MQTTTopic              string  `json:"mqtt_topic"`
	MQTTRoadConditionTopic string  `json:"rc_topic"`
	RetentionDays          int     `json:"retention_days"`
	BaseURL                string  `json:"base_url"`
	PushNotificationsEnabled  bool `json:"push_notifications_enabled"`
	SoundNotificationsEnabled bool `json:"sound_notifications_enabled"`
	VAPIDPublicKey            string `json:"vapid_public_key"`
}

// GetSettingsRoute serves GET /api/settings.
func GetSettingsRoute(settings SettingsProvider) echo.HandlerFunc {
	return func(c echo.Context) error {
		cur := settings()
		return c.JSON(http.StatusOK, settingsView{
			APIKeySet:                 cur.APIKey != "",
			SelectedCounties:          cur.SelectedCounties,
			CameraRadiusKM:            cur.CameraRadiusKM,
			MQTTEnabled:               cur.MQTTEnabled,
			MQTTHost:                  cur.MQTTHost,
			MQTTPort:                  cur.MQTTPort,
			MQTTUsername:              cur.MQTTUsername,
			MQTTTopic:                 cur.MQTTTopic,
			MQTTRoadConditionTopic:    cur.MQTTRoadConditionTopic,
			RetentionDays:             cur.RetentionDays,
			BaseURL:                   cur.BaseURL,
			PushNotificationsEnabled:  cur.PushNotificationsEnabled,
			SoundNotificationsEnabled: cur.SoundNotificationsEnabled,
			VAPIDPublicKey:            cur.VAPIDPublicKey,
		})
	}
}

// settingsPatch mirrors every key the table in spec.md §6 allows to be
// admin-mutated; nil fields are left untouched.
type settingsPatch struct {
	APIKey                    *string `json:"api_key"`
	SelectedCounties          []int   `json:"selected_counties"`
	CameraRadiusKM            *float64 `json:"camera_radius_km"`
	MQTTEnabled               *bool   `json:"mqtt_enabled"`
	MQTTHost                  *string `json:"mqtt_host"`
	MQTTPort                  *int    `json:"mqtt_port"`
	MQTTUsername              *string `json:"mqtt_username"`
	MQTTPassword              *string `json:"mqtt_password"`
	MQTTTopic                 *string `json:"mqtt_topic"`
	MQTTRoadConditionTopic    *string `json:"rc_topic"`
	RetentionDays             *int    `json:"retention_days"`
	BaseURL                   *string `json:"base_url"`
	PushNotificationsEnabled  *bool   `json:"push_notifications_enabled"`
	SoundNotificationsEnabled *bool   `json:"sound_notifications_enabled"`
	VAPIDPrivateKey           *string `json:"vapid_private_key"`
	VAPIDPublicKey            *string `json:"vapid_public_key"`
}

// PostSettingsRoute serves POST /api/settings, persisting only the keys
// present in the request body.
func PostSettingsRoute(deps Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		var patch settingsPatch
		if err := c.Bind(&patch); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid settings body")
		}

		ctx := c.Request().Context()
		set := func(key, value string) error {
			return deps.Store.SetSetting(ctx, key, value)
		}

		if patch.APIKey != nil {
			if err := set("api_key", *patch.APIKey); err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
			}
		}
		if patch.SelectedCounties != nil {
			parts := make([]string, len(patch.SelectedCounties))
			for i, n := range patch.SelectedCounties {
				parts[i] = strconv.Itoa(n)
			}
			if err := set("selected_counties", strings.Join(parts, ",")); err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
			}
		}
		if patch.CameraRadiusKM != nil {
			if err := set("camera_radius_km", fmt.Sprintf("%g", *patch.CameraRadiusKM)); err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
			}
		}
		if patch.MQTTEnabled != nil {
			if err := set("mqtt_enabled", strconv.FormatBool(*patch.MQTTEnabled)); err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
			}
		}
		if patch.MQTTHost != nil {
			if err := set("mqtt_host", *patch.MQTTHost); err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
			}
		}
		if patch.MQTTPort != nil {
			if err := set("mqtt_port", strconv.Itoa(*patch.MQTTPort)); err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
			}
		}
		if patch.MQTTUsername != nil {
			if err := set("mqtt_username", *patch.MQTTUsername); err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
			}
		}
		if patch.MQTTPassword != nil {
			if err := set("mqtt_password", *patch.MQTTPassword); err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
			}
		}
		if patch.MQTTTopic != nil {
			if err := set("mqtt_topic", *patch.MQTTTopic); err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
			}
		}
		if patch.MQTTRoadConditionTopic != nil {
			if err := set("rc_topic", *patch.MQTTRoadConditionTopic); err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
			}
		}
		if patch.RetentionDays != nil {
			if err := set("retention_days", strconv.Itoa(*patch.RetentionDays)); err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
			}
		}
		if patch.BaseURL != nil {
			if err := set("base_url", *patch.BaseURL); err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
			}
		}
		if patch.PushNotificationsEnabled != nil {
			if err := set("push_notifications_enabled", strconv.FormatBool(*patch.PushNotificationsEnabled)); err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
			}
		}
		if patch.SoundNotificationsEnabled != nil {
			if err := set("sound_notifications_enabled", strconv.FormatBool(*patch.SoundNotificationsEnabled)); err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
			}
		}
		if patch.VAPIDPrivateKey != nil {
			if err := set("vapid_private_key", *patch.VAPIDPrivateKey); err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
			}
		}
		if patch.VAPIDPublicKey != nil {
			if err := set("vapid_public_key", *patch.VAPIDPublicKey); err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
			}
		}

		return c.NoContent(http.StatusNoContent)
	}
}

// ReportBaseURLRoute serves POST /api/report-base-url: a deployed instance
// tells itself what public URL it's reachable at, so Web Push and any
// absolute links it generates are correct behind a reverse proxy.
func ReportBaseURLRoute(deps Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		var body struct {
			BaseURL string `json:"base_url"`
		}
		if err := c.Bind(&body); err != nil || body.BaseURL == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "missing base_url")
		}
		if err := deps.Store.SetSetting(c.Request().Context(), "base_url", body.BaseURL); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "save base_url failed")
		}
		return c.NoContent(http.StatusNoContent)
	}
}
