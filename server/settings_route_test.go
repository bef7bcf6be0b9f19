package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trafikinfo/aggregator/domain"
)

func TestGetSettingsRoute_NeverEchoesSecrets(t *testing.T) {
	e := echo.New()
	provider := SettingsProvider(func() domain.Settings {
		return domain.Settings{
			APIKey:          "secret-key",
			VAPIDPrivateKey: "super-secret",
			VAPIDPublicKey:  "public-key",
			CameraRadiusKM:  8.0,
		}
	})
	e.GET("/api/settings", GetSettingsRoute(provider))

	req := httptest.NewRequest(http.MethodGet, "/api/settings", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.NotContains(t, body, "secret-key")
	assert.NotContains(t, body, "super-secret")
	assert.Contains(t, body, "public-key")

	var view settingsView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.True(t, view.APIKeySet)
	assert.Equal(t, 8.0, view.CameraRadiusKM)
}

func TestVAPIDPublicKeyRoute_NotConfigured(t *testing.T) {
	e := echo.New()
	provider := SettingsProvider(func() domain.Settings { return domain.Settings{} })
	e.GET("/api/push/vapid-public-key", VAPIDPublicKeyRoute(provider))

	req := httptest.NewRequest(http.MethodGet, "/api/push/vapid-public-key", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
