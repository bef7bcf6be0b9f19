package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionRoute(t *testing.T) {
	e := echo.New()
	e.GET("/_/version", VersionRoute())

	req := httptest.NewRequest(http.MethodGet, "/_/version", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var info VersionInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.NotEmpty(t, info.Version)
	assert.NotEmpty(t, info.GoVersion)
	assert.NotEmpty(t, info.Uptime)
}

func TestGetVersionString(t *testing.T) {
	origVersion, origGoVersion := Version, GoVersion
	defer func() { Version, GoVersion = origVersion, origGoVersion }()

	Version = "dev"
	GoVersion = "go1.24.5"
	assert.Contains(t, GetVersionString(), "dev")
	assert.Contains(t, GetVersionString(), GoVersion)

	Version = "abc1234"
	assert.Equal(t, "abc1234", GetVersionString())
}

func TestGetVersionInfo(t *testing.T) {
	info := GetVersionInfo()
	assert.NotEmpty(t, info.Version)
	assert.NotEmpty(t, info.GoVersion)
	assert.NotEmpty(t, info.Uptime)
}
