package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestParseSubscribeOptions_Defaults(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/stream", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	opts := parseSubscribeOptions(c)
	assert.True(t, opts.WantIncidents)
	assert.True(t, opts.WantRoadConditions)
	assert.Empty(t, opts.Counties)
	assert.Zero(t, opts.MinSeverity)
}

func TestParseSubscribeOptions_Filters(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/stream?kinds=incident&counties=3,14&min_severity=2", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	opts := parseSubscribeOptions(c)
	assert.True(t, opts.WantIncidents)
	assert.False(t, opts.WantRoadConditions)
	assert.Equal(t, 2, opts.MinSeverity)
	_, ok3 := opts.Counties[3]
	_, ok14 := opts.Counties[14]
	assert.True(t, ok3)
	assert.True(t, ok14)
}
