package server

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/trafikinfo/aggregator/domain"
	"github.com/trafikinfo/aggregator/eventstore"
	"github.com/trafikinfo/aggregator/geo"
)

// CamerasRoute serves GET /api/cameras.
func CamerasRoute(store *eventstore.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		cameras, err := store.ListCameras(c.Request().Context())
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "list cameras failed")
		}
		sorted := SortCameras(cameras)

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

// ToggleFavoriteRoute serves POST /api/cameras/{id}/toggle-favorite.
func ToggleFavoriteRoute(store *eventstore.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Param("id")
		if id == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "missing id")
		}

		var body struct {
			Favorite bool `json:"favorite"`
		}
		if err := c.Bind(&body); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
		}

		if err := store.SetCameraFavorite(c.Request().Context(), id, body.Favorite); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "set favorite failed")
		}
		return c.NoContent(http.StatusNoContent)
	}
}

var cameraImageClient = &http.Client{Timeout: 10 * time.Second}

// CameraImageRoute serves GET /api/cameras/{id}/image, proxying the
// camera's current upstream photo so browsers never need the upstream
// domain directly.
func CameraImageRoute(cameras *geo.Index[domain.Camera]) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Param("id")
		if id == "" || cameras == nil {
			return echo.NewHTTPError(http.StatusNotFound, "camera not found")
		}

		var found *domain.Camera
		for _, cam := range cameras.Snapshot() {
			if cam.ID == id {
				cam := cam
				found = &cam
				break
			}
		}
		if found == nil || found.PhotoURL == "" {
			return echo.NewHTTPError(http.StatusNotFound, "camera not found")
		}

		return proxyImage(c.Request().Context(), c, found.PhotoURL)
	}
}

func proxyImage(ctx context.Context, c echo.Context, src string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, "build upstream request failed")
	}
	resp, err := cameraImageClient.Do(req)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, "fetch upstream image failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return echo.NewHTTPError(http.StatusBadGateway, "upstream image fetch failed")
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}
	if c.Response().Header().Get("Cache-Control") == "" {
		c.Response().Header().Set("Cache-Control", "public, max-age=10")
	}
	return c.Stream(http.StatusOK, contentType, io.LimitReader(resp.Body, 10<<20))
}
