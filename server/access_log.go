package server

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trafikinfo/aggregator/logger"
)

// accessLogMiddleware writes one structured line per request through
// logger.HTTPLogger, the same styled logger the TUI banner uses.
func accessLogMiddleware() echo.MiddlewareFunc {
	log := logger.HTTPLogger()
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			req := c.Request()
			res := c.Response()
			status := res.Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				} else if status < http.StatusBadRequest {
					status = http.StatusInternalServerError
				}
			}

			duration := time.Since(start)
			log.Info("request",
				"method", req.Method,
				"path", req.URL.Path,
				"status", status,
				"duration", duration,
				"remote", c.RealIP(),
			)

			if RequestCounter != nil {
				atomic.AddInt64(RequestCounter, 1)
			}
			if status >= http.StatusBadRequest {
				if ErrorCounter != nil {
					atomic.AddInt64(ErrorCounter, 1)
				}
				LogError(status, req.Method, c.Path(), req.URL.String(), c.RealIP(), req.UserAgent(), duration, err)
			}
			return err
		}
	}
}

// metricsHandler exposes the process's Prometheus registry for /metrics.
func metricsHandler() http.Handler {
	return promhttp.Handler()
}
