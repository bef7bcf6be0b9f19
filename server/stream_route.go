package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trafikinfo/aggregator/broadcast"
	"github.com/trafikinfo/aggregator/metrics"
)

func parseSubscribeOptions(c echo.Context) broadcast.SubscribeOptions {
	opts := broadcast.SubscribeOptions{
		WantIncidents:      true,
		WantRoadConditions: true,
	}
	if raw := c.QueryParam("kinds"); raw != "" {
		opts.WantIncidents = strings.Contains(raw, "incident")
		opts.WantRoadConditions = strings.Contains(raw, "road_condition")
	}
	if counties := parseCountiesParam(c); len(counties) > 0 {
		set := make(map[int]struct{}, len(counties))
		for _, n := range counties {
			set[n] = struct{}{}
		}
		opts.Counties = set
	}
	if raw := c.QueryParam("min_severity"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			opts.MinSeverity = n
		}
	}
	return opts
}

// StreamRoute serves GET /api/stream: a long-lived SSE connection fed by
// broadcast.Broadcaster, grounded on the teacher's skyhook-style
// flush-per-event SSE loop.
func StreamRoute(b *broadcast.Broadcaster) echo.HandlerFunc {
	return func(c echo.Context) error {
		resp := c.Response()
		resp.Header().Set("Content-Type", "text/event-stream")
		resp.Header().Set("Cache-Control", "no-cache")
		resp.Header().Set("Connection", "keep-alive")
		resp.WriteHeader(http.StatusOK)

		ch := b.Subscribe(parseSubscribeOptions(c))
		metrics.SSEClientsGauge.Inc()
		defer func() {
			b.Unsubscribe(ch)
			metrics.SSEClientsGauge.Dec()
		}()

		flusher, canFlush := resp.Writer.(http.Flusher)

		ctx := c.Request().Context()
		for {
			select {
			case <-ctx.Done():
				return nil
			case event, ok := <-ch:
				if !ok {
					return nil
				}
				payload, err := json.Marshal(event.Entity)
				if err != nil {
					continue
				}
				fmt.Fprintf(resp, "event: %s\ndata: %s\n\n", event.Kind, payload)
				metrics.BroadcastFanoutTotal.WithLabelValues(string(event.Kind)).Inc()
				if canFlush {
					flusher.Flush()
				}
			}
		}
	}
}
