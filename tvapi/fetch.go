package tvapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

const (
	// ObjectTypeCamera and ObjectTypeWeatherMeasurepoint are polled
	// periodically rather than streamed (grounded on udot/poller.go's
	// ticker-based FetchCameras/FetchWeatherStations).
	ObjectTypeCamera              = "Camera"
	ObjectTypeWeatherMeasurepoint = "WeatherMeasurepoint"
)

// FetchOnce posts a non-streaming query (no sseurl='true') and returns the
// decoded envelope directly, for object types polled on a ticker instead of
// consumed via SSE.
func (c *Client) FetchOnce(ctx context.Context, objectType string, counties []int, schemaVersion string) (RawEnvelope, error) {
	if !c.IsConfigured() {
		return RawEnvelope{}, fmt.Errorf("tvapi: API key not configured")
	}

	field := "CountyNo"
	body, err := buildNonStreamingQuery(c.apiKey, objectType, counties, schemaVersion, field)
	if err != nil {
		return RawEnvelope{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewBufferString(body))
	if err != nil {
		return RawEnvelope{}, fmt.Errorf("tvapi: build fetch request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return RawEnvelope{}, fmt.Errorf("tvapi: post fetch query: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return RawEnvelope{}, fmt.Errorf("tvapi: fetch query returned status %d", resp.StatusCode)
	}

	var env RawEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return RawEnvelope{}, fmt.Errorf("tvapi: decode fetch response: %w", err)
	}
	return env, nil
}

func buildNonStreamingQuery(apiKey, objectType string, counties []int, schemaVersion, field string) (string, error) {
	var buf bytes.Buffer
	err := queryTmpl.Execute(&buf, queryParams{
		APIKey:        apiKey,
		ObjectType:    objectType,
		SchemaVersion: schemaVersion,
		CountyField:   field,
		Counties:      counties,
		SSEURL:        false,
	})
	if err != nil {
		return "", fmt.Errorf("tvapi: render fetch query: %w", err)
	}
	return buf.String(), nil
}
