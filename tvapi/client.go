// Package tvapi is the client for the upstream open-data push API: it
// builds the XML queries, resolves the SSE stream URL, and consumes the
// NDJSON event stream with reconnect-on-error semantics (grounded on
// udot/client.go's Client and on original_source/backend/trafikverket.py's
// TrafikverketStream).
package tvapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"text/template"
	"time"
)

const (
	defaultBaseURL = "https://api.trafikinfo.trafikverket.se/v2/data.json"
	userAgent      = "trafikinfo-aggregator/1.0"

	// ObjectTypeSituation is the incidents/deviations object type.
	ObjectTypeSituation = "Situation"
	// ObjectTypeRoadCondition is the road-surface conditions object type.
	ObjectTypeRoadCondition = "RoadCondition"
)

// Client talks to the upstream query API. One Client is shared by both
// streams; each Stream call carries its own object type.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient builds a Client. apiKey must be non-empty for IsConfigured to
// report true; callers should check it before starting streams.
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// IsConfigured reports whether an API key was provided.
func (c *Client) IsConfigured() bool {
	return c.apiKey != ""
}

var queryTmpl = template.Must(template.New("query").Parse(`<REQUEST>
    <LOGIN authenticationkey='{{.APIKey}}' />
    <QUERY objecttype='{{.ObjectType}}' schemaversion='{{.SchemaVersion}}'{{if .SSEURL}} sseurl='true'{{end}}>
        <FILTER>
            <OR>
                {{range .Counties}}<EQ name="{{$.CountyField}}" value="{{.}}" />
                {{end}}
            </OR>
        </FILTER>
    </QUERY>
</REQUEST>`))

type queryParams struct {
	APIKey        string
	ObjectType    string
	SchemaVersion string
	CountyField   string
	Counties      []int
	SSEURL        bool
}

// buildQuery renders the LOGIN/QUERY/FILTER/OR/EQ XML body for the given
// object type, filtered to the given county numbers.
func buildQuery(apiKey, objectType string, counties []int, schemaVersion string) (string, error) {
	field := "Deviation.CountyNo"
	if objectType == ObjectTypeRoadCondition {
		field = "RoadCondition.CountyNo"
	}
	var buf bytes.Buffer
	err := queryTmpl.Execute(&buf, queryParams{
		APIKey:        apiKey,
		ObjectType:    objectType,
		SchemaVersion: schemaVersion,
		CountyField:   field,
		Counties:      counties,
		SSEURL:        true,
	})
	if err != nil {
		return "", fmt.Errorf("tvapi: render query: %w", err)
	}
	return buf.String(), nil
}

type queryResponse struct {
	RESPONSE struct {
		RESULT []struct {
			INFO struct {
				SSEURL string `json:"SSEURL"`
			} `json:"INFO"`
			ERROR *struct {
				Message string `json:"MESSAGE"`
			} `json:"ERROR"`
		} `json:"RESULT"`
	} `json:"RESPONSE"`
}

// ErrQuery wraps an upstream-reported query error (schema/filter mistakes),
// which callers should back off on differently than a transport failure.
type ErrQuery struct{ Message string }

func (e *ErrQuery) Error() string { return "tvapi: query error: " + e.Message }

// ResolveSSEURL posts the query and returns the SSE stream URL from the
// response envelope.
func (c *Client) ResolveSSEURL(ctx context.Context, objectType string, counties []int, schemaVersion string) (string, error) {
	if !c.IsConfigured() {
		return "", fmt.Errorf("tvapi: API key not configured")
	}
	body, err := buildQuery(c.apiKey, objectType, counties, schemaVersion)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewBufferString(body))
	if err != nil {
		return "", fmt.Errorf("tvapi: build request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("tvapi: post query: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("tvapi: query returned status %d", resp.StatusCode)
	}

	var out queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("tvapi: decode query response: %w", err)
	}
	if len(out.RESPONSE.RESULT) == 0 {
		return "", fmt.Errorf("tvapi: empty query result")
	}
	result := out.RESPONSE.RESULT[0]
	if result.ERROR != nil {
		return "", &ErrQuery{Message: result.ERROR.Message}
	}
	if result.INFO.SSEURL == "" {
		return "", fmt.Errorf("tvapi: no SSEURL in response")
	}
	return result.INFO.SSEURL, nil
}
