package tvapi

import "encoding/json"

// RawEnvelope is the outer shape of one NDJSON payload delivered over the
// SSE stream: {"RESPONSE":{"RESULT":[{"Situation":[...]}]}} or the
// RoadCondition equivalent.
type RawEnvelope struct {
	RESPONSE struct {
		RESULT []struct {
			Situation          []RawSituation          `json:"Situation"`
			RoadCondition      []RawRoadCondition       `json:"RoadCondition"`
			Camera             []RawCamera              `json:"Camera"`
			WeatherMeasurepoint []RawWeatherMeasurepoint `json:"WeatherMeasurepoint"`
		} `json:"RESULT"`
	} `json:"RESPONSE"`
}

// Situations flattens every RESULT entry's Situation list.
func (e RawEnvelope) Situations() []RawSituation {
	var out []RawSituation
	for _, r := range e.RESPONSE.RESULT {
		out = append(out, r.Situation...)
	}
	return out
}

// RoadConditions flattens every RESULT entry's RoadCondition list.
func (e RawEnvelope) RoadConditions() []RawRoadCondition {
	var out []RawRoadCondition
	for _, r := range e.RESPONSE.RESULT {
		out = append(out, r.RoadCondition...)
	}
	return out
}

// Cameras flattens every RESULT entry's Camera list.
func (e RawEnvelope) Cameras() []RawCamera {
	var out []RawCamera
	for _, r := range e.RESPONSE.RESULT {
		out = append(out, r.Camera...)
	}
	return out
}

// WeatherMeasurepoints flattens every RESULT entry's WeatherMeasurepoint list.
func (e RawEnvelope) WeatherMeasurepoints() []RawWeatherMeasurepoint {
	var out []RawWeatherMeasurepoint
	for _, r := range e.RESPONSE.RESULT {
		out = append(out, r.WeatherMeasurepoint...)
	}
	return out
}

// RawSituation mirrors the upstream Situation object: one or more
// deviations sharing a situation ID (normalize.IncidentFromSituation merges
// them into a single domain.Incident).
type RawSituation struct {
	ID        string         `json:"Id"`
	Deviation []RawDeviation `json:"Deviation"`
}

// RawDeviation is one deviation entry within a Situation.
type RawDeviation struct {
	IconID                 string      `json:"IconId"`
	Header                 string      `json:"Header"`
	Message                string      `json:"Message"`
	Description            string      `json:"Description"`
	LocationDescriptor     string      `json:"LocationDescriptor"`
	CreationTime           string      `json:"CreationTime"`
	StartTime              string      `json:"StartTime"`
	EndTime                string      `json:"EndTime"`
	SeverityCode           int         `json:"SeverityCode"`
	SeverityText           string      `json:"SeverityText"`
	RoadNumber             string      `json:"RoadNumber"`
	TemporaryLimit         string      `json:"TemporaryLimit"`
	TrafficRestrictionType string      `json:"TrafficRestrictionType"`
	MessageCode            string      `json:"MessageCode"`
	MessageType            string      `json:"MessageType"`
	CountyNo               []int       `json:"CountyNo"`
	Geometry               RawGeometry `json:"Geometry"`
}

// RawGeometry carries WKT-encoded WGS84 points or lines; normalize's
// parseWGS84 extracts the first coordinate pair.
type RawGeometry struct {
	Point *struct {
		WGS84 string `json:"WGS84"`
	} `json:"Point"`
	Line *struct {
		WGS84 string `json:"WGS84"`
	} `json:"Line"`
}

// WGS84 returns whichever of Point/Line carries a WKT string, preferring
// Point, matching trafikverket.py's `geo.get('Point', ...) or geo.get('Line', ...)`.
func (g RawGeometry) WGS84() string {
	if g.Point != nil && g.Point.WGS84 != "" {
		return g.Point.WGS84
	}
	if g.Line != nil {
		return g.Line.WGS84
	}
	return ""
}

// RawRoadCondition mirrors the upstream RoadCondition object.
type RawRoadCondition struct {
	ID            string      `json:"Id"`
	ConditionCode int         `json:"ConditionCode"`
	ConditionText string      `json:"ConditionText"`
	Measure       string      `json:"Measure"`
	Warning       string      `json:"Warning"`
	Cause         string      `json:"Cause"`
	LocationText  string      `json:"LocationText"`
	RoadNumber    string      `json:"RoadNumber"`
	StartTime     string      `json:"StartTime"`
	EndTime       string      `json:"EndTime"`
	CountyNo      int         `json:"CountyNo"`
	Timestamp     string      `json:"Timestamp"`
	Geometry      RawGeometry `json:"Geometry"`
}

// RawCamera mirrors the upstream Camera object (polled, not streamed).
type RawCamera struct {
	ID          string      `json:"Id"`
	Name        string      `json:"Name"`
	Type        string      `json:"Type"`
	PhotoURL    string      `json:"PhotoUrl"`
	FullsizeURL string      `json:"FullSizePhotoUrl"`
	PhotoTime   string      `json:"PhotoTime"`
	RoadNumber  string      `json:"RoadNumberNumeric"`
	CountyNo    []int       `json:"CountyNo"`
	Geometry    RawGeometry `json:"Geometry"`
}

// RawWeatherMeasurepoint mirrors the upstream WeatherMeasurepoint object.
type RawWeatherMeasurepoint struct {
	ID       string      `json:"Id"`
	Name     string      `json:"Name"`
	CountyNo []int       `json:"CountyNo"`
	Geometry RawGeometry `json:"Geometry"`
	Observation struct {
		Air struct {
			Temperature *float64 `json:"Temp"`
		} `json:"Air"`
		Wind struct {
			Speed     *float64 `json:"Speed"`
			Direction struct {
				Text string `json:"Text"`
			} `json:"Direction"`
		} `json:"Wind"`
		Surface struct {
			Temperature *float64 `json:"Temperature"`
		} `json:"Surface"`
		Aggregated30minutes struct {
			Road struct {
				Grip *float64 `json:"Grip"`
			} `json:"Road"`
		} `json:"Aggregated30minutes"`
	} `json:"Observation"`
}

// DecodeEnvelope parses one raw SSE payload into a RawEnvelope.
func DecodeEnvelope(payload []byte) (RawEnvelope, error) {
	var env RawEnvelope
	err := json.Unmarshal(payload, &env)
	return env, err
}
