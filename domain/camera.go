package domain

import "time"

// CameraType distinguishes the two upstream camera kinds (spec.md §3).
type CameraType string

const (
	CameraTypeRoad CameraType = "roadCamera"
	CameraTypeFlow CameraType = "flowCamera"
)

// Camera is a traffic camera synced from the upstream authority.
type Camera struct {
	ID          string
	Name        string
	Type        CameraType
	PhotoURL    string
	FullsizeURL string
	PhotoTime   time.Time
	Latitude    float64
	Longitude   float64
	RoadNumber  string
	CountyNo    int
	IsFavorite  bool // the only field the UI may mutate; preserved across syncs
}

// Lat implements geo.Located.
func (c Camera) Lat() float64 { return c.Latitude }

// Lon implements geo.Located.
func (c Camera) Lon() float64 { return c.Longitude }

// Label is used for the road-affinity regex match in geo.Nearby.
func (c Camera) Label() string { return c.Name }

// WeatherStation is a roadside weather observation point.
type WeatherStation struct {
	ID              string
	Latitude        float64
	Longitude       float64
	CountyNo        int
	AirTemperature  *float64
	WindSpeed       *float64
	WindDirection   string // compass letters, e.g. "NW"
	RoadTemperature *float64
	Grip            *float64
	IceDepth        *float64
	SnowDepth       *float64
	WaterEquivalent *float64
	LastUpdated     time.Time
}

func (w WeatherStation) Lat() float64  { return w.Latitude }
func (w WeatherStation) Lon() float64  { return w.Longitude }
func (w WeatherStation) Label() string { return w.ID }
