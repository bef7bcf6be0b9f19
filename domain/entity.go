// Package domain holds the shared types that flow through the ingest,
// enrichment, storage, and fan-out pipeline.
package domain

import "time"

// EntityKind tags which concrete type an Entity union member carries.
type EntityKind string

const (
	KindIncident      EntityKind = "incident"
	KindRoadCondition EntityKind = "road_condition"
)

// Entity is the tagged union described by the "Polymorphic event" redesign
// flag: every value flowing through the pipeline after normalization
// implements this, and the broadcaster dispatches on Kind().
type Entity interface {
	Kind() EntityKind
	Key() string
}

// CameraRef is one row of an Incident/RoadCondition's extra_cameras list.
type CameraRef struct {
	ID           string
	Name         string
	SnapshotPath string
}

// WeatherSnapshot is the enrichment weather data attached to an entity.
type WeatherSnapshot struct {
	Temp      *float64
	WindSpeed *float64
	WindDir   string

	// Carried from original_source/backend/database.py's road-surface
	// weather columns; not named by spec.md's {temp, wind_speed, wind_dir}
	// triad but present in the schema it was distilled from.
	RoadTemp       *float64
	Grip           *float64
	IceDepth       *float64
	SnowDepth      *float64
	WaterEquiv     *float64
}

// Enrichment is embedded in both Incident and RoadCondition.
type Enrichment struct {
	CameraID           string
	CameraName         string
	SnapshotPath       string
	ExtraCameras       []CameraRef
	Weather            *WeatherSnapshot
	ExternalCameraURL  string // side-channel only, never published downstream
}

// Incident is an active or scheduled traffic situation (spec.md §3).
type Incident struct {
	ExternalID string // stable upstream situation identifier, unique key

	Title       string
	Description string
	Location    string

	IconID        string
	MessageType   string
	SeverityCode  int // 1..5
	SeverityText  string

	RoadNumber string
	StartTime  *time.Time
	EndTime    *time.Time

	Latitude  *float64
	Longitude *float64
	CountyNo  int

	TemporaryLimit          string
	TrafficRestrictionType  string // comma-joined multi-value

	Enrichment

	CreatedAt time.Time
	UpdatedAt time.Time

	PublishedToBroker bool
}

func (i *Incident) Kind() EntityKind { return KindIncident }
func (i *Incident) Key() string      { return i.ExternalID }

// IncidentVersion is an immutable pre-change snapshot of an Incident.
type IncidentVersion struct {
	ExternalID      string
	VersionTime     time.Time
	Title           string
	Description     string
	Location        string
	IconID          string
	MessageType     string
	SeverityCode    int
	SeverityText    string
	RoadNumber      string
	StartTime       *time.Time
	EndTime         *time.Time
	Latitude        *float64
	Longitude       *float64
	CountyNo        int
	TemporaryLimit  string
	TrafficRestrictionType string
	Enrichment
}

// RoadCondition is a road-surface condition advisory (spec.md §3).
type RoadCondition struct {
	ID string // upstream identifier, unstable over time

	ConditionCode int // 1..4
	ConditionText string
	Measure       string
	Warning       string
	Cause         string
	LocationText  string

	RoadNumber string
	StartTime  *time.Time
	EndTime    *time.Time
	Latitude   *float64
	Longitude  *float64
	CountyNo   int
	Timestamp  time.Time

	Enrichment

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (r *RoadCondition) Kind() EntityKind { return KindRoadCondition }
func (r *RoadCondition) Key() string      { return r.ID }

// RoadConditionVersion is an immutable pre-change snapshot of a RoadCondition.
type RoadConditionVersion struct {
	RoadConditionID string
	VersionTime     time.Time
	ConditionCode   int
	ConditionText   string
	Measure         string
	Warning         string
	Cause           string
	LocationText    string
	RoadNumber      string
	StartTime       *time.Time
	EndTime         *time.Time
	Latitude        *float64
	Longitude       *float64
	CountyNo        int
	Timestamp       time.Time
	Enrichment
}
