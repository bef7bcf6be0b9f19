package eventstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/trafikinfo/aggregator/domain"
)

// Store is the Postgres-backed persistence layer for incidents and road
// conditions, grounded on original_source/backend/database.py's models and
// the raw-SQL style of neon/repository.go.
type Store struct {
	pool *pgxpool.Pool
}

// New wraps an already-connected pool. Callers should run Migrate before
// first use.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// UpsertResult reports what UpsertIncident / UpsertRoadCondition did so
// callers (worker.Supervisor) know whether to fan the entity out as new,
// updated, or unchanged.
type UpsertResult struct {
	Created        bool
	SignificantChg bool
}

type incidentRow struct {
	Title, Description, Location, IconID, MessageType, SeverityText string
	SeverityCode                                                    int
	RoadNumber                                                      string
	StartTime, EndTime                                              *time.Time
	TemporaryLimit, TrafficRestrictionType                          string
}

// significant applies the comparison set from spec.md's versioning rule:
// a change to any of these triggers a pre-update version snapshot.
func significant(a, b incidentRow) bool {
	return a.Title != b.Title ||
		a.Description != b.Description ||
		a.Location != b.Location ||
		a.SeverityCode != b.SeverityCode ||
		a.MessageType != b.MessageType ||
		a.TemporaryLimit != b.TemporaryLimit ||
		a.TrafficRestrictionType != b.TrafficRestrictionType ||
		!timeEqual(a.StartTime, b.StartTime) ||
		!timeEqual(a.EndTime, b.EndTime)
}

func timeEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

// UpsertIncident inserts a new incident row, or updates an existing one.
// On update, if any of the "significant" fields differ, the pre-change row
// is copied into incident_versions before the update applies; a change
// limited to coordinates or enrichment data writes through without
// versioning and does not count as a significant change for callers.
func (s *Store) UpsertIncident(ctx context.Context, in *domain.Incident) (UpsertResult, error) {
	extraCameras, err := json.Marshal(in.ExtraCameras)
	if err != nil {
		return UpsertResult{}, fmt.Errorf("eventstore: marshal extra cameras: %w", err)
	}

	var existing incidentRow
	err = s.pool.QueryRow(ctx, `
SELECT title, description, location, icon_id, message_type, severity_code, severity_text,
       road_number, start_time, end_time, temporary_limit, traffic_restriction_type
FROM incidents WHERE external_id = $1`, in.ExternalID).Scan(
		&existing.Title, &existing.Description, &existing.Location, &existing.IconID,
		&existing.MessageType, &existing.SeverityCode, &existing.SeverityText,
		&existing.RoadNumber, &existing.StartTime, &existing.EndTime,
		&existing.TemporaryLimit, &existing.TrafficRestrictionType,
	)

	incoming := incidentRow{
		Title: in.Title, Description: in.Description, Location: in.Location,
		IconID: in.IconID, MessageType: in.MessageType, SeverityCode: in.SeverityCode,
		SeverityText: in.SeverityText, RoadNumber: in.RoadNumber,
		StartTime: in.StartTime, EndTime: in.EndTime,
		TemporaryLimit: in.TemporaryLimit, TrafficRestrictionType: in.TrafficRestrictionType,
	}

	if err == pgx.ErrNoRows {
		_, insertErr := s.pool.Exec(ctx, `
INSERT INTO incidents (
    external_id, title, description, location, icon_id, message_type,
    severity_code, severity_text, road_number, start_time, end_time,
    latitude, longitude, county_no, temporary_limit, traffic_restriction_type,
    camera_id, camera_name, snapshot_path, extra_cameras,
    air_temperature, wind_speed, wind_direction,
    road_temperature, grip, ice_depth, snow_depth, water_equivalent,
    created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27,$28,now(),now())`,
			in.ExternalID, in.Title, in.Description, in.Location, in.IconID, in.MessageType,
			in.SeverityCode, in.SeverityText, in.RoadNumber, in.StartTime, in.EndTime,
			in.Latitude, in.Longitude, in.CountyNo, in.TemporaryLimit, in.TrafficRestrictionType,
			in.CameraID, in.CameraName, in.SnapshotPath, extraCameras,
			weatherField(in.Weather, weatherTemp), weatherField(in.Weather, weatherWind), weatherDir(in.Weather),
			weatherField(in.Weather, weatherRoadTemp), weatherField(in.Weather, weatherGrip),
			weatherField(in.Weather, weatherIce), weatherField(in.Weather, weatherSnow), weatherField(in.Weather, weatherWaterEq),
		)
		if insertErr != nil {
			return UpsertResult{}, fmt.Errorf("eventstore: insert incident: %w", insertErr)
		}
		return UpsertResult{Created: true, SignificantChg: true}, nil
	}
	if err != nil {
		return UpsertResult{}, fmt.Errorf("eventstore: read incident: %w", err)
	}

	changed := significant(existing, incoming)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return UpsertResult{}, fmt.Errorf("eventstore: begin update tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if changed {
		_, err = tx.Exec(ctx, `
INSERT INTO incident_versions (
    external_id, version_time, title, description, location, icon_id, message_type,
    severity_code, severity_text, road_number, start_time, end_time, latitude, longitude,
    county_no, temporary_limit, traffic_restriction_type, camera_id, camera_name,
    snapshot_path, extra_cameras, air_temperature, wind_speed, wind_direction,
    road_temperature, grip, ice_depth, snow_depth, water_equivalent
)
SELECT external_id, now(), title, description, location, icon_id, message_type,
       severity_code, severity_text, road_number, start_time, end_time, latitude, longitude,
       county_no, temporary_limit, traffic_restriction_type, camera_id, camera_name,
       snapshot_path, extra_cameras, air_temperature, wind_speed, wind_direction,
       road_temperature, grip, ice_depth, snow_depth, water_equivalent
FROM incidents WHERE external_id = $1`, in.ExternalID)
		if err != nil {
			return UpsertResult{}, fmt.Errorf("eventstore: snapshot incident version: %w", err)
		}
	}

	updatedAtClause := "updated_at"
	if changed {
		updatedAtClause = "now()"
	}

	_, err = tx.Exec(ctx, fmt.Sprintf(`
UPDATE incidents SET
    title=$2, description=$3, location=$4, icon_id=$5, message_type=$6,
    severity_code=$7, severity_text=$8, road_number=$9, start_time=$10, end_time=$11,
    latitude=$12, longitude=$13, county_no=$14, temporary_limit=$15, traffic_restriction_type=$16,
    camera_id=$17, camera_name=$18, snapshot_path=$19, extra_cameras=$20,
    air_temperature=$21, wind_speed=$22, wind_direction=$23,
    road_temperature=$24, grip=$25, ice_depth=$26, snow_depth=$27, water_equivalent=$28,
    updated_at=%s
WHERE external_id=$1`, updatedAtClause),
		in.ExternalID, in.Title, in.Description, in.Location, in.IconID, in.MessageType,
		in.SeverityCode, in.SeverityText, in.RoadNumber, in.StartTime, in.EndTime,
		in.Latitude, in.Longitude, in.CountyNo, in.TemporaryLimit, in.TrafficRestrictionType,
		in.CameraID, in.CameraName, in.SnapshotPath, extraCameras,
		weatherField(in.Weather, weatherTemp), weatherField(in.Weather, weatherWind), weatherDir(in.Weather),
		weatherField(in.Weather, weatherRoadTemp), weatherField(in.Weather, weatherGrip),
		weatherField(in.Weather, weatherIce), weatherField(in.Weather, weatherSnow), weatherField(in.Weather, weatherWaterEq),
	)
	if err != nil {
		return UpsertResult{}, fmt.Errorf("eventstore: update incident: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return UpsertResult{}, fmt.Errorf("eventstore: commit incident update: %w", err)
	}

	return UpsertResult{Created: false, SignificantChg: changed}, nil
}

// IncidentEnrichmentState returns whether an incident row already exists
// for externalID, its previously recorded enrichment fields, and the
// coordinates it was last enriched at. enrich.Enricher uses this to decide
// whether a fresh camera sync is required (spec.md §4.6's
// needs_camera_sync rule); found is false for an entity not yet persisted.
func (s *Store) IncidentEnrichmentState(ctx context.Context, externalID string) (found bool, enrichment domain.Enrichment, lat, lon *float64, err error) {
	var extraJSON []byte
	err = s.pool.QueryRow(ctx, `
SELECT camera_id, camera_name, snapshot_path, extra_cameras, latitude, longitude
FROM incidents WHERE external_id = $1`, externalID).Scan(
		&enrichment.CameraID, &enrichment.CameraName, &enrichment.SnapshotPath, &extraJSON, &lat, &lon)
	if err == pgx.ErrNoRows {
		return false, domain.Enrichment{}, nil, nil, nil
	}
	if err != nil {
		return false, domain.Enrichment{}, nil, nil, fmt.Errorf("eventstore: read incident enrichment state: %w", err)
	}
	if len(extraJSON) > 0 {
		if uerr := json.Unmarshal(extraJSON, &enrichment.ExtraCameras); uerr != nil {
			return true, enrichment, lat, lon, fmt.Errorf("eventstore: unmarshal extra cameras: %w", uerr)
		}
	}
	return true, enrichment, lat, lon, nil
}

// IncidentHistory returns every recorded version of an incident, oldest
// first, for the per-field version history endpoint.
func (s *Store) IncidentHistory(ctx context.Context, externalID string) ([]domain.IncidentVersion, error) {
	rows, err := s.pool.Query(ctx, `
SELECT external_id, version_time, title, description, location, icon_id, message_type,
       severity_code, severity_text, road_number, start_time, end_time, latitude, longitude,
       county_no, temporary_limit, traffic_restriction_type
FROM incident_versions WHERE external_id = $1 ORDER BY version_time ASC`, externalID)
	if err != nil {
		return nil, fmt.Errorf("eventstore: query incident history: %w", err)
	}
	defer rows.Close()

	var out []domain.IncidentVersion
	for rows.Next() {
		var v domain.IncidentVersion
		if err := rows.Scan(&v.ExternalID, &v.VersionTime, &v.Title, &v.Description, &v.Location,
			&v.IconID, &v.MessageType, &v.SeverityCode, &v.SeverityText, &v.RoadNumber,
			&v.StartTime, &v.EndTime, &v.Latitude, &v.Longitude, &v.CountyNo,
			&v.TemporaryLimit, &v.TrafficRestrictionType); err != nil {
			return nil, fmt.Errorf("eventstore: scan incident version: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

type weatherFieldKind int

const (
	weatherTemp weatherFieldKind = iota
	weatherWind
	weatherRoadTemp
	weatherGrip
	weatherIce
	weatherSnow
	weatherWaterEq
)

func weatherField(w *domain.WeatherSnapshot, kind weatherFieldKind) *float64 {
	if w == nil {
		return nil
	}
	switch kind {
	case weatherTemp:
		return w.Temp
	case weatherWind:
		return w.WindSpeed
	case weatherRoadTemp:
		return w.RoadTemp
	case weatherGrip:
		return w.Grip
	case weatherIce:
		return w.IceDepth
	case weatherSnow:
		return w.SnowDepth
	case weatherWaterEq:
		return w.WaterEquiv
	}
	return nil
}

func weatherDir(w *domain.WeatherSnapshot) string {
	if w == nil {
		return ""
	}
	return w.WindDir
}
