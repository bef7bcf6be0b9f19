package eventstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/trafikinfo/aggregator/domain"
)

func scanIncident(row interface {
	Scan(dest ...any) error
}) (*domain.Incident, error) {
	var in domain.Incident
	var extraCameras []byte
	err := row.Scan(
		&in.ExternalID, &in.Title, &in.Description, &in.Location, &in.IconID, &in.MessageType,
		&in.SeverityCode, &in.SeverityText, &in.RoadNumber, &in.StartTime, &in.EndTime,
		&in.Latitude, &in.Longitude, &in.CountyNo, &in.TemporaryLimit, &in.TrafficRestrictionType,
		&in.CameraID, &in.CameraName, &in.SnapshotPath, &extraCameras,
		&in.CreatedAt, &in.UpdatedAt, &in.PublishedToBroker,
	)
	if err != nil {
		return nil, err
	}
	if len(extraCameras) > 0 {
		if err := json.Unmarshal(extraCameras, &in.ExtraCameras); err != nil {
			return nil, fmt.Errorf("eventstore: unmarshal extra_cameras: %w", err)
		}
	}
	return &in, nil
}

const incidentColumns = `
external_id, title, description, location, icon_id, message_type,
severity_code, severity_text, road_number, start_time, end_time,
latitude, longitude, county_no, temporary_limit, traffic_restriction_type,
camera_id, camera_name, snapshot_path, extra_cameras,
created_at, updated_at, published_to_broker`

// ListIncidents returns incidents, optionally filtered to a set of county
// numbers (empty means all), newest-updated first.
func (s *Store) ListIncidents(ctx context.Context, counties []int) ([]*domain.Incident, error) {
	query := fmt.Sprintf(`SELECT %s FROM incidents`, incidentColumns)
	args := []any{}
	if len(counties) > 0 {
		query += ` WHERE county_no = ANY($1)`
		args = append(args, counties)
	}
	query += ` ORDER BY updated_at DESC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("eventstore: list incidents: %w", err)
	}
	defer rows.Close()

	var out []*domain.Incident
	for rows.Next() {
		in, err := scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("eventstore: scan incident: %w", err)
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

const roadConditionColumns = `
id, condition_code, condition_text, measure, warning, cause, location_text,
road_number, start_time, end_time, latitude, longitude, county_no, "timestamp",
camera_id, camera_name, snapshot_path, extra_cameras, created_at, updated_at`

func scanRoadCondition(row interface {
	Scan(dest ...any) error
}) (*domain.RoadCondition, error) {
	var rc domain.RoadCondition
	var extraCameras []byte
	err := row.Scan(
		&rc.ID, &rc.ConditionCode, &rc.ConditionText, &rc.Measure, &rc.Warning, &rc.Cause, &rc.LocationText,
		&rc.RoadNumber, &rc.StartTime, &rc.EndTime, &rc.Latitude, &rc.Longitude, &rc.CountyNo, &rc.Timestamp,
		&rc.CameraID, &rc.CameraName, &rc.SnapshotPath, &extraCameras, &rc.CreatedAt, &rc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(extraCameras) > 0 {
		if err := json.Unmarshal(extraCameras, &rc.ExtraCameras); err != nil {
			return nil, fmt.Errorf("eventstore: unmarshal extra_cameras: %w", err)
		}
	}
	return &rc, nil
}

// ListRoadConditions returns road conditions, optionally filtered by county.
func (s *Store) ListRoadConditions(ctx context.Context, counties []int) ([]*domain.RoadCondition, error) {
	query := fmt.Sprintf(`SELECT %s FROM road_conditions`, roadConditionColumns)
	args := []any{}
	if len(counties) > 0 {
		query += ` WHERE county_no = ANY($1)`
		args = append(args, counties)
	}
	query += ` ORDER BY updated_at DESC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("eventstore: list road conditions: %w", err)
	}
	defer rows.Close()

	var out []*domain.RoadCondition
	for rows.Next() {
		rc, err := scanRoadCondition(rows)
		if err != nil {
			return nil, fmt.Errorf("eventstore: scan road condition: %w", err)
		}
		out = append(out, rc)
	}
	return out, rows.Err()
}

// MarkPublished sets an incident's published_to_broker flag. The broker
// publish path neither calls it nor reads the flag, so the flag does not
// prevent a repeated publish.
func (s *Store) MarkPublished(ctx context.Context, externalID string) error {
	_, err := s.pool.Exec(ctx, `UPDATE incidents SET published_to_broker = TRUE WHERE external_id = $1`, externalID)
	if err != nil {
		return fmt.Errorf("eventstore: mark published: %w", err)
	}
	return nil
}

// Stats is the supplemented /api/stats payload (present in
// original_source/backend/main.py, dropped from the distilled spec).
type Stats struct {
	IncidentCount      int
	RoadConditionCount int
	CameraCount        int
	PushSubscriberCount int
	ActiveClientCount  int
}

// Stats gathers row counts across the core tables.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.pool.QueryRow(ctx, `
SELECT
    (SELECT count(*) FROM incidents),
    (SELECT count(*) FROM road_conditions),
    (SELECT count(*) FROM cameras),
    (SELECT count(*) FROM push_subscriptions),
    (SELECT count(*) FROM client_interests WHERE last_active > now() - interval '5 minutes')
`).Scan(&st.IncidentCount, &st.RoadConditionCount, &st.CameraCount, &st.PushSubscriberCount, &st.ActiveClientCount)
	if err != nil {
		return Stats{}, fmt.Errorf("eventstore: stats: %w", err)
	}
	return st, nil
}

// RetentionSweep deletes incidents and road conditions whose end_time (or,
// if absent, updated_at) is older than olderThan. Left as an explicit,
// separately-invoked operation rather than wired into the ingest loop,
// per the Open Question resolution: retention is defined but not triggered
// automatically by this package.
func (s *Store) RetentionSweep(ctx context.Context, olderThan time.Duration) (incidentsDeleted, roadConditionsDeleted int64, err error) {
	interval := fmt.Sprintf("%d seconds", int(olderThan.Seconds()))

	tag, err := s.pool.Exec(ctx, `
DELETE FROM incidents
WHERE COALESCE(end_time, updated_at) < now() - $1::interval`, interval)
	if err != nil {
		return 0, 0, fmt.Errorf("eventstore: sweep incidents: %w", err)
	}
	incidentsDeleted = tag.RowsAffected()

	tag, err = s.pool.Exec(ctx, `
DELETE FROM road_conditions
WHERE COALESCE(end_time, updated_at) < now() - $1::interval`, interval)
	if err != nil {
		return incidentsDeleted, 0, fmt.Errorf("eventstore: sweep road conditions: %w", err)
	}
	roadConditionsDeleted = tag.RowsAffected()

	return incidentsDeleted, roadConditionsDeleted, nil
}
