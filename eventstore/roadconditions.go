package eventstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/trafikinfo/aggregator/domain"
)

// dedupKey implements spec.md's road-condition redesign flag: the upstream
// ID is not stable across polls for the same physical condition, so rows
// are deduplicated on (road_number, condition_code, county_no, start_time)
// instead, with the upstream ID kept only as the primary key of whichever
// row currently represents that key.
func dedupKey(rc *domain.RoadCondition) string {
	start := ""
	if rc.StartTime != nil {
		start = rc.StartTime.UTC().Format("2006-01-02T15:04:05Z")
	}
	return fmt.Sprintf("%s|%d|%d|%s", rc.RoadNumber, rc.ConditionCode, rc.CountyNo, start)
}

type roadConditionRow struct {
	ConditionCode                                     int
	ConditionText, Measure, Warning, Cause, Location  string
}

func rcSignificant(a, b roadConditionRow) bool {
	return a.ConditionCode != b.ConditionCode ||
		a.ConditionText != b.ConditionText ||
		a.Measure != b.Measure ||
		a.Warning != b.Warning ||
		a.Cause != b.Cause ||
		a.Location != b.Location
}

// UpsertRoadCondition upserts keyed on dedupKey rather than rc.ID: if a row
// already exists for this key (even under a different upstream ID, which
// the redesign flag says happens often), it is updated in place and its
// id column is repointed to the newest upstream ID.
func (s *Store) UpsertRoadCondition(ctx context.Context, rc *domain.RoadCondition) (UpsertResult, error) {
	key := dedupKey(rc)
	extraCameras, err := json.Marshal(rc.ExtraCameras)
	if err != nil {
		return UpsertResult{}, fmt.Errorf("eventstore: marshal extra cameras: %w", err)
	}

	var existingID string
	var existing roadConditionRow
	err = s.pool.QueryRow(ctx, `
SELECT id, condition_code, condition_text, measure, warning, cause, location_text
FROM road_conditions WHERE dedup_key = $1`, key).Scan(
		&existingID, &existing.ConditionCode, &existing.ConditionText,
		&existing.Measure, &existing.Warning, &existing.Cause, &existing.Location)

	incoming := roadConditionRow{
		ConditionCode: rc.ConditionCode, ConditionText: rc.ConditionText,
		Measure: rc.Measure, Warning: rc.Warning, Cause: rc.Cause, Location: rc.LocationText,
	}

	if err == pgx.ErrNoRows {
		_, insertErr := s.pool.Exec(ctx, `
INSERT INTO road_conditions (
    id, dedup_key, condition_code, condition_text, measure, warning, cause, location_text,
    road_number, start_time, end_time, latitude, longitude, county_no, "timestamp",
    camera_id, camera_name, snapshot_path, extra_cameras,
    air_temperature, wind_speed, wind_direction,
    road_temperature, grip, ice_depth, snow_depth, water_equivalent,
    created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,now(),now())`,
			rc.ID, key, rc.ConditionCode, rc.ConditionText, rc.Measure, rc.Warning, rc.Cause, rc.LocationText,
			rc.RoadNumber, rc.StartTime, rc.EndTime, rc.Latitude, rc.Longitude, rc.CountyNo, rc.Timestamp,
			rc.CameraID, rc.CameraName, rc.SnapshotPath, extraCameras,
			weatherField(rc.Weather, weatherTemp), weatherField(rc.Weather, weatherWind), weatherDir(rc.Weather),
			weatherField(rc.Weather, weatherRoadTemp), weatherField(rc.Weather, weatherGrip),
			weatherField(rc.Weather, weatherIce), weatherField(rc.Weather, weatherSnow), weatherField(rc.Weather, weatherWaterEq),
		)
		if insertErr != nil {
			return UpsertResult{}, fmt.Errorf("eventstore: insert road condition: %w", insertErr)
		}
		return UpsertResult{Created: true, SignificantChg: true}, nil
	}
	if err != nil {
		return UpsertResult{}, fmt.Errorf("eventstore: read road condition: %w", err)
	}

	changed := rcSignificant(existing, incoming)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return UpsertResult{}, fmt.Errorf("eventstore: begin rc update tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if changed {
		_, err = tx.Exec(ctx, `
INSERT INTO road_condition_versions (
    road_condition_id, version_time, condition_code, condition_text, measure, warning, cause,
    location_text, road_number, start_time, end_time, latitude, longitude, county_no, "timestamp",
    camera_id, camera_name, snapshot_path, extra_cameras,
    air_temperature, wind_speed, wind_direction, road_temperature, grip, ice_depth, snow_depth, water_equivalent
)
SELECT id, now(), condition_code, condition_text, measure, warning, cause,
       location_text, road_number, start_time, end_time, latitude, longitude, county_no, "timestamp",
       camera_id, camera_name, snapshot_path, extra_cameras,
       air_temperature, wind_speed, wind_direction, road_temperature, grip, ice_depth, snow_depth, water_equivalent
FROM road_conditions WHERE dedup_key = $1`, key)
		if err != nil {
			return UpsertResult{}, fmt.Errorf("eventstore: snapshot rc version: %w", err)
		}
	}

	updatedAtClause := "updated_at"
	if changed {
		updatedAtClause = "now()"
	}

	// The upstream ID for this dedup key may have rotated; repoint it, and
	// cascade into already-written version rows so history stays linked.
	if existingID != rc.ID {
		if _, err := tx.Exec(ctx, `UPDATE road_condition_versions SET road_condition_id = $1 WHERE road_condition_id = $2`, rc.ID, existingID); err != nil {
			return UpsertResult{}, fmt.Errorf("eventstore: repoint rc version history: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM road_conditions WHERE dedup_key = $1`, key); err != nil {
			return UpsertResult{}, fmt.Errorf("eventstore: clear stale rc row: %w", err)
		}
		_, err = tx.Exec(ctx, fmt.Sprintf(`
INSERT INTO road_conditions (
    id, dedup_key, condition_code, condition_text, measure, warning, cause, location_text,
    road_number, start_time, end_time, latitude, longitude, county_no, "timestamp",
    camera_id, camera_name, snapshot_path, extra_cameras,
    air_temperature, wind_speed, wind_direction,
    road_temperature, grip, ice_depth, snow_depth, water_equivalent,
    created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,
    (SELECT created_at FROM road_condition_versions WHERE road_condition_id = $1 ORDER BY version_time ASC LIMIT 1), %s)`, updatedAtClause),
			rc.ID, key, rc.ConditionCode, rc.ConditionText, rc.Measure, rc.Warning, rc.Cause, rc.LocationText,
			rc.RoadNumber, rc.StartTime, rc.EndTime, rc.Latitude, rc.Longitude, rc.CountyNo, rc.Timestamp,
			rc.CameraID, rc.CameraName, rc.SnapshotPath, extraCameras,
			weatherField(rc.Weather, weatherTemp), weatherField(rc.Weather, weatherWind), weatherDir(rc.Weather),
			weatherField(rc.Weather, weatherRoadTemp), weatherField(rc.Weather, weatherGrip),
			weatherField(rc.Weather, weatherIce), weatherField(rc.Weather, weatherSnow), weatherField(rc.Weather, weatherWaterEq),
		)
		if err != nil {
			return UpsertResult{}, fmt.Errorf("eventstore: reinsert rc under new id: %w", err)
		}
	} else {
		_, err = tx.Exec(ctx, fmt.Sprintf(`
UPDATE road_conditions SET
    condition_code=$2, condition_text=$3, measure=$4, warning=$5, cause=$6, location_text=$7,
    road_number=$8, start_time=$9, end_time=$10, latitude=$11, longitude=$12, county_no=$13, "timestamp"=$14,
    camera_id=$15, camera_name=$16, snapshot_path=$17, extra_cameras=$18,
    air_temperature=$19, wind_speed=$20, wind_direction=$21,
    road_temperature=$22, grip=$23, ice_depth=$24, snow_depth=$25, water_equivalent=$26,
    updated_at=%s
WHERE dedup_key=$1`, updatedAtClause),
			key, rc.ConditionCode, rc.ConditionText, rc.Measure, rc.Warning, rc.Cause, rc.LocationText,
			rc.RoadNumber, rc.StartTime, rc.EndTime, rc.Latitude, rc.Longitude, rc.CountyNo, rc.Timestamp,
			rc.CameraID, rc.CameraName, rc.SnapshotPath, extraCameras,
			weatherField(rc.Weather, weatherTemp), weatherField(rc.Weather, weatherWind), weatherDir(rc.Weather),
			weatherField(rc.Weather, weatherRoadTemp), weatherField(rc.Weather, weatherGrip),
			weatherField(rc.Weather, weatherIce), weatherField(rc.Weather, weatherSnow), weatherField(rc.Weather, weatherWaterEq),
		)
		if err != nil {
			return UpsertResult{}, fmt.Errorf("eventstore: update road condition: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return UpsertResult{}, fmt.Errorf("eventstore: commit rc update: %w", err)
	}

	return UpsertResult{Created: false, SignificantChg: changed}, nil
}

// RoadConditionEnrichmentState returns whether a road condition row already
// exists for rc's dedup key, its previously recorded enrichment fields, and
// the coordinates it was last enriched at, mirroring
// IncidentEnrichmentState for enrich.Enricher's needs_camera_sync decision.
func (s *Store) RoadConditionEnrichmentState(ctx context.Context, rc *domain.RoadCondition) (found bool, enrichment domain.Enrichment, lat, lon *float64, err error) {
	key := dedupKey(rc)
	var extraJSON []byte
	err = s.pool.QueryRow(ctx, `
SELECT camera_id, camera_name, snapshot_path, extra_cameras, latitude, longitude
FROM road_conditions WHERE dedup_key = $1`, key).Scan(
		&enrichment.CameraID, &enrichment.CameraName, &enrichment.SnapshotPath, &extraJSON, &lat, &lon)
	if err == pgx.ErrNoRows {
		return false, domain.Enrichment{}, nil, nil, nil
	}
	if err != nil {
		return false, domain.Enrichment{}, nil, nil, fmt.Errorf("eventstore: read road condition enrichment state: %w", err)
	}
	if len(extraJSON) > 0 {
		if uerr := json.Unmarshal(extraJSON, &enrichment.ExtraCameras); uerr != nil {
			return true, enrichment, lat, lon, fmt.Errorf("eventstore: unmarshal extra cameras: %w", uerr)
		}
	}
	return true, enrichment, lat, lon, nil
}

// RoadConditionHistory returns every recorded version, oldest first.
func (s *Store) RoadConditionHistory(ctx context.Context, roadConditionID string) ([]domain.RoadConditionVersion, error) {
	rows, err := s.pool.Query(ctx, `
SELECT road_condition_id, version_time, condition_code, condition_text, measure, warning, cause,
       location_text, road_number, start_time, end_time, latitude, longitude, county_no, "timestamp"
FROM road_condition_versions WHERE road_condition_id = $1 ORDER BY version_time ASC`, roadConditionID)
	if err != nil {
		return nil, fmt.Errorf("eventstore: query rc history: %w", err)
	}
	defer rows.Close()

	var out []domain.RoadConditionVersion
	for rows.Next() {
		var v domain.RoadConditionVersion
		if err := rows.Scan(&v.RoadConditionID, &v.VersionTime, &v.ConditionCode, &v.ConditionText,
			&v.Measure, &v.Warning, &v.Cause, &v.LocationText, &v.RoadNumber,
			&v.StartTime, &v.EndTime, &v.Latitude, &v.Longitude, &v.CountyNo, &v.Timestamp); err != nil {
			return nil, fmt.Errorf("eventstore: scan rc version: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
