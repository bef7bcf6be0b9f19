// Package eventstore persists incidents and road conditions to Postgres,
// grounded on original_source/backend/database.py's SQLAlchemy models and
// neon/repository.go's raw-SQL query style. Per spec.md's redesign flag,
// schema evolution here is a declared, ordered migration list rather than
// database.py's inspector-driven incremental ALTER TABLE.
package eventstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// migration is one forward-only, idempotent schema step.
type migration struct {
	name string
	sql  string
}

// migrations runs in order; schema_migrations records which names have
// already applied so Migrate is safe to call on every startup.
var migrations = []migration{
	{
		name: "0001_incidents",
		sql: `
CREATE TABLE IF NOT EXISTS incidents (
    external_id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    location TEXT NOT NULL DEFAULT '',
    icon_id TEXT NOT NULL DEFAULT '',
    message_type TEXT NOT NULL DEFAULT '',
    severity_code INTEGER NOT NULL DEFAULT 0,
    severity_text TEXT NOT NULL DEFAULT '',
    road_number TEXT NOT NULL DEFAULT '',
    start_time TIMESTAMPTZ,
    end_time TIMESTAMPTZ,
    latitude DOUBLE PRECISION,
    longitude DOUBLE PRECISION,
    county_no INTEGER NOT NULL DEFAULT 0,
    temporary_limit TEXT NOT NULL DEFAULT '',
    traffic_restriction_type TEXT NOT NULL DEFAULT '',
    camera_id TEXT NOT NULL DEFAULT '',
    camera_name TEXT NOT NULL DEFAULT '',
    snapshot_path TEXT NOT NULL DEFAULT '',
    extra_cameras JSONB NOT NULL DEFAULT '[]',
    air_temperature DOUBLE PRECISION,
    wind_speed DOUBLE PRECISION,
    wind_direction TEXT NOT NULL DEFAULT '',
    road_temperature DOUBLE PRECISION,
    grip DOUBLE PRECISION,
    ice_depth DOUBLE PRECISION,
    snow_depth DOUBLE PRECISION,
    water_equivalent DOUBLE PRECISION,
    published_to_broker BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
	},
	{
		name: "0002_incident_versions",
		sql: `
CREATE TABLE IF NOT EXISTS incident_versions (
    id BIGSERIAL PRIMARY KEY,
    external_id TEXT NOT NULL REFERENCES incidents(external_id) ON DELETE CASCADE,
    version_time TIMESTAMPTZ NOT NULL DEFAULT now(),
    title TEXT, description TEXT, location TEXT, icon_id TEXT,
    message_type TEXT, severity_code INTEGER, severity_text TEXT,
    road_number TEXT, start_time TIMESTAMPTZ, end_time TIMESTAMPTZ,
    latitude DOUBLE PRECISION, longitude DOUBLE PRECISION, county_no INTEGER,
    temporary_limit TEXT, traffic_restriction_type TEXT,
    camera_id TEXT, camera_name TEXT, snapshot_path TEXT, extra_cameras JSONB,
    air_temperature DOUBLE PRECISION, wind_speed DOUBLE PRECISION, wind_direction TEXT,
    road_temperature DOUBLE PRECISION, grip DOUBLE PRECISION, ice_depth DOUBLE PRECISION,
    snow_depth DOUBLE PRECISION, water_equivalent DOUBLE PRECISION
);
CREATE INDEX IF NOT EXISTS incident_versions_external_id_idx ON incident_versions(external_id)`,
	},
	{
		name: "0003_road_conditions",
		sql: `
CREATE TABLE IF NOT EXISTS road_conditions (
    id TEXT PRIMARY KEY,
    dedup_key TEXT NOT NULL,
    condition_code INTEGER NOT NULL DEFAULT 0,
    condition_text TEXT NOT NULL DEFAULT '',
    measure TEXT NOT NULL DEFAULT '',
    warning TEXT NOT NULL DEFAULT '',
    cause TEXT NOT NULL DEFAULT '',
    location_text TEXT NOT NULL DEFAULT '',
    road_number TEXT NOT NULL DEFAULT '',
    start_time TIMESTAMPTZ,
    end_time TIMESTAMPTZ,
    latitude DOUBLE PRECISION,
    longitude DOUBLE PRECISION,
    county_no INTEGER NOT NULL DEFAULT 0,
    "timestamp" TIMESTAMPTZ,
    camera_id TEXT NOT NULL DEFAULT '',
    camera_name TEXT NOT NULL DEFAULT '',
    snapshot_path TEXT NOT NULL DEFAULT '',
    extra_cameras JSONB NOT NULL DEFAULT '[]',
    air_temperature DOUBLE PRECISION,
    wind_speed DOUBLE PRECISION,
    wind_direction TEXT NOT NULL DEFAULT '',
    road_temperature DOUBLE PRECISION,
    grip DOUBLE PRECISION,
    ice_depth DOUBLE PRECISION,
    snow_depth DOUBLE PRECISION,
    water_equivalent DOUBLE PRECISION,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE UNIQUE INDEX IF NOT EXISTS road_conditions_dedup_key_idx ON road_conditions(dedup_key)`,
	},
	{
		name: "0004_road_condition_versions",
		sql: `
CREATE TABLE IF NOT EXISTS road_condition_versions (
    id BIGSERIAL PRIMARY KEY,
    road_condition_id TEXT NOT NULL REFERENCES road_conditions(id) ON DELETE CASCADE,
    version_time TIMESTAMPTZ NOT NULL DEFAULT now(),
    condition_code INTEGER, condition_text TEXT, measure TEXT, warning TEXT,
    cause TEXT, location_text TEXT, road_number TEXT,
    start_time TIMESTAMPTZ, end_time TIMESTAMPTZ,
    latitude DOUBLE PRECISION, longitude DOUBLE PRECISION, county_no INTEGER,
    "timestamp" TIMESTAMPTZ,
    camera_id TEXT, camera_name TEXT, snapshot_path TEXT, extra_cameras JSONB,
    air_temperature DOUBLE PRECISION, wind_speed DOUBLE PRECISION, wind_direction TEXT,
    road_temperature DOUBLE PRECISION, grip DOUBLE PRECISION, ice_depth DOUBLE PRECISION,
    snow_depth DOUBLE PRECISION, water_equivalent DOUBLE PRECISION
);
CREATE INDEX IF NOT EXISTS road_condition_versions_rc_id_idx ON road_condition_versions(road_condition_id)`,
	},
	{
		name: "0005_cameras",
		sql: `
CREATE TABLE IF NOT EXISTS cameras (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT '',
    location TEXT NOT NULL DEFAULT '',
    camera_type TEXT NOT NULL DEFAULT '',
    photo_url TEXT NOT NULL DEFAULT '',
    fullsize_url TEXT NOT NULL DEFAULT '',
    photo_time TIMESTAMPTZ,
    latitude DOUBLE PRECISION,
    longitude DOUBLE PRECISION,
    county_no INTEGER NOT NULL DEFAULT 0,
    road_number TEXT NOT NULL DEFAULT '',
    is_favorite BOOLEAN NOT NULL DEFAULT FALSE
)`,
	},
	{
		name: "0006_weather_measurepoints",
		sql: `
CREATE TABLE IF NOT EXISTS weather_measurepoints (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL DEFAULT '',
    latitude DOUBLE PRECISION,
    longitude DOUBLE PRECISION,
    county_no INTEGER NOT NULL DEFAULT 0,
    air_temperature DOUBLE PRECISION,
    wind_speed DOUBLE PRECISION,
    wind_direction TEXT NOT NULL DEFAULT '',
    road_temperature DOUBLE PRECISION,
    grip DOUBLE PRECISION,
    ice_depth DOUBLE PRECISION,
    snow_depth DOUBLE PRECISION,
    water_equivalent DOUBLE PRECISION,
    last_updated TIMESTAMPTZ
)`,
	},
	{
		name: "0007_settings",
		sql: `
CREATE TABLE IF NOT EXISTS settings (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL DEFAULT ''
)`,
	},
	{
		name: "0008_push_subscriptions",
		sql: `
CREATE TABLE IF NOT EXISTS push_subscriptions (
    endpoint TEXT PRIMARY KEY,
    p256dh TEXT NOT NULL,
    auth TEXT NOT NULL,
    counties TEXT NOT NULL DEFAULT '',
    min_severity INTEGER NOT NULL DEFAULT 3,
    topic_realtid BOOLEAN NOT NULL DEFAULT TRUE,
    topic_road_condition BOOLEAN NOT NULL DEFAULT TRUE,
    include_severity BOOLEAN NOT NULL DEFAULT TRUE,
    include_image BOOLEAN NOT NULL DEFAULT TRUE,
    include_weather BOOLEAN NOT NULL DEFAULT TRUE,
    include_location BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
	},
	{
		name: "0009_client_interests",
		sql: `
CREATE TABLE IF NOT EXISTS client_interests (
    client_id TEXT PRIMARY KEY,
    counties TEXT NOT NULL DEFAULT '',
    last_active TIMESTAMPTZ NOT NULL DEFAULT now(),
    user_agent TEXT NOT NULL DEFAULT '',
    is_admin BOOLEAN NOT NULL DEFAULT FALSE
)`,
	},
}

// Migrate applies every migration not yet recorded in schema_migrations, in
// order, inside its own transaction. Safe to call on every process start.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS schema_migrations (
    name TEXT PRIMARY KEY,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`)
	if err != nil {
		return fmt.Errorf("eventstore: create schema_migrations: %w", err)
	}

	for _, m := range migrations {
		var applied bool
		err := pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE name = $1)`, m.name).Scan(&applied)
		if err != nil {
			return fmt.Errorf("eventstore: check migration %s: %w", m.name, err)
		}
		if applied {
			continue
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("eventstore: begin migration %s: %w", m.name, err)
		}
		if _, err := tx.Exec(ctx, m.sql); err != nil {
			tx.Rollback(ctx)
			return fmt.Errorf("eventstore: apply migration %s: %w", m.name, err)
		}
		if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations(name) VALUES ($1)`, m.name); err != nil {
			tx.Rollback(ctx)
			return fmt.Errorf("eventstore: record migration %s: %w", m.name, err)
		}
		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("eventstore: commit migration %s: %w", m.name, err)
		}
	}
	return nil
}
