package eventstore

import (
	"context"
	"fmt"

	"github.com/trafikinfo/aggregator/domain"
)

// UpsertWeatherStation inserts or updates one weather measurepoint.
func (s *Store) UpsertWeatherStation(ctx context.Context, w domain.WeatherStation) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO weather_measurepoints (
    id, name, latitude, longitude, county_no,
    air_temperature, wind_speed, wind_direction,
    road_temperature, grip, ice_depth, snow_depth, water_equivalent, last_updated
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
ON CONFLICT (id) DO UPDATE SET
    latitude=EXCLUDED.latitude, longitude=EXCLUDED.longitude, county_no=EXCLUDED.county_no,
    air_temperature=EXCLUDED.air_temperature, wind_speed=EXCLUDED.wind_speed, wind_direction=EXCLUDED.wind_direction,
    road_temperature=EXCLUDED.road_temperature, grip=EXCLUDED.grip, ice_depth=EXCLUDED.ice_depth,
    snow_depth=EXCLUDED.snow_depth, water_equivalent=EXCLUDED.water_equivalent, last_updated=EXCLUDED.last_updated`,
		w.ID, w.ID, w.Latitude, w.Longitude, w.CountyNo,
		w.AirTemperature, w.WindSpeed, w.WindDirection,
		w.RoadTemperature, w.Grip, w.IceDepth, w.SnowDepth, w.WaterEquivalent, w.LastUpdated)
	if err != nil {
		return fmt.Errorf("eventstore: upsert weather station: %w", err)
	}
	return nil
}

// ListWeatherStations returns every known weather measurepoint.
func (s *Store) ListWeatherStations(ctx context.Context) ([]domain.WeatherStation, error) {
	rows, err := s.pool.Query(ctx, `
SELECT id, latitude, longitude, county_no, air_temperature, wind_speed, wind_direction,
       road_temperature, grip, ice_depth, snow_depth, water_equivalent, last_updated
FROM weather_measurepoints ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("eventstore: list weather stations: %w", err)
	}
	defer rows.Close()

	var out []domain.WeatherStation
	for rows.Next() {
		var w domain.WeatherStation
		if err := rows.Scan(&w.ID, &w.Latitude, &w.Longitude, &w.CountyNo, &w.AirTemperature, &w.WindSpeed,
			&w.WindDirection, &w.RoadTemperature, &w.Grip, &w.IceDepth, &w.SnowDepth, &w.WaterEquivalent, &w.LastUpdated); err != nil {
			return nil, fmt.Errorf("eventstore: scan weather station: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}
