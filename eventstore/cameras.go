package eventstore

import (
	"context"
	"fmt"

	"github.com/trafikinfo/aggregator/domain"
)

// UpsertCamera inserts or updates a camera row, preserving is_favorite
// across syncs (the only field the UI, not the upstream sync, is allowed
// to mutate — grounded on store.Entry's Camera.IsFavorite handling).
func (s *Store) UpsertCamera(ctx context.Context, cam domain.Camera) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO cameras (
    id, name, description, location, camera_type, photo_url, fullsize_url, photo_time,
    latitude, longitude, county_no, road_number, is_favorite
) VALUES ($1,$2,'','',$3,$4,$5,$6,$7,$8,$9,$10,FALSE)
ON CONFLICT (id) DO UPDATE SET
    name=EXCLUDED.name, camera_type=EXCLUDED.camera_type, photo_url=EXCLUDED.photo_url,
    fullsize_url=EXCLUDED.fullsize_url, photo_time=EXCLUDED.photo_time,
    latitude=EXCLUDED.latitude, longitude=EXCLUDED.longitude,
    county_no=EXCLUDED.county_no, road_number=EXCLUDED.road_number`,
		cam.ID, cam.Name, cam.Type, cam.PhotoURL, cam.FullsizeURL, cam.PhotoTime,
		cam.Latitude, cam.Longitude, cam.CountyNo, cam.RoadNumber)
	if err != nil {
		return fmt.Errorf("eventstore: upsert camera: %w", err)
	}
	return nil
}

// SetCameraFavorite toggles the user-controlled favorite flag.
func (s *Store) SetCameraFavorite(ctx context.Context, cameraID string, favorite bool) error {
	_, err := s.pool.Exec(ctx, `UPDATE cameras SET is_favorite = $2 WHERE id = $1`, cameraID, favorite)
	if err != nil {
		return fmt.Errorf("eventstore: set camera favorite: %w", err)
	}
	return nil
}

// ListCameras returns every known camera.
func (s *Store) ListCameras(ctx context.Context) ([]domain.Camera, error) {
	rows, err := s.pool.Query(ctx, `
SELECT id, name, camera_type, photo_url, fullsize_url, photo_time,
       latitude, longitude, county_no, road_number, is_favorite
FROM cameras ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("eventstore: list cameras: %w", err)
	}
	defer rows.Close()

	var out []domain.Camera
	for rows.Next() {
		var cam domain.Camera
		var camType string
		if err := rows.Scan(&cam.ID, &cam.Name, &camType, &cam.PhotoURL, &cam.FullsizeURL, &cam.PhotoTime,
			&cam.Latitude, &cam.Longitude, &cam.CountyNo, &cam.RoadNumber, &cam.IsFavorite); err != nil {
			return nil, fmt.Errorf("eventstore: scan camera: %w", err)
		}
		cam.Type = domain.CameraType(camType)
		out = append(out, cam)
	}
	return out, rows.Err()
}
