package normalize

import (
	"time"

	"github.com/trafikinfo/aggregator/domain"
	"github.com/trafikinfo/aggregator/tvapi"
)

// CameraFromRaw maps one upstream Camera object onto the domain type.
func CameraFromRaw(raw tvapi.RawCamera) domain.Camera {
	var lat, lon float64
	if wkt := raw.Geometry.WGS84(); wkt != "" {
		if lonV, latV, ok := parseWGS84(wkt); ok {
			lat, lon = *latV, *lonV
		}
	}

	camType := domain.CameraTypeRoad
	if raw.Type == "flowCamera" {
		camType = domain.CameraTypeFlow
	}

	var photoTime time.Time
	if t := parseTime(raw.PhotoTime); t != nil {
		photoTime = *t
	}

	return domain.Camera{
		ID:          raw.ID,
		Name:        raw.Name,
		Type:        camType,
		PhotoURL:    raw.PhotoURL,
		FullsizeURL: raw.FullsizeURL,
		PhotoTime:   photoTime,
		Latitude:    lat,
		Longitude:   lon,
		RoadNumber:  raw.RoadNumber,
		CountyNo:    firstCounty(raw.CountyNo),
	}
}

// WeatherStationFromRaw maps one upstream WeatherMeasurepoint object onto
// the domain type.
func WeatherStationFromRaw(raw tvapi.RawWeatherMeasurepoint) domain.WeatherStation {
	var lat, lon float64
	if wkt := raw.Geometry.WGS84(); wkt != "" {
		if lonV, latV, ok := parseWGS84(wkt); ok {
			lat, lon = *latV, *lonV
		}
	}

	return domain.WeatherStation{
		ID:              raw.ID,
		Latitude:        lat,
		Longitude:       lon,
		CountyNo:        firstCounty(raw.CountyNo),
		AirTemperature:  raw.Observation.Air.Temperature,
		WindSpeed:       raw.Observation.Wind.Speed,
		WindDirection:   raw.Observation.Wind.Direction.Text,
		RoadTemperature: raw.Observation.Surface.Temperature,
		Grip:            raw.Observation.Aggregated30minutes.Road.Grip,
		LastUpdated:     time.Now(),
	}
}
