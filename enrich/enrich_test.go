package enrich

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trafikinfo/aggregator/domain"
	"github.com/trafikinfo/aggregator/geo"
)

func TestValidateRadius(t *testing.T) {
	assert.NoError(t, ValidateRadius(8.0))
	assert.Error(t, ValidateRadius(0))
	assert.Error(t, ValidateRadius(-1))
	assert.Error(t, ValidateRadius(500))
}

func TestEnrich_AttachesNearestCameraAndWeather(t *testing.T) {
	cameras := geo.NewIndex[domain.Camera]()
	cameras.Replace([]domain.Camera{
		{ID: "cam-near", Name: "E4 Norr", Latitude: 59.0, Longitude: 18.0, FullsizeURL: "", PhotoURL: ""},
		{ID: "cam-far", Name: "E4 Söder", Latitude: 60.5, Longitude: 19.5},
	})

	stations := geo.NewIndex[domain.WeatherStation]()
	temp := 3.5
	stations.Replace([]domain.WeatherStation{
		{ID: "ws-near", Latitude: 59.001, Longitude: 18.001, AirTemperature: &temp},
	})

	e := New(cameras, stations, nil, nil, 8.0, nil)

	in := &domain.Incident{
		ExternalID: "SIT1",
		RoadNumber: "E4",
		Latitude:   ptr(59.0),
		Longitude:  ptr(18.0),
	}
	e.Enrich(context.Background(), in)

	assert.Equal(t, "cam-near", in.CameraID)
	require.NotNil(t, in.Weather)
	assert.InDelta(t, 3.5, *in.Weather.Temp, 0.0001)
}

func TestEnrich_NoCoordinatesSkipsEnrichment(t *testing.T) {
	e := New(geo.NewIndex[domain.Camera](), geo.NewIndex[domain.WeatherStation](), nil, nil, 8.0, nil)
	in := &domain.Incident{ExternalID: "SIT2"}
	e.Enrich(context.Background(), in)
	assert.Empty(t, in.CameraID)
}

func ptr(f float64) *float64 { return &f }
