package config

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trafikinfo/aggregator/domain"
)

func TestParseCounties(t *testing.T) {
	assert.Equal(t, []int{3, 14, 20}, parseCounties("3,14,20"))
	assert.Nil(t, parseCounties(""))
	assert.Equal(t, []int{3}, parseCounties(" 3 ,x"))
}

type fakeSettingsStore map[string]string

func (f fakeSettingsStore) AllSettings(ctx context.Context) (map[string]string, error) {
	return f, nil
}

func TestResolveSettings_OverlaysPersistedRows(t *testing.T) {
	base := domain.Settings{CameraRadiusKM: domain.DefaultCameraRadiusKM, MQTTTopic: "trafikinfo/traffic"}
	store := fakeSettingsStore{
		"camera_radius_km": "5.5",
		"mqtt_topic":       "custom/topic",
	}

	out := ResolveSettings(context.Background(), store, base)
	assert.Equal(t, 5.5, out.CameraRadiusKM)
	assert.Equal(t, "custom/topic", out.MQTTTopic)
}

func TestResolveSettings_EmptyRowsKeepsBase(t *testing.T) {
	base := domain.Settings{CameraRadiusKM: 7.0}
	out := ResolveSettings(context.Background(), fakeSettingsStore{}, base)
	assert.Equal(t, 7.0, out.CameraRadiusKM)
}
