package server

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trafikinfo/aggregator/domain"
)

func TestSortIncidents(t *testing.T) {
	in := []*domain.Incident{
		{ExternalID: "b"},
		{ExternalID: "a"},
		{ExternalID: "c"},
	}
	sorted := SortIncidents(in)
	assert.Equal(t, []string{"a", "b", "c"}, []string{sorted[0].ExternalID, sorted[1].ExternalID, sorted[2].ExternalID})
	// original slice untouched
	assert.Equal(t, "b", in[0].ExternalID)
}

func TestSortRoadConditions(t *testing.T) {
	rc := []*domain.RoadCondition{{ID: "2"}, {ID: "1"}}
	sorted := SortRoadConditions(rc)
	assert.Equal(t, "1", sorted[0].ID)
	assert.Equal(t, "2", sorted[1].ID)
}

func TestSortCameras(t *testing.T) {
	cams := []domain.Camera{{ID: "z"}, {ID: "a"}}
	sorted := SortCameras(cams)
	assert.Equal(t, "a", sorted[0].ID)
	assert.Equal(t, "z", sorted[1].ID)
}

func TestStableJSONHash_Deterministic(t *testing.T) {
	h1, err := StableJSONHash(map[string]int{"a": 1})
	assert.NoError(t, err)
	h2, err := StableJSONHash(map[string]int{"a": 1})
	assert.NoError(t, err)
	assert.Equal(t, h1, h2)
}
