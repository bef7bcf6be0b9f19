package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trafikinfo/aggregator/tvapi"
)

func TestIncidentFromSituation_MergesDeviations(t *testing.T) {
	sit := tvapi.RawSituation{
		ID: "SIT123",
		Deviation: []tvapi.RawDeviation{
			{
				IconID:                 "accident",
				Description:            "Olycka i höger körfält",
				TrafficRestrictionType: "closedRoad",
				MessageCode:            "trafficMessage",
				StartTime:              "2026-07-31T08:00:00+02:00",
				EndTime:                "2026-07-31T10:00:00+02:00",
				SeverityCode:           3,
				RoadNumber:             "E4",
				CountyNo:               []int{1},
				Geometry: tvapi.RawGeometry{
					Point: &struct {
						WGS84 string `json:"WGS84"`
					}{WGS84: "POINT (18.0 59.0)"},
				},
			},
			{
				Description:            "Olycka i höger körfält",
				TrafficRestrictionType: "narrowRoad",
				MessageCode:            "roadWork",
				StartTime:              "2026-07-31T07:30:00+02:00",
				EndTime:                "2026-07-31T11:00:00+02:00",
			},
		},
	}

	got := IncidentFromSituation(sit)
	require.NotNil(t, got)

	assert.Equal(t, "SIT123", got.ExternalID)
	assert.Equal(t, "Trafikolycka", got.Title) // no Header/Message, falls back to icon map
	assert.Equal(t, "Olycka i höger körfält", got.Description) // deduped, appears once
	assert.Equal(t, "closedRoad, narrowRoad", got.TrafficRestrictionType)
	assert.Equal(t, "trafficMessage, roadWork", got.MessageType)
	assert.Equal(t, "E4", got.RoadNumber)
	assert.Equal(t, 1, got.CountyNo)
	require.NotNil(t, got.Latitude)
	require.NotNil(t, got.Longitude)
	assert.InDelta(t, 59.0, *got.Latitude, 0.0001)
	assert.InDelta(t, 18.0, *got.Longitude, 0.0001)

	require.NotNil(t, got.StartTime)
	require.NotNil(t, got.EndTime)
	assert.Equal(t, 7, got.StartTime.Hour()) // widened to the earlier 07:30
	assert.Equal(t, 11, got.EndTime.Hour())  // widened to the later 11:00
}

func TestIncidentFromSituation_TitleFallbackChain(t *testing.T) {
	withHeader := IncidentFromSituation(tvapi.RawSituation{
		ID:        "A",
		Deviation: []tvapi.RawDeviation{{Header: "Explicit header"}},
	})
	assert.Equal(t, "Explicit header", withHeader.Title)

	withMessage := IncidentFromSituation(tvapi.RawSituation{
		ID:        "B",
		Deviation: []tvapi.RawDeviation{{Message: "Explicit message"}},
	})
	assert.Equal(t, "Explicit message", withMessage.Title)

	withMessageTypesOnly := IncidentFromSituation(tvapi.RawSituation{
		ID: "C",
		Deviation: []tvapi.RawDeviation{
			{MessageCode: "roadWork"},
			{MessageCode: "congestion"},
		},
	})
	assert.Equal(t, "roadWork / congestion", withMessageTypesOnly.Title)

	withNothing := IncidentFromSituation(tvapi.RawSituation{
		ID:        "D",
		Deviation: []tvapi.RawDeviation{{}},
	})
	assert.Equal(t, defaultIncidentTitle, withNothing.Title)
}

func TestIncidentFromSituation_NoDeviationsReturnsNil(t *testing.T) {
	got := IncidentFromSituation(tvapi.RawSituation{ID: "EMPTY"})
	assert.Nil(t, got)
}

func TestRoadConditionFromRaw(t *testing.T) {
	raw := tvapi.RawRoadCondition{
		ID:            "RC1",
		ConditionCode: 2,
		ConditionText: "Is",
		RoadNumber:    "RV40",
		CountyNo:      14,
		Geometry: tvapi.RawGeometry{
			Line: &struct {
				WGS84 string `json:"WGS84"`
			}{WGS84: "LINESTRING (12.5 57.7, 12.6 57.8)"},
		},
	}

	got := RoadConditionFromRaw(raw)
	require.NotNil(t, got)
	assert.Equal(t, "RC1", got.ID)
	assert.Equal(t, 14, got.CountyNo)
	assert.Equal(t, "Is", got.ConditionText)
	require.NotNil(t, got.Latitude)
	assert.InDelta(t, 57.7, *got.Latitude, 0.0001)
}

func TestRoadConditionFromRaw_MissingConditionTextFallsBackToCodeTable(t *testing.T) {
	got := RoadConditionFromRaw(tvapi.RawRoadCondition{ID: "RC2", ConditionCode: 3})
	require.NotNil(t, got)
	assert.Equal(t, "Snömodd/is", got.ConditionText)
}

func TestRoadConditionFromRaw_UnknownConditionCodeFallsBackToGenericLabel(t *testing.T) {
	got := RoadConditionFromRaw(tvapi.RawRoadCondition{ID: "RC3", ConditionCode: 99})
	require.NotNil(t, got)
	assert.Equal(t, "Väglag", got.ConditionText)
}
