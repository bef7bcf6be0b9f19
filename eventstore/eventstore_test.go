package eventstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/trafikinfo/aggregator/domain"
)

func TestDedupKey_StableAcrossRotatingID(t *testing.T) {
	start := time.Date(2026, 7, 31, 8, 0, 0, 0, time.UTC)
	a := &domain.RoadCondition{ID: "RC-111", RoadNumber: "E4", ConditionCode: 2, CountyNo: 1, StartTime: &start}
	b := &domain.RoadCondition{ID: "RC-999", RoadNumber: "E4", ConditionCode: 2, CountyNo: 1, StartTime: &start}

	assert.Equal(t, dedupKey(a), dedupKey(b))
}

func TestDedupKey_DiffersOnConditionCode(t *testing.T) {
	start := time.Date(2026, 7, 31, 8, 0, 0, 0, time.UTC)
	a := &domain.RoadCondition{ID: "RC-1", RoadNumber: "E4", ConditionCode: 2, CountyNo: 1, StartTime: &start}
	b := &domain.RoadCondition{ID: "RC-1", RoadNumber: "E4", ConditionCode: 3, CountyNo: 1, StartTime: &start}

	assert.NotEqual(t, dedupKey(a), dedupKey(b))
}

func TestSignificant_TitleChangeIsSignificant(t *testing.T) {
	a := incidentRow{Title: "Trafikolycka"}
	b := incidentRow{Title: "Köbildning"}
	assert.True(t, significant(a, b))
}

func TestSignificant_CoordinatesAreNotCompared(t *testing.T) {
	// incidentRow intentionally carries no lat/lon fields: enrichment and
	// position updates must never trigger a version snapshot.
	a := incidentRow{Title: "Trafikolycka", Description: "x"}
	b := incidentRow{Title: "Trafikolycka", Description: "x"}
	assert.False(t, significant(a, b))
}

func TestSignificant_TimeWindowChangeIsSignificant(t *testing.T) {
	t1 := time.Date(2026, 7, 31, 8, 0, 0, 0, time.UTC)
	t2 := time.Date(2026, 7, 31, 9, 0, 0, 0, time.UTC)
	a := incidentRow{StartTime: &t1}
	b := incidentRow{StartTime: &t2}
	assert.True(t, significant(a, b))
}

func TestRcSignificant(t *testing.T) {
	a := roadConditionRow{ConditionText: "Is"}
	b := roadConditionRow{ConditionText: "Snö"}
	assert.True(t, rcSignificant(a, b))
	assert.False(t, rcSignificant(a, a))
}
