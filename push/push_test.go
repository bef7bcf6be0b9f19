package push

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trafikinfo/aggregator/domain"
)

func TestMatches_CountyFilter(t *testing.T) {
	sub := domain.PushSubscription{
		Counties:    map[int]struct{}{1: {}},
		TopicRealtid: true,
		MinSeverity: 1,
	}
	inCounty := &domain.Incident{CountyNo: 1, SeverityCode: 2}
	outCounty := &domain.Incident{CountyNo: 2, SeverityCode: 2}

	assert.True(t, matches(sub, inCounty))
	assert.False(t, matches(sub, outCounty))
}

func TestMatches_TopicDisabled(t *testing.T) {
	sub := domain.PushSubscription{TopicRealtid: false, TopicRoadCondition: true}
	assert.False(t, matches(sub, &domain.Incident{}))
	assert.True(t, matches(sub, &domain.RoadCondition{}))
}

func TestMatches_SeverityFilter(t *testing.T) {
	sub := domain.PushSubscription{TopicRealtid: true, MinSeverity: 2}
	assert.False(t, matches(sub, &domain.Incident{SeverityCode: 1}))
	assert.True(t, matches(sub, &domain.Incident{SeverityCode: 5}))
}

func TestBuildNotification_RespectsIncludeFlags(t *testing.T) {
	sub := domain.PushSubscription{IncludeLocation: false, IncludeSeverity: true}
	in := &domain.Incident{Title: "Olycka", Location: "E4 vid Järva", SeverityCode: 3}

	n := buildNotification(sub, in)
	assert.Equal(t, "Olycka", n.Title)
	assert.Empty(t, n.Location)
	assert.Equal(t, 3, n.Severity)
}
