package broadcast

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trafikinfo/aggregator/domain"
)

func TestNewestWinsSend_DropsStaleEventForNewest(t *testing.T) {
	ch := make(chan Event, 1)
	first := Event{Kind: domain.KindIncident, Entity: &domain.Incident{ExternalID: "A"}}
	second := Event{Kind: domain.KindIncident, Entity: &domain.Incident{ExternalID: "B"}}

	newestWinsSend(ch, first)
	newestWinsSend(ch, second)

	require.Len(t, ch, 1)
	got := <-ch
	assert.Equal(t, "B", got.Entity.Key())
}

// Per spec.md §4.8, an SSE viewer is never filtered by county or severity —
// only by the incident/road-condition kind toggle — so a subscriber with a
// minimum severity of 2 and only county 1 selected still receives both low-
// and high-severity entities from county 9.
func TestInterested_IgnoresSeverityAndCounty(t *testing.T) {
	info := clientInfo{wantIncidents: true, minSeverity: 2, counties: map[int]struct{}{1: {}}}
	low := &domain.Incident{SeverityCode: 1, CountyNo: 9}
	high := &domain.Incident{SeverityCode: 4, CountyNo: 9}

	assert.True(t, interested(info, low))
	assert.True(t, interested(info, high))
}

func TestInterested_KindToggle(t *testing.T) {
	incidentOnly := clientInfo{wantIncidents: true}
	assert.True(t, interested(incidentOnly, &domain.Incident{}))
	assert.False(t, interested(incidentOnly, &domain.RoadCondition{}))
}

type recordingSink struct {
	got []domain.Entity
}

func (r *recordingSink) Publish(ctx context.Context, entity domain.Entity) {
	r.got = append(r.got, entity)
}

func TestBroadcaster_PublishReachesSubscribedViewer(t *testing.T) {
	sink := &recordingSink{}
	b := New(nil, sink)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Run(ctx)

	ch := b.Subscribe(SubscribeOptions{WantIncidents: true})
	defer b.Unsubscribe(ch)

	time.Sleep(10 * time.Millisecond) // let Run's register case land
	b.Publish(&domain.Incident{ExternalID: "SIT1"})

	select {
	case ev := <-ch:
		assert.Equal(t, "SIT1", ev.Entity.Key())
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for published event")
	}
}
