// Package broadcast fans out every significant incident/road-condition
// change to live SSE viewers and to the broker/push sinks, grounded on
// the skyhook SSEBroadcaster's register/unregister-channel run loop.
package broadcast

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/trafikinfo/aggregator/domain"
)

// queueDepth is deliberately small: per spec.md's back-pressure redesign,
// a slow viewer should see only the newest state, never a growing backlog.
const queueDepth = 1

// Event is what's delivered to an SSE viewer.
type Event struct {
	Kind   domain.EntityKind
	Entity domain.Entity
}

// Sink receives every published entity regardless of viewer interest
// (broker.Publisher and push.Dispatcher both implement this).
type Sink interface {
	Publish(ctx context.Context, entity domain.Entity)
}

// clientInfo is a viewer's registered options; interested consults only the
// two kind toggles.
type clientInfo struct {
	counties map[int]struct{} // empty means "all counties"
	wantIncidents bool
	wantRoadConditions bool
	minSeverity int
}

type registration struct {
	ch   chan Event
	info clientInfo
}

// Broadcaster is the single fan-out point every upserted entity passes
// through: worker.Supervisor calls Publish, HTTP handlers call Subscribe.
type Broadcaster struct {
	mu      sync.RWMutex
	clients map[chan Event]clientInfo

	register   chan registration
	unregister chan chan Event
	publish    chan domain.Entity
	stopCh     chan struct{}

	sinks  []Sink
	logger *log.Logger
}

// New creates a Broadcaster with the given downstream sinks (MQTT broker,
// Web Push dispatcher). Call Run to start its loop.
func New(logger *log.Logger, sinks ...Sink) *Broadcaster {
	return &Broadcaster{
		clients:    make(map[chan Event]clientInfo),
		register:   make(chan registration),
		unregister: make(chan chan Event),
		publish:    make(chan domain.Entity, 64),
		stopCh:     make(chan struct{}),
		sinks:      sinks,
		logger:     logger,
	}
}

// Run processes registrations and publishes until ctx is cancelled.
func (b *Broadcaster) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			b.mu.Lock()
			for ch := range b.clients {
				close(ch)
			}
			b.clients = make(map[chan Event]clientInfo)
			b.mu.Unlock()
			return

		case reg := <-b.register:
			b.mu.Lock()
			b.clients[reg.ch] = reg.info
			b.mu.Unlock()

		case ch := <-b.unregister:
			b.mu.Lock()
			if _, ok := b.clients[ch]; ok {
				delete(b.clients, ch)
				close(ch)
			}
			b.mu.Unlock()

		case entity := <-b.publish:
			b.deliver(ctx, entity)
		}
	}
}

// Publish queues an entity for fan-out. Non-blocking: if the internal
// queue is saturated the entity is dropped and logged, rather than
// blocking the upstream stream consumer.
func (b *Broadcaster) Publish(entity domain.Entity) {
	select {
	case b.publish <- entity:
	default:
		if b.logger != nil {
			b.logger.Warn("broadcast queue full, dropping publish", "key", entity.Key())
		}
	}
}

func (b *Broadcaster) deliver(ctx context.Context, entity domain.Entity) {
	for _, sink := range b.sinks {
		sink.Publish(ctx, entity)
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	event := Event{Kind: entity.Kind(), Entity: entity}
	for ch, info := range b.clients {
		if !interested(info, entity) {
			continue
		}
		newestWinsSend(ch, event)
	}
}

// interested applies only the incident/road-condition kind toggle. Per
// spec.md §4.8, an SSE viewer receives every entity regardless of county or
// severity — that filtering happens client-side by the viewer's current tab
// — so county and severity are deliberately not consulted here.
func interested(info clientInfo, entity domain.Entity) bool {
	switch entity.Kind() {
	case domain.KindIncident:
		return info.wantIncidents
	case domain.KindRoadCondition:
		return info.wantRoadConditions
	}
	return true
}

// newestWinsSend delivers event, first draining any already-queued event
// so a viewer who has fallen behind always sees the latest state instead
// of a growing backlog.
func newestWinsSend(ch chan Event, event Event) {
	defer func() { recover() }() // channel may be closed concurrently by Run's ctx-done branch
	select {
	case ch <- event:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- event:
	default:
	}
}

// SubscribeOptions describes a viewer. Only WantIncidents and
// WantRoadConditions filter what the viewer receives; Counties and
// MinSeverity are stored but not applied to delivery.
type SubscribeOptions struct {
	Counties           map[int]struct{}
	WantIncidents      bool
	WantRoadConditions bool
	MinSeverity        int
}

// Subscribe registers a new viewer and returns its event channel.
func (b *Broadcaster) Subscribe(opts SubscribeOptions) chan Event {
	ch := make(chan Event, queueDepth)
	b.register <- registration{
		ch: ch,
		info: clientInfo{
			counties:           opts.Counties,
			wantIncidents:      opts.WantIncidents,
			wantRoadConditions: opts.WantRoadConditions,
			minSeverity:        opts.MinSeverity,
		},
	}
	return ch
}

// Unsubscribe removes a viewer.
func (b *Broadcaster) Unsubscribe(ch chan Event) {
	select {
	case b.unregister <- ch:
	case <-time.After(time.Second):
		// Run loop has already stopped (ctx cancelled); nothing to do.
	}
}

// ClientCount reports how many viewers are currently subscribed, for the
// supplemented /api/stats endpoint.
func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}
