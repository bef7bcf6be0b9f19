// Package push delivers Web Push notifications for incidents and road
// conditions, grounded on original_source/backend/database.py's
// PushSubscription model (per-subscription county/severity/topic filters)
// and spec.md §4.9, implemented on SherClockHolmes/webpush-go.
package push

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/charmbracelet/log"

	"github.com/trafikinfo/aggregator/domain"
)

// SubscriptionStore is the persistence slice push.Dispatcher needs; backed
// by eventstore.Store in production.
type SubscriptionStore interface {
	ListPushSubscriptions(ctx context.Context) ([]domain.PushSubscription, error)
	DeletePushSubscription(ctx context.Context, endpoint string) error
}

// Config carries the VAPID keypair and contact subject (spec.md §6's
// vapid_private_key/vapid_public_key settings).
type Config struct {
	Enabled         bool
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	Subject         string // "mailto:" or "https://" contact URI required by the Web Push protocol
}

// Dispatcher fans an entity out to every matching push subscription,
// evicting endpoints the push service reports as gone.
type Dispatcher struct {
	cfg   Config
	store SubscriptionStore
	log   *log.Logger
}

// New builds a Dispatcher. A Dispatcher with cfg.Enabled false is a no-op.
func New(cfg Config, store SubscriptionStore, logger *log.Logger) *Dispatcher {
	return &Dispatcher{cfg: cfg, store: store, log: logger}
}

type wireNotification struct {
	Kind        string `json:"kind"` // "incident" | "road_condition"
	Title       string `json:"title"`
	Body        string `json:"body,omitempty"`
	Severity    int    `json:"severity,omitempty"`
	Location    string `json:"location,omitempty"`
	ImagePath   string `json:"image_path,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

// Publish implements broadcast.Sink. It loads the current subscription
// list on every call; at the scale spec.md targets (a handful of counties'
// worth of subscribers) this is simpler and cheap enough to skip a cache.
func (d *Dispatcher) Publish(ctx context.Context, entity domain.Entity) {
	if !d.cfg.Enabled {
		return
	}

	subs, err := d.store.ListPushSubscriptions(ctx)
	if err != nil {
		if d.log != nil {
			d.log.Error("push: list subscriptions", "err", err)
		}
		return
	}

	for _, sub := range subs {
		if !matches(sub, entity) {
			continue
		}
		notification := buildNotification(sub, entity)
		d.send(ctx, sub, notification)
	}
}

func matches(sub domain.PushSubscription, entity domain.Entity) bool {
	var countyNo, severity int
	switch e := entity.(type) {
	case *domain.Incident:
		if !sub.TopicRealtid {
			return false
		}
		countyNo, severity = e.CountyNo, e.SeverityCode
	case *domain.RoadCondition:
		if !sub.TopicRoadCondition {
			return false
		}
		countyNo = e.CountyNo
	default:
		return false
	}

	if len(sub.Counties) > 0 {
		if _, ok := sub.Counties[countyNo]; !ok {
			return false
		}
	}
	if severity > 0 && sub.MinSeverity > 0 && severity < sub.MinSeverity {
		return false
	}
	return true
}

func buildNotification(sub domain.PushSubscription, entity domain.Entity) wireNotification {
	var n wireNotification
	switch e := entity.(type) {
	case *domain.Incident:
		n.Kind = "incident"
		n.Title = e.Title
		if sub.IncludeLocation {
			n.Location = e.Location
		}
		if sub.IncludeSeverity {
			n.Severity = e.SeverityCode
		}
		if sub.IncludeImage {
			n.ImagePath = e.SnapshotPath
		}
		if sub.IncludeWeather && e.Weather != nil {
			n.Temperature = e.Weather.Temp
		}
		n.Body = e.Description
	case *domain.RoadCondition:
		n.Kind = "road_condition"
		n.Title = e.ConditionText
		if sub.IncludeLocation {
			n.Location = e.LocationText
		}
		if sub.IncludeImage {
			n.ImagePath = e.SnapshotPath
		}
		if sub.IncludeWeather && e.Weather != nil {
			n.Temperature = e.Weather.Temp
		}
	}
	return n
}

func (d *Dispatcher) send(ctx context.Context, sub domain.PushSubscription, notification wireNotification) {
	body, err := json.Marshal(notification)
	if err != nil {
		if d.log != nil {
			d.log.Error("push: marshal notification", "err", err)
		}
		return
	}

	resp, err := webpush.SendNotification(body, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}, &webpush.Options{
		Subscriber:      d.cfg.Subject,
		VAPIDPublicKey:  d.cfg.VAPIDPublicKey,
		VAPIDPrivateKey: d.cfg.VAPIDPrivateKey,
		TTL:             60,
	})
	if err != nil {
		if d.log != nil {
			d.log.Error("push: send", "endpoint", sub.Endpoint, "err", err)
		}
		return
	}
	defer resp.Body.Close()

	// 404/410 mean the browser has unsubscribed; anything else we leave
	// alone and let the next publish retry.
	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
		if err := d.store.DeletePushSubscription(ctx, sub.Endpoint); err != nil && d.log != nil {
			d.log.Error("push: evict dead subscription", "endpoint", sub.Endpoint, "err", err)
		}
	}
}

// GenerateVAPIDKeys produces a fresh keypair for first-run setup, wrapping
// webpush-go's generator so callers never hand-roll ECDSA key generation.
func GenerateVAPIDKeys() (public, private string, err error) {
	priv, pub, err := webpush.GenerateVAPIDKeys()
	if err != nil {
		return "", "", fmt.Errorf("push: generate VAPID keys: %w", err)
	}
	return pub, priv, nil
}
