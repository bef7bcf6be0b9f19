package eventstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/trafikinfo/aggregator/domain"
)

func countiesToCSV(counties map[int]struct{}) string {
	parts := make([]string, 0, len(counties))
	for c := range counties {
		parts = append(parts, strconv.Itoa(c))
	}
	return strings.Join(parts, ",")
}

func csvToCounties(csv string) map[int]struct{} {
	out := make(map[int]struct{})
	if csv == "" {
		return out
	}
	for _, p := range strings.Split(csv, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if n, err := strconv.Atoi(p); err == nil {
			out[n] = struct{}{}
		}
	}
	return out
}

// UpsertPushSubscription inserts or replaces a subscription keyed on endpoint.
func (s *Store) UpsertPushSubscription(ctx context.Context, sub domain.PushSubscription) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO push_subscriptions (
    endpoint, p256dh, auth, counties, min_severity, topic_realtid, topic_road_condition,
    include_severity, include_image, include_weather, include_location, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,now())
ON CONFLICT (endpoint) DO UPDATE SET
    p256dh=EXCLUDED.p256dh, auth=EXCLUDED.auth, counties=EXCLUDED.counties,
    min_severity=EXCLUDED.min_severity, topic_realtid=EXCLUDED.topic_realtid,
    topic_road_condition=EXCLUDED.topic_road_condition, include_severity=EXCLUDED.include_severity,
    include_image=EXCLUDED.include_image, include_weather=EXCLUDED.include_weather,
    include_location=EXCLUDED.include_location`,
		sub.Endpoint, sub.P256DH, sub.Auth, countiesToCSV(sub.Counties), sub.MinSeverity,
		sub.TopicRealtid, sub.TopicRoadCondition, sub.IncludeSeverity, sub.IncludeImage,
		sub.IncludeWeather, sub.IncludeLocation)
	if err != nil {
		return fmt.Errorf("eventstore: upsert push subscription: %w", err)
	}
	return nil
}

// DeletePushSubscription removes a subscription, used both on user unsubscribe
// and when push.Dispatcher evicts a dead endpoint (spec.md §4.9).
func (s *Store) DeletePushSubscription(ctx context.Context, endpoint string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM push_subscriptions WHERE endpoint = $1`, endpoint)
	if err != nil {
		return fmt.Errorf("eventstore: delete push subscription: %w", err)
	}
	return nil
}

// ListPushSubscriptions returns every stored subscription, for push.Dispatcher
// to fan an incident/road condition out to.
func (s *Store) ListPushSubscriptions(ctx context.Context) ([]domain.PushSubscription, error) {
	rows, err := s.pool.Query(ctx, `
SELECT endpoint, p256dh, auth, counties, min_severity, topic_realtid, topic_road_condition,
       include_severity, include_image, include_weather, include_location, created_at
FROM push_subscriptions`)
	if err != nil {
		return nil, fmt.Errorf("eventstore: list push subscriptions: %w", err)
	}
	defer rows.Close()

	var out []domain.PushSubscription
	for rows.Next() {
		var sub domain.PushSubscription
		var countiesCSV string
		if err := rows.Scan(&sub.Endpoint, &sub.P256DH, &sub.Auth, &countiesCSV, &sub.MinSeverity,
			&sub.TopicRealtid, &sub.TopicRoadCondition, &sub.IncludeSeverity, &sub.IncludeImage,
			&sub.IncludeWeather, &sub.IncludeLocation, &sub.CreatedAt); err != nil {
			return nil, fmt.Errorf("eventstore: scan push subscription: %w", err)
		}
		sub.Counties = csvToCounties(countiesCSV)
		out = append(out, sub)
	}
	return out, rows.Err()
}

// UpsertClientInterest records a live viewer's county interest set, keyed
// by a client-generated UUID (spec.md §4.8's interest-loop).
func (s *Store) UpsertClientInterest(ctx context.Context, interest domain.ClientInterest) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO client_interests (client_id, counties, last_active, user_agent, is_admin)
VALUES ($1,$2,now(),$3,$4)
ON CONFLICT (client_id) DO UPDATE SET
    counties=EXCLUDED.counties, last_active=now(), user_agent=EXCLUDED.user_agent, is_admin=EXCLUDED.is_admin`,
		interest.ClientID, countiesToCSV(interest.Counties), interest.UserAgent, interest.IsAdmin)
	if err != nil {
		return fmt.Errorf("eventstore: upsert client interest: %w", err)
	}
	return nil
}

// ClientInterest looks up one viewer's current interest set.
func (s *Store) ClientInterest(ctx context.Context, clientID string) (domain.ClientInterest, bool, error) {
	var interest domain.ClientInterest
	var countiesCSV string
	err := s.pool.QueryRow(ctx, `
SELECT client_id, counties, last_active, user_agent, is_admin FROM client_interests WHERE client_id = $1`,
		clientID).Scan(&interest.ClientID, &countiesCSV, &interest.LastActive, &interest.UserAgent, &interest.IsAdmin)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ClientInterest{}, false, nil
	}
	if err != nil {
		return domain.ClientInterest{}, false, fmt.Errorf("eventstore: get client interest: %w", err)
	}
	interest.Counties = csvToCounties(countiesCSV)
	return interest, true, nil
}

// InterestCounties returns the union of every live ClientInterest's and
// every PushSubscription's county set, the value worker.Supervisor's
// interest loop recomputes each tick to decide which upstream streams must
// be running (spec.md §4.7). A PushSubscription with an empty Counties set
// means "all counties" and does not, by itself, force every county open;
// only ClientInterest rows and non-empty PushSubscription filters
// contribute concrete county numbers.
func (s *Store) InterestCounties(ctx context.Context) (map[int]struct{}, error) {
	out := make(map[int]struct{})

	rows, err := s.pool.Query(ctx, `SELECT counties FROM client_interests`)
	if err != nil {
		return nil, fmt.Errorf("eventstore: list client interest counties: %w", err)
	}
	for rows.Next() {
		var csv string
		if err := rows.Scan(&csv); err != nil {
			rows.Close()
			return nil, fmt.Errorf("eventstore: scan client interest counties: %w", err)
		}
		for c := range csvToCounties(csv) {
			out[c] = struct{}{}
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	rows, err = s.pool.Query(ctx, `SELECT counties FROM push_subscriptions`)
	if err != nil {
		return nil, fmt.Errorf("eventstore: list push subscription counties: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var csv string
		if err := rows.Scan(&csv); err != nil {
			return nil, fmt.Errorf("eventstore: scan push subscription counties: %w", err)
		}
		for c := range csvToCounties(csv) {
			out[c] = struct{}{}
		}
	}
	return out, rows.Err()
}

// PruneStaleClientInterests deletes interest rows not refreshed since
// olderThan, called by worker.Supervisor's maintenance loop.
func (s *Store) PruneStaleClientInterests(ctx context.Context, olderThan time.Duration) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM client_interests WHERE last_active < now() - $1::interval`,
		fmt.Sprintf("%d seconds", int(olderThan.Seconds())))
	if err != nil {
		return 0, fmt.Errorf("eventstore: prune client interests: %w", err)
	}
	return tag.RowsAffected(), nil
}
