// Command seed-neon runs the eventstore's ordered migration list against a
// Neon Postgres database and seeds the settings table with defaults, so a
// fresh environment can be brought up without going through the main
// binary's at-boot migration path. Adapted from the teacher's seed-neon
// tool (same neon.FromEnv/neon.NewPool connection setup, same flag-driven
// seed shape), repointed at the new schema.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/trafikinfo/aggregator/domain"
	"github.com/trafikinfo/aggregator/eventstore"
	"github.com/trafikinfo/aggregator/neon"
)

func main() {
	radiusKM := flag.Float64("camera-radius-km", domain.DefaultCameraRadiusKM, "default camera_radius_km setting")
	mqttTopic := flag.String("mqtt-topic", "trafikinfo/traffic", "default mqtt_topic setting")
	rcTopic := flag.String("rc-topic", "trafikinfo/road_conditions", "default rc_topic setting")
	retentionDays := flag.Int("retention-days", 90, "default retention_days setting")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg, err := neon.FromEnv()
	if err != nil {
		log.Fatal(err)
	}

	pool, err := neon.NewPool(ctx, cfg)
	if err != nil {
		log.Fatalf("connect to Neon: %v", err)
	}
	defer pool.Close()

	if err := eventstore.Migrate(ctx, pool); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	if err := seedDefaultSettings(ctx, pool, *radiusKM, *mqttTopic, *rcTopic, *retentionDays); err != nil {
		log.Fatalf("seed settings: %v", err)
	}

	log.Println("✅ Neon database migrated and seeded")
}

func seedDefaultSettings(ctx context.Context, pool *pgxpool.Pool, radiusKM float64, mqttTopic, rcTopic string, retentionDays int) error {
	store := eventstore.New(pool)

	defaults := map[string]string{
		"camera_radius_km": fmt.Sprintf("%g", radiusKM),
		"mqtt_topic":       mqttTopic,
		"rc_topic":         rcTopic,
		"retention_days":   fmt.Sprintf("%d", retentionDays),
	}

	existing, err := store.AllSettings(ctx)
	if err != nil {
		return fmt.Errorf("read existing settings: %w", err)
	}

	for key, value := range defaults {
		if _, present := existing[key]; present {
			continue
		}
		if err := store.SetSetting(ctx, key, value); err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
	}
	return nil
}
