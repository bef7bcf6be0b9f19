// Package worker wires the upstream streams, enrichment, persistence, and
// fan-out together into the background loops the service runs for its
// lifetime (interest/stream loop, camera, weather and icon sync, interest
// pruning), grounded on udot/poller.go's Poller (immediate-fetch-
// then-ticker loops, per-object-type Start* methods, ctx.Done cancellation).
package worker

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/trafikinfo/aggregator/broadcast"
	"github.com/trafikinfo/aggregator/domain"
	"github.com/trafikinfo/aggregator/enrich"
	"github.com/trafikinfo/aggregator/eventstore"
	"github.com/trafikinfo/aggregator/geo"
	"github.com/trafikinfo/aggregator/normalize"
	"github.com/trafikinfo/aggregator/tvapi"
)

const (
	defaultInterestPrune   = 10 * time.Minute
	defaultInterestMaxIdle = 15 * time.Minute
	defaultInterestTick    = 60 * time.Second
	streamCancelTimeout    = 3 * time.Second

	// defaultCameraSyncInterval/defaultWeatherSyncInterval/defaultIconSyncInterval
	// are spec.md §4.7's three background sync cadences: cameras and icons
	// change rarely (upstream infrastructure changes), weather stations'
	// readings go stale fast.
	defaultCameraSyncInterval  = 24 * time.Hour
	defaultWeatherSyncInterval = 15 * time.Minute
	defaultIconSyncInterval    = 24 * time.Hour

	tvIconBaseURL = "https://api.trafikinfo.trafikverket.se/v2/icons/"

	schemaVersion = "1.5"
)

var iconHTTPClient = &http.Client{Timeout: 10 * time.Second}

// Supervisor owns the live in-memory indexes and runs every background
// loop the service needs: the interest-driven stream consumers (incidents,
// road conditions), the camera/weather ticker sync, and client-interest
// pruning. It replaces the teacher's package-level globals with one value
// main.go constructs and starts once.
type Supervisor struct {
	client *tvapi.Client

	cameras  *geo.Index[domain.Camera]
	stations *geo.Index[domain.WeatherStation]

	enricher    *enrich.Enricher
	store       *eventstore.Store
	broadcaster *broadcast.Broadcaster

	logger *log.Logger

	iconDir             string
	cameraSyncInterval  time.Duration
	weatherSyncInterval time.Duration
	iconSyncInterval    time.Duration
	interestTick        time.Duration

	statusMu sync.RWMutex
	status   map[string]tvapi.StreamStatus

	activeMu sync.RWMutex
	active   map[int]struct{}
}

// Status returns the latest known connection state for each upstream
// stream, keyed by tvapi object type, for the /api/status endpoint.
func (s *Supervisor) Status() map[string]tvapi.StreamStatus {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	out := make(map[string]tvapi.StreamStatus, len(s.status))
	for k, v := range s.status {
		out[k] = v
	}
	return out
}

func (s *Supervisor) trackStatus(ctx context.Context, stream *tvapi.Stream) {
	for {
		select {
		case <-ctx.Done():
			return
		case st := <-stream.Status():
			s.statusMu.Lock()
			s.status[st.ObjectType] = st
			s.statusMu.Unlock()
		}
	}
}

// Config collects the Supervisor's dependencies.
type Config struct {
	Client      *tvapi.Client
	Cameras     *geo.Index[domain.Camera]
	Stations    *geo.Index[domain.WeatherStation]
	Enricher    *enrich.Enricher
	Store       *eventstore.Store
	Broadcaster *broadcast.Broadcaster
	Logger      *log.Logger

	// IconDir is where icon-sync writes mirrored upstream icon files.
	IconDir string

	// CameraSyncInterval/WeatherSyncInterval/IconSyncInterval override
	// the three background sync cadences (spec.md §4.7); zero uses each
	// loop's default. Tests shrink these to observe a sync without
	// waiting a full day/15 minutes.
	CameraSyncInterval  time.Duration
	WeatherSyncInterval time.Duration
	IconSyncInterval    time.Duration

	// InterestTick overrides the 60s interest-recompute cadence (spec.md
	// §4.7); zero uses the default. Tests shrink this to observe a
	// restart without waiting a full minute.
	InterestTick time.Duration
}

// New builds a Supervisor from Config, defaulting every interval left unset.
func New(cfg Config) *Supervisor {
	cameraInterval := cfg.CameraSyncInterval
	if cameraInterval <= 0 {
		cameraInterval = defaultCameraSyncInterval
	}
	weatherInterval := cfg.WeatherSyncInterval
	if weatherInterval <= 0 {
		weatherInterval = defaultWeatherSyncInterval
	}
	iconInterval := cfg.IconSyncInterval
	if iconInterval <= 0 {
		iconInterval = defaultIconSyncInterval
	}
	tick := cfg.InterestTick
	if tick <= 0 {
		tick = defaultInterestTick
	}
	iconDir := cfg.IconDir
	if iconDir == "" {
		iconDir = "data/icons"
	}
	return &Supervisor{
		client:              cfg.Client,
		cameras:             cfg.Cameras,
		stations:            cfg.Stations,
		enricher:            cfg.Enricher,
		store:               cfg.Store,
		broadcaster:         cfg.Broadcaster,
		logger:              cfg.Logger,
		iconDir:             iconDir,
		cameraSyncInterval:  cameraInterval,
		weatherSyncInterval: weatherInterval,
		iconSyncInterval:    iconInterval,
		interestTick:        tick,
		status:              make(map[string]tvapi.StreamStatus),
	}
}

// ActiveCounties returns the county set the interest loop currently has
// upstream streams open for, for the /api/status endpoint.
func (s *Supervisor) ActiveCounties() []int {
	s.activeMu.RLock()
	defer s.activeMu.RUnlock()
	out := make([]int, 0, len(s.active))
	for c := range s.active {
		out = append(out, c)
	}
	return out
}

func (s *Supervisor) setActiveCounties(set map[int]struct{}) {
	s.activeMu.Lock()
	s.active = set
	s.activeMu.Unlock()
}

// Run launches all background loops and blocks until ctx is cancelled.
func (s *Supervisor) Run(ctx context.Context) {
	if !s.client.IsConfigured() {
		if s.logger != nil {
			s.logger.Warn("tvapi key not configured; background sync loops disabled")
		}
		<-ctx.Done()
		return
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.runInterestLoop(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.runCameraSync(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.runWeatherSync(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.runIconSync(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.runInterestPrune(ctx)
	}()

	wg.Wait()
}

// streamSet is the pair of stream-consumer goroutines running for one
// county set, torn down and replaced as a unit by runInterestLoop.
type streamSet struct {
	cancel   context.CancelFunc
	done     chan struct{}
	counties map[int]struct{}
}

// runInterestLoop implements spec.md §4.7's 60s interest-recompute tick:
// it loads the union of all ClientInterest and PushSubscription counties,
// and whenever that set differs from the currently-running one, cancels
// the running incident/road-condition stream consumers (bounded by
// streamCancelTimeout, per spec.md §5) and starts a fresh pair scoped to
// the new set. An empty interest set is valid and simply leaves no
// streams running, per spec.md §4.7.3 (cost control).
func (s *Supervisor) runInterestLoop(ctx context.Context) {
	var current *streamSet
	s.setActiveCounties(map[int]struct{}{})

	reconcile := func() {
		want, err := s.store.InterestCounties(ctx)
		if err != nil {
			if s.logger != nil {
				s.logger.Error("compute interest county set", "err", err)
			}
			return
		}

		if current != nil && countiesEqual(current.counties, want) {
			return
		}

		if current != nil {
			current.cancel()
			select {
			case <-current.done:
			case <-time.After(streamCancelTimeout):
				if s.logger != nil {
					s.logger.Warn("stream teardown exceeded bound, starting new set anyway")
				}
			}
			current = nil
		}

		s.setActiveCounties(want)

		if len(want) == 0 {
			if s.logger != nil {
				s.logger.Info("interest set empty; upstream streams stopped")
			}
			return
		}

		streamCtx, cancel := context.WithCancel(ctx)
		done := make(chan struct{})
		counties := countiesSlice(want)

		go func() {
			defer close(done)
			var inner sync.WaitGroup
			inner.Add(2)
			go func() {
				defer inner.Done()
				s.runIncidentStream(streamCtx, counties)
			}()
			go func() {
				defer inner.Done()
				s.runRoadConditionStream(streamCtx, counties)
			}()
			inner.Wait()
		}()

		current = &streamSet{cancel: cancel, done: done, counties: want}
		if s.logger != nil {
			s.logger.Info("interest set changed; streams (re)started", "counties", counties)
		}
	}

	reconcile()

	ticker := time.NewTicker(s.interestTick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			if current != nil {
				current.cancel()
			}
			return
		case <-ticker.C:
			reconcile()
		}
	}
}

func countiesEqual(a, b map[int]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for c := range a {
		if _, ok := b[c]; !ok {
			return false
		}
	}
	return true
}

func countiesSlice(set map[int]struct{}) []int {
	out := make([]int, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	return out
}

func (s *Supervisor) runIncidentStream(ctx context.Context, counties []int) {
	stream := tvapi.NewStream(s.client, tvapi.ObjectTypeSituation, counties, schemaVersion)
	go s.trackStatus(ctx, stream)
	err := stream.Run(ctx, func(payload []byte) {
		s.handleSituationPayload(ctx, payload)
	})
	if err != nil && ctx.Err() == nil && s.logger != nil {
		s.logger.Error("incident stream terminated", "err", err)
	}
}

func (s *Supervisor) runRoadConditionStream(ctx context.Context, counties []int) {
	stream := tvapi.NewStream(s.client, tvapi.ObjectTypeRoadCondition, counties, schemaVersion)
	go s.trackStatus(ctx, stream)
	err := stream.Run(ctx, func(payload []byte) {
		s.handleRoadConditionPayload(ctx, payload)
	})
	if err != nil && ctx.Err() == nil && s.logger != nil {
		s.logger.Error("road condition stream terminated", "err", err)
	}
}

func (s *Supervisor) handleSituationPayload(ctx context.Context, payload []byte) {
	env, err := tvapi.DecodeEnvelope(payload)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("decode situation payload", "err", err)
		}
		return
	}

	for _, sit := range env.Situations() {
		incident := normalize.IncidentFromSituation(sit)
		if incident == nil {
			continue
		}
		s.enricher.Enrich(ctx, incident)

		result, err := s.store.UpsertIncident(ctx, incident)
		if err != nil {
			if s.logger != nil {
				s.logger.Error("upsert incident", "external_id", incident.ExternalID, "err", err)
			}
			continue
		}

		if result.Created || result.SignificantChg {
			s.broadcaster.Publish(incident)
		}
	}
}

func (s *Supervisor) handleRoadConditionPayload(ctx context.Context, payload []byte) {
	env, err := tvapi.DecodeEnvelope(payload)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("decode road condition payload", "err", err)
		}
		return
	}

	for _, raw := range env.RoadConditions() {
		rc := normalize.RoadConditionFromRaw(raw)
		s.enricher.EnrichRoadCondition(ctx, rc)

		result, err := s.store.UpsertRoadCondition(ctx, rc)
		if err != nil {
			if s.logger != nil {
				s.logger.Error("upsert road condition", "id", rc.ID, "err", err)
			}
			continue
		}

		if result.Created || result.SignificantChg {
			s.broadcaster.Publish(rc)
		}
	}
}

// runCameraSync polls Camera on its own 24h ticker (spec.md §4.7; camera
// infrastructure changes rarely) and refreshes both the in-memory spatial
// index used by enrich.Enricher and the persisted camera rows.
func (s *Supervisor) runCameraSync(ctx context.Context) {
	s.syncCameras(ctx)

	ticker := time.NewTicker(s.cameraSyncInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.syncCameras(ctx)
		}
	}
}

func (s *Supervisor) syncCameras(ctx context.Context) {
	camEnv, err := s.client.FetchOnce(ctx, tvapi.ObjectTypeCamera, s.ActiveCounties(), schemaVersion)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("fetch cameras", "err", err)
		}
		return
	}
	raws := camEnv.Cameras()
	cams := make([]domain.Camera, 0, len(raws))
	for _, raw := range raws {
		cam := normalize.CameraFromRaw(raw)
		cams = append(cams, cam)
		if s.store != nil {
			if err := s.store.UpsertCamera(ctx, cam); err != nil && s.logger != nil {
				s.logger.Error("persist camera", "id", cam.ID, "err", err)
			}
		}
	}
	s.cameras.Replace(cams)
}

// runWeatherSync polls WeatherMeasurepoint on its own 15m ticker (spec.md
// §4.7; readings go stale far faster than camera infrastructure changes).
func (s *Supervisor) runWeatherSync(ctx context.Context) {
	s.syncWeather(ctx)

	ticker := time.NewTicker(s.weatherSyncInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.syncWeather(ctx)
		}
	}
}

func (s *Supervisor) syncWeather(ctx context.Context) {
	wxEnv, err := s.client.FetchOnce(ctx, tvapi.ObjectTypeWeatherMeasurepoint, s.ActiveCounties(), schemaVersion)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("fetch weather stations", "err", err)
		}
		return
	}
	raws := wxEnv.WeatherMeasurepoints()
	stations := make([]domain.WeatherStation, 0, len(raws))
	for _, raw := range raws {
		station := normalize.WeatherStationFromRaw(raw)
		stations = append(stations, station)
		if s.store != nil {
			if err := s.store.UpsertWeatherStation(ctx, station); err != nil && s.logger != nil {
				s.logger.Error("persist weather station", "id", station.ID, "err", err)
			}
		}
	}
	s.stations.Replace(stations)
}

// runIconSync mirrors every known icon_id to iconDir on a 24h ticker.
// server.IconRoute does not read this directory; it proxies upstream on
// every request. Icons already present on disk are left untouched.
func (s *Supervisor) runIconSync(ctx context.Context) {
	s.syncIcons(ctx)

	ticker := time.NewTicker(s.iconSyncInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.syncIcons(ctx)
		}
	}
}

func (s *Supervisor) syncIcons(ctx context.Context) {
	if s.iconDir == "" {
		return
	}
	if err := os.MkdirAll(s.iconDir, 0o755); err != nil {
		if s.logger != nil {
			s.logger.Error("create icon dir", "err", err)
		}
		return
	}

	for _, id := range normalize.IconIDs() {
		select {
		case <-ctx.Done():
			return
		default:
		}

		path := filepath.Join(s.iconDir, id+".svg")
		if _, err := os.Stat(path); err == nil {
			continue
		}
		if err := s.fetchIcon(ctx, id, path); err != nil {
			if s.logger != nil {
				s.logger.Error("fetch icon", "icon_id", id, "err", err)
			}
		}
	}
}

func (s *Supervisor) fetchIcon(ctx context.Context, id, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, tvIconBaseURL+id+".svg", nil)
	if err != nil {
		return fmt.Errorf("build icon request: %w", err)
	}
	resp, err := iconHTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch icon: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("icon fetch returned status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read icon body: %w", err)
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return fmt.Errorf("write icon file: %w", err)
	}
	if s.logger != nil {
		s.logger.Debug("icon synced", "icon_id", id, "bytes", len(body))
	}
	return nil
}

// runInterestPrune evicts client_interests rows that haven't refreshed
// recently, implementing the interest-loop's cleanup side (spec.md §4.8).
func (s *Supervisor) runInterestPrune(ctx context.Context) {
	ticker := time.NewTicker(defaultInterestPrune)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.store == nil {
				continue
			}
			n, err := s.store.PruneStaleClientInterests(ctx, defaultInterestMaxIdle)
			if err != nil {
				if s.logger != nil {
					s.logger.Error("prune client interests", "err", err)
				}
				continue
			}
			if n > 0 && s.logger != nil {
				s.logger.Debug("pruned stale client interests", "count", n)
			}
		}
	}
}
