// Package enrich attaches the nearest camera snapshot and weather
// observation to an incident or road condition, grounded on
// store.Store.MatchWeatherStationsByCoordinates and store.FetchImages.
package enrich

import (
	"context"
	"fmt"
	"regexp"

	"github.com/charmbracelet/log"

	"github.com/trafikinfo/aggregator/domain"
	"github.com/trafikinfo/aggregator/geo"
	"github.com/trafikinfo/aggregator/snapshot"
)

// weatherRadiusKM is spec.md §4.6's fixed nearest-weather-station radius;
// unlike camera matching it is never driven by camera_radius_km.
const weatherRadiusKM = 20.0

// cameraLookupLimit is the primary camera plus up to 4 extras (spec.md
// §4.6).
const cameraLookupLimit = 5

// PriorStateLookup is the persistence slice Enricher needs to implement
// spec.md §4.6's needs_camera_sync decision: whether an entity already has
// a recorded row, what its enrichment currently looks like, and what
// coordinates it was last enriched at.
type PriorStateLookup interface {
	IncidentEnrichmentState(ctx context.Context, externalID string) (found bool, enrichment domain.Enrichment, lat, lon *float64, err error)
	RoadConditionEnrichmentState(ctx context.Context, rc *domain.RoadCondition) (found bool, enrichment domain.Enrichment, lat, lon *float64, err error)
}

// Enricher holds the live camera/weather-station indexes and the snapshot
// downloader used to populate domain.Enrichment on every upserted entity.
type Enricher struct {
	cameras  *geo.Index[domain.Camera]
	stations *geo.Index[domain.WeatherStation]
	snaps    *snapshot.Store
	store    PriorStateLookup
	radiusKM float64
	logger   *log.Logger
}

// New builds an Enricher. radiusKM resolves the camera-matching distance
// (spec.md's camera_radius_km setting; domain.DefaultCameraRadiusKM if the
// caller passes 0).
func New(cameras *geo.Index[domain.Camera], stations *geo.Index[domain.WeatherStation], snaps *snapshot.Store, store PriorStateLookup, radiusKM float64, logger *log.Logger) *Enricher {
	if radiusKM <= 0 {
		radiusKM = domain.DefaultCameraRadiusKM
	}
	return &Enricher{cameras: cameras, stations: stations, snaps: snaps, store: store, radiusKM: radiusKM, logger: logger}
}

// Enrich populates enrichment on an Incident and reports whether a camera
// sync (fresh spatial lookup + snapshot download) was performed, per
// spec.md §4.6's (entity', camera_sync_happened) contract.
func (e *Enricher) Enrich(ctx context.Context, in *domain.Incident) bool {
	if in.Latitude == nil || in.Longitude == nil {
		return false
	}

	var found bool
	var prior domain.Enrichment
	var priorLat, priorLon *float64
	if e.store != nil {
		var err error
		found, prior, priorLat, priorLon, err = e.store.IncidentEnrichmentState(ctx, in.ExternalID)
		if err != nil && e.logger != nil {
			e.logger.Warn("enrich: load incident prior state", "external_id", in.ExternalID, "err", err)
		}
	}

	enrichment, synced := e.buildEnrichment(ctx, *in.Latitude, *in.Longitude, in.RoadNumber, in.ExternalID, in.CountyNo, found, prior, priorLat, priorLon)
	in.Enrichment = enrichment
	return synced
}

// EnrichRoadCondition populates enrichment on a RoadCondition and reports
// whether a camera sync was performed.
func (e *Enricher) EnrichRoadCondition(ctx context.Context, rc *domain.RoadCondition) bool {
	if rc.Latitude == nil || rc.Longitude == nil {
		return false
	}

	var found bool
	var prior domain.Enrichment
	var priorLat, priorLon *float64
	if e.store != nil {
		var err error
		found, prior, priorLat, priorLon, err = e.store.RoadConditionEnrichmentState(ctx, rc)
		if err != nil && e.logger != nil {
			e.logger.Warn("enrich: load road condition prior state", "id", rc.ID, "err", err)
		}
	}

	enrichment, synced := e.buildEnrichment(ctx, *rc.Latitude, *rc.Longitude, rc.RoadNumber, rc.ID, rc.CountyNo, found, prior, priorLat, priorLon)
	rc.Enrichment = enrichment
	return synced
}

// needsCameraSync implements spec.md §4.6's decision: true iff the entity
// is new, has no recorded extra cameras, any recorded extra camera has a
// null snapshot path, or the coordinates changed since the prior state.
func needsCameraSync(found bool, prior domain.Enrichment, priorLat, priorLon *float64, lat, lon float64) bool {
	if !found {
		return true
	}
	if len(prior.ExtraCameras) == 0 {
		return true
	}
	for _, extra := range prior.ExtraCameras {
		if extra.SnapshotPath == "" {
			return true
		}
	}
	if priorLat == nil || priorLon == nil || *priorLat != lat || *priorLon != lon {
		return true
	}
	return false
}

// buildEnrichment applies the needs_camera_sync decision, either refreshing
// the camera match/snapshots or carrying the previously recorded camera
// fields through unchanged, then always attaches the nearest weather
// observation (spec.md §4.6 never gates weather on the camera decision).
func (e *Enricher) buildEnrichment(ctx context.Context, lat, lon float64, road, entityID string, countyNo int, found bool, prior domain.Enrichment, priorLat, priorLon *float64) (domain.Enrichment, bool) {
	sync := needsCameraSync(found, prior, priorLat, priorLon, lat, lon)

	var enrichment domain.Enrichment
	if sync {
		enrichment = e.fetchCameraEnrichment(ctx, lat, lon, road, entityID, countyNo)
	} else {
		enrichment.CameraID = prior.CameraID
		enrichment.CameraName = prior.CameraName
		enrichment.SnapshotPath = prior.SnapshotPath
		enrichment.ExtraCameras = prior.ExtraCameras
		enrichment.ExternalCameraURL = prior.ExternalCameraURL
	}

	enrichment.Weather = e.fetchWeather(lat, lon)
	return enrichment, sync
}

func (e *Enricher) fetchCameraEnrichment(ctx context.Context, lat, lon float64, road, entityID string, countyNo int) domain.Enrichment {
	var enrichment domain.Enrichment

	cams := e.cameras.Nearby(lat, lon, road, true, e.radiusKM, cameraLookupLimit)
	if len(cams) == 0 {
		return enrichment
	}

	primary := cams[0]
	enrichment.CameraID = primary.ID
	enrichment.CameraName = primary.Name
	enrichment.ExternalCameraURL = primary.FullsizeURL
	if enrichment.ExternalCameraURL == "" {
		enrichment.ExternalCameraURL = primary.PhotoURL
	}

	if e.snaps != nil && (primary.PhotoURL != "" || primary.FullsizeURL != "") {
		result, err := e.snaps.Save(ctx, entityID, countyNo, primary.PhotoURL, primary.FullsizeURL)
		if err != nil {
			if e.logger != nil {
				e.logger.Warn("enrich: snapshot fetch failed", "camera", primary.ID, "err", err)
			}
		} else {
			enrichment.SnapshotPath = result.Path
		}
	}

	for _, extra := range cams[1:] {
		ref := domain.CameraRef{ID: extra.ID, Name: extra.Name}
		if e.snaps != nil && (extra.PhotoURL != "" || extra.FullsizeURL != "") {
			extraID := fmt.Sprintf("%s_%s", entityID, sanitizeCameraID(extra.ID))
			if result, err := e.snaps.Save(ctx, extraID, countyNo, extra.PhotoURL, extra.FullsizeURL); err == nil {
				ref.SnapshotPath = result.Path
			}
		}
		enrichment.ExtraCameras = append(enrichment.ExtraCameras, ref)
	}

	return enrichment
}

func (e *Enricher) fetchWeather(lat, lon float64) *domain.WeatherSnapshot {
	stations := e.stations.Nearby(lat, lon, "", false, weatherRadiusKM, 1)
	if len(stations) == 0 {
		return nil
	}
	st := stations[0]
	return &domain.WeatherSnapshot{
		Temp:       st.AirTemperature,
		WindSpeed:  st.WindSpeed,
		WindDir:    st.WindDirection,
		RoadTemp:   st.RoadTemperature,
		Grip:       st.Grip,
		IceDepth:   st.IceDepth,
		SnowDepth:  st.SnowDepth,
		WaterEquiv: st.WaterEquivalent,
	}
}

var cameraIDSanitizer = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// sanitizeCameraID makes an upstream camera id safe to use as part of a
// filename, per spec.md §4.6's "entity id suffixed by a sanitized camera
// id" extra-camera snapshot naming.
func sanitizeCameraID(id string) string {
	return cameraIDSanitizer.ReplaceAllString(id, "_")
}

// ValidateRadius rejects nonsensical configuration values early, instead of
// silently matching every camera in the country.
func ValidateRadius(km float64) error {
	if km <= 0 || km > 100 {
		return fmt.Errorf("enrich: camera radius %.1fkm out of range (0, 100]", km)
	}
	return nil
}
