package server

import (
	"encoding/json"
	"sort"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/trafikinfo/aggregator/domain"
)

// StableJSONHash generates a stable hash from a JSON-marshalable value.
// It marshals v as given: slices are hashed in their current order, so
// callers sort them first (SortIncidents and friends) for a stable hash.
func StableJSONHash(v interface{}) (string, error) {
	jsonData, err := json.Marshal(v)
	if err != nil {
		return "", err
	}

	hash := xxhash.Sum64(jsonData)
	return "\"" + strconv.FormatUint(hash, 10) + "\"", nil
}

// SortIncidents sorts incidents by ExternalID for stable ETag hashing.
func SortIncidents(incidents []*domain.Incident) []*domain.Incident {
	sorted := make([]*domain.Incident, len(incidents))
	copy(sorted, incidents)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ExternalID < sorted[j].ExternalID
	})
	return sorted
}

// SortRoadConditions sorts road conditions by ID for stable ETag hashing.
func SortRoadConditions(conditions []*domain.RoadCondition) []*domain.RoadCondition {
	sorted := make([]*domain.RoadCondition, len(conditions))
	copy(sorted, conditions)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ID < sorted[j].ID
	})
	return sorted
}

// SortCameras sorts cameras by ID for stable ETag hashing.
func SortCameras(cameras []domain.Camera) []domain.Camera {
	sorted := make([]domain.Camera, len(cameras))
	copy(sorted, cameras)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ID < sorted[j].ID
	})
	return sorted
}
