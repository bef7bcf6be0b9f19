// Package geo implements the in-memory spatial matcher between point
// events and camera/weather stations (spec.md §4.3).
package geo

import "math"

const earthRadiusKM = 6371.0

// HaversineKM returns the great-circle distance in kilometers between two
// lat/lon points.
func HaversineKM(lat1, lon1, lat2, lon2 float64) float64 {
	rLat1 := lat1 * math.Pi / 180
	rLat2 := lat2 * math.Pi / 180
	dLat := rLat2 - rLat1
	dLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKM * c
}
