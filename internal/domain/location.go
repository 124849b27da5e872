package domain

import "math"

const earthRadiusKm = 6371.0

// Location is a geographic point in decimal degrees.
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid checks coordinate ranges.
func (l Location) Valid() bool {
	return l.Lat >= -90 && l.Lat <= 90 && l.Lon >= -180 && l.Lon <= 180
}

// DistanceKm returns the great-circle (haversine) distance to other in kilometres.
func (l Location) DistanceKm(other Location) float64 {
	dLat := radians(other.Lat - l.Lat)
	dLon := radians(other.Lon - l.Lon)

	rLat1 := radians(l.Lat)
	rLat2 := radians(other.Lat)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180.0
}
