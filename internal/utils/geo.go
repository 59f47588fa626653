package utils

import "math"

func toRadians(degree float64) float64 {
	return degree * math.Pi / 180
}

// Haversine returns the great-circle distance in kilometers between two
// lat/lon points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	// R is the earth radius in km
	const R = 6371

	phi1 := toRadians(lat1)
	phi2 := toRadians(lat2)
	deltaPhi := toRadians(lat2 - lat1)
	deltaLambda := toRadians(lon2 - lon1)

	a := math.Sin(deltaPhi/2)*math.Sin(deltaPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*
			math.Sin(deltaLambda/2)*math.Sin(deltaLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return R * c
}

// ValidCoordinates reports whether lng/lat form a usable WGS84 point.
func ValidCoordinates(lng, lat float64) bool {
	return lng >= -180 && lng <= 180 && lat >= -90 && lat <= 90
}

// Round2 rounds to two decimal places, used for distances and rating averages.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
