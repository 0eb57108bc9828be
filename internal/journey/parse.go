package journey

import (
	"strconv"
	"strings"

	"backend-heggeo/internal/shared/geo"
)

// ParseCoordinates accepts "lat,lon" with optional spaces around either
// number. Anything else is free text for the geocoder.
func ParseCoordinates(s string) (float64, float64, bool) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, false
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, false
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, false
	}
	if !geo.ValidLatLon(lat, lon) {
		return 0, 0, false
	}
	return lat, lon, true
}
