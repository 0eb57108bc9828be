package geo

import (
	"math"
	"testing"
)

func TestHaversineKm(t *testing.T) {
	// New York to Paris ~ 5837 km
	d := HaversineKm(40.7128, -74.0060, 48.8566, 2.3522)
	if d < 5800 || d > 5880 {
		t.Fatalf("unexpected distance: %v", d)
	}
	if HaversineKm(1, 1, 1, 1) != 0 {
		t.Fatalf("expected zero distance for identical points")
	}
}

func TestValidLatLon(t *testing.T) {
	if !ValidLatLon(90, -180) || !ValidLatLon(-90, 180) {
		t.Fatalf("expected bounds to be valid")
	}
	if ValidLatLon(90.01, 0) || ValidLatLon(0, 180.5) {
		t.Fatalf("expected out of range to be invalid")
	}
	if ValidLatLon(math.NaN(), 0) {
		t.Fatalf("expected NaN to be invalid")
	}
}

func TestPlacePoint(t *testing.T) {
	p := Place{Latitude: 1.5, Longitude: -2.5, DisplayName: "x"}
	if p.Point() != (Point{Latitude: 1.5, Longitude: -2.5}) {
		t.Fatalf("unexpected point")
	}
}
