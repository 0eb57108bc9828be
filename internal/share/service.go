package share

import (
	"context"

	"backend-heggeo/internal/shared/geo"

	"github.com/rs/zerolog"
)

type Reverser interface {
	Reverse(ctx context.Context, lat, lon float64) (geo.Place, error)
}

type Service struct {
	geocoder Reverser
	appLink  string
	log      zerolog.Logger
}

func NewService(geocoder Reverser, appLink string, log zerolog.Logger) *Service {
	return &Service{geocoder: geocoder, appLink: appLink, log: log}
}

func (s *Service) AppLink() string {
	return s.appLink
}

// Address reverse-geocodes p. ok is false when no usable name came back.
func (s *Service) Address(ctx context.Context, p geo.Point) (string, bool) {
	if s.geocoder == nil {
		return "", false
	}
	place, err := s.geocoder.Reverse(ctx, p.Latitude, p.Longitude)
	if err != nil {
		s.log.Warn().Err(err).Float64("lat", p.Latitude).Float64("lon", p.Longitude).Msg("reverse lookup failed")
		return "", false
	}
	if place.DisplayName == "" {
		return "", false
	}
	return place.DisplayName, true
}

// Describe returns the address of p, or its coordinates to four decimals.
func (s *Service) Describe(ctx context.Context, p geo.Point) string {
	if name, ok := s.Address(ctx, p); ok {
		return name
	}
	return CoordinatesLabel(p.Latitude, p.Longitude, 4)
}

type Link struct {
	Text         string `json:"text"`
	URL          string `json:"url"`
	MapsLink     string `json:"maps_link"`
	LocationText string `json:"location_text"`
}

func (s *Service) MarkerLink(ctx context.Context, p geo.Point, custom string) Link {
	locationText := s.Describe(ctx, p)
	text := MarkerMessage(locationText, p.Latitude, p.Longitude, custom, s.appLink)
	return Link{
		Text:         text,
		URL:          WhatsAppURL("", text),
		MapsLink:     MapsLink(p.Latitude, p.Longitude),
		LocationText: locationText,
	}
}
