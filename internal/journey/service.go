package journey

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"backend-heggeo/internal/shared/geo"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const routeOK = "Ok"

type Geocoder interface {
	Search(ctx context.Context, text string) ([]geo.Place, error)
	Reverse(ctx context.Context, lat, lon float64) (geo.Place, error)
}

type Router interface {
	Route(ctx context.Context, from, to geo.Point) (geo.Directions, error)
}

// Service resolves two descriptors and asks the router for one route
// between them. It keeps no state between lookups.
type Service struct {
	geocoder Geocoder
	router   Router
	log      zerolog.Logger
}

func NewService(geocoder Geocoder, router Router, log zerolog.Logger) *Service {
	return &Service{geocoder: geocoder, router: router, log: log}
}

func (s *Service) Lookup(ctx context.Context, source, destination string) (Result, error) {
	source = strings.TrimSpace(source)
	destination = strings.TrimSpace(destination)
	if source == "" || destination == "" {
		return Result{}, &Error{Kind: ErrMissingInput, Message: "Source and destination addresses are required."}
	}

	var from, to Endpoint
	var fromErr error
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		from, fromErr = s.resolve(gctx, SideSource, source)
		return fromErr
	})
	g.Go(func() (err error) {
		to, err = s.resolve(gctx, SideDestination, destination)
		return err
	})
	if err := g.Wait(); err != nil {
		// a source failure outranks the destination, unless it was only
		// cancelled because the destination failed first
		if fromErr != nil && !errors.Is(fromErr, context.Canceled) {
			return Result{}, fromErr
		}
		return Result{}, err
	}

	dirs, err := s.router.Route(ctx,
		geo.Point{Latitude: from.Latitude, Longitude: from.Longitude},
		geo.Point{Latitude: to.Latitude, Longitude: to.Longitude},
	)
	if err != nil {
		s.log.Error().Err(err).Msg("routing request failed")
		return Result{}, &Error{
			Kind:    ErrTransportFailure,
			Message: "Failed to get directions from the routing provider.",
			Err:     err,
		}
	}
	if dirs.Code != routeOK || len(dirs.Routes) == 0 {
		s.log.Info().Str("code", dirs.Code).Str("message", dirs.Message).Msg("no route")
		return Result{}, &Error{Kind: ErrNoRoute, Message: noRouteMessage(dirs)}
	}

	best := dirs.Routes[0]
	return Result{
		DistanceMeters:  best.DistanceMeters,
		DurationSeconds: int64(math.Round(best.DurationSeconds)),
		SourceName:      from.DisplayName,
		DestinationName: to.DisplayName,
		Source:          from,
		Destination:     to,
	}, nil
}

func (s *Service) resolve(ctx context.Context, side Side, input string) (Endpoint, error) {
	if lat, lon, ok := ParseCoordinates(input); ok {
		return Endpoint{Latitude: lat, Longitude: lon, DisplayName: s.reverseName(ctx, lat, lon)}, nil
	}

	places, err := s.geocoder.Search(ctx, input)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			s.log.Error().Err(err).Str("side", string(side)).Str("input", input).Msg("geocoding request failed")
		}
		return Endpoint{}, &Error{
			Kind:    ErrTransportFailure,
			Side:    side,
			Input:   input,
			Message: fmt.Sprintf("Failed to look up the %s address: %s", side, input),
			Err:     err,
		}
	}
	if len(places) == 0 {
		return Endpoint{}, &Error{
			Kind:    ErrUnresolvedLocation,
			Side:    side,
			Input:   input,
			Message: fmt.Sprintf("Could not find coordinates for %s: %s", side, input),
		}
	}
	p := places[0]
	return Endpoint{Latitude: p.Latitude, Longitude: p.Longitude, DisplayName: p.DisplayName}, nil
}

// reverseName never fails: a missing address degrades to the coordinates.
func (s *Service) reverseName(ctx context.Context, lat, lon float64) string {
	place, err := s.geocoder.Reverse(ctx, lat, lon)
	if err == nil && place.DisplayName != "" {
		return place.DisplayName
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		s.log.Debug().Err(err).Float64("lat", lat).Float64("lon", lon).Msg("reverse lookup failed, using coordinates")
	}
	return fmt.Sprintf("Coordinates: %.4f, %.4f", lat, lon)
}

func noRouteMessage(d geo.Directions) string {
	if d.Message != "" {
		return d.Message
	}
	if d.Code != "" && d.Code != routeOK {
		return "No route found or API error: " + d.Code
	}
	return "No route found."
}
