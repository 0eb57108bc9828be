package location

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"backend-heggeo/internal/shared/geo"

	"github.com/redis/go-redis/v9"
)

var (
	ErrNoLocation         = errors.New("current location unknown")
	ErrInvalidCoordinates = errors.New("latitude must be within [-90,90] and longitude within [-180,180]")
)

type Report struct {
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	AccuracyM  float64   `json:"accuracy_m,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

func (r Report) Point() geo.Point {
	return geo.Point{Latitude: r.Latitude, Longitude: r.Longitude}
}

// Service keeps the last position each device reported. Reports older than
// ttl are forgotten; reporting again is how a client refreshes it.
type Service struct {
	redis *redis.Client
	ttl   time.Duration
	now   func() time.Time

	mu     sync.RWMutex
	memory map[string]Report
}

func NewService(redisClient *redis.Client, ttl time.Duration) *Service {
	return &Service{
		redis:  redisClient,
		ttl:    ttl,
		now:    time.Now,
		memory: map[string]Report{},
	}
}

func (s *Service) Report(ctx context.Context, owner string, input Report) (Report, error) {
	if !geo.ValidLatLon(input.Latitude, input.Longitude) {
		return Report{}, ErrInvalidCoordinates
	}
	if input.RecordedAt.IsZero() {
		input.RecordedAt = s.now()
	}

	if s.redis == nil {
		s.mu.Lock()
		s.memory[owner] = input
		s.mu.Unlock()
		return input, nil
	}

	payload, err := json.Marshal(input)
	if err != nil {
		return Report{}, err
	}
	if err := s.redis.Set(ctx, locationKey(owner), payload, s.ttl).Err(); err != nil {
		return Report{}, err
	}
	return input, nil
}

func (s *Service) Last(ctx context.Context, owner string) (Report, error) {
	if s.redis == nil {
		s.mu.RLock()
		r, ok := s.memory[owner]
		s.mu.RUnlock()
		if !ok || s.stale(r) {
			return Report{}, ErrNoLocation
		}
		return r, nil
	}

	data, err := s.redis.Get(ctx, locationKey(owner)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Report{}, ErrNoLocation
	}
	if err != nil {
		return Report{}, err
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		_ = s.redis.Del(ctx, locationKey(owner)).Err()
		return Report{}, ErrNoLocation
	}
	return r, nil
}

func (s *Service) Current(ctx context.Context, owner string) (geo.Point, error) {
	r, err := s.Last(ctx, owner)
	if err != nil {
		return geo.Point{}, err
	}
	return r.Point(), nil
}

func (s *Service) stale(r Report) bool {
	return s.ttl > 0 && s.now().Sub(r.RecordedAt) > s.ttl
}

func locationKey(owner string) string {
	return "heggeo:location:" + owner
}
