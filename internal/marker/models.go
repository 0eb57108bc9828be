package marker

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"
)

const (
	MinLifespanMinutes     = 5
	MaxLifespanMinutes     = 120
	DefaultLifespanMinutes = 60

	maxLifespanMs = math.MaxInt64 / int64(time.Millisecond)
)

var (
	ErrAlreadyActive   = errors.New("a geo is already active, clear it first")
	ErrNoActiveMarker  = errors.New("no active geo")
	ErrInvalidLifespan = errors.New("invalid lifespan")
)

// Lifespan is either Bounded(d) or Unbounded. The zero value is Unbounded.
type Lifespan struct {
	d       time.Duration
	bounded bool
}

func Bounded(d time.Duration) Lifespan {
	return Lifespan{d: d, bounded: true}
}

func Unbounded() Lifespan {
	return Lifespan{}
}

// LifespanFromMinutes mirrors the drop form: a minute count within
// [MinLifespanMinutes, MaxLifespanMinutes], or no expiry at all.
func LifespanFromMinutes(minutes int, noExpiry bool) (Lifespan, error) {
	if noExpiry {
		return Unbounded(), nil
	}
	if minutes == 0 {
		minutes = DefaultLifespanMinutes
	}
	if minutes < MinLifespanMinutes || minutes > MaxLifespanMinutes {
		return Lifespan{}, fmt.Errorf("%w: %d minutes, expected %d-%d", ErrInvalidLifespan, minutes, MinLifespanMinutes, MaxLifespanMinutes)
	}
	return Bounded(time.Duration(minutes) * time.Minute), nil
}

func (l Lifespan) Duration() (time.Duration, bool) {
	return l.d, l.bounded
}

func (l Lifespan) IsBounded() bool {
	return l.bounded
}

func (l Lifespan) String() string {
	if !l.bounded {
		return "unbounded"
	}
	return l.d.String()
}

// MarshalJSON writes milliseconds, or null for Unbounded.
func (l Lifespan) MarshalJSON() ([]byte, error) {
	if !l.bounded {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatInt(l.d.Milliseconds(), 10)), nil
}

func (l *Lifespan) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*l = Unbounded()
		return nil
	}
	var ms float64
	if err := json.Unmarshal(data, &ms); err != nil {
		return fmt.Errorf("lifespan: %w", err)
	}
	if ms < 0 {
		return fmt.Errorf("lifespan: negative value %v", ms)
	}
	if ms > float64(maxLifespanMs) {
		return fmt.Errorf("lifespan: %v ms out of range", ms)
	}
	*l = Bounded(time.Duration(ms) * time.Millisecond)
	return nil
}

type Marker struct {
	ID        string
	Latitude  float64
	Longitude float64
	CreatedAt time.Time
	Lifespan  Lifespan
	PhotoURL  string
}

// record is the persisted and wire shape of a Marker.
type record struct {
	ID         string   `json:"id"`
	Latitude   float64  `json:"latitude"`
	Longitude  float64  `json:"longitude"`
	CreatedAt  int64    `json:"createdAt"`
	LifespanMs Lifespan `json:"lifespanMs"`
	PhotoURL   string   `json:"photoUrl,omitempty"`
}

func (m Marker) MarshalJSON() ([]byte, error) {
	return json.Marshal(record{
		ID:         m.ID,
		Latitude:   m.Latitude,
		Longitude:  m.Longitude,
		CreatedAt:  m.CreatedAt.UnixMilli(),
		LifespanMs: m.Lifespan,
		PhotoURL:   m.PhotoURL,
	})
}

func (m *Marker) UnmarshalJSON(data []byte) error {
	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	if r.ID == "" || r.CreatedAt <= 0 {
		return errors.New("marker record missing id or createdAt")
	}
	*m = Marker{
		ID:        r.ID,
		Latitude:  r.Latitude,
		Longitude: r.Longitude,
		CreatedAt: time.UnixMilli(r.CreatedAt),
		Lifespan:  r.LifespanMs,
		PhotoURL:  r.PhotoURL,
	}
	return nil
}

// ExpiresAt reports the expiry instant; false for an unbounded marker.
func (m Marker) ExpiresAt() (time.Time, bool) {
	d, ok := m.Lifespan.Duration()
	if !ok {
		return time.Time{}, false
	}
	return m.CreatedAt.Add(d), true
}

func IsExpired(m Marker, now time.Time) bool {
	at, ok := m.ExpiresAt()
	if !ok {
		return false
	}
	return !now.Before(at)
}

// Remaining is the countdown shown next to an active marker, clamped at zero.
func Remaining(m Marker, now time.Time) (time.Duration, bool) {
	at, ok := m.ExpiresAt()
	if !ok {
		return 0, false
	}
	left := at.Sub(now)
	if left < 0 {
		left = 0
	}
	return left, true
}
