package marker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"backend-heggeo/internal/location"
	"backend-heggeo/internal/shared/geo"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	storeTimeout = 5 * time.Second
	recordGrace  = time.Minute
)

// Timer is the cancel handle kept alongside the active marker.
type Timer interface {
	Stop() bool
}

// ExpiryFunc is called once per expired marker, outside the manager lock.
type ExpiryFunc func(owner string, m Marker)

type Option func(*Manager)

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithScheduler replaces time.AfterFunc for the expiry timer.
func WithScheduler(schedule func(time.Duration, func()) Timer) Option {
	return func(m *Manager) { m.schedule = schedule }
}

func WithExpiryHandler(fn ExpiryFunc) Option {
	return func(m *Manager) { m.onExpire = fn }
}

func WithLogger(log zerolog.Logger) Option {
	return func(m *Manager) { m.log = log }
}

// Manager owns zero or one active marker for a single owner.
type Manager struct {
	owner    string
	store    Store
	log      zerolog.Logger
	now      func() time.Time
	schedule func(time.Duration, func()) Timer
	onExpire ExpiryFunc

	mu     sync.Mutex
	active *Marker
	timer  Timer
	closed bool
}

func NewManager(owner string, store Store, opts ...Option) *Manager {
	m := &Manager{
		owner: owner,
		store: store,
		log:   zerolog.Nop(),
		now:   time.Now,
		schedule: func(d time.Duration, f func()) Timer {
			return time.AfterFunc(d, f)
		},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) Owner() string {
	return m.owner
}

func (m *Manager) Create(ctx context.Context, loc *geo.Point, lifespan Lifespan) (Marker, error) {
	if loc == nil {
		return Marker{}, location.ErrNoLocation
	}
	if d, ok := lifespan.Duration(); ok && d <= 0 {
		return Marker{}, ErrInvalidLifespan
	}

	m.mu.Lock()
	now := m.now()
	expired := m.syncLocked(ctx, now)
	if m.active != nil {
		m.mu.Unlock()
		m.notifyExpired(expired)
		return Marker{}, ErrAlreadyActive
	}

	created := Marker{
		ID:        uuid.NewString(),
		Latitude:  loc.Latitude,
		Longitude: loc.Longitude,
		CreatedAt: time.UnixMilli(now.UnixMilli()),
		Lifespan:  lifespan,
	}
	if !m.claimLocked(ctx, created, now) {
		// another instance won the slot between our read and the claim
		late := m.syncLocked(ctx, now)
		m.mu.Unlock()
		m.notifyExpired(expired)
		m.notifyExpired(late)
		return Marker{}, ErrAlreadyActive
	}
	m.active = &created
	m.scheduleLocked(created, now)
	m.mu.Unlock()

	m.notifyExpired(expired)
	return created, nil
}

// Clear removes the active marker. It reports whether one was removed.
func (m *Manager) Clear(ctx context.Context) bool {
	m.mu.Lock()
	expired := m.syncLocked(ctx, m.now())
	m.stopTimerLocked()
	cleared := m.active != nil
	if cleared {
		m.active = nil
		m.deleteLocked(ctx)
	}
	m.mu.Unlock()

	m.notifyExpired(expired)
	return cleared
}

// Active returns the current marker after applying any due expiry.
func (m *Manager) Active(ctx context.Context) *Marker {
	m.mu.Lock()
	expired := m.syncLocked(ctx, m.now())
	var current *Marker
	if m.active != nil {
		cp := *m.active
		current = &cp
	}
	m.mu.Unlock()

	m.notifyExpired(expired)
	return current
}

func (m *Manager) AttachPhoto(ctx context.Context, url string) (Marker, error) {
	m.mu.Lock()
	now := m.now()
	expired := m.syncLocked(ctx, now)
	if m.active == nil {
		m.mu.Unlock()
		m.notifyExpired(expired)
		return Marker{}, ErrNoActiveMarker
	}
	m.active.PhotoURL = url
	updated := *m.active
	m.persistLocked(ctx, updated, now)
	m.mu.Unlock()
	return updated, nil
}

// LoadPersisted restores a stored marker. Unreadable or already expired
// records are deleted and reported as absent.
func (m *Manager) LoadPersisted(ctx context.Context) (*Marker, error) {
	data, err := m.store.Load(ctx, m.owner)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	stored := m.decodeLocked(ctx, data)
	if stored == nil {
		return nil, nil
	}
	now := m.now()
	if IsExpired(*stored, now) {
		if _, err := m.store.DeleteIf(ctx, m.owner, sameMarker(stored.ID)); err != nil {
			m.log.Warn().Err(err).Str("owner", m.owner).Msg("delete geo record")
		}
		return nil, nil
	}

	m.stopTimerLocked()
	m.active = stored
	m.scheduleLocked(*stored, now)
	cp := *stored
	return &cp, nil
}

// CheckExpiry applies expiry at now. Only the call that performs the
// transition returns true.
func (m *Manager) CheckExpiry(now time.Time) bool {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	m.mu.Lock()
	expired := m.syncLocked(ctx, now)
	m.mu.Unlock()

	m.notifyExpired(expired)
	return expired != nil
}

// Close cancels the pending expiry timer. The marker stays persisted.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.stopTimerLocked()
}

func (m *Manager) idle() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active == nil && m.timer == nil
}

// syncLocked replaces local state with the shared record, then applies
// expiry. Local state stands in only while the store is unreachable.
func (m *Manager) syncLocked(ctx context.Context, now time.Time) *Marker {
	data, err := m.store.Load(ctx, m.owner)
	switch {
	case errors.Is(err, ErrNotFound):
		// cleared or expired elsewhere
		m.stopTimerLocked()
		m.active = nil
		return nil
	case err != nil:
		m.log.Warn().Err(err).Str("owner", m.owner).Msg("load geo record")
		return m.expireLocked(ctx, now)
	}

	stored := m.decodeLocked(ctx, data)
	switch {
	case stored == nil:
		m.stopTimerLocked()
		m.active = nil
	case m.active != nil && m.active.ID == stored.ID:
		m.active = stored
	default:
		m.active = stored
		m.scheduleLocked(*stored, now)
	}
	return m.expireLocked(ctx, now)
}

// expireLocked drops a due marker. Only the instance that removes the
// shared record reports the expiry.
func (m *Manager) expireLocked(ctx context.Context, now time.Time) *Marker {
	if m.active == nil || !IsExpired(*m.active, now) {
		return nil
	}
	expired := *m.active
	m.active = nil
	m.stopTimerLocked()

	removed, err := m.store.DeleteIf(ctx, m.owner, sameMarker(expired.ID))
	if err != nil {
		m.log.Warn().Err(err).Str("owner", m.owner).Msg("delete geo record")
		return &expired
	}
	if !removed {
		return nil
	}
	return &expired
}

func (m *Manager) notifyExpired(expired *Marker) {
	if expired == nil {
		return
	}
	m.log.Info().Str("owner", m.owner).Str("geo_id", expired.ID).Msg("geo expired")
	if m.onExpire != nil {
		m.onExpire(m.owner, *expired)
	}
}

func (m *Manager) scheduleLocked(mk Marker, now time.Time) {
	m.stopTimerLocked()
	at, ok := mk.ExpiresAt()
	if !ok || m.closed {
		return
	}
	id := mk.ID
	m.timer = m.schedule(at.Sub(now), func() { m.fire(id) })
}

// fire runs on the timer goroutine. A wall clock that lags the timer
// reschedules instead of expiring early.
func (m *Manager) fire(id string) {
	now := m.now()
	if m.CheckExpiry(now) {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active != nil && m.active.ID == id {
		m.scheduleLocked(*m.active, now)
	}
}

func (m *Manager) stopTimerLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

func (m *Manager) persistLocked(ctx context.Context, mk Marker, now time.Time) {
	data, err := json.Marshal(mk)
	if err != nil {
		m.log.Warn().Err(err).Str("owner", m.owner).Msg("encode geo record")
		return
	}
	if err := m.store.Save(ctx, m.owner, data, recordTTL(mk, now)); err != nil {
		m.log.Warn().Err(err).Str("owner", m.owner).Msg("persist geo record")
	}
}

// claimLocked reports false only when another record holds the slot. Store
// failures are logged and the in-memory marker stays authoritative.
func (m *Manager) claimLocked(ctx context.Context, mk Marker, now time.Time) bool {
	data, err := json.Marshal(mk)
	if err != nil {
		m.log.Warn().Err(err).Str("owner", m.owner).Msg("encode geo record")
		return true
	}
	claimed, err := m.store.Claim(ctx, m.owner, data, recordTTL(mk, now))
	if err != nil {
		m.log.Warn().Err(err).Str("owner", m.owner).Msg("persist geo record")
		return true
	}
	return claimed
}

func (m *Manager) deleteLocked(ctx context.Context) {
	if err := m.store.Delete(ctx, m.owner); err != nil {
		m.log.Warn().Err(err).Str("owner", m.owner).Msg("delete geo record")
	}
}

// decodeLocked returns nil for an unreadable record and deletes it.
func (m *Manager) decodeLocked(ctx context.Context, data []byte) *Marker {
	var stored Marker
	if err := json.Unmarshal(data, &stored); err != nil {
		m.log.Warn().Err(err).Str("owner", m.owner).Msg("discarding unreadable geo record")
		m.deleteLocked(ctx)
		return nil
	}
	return &stored
}

// recordTTL keeps a bounded record for recordGrace past its expiry so the
// instance that deletes it can be told apart from the others.
func recordTTL(mk Marker, now time.Time) time.Duration {
	left, ok := Remaining(mk, now)
	if !ok {
		return 0
	}
	return left + recordGrace
}

func sameMarker(id string) func([]byte) bool {
	return func(data []byte) bool {
		var r struct {
			ID string `json:"id"`
		}
		return json.Unmarshal(data, &r) == nil && r.ID == id
	}
}
