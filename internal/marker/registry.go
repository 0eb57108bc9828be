package marker

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Registry hands out one Manager per owner, restoring persisted state on
// first use. Every Get must be paired with a Release.
type Registry struct {
	store Store
	log   zerolog.Logger
	opts  []Option

	mu       sync.Mutex
	managers map[string]*lease
}

type lease struct {
	m    *Manager
	refs int
}

func NewRegistry(store Store, log zerolog.Logger, opts ...Option) *Registry {
	return &Registry{
		store:    store,
		log:      log,
		opts:     append([]Option{WithLogger(log)}, opts...),
		managers: map[string]*lease{},
	}
}

func (r *Registry) Get(ctx context.Context, owner string) *Manager {
	if m := r.acquire(owner); m != nil {
		return m
	}

	// restore without holding the registry lock
	m := NewManager(owner, r.store, r.opts...)
	if _, err := m.LoadPersisted(ctx); err != nil {
		r.log.Warn().Err(err).Str("owner", owner).Msg("load persisted geo")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.managers[owner]; ok {
		l.refs++
		m.Close()
		return l.m
	}
	r.managers[owner] = &lease{m: m, refs: 1}
	return m
}

func (r *Registry) acquire(owner string) *Manager {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.managers[owner]
	if !ok {
		return nil
	}
	l.refs++
	return l.m
}

// Release ends a Get. Managers nobody holds and that track no marker are
// dropped; the shared store keeps the state.
func (r *Registry) Release(owner string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.managers[owner]
	if !ok {
		return
	}
	if l.refs > 0 {
		l.refs--
	}
	if l.refs == 0 && l.m.idle() {
		delete(r.managers, owner)
	}
}

// Close cancels every pending expiry timer.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for owner, l := range r.managers {
		l.m.Close()
		delete(r.managers, owner)
	}
}

func (r *Registry) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.managers)
}
