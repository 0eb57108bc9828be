package marker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrNotFound = errors.New("marker record not found")

// Store persists the opaque active-marker record per owner and is shared by
// every instance. ttl is a hint; zero means keep until deleted.
type Store interface {
	Load(ctx context.Context, owner string) ([]byte, error)
	Save(ctx context.Context, owner string, data []byte, ttl time.Duration) error
	// Claim writes data only when the owner has no record. It reports false
	// when another record already holds the slot.
	Claim(ctx context.Context, owner string, data []byte, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, owner string) error
	// DeleteIf removes the record only while match accepts its current
	// contents, and reports whether it did.
	DeleteIf(ctx context.Context, owner string, match func([]byte) bool) (bool, error)
}

type RedisStore struct {
	redis *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{redis: client}
}

func (s *RedisStore) Load(ctx context.Context, owner string) ([]byte, error) {
	data, err := s.redis.Get(ctx, storeKey(owner)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	return data, err
}

func (s *RedisStore) Save(ctx context.Context, owner string, data []byte, ttl time.Duration) error {
	return s.redis.Set(ctx, storeKey(owner), data, ttl).Err()
}

func (s *RedisStore) Claim(ctx context.Context, owner string, data []byte, ttl time.Duration) (bool, error) {
	return s.redis.SetNX(ctx, storeKey(owner), data, ttl).Result()
}

func (s *RedisStore) Delete(ctx context.Context, owner string) error {
	return s.redis.Del(ctx, storeKey(owner)).Err()
}

func (s *RedisStore) DeleteIf(ctx context.Context, owner string, match func([]byte) bool) (bool, error) {
	key := storeKey(owner)
	removed := false
	err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		if !match(data) {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			return nil
		})
		removed = err == nil
		return err
	}, key)
	// the record changed under us; whoever changed it owns the outcome
	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	return removed, err
}

func storeKey(owner string) string {
	return "heggeo:active_geo:" + owner
}

// MemoryStore keeps records for the lifetime of the process. TTLs are ignored.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: map[string][]byte{}}
}

func (s *MemoryStore) Load(_ context.Context, owner string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.records[owner]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

func (s *MemoryStore) Save(_ context.Context, owner string, data []byte, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[owner] = append([]byte(nil), data...)
	return nil
}

func (s *MemoryStore) Claim(_ context.Context, owner string, data []byte, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[owner]; ok {
		return false, nil
	}
	s.records[owner] = append([]byte(nil), data...)
	return true, nil
}

func (s *MemoryStore) Delete(_ context.Context, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, owner)
	return nil
}

func (s *MemoryStore) DeleteIf(_ context.Context, owner string, match func([]byte) bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.records[owner]
	if !ok || !match(data) {
		return false, nil
	}
	delete(s.records, owner)
	return true, nil
}
