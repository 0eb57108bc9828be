package marker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	store := NewRedisStore(client)
	ctx := context.Background()

	if _, err := store.Load(ctx, "user-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := store.Save(ctx, "user-1", []byte(`{"id":"g1"}`), time.Minute); err != nil {
		t.Fatalf("save: %v", err)
	}
	if ttl := mr.TTL("heggeo:active_geo:user-1"); ttl != time.Minute {
		t.Fatalf("expected 1m ttl, got %v", ttl)
	}
	data, err := store.Load(ctx, "user-1")
	if err != nil || string(data) != `{"id":"g1"}` {
		t.Fatalf("load: %s (%v)", data, err)
	}

	mr.FastForward(time.Minute)
	if _, err := store.Load(ctx, "user-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("record must expire with its ttl")
	}

	_ = store.Save(ctx, "user-1", []byte(`x`), 0)
	if err := store.Delete(ctx, "user-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if mr.Exists("heggeo:active_geo:user-1") {
		t.Fatalf("record must be gone")
	}
}

func TestManagerOverRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	store := NewRedisStore(client)
	m, _, _, _ := newTestManager(t, store)
	created, err := m.Create(context.Background(), here, Bounded(30*time.Minute))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if ttl := mr.TTL("heggeo:active_geo:user-1"); ttl != 30*time.Minute+recordGrace {
		t.Fatalf("record ttl must cover the remaining lifespan plus grace, got %v", ttl)
	}

	restored, _, _, _ := newTestManager(t, store)
	got, err := restored.LoadPersisted(context.Background())
	if err != nil || got == nil || got.ID != created.ID {
		t.Fatalf("restore over redis: %+v (%v)", got, err)
	}
}

func TestRedisStoreClaimAndDeleteIf(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	store := NewRedisStore(client)
	ctx := context.Background()

	ok, err := store.Claim(ctx, "user-1", []byte(`{"id":"g1"}`), time.Minute)
	if err != nil || !ok {
		t.Fatalf("first claim must win: %v", err)
	}
	if ttl := mr.TTL("heggeo:active_geo:user-1"); ttl != time.Minute {
		t.Fatalf("claim must set the ttl, got %v", ttl)
	}
	if ok, err := store.Claim(ctx, "user-1", []byte(`{"id":"g2"}`), time.Minute); err != nil || ok {
		t.Fatalf("second claim must lose: %v", err)
	}

	if removed, err := store.DeleteIf(ctx, "user-1", sameMarker("g2")); err != nil || removed {
		t.Fatalf("a different marker must not be removed: %v", err)
	}
	if removed, err := store.DeleteIf(ctx, "user-1", sameMarker("g1")); err != nil || !removed {
		t.Fatalf("matching marker must be removed: %v", err)
	}
	if removed, err := store.DeleteIf(ctx, "user-1", sameMarker("g1")); err != nil || removed {
		t.Fatalf("nothing left to remove: %v", err)
	}
	if mr.Exists("heggeo:active_geo:user-1") {
		t.Fatalf("record must be gone")
	}
}

func TestMemoryStoreClaimAndDeleteIf(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if ok, _ := store.Claim(ctx, "o", []byte(`{"id":"a"}`), 0); !ok {
		t.Fatalf("first claim must win")
	}
	if ok, _ := store.Claim(ctx, "o", []byte(`{"id":"b"}`), 0); ok {
		t.Fatalf("second claim must lose")
	}
	if removed, _ := store.DeleteIf(ctx, "o", sameMarker("b")); removed {
		t.Fatalf("mismatched delete must keep the record")
	}
	if removed, _ := store.DeleteIf(ctx, "o", sameMarker("a")); !removed {
		t.Fatalf("matching delete must remove the record")
	}
}

func TestMemoryStoreCopies(t *testing.T) {
	store := NewMemoryStore()
	buf := []byte("abc")
	_ = store.Save(context.Background(), "o", buf, 0)
	buf[0] = 'z'
	data, _ := store.Load(context.Background(), "o")
	if string(data) != "abc" {
		t.Fatalf("store must copy input, got %s", data)
	}
}
