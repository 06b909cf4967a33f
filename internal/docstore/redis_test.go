package docstore

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	s, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(s.Close)
	store := NewRedisStore(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRedisSaveLoadVersion(t *testing.T) {
	store := newRedisStore(t)
	ctx := context.Background()
	ver, err := store.SaveVersion(ctx, "users", "u1", []byte(`{"money":100}`))
	if err != nil || ver != 1 {
		t.Fatalf("save: ver=%d err=%v", ver, err)
	}
	if err := store.Save(ctx, "users", "u1", []byte(`{"money":150}`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, _, err := Get[wallet](ctx, store, "users", "u1")
	if err != nil || got.Money != 150 {
		t.Fatalf("load: %+v err %v", got, err)
	}
	if v, _ := store.Version(ctx, "users", "u1"); v != 2 {
		t.Fatalf("expected version 2, got %d", v)
	}
}

func TestRedisNotFoundListDelete(t *testing.T) {
	store := newRedisStore(t)
	ctx := context.Background()
	if _, err := store.Load(ctx, "users", "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	for _, k := range []string{"b", "a"} {
		if err := store.Save(ctx, "pets", k, []byte(`{}`)); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	if err := store.Delete(ctx, "pets", "b"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	keys, err := store.ListKeys(ctx, "pets")
	if err != nil || !reflect.DeepEqual(keys, []string{"a"}) {
		t.Fatalf("list: %v err %v", keys, err)
	}
	if err := store.Save(ctx, "pets", "a", []byte(`nope`)); !errors.Is(err, ErrInvalidDocument) {
		t.Fatalf("expected ErrInvalidDocument, got %v", err)
	}
}
