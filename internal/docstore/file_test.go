package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
)

type wallet struct {
	Money int `json:"money"`
}

func newFileStore(t *testing.T) *FileStore {
	t.Helper()
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return s
}

func TestSaveReplacesDocument(t *testing.T) {
	s := newFileStore(t)
	ctx := context.Background()
	if err := s.Save(ctx, "users", "u1", []byte(`{"money":100,"name":"ann"}`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.Save(ctx, "users", "u1", []byte(`{"money":150}`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	data, err := s.Load(ctx, "users", "u1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(got, map[string]any{"money": float64(150)}) {
		t.Fatalf("expected full replace, got %v", got)
	}
}

func TestRoundTrip(t *testing.T) {
	s := newFileStore(t)
	ctx := context.Background()
	type plot struct {
		Crop  string  `json:"crop"`
		Water float64 `json:"water"`
	}
	type farm struct {
		Level int               `json:"level"`
		Plots []plot            `json:"plots"`
		Tags  map[string]string `json:"tags"`
		Note  string            `json:"note"`
	}
	in := farm{Level: 3, Plots: []plot{{"wheat", 42.5}, {"", 0}}, Tags: map[string]string{"k": "v"}, Note: "农场"}
	if err := Put(ctx, s, "farms", "u1", in); err != nil {
		t.Fatalf("put: %v", err)
	}
	out, ok, err := Get[farm](ctx, s, "farms", "u1")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Fatalf("round trip mismatch:\n in %+v\nout %+v", in, out)
	}
}

func TestLoadAbsent(t *testing.T) {
	s := newFileStore(t)
	ctx := context.Background()
	if _, err := s.Load(ctx, "users", "nobody"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	_, ok, err := Get[wallet](ctx, s, "users", "nobody")
	if err != nil || ok {
		t.Fatalf("expected absent, got ok=%v err=%v", ok, err)
	}
}

func TestFileLayoutIsReadable(t *testing.T) {
	s := newFileStore(t)
	if err := s.Save(context.Background(), "users", "u1", []byte(`{"money":1}`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	raw, err := os.ReadFile(filepath.Join(s.Root(), "users", "u1.json"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(raw) != "{\n  \"money\": 1\n}" {
		t.Fatalf("unexpected file content %q", raw)
	}
}

func TestInvalidInput(t *testing.T) {
	s := newFileStore(t)
	ctx := context.Background()
	for _, k := range []string{"", "..", "../etc", "a/b", ".hidden", `a\b`} {
		if err := s.Save(ctx, "users", k, []byte(`{}`)); !errors.Is(err, ErrInvalidKey) {
			t.Fatalf("key %q: expected ErrInvalidKey, got %v", k, err)
		}
	}
	if err := s.Save(ctx, "users", "u1", []byte(`{"money":`)); !errors.Is(err, ErrInvalidDocument) {
		t.Fatalf("expected ErrInvalidDocument, got %v", err)
	}
	if _, err := s.Load(ctx, "users", "u1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("rejected save must not create a file, got %v", err)
	}
}

func TestListKeysAndDelete(t *testing.T) {
	s := newFileStore(t)
	ctx := context.Background()
	keys, err := s.ListKeys(ctx, "market")
	if err != nil || len(keys) != 0 {
		t.Fatalf("expected empty list, got %v %v", keys, err)
	}
	for _, k := range []string{"l3", "l1", "l2"} {
		if err := s.Save(ctx, "market", k, []byte(`{}`)); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	if err := s.Delete(ctx, "market", "l2"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete(ctx, "market", "l2"); err != nil {
		t.Fatalf("second delete: %v", err)
	}
	keys, err = s.ListKeys(ctx, "market")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !reflect.DeepEqual(keys, []string{"l1", "l3"}) {
		t.Fatalf("unexpected keys %v", keys)
	}
}

func TestRootFiles(t *testing.T) {
	s := newFileStore(t)
	ctx := context.Background()
	var m map[string]int64
	ok, err := s.LoadRoot(ctx, "cooldowns", &m)
	if err != nil || ok {
		t.Fatalf("expected missing root file, got ok=%v err=%v", ok, err)
	}
	if err := s.SaveRoot(ctx, "cooldowns", map[string]int64{"a": 1}); err != nil {
		t.Fatalf("save root: %v", err)
	}
	if ok, err := s.LoadRoot(ctx, "cooldowns", &m); err != nil || !ok || m["a"] != 1 {
		t.Fatalf("load root: ok=%v err=%v m=%v", ok, err, m)
	}
	if _, err := os.Stat(filepath.Join(s.Root(), "cooldowns.json")); err != nil {
		t.Fatalf("expected root/cooldowns.json: %v", err)
	}
}

func TestLockedIncrementsAreNotLost(t *testing.T) {
	s := newFileStore(t)
	locks := NewKeyedMutex()
	ctx := context.Background()
	if err := Put(ctx, s, "users", "u1", wallet{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := locks.Lock(ctx, LockKey("users", "u1"))
			if err != nil {
				errs <- err
				return
			}
			defer release()
			w, _, err := Get[wallet](ctx, s, "users", "u1")
			if err != nil {
				errs <- err
				return
			}
			w.Money += 10
			errs <- Put(ctx, s, "users", "u1", w)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("increment: %v", err)
		}
	}
	w, _, _ := Get[wallet](ctx, s, "users", "u1")
	if w.Money != 20 {
		t.Fatalf("expected 20, got %d", w.Money)
	}
}
