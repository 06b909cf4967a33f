package engine

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"go-sim-core/internal/action"
	"go-sim-core/internal/config"
	"go-sim-core/internal/core"
	"go-sim-core/internal/outcome"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newEngine(t *testing.T, opts ...Option) (*Engine, *clock) {
	t.Helper()
	cfg := config.Default()
	cfg.DataRoot = t.TempDir()
	c := &clock{now: time.Unix(1_700_000_000, 0)}
	e, err := New(cfg, nil, append([]Option{WithClock(c.Now), WithSeed(1)}, opts...)...)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	t.Cleanup(func() { e.Close() })
	return e, c
}

func TestCooldownScenarios(t *testing.T) {
	e, c := newEngine(t)
	ctx := context.Background()

	if secs, err := e.CheckCooldown(ctx, "u1", "farm", "plant"); err != nil || secs != 0 {
		t.Fatalf("expected no cooldown, got %d %v", secs, err)
	}
	if err := e.SetCooldown(ctx, "u1", "farm", "plant", 5); err != nil {
		t.Fatalf("set cooldown: %v", err)
	}
	secs, err := e.CheckCooldown(ctx, "u1", "farm", "plant")
	if err != nil || secs <= 0 || secs > 5 {
		t.Fatalf("expected (0,5], got %d %v", secs, err)
	}
	c.Advance(6 * time.Second)
	if secs, _ := e.CheckCooldown(ctx, "u1", "farm", "plant"); secs != 0 {
		t.Fatalf("expected expiry, got %d", secs)
	}
}

func TestDocumentScenarios(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	if _, ok, err := e.LoadDocument(ctx, "users", "u1"); ok || err != nil {
		t.Fatalf("expected absent, got %v %v", ok, err)
	}
	if err := e.SaveDocument(ctx, "users", "u1", []byte(`{"money":100}`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := <-e.AsyncSaveDocument(ctx, "users", "u1", []byte(`{"money":150}`)); err != nil {
		t.Fatalf("async save: %v", err)
	}
	res := <-e.AsyncLoadDocument(ctx, "users", "u1")
	if res.Err != nil {
		t.Fatalf("async load: %v", res.Err)
	}
	var got map[string]any
	if err := json.Unmarshal(res.Doc, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 || got["money"] != float64(150) {
		t.Fatalf("expected {money:150}, got %v", got)
	}
	keys, err := e.ListKeys(ctx, "users")
	if err != nil || len(keys) != 1 || keys[0] != "u1" {
		t.Fatalf("list: %v %v", keys, err)
	}
	if err := e.DeleteDocument(ctx, "users", "u1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
}

func TestUpdateSerializesIncrements(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()
	type wallet struct {
		Money int `json:"money"`
	}
	incr := func(doc []byte, exists bool) ([]byte, error) {
		var w wallet
		if exists {
			if err := json.Unmarshal(doc, &w); err != nil {
				return nil, err
			}
		}
		w.Money += 10
		return json.Marshal(w)
	}
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := e.Update(ctx, "users", "u1", incr); err != nil {
				t.Errorf("update: %v", err)
			}
		}()
	}
	wg.Wait()
	doc, _, _ := e.LoadDocument(ctx, "users", "u1")
	var w wallet
	if err := json.Unmarshal(doc, &w); err != nil || w.Money != 20 {
		t.Fatalf("expected 20, got %s", doc)
	}
}

func TestRunWithRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	e, _ := newEngine(t, WithRedisClient(client))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := e.Bus().SubscribePattern(ctx, "sim.action.*")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	ref := action.DocRef{Namespace: "farms", Key: "u1"}
	plant := action.Action{
		Actor: "u1", Scope: "farm", Name: "plant", Cooldown: 5 * time.Second,
		Documents: []action.DocRef{ref},
		Resolve: func(ctx context.Context, st *action.State, src outcome.Source) (any, error) {
			return outcome.WeightedChoice(src, []string{"wheat"}, []float64{3})
		},
		Mutate: func(ctx context.Context, st *action.State, r any) error {
			return st.Encode(ref, map[string]any{"crop": r})
		},
	}
	res, err := e.Run(ctx, plant)
	if err != nil || !res.Done() || res.Outcome != "wheat" {
		t.Fatalf("run: %v %+v", err, res)
	}
	if ttl := mr.TTL(core.CooldownKey("u1", "farm", "plant")); ttl != 5*time.Second {
		t.Fatalf("expected redis TTL 5s, got %v", ttl)
	}
	select {
	case ev := <-events:
		if ev.ID != res.ID || ev.Type != core.EventActionDone {
			t.Fatalf("unexpected event %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for action event")
	}

	res, _ = e.Run(ctx, plant)
	if res.State != action.StateRejectedCooldown {
		t.Fatalf("expected cooldown rejection, got %s", res.State)
	}
	mr.FastForward(6 * time.Second)
	if secs, _ := e.CheckCooldown(ctx, "u1", "farm", "plant"); secs != 0 {
		t.Fatalf("expected expiry, got %d", secs)
	}
}

func TestRedisDocumentBackend(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()
	cfg := config.Default()
	cfg.DataRoot = t.TempDir()
	cfg.DocBackend = config.BackendRedis
	cfg.RedisAddr = mr.Addr()
	e, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer e.Close()
	ctx := context.Background()
	if err := e.SaveDocument(ctx, "pets", "p1", []byte(`{"name":"mochi"}`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if !mr.Exists("doc:pets:p1") {
		t.Fatal("expected document in redis")
	}
	doc, ok, err := e.LoadDocument(ctx, "pets", "p1")
	if err != nil || !ok || string(doc) != `{"name":"mochi"}` {
		t.Fatalf("load: %s %v %v", doc, ok, err)
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	cfg := config.Default()
	cfg.CooldownPolicy = "whatever"
	if _, err := New(cfg, nil); err == nil {
		t.Fatal("expected config error")
	}
}
