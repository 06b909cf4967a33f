// Package engine wires the document store, cooldown gate, bans, outcome
// resolver and action executor from one Config.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"go-sim-core/internal/action"
	"go-sim-core/internal/ban"
	"go-sim-core/internal/config"
	"go-sim-core/internal/cooldown"
	"go-sim-core/internal/docstore"
	"go-sim-core/internal/eventbus"
	"go-sim-core/internal/outcome"
)

// Option customizes New.
type Option func(*options)

type options struct {
	now    func() time.Time
	seed   int64
	client *redis.Client
}

// WithClock replaces time.Now for the file cooldown backend and bans.
func WithClock(now func() time.Time) Option { return func(o *options) { o.now = now } }

// WithSeed fixes the outcome resolver seed.
func WithSeed(seed int64) Option { return func(o *options) { o.seed = seed } }

// WithRedisClient uses client instead of dialing cfg.RedisAddr.
func WithRedisClient(client *redis.Client) Option { return func(o *options) { o.client = client } }

type Engine struct {
	cfg      config.Config
	files    *docstore.FileStore
	store    docstore.Store
	pool     *docstore.Pool
	async    *docstore.Async
	locks    *docstore.KeyedMutex
	gate     *cooldown.Gate
	bans     *ban.List
	resolver *outcome.Resolver
	bus      *eventbus.RedisBus
	client   *redis.Client
	exec     *action.Executor
	logger   *log.Logger
}

// New validates cfg and builds an Engine. Close releases it.
func New(cfg config.Config, logger *log.Logger, opts ...Option) (*Engine, error) {
	if logger == nil {
		logger = log.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	o := options{now: time.Now, seed: time.Now().UnixNano()}
	for _, opt := range opts {
		opt(&o)
	}
	policy, err := cooldown.ParsePolicy(cfg.CooldownPolicy)
	if err != nil {
		return nil, err
	}
	files, err := docstore.NewFileStore(cfg.DataRoot)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:      cfg,
		files:    files,
		store:    files,
		locks:    docstore.NewKeyedMutex(),
		resolver: outcome.NewResolver(o.seed),
		client:   o.client,
		logger:   logger,
	}
	if e.client == nil && cfg.RedisAddr != "" {
		e.client = redis.NewClient(&redis.Options{
			Addr:        cfg.RedisAddr,
			Password:    cfg.RedisPassword,
			DB:          cfg.RedisDB,
			DialTimeout: cfg.RedisTimeout,
		})
	}

	var backends []cooldown.Backend
	if e.client != nil {
		backends = append(backends, cooldown.NewRedisBackend(e.client, cfg.RedisTimeout))
		e.bus = eventbus.NewRedisBus(e.client, logger)
	}
	backends = append(backends, cooldown.NewFileBackend(files, e.locks, o.now))
	e.gate = cooldown.NewGate(backends, policy, cfg.FailClosedRetry, logger)
	logger.Printf("engine: cooldown backends=%d policy=fail-%s", len(backends), policy)

	if cfg.DocBackend == config.BackendRedis {
		if e.client == nil {
			return nil, errors.New("redis document backend without redis client")
		}
		e.store = docstore.NewRedisStoreWithClient(e.client)
	}
	e.pool = docstore.NewPool(cfg.AsyncWorkers, cfg.AsyncQueue, logger)
	e.async = docstore.NewAsync(e.store, e.pool)
	e.bans = ban.NewList(files, e.locks, o.now)

	execOpts := action.Options{
		Store:       e.store,
		Locks:       e.locks,
		Gate:        e.gate,
		Source:      e.resolver,
		Bans:        e.bans,
		TopicPrefix: cfg.EventTopicPrefix,
		Enabled:     cfg.SubsystemEnabled,
		Logger:      logger,
	}
	if e.bus != nil {
		execOpts.Bus = e.bus
	}
	e.exec = action.NewExecutor(execOpts)
	return e, nil
}

// CheckCooldown returns the seconds left before the action may run again.
func (e *Engine) CheckCooldown(ctx context.Context, actorID, scope, action string) (int, error) {
	return e.gate.Check(ctx, actorID, scope, action)
}

// SetCooldown arms a cooldown of the given seconds.
func (e *Engine) SetCooldown(ctx context.Context, actorID, scope, action string, seconds int) error {
	return e.gate.Arm(ctx, actorID, scope, action, time.Duration(seconds)*time.Second)
}

// LoadDocument returns the document bytes, or false when absent.
func (e *Engine) LoadDocument(ctx context.Context, namespace, key string) ([]byte, bool, error) {
	doc, err := e.store.Load(ctx, namespace, key)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return doc, true, nil
}

// SaveDocument fully replaces the document.
func (e *Engine) SaveDocument(ctx context.Context, namespace, key string, doc []byte) error {
	return e.store.Save(ctx, namespace, key, doc)
}

// AsyncLoadDocument reads on the worker pool.
func (e *Engine) AsyncLoadDocument(ctx context.Context, namespace, key string) <-chan docstore.LoadResult {
	return e.async.Load(ctx, namespace, key)
}

// AsyncSaveDocument writes on the worker pool.
func (e *Engine) AsyncSaveDocument(ctx context.Context, namespace, key string, doc []byte) <-chan error {
	return e.async.Save(ctx, namespace, key, doc)
}

// ListKeys enumerates the documents of a namespace.
func (e *Engine) ListKeys(ctx context.Context, namespace string) ([]string, error) {
	return e.store.ListKeys(ctx, namespace)
}

// DeleteDocument removes a document.
func (e *Engine) DeleteDocument(ctx context.Context, namespace, key string) error {
	return e.store.Delete(ctx, namespace, key)
}

// Update runs a read-modify-write cycle on one document under its key lock.
// fn receives nil and false when the document is absent.
func (e *Engine) Update(ctx context.Context, namespace, key string, fn func(doc []byte, exists bool) ([]byte, error)) error {
	release, err := e.locks.Lock(ctx, docstore.LockKey(namespace, key))
	if err != nil {
		return err
	}
	defer release()
	doc, ok, err := e.LoadDocument(ctx, namespace, key)
	if err != nil {
		return err
	}
	next, err := fn(doc, ok)
	if err != nil {
		return err
	}
	return e.store.Save(ctx, namespace, key, next)
}

// Run executes one transactional action.
func (e *Engine) Run(ctx context.Context, a action.Action) (*action.Result, error) {
	return e.exec.Run(ctx, a)
}

// RollSuccess draws against rate using the shared source.
func (e *Engine) RollSuccess(rate int) bool { return outcome.RollSuccess(e.resolver, rate) }

// TopicPrefix is prepended to the scope in action event topics.
func (e *Engine) TopicPrefix() string { return e.cfg.EventTopicPrefix }

// Bans exposes the ban list.
func (e *Engine) Bans() *ban.List { return e.bans }

// Bus returns the event bus, nil without Redis.
func (e *Engine) Bus() eventbus.Bus {
	if e.bus == nil {
		return nil
	}
	return e.bus
}

// Close drains pending async writes and releases Redis.
func (e *Engine) Close() error {
	e.pool.Close()
	if e.bus != nil {
		_ = e.bus.Close()
	}
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}
