// Package ban records actors barred from acting until a given instant.
package ban

import (
	"context"
	"time"

	"go-sim-core/internal/core"
	"go-sim-core/internal/docstore"
)

const fileName = "bans"

// List stores actor → ban expiry epoch (seconds) in root/bans.json.
type List struct {
	files *docstore.FileStore
	locks *docstore.KeyedMutex
	now   func() time.Time
}

func NewList(files *docstore.FileStore, locks *docstore.KeyedMutex, now func() time.Time) *List {
	if now == nil {
		now = time.Now
	}
	return &List{files: files, locks: locks, now: now}
}

func (l *List) read(ctx context.Context) (map[string]int64, error) {
	m := map[string]int64{}
	if _, err := l.files.LoadRoot(ctx, fileName, &m); err != nil {
		return nil, err
	}
	if m == nil {
		m = map[string]int64{}
	}
	return m, nil
}

func (l *List) update(ctx context.Context, fn func(map[string]int64)) error {
	release, err := l.locks.Lock(ctx, fileName)
	if err != nil {
		return err
	}
	defer release()
	m, err := l.read(ctx)
	if err != nil {
		return err
	}
	fn(m)
	return l.files.SaveRoot(ctx, fileName, m)
}

// Set bans actorID until the given instant, rounded up to a whole second.
func (l *List) Set(ctx context.Context, actorID string, until time.Time) error {
	return l.update(ctx, func(m map[string]int64) { m[actorID] = core.CeilUnix(until) })
}

// Clear lifts any ban on actorID.
func (l *List) Clear(ctx context.Context, actorID string) error {
	return l.update(ctx, func(m map[string]int64) { delete(m, actorID) })
}

// Get returns the recorded expiry, expired or not.
func (l *List) Get(ctx context.Context, actorID string) (time.Time, bool, error) {
	m, err := l.read(ctx)
	if err != nil {
		return time.Time{}, false, err
	}
	until, ok := m[actorID]
	if !ok {
		return time.Time{}, false, nil
	}
	return time.Unix(until, 0), true, nil
}

// Remaining returns how long actorID stays banned, 0 when free.
func (l *List) Remaining(ctx context.Context, actorID string) (time.Duration, error) {
	until, ok, err := l.Get(ctx, actorID)
	if err != nil || !ok {
		return 0, err
	}
	if left := until.Sub(l.now()); left > 0 {
		return left, nil
	}
	return 0, nil
}
