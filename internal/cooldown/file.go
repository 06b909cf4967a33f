package cooldown

import (
	"context"
	"math"
	"time"

	"go-sim-core/internal/docstore"
)

const fileName = "cooldowns"

// FileBackend keeps absolute expiry epochs in root/cooldowns.json. Epochs are
// seconds with millisecond fractions, and both sides of every comparison are
// rounded up to the millisecond, so an entry reports d right after arming and
// stays gated until d has elapsed.
// Writes are serialized through the shared KeyedMutex.
type FileBackend struct {
	files *docstore.FileStore
	locks *docstore.KeyedMutex
	now   func() time.Time
}

// NewFileBackend uses time.Now when now is nil.
func NewFileBackend(files *docstore.FileStore, locks *docstore.KeyedMutex, now func() time.Time) *FileBackend {
	if now == nil {
		now = time.Now
	}
	return &FileBackend{files: files, locks: locks, now: now}
}

func (b *FileBackend) Name() string { return "file" }

func (b *FileBackend) read(ctx context.Context) (map[string]float64, error) {
	m := map[string]float64{}
	if _, err := b.files.LoadRoot(ctx, fileName, &m); err != nil {
		return nil, err
	}
	if m == nil {
		m = map[string]float64{}
	}
	return m, nil
}

// Remaining prunes key on the first read at or after its expiry.
func (b *FileBackend) Remaining(ctx context.Context, key string) (time.Duration, error) {
	m, err := b.read(ctx)
	if err != nil {
		return 0, err
	}
	exp, ok := m[key]
	if !ok {
		return 0, nil
	}
	if left := time.Duration(fromEpoch(exp)-ceilMilli(b.now())) * time.Millisecond; left > 0 {
		return left, nil
	}
	return 0, b.prune(ctx, key)
}

func (b *FileBackend) prune(ctx context.Context, key string) error {
	release, err := b.locks.Lock(ctx, fileName)
	if err != nil {
		return err
	}
	defer release()
	m, err := b.read(ctx)
	if err != nil {
		return err
	}
	exp, ok := m[key]
	if !ok || fromEpoch(exp) > ceilMilli(b.now()) {
		// re-armed or already pruned
		return nil
	}
	delete(m, key)
	return b.files.SaveRoot(ctx, fileName, m)
}

// Arm records now+d, dropping any other entries that have expired.
func (b *FileBackend) Arm(ctx context.Context, key string, d time.Duration) error {
	release, err := b.locks.Lock(ctx, fileName)
	if err != nil {
		return err
	}
	defer release()
	m, err := b.read(ctx)
	if err != nil {
		return err
	}
	now := b.now()
	for k, exp := range m {
		if fromEpoch(exp) <= ceilMilli(now) {
			delete(m, k)
		}
	}
	m[key] = toEpoch(now.Add(d))
	return b.files.SaveRoot(ctx, fileName, m)
}

func ceilMilli(t time.Time) int64 {
	ms := t.UnixMilli()
	if t.After(time.UnixMilli(ms)) {
		ms++
	}
	return ms
}

func toEpoch(t time.Time) float64 { return float64(ceilMilli(t)) / 1000 }

// fromEpoch returns the stored expiry in epoch milliseconds.
func fromEpoch(f float64) int64 { return int64(math.Round(f * 1000)) }

// Len returns the number of stored entries, expired or not.
func (b *FileBackend) Len(ctx context.Context) (int, error) {
	m, err := b.read(ctx)
	return len(m), err
}
