// Package outcome holds the probabilistic formulas shared by every game
// subsystem: weighted picks, clamped success rates and level rollover.
package outcome

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
)

var (
	ErrNoWeight     = errors.New("no selectable item")
	ErrBadThreshold = errors.New("level threshold must be positive")
)

// Source supplies randomness. *rand.Rand and *Resolver satisfy it.
type Source interface {
	Float64() float64
	Intn(n int) int
}

// Resolver is a Source safe for concurrent use.
type Resolver struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewResolver seeds a Resolver; equal seeds give equal sequences.
func NewResolver(seed int64) *Resolver {
	return &Resolver{rng: rand.New(rand.NewSource(seed))}
}

func (r *Resolver) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Float64()
}

func (r *Resolver) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Intn(n)
}

// WeightedChoice picks items[i] with probability weights[i]/sum(weights).
// When exactly one weight is nonzero that item is returned without drawing.
func WeightedChoice[T any](src Source, items []T, weights []float64) (T, error) {
	var zero T
	if len(items) != len(weights) {
		return zero, fmt.Errorf("weighted choice: %d items, %d weights", len(items), len(weights))
	}
	var (
		total   float64
		nonzero int
		last    int
	)
	for i, w := range weights {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return zero, fmt.Errorf("weighted choice: bad weight %v at %d", w, i)
		}
		if w > 0 {
			total += w
			nonzero++
			last = i
		}
	}
	switch nonzero {
	case 0:
		return zero, ErrNoWeight
	case 1:
		return items[last], nil
	}
	r := src.Float64() * total
	var cum float64
	for i, w := range weights {
		cum += w
		if w > 0 && r < cum {
			return items[i], nil
		}
	}
	return items[last], nil
}

// ComputeSuccessRate returns clamp(base+sum(modifiers), floor, ceiling).
// If floor > ceiling the ceiling wins.
func ComputeSuccessRate(base int, modifiers []int, floor, ceiling int) int {
	rate := base
	for _, m := range modifiers {
		rate += m
	}
	return min(max(rate, floor), ceiling)
}

// RollSuccess draws 1..100 and succeeds when the draw is <= rate.
func RollSuccess(src Source, rate int) bool {
	return src.Intn(100)+1 <= rate
}

// ApplyLevelRollover spends exp on level thresholds while it can afford the
// next one. threshold must be positive and non-decreasing in level.
func ApplyLevelRollover(level, exp int, threshold func(level int) int) (int, int, error) {
	for {
		t := threshold(level)
		if t <= 0 {
			return level, exp, fmt.Errorf("%w: level %d has threshold %d", ErrBadThreshold, level, t)
		}
		if exp < t {
			return level, exp, nil
		}
		exp -= t
		level++
	}
}

// LinearThreshold requires level*step exp to leave a level.
func LinearThreshold(step int) func(int) int {
	return func(level int) int { return level * step }
}
