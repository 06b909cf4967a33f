// Package cooldown gates repeated actions per (actor, scope, action).
package cooldown

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go-sim-core/internal/config"
	"go-sim-core/internal/core"
)

// Backend stores cooldown expiries under the composite cooldown key.
type Backend interface {
	Name() string
	// Remaining returns the time left before key expires, 0 when absent.
	Remaining(ctx context.Context, key string) (time.Duration, error)
	Arm(ctx context.Context, key string, d time.Duration) error
}

// Policy decides what Check reports when every backend failed.
type Policy int

const (
	// FailClosed treats the action as gated for the configured retry period.
	FailClosed Policy = iota
	// FailOpen treats the action as not gated.
	FailOpen
)

func (p Policy) String() string {
	if p == FailOpen {
		return config.PolicyFailOpen
	}
	return config.PolicyFailClosed
}

// ParsePolicy maps a config value to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case config.PolicyFailClosed:
		return FailClosed, nil
	case config.PolicyFailOpen:
		return FailOpen, nil
	}
	return FailClosed, fmt.Errorf("unknown cooldown policy %q", s)
}

// Gate consults backends in order; a failing backend falls through to the
// next one.
type Gate struct {
	backends []Backend
	policy   Policy
	retry    time.Duration
	logger   *log.Logger
}

// NewGate builds a Gate. retry is the remaining time reported under
// FailClosed when no backend answers.
func NewGate(backends []Backend, policy Policy, retry time.Duration, logger *log.Logger) *Gate {
	if logger == nil {
		logger = log.Default()
	}
	return &Gate{backends: backends, policy: policy, retry: retry, logger: logger}
}

// Policy returns the configured failure policy.
func (g *Gate) Policy() Policy { return g.policy }

// Retry is the remaining time reported under FailClosed when no backend
// answers.
func (g *Gate) Retry() time.Duration { return g.retry }

// Check returns the whole seconds remaining, 0 when not gated. The error is
// non-nil only when every backend failed; under FailClosed the seconds are
// then the retry period, under FailOpen they are 0.
func (g *Gate) Check(ctx context.Context, actorID, scope, action string) (int, error) {
	key := core.CooldownKey(actorID, scope, action)
	var errs []error
	for _, b := range g.backends {
		d, err := b.Remaining(ctx, key)
		if err != nil {
			g.logger.Printf("cooldown: %s check failed for %s, falling back: %v", b.Name(), key, err)
			errs = append(errs, core.BackendUnavailable(b.Name(), err))
			continue
		}
		return core.Seconds(d), nil
	}
	err := core.BackendUnavailable("cooldown backends", errors.Join(errs...))
	if g.policy == FailOpen {
		g.logger.Printf("cooldown: no backend answered for %s, failing open", key)
		return 0, err
	}
	g.logger.Printf("cooldown: no backend answered for %s, failing closed", key)
	return core.Seconds(g.retry), err
}

// Arm starts a cooldown of d on the first backend that accepts it.
func (g *Gate) Arm(ctx context.Context, actorID, scope, action string, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	key := core.CooldownKey(actorID, scope, action)
	var errs []error
	for _, b := range g.backends {
		err := b.Arm(ctx, key, d)
		if err == nil {
			return nil
		}
		g.logger.Printf("cooldown: %s arm failed for %s, falling back: %v", b.Name(), key, err)
		errs = append(errs, core.BackendUnavailable(b.Name(), err))
	}
	return core.BackendUnavailable("cooldown backends", errors.Join(errs...))
}
