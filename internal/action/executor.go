// Package action runs the gate → load → validate → resolve → mutate →
// persist → arm sequence every game command performs.
package action

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"go-sim-core/internal/ban"
	"go-sim-core/internal/cooldown"
	"go-sim-core/internal/core"
	"go-sim-core/internal/docstore"
	"go-sim-core/internal/eventbus"
	"go-sim-core/internal/fsm"
	"go-sim-core/internal/outcome"
)

// Action describes one command. Hooks may be nil. Validate, Resolve and
// Mutate return core.Invalid for player-facing rejections; any other error
// is reported as a validation failure with its message.
type Action struct {
	Actor     string
	Scope     string
	Name      string
	Cooldown  time.Duration
	Documents []DocRef

	Validate func(ctx context.Context, st *State) error
	Resolve  func(ctx context.Context, st *State, src outcome.Source) (any, error)
	Mutate   func(ctx context.Context, st *State, result any) error
}

// Result is the structured outcome of Run.
type Result struct {
	ID            string
	State         fsm.State
	Outcome       any
	Rejection     *core.Error
	CooldownArmed bool
	Trail         []fsm.State
}

// Done reports whether the action completed.
func (r *Result) Done() bool { return r.State == StateDone }

// Options wires an Executor. Store is required; a nil Gate disables
// cooldowns and nil Bans, Bus or Enabled skip those checks.
type Options struct {
	Store       docstore.Store
	Locks       *docstore.KeyedMutex
	Gate        *cooldown.Gate
	Source      outcome.Source
	Bans        *ban.List
	Bus         eventbus.Publisher
	TopicPrefix string
	Enabled     func(scope string) bool
	Logger      *log.Logger
}

type Executor struct {
	opts   Options
	logger *log.Logger
}

func NewExecutor(opts Options) *Executor {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Locks == nil {
		opts.Locks = docstore.NewKeyedMutex()
	}
	if opts.Source == nil {
		opts.Source = outcome.NewResolver(time.Now().UnixNano())
	}
	return &Executor{opts: opts, logger: opts.Logger}
}

type run struct {
	a   Action
	m   *fsm.FSM
	res *Result
}

func (r *run) step(ctx context.Context, e fsm.Event) {
	if err := r.m.Trigger(ctx, e); err != nil {
		panic(fmt.Sprintf("action %s: %v", r.a.Name, err))
	}
}

func (r *run) reject(ctx context.Context, e fsm.Event, rej *core.Error) {
	r.step(ctx, e)
	r.res.Rejection = rej
}

// Run executes a. Cooldown and validation rejections come back in
// Result.Rejection with a nil error. A persistence failure returns a
// KindPersistence error; nothing was written and no cooldown was armed,
// so the action may be retried.
func (e *Executor) Run(ctx context.Context, a Action) (*Result, error) {
	r := &run{a: a, m: definition.New(), res: &Result{ID: uuid.NewString()}}
	err := e.execute(ctx, r)
	r.res.State = r.m.GetState()
	r.res.Trail = r.m.History()
	e.publish(ctx, r.res, a)
	return r.res, err
}

// banUnavailable applies the cooldown failure policy to a failed ban lookup.
// Without a Gate the lookup fails closed with no retry hint.
func (e *Executor) banUnavailable(a Action, err error) *core.Error {
	policy, retry := cooldown.FailClosed, time.Duration(0)
	if e.opts.Gate != nil {
		policy, retry = e.opts.Gate.Policy(), e.opts.Gate.Retry()
	}
	if policy == cooldown.FailOpen {
		e.logger.Printf("action: ban lookup for %s failed, failing open: %v", a.Actor, err)
		return nil
	}
	e.logger.Printf("action: ban lookup for %s failed, failing closed: %v", a.Actor, err)
	rej := core.CooldownActive(retry)
	rej.Reason = fmt.Sprintf("ban status unavailable, retry in %ds", core.Seconds(retry))
	rej.Cause = core.BackendUnavailable("ban list", err)
	return rej
}

func (e *Executor) execute(ctx context.Context, r *run) error {
	a := r.a
	r.step(ctx, evStart)

	// CHECK_COOLDOWN
	if e.opts.Enabled != nil && !e.opts.Enabled(a.Scope) {
		r.reject(ctx, evDisabled, core.Invalid("%s is disabled", a.Scope))
		return nil
	}
	if e.opts.Bans != nil {
		left, err := e.opts.Bans.Remaining(ctx, a.Actor)
		if err != nil {
			if rej := e.banUnavailable(a, err); rej != nil {
				r.reject(ctx, evGated, rej)
				return nil
			}
		} else if left > 0 {
			rej := core.CooldownActive(left)
			rej.Reason = fmt.Sprintf("banned, %ds remaining", core.Seconds(left))
			r.reject(ctx, evGated, rej)
			return nil
		}
	}
	keys := make([]string, 0, len(a.Documents)+1)
	keys = append(keys, core.CooldownKey(a.Actor, a.Scope, a.Name))
	for _, ref := range a.Documents {
		keys = append(keys, ref.String())
	}
	release, err := e.opts.Locks.LockAll(ctx, keys)
	if err != nil {
		r.reject(ctx, evAborted, core.Persistence(err))
		return r.res.Rejection
	}
	defer release()
	var secs int
	if e.opts.Gate != nil {
		secs, err = e.opts.Gate.Check(ctx, a.Actor, a.Scope, a.Name)
	}
	if secs > 0 {
		rej := core.CooldownActive(time.Duration(secs) * time.Second)
		rej.Cause = err
		r.reject(ctx, evGated, rej)
		return nil
	}
	if err != nil {
		e.logger.Printf("action: %s/%s for %s proceeding without cooldown: %v", a.Scope, a.Name, a.Actor, err)
	}
	r.step(ctx, evClear)

	// LOAD_STATE
	st := newState(a.Documents)
	for _, ref := range a.Documents {
		data, err := e.opts.Store.Load(ctx, ref.Namespace, ref.Key)
		if errors.Is(err, docstore.ErrNotFound) {
			continue
		}
		if err != nil {
			r.reject(ctx, evFailed, core.Persistence(err))
			return r.res.Rejection
		}
		st.orig[ref] = data
		st.cur[ref] = data
	}
	r.step(ctx, evLoaded)

	// VALIDATE
	if a.Validate != nil {
		if err := a.Validate(ctx, st); err != nil {
			r.reject(ctx, evInvalid, asInvalid(err))
			return nil
		}
	}
	r.step(ctx, evValid)

	// RESOLVE_OUTCOME
	var result any
	if a.Resolve != nil {
		result, err = a.Resolve(ctx, st, e.opts.Source)
		if err != nil {
			r.reject(ctx, evInvalid, asInvalid(err))
			return nil
		}
	}
	r.step(ctx, evResolved)

	// MUTATE
	if a.Mutate != nil {
		if err := a.Mutate(ctx, st, result); err != nil {
			r.reject(ctx, evInvalid, asInvalid(err))
			return nil
		}
	}
	r.step(ctx, evMutated)

	// PERSIST
	if err := e.persist(ctx, st); err != nil {
		r.reject(ctx, evFailed, core.Persistence(err))
		return r.res.Rejection
	}
	r.res.Outcome = result
	r.step(ctx, evPersisted)

	// ARM_COOLDOWN: the write has committed, so cancellation no longer applies.
	if a.Cooldown > 0 && e.opts.Gate != nil {
		armCtx := context.WithoutCancel(ctx)
		if err := e.opts.Gate.Arm(armCtx, a.Actor, a.Scope, a.Name, a.Cooldown); err != nil {
			e.logger.Printf("action: %s/%s for %s persisted but cooldown not armed: %v", a.Scope, a.Name, a.Actor, err)
		} else {
			r.res.CooldownArmed = true
		}
	}
	r.step(ctx, evArmed)
	return nil
}

// persist writes every changed document. If a later write fails, earlier
// ones are restored so the action is not left half-applied.
func (e *Executor) persist(ctx context.Context, st *State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var written []DocRef
	for _, ref := range st.changed() {
		var err error
		if data, ok := st.cur[ref]; ok {
			err = e.opts.Store.Save(ctx, ref.Namespace, ref.Key, data)
		} else {
			err = e.opts.Store.Delete(ctx, ref.Namespace, ref.Key)
		}
		if err != nil {
			e.rollback(context.WithoutCancel(ctx), st, written)
			return fmt.Errorf("persist %s: %w", ref, err)
		}
		written = append(written, ref)
	}
	return nil
}

func (e *Executor) rollback(ctx context.Context, st *State, written []DocRef) {
	for _, ref := range written {
		var err error
		if data, ok := st.orig[ref]; ok {
			err = e.opts.Store.Save(ctx, ref.Namespace, ref.Key, data)
		} else {
			err = e.opts.Store.Delete(ctx, ref.Namespace, ref.Key)
		}
		if err != nil {
			e.logger.Printf("action: rollback of %s failed: %v", ref, err)
		}
	}
}

func (e *Executor) publish(ctx context.Context, res *Result, a Action) {
	if e.opts.Bus == nil {
		return
	}
	ev := core.Event{
		ID:        res.ID,
		Type:      core.EventActionDone,
		Source:    a.Actor,
		Timestamp: time.Now(),
		Payload: map[string]interface{}{
			"scope":  a.Scope,
			"action": a.Name,
			"state":  string(res.State),
		},
	}
	if res.Rejection != nil {
		ev.Type = core.EventActionRejected
		ev.Payload["kind"] = string(res.Rejection.Kind)
		ev.Payload["reason"] = res.Rejection.Reason
		ev.Payload["remaining"] = core.Seconds(res.Rejection.Remaining)
	}
	if err := e.opts.Bus.Publish(context.WithoutCancel(ctx), e.opts.TopicPrefix+a.Scope, ev); err != nil {
		e.logger.Printf("action: publish %s failed: %v", res.ID, err)
	}
}

func asInvalid(err error) *core.Error {
	var ce *core.Error
	if errors.As(err, &ce) && ce.Kind == core.KindValidation {
		return ce
	}
	return &core.Error{Kind: core.KindValidation, Reason: err.Error(), Cause: err}
}
