package action

import "go-sim-core/internal/fsm"

const (
	StateReady               fsm.State = "READY"
	StateCheckCooldown       fsm.State = "CHECK_COOLDOWN"
	StateLoadState           fsm.State = "LOAD_STATE"
	StateValidate            fsm.State = "VALIDATE"
	StateResolveOutcome      fsm.State = "RESOLVE_OUTCOME"
	StateMutate              fsm.State = "MUTATE"
	StatePersist             fsm.State = "PERSIST"
	StateArmCooldown         fsm.State = "ARM_COOLDOWN"
	StateDone                fsm.State = "DONE"
	StateRejectedCooldown    fsm.State = "REJECTED_COOLDOWN"
	StateRejectedInvalid     fsm.State = "REJECTED_INVALID"
	StateRejectedPersistence fsm.State = "REJECTED_PERSISTENCE"
)

const (
	evStart     fsm.Event = "start"
	evClear     fsm.Event = "clear"
	evGated     fsm.Event = "gated"
	evDisabled  fsm.Event = "disabled"
	evAborted   fsm.Event = "aborted"
	evLoaded    fsm.Event = "loaded"
	evValid     fsm.Event = "valid"
	evInvalid   fsm.Event = "invalid"
	evResolved  fsm.Event = "resolved"
	evMutated   fsm.Event = "mutated"
	evPersisted fsm.Event = "persisted"
	evFailed    fsm.Event = "failed"
	evArmed     fsm.Event = "armed"
)

// definition is the action lifecycle. ARM_COOLDOWN is reachable only
// through a successful PERSIST.
var definition = mustDefinition()

func mustDefinition() *fsm.Definition {
	d := fsm.NewDefinition(StateReady, []fsm.Transition{
		{From: StateReady, Event: evStart, To: StateCheckCooldown},

		{From: StateCheckCooldown, Event: evClear, To: StateLoadState},
		{From: StateCheckCooldown, Event: evGated, To: StateRejectedCooldown},
		{From: StateCheckCooldown, Event: evDisabled, To: StateRejectedInvalid},
		{From: StateCheckCooldown, Event: evAborted, To: StateRejectedPersistence},

		{From: StateLoadState, Event: evLoaded, To: StateValidate},
		{From: StateLoadState, Event: evFailed, To: StateRejectedPersistence},

		{From: StateValidate, Event: evValid, To: StateResolveOutcome},
		{From: StateValidate, Event: evInvalid, To: StateRejectedInvalid},

		{From: StateResolveOutcome, Event: evResolved, To: StateMutate},
		{From: StateResolveOutcome, Event: evInvalid, To: StateRejectedInvalid},

		{From: StateMutate, Event: evMutated, To: StatePersist},
		{From: StateMutate, Event: evInvalid, To: StateRejectedInvalid},

		{From: StatePersist, Event: evPersisted, To: StateArmCooldown},
		{From: StatePersist, Event: evFailed, To: StateRejectedPersistence},

		{From: StateArmCooldown, Event: evArmed, To: StateDone},
	})
	if err := d.Validate(StateDone, StateRejectedCooldown, StateRejectedInvalid, StateRejectedPersistence); err != nil {
		panic(err)
	}
	return d
}
