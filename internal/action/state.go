package action

import (
	"encoding/json"
	"fmt"
	"sort"

	"go-sim-core/internal/docstore"
)

// DocRef names one document an action reads or writes.
type DocRef struct {
	Namespace string
	Key       string
}

func (r DocRef) String() string { return docstore.LockKey(r.Namespace, r.Key) }

// State holds working copies of an action's documents. Changes stay local
// until PERSIST.
type State struct {
	refs  []DocRef
	orig  map[DocRef][]byte
	cur   map[DocRef][]byte
	dirty map[DocRef]bool
}

func newState(refs []DocRef) *State {
	return &State{
		refs:  refs,
		orig:  make(map[DocRef][]byte),
		cur:   make(map[DocRef][]byte),
		dirty: make(map[DocRef]bool),
	}
}

func (s *State) known(ref DocRef) error {
	for _, r := range s.refs {
		if r == ref {
			return nil
		}
	}
	return fmt.Errorf("document %s not declared by action", ref)
}

// Exists reports whether ref currently has content.
func (s *State) Exists(ref DocRef) bool {
	_, ok := s.cur[ref]
	return ok
}

// Decode unmarshals ref into v, reporting false when it is absent.
func (s *State) Decode(ref DocRef, v any) (bool, error) {
	if err := s.known(ref); err != nil {
		return false, err
	}
	data, ok := s.cur[ref]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", ref, err)
	}
	return true, nil
}

// Encode replaces ref with v and schedules it for persisting.
func (s *State) Encode(ref DocRef, v any) error {
	if err := s.known(ref); err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", ref, err)
	}
	s.cur[ref] = data
	s.dirty[ref] = true
	return nil
}

// Remove schedules ref for deletion, e.g. a sold-out market listing.
func (s *State) Remove(ref DocRef) error {
	if err := s.known(ref); err != nil {
		return err
	}
	delete(s.cur, ref)
	s.dirty[ref] = true
	return nil
}

// changed returns the refs to persist, in a stable order.
func (s *State) changed() []DocRef {
	out := make([]DocRef, 0, len(s.dirty))
	for r := range s.dirty {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}
