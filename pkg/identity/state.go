package identity

import (
	"sync"
	"time"
)

// record is the live state plus the user a pending challenge belongs to.
type record struct {
	State
	challengeUser User
}

// StateStore owns the session state and publishes snapshots to subscribers.
// Writers capture a generation before starting a flow and commit with it;
// a commit whose generation is no longer current is dropped.
type StateStore struct {
	mu         sync.RWMutex
	rec        record
	generation uint64
	subs       map[uint64]func(State)
	nextSub    uint64
}

// NewStateStore creates a store holding the default (signed-out) state.
func NewStateStore() *StateStore {
	return &StateStore{
		rec:  record{State: State{UpdatedAt: time.Now()}},
		subs: make(map[uint64]func(State)),
	}
}

// Snapshot returns a copy of the current state.
func (s *StateStore) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rec.State.clone()
}

// Generation returns the current generation.
func (s *StateStore) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// Advance starts a new generation, invalidating every in-flight flow.
func (s *StateStore) Advance() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	return s.generation
}

// challengeUser returns the user a pending challenge belongs to.
func (s *StateStore) challengeUser() User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rec.challengeUser
}

// Update applies fn if gen is still current and notifies subscribers.
// It reports whether the update was applied.
func (s *StateStore) Update(gen uint64, fn func(*State)) bool {
	return s.update(gen, func(r *record) { fn(&r.State) })
}

// Apply applies fn regardless of generation. It is meant for bookkeeping
// that is not the result of a flow, such as the last visited route.
func (s *StateStore) Apply(fn func(*State)) {
	s.mu.RLock()
	gen := s.generation
	s.mu.RUnlock()
	for !s.Update(gen, fn) {
		gen = s.Generation()
	}
}

// Reset restores the default state under gen.
func (s *StateStore) Reset(gen uint64) bool {
	return s.update(gen, func(r *record) { *r = record{} })
}

func (s *StateStore) update(gen uint64, fn func(*record)) bool {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return false
	}
	fn(&s.rec)
	normalize(&s.rec)
	s.rec.Generation = s.generation
	s.rec.UpdatedAt = time.Now()
	snap := s.rec.State.clone()
	subs := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
	return true
}

// normalize enforces the state invariants after every mutation.
func normalize(r *record) {
	if !r.Session.IsValid() {
		r.Credentials = nil
	}
	r.ChallengePending = r.challengeUser != nil && r.ChallengeParameters != nil
	if !r.ChallengePending {
		r.challengeUser = nil
		r.ChallengeParameters = nil
		r.ChallengeName = ""
	}
}

// Subscribe registers fn to receive a snapshot after every applied update.
// Callbacks run on the updating goroutine and must not block.
func (s *StateStore) Subscribe(fn func(State)) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}
