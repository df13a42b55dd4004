package savedata

import (
	"context"
	"time"
)

// Stager stages a flattened leaf list one leaf per Step, so that saving a
// large tree can be spread over frames of a cooperative main loop.
//
// Only one sweep runs at a time. Leaves must not be mutated from another
// goroutine while a sweep is active: staging reads and clears dirty flags
// non-atomically.
type Stager struct {
	leaves  []Node
	next    int
	changed bool
	active  bool
	done    func(changed bool)
}

// Start begins a sweep over leaves. It is a no-op returning false if a sweep
// is already in flight. done is called after the last leaf was staged.
func (s *Stager) Start(leaves []Node, done func(changed bool)) bool {
	if s.active {
		return false
	}
	s.leaves = leaves
	s.next = 0
	s.changed = false
	s.done = done
	s.active = true
	if len(leaves) == 0 {
		s.finish()
	}
	return true
}

// Active reports whether a sweep is in flight.
func (s *Stager) Active() bool {
	return s.active
}

// Remaining returns the number of leaves not yet staged.
func (s *Stager) Remaining() int {
	if !s.active {
		return 0
	}
	return len(s.leaves) - s.next
}

// Step stages one leaf and reports whether the sweep is still active.
func (s *Stager) Step() bool {
	if !s.active {
		return false
	}
	leaf := s.leaves[s.next]
	s.next++
	if leaf.Stage() {
		s.changed = true
	}
	if s.next >= len(s.leaves) {
		s.finish()
	}
	return s.active
}

// Drain runs the rest of the sweep synchronously.
func (s *Stager) Drain() {
	for s.Step() {
	}
}

// Run steps the sweep once per tick until it completes or ctx is done.
// Cancellation leaves the sweep active; a later Run or Drain resumes it.
func (s *Stager) Run(ctx context.Context, tick <-chan time.Time) error {
	for s.active {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick:
			s.Step()
		}
	}
	return nil
}

func (s *Stager) finish() {
	done, changed := s.done, s.changed
	s.leaves = nil
	s.next = 0
	s.done = nil
	s.active = false
	if done != nil {
		done(changed)
	}
}
