package ringbuf

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
)

// ErrWithdrawn indicates an offered byte was abandoned because its guard
// no longer held
var ErrWithdrawn = errors.New("offer withdrawn")

// Policy decides what a producer does when the buffer is full.
type Policy int

const (
	// DropNewest discards the byte being offered
	DropNewest Policy = iota
	// Stall blocks the producer until a consumer frees a slot
	Stall
)

func (p Policy) String() string {
	switch p {
	case DropNewest:
		return "drop"
	case Stall:
		return "stall"
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

// ParsePolicy converts a config value ("drop" or "stall") into a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(s) {
	case "drop", "":
		return DropNewest, nil
	case "stall":
		return Stall, nil
	}
	return DropNewest, fmt.Errorf("unknown overrun policy %q", s)
}

// Shared owns the single Buffer reachable from every execution context.
// All access happens inside With, which is the critical section.
type Shared struct {
	mu      sync.Mutex
	buf     Buffer
	policy  Policy
	dropped atomic.Uint64

	// freed is signalled (non-blocking) whenever a byte leaves the buffer.
	freed chan struct{}
}

// NewShared creates a shared buffer with the given overrun policy.
func NewShared(policy Policy) *Shared {
	return &Shared{
		policy: policy,
		freed:  make(chan struct{}, 1),
	}
}

// With runs fn with exclusive access to the buffer. fn must not block.
// Stalled producers re-check for space and their guard afterwards. State
// that has to change together with the buffer, such as interrupt enables,
// is updated inside fn.
func (s *Shared) With(fn func(b *Buffer)) {
	s.mu.Lock()
	fn(&s.buf)
	s.mu.Unlock()
	s.signalFreed()
}

// Pop removes the oldest byte inside a critical section.
func (s *Shared) Pop() (byte, error) {
	s.mu.Lock()
	u, err := s.buf.Pop()
	s.mu.Unlock()
	if err == nil {
		s.signalFreed()
	}
	return u, err
}

// Clear discards buffered bytes inside a critical section.
func (s *Shared) Clear() {
	s.mu.Lock()
	s.buf.Clear()
	s.mu.Unlock()
	s.signalFreed()
}

// IsEmpty reports whether the buffer holds nothing.
func (s *Shared) IsEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.IsEmpty()
}

// TryPush pushes u without waiting, whatever the policy. It is the path for
// handlers that must never block. A full buffer counts as a drop.
func (s *Shared) TryPush(u byte) error {
	return s.TryPushIf(u, nil)
}

// TryPushIf is TryPush with a guard evaluated inside the critical section.
func (s *Shared) TryPushIf(u byte, keep func() bool) error {
	s.mu.Lock()
	if keep != nil && !keep() {
		s.mu.Unlock()
		return ErrWithdrawn
	}
	err := s.buf.Push(u)
	s.mu.Unlock()
	if err != nil {
		s.dropped.Add(1)
	}
	return err
}

// Offer pushes u according to the overrun policy. With DropNewest a full
// buffer yields ErrFull and the drop is counted. With Stall it waits for
// space until ctx is done.
func (s *Shared) Offer(ctx context.Context, u byte) error {
	return s.OfferIf(ctx, u, nil)
}

// OfferIf is Offer with a guard evaluated inside the critical section
// before every push attempt. Once keep reports false the byte is withdrawn
// with ErrWithdrawn, also while stalled. Withdrawn bytes are not drops.
func (s *Shared) OfferIf(ctx context.Context, u byte, keep func() bool) error {
	for {
		s.mu.Lock()
		if keep != nil && !keep() {
			s.mu.Unlock()
			return ErrWithdrawn
		}
		err := s.buf.Push(u)
		s.mu.Unlock()
		if err == nil {
			return nil
		}

		if s.policy != Stall {
			s.dropped.Add(1)
			return err
		}

		select {
		case <-s.freed:
		case <-ctx.Done():
			s.dropped.Add(1)
			return ctx.Err()
		}
	}
}

// Dropped returns how many offered bytes were discarded.
func (s *Shared) Dropped() uint64 {
	return s.dropped.Load()
}

// Policy returns the overrun policy.
func (s *Shared) Policy() Policy {
	return s.policy
}

func (s *Shared) signalFreed() {
	select {
	case s.freed <- struct{}{}:
	default:
	}
}
