package ringbuf

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestBuffer_NewIsEmpty(t *testing.T) {
	var b Buffer
	if !b.IsEmpty() {
		t.Error("new buffer should be empty")
	}
	if _, err := b.Pop(); !errors.Is(err, ErrEmpty) {
		t.Errorf("Pop() on empty buffer error = %v, want ErrEmpty", err)
	}
}

func TestBuffer_PushPopHI(t *testing.T) {
	var b Buffer
	if err := b.Push('H'); err != nil {
		t.Fatalf("Push('H') error = %v", err)
	}
	if err := b.Push('I'); err != nil {
		t.Fatalf("Push('I') error = %v", err)
	}

	for _, want := range []byte("HI") {
		got, err := b.Pop()
		if err != nil {
			t.Fatalf("Pop() error = %v", err)
		}
		if got != want {
			t.Errorf("Pop() = %q, want %q", got, want)
		}
	}
	if !b.IsEmpty() {
		t.Error("buffer should be empty after popping everything")
	}
}

func TestBuffer_CapacityIsSizeMinusOne(t *testing.T) {
	var b Buffer
	for i := 0; i < Capacity; i++ {
		if err := b.Push(byte(i)); err != nil {
			t.Fatalf("Push #%d error = %v", i, err)
		}
	}

	before := b
	if err := b.Push(0xAA); !errors.Is(err, ErrFull) {
		t.Fatalf("Push past capacity error = %v, want ErrFull", err)
	}
	if b != before {
		t.Error("failed Push changed buffer state")
	}

	for i := 0; i < Capacity; i++ {
		got, err := b.Pop()
		if err != nil {
			t.Fatalf("Pop #%d error = %v", i, err)
		}
		if got != byte(i) {
			t.Fatalf("Pop #%d = %d, want %d", i, got, i)
		}
	}

	before = b
	if _, err := b.Pop(); !errors.Is(err, ErrEmpty) {
		t.Fatalf("Pop on drained buffer error = %v, want ErrEmpty", err)
	}
	if b != before {
		t.Error("failed Pop changed buffer state")
	}
}

func TestBuffer_FIFOAcrossWraparound(t *testing.T) {
	var b Buffer
	next, expect := 0, 0

	// Interleave pushes and pops so the cursors wrap several times.
	for round := 0; round < 10; round++ {
		for i := 0; i < 100; i++ {
			if err := b.Push(byte(next)); err != nil {
				t.Fatalf("round %d push error = %v", round, err)
			}
			next++
		}
		for i := 0; i < 100; i++ {
			got, err := b.Pop()
			if err != nil {
				t.Fatalf("round %d pop error = %v", round, err)
			}
			if got != byte(expect) {
				t.Fatalf("round %d pop = %d, want %d", round, got, byte(expect))
			}
			expect++
		}
	}
}

func TestBuffer_Clear(t *testing.T) {
	var b Buffer
	for _, c := range []byte("HELLO") {
		_ = b.Push(c)
	}
	_, _ = b.Pop()

	b.Clear()
	if !b.IsEmpty() {
		t.Error("IsEmpty() = false after Clear()")
	}

	b.Clear()
	if !b.IsEmpty() {
		t.Error("IsEmpty() = false after second Clear()")
	}
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    Policy
		wantErr bool
	}{
		{"drop", DropNewest, false},
		{"", DropNewest, false},
		{"STALL", Stall, false},
		{"block", DropNewest, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePolicy(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePolicy(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParsePolicy(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestShared_DropNewestCountsDrops(t *testing.T) {
	s := NewShared(DropNewest)
	ctx := context.Background()

	for i := 0; i < Capacity; i++ {
		if err := s.Offer(ctx, byte(i)); err != nil {
			t.Fatalf("Offer #%d error = %v", i, err)
		}
	}
	if err := s.Offer(ctx, 'X'); !errors.Is(err, ErrFull) {
		t.Fatalf("Offer on full buffer error = %v, want ErrFull", err)
	}
	if err := s.Offer(ctx, 'Y'); !errors.Is(err, ErrFull) {
		t.Fatalf("Offer on full buffer error = %v, want ErrFull", err)
	}
	if got := s.Dropped(); got != 2 {
		t.Errorf("Dropped() = %d, want 2", got)
	}

	// Oldest byte is still first out.
	u, err := s.Pop()
	if err != nil || u != 0 {
		t.Errorf("Pop() = (%d, %v), want (0, nil)", u, err)
	}
}

func TestShared_StallWaitsForConsumer(t *testing.T) {
	s := NewShared(Stall)
	ctx := context.Background()
	for i := 0; i < Capacity; i++ {
		_ = s.Offer(ctx, 'a')
	}

	done := make(chan error, 1)
	go func() {
		done <- s.Offer(ctx, 'Z')
	}()

	select {
	case err := <-done:
		t.Fatalf("Offer returned early with %v", err)
	case <-time.After(20 * time.Millisecond):
	}

	if _, err := s.Pop(); err != nil {
		t.Fatalf("Pop() error = %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("stalled Offer error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("stalled Offer did not resume after Pop")
	}
	if s.Dropped() != 0 {
		t.Errorf("Dropped() = %d, want 0", s.Dropped())
	}
}

func TestShared_StallHonoursContext(t *testing.T) {
	s := NewShared(Stall)
	for i := 0; i < Capacity; i++ {
		_ = s.Offer(context.Background(), 'a')
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := s.Offer(ctx, 'b'); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Offer error = %v, want DeadlineExceeded", err)
	}
	if s.Dropped() != 1 {
		t.Errorf("Dropped() = %d, want 1", s.Dropped())
	}
}

func TestShared_OfferIfGuardRejects(t *testing.T) {
	s := NewShared(DropNewest)
	if err := s.OfferIf(context.Background(), 'X', func() bool { return false }); !errors.Is(err, ErrWithdrawn) {
		t.Fatalf("OfferIf error = %v, want ErrWithdrawn", err)
	}
	if !s.IsEmpty() || s.Dropped() != 0 {
		t.Errorf("withdrawn byte changed state: empty=%v dropped=%d", s.IsEmpty(), s.Dropped())
	}
	if err := s.OfferIf(context.Background(), 'Y', func() bool { return true }); err != nil {
		t.Fatalf("OfferIf error = %v", err)
	}
	if u, _ := s.Pop(); u != 'Y' {
		t.Errorf("Pop() = %q, want 'Y'", u)
	}
}

func TestShared_StalledOfferWithdrawnByClear(t *testing.T) {
	s := NewShared(Stall)
	for i := 0; i < Capacity; i++ {
		_ = s.TryPush('a')
	}

	var epoch atomic.Uint64
	done := make(chan error, 1)
	go func() {
		done <- s.OfferIf(context.Background(), 'b', func() bool { return epoch.Load() == 0 })
	}()

	time.Sleep(5 * time.Millisecond)
	s.With(func(b *Buffer) {
		epoch.Add(1)
		b.Clear()
	})

	select {
	case err := <-done:
		if !errors.Is(err, ErrWithdrawn) {
			t.Fatalf("OfferIf error = %v, want ErrWithdrawn", err)
		}
	case <-time.After(time.Second):
		t.Fatal("stalled OfferIf did not return after Clear")
	}
	if !s.IsEmpty() {
		t.Error("withdrawn byte reached the cleared buffer")
	}
}

func TestShared_ClearFromAnotherContext(t *testing.T) {
	s := NewShared(DropNewest)
	_ = s.Offer(context.Background(), 'Q')
	s.Clear()
	if !s.IsEmpty() {
		t.Error("IsEmpty() = false after Clear()")
	}
}

func TestShared_ConcurrentProducerConsumer(t *testing.T) {
	s := NewShared(Stall)
	ctx := context.Background()
	const n = 5000

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			if err := s.Offer(ctx, byte(i)); err != nil {
				t.Errorf("Offer #%d error = %v", i, err)
				return
			}
		}
	}()

	for i := 0; i < n; {
		u, err := s.Pop()
		if errors.Is(err, ErrEmpty) {
			runtime.Gosched()
			continue
		}
		if u != byte(i) {
			t.Fatalf("Pop #%d = %d, want %d", i, u, byte(i))
		}
		i++
	}
	wg.Wait()
}

func TestShared_TryPushNeverStalls(t *testing.T) {
	s := NewShared(Stall)
	for i := 0; i < Capacity; i++ {
		if err := s.TryPush('x'); err != nil {
			t.Fatalf("TryPush #%d error = %v", i, err)
		}
	}
	if err := s.TryPush('y'); !errors.Is(err, ErrFull) {
		t.Fatalf("TryPush on full buffer error = %v, want ErrFull", err)
	}
	if s.Dropped() != 1 {
		t.Errorf("Dropped() = %d, want 1", s.Dropped())
	}
	if s.Policy() != Stall {
		t.Errorf("Policy() = %v, want stall", s.Policy())
	}
}
