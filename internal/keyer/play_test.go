package keyer

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"
)

// autoTimer expires immediately and records every requested duration.
type autoTimer struct {
	durations []time.Duration
	done      chan struct{}
}

func newAutoTimer() *autoTimer {
	return &autoTimer{done: make(chan struct{}, 1)}
}

func (a *autoTimer) Start(d time.Duration) {
	a.durations = append(a.durations, d)
	a.done <- struct{}{}
}

func (a *autoTimer) Done() <-chan struct{} { return a.done }

func (a *autoTimer) units() []int {
	out := make([]int, len(a.durations))
	for i, d := range a.durations {
		out[i] = int(d / testUnit)
	}
	return out
}

type recordPin struct {
	levels []bool
}

func (r *recordPin) SetHigh() { r.levels = append(r.levels, true) }
func (r *recordPin) SetLow()  { r.levels = append(r.levels, false) }

func TestPlayer_Timing(t *testing.T) {
	tests := []struct {
		name   string
		c      byte
		units  []int
		levels []bool
	}{
		{"A", 'A', []int{1, 1, 3, 1, 2}, []bool{true, false, true, false}},
		{"lower e", 'e', []int{1, 1, 2}, []bool{true, false}},
		{"space", ' ', []int{4, 1, 2}, []bool{false, false}},
		{"no code", '!', []int{2}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			timer := newAutoTimer()
			pin := &recordPin{}
			p, err := NewPlayer(testUnit, timer, pin)
			if err != nil {
				t.Fatalf("NewPlayer() error = %v", err)
			}

			if err := p.Play(context.Background(), tt.c); err != nil {
				t.Fatalf("Play(%q) error = %v", tt.c, err)
			}
			if got := timer.units(); !slices.Equal(got, tt.units) {
				t.Errorf("waits = %v units, want %v", got, tt.units)
			}
			if !slices.Equal(pin.levels, tt.levels) {
				t.Errorf("pin levels = %v, want %v", pin.levels, tt.levels)
			}
		})
	}
}

func TestPlayer_WordGap(t *testing.T) {
	timer := newAutoTimer()
	p, _ := NewPlayer(testUnit, timer, &recordPin{})

	if err := p.PlayString(context.Background(), "E E"); err != nil {
		t.Fatalf("PlayString() error = %v", err)
	}

	want := []int{
		1, 1, 2, // E
		4, 1, 2, // word space
		1, 1, 2, // E
	}
	if got := timer.units(); !slices.Equal(got, want) {
		t.Errorf("waits = %v units, want %v", got, want)
	}
}

func TestPlayer_CancelLeavesPinLow(t *testing.T) {
	timer := &stepTimer{done: make(chan struct{})}
	pin := &recordPin{}
	p, _ := NewPlayer(testUnit, timer, pin)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := p.Play(ctx, 'T'); !errors.Is(err, context.Canceled) {
		t.Fatalf("Play() error = %v, want context.Canceled", err)
	}
	if len(pin.levels) == 0 || pin.levels[len(pin.levels)-1] {
		t.Errorf("pin levels = %v, want to end low", pin.levels)
	}
}

func TestPlayer_Idle(t *testing.T) {
	timer := newAutoTimer()
	p, _ := NewPlayer(testUnit, timer, &recordPin{})
	if err := p.Idle(context.Background()); err != nil {
		t.Fatalf("Idle() error = %v", err)
	}
	if got := timer.units(); !slices.Equal(got, []int{1}) {
		t.Errorf("Idle waits = %v, want [1]", got)
	}
}

func TestNewPlayer_InvalidUnit(t *testing.T) {
	if _, err := NewPlayer(-time.Second, newAutoTimer(), &recordPin{}); err != ErrInvalidUnit {
		t.Errorf("NewPlayer() error = %v, want ErrInvalidUnit", err)
	}
}
