// Package keyer runs the Morse detection loop against a key line and plays
// bytes back on an indicator.
package keyer

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Timer is a one-shot countdown. Done delivers one event per expiry.
type Timer interface {
	Start(d time.Duration)
	Done() <-chan struct{}
}

// EdgeInput is an active-low key line with a direction-selectable edge trigger.
type EdgeInput interface {
	IsLow() bool
	// SelectRisingEdge arms the trigger for a release
	SelectRisingEdge()
	// SelectFallingEdge arms the trigger for a press
	SelectFallingEdge()
	Edges() <-chan struct{}
}

// OutputPin drives the indicator.
type OutputPin interface {
	SetHigh()
	SetLow()
}

// SerialPort is a byte-wide serial link with separate interrupt enables
// for each direction.
type SerialPort interface {
	WriteByte(b byte) error
	EnableTx()
	DisableTx()
	EnableRx()
	DisableRx()
}

// HostTimer implements Timer with the runtime clock.
type HostTimer struct {
	mu   sync.Mutex
	t    *time.Timer
	gen  uint64
	done chan struct{}
}

// NewHostTimer creates a stopped timer.
func NewHostTimer() *HostTimer {
	return &HostTimer{done: make(chan struct{}, 1)}
}

// Start (re)arms the timer. A pending expiry from an earlier Start is discarded.
func (h *HostTimer) Start(d time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.t != nil {
		h.t.Stop()
	}
	h.gen++
	gen := h.gen
	select {
	case <-h.done:
	default:
	}

	h.t = time.AfterFunc(d, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if gen != h.gen {
			return
		}
		select {
		case h.done <- struct{}{}:
		default:
		}
	})
}

// Done implements Timer.
func (h *HostTimer) Done() <-chan struct{} {
	return h.done
}

// Line is a software key line. Sources call Set with the current level;
// Line latches an edge when the level moves in the armed direction, the
// way an interrupt flag would.
type Line struct {
	mu     sync.Mutex
	low    bool
	rising bool
	edges  chan struct{}
}

// NewLine creates a released (high) line armed for a press.
func NewLine() *Line {
	return &Line{edges: make(chan struct{}, 1)}
}

// Set updates the line level. low is true while the key is pressed.
func (l *Line) Set(low bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if low == l.low {
		return
	}
	l.low = low
	fired := (l.rising && !low) || (!l.rising && low)
	if !fired {
		return
	}
	select {
	case l.edges <- struct{}{}:
	default:
	}
}

// IsLow implements EdgeInput.
func (l *Line) IsLow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.low
}

// SelectRisingEdge implements EdgeInput.
func (l *Line) SelectRisingEdge() {
	l.arm(true)
}

// SelectFallingEdge implements EdgeInput.
func (l *Line) SelectFallingEdge() {
	l.arm(false)
}

// arm changes the trigger direction and clears a latched edge, like
// reprogramming the edge-select register clears the flag.
func (l *Line) arm(rising bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rising = rising
	select {
	case <-l.edges:
	default:
	}
}

// Edges implements EdgeInput.
func (l *Line) Edges() <-chan struct{} {
	return l.edges
}

// LogPin is an indicator that reports its level changes to a logger.
type LogPin struct {
	log  *zap.Logger
	high atomic.Bool
}

// NewLogPin creates a low LogPin. A nil logger discards output.
func NewLogPin(log *zap.Logger) *LogPin {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogPin{log: log}
}

// SetHigh implements OutputPin.
func (p *LogPin) SetHigh() {
	if !p.high.Swap(true) {
		p.log.Debug("indicator", zap.Bool("high", true))
	}
}

// SetLow implements OutputPin.
func (p *LogPin) SetLow() {
	if p.high.Swap(false) {
		p.log.Debug("indicator", zap.Bool("high", false))
	}
}
