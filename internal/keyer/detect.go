package keyer

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/ColonelBlimp/cwkey/internal/morse"
)

// ErrInvalidUnit indicates the unit interval must be positive
var ErrInvalidUnit = errors.New("unit interval must be positive")

// Result is the outcome of one detection session.
type Result struct {
	// Char is the decoded byte, 0 if the session ended without one
	Char byte
	// WordBoundary is true when the session ended on a word gap
	WordBoundary bool
}

// Detector times key presses and releases in units and feeds the decoder.
type Detector struct {
	unit  time.Duration
	timer Timer
	input EdgeInput
	log   *zap.Logger
}

// NewDetector creates a detector ticking every unit.
func NewDetector(unit time.Duration, timer Timer, input EdgeInput, log *zap.Logger) (*Detector, error) {
	if unit <= 0 {
		return nil, ErrInvalidUnit
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Detector{
		unit:  unit,
		timer: timer,
		input: input,
		log:   log,
	}, nil
}

// Detect runs one session: it waits for ticks and edges until the decoder
// emits a byte or the line stays idle past the space threshold. dec
// carries the decoder position between sessions.
func (d *Detector) Detect(ctx context.Context, dec *morse.Decoder) (Result, error) {
	var (
		res            Result
		iters          uint16
		lastTransition uint16
	)

	pressed := d.input.IsLow()
	d.arm(pressed)

	for {
		d.timer.Start(d.unit)

	wait:
		for {
			select {
			case <-ctx.Done():
				return Result{}, ctx.Err()

			case <-d.timer.Done():
				break wait

			case <-d.input.Edges():
				diff := iters - lastTransition
				lastTransition = iters

				if sym, ok := intervalSymbol(pressed, diff); ok {
					res.Char = dec.Feed(sym)
					d.log.Debug("symbol",
						zap.Stringer("symbol", sym),
						zap.Uint16("ticks", diff),
						zap.Stringer("state", dec.State()))
				}
				if res.Char != 0 {
					return res, nil
				}

				pressed = !pressed
				d.arm(pressed)
			}
		}

		iters++
		if iters-lastTransition > morse.DashMaxTicks {
			sym := morse.Dash
			if !pressed {
				sym = morse.Space
				res.WordBoundary = true
			}
			res.Char = dec.Feed(sym)
			d.log.Debug("idle timeout",
				zap.Stringer("symbol", sym),
				zap.Bool("pressed", pressed))
			return res, nil
		}
	}
}

// arm selects the edge that ends the current interval.
func (d *Detector) arm(pressed bool) {
	if pressed {
		d.input.SelectRisingEdge()
	} else {
		d.input.SelectFallingEdge()
	}
}

// intervalSymbol maps a completed interval to the symbol fed to the decoder.
// A mark is a Dot or a Dash; an over-long mark counts as a Dash. A gap is
// fed as Space only when it reaches dash length; shorter gaps separate
// symbols within a letter and are not fed.
func intervalSymbol(pressed bool, ticks uint16) (morse.Symbol, bool) {
	sym := morse.Classify(ticks)
	if pressed {
		if sym == morse.Dot {
			return morse.Dot, true
		}
		return morse.Dash, true
	}
	if sym == morse.Dot {
		return 0, false
	}
	return morse.Space, true
}
