package keyer

import (
	"context"
	"time"

	"github.com/ColonelBlimp/cwkey/internal/morse"
)

// Playback timing in units.
const (
	dotUnits     = 1
	dashUnits    = 3
	spaceUnits   = 4 // plus the 3 after every byte gives 7 between words
	elementUnits = 1
	letterUnits  = 2 // plus the 1 after the last element gives 3 between letters
)

// Player keys bytes onto an indicator at a fixed unit.
type Player struct {
	unit  time.Duration
	timer Timer
	pin   OutputPin
}

// NewPlayer creates a player.
func NewPlayer(unit time.Duration, timer Timer, pin OutputPin) (*Player, error) {
	if unit <= 0 {
		return nil, ErrInvalidUnit
	}
	return &Player{unit: unit, timer: timer, pin: pin}, nil
}

// Play keys c and waits out the inter-letter gap. Bytes without a code
// only produce the gap. The indicator is left low.
func (p *Player) Play(ctx context.Context, c byte) error {
	for sym := range morse.Encode(c) {
		var err error
		switch sym {
		case morse.Dot:
			p.pin.SetHigh()
			err = p.wait(ctx, dotUnits)
		case morse.Dash:
			p.pin.SetHigh()
			err = p.wait(ctx, dashUnits)
		case morse.Space:
			p.pin.SetLow()
			err = p.wait(ctx, spaceUnits)
		}
		p.pin.SetLow()
		if err != nil {
			return err
		}
		if err = p.wait(ctx, elementUnits); err != nil {
			return err
		}
	}
	return p.wait(ctx, letterUnits)
}

// PlayString keys every byte of s in order.
func (p *Player) PlayString(ctx context.Context, s string) error {
	for i := 0; i < len(s); i++ {
		if err := p.Play(ctx, s[i]); err != nil {
			return err
		}
	}
	return nil
}

// Idle waits one unit with the indicator untouched.
func (p *Player) Idle(ctx context.Context) error {
	return p.wait(ctx, 1)
}

func (p *Player) wait(ctx context.Context, units int) error {
	p.timer.Start(time.Duration(units) * p.unit)
	select {
	case <-p.timer.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
