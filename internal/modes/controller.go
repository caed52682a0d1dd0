// Package modes arbitrates between decoding the key onto the serial link
// and playing serial input back on the indicator.
package modes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/ColonelBlimp/cwkey/internal/keyer"
	"github.com/ColonelBlimp/cwkey/internal/morse"
	"github.com/ColonelBlimp/cwkey/internal/ringbuf"
)

// Mode selects which side produces into the shared buffer.
type Mode int

const (
	// Decode: the key is decoded into the buffer and the serial link transmits it
	Decode Mode = iota
	// Receive: serial input is buffered, echoed and played on the indicator
	Receive
)

func (m Mode) String() string {
	switch m {
	case Decode:
		return "decode"
	case Receive:
		return "receive"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode converts a config value into a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "decode", "":
		return Decode, nil
	case "receive", "playback":
		return Receive, nil
	}
	return Decode, fmt.Errorf("unknown mode %q", s)
}

var (
	// ErrDetectorRequired indicates a detector is required
	ErrDetectorRequired = errors.New("detector is required")
	// ErrPlayerRequired indicates a player is required
	ErrPlayerRequired = errors.New("player is required")
	// ErrBufferRequired indicates a shared buffer is required
	ErrBufferRequired = errors.New("shared buffer is required")
	// ErrSerialRequired indicates a serial port is required
	ErrSerialRequired = errors.New("serial port is required")
)

// Config holds the collaborators of a Controller.
type Config struct {
	Mode      Mode
	Buffer    *ringbuf.Shared
	Serial    keyer.SerialPort
	Detector  *keyer.Detector
	Player    *keyer.Player
	Indicator keyer.OutputPin
	Logger    *zap.Logger
}

// Stats counts traffic through the controller.
type Stats struct {
	Decoded  uint64
	Received uint64
	Dropped  uint64
	Toggles  uint64
}

// Controller owns the mode flag. Run is the foreground loop; OnReceive and
// OnTransmitReady are the serial handlers; Toggle is the mode input handler.
type Controller struct {
	receive atomic.Bool

	buf       *ringbuf.Shared
	serial    keyer.SerialPort
	detector  *keyer.Detector
	player    *keyer.Player
	indicator keyer.OutputPin
	log       *zap.Logger

	// foreground only
	dec morse.Decoder

	// epoch counts mode switches; written inside the buffer's critical section
	epoch atomic.Uint64

	decoded  atomic.Uint64
	received atomic.Uint64
	toggles  atomic.Uint64
}

// New creates a controller and programs the serial enables for cfg.Mode.
func New(cfg Config) (*Controller, error) {
	if cfg.Buffer == nil {
		return nil, ErrBufferRequired
	}
	if cfg.Serial == nil {
		return nil, ErrSerialRequired
	}
	if cfg.Detector == nil {
		return nil, ErrDetectorRequired
	}
	if cfg.Player == nil {
		return nil, ErrPlayerRequired
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	c := &Controller{
		buf:       cfg.Buffer,
		serial:    cfg.Serial,
		detector:  cfg.Detector,
		player:    cfg.Player,
		indicator: cfg.Indicator,
		log:       log,
	}
	c.buf.With(func(b *ringbuf.Buffer) {
		c.receive.Store(cfg.Mode == Receive)
		c.applyEnables(cfg.Mode, b)
	})
	return c, nil
}

// Mode returns the current mode.
func (c *Controller) Mode() Mode {
	if c.receive.Load() {
		return Receive
	}
	return Decode
}

// Toggle switches mode. Buffered bytes belong to the old mode and are
// discarded. Only the mode input handler calls it.
//
// The flag, the epoch, the buffer and the serial enables change in one
// critical section, so a handler or a stalled producer sees either the
// old mode with its bytes or the new mode with an empty buffer.
func (c *Controller) Toggle() Mode {
	var next Mode
	c.buf.With(func(b *ringbuf.Buffer) {
		next = Receive
		if c.receive.Load() {
			next = Decode
		}
		c.receive.Store(next == Receive)
		c.epoch.Add(1)
		b.Clear()
		c.applyEnables(next, b)
	})
	c.toggles.Add(1)
	c.log.Info("mode switched", zap.Stringer("mode", next))
	return next
}

// WatchToggle calls Toggle once per event on edges until ctx is done.
func (c *Controller) WatchToggle(ctx context.Context, edges <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-edges:
			c.Toggle()
		}
	}
}

// applyEnables programs the serial enables for m. Called inside the
// buffer's critical section.
func (c *Controller) applyEnables(m Mode, b *ringbuf.Buffer) {
	if m == Receive {
		c.serial.DisableTx()
		c.serial.EnableRx()
		return
	}
	c.serial.DisableRx()
	if !b.IsEmpty() {
		c.serial.EnableTx()
	}
}

// OnReceive is the serial receive handler. In Receive mode the byte is
// buffered for playback and echoed to the sender. It never blocks on the buffer.
func (c *Controller) OnReceive(b byte) {
	err := c.buf.TryPushIf(b, c.receive.Load)
	if errors.Is(err, ringbuf.ErrWithdrawn) {
		return
	}
	c.received.Add(1)
	if err != nil {
		c.log.Warn("receive overrun, byte dropped", zap.Uint8("byte", b))
	}
	if err := c.serial.WriteByte(b); err != nil {
		c.log.Warn("echo failed", zap.Error(err))
	}
}

// OnTransmitReady is the serial transmit handler. In Decode mode it sends
// the oldest buffered byte and disables itself once the buffer is empty.
// Disabling happens in the same critical section as the pop, so a byte
// pushed by the foreground re-enables transmission after it.
func (c *Controller) OnTransmitReady() {
	var (
		u  byte
		ok bool
	)
	c.buf.With(func(b *ringbuf.Buffer) {
		if c.receive.Load() {
			c.serial.DisableTx()
			return
		}
		var err error
		u, err = b.Pop()
		ok = err == nil
		if !ok || b.IsEmpty() {
			c.serial.DisableTx()
		}
	})
	if !ok {
		return
	}
	if err := c.serial.WriteByte(u); err != nil {
		c.log.Warn("transmit failed", zap.Error(err))
	}
}

// Run is the foreground loop. It returns when ctx is done.
func (c *Controller) Run(ctx context.Context) error {
	last := c.Mode()
	c.enter(last)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		epoch := c.epoch.Load()
		mode := c.Mode()
		if mode != last {
			c.enter(mode)
			last = mode
		}

		var err error
		if mode == Receive {
			err = c.playOne(ctx)
		} else {
			err = c.decodeOne(ctx, epoch)
		}
		if err != nil {
			return err
		}
	}
}

// enter resets foreground state for a mode.
func (c *Controller) enter(m Mode) {
	c.dec.Reset()
	if c.indicator == nil {
		return
	}
	if m == Decode {
		c.indicator.SetHigh()
	} else {
		c.indicator.SetLow()
	}
}

// decodeOne runs one key session. The result is discarded if the mode
// changed after epoch was read.
func (c *Controller) decodeOne(ctx context.Context, epoch uint64) error {
	res, err := c.detector.Detect(ctx, &c.dec)
	if err != nil {
		return err
	}
	if res.Char == 0 {
		return nil
	}

	out := []byte{res.Char}
	if res.WordBoundary {
		out = append(out, ' ')
	}
	err = c.transmit(ctx, epoch, out...)
	if errors.Is(err, ringbuf.ErrWithdrawn) {
		c.log.Debug("mode switched during session, char discarded", zap.String("char", string(rune(res.Char))))
		return nil
	}
	if err != nil {
		return err
	}
	c.decoded.Add(1)
	c.log.Debug("decoded", zap.String("char", string(rune(res.Char))), zap.Bool("word", res.WordBoundary))
	return nil
}

// transmit queues bs for the serial link and enables the transmit handler.
// Bytes are withdrawn with ringbuf.ErrWithdrawn once the mode has changed
// since epoch, including while stalled on a full buffer.
func (c *Controller) transmit(ctx context.Context, epoch uint64, bs ...byte) error {
	current := func() bool { return c.epoch.Load() == epoch }
	for _, b := range bs {
		err := c.buf.OfferIf(ctx, b, current)
		switch {
		case err == nil:
		case errors.Is(err, ringbuf.ErrFull):
			c.log.Warn("decode overrun, byte dropped", zap.Uint8("byte", b))
		default:
			return err
		}
	}

	withdrawn := false
	c.buf.With(func(b *ringbuf.Buffer) {
		if !current() {
			withdrawn = true
			return
		}
		if !b.IsEmpty() {
			c.serial.EnableTx()
		}
	})
	if withdrawn {
		return ringbuf.ErrWithdrawn
	}
	return nil
}

func (c *Controller) playOne(ctx context.Context) error {
	b, err := c.buf.Pop()
	if err != nil {
		return c.player.Idle(ctx)
	}
	return c.player.Play(ctx, b)
}

// Stats returns a snapshot of the counters.
func (c *Controller) Stats() Stats {
	return Stats{
		Decoded:  c.decoded.Load(),
		Received: c.received.Load(),
		Dropped:  c.buf.Dropped(),
		Toggles:  c.toggles.Load(),
	}
}
