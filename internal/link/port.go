// Package link provides the serial port the controller talks to: a raw
// byte stream whose receive and transmit-ready events are delivered as
// handler calls, one at a time, the way a UART raises interrupts.
package link

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// ErrHandlerRequired indicates a handler is required
var ErrHandlerRequired = errors.New("serial handler is required")

// Handler receives serial events. Calls are never concurrent with each
// other and must not block.
type Handler interface {
	OnReceive(b byte)
	OnTransmitReady()
}

// Port adapts a byte stream to keyer.SerialPort.
type Port struct {
	conn io.ReadWriteCloser
	log  *zap.Logger

	handler atomic.Pointer[Handler]

	txOn atomic.Bool
	rxOn atomic.Bool
	kick chan struct{}

	wmu  sync.Mutex
	wbuf [1]byte

	closeOnce sync.Once
}

// NewPort wraps conn. Both directions start disabled.
func NewPort(conn io.ReadWriteCloser, log *zap.Logger) *Port {
	if log == nil {
		log = zap.NewNop()
	}
	return &Port{
		conn: conn,
		log:  log,
		kick: make(chan struct{}, 1),
	}
}

// SetHandler installs the event handler. Set before calling Serve.
func (p *Port) SetHandler(h Handler) {
	if h == nil {
		p.handler.Store(nil)
		return
	}
	p.handler.Store(&h)
}

// WriteByte transmits one byte.
func (p *Port) WriteByte(b byte) error {
	p.wmu.Lock()
	defer p.wmu.Unlock()
	p.wbuf[0] = b
	if _, err := p.conn.Write(p.wbuf[:]); err != nil {
		return fmt.Errorf("serial write: %w", err)
	}
	return nil
}

// EnableTx raises transmit-ready events until DisableTx.
func (p *Port) EnableTx() {
	p.txOn.Store(true)
	p.wake()
}

// DisableTx stops transmit-ready events.
func (p *Port) DisableTx() {
	p.txOn.Store(false)
}

// EnableRx delivers received bytes to the handler.
func (p *Port) EnableRx() {
	p.rxOn.Store(true)
}

// DisableRx discards received bytes.
func (p *Port) DisableRx() {
	p.rxOn.Store(false)
}

func (p *Port) wake() {
	select {
	case p.kick <- struct{}{}:
	default:
	}
}

type rxEvent struct {
	b   byte
	err error
}

// Serve dispatches events to the handler until ctx is done or the stream
// fails. End of input stops reception but keeps transmission running.
//
// Serve closes the port on return, which unblocks the reader goroutine.
// A stream whose Close leaves reads pending, like Stdio, keeps the reader
// parked until the next byte or end of input; that byte is discarded.
func (p *Port) Serve(ctx context.Context) error {
	hp := p.handler.Load()
	if hp == nil {
		return ErrHandlerRequired
	}
	h := *hp

	rx := make(chan rxEvent)
	go p.readLoop(ctx, rx)
	defer p.Close()

	for {
		if p.txOn.Load() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case ev, ok := <-rx:
				if err := p.receive(h, ev, ok, &rx); err != nil {
					return err
				}
			default:
				h.OnTransmitReady()
			}
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-rx:
			if err := p.receive(h, ev, ok, &rx); err != nil {
				return err
			}
		case <-p.kick:
		}
	}
}

func (p *Port) receive(h Handler, ev rxEvent, ok bool, rx *chan rxEvent) error {
	if !ok {
		*rx = nil
		return nil
	}
	if ev.err != nil {
		*rx = nil
		if errors.Is(ev.err, io.EOF) {
			p.log.Info("serial input closed")
			return nil
		}
		return fmt.Errorf("serial read: %w", ev.err)
	}
	if p.rxOn.Load() {
		h.OnReceive(ev.b)
	}
	return nil
}

// readLoop never delivers after ctx is done.
func (p *Port) readLoop(ctx context.Context, rx chan<- rxEvent) {
	r := bufio.NewReader(p.conn)
	for {
		b, err := r.ReadByte()
		select {
		case rx <- rxEvent{b: b, err: err}:
		case <-ctx.Done():
			return
		}
		if err != nil {
			return
		}
	}
}

// Close closes the underlying stream.
func (p *Port) Close() error {
	var err error
	p.closeOnce.Do(func() {
		err = p.conn.Close()
	})
	return err
}
