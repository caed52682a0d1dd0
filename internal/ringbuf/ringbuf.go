// Package ringbuf implements the fixed-capacity byte FIFO shared between the
// foreground loop and the serial handlers.
package ringbuf

import "errors"

const (
	sizeExp = 7
	// Size is the number of slots. One slot is kept free so a full buffer
	// can be told apart from an empty one.
	Size = 1 << sizeExp
	// Capacity is the number of bytes the buffer can hold
	Capacity = Size - 1
)

var (
	// ErrFull indicates the byte was not stored
	ErrFull = errors.New("ring buffer full")
	// ErrEmpty indicates there was nothing to read
	ErrEmpty = errors.New("ring buffer empty")
)

// Buffer is a bounded FIFO of bytes. It is not safe for concurrent use;
// share it through Shared.
type Buffer struct {
	writer int
	reader int
	data   [Size]byte
}

// Push stores u, or returns ErrFull leaving the buffer unchanged.
func (b *Buffer) Push(u byte) error {
	next := (b.writer + 1) % Size
	if next == b.reader {
		return ErrFull
	}
	b.data[b.writer] = u
	b.writer = next
	return nil
}

// Pop removes the oldest byte, or returns ErrEmpty leaving the buffer unchanged.
func (b *Buffer) Pop() (byte, error) {
	if b.reader == b.writer {
		return 0, ErrEmpty
	}
	u := b.data[b.reader]
	b.reader = (b.reader + 1) % Size
	return u, nil
}

// IsEmpty reports whether there is nothing to read.
func (b *Buffer) IsEmpty() bool {
	return b.reader == b.writer
}

// Clear discards all buffered bytes.
func (b *Buffer) Clear() {
	b.writer = 0
	b.reader = 0
}
