// Package dsp turns a keyed audio tone into key-line levels.
package dsp

import (
	"errors"
	"math"
)

var (
	// ErrInvalidBlockSize indicates block size must be positive
	ErrInvalidBlockSize = errors.New("block size must be positive")
	// ErrInvalidSampleRate indicates sample rate must be positive
	ErrInvalidSampleRate = errors.New("sample rate must be positive")
	// ErrInvalidFrequency indicates frequency must be positive and below Nyquist
	ErrInvalidFrequency = errors.New("tone frequency must be positive and less than Nyquist frequency")
)

// ToneFilter measures the energy of one frequency bin over a block of
// samples (Goertzel).
type ToneFilter struct {
	frequency  float64
	sampleRate float64
	blockSize  int
	coeff      float64 // 2cos(ω)
	scale      float64 // 2/N, so a full-scale sine reads ~1.0
}

// NewToneFilter creates a filter for frequency Hz at sampleRate.
func NewToneFilter(frequency, sampleRate float64, blockSize int) (*ToneFilter, error) {
	if blockSize <= 0 {
		return nil, ErrInvalidBlockSize
	}
	if sampleRate <= 0 {
		return nil, ErrInvalidSampleRate
	}
	if frequency <= 0 || frequency >= sampleRate/2 {
		return nil, ErrInvalidFrequency
	}

	omega := 2 * math.Pi * frequency / sampleRate
	return &ToneFilter{
		frequency:  frequency,
		sampleRate: sampleRate,
		blockSize:  blockSize,
		coeff:      2 * math.Cos(omega),
		scale:      2 / float64(blockSize),
	}, nil
}

// BlockSize returns the number of samples per measurement.
func (f *ToneFilter) BlockSize() int {
	return f.blockSize
}

// Frequency returns the target frequency in Hz.
func (f *ToneFilter) Frequency() float64 {
	return f.frequency
}

// Magnitude returns the normalised tone magnitude of the first BlockSize
// samples of block. Caller must supply at least BlockSize samples.
func (f *ToneFilter) Magnitude(block []float32) float64 {
	var s1, s2 float64
	for _, x := range block[:f.blockSize] {
		s0 := float64(x) + f.coeff*s1 - s2
		s2 = s1
		s1 = s0
	}

	power := s1*s1 + s2*s2 - f.coeff*s1*s2
	if power < 0 {
		power = 0
	}
	return math.Sqrt(power) * f.scale
}
