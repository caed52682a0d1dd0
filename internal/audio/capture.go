// internal/audio/capture.go
package audio

import (
	"context"
	"encoding/binary"
	"math"
	"sync"

	"github.com/gen2brain/malgo"
)

// CaptureConfig selects the input device and stream format.
type CaptureConfig struct {
	DeviceIndex int    // -1 for default device
	SampleRate  uint32 // e.g., 48000
	BufferSize  uint32 // frames per callback
}

// SampleFunc is called from the audio thread with mono float32 samples.
// It must not block.
type SampleFunc func(samples []float32)

// Capture streams mono input samples to a SampleFunc.
type Capture struct {
	engine *Engine
	config CaptureConfig
	onData SampleFunc

	mu      sync.Mutex
	device  *malgo.Device
	scratch []float32
}

// NewCapture creates a capture stream on engine delivering to fn.
func NewCapture(engine *Engine, cfg CaptureConfig, fn SampleFunc) *Capture {
	return &Capture{
		engine: engine,
		config: cfg,
		onData: fn,
	}
}

// Run starts the stream and blocks until ctx is done.
func (c *Capture) Run(ctx context.Context) error {
	if err := c.start(); err != nil {
		return err
	}
	<-ctx.Done()
	_ = c.Stop()
	return ctx.Err()
}

func (c *Capture) start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.device != nil {
		return ErrAlreadyRunning
	}
	if c.engine == nil {
		return ErrNotInitialized
	}

	cfg := malgo.DefaultDeviceConfig(malgo.Capture)
	cfg.SampleRate = c.config.SampleRate
	cfg.PeriodSizeInFrames = c.config.BufferSize
	cfg.Capture.Format = malgo.FormatF32
	cfg.Capture.Channels = 1

	id, err := c.engine.deviceID(malgo.Capture, c.config.DeviceIndex)
	if err != nil {
		return err
	}
	if id != nil {
		cfg.Capture.DeviceID = id.Pointer()
	}

	device, err := c.engine.initDevice(cfg, malgo.DeviceCallbacks{Data: c.onFrames})
	if err != nil {
		return err
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		return err
	}
	c.device = device
	return nil
}

func (c *Capture) onFrames(_, input []byte, _ uint32) {
	if len(input) == 0 || c.onData == nil {
		return
	}
	c.scratch = decodeF32(c.scratch, input)
	c.onData(c.scratch)
}

// Stop halts the stream.
func (c *Capture) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.device == nil {
		return ErrNotRunning
	}
	_ = c.device.Stop()
	c.device.Uninit()
	c.device = nil
	return nil
}

// IsRunning reports whether the stream is active.
func (c *Capture) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.device != nil
}

// decodeF32 converts little-endian float32 PCM into dst, reusing its storage.
func decodeF32(dst []float32, data []byte) []float32 {
	n := len(data) / 4
	if cap(dst) < n {
		dst = make([]float32, n)
	}
	dst = dst[:n]
	for i := range dst {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return dst
}

// encodeF32 writes samples as little-endian float32 PCM into out.
func encodeF32(out []byte, samples []float32) {
	for i, s := range samples {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(s))
	}
}
