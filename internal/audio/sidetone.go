package audio

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"
)

// ErrInvalidVolume indicates sidetone volume must be between 0 and 1
var ErrInvalidVolume = errors.New("sidetone volume must be between 0.0 and 1.0")

// rampSeconds shapes key-down and key-up to avoid clicks.
const rampSeconds = 0.005

// SidetoneConfig selects the output device and tone.
type SidetoneConfig struct {
	DeviceIndex int
	SampleRate  uint32
	BufferSize  uint32
	Frequency   float64
	Volume      float64
}

// Sidetone is an indicator that sounds a tone while high.
type Sidetone struct {
	engine *Engine
	config SidetoneConfig
	gen    *toneGen

	mu      sync.Mutex
	device  *malgo.Device
	scratch []float32
}

// NewSidetone creates a sidetone on engine.
func NewSidetone(engine *Engine, cfg SidetoneConfig) (*Sidetone, error) {
	if cfg.Volume < 0 || cfg.Volume > 1 {
		return nil, ErrInvalidVolume
	}
	return &Sidetone{
		engine: engine,
		config: cfg,
		gen:    newToneGen(cfg.Frequency, float64(cfg.SampleRate), cfg.Volume),
	}, nil
}

// SetHigh starts the tone.
func (s *Sidetone) SetHigh() { s.gen.key(true) }

// SetLow stops the tone.
func (s *Sidetone) SetLow() { s.gen.key(false) }

// Run opens the playback stream and blocks until ctx is done.
func (s *Sidetone) Run(ctx context.Context) error {
	if err := s.start(); err != nil {
		return err
	}
	<-ctx.Done()
	_ = s.Stop()
	return ctx.Err()
}

func (s *Sidetone) start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.device != nil {
		return ErrAlreadyRunning
	}
	if s.engine == nil {
		return ErrNotInitialized
	}

	cfg := malgo.DefaultDeviceConfig(malgo.Playback)
	cfg.SampleRate = s.config.SampleRate
	cfg.PeriodSizeInFrames = s.config.BufferSize
	cfg.Playback.Format = malgo.FormatF32
	cfg.Playback.Channels = 1

	id, err := s.engine.deviceID(malgo.Playback, s.config.DeviceIndex)
	if err != nil {
		return err
	}
	if id != nil {
		cfg.Playback.DeviceID = id.Pointer()
	}

	device, err := s.engine.initDevice(cfg, malgo.DeviceCallbacks{Data: s.onFrames})
	if err != nil {
		return err
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		return err
	}
	s.device = device
	return nil
}

func (s *Sidetone) onFrames(output, _ []byte, frames uint32) {
	n := int(frames)
	if cap(s.scratch) < n {
		s.scratch = make([]float32, n)
	}
	buf := s.scratch[:n]
	s.gen.fill(buf)
	encodeF32(output, buf)
}

// Stop halts playback.
func (s *Sidetone) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.device == nil {
		return ErrNotRunning
	}
	_ = s.device.Stop()
	s.device.Uninit()
	s.device = nil
	return nil
}

// toneGen is a gated sine oscillator with a linear envelope. key is called
// from the keyer; fill from the audio thread.
type toneGen struct {
	keyed atomic.Bool

	phase, step float64
	volume      float64
	env, slope  float64
}

func newToneGen(frequency, sampleRate, volume float64) *toneGen {
	g := &toneGen{volume: volume, slope: 1}
	if sampleRate > 0 {
		g.step = 2 * math.Pi * frequency / sampleRate
		if r := rampSeconds * sampleRate; r > 1 {
			g.slope = 1 / r
		}
	}
	return g
}

func (g *toneGen) key(on bool) { g.keyed.Store(on) }

func (g *toneGen) fill(out []float32) {
	on := g.keyed.Load()
	for i := range out {
		if on {
			g.env = min(g.env+g.slope, 1)
		} else {
			g.env = max(g.env-g.slope, 0)
		}
		if g.env == 0 {
			g.phase = 0
			out[i] = 0
			continue
		}
		out[i] = float32(g.volume * g.env * math.Sin(g.phase))
		g.phase += g.step
		if g.phase >= 2*math.Pi {
			g.phase -= 2 * math.Pi
		}
	}
}
