package dsp

import "errors"

var (
	// ErrFilterRequired indicates a tone filter is required
	ErrFilterRequired = errors.New("tone filter is required")
	// ErrInvalidThreshold indicates threshold must be between 0 and 1
	ErrInvalidThreshold = errors.New("threshold must be between 0.0 and 1.0")
	// ErrInvalidHysteresis indicates hysteresis must be at least 1
	ErrInvalidHysteresis = errors.New("hysteresis must be at least 1")
	// ErrInvalidAGCDecay indicates AGC decay must be between 0 and 1
	ErrInvalidAGCDecay = errors.New("agc decay must be between 0.0 and 1.0")
	// ErrInvalidAGCAttack indicates AGC attack must be between 0 and 1
	ErrInvalidAGCAttack = errors.New("agc attack must be between 0.0 and 1.0")
)

// agcFloor keeps the normaliser away from zero on silence.
const agcFloor = 0.001

// LevelSink receives key-line levels. low is true while the tone is keyed.
// keyer.Line implements it.
type LevelSink interface {
	Set(low bool)
}

// KeyingConfig holds detector settings (from config: threshold, hysteresis,
// agc_enabled, agc_decay, agc_attack).
type KeyingConfig struct {
	Threshold  float64
	Hysteresis int
	AGCEnabled bool
	AGCDecay   float64
	AGCAttack  float64
}

// KeyingDetector turns audio into key-down/key-up levels: tone magnitude
// per block, optional AGC, threshold, then a run of Hysteresis agreeing
// blocks before the level changes.
type KeyingDetector struct {
	cfg    KeyingConfig
	filter *ToneFilter
	sink   LevelSink

	pending []float32

	peak   float64
	keyed  bool
	streak int
}

// NewKeyingDetector validates cfg and creates a detector feeding sink.
func NewKeyingDetector(cfg KeyingConfig, filter *ToneFilter, sink LevelSink) (*KeyingDetector, error) {
	if filter == nil {
		return nil, ErrFilterRequired
	}
	if cfg.Threshold < 0 || cfg.Threshold > 1 {
		return nil, ErrInvalidThreshold
	}
	if cfg.Hysteresis < 1 {
		return nil, ErrInvalidHysteresis
	}
	if cfg.AGCDecay < 0 || cfg.AGCDecay > 1 {
		return nil, ErrInvalidAGCDecay
	}
	if cfg.AGCAttack < 0 || cfg.AGCAttack > 1 {
		return nil, ErrInvalidAGCAttack
	}
	return &KeyingDetector{
		cfg:     cfg,
		filter:  filter,
		sink:    sink,
		pending: make([]float32, 0, filter.BlockSize()),
		peak:    agcFloor,
	}, nil
}

// Process consumes samples. Partial blocks are kept for the next call.
// Called from the audio callback; it does not allocate once warm.
func (d *KeyingDetector) Process(samples []float32) {
	n := d.filter.BlockSize()
	for len(samples) > 0 {
		take := min(n-len(d.pending), len(samples))
		d.pending = append(d.pending, samples[:take]...)
		samples = samples[take:]
		if len(d.pending) == n {
			d.block(d.pending)
			d.pending = d.pending[:0]
		}
	}
}

func (d *KeyingDetector) block(samples []float32) {
	mag := d.filter.Magnitude(samples)
	if d.cfg.AGCEnabled {
		mag = d.normalise(mag)
	}
	tone := mag > d.cfg.Threshold

	if tone == d.keyed {
		d.streak = 0
		return
	}
	d.streak++
	if d.streak < d.cfg.Hysteresis {
		return
	}
	d.streak = 0
	d.keyed = tone
	if d.sink != nil {
		d.sink.Set(tone)
	}
}

func (d *KeyingDetector) normalise(mag float64) float64 {
	if mag > d.peak {
		d.peak += d.cfg.AGCAttack * (mag - d.peak)
	} else {
		d.peak *= d.cfg.AGCDecay
	}
	if d.peak < agcFloor {
		d.peak = agcFloor
	}
	return min(mag/d.peak, 1)
}
