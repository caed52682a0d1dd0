// Package audio connects the keyer to sound hardware: a capture stream
// that keys the line from a received tone, and a sidetone that sounds the
// indicator.
package audio

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
)

var (
	// ErrNotInitialized indicates the audio engine has not been opened
	ErrNotInitialized = errors.New("audio engine not initialized")
	// ErrAlreadyRunning indicates the stream was already started
	ErrAlreadyRunning = errors.New("audio stream already running")
	// ErrNotRunning indicates the stream is not running
	ErrNotRunning = errors.New("audio stream not running")
	// ErrDeviceIndex indicates the requested device index does not exist
	ErrDeviceIndex = errors.New("device index out of range")
)

// Engine owns the audio backend context shared by capture and playback.
type Engine struct {
	mu  sync.RWMutex
	ctx *malgo.AllocatedContext
}

// NewEngine initializes the audio backend.
func NewEngine() (*Engine, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("init audio context: %w", err)
	}
	return &Engine{ctx: ctx}, nil
}

// Devices lists devices of the given type (malgo.Capture or malgo.Playback).
func (e *Engine) Devices(kind malgo.DeviceType) ([]malgo.DeviceInfo, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.ctx == nil {
		return nil, ErrNotInitialized
	}
	infos, err := e.ctx.Devices(kind)
	if err != nil {
		return nil, fmt.Errorf("enumerate devices: %w", err)
	}
	return infos, nil
}

// deviceID resolves index among devices of kind. A negative index selects
// the system default and returns nil.
func (e *Engine) deviceID(kind malgo.DeviceType, index int) (*malgo.DeviceID, error) {
	if index < 0 {
		return nil, nil
	}
	devices, err := e.Devices(kind)
	if err != nil {
		return nil, err
	}
	if index >= len(devices) {
		return nil, fmt.Errorf("%w: %d (have %d devices)", ErrDeviceIndex, index, len(devices))
	}
	return &devices[index].ID, nil
}

func (e *Engine) initDevice(cfg malgo.DeviceConfig, cb malgo.DeviceCallbacks) (*malgo.Device, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.ctx == nil {
		return nil, ErrNotInitialized
	}
	device, err := malgo.InitDevice(e.ctx.Context, cfg, cb)
	if err != nil {
		return nil, fmt.Errorf("init device: %w", err)
	}
	return device, nil
}

// Close releases the backend. Streams must be stopped first.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.ctx == nil {
		return nil
	}
	if err := e.ctx.Uninit(); err != nil {
		return fmt.Errorf("uninit context: %w", err)
	}
	e.ctx.Free()
	e.ctx = nil
	return nil
}
