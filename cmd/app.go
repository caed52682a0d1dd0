package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ColonelBlimp/cwkey/internal/audio"
	"github.com/ColonelBlimp/cwkey/internal/config"
	"github.com/ColonelBlimp/cwkey/internal/dsp"
	"github.com/ColonelBlimp/cwkey/internal/keyer"
	"github.com/ColonelBlimp/cwkey/internal/link"
	"github.com/ColonelBlimp/cwkey/internal/modes"
	"github.com/ColonelBlimp/cwkey/internal/recovery"
	"github.com/ColonelBlimp/cwkey/internal/ringbuf"
)

// app is a wired keyer. Every part is owned here and released by Close.
type app struct {
	settings *config.Settings
	log      *zap.Logger

	engine    *audio.Engine
	capture   *audio.Capture
	sidetone  *audio.Sidetone
	indicator keyer.OutputPin
	line      *keyer.Line

	conn io.ReadWriteCloser
	port *link.Port
	ctrl *modes.Controller
}

// newIndicator builds the output named by settings. The sidetone needs
// the audio engine, which is opened on demand.
func (a *app) newIndicator() (keyer.OutputPin, error) {
	s := a.settings
	switch strings.ToLower(s.Indicator) {
	case "sidetone":
		if err := a.openEngine(); err != nil {
			return nil, err
		}
		st, err := audio.NewSidetone(a.engine, audio.SidetoneConfig{
			DeviceIndex: s.DeviceIndex,
			SampleRate:  uint32(s.SampleRate),
			BufferSize:  uint32(s.BlockSize),
			Frequency:   s.ToneFrequency,
			Volume:      s.SidetoneVolume,
		})
		if err != nil {
			return nil, err
		}
		a.sidetone = st
		return st, nil
	case "log":
		return keyer.NewLogPin(a.log.Named("indicator")), nil
	case "none":
		return nopPin{}, nil
	}
	return nil, fmt.Errorf("unknown indicator %q", s.Indicator)
}

// newKeySource connects the key line to its input.
func (a *app) newKeySource() error {
	s := a.settings
	a.line = keyer.NewLine()

	switch strings.ToLower(s.KeySource) {
	case "none":
		return nil
	case "audio":
	default:
		return fmt.Errorf("unknown key source %q", s.KeySource)
	}

	if err := a.openEngine(); err != nil {
		return err
	}
	filter, err := dsp.NewToneFilter(s.ToneFrequency, s.SampleRate, s.BlockSize)
	if err != nil {
		return fmt.Errorf("tone filter: %w", err)
	}
	det, err := dsp.NewKeyingDetector(dsp.KeyingConfig{
		Threshold:  s.Threshold,
		Hysteresis: s.Hysteresis,
		AGCEnabled: s.AGCEnabled,
		AGCDecay:   s.AGCDecay,
		AGCAttack:  s.AGCAttack,
	}, filter, a.line)
	if err != nil {
		return fmt.Errorf("keying detector: %w", err)
	}
	a.log.Info("audio key source",
		zap.String("tone", humanize.SIWithDigits(filter.Frequency(), 0, "Hz")),
		zap.Int("block", filter.BlockSize()),
		zap.Float64("threshold", s.Threshold))
	a.capture = audio.NewCapture(a.engine, audio.CaptureConfig{
		DeviceIndex: s.DeviceIndex,
		SampleRate:  uint32(s.SampleRate),
		BufferSize:  uint32(s.BlockSize),
	}, det.Process)
	return nil
}

func (a *app) openEngine() error {
	if a.engine != nil {
		return nil
	}
	engine, err := audio.NewEngine()
	if err != nil {
		return err
	}
	a.engine = engine
	return nil
}

// newPlayer creates a player on the indicator, for send and receive mode.
func (a *app) newPlayer() (*keyer.Player, error) {
	return keyer.NewPlayer(a.settings.Unit(), keyer.NewHostTimer(), a.indicator)
}

// newApp wires a keyer from settings.
func newApp(s *config.Settings, log *zap.Logger) (_ *app, err error) {
	a := &app{settings: s, log: log}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	mode, err := modes.ParseMode(s.Mode)
	if err != nil {
		return nil, err
	}
	policy, err := ringbuf.ParsePolicy(s.OverrunPolicy)
	if err != nil {
		return nil, err
	}

	if a.indicator, err = a.newIndicator(); err != nil {
		return nil, err
	}
	if err = a.newKeySource(); err != nil {
		return nil, err
	}

	a.conn, err = link.Open(link.Options{Kind: s.Link, Address: s.LinkAddress, Topic: s.MQTTTopic})
	if err != nil {
		return nil, err
	}
	a.port = link.NewPort(a.conn, log.Named("link"))

	detector, err := keyer.NewDetector(s.Unit(), keyer.NewHostTimer(), a.line, log.Named("detect"))
	if err != nil {
		return nil, err
	}
	player, err := a.newPlayer()
	if err != nil {
		return nil, err
	}

	a.ctrl, err = modes.New(modes.Config{
		Mode:      mode,
		Buffer:    ringbuf.NewShared(policy),
		Serial:    a.port,
		Detector:  detector,
		Player:    player,
		Indicator: a.indicator,
		Logger:    log.Named("modes"),
	})
	if err != nil {
		return nil, err
	}
	a.port.SetHandler(a.ctrl)
	return a, nil
}

// Run drives every part until ctx is done or one of them fails. toggles
// delivers mode switch requests.
func (a *app) Run(ctx context.Context, toggles <-chan struct{}) error {
	g, ctx := errgroup.WithContext(ctx)
	goSafe := func(name string, fn func(context.Context) error) {
		g.Go(func() error {
			defer recovery.HandlePanicFunc(a.log, a.Close)
			if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("%s: %w", name, err)
			}
			return nil
		})
	}

	goSafe("link", a.port.Serve)
	goSafe("controller", a.ctrl.Run)
	goSafe("toggle", func(ctx context.Context) error {
		return a.ctrl.WatchToggle(ctx, toggles)
	})
	if a.capture != nil {
		goSafe("capture", a.capture.Run)
	}
	if a.sidetone != nil {
		goSafe("sidetone", a.sidetone.Run)
	}

	a.log.Info("keyer running",
		zap.Stringer("mode", a.ctrl.Mode()),
		zap.String("link", a.settings.Link),
		zap.Duration("unit", a.settings.Unit()),
		zap.String("tone", humanize.SIWithDigits(a.settings.ToneFrequency, 0, "Hz")))

	return g.Wait()
}

// Summary describes the traffic handled so far.
func (a *app) Summary() string {
	st := a.ctrl.Stats()
	return fmt.Sprintf("decoded %s, received %s, dropped %s, mode switches %s",
		humanize.Comma(int64(st.Decoded)),
		humanize.Comma(int64(st.Received)),
		humanize.Comma(int64(st.Dropped)),
		humanize.Comma(int64(st.Toggles)))
}

// Close releases the link and the audio backend.
func (a *app) Close() {
	var err error
	switch {
	case a.port != nil:
		err = a.port.Close()
	case a.conn != nil:
		err = a.conn.Close()
	}
	if err != nil {
		a.log.Warn("close link", zap.Error(err))
	}
	if a.capture != nil && a.capture.IsRunning() {
		_ = a.capture.Stop()
	}
	if a.sidetone != nil {
		_ = a.sidetone.Stop()
	}
	if a.engine != nil {
		if err := a.engine.Close(); err != nil {
			a.log.Warn("close audio", zap.Error(err))
		}
	}
}

type nopPin struct{}

func (nopPin) SetHigh() {}
func (nopPin) SetLow()  {}
