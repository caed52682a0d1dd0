package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ColonelBlimp/cwkey/internal/config"
	"github.com/ColonelBlimp/cwkey/internal/logging"
)

var sendCmd = &cobra.Command{
	Use:   "send TEXT...",
	Short: "Play text as Morse on the indicator",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := config.Get()
		if err != nil {
			return err
		}
		log, err := logging.New(settings.Debug)
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return sendText(ctx, settings, log, strings.Join(args, " "))
	},
}

// sendText plays text on the configured indicator and returns when done.
func sendText(ctx context.Context, s *config.Settings, log *zap.Logger, text string) (err error) {
	a := &app{settings: s, log: log}
	defer a.Close()

	if a.indicator, err = a.newIndicator(); err != nil {
		return err
	}
	player, err := a.newPlayer()
	if err != nil {
		return err
	}

	if a.sidetone != nil {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		done := make(chan error, 1)
		go func() { done <- a.sidetone.Run(ctx) }()
		defer func() {
			cancel()
			if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
				log.Warn("sidetone", zap.Error(err))
			}
		}()
	}

	log.Debug("sending", zap.String("text", text), zap.Duration("unit", s.Unit()))
	if err := player.PlayString(ctx, text); err != nil {
		return err
	}
	// trailing letter space lets the sidetone ramp down
	return player.Idle(ctx)
}
