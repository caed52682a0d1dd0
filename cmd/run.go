package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ColonelBlimp/cwkey/internal/config"
	"github.com/ColonelBlimp/cwkey/internal/logging"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the keyer",
	Long: `Run decodes the key onto the serial link (decode mode) or plays bytes
from the link on the indicator (receive mode) until interrupted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		settings, err := config.Get()
		if err != nil {
			return err
		}
		log, err := logging.New(settings.Debug)
		if err != nil {
			return fmt.Errorf("logger: %w", err)
		}
		defer func() { _ = log.Sync() }()

		a, err := newApp(settings, log)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		err = a.Run(ctx, toggleRequests(ctx))
		log.Info("keyer stopped", zap.String("summary", a.Summary()))
		_, _ = fmt.Fprintln(cmd.ErrOrStderr(), a.Summary())
		return err
	},
}

// toggleRequests turns the toggle signals into mode switch requests.
func toggleRequests(ctx context.Context) <-chan struct{} {
	out := make(chan struct{}, 1)
	if len(toggleSignals) == 0 {
		return out
	}
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, toggleSignals...)
	go func() {
		defer signal.Stop(sigs)
		for {
			select {
			case <-ctx.Done():
				return
			case <-sigs:
				select {
				case out <- struct{}{}:
				default:
				}
			}
		}
	}()
	return out
}
