// cmd/root.go
// Package cmd implements the cwkey command line.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ColonelBlimp/cwkey/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "cwkey",
	Short: "Morse hand-key decoder and serial keyer",
	Long: `cwkey decodes a hand key into characters on a serial link and, in
receive mode, plays characters arriving on the link back as Morse on an
indicator. Send SIGUSR1 to switch between the two modes.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags (override config file)
	flags := rootCmd.PersistentFlags()
	flags.StringP("mode", "m", "decode", "start-up mode: decode or receive")
	flags.StringP("link", "l", "stdio", "serial link: stdio, telnet or mqtt")
	flags.StringP("address", "a", "", "telnet host:port or MQTT broker URL")
	flags.IntP("device", "d", -1, "audio device index (-1 for default)")
	flags.Float64P("frequency", "f", 600, "key tone and sidetone frequency in Hz")
	flags.BoolP("debug", "D", false, "enable debug logging")

	bindFlags()

	rootCmd.AddCommand(runCmd, sendCmd, tableCmd)
}

// bindFlags maps persistent flags onto config keys.
func bindFlags() {
	for key, flag := range map[string]string{
		"mode":           "mode",
		"link":           "link",
		"link_address":   "address",
		"device_index":   "device",
		"tone_frequency": "frequency",
		"debug":          "debug",
	} {
		if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", flag, err))
		}
	}
}

func initConfig() {
	if err := config.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
}
