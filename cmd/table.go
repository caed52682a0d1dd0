package cmd

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ColonelBlimp/cwkey/internal/morse"
)

var tableCmd = &cobra.Command{
	Use:   "table",
	Short: "Print the Morse encoding table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return printTable(cmd.OutOrStdout())
	},
}

// printTable lists every byte with a pattern, folding lower case.
func printTable(w io.Writer) error {
	for c := 0; c < 256; c++ {
		b := byte(c)
		if b >= 'a' && b <= 'z' {
			continue
		}
		p := morse.Pattern(b)
		if p == "" {
			continue
		}
		label := string(rune(b))
		switch {
		case b == ' ':
			label = "space"
		case b < ' ':
			label = strconv.QuoteRune(rune(b))
		}
		if _, err := fmt.Fprintf(w, "%-6s %s\n", label, p); err != nil {
			return err
		}
	}
	return nil
}
