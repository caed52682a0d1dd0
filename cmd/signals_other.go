//go:build !unix

package cmd

import "os"

// No user signal to toggle with; the mode stays as configured.
var toggleSignals []os.Signal
