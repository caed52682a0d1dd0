//go:build unix

package cmd

import (
	"os"
	"syscall"
)

var toggleSignals = []os.Signal{syscall.SIGUSR1}
