// internal/recovery/recovery.go
// Package recovery turns panics into a logged fatal exit.
package recovery

import (
	"fmt"
	"os"
	"runtime/debug"

	"go.uber.org/zap"
)

// exit is replaced in tests.
var exit = os.Exit

// HandlePanic should be deferred at the top of main() or goroutines.
// It logs the panic with its stack and exits with code 1. A nil logger
// writes to stderr.
func HandlePanic(log *zap.Logger) {
	if r := recover(); r != nil {
		report(log, r)
		exit(1)
	}
}

// HandlePanicFunc is HandlePanic with a cleanup run before exit, e.g.
// releasing audio devices or the link.
func HandlePanicFunc(log *zap.Logger, cleanup func()) {
	if r := recover(); r != nil {
		report(log, r)
		if cleanup != nil {
			cleanup()
		}
		exit(1)
	}
}

func report(log *zap.Logger, r any) {
	stack := debug.Stack()
	if log == nil {
		_, _ = fmt.Fprintf(os.Stderr, "FATAL: %v\n\nStack trace:\n%s\n", r, stack)
		return
	}
	log.Error("FATAL: panic", zap.Any("panic", r), zap.ByteString("stack", stack))
	_ = log.Sync()
}
