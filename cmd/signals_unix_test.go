//go:build unix

package cmd

import (
	"context"
	"syscall"
	"testing"
	"time"
)

func TestToggleRequests_SIGUSR1(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	toggles := toggleRequests(ctx)
	if err := syscall.Kill(syscall.Getpid(), syscall.SIGUSR1); err != nil {
		t.Fatal(err)
	}

	select {
	case <-toggles:
	case <-time.After(2 * time.Second):
		t.Fatal("SIGUSR1 did not request a toggle")
	}
}
