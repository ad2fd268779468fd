//go:build windows

package main

import (
	"context"
	"os"
	"os/signal"
)

// notifyContext cancels in-flight captures on interrupt. Windows has no
// SIGTERM or SIGHUP to listen for.
func notifyContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt)
}
