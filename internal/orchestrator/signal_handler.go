// Package orchestrator wires the configured backends into services and
// manages process shutdown.
package orchestrator

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
)

// SignalHandler turns SIGINT and SIGTERM into context cancellation
type SignalHandler struct {
	sigChan chan os.Signal
}

// NewSignalHandler creates a new signal handler
func NewSignalHandler() *SignalHandler {
	sh := &SignalHandler{
		sigChan: make(chan os.Signal, 1),
	}

	// Register for interrupt and terminate signals
	signal.Notify(sh.sigChan, syscall.SIGINT, syscall.SIGTERM)

	return sh
}

// Context returns a context that is cancelled on the first shutdown signal
// or when parent ends. The cancel func also stops signal delivery.
func (sh *SignalHandler) Context(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	go func() {
		select {
		case sig := <-sh.sigChan:
			log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, func() {
		signal.Stop(sh.sigChan)
		cancel()
	}
}
