package runtime

import (
	"context"
	"os/signal"
	"syscall"
)

// ShutdownContext is cancelled on SIGINT or SIGTERM. A second signal after
// cancellation falls through to the default handler and kills the process.
func ShutdownContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		stop()
	}()
	return ctx, stop
}
