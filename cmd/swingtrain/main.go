// Command swingtrain trains, applies and evaluates the swing probability
// model. Running it without a subcommand trains with the default settings.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/YuminosukeSato/swingprob/pkg/log"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		log.GetLoggerWithName("swingtrain").Error("swingtrain failed", err)
		os.Exit(1)
	}
}
