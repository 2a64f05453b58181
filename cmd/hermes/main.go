package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/lazuli-inc/hermes/cmd/hermes/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	commands.ExecuteContext(ctx)
}
