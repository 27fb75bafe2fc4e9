package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/odoucet/epub-translator/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := cli.NewRootCmd()
	err := root.ExecuteContext(ctx)
	stop()
	os.Exit(cli.ExitCode(err))
}
