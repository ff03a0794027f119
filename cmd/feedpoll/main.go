package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jacoelho/feedpoll/internal/config"
	"github.com/jacoelho/feedpoll/internal/log"
	"github.com/jacoelho/feedpoll/internal/poller"
)

func main() {
	exitCode := run()
	os.Exit(exitCode)
}

func run() int {
	cfg, exitResult := config.Parse(os.Args)
	if exitResult != nil {
		exitResult.Print()
		return exitResult.ExitCode
	}

	p, exitResult := poller.New(cfg)
	if exitResult != nil {
		exitResult.Print()
		return exitResult.ExitCode
	}
	defer log.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return p.Run(ctx)
}
