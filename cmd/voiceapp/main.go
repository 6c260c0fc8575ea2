package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/skydreamer0/VOICEAPP/internal/cli"
	"github.com/skydreamer0/VOICEAPP/internal/config"
	"github.com/skydreamer0/VOICEAPP/internal/output"
)

func main() {
	if err := run(); err != nil {
		formatter := output.NewFormatter(os.Stderr)
		formatter.Error(err.Error())
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps := &cli.Dependencies{Config: cfg}
	return cli.NewRootCmd(deps).ExecuteContext(ctx)
}
