package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	_ "github.com/tanpawarit/fantrax-coach/pkg/logger/autoload"
	_ "go.uber.org/automaxprocs"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		log.Debug().Err(err).Msg("coachctl failed")
		os.Exit(1)
	}
}
