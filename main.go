package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	sessionx "github.com/tanpawarit/fantrax-coach/agent/session"
	statex "github.com/tanpawarit/fantrax-coach/agent/state"
	configx "github.com/tanpawarit/fantrax-coach/pkg/config"
	_ "github.com/tanpawarit/fantrax-coach/pkg/logger/autoload"
	"github.com/tanpawarit/fantrax-coach/server"
	_ "go.uber.org/automaxprocs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env, err := sessionx.LoadEnvironment()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if err := env.LLM.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid LLM configuration")
	}
	httpCfg := configx.MustNew[server.Config]("HTTP")

	store, err := statex.NewStore(ctx, env.Store)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open state store")
	}
	defer func() {
		if err := statex.CloseStore(store); err != nil {
			log.Warn().Err(err).Msg("close state store")
		}
	}()

	factory, err := sessionx.NewFactory(ctx, env, store)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize coach")
	}

	srv := server.New(*httpCfg, sessionx.NewManager(factory, store))
	if err := srv.Run(ctx); err != nil {
		log.Error().Err(err).Msg("http server stopped")
	}
}
