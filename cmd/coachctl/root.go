package main

import (
	"context"
	"fmt"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/cobra"
	sessionx "github.com/tanpawarit/fantrax-coach/agent/session"
	statex "github.com/tanpawarit/fantrax-coach/agent/state"
	configx "github.com/tanpawarit/fantrax-coach/pkg/config"
	logx "github.com/tanpawarit/fantrax-coach/pkg/logger"
)

type rootOptions struct {
	envFile   string
	sessionID string
	leagueID  string
	teamID    string
	teamName  string
	cookie    string
}

func newRootCommand() *cobra.Command {
	o := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "coachctl",
		Short: "Talk to your fantasy hockey coach from the terminal",
		Long: heredoc.Doc(`
			coachctl runs the fantasy hockey coach against your league.

			Settings come from the environment (LLM_*, FANTRAX_*, TAVILY_*, COACH_*,
			STORE_*) or from the file given with --env. Flags override the league,
			team and login cookie for this run only.
		`),
		SilenceUsage: true,
		Version:      Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			configx.SetEnvFile(o.envFile)
			return initLogging()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&o.envFile, "env", "", "path to a .env file")
	flags.StringVar(&o.sessionID, "session", "", "resume a stored session by id")
	flags.StringVar(&o.leagueID, "league", "", "league id (defaults to FANTRAX_LEAGUE_ID)")
	flags.StringVar(&o.teamID, "team-id", "", "your team id")
	flags.StringVar(&o.teamName, "team", "", "your team name")
	flags.StringVar(&o.cookie, "cookie", "", "raw Cookie header of a logged-in league session")

	cmd.AddCommand(
		newChatCommand(o),
		newRecommendCommand(o),
		newMCPCommand(o),
	)
	return cmd
}

// initLogging keeps stdout free for replies and the MCP transport.
func initLogging() error {
	var conf logx.Config
	if err := envconfig.Process("LOG", &conf); err != nil {
		return fmt.Errorf("log config: %w", err)
	}
	conf.Stderr = true
	logx.Init(conf)
	return nil
}

// openSession wires one session from the environment. The returned func
// releases the state store.
func (o *rootOptions) openSession(ctx context.Context) (*sessionx.Session, func(), error) {
	env, err := sessionx.LoadEnvironment()
	if err != nil {
		return nil, nil, err
	}
	store, err := statex.NewStore(ctx, env.Store)
	if err != nil {
		return nil, nil, fmt.Errorf("state store: %w", err)
	}
	closeStore := func() { _ = statex.CloseStore(store) }

	factory, err := sessionx.NewFactory(ctx, env, store)
	if err != nil {
		closeStore()
		return nil, nil, err
	}
	s, err := sessionx.NewManager(factory, store).Create(ctx, sessionx.Options{
		SessionID: o.sessionID,
		LeagueID:  o.leagueID,
		TeamID:    o.teamID,
		TeamName:  o.teamName,
		Cookie:    o.cookie,
	})
	if err != nil {
		closeStore()
		return nil, nil, err
	}
	return s, closeStore, nil
}
