package main

import (
	"github.com/MakeNowJust/heredoc/v2"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newMCPCommand(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the league tools over MCP stdio",
		Long: heredoc.Doc(`
			Starts an MCP server on stdin/stdout exposing the same league and search
			tools the coach uses, bound to your team. Logs go to stderr.
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, done, err := o.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			srv := server.NewMCPServer(
				"coachctl",
				Version,
				server.WithToolCapabilities(false),
				server.WithRecovery(),
				server.WithInstructions("Fantasy hockey league tools for team "+s.Team().Name+"."),
			)
			srv.AddTools(s.Registry().MCPTools()...)

			log.Info().Str("team", s.Team().Name).Int("tools", len(s.Registry().Names())).Msg("mcp server ready")
			return server.ServeStdio(srv)
		},
	}
}
