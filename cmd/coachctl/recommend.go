package main

import (
	"fmt"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
)

func newRecommendCommand(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "recommend",
		Short: "Get a one-shot roster recommendation",
		Long: heredoc.Doc(`
			Reviews your roster against the standings, then checks the top free
			agents at each position for one that fits the recommendation.
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s, done, err := o.openSession(ctx)
			if err != nil {
				return err
			}
			defer done()

			rec, err := s.Recommend(ctx)
			if rec.Text == "" && err != nil {
				return err
			}

			var b strings.Builder
			fmt.Fprintf(&b, "# Recommendation for %s\n\n%s\n", s.Team().Name, rec.Text)
			if len(rec.Evaluations) > 0 {
				b.WriteString("\n## Free agents worth a look\n\n")
				for _, e := range rec.Evaluations {
					fmt.Fprintf(&b, "- **%s** (%s): %s\n", e.Player.Name, e.Position, e.Verdict)
				}
			}
			fmt.Fprint(cmd.OutOrStdout(), render(newRenderer(), b.String()))
			return err
		},
	}
}
