package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	sessionx "github.com/tanpawarit/fantrax-coach/agent/session"
)

var (
	promptColor = color.New(color.FgCyan, color.Bold).SprintFunc()
	noteColor   = color.New(color.Faint).SprintFunc()
	errColor    = color.New(color.FgRed).SprintFunc()
)

func newChatCommand(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chat [message]",
		Short: "Chat with the coach",
		Long: heredoc.Doc(`
			Ask the coach about your roster, the standings, free agents or player news.

			With a message argument the coach answers once and exits. Without one an
			interactive session starts: /clear forgets the conversation, /quit leaves.
		`),
		Example: heredoc.Doc(`
			$ coachctl chat "Which goalie should I pick up?"
			$ coachctl chat --team "Ice Holes"
		`),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, done, err := o.openSession(ctx)
			if err != nil {
				return err
			}
			defer done()

			r := newRenderer()
			out := cmd.OutOrStdout()
			if len(args) > 0 {
				return ask(ctx, s, r, out, strings.Join(args, " "))
			}
			return repl(ctx, s, r, cmd.InOrStdin(), out)
		},
	}
}

func repl(ctx context.Context, s *sessionx.Session, r *glamour.TermRenderer, in io.Reader, out io.Writer) error {
	fmt.Fprintf(out, "%s\n", noteColor(fmt.Sprintf("Coaching %s (session %s). /clear to start over, /quit to leave.", s.Team().Name, s.ID())))

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, promptColor("you> "))
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/clear":
			if err := s.Clear(ctx); err != nil {
				fmt.Fprintln(out, errColor("saving the cleared conversation failed: "+err.Error()))
			}
			fmt.Fprintln(out, noteColor("conversation cleared"))
			continue
		}

		if err := ask(ctx, s, r, out, line); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			fmt.Fprintln(out, errColor(err.Error()))
		}
	}
}

func ask(ctx context.Context, s *sessionx.Session, r *glamour.TermRenderer, out io.Writer, msg string) error {
	reply, err := s.Submit(ctx, msg)
	if err != nil {
		return err
	}
	fmt.Fprint(out, render(r, reply.Answer))
	if reply.BudgetExhausted {
		fmt.Fprintln(out, noteColor("(stopped early: too many lookups for one question)"))
	}
	return nil
}

func newRenderer() *glamour.TermRenderer {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		return nil
	}
	return r
}

// render formats markdown for the terminal, falling back to the raw text.
func render(r *glamour.TermRenderer, md string) string {
	if r != nil {
		if s, err := r.Render(md); err == nil {
			return s
		}
	}
	return md + "\n"
}
