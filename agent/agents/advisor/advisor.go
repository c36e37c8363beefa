// Package advisor produces one-shot roster recommendations and judges
// whether top free agents fit the team.
package advisor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/fantrax-coach/agent/contract"
	toolx "github.com/tanpawarit/fantrax-coach/agent/tool"
)

const goodFitMarker = "is a good fit"

type Config struct {
	// RecommendPrompt needs team_name, roster and standings.
	RecommendPrompt string
	// EvaluationPrompt needs player and context.
	EvaluationPrompt string
	// TopN bounds how many free agents are judged per position.
	TopN int
}

type RecommendInput struct {
	Team      contractx.Team
	Roster    contractx.Roster
	Standings []contractx.TeamRecord
}

// Evaluation is the verdict on the first free agent judged a good fit for
// a position.
type Evaluation struct {
	Position string           `json:"position"`
	Player   contractx.Player `json:"player"`
	Verdict  string           `json:"verdict"`
}

type Advisor struct {
	recommend compose.Runnable[map[string]any, string]
	evaluate  compose.Runnable[map[string]any, string]
	topN      int
}

func New(ctx context.Context, completer contractx.Completer, cfg Config) (*Advisor, error) {
	if completer == nil {
		return nil, errors.New("completer is required")
	}
	if strings.TrimSpace(cfg.RecommendPrompt) == "" {
		return nil, fmt.Errorf("%w: advisor", contractx.ErrPromptMissing)
	}
	if strings.TrimSpace(cfg.EvaluationPrompt) == "" {
		return nil, fmt.Errorf("%w: evaluation", contractx.ErrPromptMissing)
	}

	recommend, err := compileCompletionGraph(ctx, cfg.RecommendPrompt, completer, "advisor.recommend")
	if err != nil {
		return nil, err
	}
	evaluate, err := compileCompletionGraph(ctx, cfg.EvaluationPrompt, completer, "advisor.evaluate")
	if err != nil {
		return nil, err
	}

	topN := cfg.TopN
	if topN <= 0 {
		topN = toolx.DefaultTopN
	}
	return &Advisor{recommend: recommend, evaluate: evaluate, topN: topN}, nil
}

func (a *Advisor) Recommend(ctx context.Context, in RecommendInput) (string, error) {
	if strings.TrimSpace(in.Team.Name) == "" {
		return "", fmt.Errorf("%w: team name is required", contractx.ErrValidation)
	}
	roster, err := indentJSON(in.Roster.Players)
	if err != nil {
		return "", err
	}
	standings, err := indentJSON(in.Standings)
	if err != nil {
		return "", err
	}

	return a.recommend.Invoke(ctx, map[string]any{
		"team_name": in.Team.Name,
		"roster":    roster,
		"standings": standings,
	})
}

// EvaluateFreeAgents walks the top free agents of each position in rank
// order and keeps the first one the model calls a good fit. Positions with
// no good fit are left out. Source failures other than ErrAuth skip the
// position.
func (a *Advisor) EvaluateFreeAgents(
	ctx context.Context,
	recommendation string,
	source contractx.LeagueSource,
	positions []string,
) ([]Evaluation, error) {
	if source == nil {
		return nil, fmt.Errorf("%w: league source is required", contractx.ErrValidation)
	}
	if len(positions) == 0 {
		positions = contractx.Positions
	}

	var out []Evaluation
	for _, position := range positions {
		players, err := source.AvailablePlayers(ctx, position)
		if err != nil {
			if contractx.IsFatal(err) || ctx.Err() != nil {
				return out, err
			}
			log.Warn().Err(err).Str("position", position).Msg("free agent lookup failed, skipping position")
			continue
		}

		for _, p := range toolx.RankFreeAgents(players, a.topN) {
			verdict, err := a.judge(ctx, p, recommendation)
			if err != nil {
				if contractx.IsFatal(err) || ctx.Err() != nil {
					return out, err
				}
				log.Warn().Err(err).Str("player", p.Name).Msg("free agent evaluation failed")
				continue
			}
			if strings.Contains(strings.ToLower(verdict), goodFitMarker) {
				out = append(out, Evaluation{Position: position, Player: p, Verdict: verdict})
				break
			}
		}
	}
	return out, nil
}

func (a *Advisor) judge(ctx context.Context, p contractx.Player, recommendation string) (string, error) {
	player, err := indentJSON(p)
	if err != nil {
		return "", err
	}
	return a.evaluate.Invoke(ctx, map[string]any{
		"player":  player,
		"context": recommendation,
	})
}

func indentJSON(v any) (string, error) {
	b, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode prompt data: %w", err)
	}
	return string(b), nil
}
