package advisor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	contractx "github.com/tanpawarit/fantrax-coach/agent/contract"
	promptx "github.com/tanpawarit/fantrax-coach/agent/prompt"
)

type fakeCompleter struct {
	mu      sync.Mutex
	prompts []string
	reply   func(prompt string) (string, error)
}

func (f *fakeCompleter) Complete(_ context.Context, _ string, user string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, user)
	f.mu.Unlock()
	return f.reply(user)
}

type fakeSource struct {
	available map[string][]contractx.Player
	errs      map[string]error
}

func (f *fakeSource) ListTeams(context.Context) ([]contractx.Team, error) { return nil, nil }

func (f *fakeSource) Roster(context.Context, string) (contractx.Roster, error) {
	return contractx.Roster{}, nil
}

func (f *fakeSource) Standings(context.Context) (contractx.Standings, error) {
	return contractx.Standings{}, nil
}

func (f *fakeSource) AvailablePlayers(_ context.Context, position string) ([]contractx.Player, error) {
	if err := f.errs[position]; err != nil {
		return nil, err
	}
	return f.available[position], nil
}

func newAdvisor(t *testing.T, c contractx.Completer) *Advisor {
	t.Helper()
	prompts := promptx.LoadPromptSet()
	a, err := New(context.Background(), c, Config{
		RecommendPrompt:  prompts.Advisor,
		EvaluationPrompt: prompts.Evaluation,
		TopN:             3,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return a
}

func TestRecommendRendersRosterAndStandings(t *testing.T) {
	t.Parallel()

	c := &fakeCompleter{reply: func(string) (string, error) { return " Current Situation: meh. ", nil }}
	a := newAdvisor(t, c)

	got, err := a.Recommend(context.Background(), RecommendInput{
		Team:      contractx.Team{ID: "t1", Name: "Ice Holes"},
		Roster:    contractx.Roster{Players: []contractx.Player{{Name: "Connor McDavid", Position: "F"}}},
		Standings: []contractx.TeamRecord{{Team: "Ice Holes", Rank: 4, IsMyTeam: true}},
	})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if got != "Current Situation: meh." {
		t.Fatalf("Recommend() = %q", got)
	}
	if len(c.prompts) != 1 {
		t.Fatalf("expected one completion, got %d", len(c.prompts))
	}
	p := c.prompts[0]
	for _, want := range []string{"Ice Holes", "Connor McDavid", `"is_my_team": true`, "275 words"} {
		if !strings.Contains(p, want) {
			t.Fatalf("prompt missing %q:\n%s", want, p)
		}
	}
}

func TestRecommendRequiresTeam(t *testing.T) {
	t.Parallel()

	a := newAdvisor(t, &fakeCompleter{reply: func(string) (string, error) { return "x", nil }})
	if _, err := a.Recommend(context.Background(), RecommendInput{}); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("Recommend() error = %v, want ErrValidation", err)
	}
}

func TestEvaluateFreeAgentsKeepsFirstGoodFitInRankOrder(t *testing.T) {
	t.Parallel()

	src := &fakeSource{
		available: map[string][]contractx.Player{
			"G": {
				{Name: "Goalie Two", Rank: 2},
				{Name: "Goalie One", Rank: 1},
				{Name: "Goalie Three", Rank: 3},
			},
			"D": {{Name: "Dman", Rank: 9}},
		},
	}
	c := &fakeCompleter{reply: func(prompt string) (string, error) {
		switch {
		case strings.Contains(prompt, "Goalie One"):
			return "- **Goalie One** is a not good fit for G: too few starts", nil
		case strings.Contains(prompt, "Goalie Two"):
			return "- **Goalie Two** is a good fit for G: replaces the backup", nil
		default:
			return "- **Someone** is a not good fit: no", nil
		}
	}}
	a := newAdvisor(t, c)

	got, err := a.EvaluateFreeAgents(context.Background(), "need saves", src, []string{"G", "D"})
	if err != nil {
		t.Fatalf("EvaluateFreeAgents() error = %v", err)
	}
	if len(got) != 1 || got[0].Player.Name != "Goalie Two" || got[0].Position != "G" {
		t.Fatalf("evaluations = %+v", got)
	}
	// Goalie One, Goalie Two, then Dman; Goalie Three is never judged.
	if len(c.prompts) != 3 {
		t.Fatalf("expected 3 completions, got %d", len(c.prompts))
	}
	if !strings.Contains(c.prompts[0], "Goalie One") || !strings.Contains(c.prompts[0], "need saves") {
		t.Fatalf("first prompt should judge the top ranked goalie with context:\n%s", c.prompts[0])
	}
}

func TestEvaluateFreeAgentsSkipsFailedPositions(t *testing.T) {
	t.Parallel()

	src := &fakeSource{
		available: map[string][]contractx.Player{"D": {{Name: "Dman", Rank: 1}}},
		errs:      map[string]error{"F": errors.New("timeout")},
	}
	c := &fakeCompleter{reply: func(string) (string, error) { return "**Dman** is a good fit for D: shoots", nil }}
	a := newAdvisor(t, c)

	got, err := a.EvaluateFreeAgents(context.Background(), "", src, nil)
	if err != nil {
		t.Fatalf("EvaluateFreeAgents() error = %v", err)
	}
	if len(got) != 1 || got[0].Position != "D" {
		t.Fatalf("evaluations = %+v", got)
	}
}

func TestEvaluateFreeAgentsStopsOnFatalErrors(t *testing.T) {
	t.Parallel()

	src := &fakeSource{errs: map[string]error{"F": contractx.ErrAuth}}
	a := newAdvisor(t, &fakeCompleter{reply: func(string) (string, error) { return "", nil }})
	if _, err := a.EvaluateFreeAgents(context.Background(), "", src, nil); !errors.Is(err, contractx.ErrAuth) {
		t.Fatalf("EvaluateFreeAgents() error = %v, want ErrAuth", err)
	}

	src = &fakeSource{available: map[string][]contractx.Player{"F": {{Name: "Winger", Rank: 1}}}}
	quota := &fakeCompleter{reply: func(string) (string, error) {
		return "", contractx.ErrProviderQuotaOrAuth
	}}
	a = newAdvisor(t, quota)
	if _, err := a.EvaluateFreeAgents(context.Background(), "", src, []string{"F"}); !errors.Is(err, contractx.ErrProviderQuotaOrAuth) {
		t.Fatalf("EvaluateFreeAgents() error = %v, want ErrProviderQuotaOrAuth", err)
	}
}

func TestNewRequiresPrompts(t *testing.T) {
	t.Parallel()

	c := &fakeCompleter{reply: func(string) (string, error) { return "", nil }}
	if _, err := New(context.Background(), c, Config{EvaluationPrompt: "x"}); !errors.Is(err, contractx.ErrPromptMissing) {
		t.Fatalf("New() error = %v, want ErrPromptMissing", err)
	}
}
