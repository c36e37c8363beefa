package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/rs/zerolog/log"
	advisorx "github.com/tanpawarit/fantrax-coach/agent/agents/advisor"
	orchestratorx "github.com/tanpawarit/fantrax-coach/agent/agents/orchestrator"
	contractx "github.com/tanpawarit/fantrax-coach/agent/contract"
	promptx "github.com/tanpawarit/fantrax-coach/agent/prompt"
	statex "github.com/tanpawarit/fantrax-coach/agent/state"
	toolx "github.com/tanpawarit/fantrax-coach/agent/tool"
)

var (
	ErrCycleInProgress = errors.New("a message is already being answered")
	ErrCycleAbandoned  = errors.New("conversation was cleared before the answer arrived")
	ErrSessionNotFound = errors.New("session not found")
	ErrNoAdvisor       = errors.New("recommendations are not configured")
)

type Config struct {
	StatTable       string `envconfig:"STAT_TABLE" split_words:"true" default:"Standings - Point Totals"`
	FreeAgentTopN   int    `envconfig:"FREE_AGENT_TOP_N" split_words:"true" default:"5"`
	MaxSteps        int    `envconfig:"MAX_STEPS" split_words:"true" default:"8"`
	MaxParseRetries int    `envconfig:"MAX_PARSE_RETRIES" split_words:"true" default:"3"`
	DisableDegrade  bool   `envconfig:"DISABLE_DEGRADE" split_words:"true" default:"false"`
	promptx.Overrides
}

// Deps are the collaborators one session is built from. Searcher, Completer
// and Store are optional.
type Deps struct {
	Source    contractx.LeagueSource
	Searcher  contractx.Searcher
	ChatModel einomodel.ToolCallingChatModel
	Completer contractx.Completer
	Store     statex.Store
	Prompts   promptx.PromptSet
}

type Options struct {
	SessionID string
	LeagueID  string
	TeamID    string
	TeamName  string
	// Cookie is a raw Cookie header for the league session. The session
	// itself never reads it; factories use it to build the source.
	Cookie string
	// Turns resume a stored transcript.
	Turns  []statex.Turn
	Config Config
}

type Reply struct {
	Answer          string                     `json:"answer"`
	Invocations     []contractx.ToolInvocation `json:"invocations"`
	Degraded        bool                       `json:"degraded,omitempty"`
	BudgetExhausted bool                       `json:"budget_exhausted,omitempty"`
}

type Recommendation struct {
	Text        string                `json:"text"`
	Evaluations []advisorx.Evaluation `json:"evaluations"`
}

// Session is the context object of one user: league handle, team, tool
// registry, transcript and orchestrator. Nothing in it is shared with other
// sessions.
type Session struct {
	id       string
	leagueID string
	team     contractx.Team
	cfg      Config

	source       contractx.LeagueSource
	registry     *toolx.Registry
	orchestrator *orchestratorx.Orchestrator
	advisor      *advisorx.Advisor
	store        statex.Store

	transcript *statex.Transcript

	mu     sync.Mutex
	cancel context.CancelFunc
	// cycle numbers submits so a cycle abandoned by Clear never frees the
	// slot of the one that replaced it.
	cycle uint64

	persistMu sync.Mutex

	now func() time.Time
}

func New(ctx context.Context, deps Deps, opts Options) (*Session, error) {
	if deps.Source == nil {
		return nil, fmt.Errorf("%w: league source is required", contractx.ErrValidation)
	}
	if deps.ChatModel == nil {
		return nil, fmt.Errorf("%w: chat model is required", contractx.ErrValidation)
	}
	id := strings.TrimSpace(opts.SessionID)
	if id == "" {
		return nil, statex.ErrInvalidSession
	}
	if err := deps.Prompts.Validate(); err != nil {
		return nil, err
	}

	team, err := resolveTeam(ctx, deps.Source, opts.TeamID, opts.TeamName)
	if err != nil {
		return nil, err
	}

	cfg := opts.Config
	registry, err := toolx.BuildDefault(toolx.Ambient{
		Source:    deps.Source,
		Searcher:  deps.Searcher,
		Team:      team,
		StatTable: cfg.StatTable,
		TopN:      cfg.FreeAgentTopN,
	})
	if err != nil {
		return nil, err
	}

	orch, err := orchestratorx.New(deps.ChatModel, registry, orchestratorx.Config{
		SystemPrompt:    deps.Prompts.Coach,
		MaxSteps:        cfg.MaxSteps,
		MaxParseRetries: cfg.MaxParseRetries,
		DisableDegrade:  cfg.DisableDegrade,
		Vars:            map[string]any{"team_name": team.Name},
	})
	if err != nil {
		return nil, err
	}

	var adv *advisorx.Advisor
	if deps.Completer != nil {
		adv, err = advisorx.New(ctx, deps.Completer, advisorx.Config{
			RecommendPrompt:  deps.Prompts.Advisor,
			EvaluationPrompt: deps.Prompts.Evaluation,
			TopN:             cfg.FreeAgentTopN,
		})
		if err != nil {
			return nil, err
		}
	}

	return &Session{
		id:           id,
		leagueID:     strings.TrimSpace(opts.LeagueID),
		team:         team,
		cfg:          cfg,
		source:       deps.Source,
		registry:     registry,
		orchestrator: orch,
		advisor:      adv,
		store:        deps.Store,
		transcript:   statex.NewTranscript(opts.Turns...),
		now:          time.Now,
	}, nil
}

// resolveTeam prefers an explicit id, then an exact name, then the team the
// source reports as the caller's own.
func resolveTeam(ctx context.Context, src contractx.LeagueSource, teamID, teamName string) (contractx.Team, error) {
	teamID = strings.TrimSpace(teamID)
	teamName = strings.TrimSpace(teamName)

	if teamID == "" && teamName == "" {
		if d, ok := src.(contractx.DefaultTeamSource); ok {
			return d.DefaultTeam(ctx)
		}
	}

	teams, err := src.ListTeams(ctx)
	if err != nil {
		return contractx.Team{}, err
	}
	switch {
	case teamID != "":
		for _, t := range teams {
			if t.ID == teamID {
				return t, nil
			}
		}
		return contractx.Team{}, fmt.Errorf("%w: team id %q is not in the league", contractx.ErrValidation, teamID)
	case teamName != "":
		if t, ok := toolx.FindTeamByName(teams, teamName); ok {
			return t, nil
		}
		return contractx.Team{}, fmt.Errorf("%w: team %q is not in the league", contractx.ErrValidation, teamName)
	}
	if len(teams) == 0 {
		return contractx.Team{}, fmt.Errorf("%w: league has no teams", contractx.ErrValidation)
	}
	return teams[0], nil
}

func (s *Session) ID() string                { return s.id }
func (s *Session) LeagueID() string          { return s.leagueID }
func (s *Session) Team() contractx.Team      { return s.team }
func (s *Session) Registry() *toolx.Registry { return s.registry }

// Transcript returns a copy of the conversation, oldest first.
func (s *Session) Transcript() []statex.Turn {
	return s.transcript.Snapshot()
}

// Submit runs one orchestration cycle for msg. The user turn is appended
// before the cycle starts; the assistant turn only when the cycle succeeds
// and the transcript was not cleared meanwhile.
func (s *Session) Submit(ctx context.Context, msg string) (Reply, error) {
	msg = strings.TrimSpace(msg)
	if msg == "" {
		return Reply{}, fmt.Errorf("%w: message is empty", contractx.ErrValidation)
	}

	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return Reply{}, ErrCycleInProgress
	}
	history := s.transcript.Snapshot()
	epoch := s.transcript.Epoch()
	if _, err := s.transcript.AppendAt(epoch, statex.Turn{Role: statex.RoleUser, Content: msg, CreatedAt: s.now().UTC()}); err != nil {
		s.mu.Unlock()
		return Reply{}, err
	}
	cycleCtx, cancel := context.WithCancel(ctx)
	s.cycle++
	cycle := s.cycle
	s.cancel = cancel
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		if s.cycle == cycle {
			s.cancel = nil
		}
		s.mu.Unlock()
		cancel()
	}()

	s.persist(ctx)

	res, err := s.orchestrator.Run(cycleCtx, orchestratorx.Request{
		SessionID: s.id,
		Message:   msg,
		History:   history,
	})
	if s.transcript.Epoch() != epoch {
		log.Info().Str("session_id", s.id).Msg("conversation cleared during cycle, result discarded")
		return Reply{}, ErrCycleAbandoned
	}
	if err != nil {
		log.Error().Err(err).Str("session_id", s.id).Msg("orchestration cycle failed")
		return Reply{}, err
	}

	ok, err := s.transcript.AppendAt(epoch, statex.Turn{Role: statex.RoleAssistant, Content: res.Answer, CreatedAt: s.now().UTC()})
	if err != nil {
		return Reply{}, err
	}
	if !ok {
		return Reply{}, ErrCycleAbandoned
	}
	s.persist(ctx)

	return Reply{
		Answer:          res.Answer,
		Invocations:     res.Invocations,
		Degraded:        res.Degraded,
		BudgetExhausted: res.BudgetExhausted,
	}, nil
}

// Clear empties the transcript and abandons any in-flight cycle without
// waiting for it; a new Submit is accepted right away. Clearing an empty
// transcript is a no-op.
func (s *Session) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.transcript.Clear()
	cancel := s.cancel
	s.cancel = nil
	s.cycle++
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	return s.persist(ctx)
}

// abandon cancels any in-flight cycle.
func (s *Session) abandon() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// persist saves the current transcript. Failures are logged and returned
// but never undo the in-memory transcript.
func (s *Session) persist(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	st := statex.NewSessionState(s.id, s.leagueID, s.team.ID, s.team.Name, s.now())
	st.SetTurns(s.transcript.Snapshot())
	if err := s.store.Save(ctx, st); err != nil {
		log.Warn().Err(err).Str("session_id", s.id).Msg("save session state failed")
		return err
	}
	return nil
}

func (s *Session) Teams(ctx context.Context) ([]contractx.Team, error) {
	return s.source.ListTeams(ctx)
}

// StatTables lists the standings table captions the league reports.
func (s *Session) StatTables(ctx context.Context) ([]string, error) {
	st, err := s.source.Standings(ctx)
	if err != nil {
		return nil, err
	}
	return st.Captions(), nil
}

// Standings returns the rows of the given table, or the configured one when
// table is empty.
func (s *Session) Standings(ctx context.Context, table string) ([]contractx.TeamRecord, error) {
	if strings.TrimSpace(table) == "" {
		table = s.statTable()
	}
	st, err := s.source.Standings(ctx)
	if err != nil {
		return nil, err
	}
	return toolx.SelectStandings(st, table, s.team.Name)
}

// Roster returns the roster of teamID, or of the session's team when empty.
func (s *Session) Roster(ctx context.Context, teamID string) (contractx.Roster, error) {
	if strings.TrimSpace(teamID) == "" {
		teamID = s.team.ID
	}
	return s.source.Roster(ctx, teamID)
}

func (s *Session) FreeAgents(ctx context.Context, position string) ([]contractx.Player, error) {
	position = strings.ToUpper(strings.TrimSpace(position))
	if !isPosition(position) {
		return nil, fmt.Errorf("%w: position must be one of %s", contractx.ErrValidation, strings.Join(contractx.Positions, ", "))
	}
	players, err := s.source.AvailablePlayers(ctx, position)
	if err != nil {
		return nil, err
	}
	return toolx.RankFreeAgents(players, s.topN()), nil
}

// Recommend runs the one-shot advisor over the session team's roster and
// standings, then evaluates free agents against the recommendation.
func (s *Session) Recommend(ctx context.Context) (Recommendation, error) {
	if s.advisor == nil {
		return Recommendation{}, ErrNoAdvisor
	}
	roster, err := s.Roster(ctx, "")
	if err != nil {
		return Recommendation{}, err
	}
	standings, err := s.Standings(ctx, "")
	if err != nil {
		return Recommendation{}, err
	}

	text, err := s.advisor.Recommend(ctx, advisorx.RecommendInput{Team: s.team, Roster: roster, Standings: standings})
	if err != nil {
		return Recommendation{}, err
	}
	evals, err := s.advisor.EvaluateFreeAgents(ctx, text, s.source, contractx.Positions)
	if err != nil {
		return Recommendation{Text: text, Evaluations: evals}, err
	}
	return Recommendation{Text: text, Evaluations: evals}, nil
}

func (s *Session) statTable() string {
	if strings.TrimSpace(s.cfg.StatTable) == "" {
		return toolx.DefaultStatTable
	}
	return s.cfg.StatTable
}

func (s *Session) topN() int {
	if s.cfg.FreeAgentTopN <= 0 {
		return toolx.DefaultTopN
	}
	return s.cfg.FreeAgentTopN
}

func isPosition(p string) bool {
	for _, v := range contractx.Positions {
		if v == p {
			return true
		}
	}
	return false
}
