package tool

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/fantrax-coach/agent/contract"
)

const (
	ToolFetchLeagueStandings    = "fetch_league_standings"
	ToolFetchUserTeamRoster     = "fetch_user_team_roster"
	ToolFetchUserTeamName       = "fetch_user_team_name"
	ToolFetchOpposingTeamRoster = "fetch_opposing_team_roster"
	ToolFetchFreeAgents         = "fetch_free_agents"
	ToolSearchPlayerNews        = "search_player_news"
	ToolSearchGameScores        = "search_game_scores"

	DefaultStatTable = "Standings - Point Totals"
	DefaultTopN      = 5
)

// Ambient is the read-only session context the tools close over.
type Ambient struct {
	Source    contractx.LeagueSource
	Searcher  contractx.Searcher
	Team      contractx.Team
	StatTable string
	TopN      int
}

func (a Ambient) statTable() string {
	if strings.TrimSpace(a.StatTable) == "" {
		return DefaultStatTable
	}
	return a.StatTable
}

func (a Ambient) topN() int {
	if a.TopN <= 0 {
		return DefaultTopN
	}
	return a.TopN
}

// NotFound is returned by the opposing roster lookup when no team carries
// the requested name.
type NotFound struct {
	NotFound   bool     `json:"not_found"`
	TeamName   string   `json:"team_name"`
	KnownTeams []string `json:"known_teams,omitempty"`
}

func StandingsTool(a Ambient) Spec {
	return Spec{
		Name: ToolFetchLeagueStandings,
		Description: "Fetch the league standings. Takes no arguments. Returns a list of rows with 'team', 'rank' " +
			"and the stat columns; 'is_my_team' is true on the user's own team.",
		Invoke: func(ctx context.Context, _ map[string]any) (any, error) {
			st, err := a.Source.Standings(ctx)
			if err != nil {
				return nil, err
			}
			return SelectStandings(st, a.statTable(), a.Team.Name)
		},
	}
}

func UserTeamRosterTool(a Ambient) Spec {
	return Spec{
		Name:        ToolFetchUserTeamRoster,
		Description: "Get the roster of the user's team. Takes no arguments. Returns the players with position, name, team and stats.",
		Invoke: func(ctx context.Context, _ map[string]any) (any, error) {
			return rosterOf(ctx, a.Source, a.Team)
		},
	}
}

func UserTeamNameTool(team contractx.Team) Spec {
	return Spec{
		Name:        ToolFetchUserTeamName,
		Description: "Get the name of the user's team. Takes no arguments.",
		Invoke: func(context.Context, map[string]any) (any, error) {
			return team.Name, nil
		},
	}
}

func OpposingTeamRosterTool(a Ambient) Spec {
	return Spec{
		Name: ToolFetchOpposingTeamRoster,
		Description: "Get the roster of an opposing team for potential trades. Pass 'team_name' with the exact " +
			"team name as it appears in the standings.",
		Params: []Param{
			{Name: "team_name", Type: schema.String, Desc: "Exact opposing team name", Required: true},
		},
		Invoke: func(ctx context.Context, args map[string]any) (any, error) {
			name, _ := args["team_name"].(string)
			teams, err := a.Source.ListTeams(ctx)
			if err != nil {
				return nil, err
			}
			team, ok := FindTeamByName(teams, name)
			if !ok {
				known := make([]string, 0, len(teams))
				for _, t := range teams {
					known = append(known, t.Name)
				}
				return NotFound{NotFound: true, TeamName: name, KnownTeams: known}, nil
			}
			return rosterOf(ctx, a.Source, team)
		},
	}
}

// rosterOf labels the roster with the team it was looked up by; the source
// may only echo the id back.
func rosterOf(ctx context.Context, src contractx.LeagueSource, team contractx.Team) (contractx.Roster, error) {
	roster, err := src.Roster(ctx, team.ID)
	if err != nil {
		return contractx.Roster{}, err
	}
	roster.Team = team
	return roster, nil
}

func FreeAgentsTool(a Ambient) Spec {
	return Spec{
		Name: ToolFetchFreeAgents,
		Description: "Get a list of top available free agents for a given position. Pass 'position' with one of " +
			"'F' (forward), 'D' (defense) or 'G' (goalie).",
		Params: []Param{
			{Name: "position", Type: schema.String, Desc: "Position code", Required: true, Enum: contractx.Positions},
		},
		Invoke: func(ctx context.Context, args map[string]any) (any, error) {
			position := strings.ToUpper(stringArg(args, "position"))
			players, err := a.Source.AvailablePlayers(ctx, position)
			if err != nil {
				if errors.Is(err, contractx.ErrAuth) {
					return nil, err
				}
				log.Warn().Err(err).Str("position", position).Msg("free agent lookup failed, returning empty list")
				return []contractx.Player{}, nil
			}
			return RankFreeAgents(players, a.topN()), nil
		},
	}
}

// LeagueTools returns the five league tools in presentation order.
func LeagueTools(a Ambient) ([]Spec, error) {
	if a.Source == nil {
		return nil, fmt.Errorf("%w: league source is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(a.Team.ID) == "" {
		return nil, fmt.Errorf("%w: user team is required", contractx.ErrValidation)
	}
	return []Spec{
		StandingsTool(a),
		UserTeamRosterTool(a),
		UserTeamNameTool(a.Team),
		FreeAgentsTool(a),
		OpposingTeamRosterTool(a),
	}, nil
}
