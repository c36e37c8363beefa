package contract

import "context"

// LeagueSource is the read side of the fantasy league. Implementations
// return ErrAuth when the session handle is no longer accepted.
type LeagueSource interface {
	ListTeams(ctx context.Context) ([]Team, error)
	Roster(ctx context.Context, teamID string) (Roster, error)
	Standings(ctx context.Context) (Standings, error)
	AvailablePlayers(ctx context.Context, position string) ([]Player, error)
}

// DefaultTeamSource is implemented by sources that know which team belongs
// to the authenticated user.
type DefaultTeamSource interface {
	DefaultTeam(ctx context.Context) (Team, error)
}

type Searcher interface {
	Search(ctx context.Context, req SearchRequest) ([]SearchResult, error)
}

// Completer runs a single prompt without tools.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}
