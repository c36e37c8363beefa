package tool

import (
	"context"

	contractx "github.com/tanpawarit/fantrax-coach/agent/contract"
)

type fakeSource struct {
	teams     []contractx.Team
	rosters   map[string]contractx.Roster
	standings contractx.Standings
	available map[string][]contractx.Player

	err   error
	calls []string
}

func (f *fakeSource) ListTeams(ctx context.Context) ([]contractx.Team, error) {
	f.calls = append(f.calls, "ListTeams")
	if f.err != nil {
		return nil, f.err
	}
	return f.teams, nil
}

func (f *fakeSource) Roster(ctx context.Context, teamID string) (contractx.Roster, error) {
	f.calls = append(f.calls, "Roster:"+teamID)
	if f.err != nil {
		return contractx.Roster{}, f.err
	}
	return f.rosters[teamID], nil
}

func (f *fakeSource) Standings(ctx context.Context) (contractx.Standings, error) {
	f.calls = append(f.calls, "Standings")
	if f.err != nil {
		return contractx.Standings{}, f.err
	}
	return f.standings, nil
}

func (f *fakeSource) AvailablePlayers(ctx context.Context, position string) ([]contractx.Player, error) {
	f.calls = append(f.calls, "AvailablePlayers:"+position)
	if f.err != nil {
		return nil, f.err
	}
	return f.available[position], nil
}

type fakeSearcher struct {
	results []contractx.SearchResult
	err     error
	reqs    []contractx.SearchRequest
}

func (f *fakeSearcher) Search(ctx context.Context, req contractx.SearchRequest) ([]contractx.SearchResult, error) {
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

func newLeague() *fakeSource {
	return &fakeSource{
		teams: []contractx.Team{
			{ID: "t1", Name: "Ice Holes"},
			{ID: "t2", Name: "Puck Bunnies"},
			{ID: "t3", Name: "Zamboni Drivers"},
		},
		rosters: map[string]contractx.Roster{
			"t1": {Team: contractx.Team{ID: "t1", Name: "Ice Holes"}, ActiveCount: 18},
			"t2": {Team: contractx.Team{ID: "t2", Name: "Puck Bunnies"}, ActiveCount: 17},
			"t3": {Team: contractx.Team{ID: "t3", Name: "Zamboni Drivers"}, ActiveCount: 16},
		},
		standings: contractx.Standings{Tables: []contractx.StandingsTable{
			{Caption: "Standings - Goals", Records: []contractx.TeamRecord{{Team: "Ice Holes", Rank: 3}}},
			{Caption: "Standings - Point Totals ", Records: []contractx.TeamRecord{
				{Team: "Puck Bunnies", Rank: 1},
				{Team: "ice holes", Rank: 2},
			}},
		}},
		available: map[string][]contractx.Player{
			"G": {
				{Name: "Rank Two", Position: "G", Rank: 2},
				{Name: "Rank One", Position: "G", Rank: 1},
				{Name: "Rank Three", Position: "G", Rank: 3},
			},
		},
	}
}

func newAmbient(src *fakeSource, s contractx.Searcher) Ambient {
	return Ambient{
		Source:   src,
		Searcher: s,
		Team:     contractx.Team{ID: "t1", Name: "Ice Holes"},
	}
}
