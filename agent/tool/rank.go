package tool

import (
	"fmt"
	"sort"
	"strings"

	contractx "github.com/tanpawarit/fantrax-coach/agent/contract"
)

// RankFreeAgents orders players by overall rank ascending and keeps the first
// topN. Unranked players go last; equal ranks are ordered by name. The input
// slice is not modified.
func RankFreeAgents(players []contractx.Player, topN int) []contractx.Player {
	out := append([]contractx.Player{}, players...)
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := out[i].Rank, out[j].Rank
		if (ri == 0) != (rj == 0) {
			return rj == 0
		}
		if ri != rj {
			return ri < rj
		}
		return out[i].Name < out[j].Name
	})
	if topN > 0 && len(out) > topN {
		out = out[:topN]
	}
	return out
}

// SelectStandings picks the table whose caption matches statTable after
// trimming, and flags the rows belonging to myTeam (case-insensitive).
func SelectStandings(st contractx.Standings, statTable, myTeam string) ([]contractx.TeamRecord, error) {
	want := strings.TrimSpace(statTable)
	for _, table := range st.Tables {
		if strings.TrimSpace(table.Caption) != want {
			continue
		}
		out := make([]contractx.TeamRecord, 0, len(table.Records))
		for _, rec := range table.Records {
			rec.IsMyTeam = strings.EqualFold(strings.TrimSpace(rec.Team), strings.TrimSpace(myTeam))
			out = append(out, rec)
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: stat table %q not found, available: %s", contractx.ErrValidation, want, strings.Join(st.Captions(), "; "))
}

// FindTeamByName is an exact, case-sensitive lookup.
func FindTeamByName(teams []contractx.Team, name string) (contractx.Team, bool) {
	for _, t := range teams {
		if t.Name == name {
			return t, true
		}
	}
	return contractx.Team{}, false
}
