package fantrax

import (
	"strconv"
	"strings"

	contractx "github.com/tanpawarit/fantrax-coach/agent/contract"
)

const rankColumn = "RkOv"

// columnRenames shortens the two goalie category names the league spells out.
var columnRenames = map[string]string{
	`Wins (Goalies only) -- Includes Overtime Wins and Shootout Wins. Skaters cannot get a win using this category - for that - use the "regular" Wins category.`: "Wins",
	"Save Percentage -- Saves / Shots on Goal Against": "Save %",
}

type headerCell struct {
	Name      string `json:"name"`
	ShortName string `json:"shortName"`
}

func (h headerCell) key() string {
	k := h.ShortName
	if k == "" {
		k = h.Name
	}
	if renamed, ok := columnRenames[k]; ok {
		return renamed
	}
	if renamed, ok := columnRenames[h.Name]; ok {
		return renamed
	}
	return k
}

type header struct {
	Cells []headerCell `json:"cells"`
}

type cell struct {
	Content string `json:"content"`
	TeamID  string `json:"teamId,omitempty"`
}

type scorer struct {
	ScorerID      string `json:"scorerId"`
	Name          string `json:"name"`
	TeamShortName string `json:"teamShortName"`
	PosShortNames string `json:"posShortNames"`
}

// rowStats zips header and cells into named columns. Numeric content is
// returned as a number.
func rowStats(h header, cells []cell) map[string]any {
	out := make(map[string]any, len(cells))
	for i, c := range cells {
		if i >= len(h.Cells) {
			break
		}
		key := h.Cells[i].key()
		if key == "" {
			continue
		}
		out[key] = parseValue(c.Content)
	}
	return out
}

func parseValue(s string) any {
	trimmed := strings.TrimSpace(s)
	clean := strings.ReplaceAll(trimmed, ",", "")
	if n, err := strconv.Atoi(clean); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(clean, 64); err == nil {
		return f
	}
	return trimmed
}

func parseRank(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	}
	return 0
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return contractx.NotAvailable
	}
	return s
}

type standingsData struct {
	TableList []struct {
		Caption string `json:"caption"`
		Header  header `json:"header"`
		Rows    []struct {
			FixedCells []cell `json:"fixedCells"`
			Cells      []cell `json:"cells"`
		} `json:"rows"`
	} `json:"tableList"`
}

func (d standingsData) toStandings() contractx.Standings {
	out := contractx.Standings{Tables: make([]contractx.StandingsTable, 0, len(d.TableList))}
	for _, table := range d.TableList {
		st := contractx.StandingsTable{Caption: table.Caption}
		for _, row := range table.Rows {
			rec := contractx.TeamRecord{Data: rowStats(table.Header, row.Cells)}
			if len(row.FixedCells) > 0 {
				rec.Rank = parseRank(parseValue(row.FixedCells[0].Content))
			}
			if len(row.FixedCells) > 1 {
				rec.Team = row.FixedCells[1].Content
				rec.TeamID = row.FixedCells[1].TeamID
			}
			st.Records = append(st.Records, rec)
		}
		out.Tables = append(out.Tables, st)
	}
	return out
}

type rosterData struct {
	FantasyTeam struct {
		ID        string `json:"id"`
		Name      string `json:"name"`
		ShortName string `json:"shortName"`
	} `json:"fantasyTeam"`
	MiscData struct {
		StatusTotals []struct {
			Name  string `json:"name"`
			Total int    `json:"total"`
			Max   int    `json:"max"`
		} `json:"statusTotals"`
	} `json:"miscData"`
	Tables []struct {
		Header header `json:"header"`
		Rows   []struct {
			PosShortName string  `json:"posShortName"`
			Comment      string  `json:"comment"`
			Scorer       *scorer `json:"scorer"`
			Cells        []cell  `json:"cells"`
		} `json:"rows"`
	} `json:"tables"`
}

func (d rosterData) toRoster(teamID string) contractx.Roster {
	out := contractx.Roster{
		Team: contractx.Team{ID: teamID, Name: d.FantasyTeam.Name, ShortName: d.FantasyTeam.ShortName},
	}
	if d.FantasyTeam.ID != "" {
		out.Team.ID = d.FantasyTeam.ID
	}
	for _, st := range d.MiscData.StatusTotals {
		name := strings.ToLower(st.Name)
		switch {
		case strings.HasPrefix(name, "act"):
			out.ActiveCount = st.Total
		case strings.HasPrefix(name, "res"):
			out.ReserveCount = st.Total
		case strings.HasPrefix(name, "inj"):
			out.InjuredCount = st.Total
		}
		out.MaxCount += st.Max
	}
	for _, table := range d.Tables {
		for _, row := range table.Rows {
			p := contractx.Player{
				Position: orNA(row.PosShortName),
				Comment:  orNA(row.Comment),
				Stats:    rowStats(table.Header, row.Cells),
			}
			if row.Scorer != nil {
				p.ID = row.Scorer.ScorerID
				p.Name = row.Scorer.Name
				p.TeamShortName = row.Scorer.TeamShortName
				if row.PosShortName == "" {
					p.Position = orNA(row.Scorer.PosShortNames)
				}
			}
			p.Name = orNA(p.Name)
			p.TeamShortName = orNA(p.TeamShortName)
			p.Rank = parseRank(p.Stats[rankColumn])
			out.Players = append(out.Players, p)
		}
	}
	return out
}

type playerStatsData struct {
	TableHeader header `json:"tableHeader"`
	StatsTable  []struct {
		Scorer  *scorer `json:"scorer"`
		Comment string  `json:"comment"`
		Cells   []cell  `json:"cells"`
	} `json:"statsTable"`
}

func (d playerStatsData) toPlayers() []contractx.Player {
	out := make([]contractx.Player, 0, len(d.StatsTable))
	for _, row := range d.StatsTable {
		p := contractx.Player{
			Comment: orNA(row.Comment),
			Stats:   rowStats(d.TableHeader, row.Cells),
		}
		if row.Scorer != nil {
			p.ID = row.Scorer.ScorerID
			p.Name = row.Scorer.Name
			p.TeamShortName = row.Scorer.TeamShortName
			p.Position = row.Scorer.PosShortNames
		}
		p.Position = orNA(p.Position)
		p.Name = orNA(p.Name)
		p.TeamShortName = orNA(p.TeamShortName)
		p.Rank = parseRank(p.Stats[rankColumn])
		out = append(out, p)
	}
	return out
}
