package contract

import "time"

// Position codes accepted by the free agent lookup.
const (
	PositionForward = "F"
	PositionDefense = "D"
	PositionGoalie  = "G"
)

// NotAvailable fills player fields the league left empty.
const NotAvailable = "N/A"

var Positions = []string{PositionForward, PositionDefense, PositionGoalie}

type ToolResult struct {
	Tool   string `json:"tool"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// ToolInvocation is the observability record of one executed tool call.
type ToolInvocation struct {
	Step     int            `json:"step"`
	Tool     string         `json:"tool"`
	Args     map[string]any `json:"args,omitempty"`
	Error    string         `json:"error,omitempty"`
	Duration time.Duration  `json:"duration"`
}

type Team struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ShortName string `json:"short_name,omitempty"`
}

// Player is one row of a roster or of the available players list.
// Rank is the overall rank reported by the league; zero means unranked.
type Player struct {
	ID            string         `json:"id,omitempty"`
	Position      string         `json:"position"`
	Name          string         `json:"name"`
	TeamShortName string         `json:"team_short_name"`
	Comment       string         `json:"comment"`
	Rank          int            `json:"rank,omitempty"`
	Stats         map[string]any `json:"stats,omitempty"`
}

type Roster struct {
	Team         Team     `json:"team"`
	ActiveCount  int      `json:"active_count"`
	ReserveCount int      `json:"reserve_count"`
	InjuredCount int      `json:"injured_count"`
	MaxCount     int      `json:"max_count"`
	Players      []Player `json:"players"`
}

type TeamRecord struct {
	Team     string         `json:"team"`
	TeamID   string         `json:"team_id,omitempty"`
	Rank     int            `json:"rank"`
	Data     map[string]any `json:"data,omitempty"`
	IsMyTeam bool           `json:"is_my_team"`
}

type StandingsTable struct {
	Caption string       `json:"caption"`
	Records []TeamRecord `json:"team_records"`
}

type Standings struct {
	Tables []StandingsTable `json:"tables"`
}

// Captions lists the available stat table names in source order.
func (s Standings) Captions() []string {
	out := make([]string, 0, len(s.Tables))
	for _, t := range s.Tables {
		out = append(out, t.Caption)
	}
	return out
}

type SearchRequest struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results,omitempty"`
	TimeRange  string `json:"time_range,omitempty"`
	Topic      string `json:"topic,omitempty"`
}

type SearchResult struct {
	Title         string  `json:"title"`
	URL           string  `json:"url"`
	Content       string  `json:"content"`
	Score         float64 `json:"score,omitempty"`
	PublishedDate string  `json:"published_date,omitempty"`
}
