package tool

import (
	"context"

	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/fantrax-coach/agent/contract"
)

const (
	searchMaxResults = 5
	searchTimeRange  = "day"
	playerNewsSuffix = " Performance in last game"
)

func PlayerNewsTool(s contractx.Searcher) Spec {
	return Spec{
		Name:        ToolSearchPlayerNews,
		Description: "Search the web for recent information and performance of a player. Pass 'query' with the player name.",
		Params: []Param{
			{Name: "query", Type: schema.String, Desc: "Player name", Required: true},
		},
		Invoke: func(ctx context.Context, args map[string]any) (any, error) {
			return s.Search(ctx, contractx.SearchRequest{
				Query:      stringArg(args, "query") + playerNewsSuffix,
				MaxResults: searchMaxResults,
				TimeRange:  searchTimeRange,
			})
		},
	}
}

func GameScoresTool(s contractx.Searcher) Spec {
	return Spec{
		Name:        ToolSearchGameScores,
		Description: "Search the web for recent game scores of a team. Pass 'query' with the team name.",
		Params: []Param{
			{Name: "query", Type: schema.String, Desc: "Team name", Required: true},
		},
		Invoke: func(ctx context.Context, args map[string]any) (any, error) {
			return s.Search(ctx, contractx.SearchRequest{
				Query:      stringArg(args, "query"),
				MaxResults: searchMaxResults,
				TimeRange:  searchTimeRange,
			})
		},
	}
}

func SearchTools(s contractx.Searcher) []Spec {
	if s == nil {
		return nil
	}
	return []Spec{PlayerNewsTool(s), GameScoresTool(s)}
}
