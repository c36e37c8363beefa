package tool

import (
	"context"

	contractx "github.com/tanpawarit/fantrax-coach/agent/contract"
)

type Executor func(ctx context.Context, tool string, args map[string]any) (contractx.ToolResult, error)

// BuildDefault assembles the full registry for one session. Search tools are
// left out when no searcher is configured.
func BuildDefault(a Ambient) (*Registry, error) {
	specs, err := LeagueTools(a)
	if err != nil {
		return nil, err
	}
	specs = append(specs, SearchTools(a.Searcher)...)
	return NewRegistry(specs...)
}
