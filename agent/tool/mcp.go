package tool

import (
	"context"
	"errors"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/eino/schema"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	contractx "github.com/tanpawarit/fantrax-coach/agent/contract"
)

// MCPTool describes s as an MCP tool definition.
func (s Spec) MCPTool() mcp.Tool {
	opts := []mcp.ToolOption{mcp.WithDescription(s.Description)}
	for _, p := range s.Params {
		popts := []mcp.PropertyOption{mcp.Description(p.Desc)}
		if p.Required {
			popts = append(popts, mcp.Required())
		}
		switch p.Type {
		case schema.Integer, schema.Number:
			opts = append(opts, mcp.WithNumber(p.Name, popts...))
		case schema.Boolean:
			opts = append(opts, mcp.WithBoolean(p.Name, popts...))
		default:
			if len(p.Enum) > 0 {
				popts = append(popts, mcp.Enum(p.Enum...))
			}
			opts = append(opts, mcp.WithString(p.Name, popts...))
		}
	}
	return mcp.NewTool(s.Name, opts...)
}

// MCPTools exposes every tool in r to an MCP server. Tool failures become
// error results; only a cancelled context is returned as a protocol error.
func (r *Registry) MCPTools() []server.ServerTool {
	out := make([]server.ServerTool, 0, len(r.order))
	for _, spec := range r.Specs() {
		name := spec.Name
		out = append(out, server.ServerTool{
			Tool: spec.MCPTool(),
			Handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return r.callMCP(ctx, name, req.GetArguments())
			},
		})
	}
	return out
}

func (r *Registry) callMCP(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	res, err := r.Execute(ctx, name, args)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	if res.Error != "" {
		return mcp.NewToolResultError(res.Error), nil
	}
	text, err := sonic.ConfigStd.MarshalIndent(res.Result, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(contractx.ErrToolExecution.Error() + ": " + err.Error()), nil
	}
	return mcp.NewToolResultText(string(text)), nil
}
