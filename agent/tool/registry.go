package tool

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/fantrax-coach/agent/contract"
)

var ErrDuplicateTool = errors.New("duplicate tool name")

// Param is one declared argument of a tool.
type Param struct {
	Name     string
	Type     schema.DataType
	Desc     string
	Required bool
	Enum     []string
}

type Handler func(ctx context.Context, args map[string]any) (any, error)

// Spec describes one callable tool. The description is what the model sees
// when deciding whether to call it.
type Spec struct {
	Name        string
	Description string
	Params      []Param
	Invoke      Handler
}

func (s Spec) Info() *schema.ToolInfo {
	params := make(map[string]*schema.ParameterInfo, len(s.Params))
	for _, p := range s.Params {
		params[p.Name] = &schema.ParameterInfo{
			Type:     p.Type,
			Desc:     p.Desc,
			Enum:     p.Enum,
			Required: p.Required,
		}
	}
	return &schema.ToolInfo{
		Name:        s.Name,
		Desc:        s.Description,
		ParamsOneOf: schema.NewParamsOneOfByParams(params),
	}
}

// Registry is the closed set of tools one session may call. It is immutable
// after construction.
type Registry struct {
	order []string
	specs map[string]Spec
}

func NewRegistry(specs ...Spec) (*Registry, error) {
	r := &Registry{
		order: make([]string, 0, len(specs)),
		specs: make(map[string]Spec, len(specs)),
	}
	for _, s := range specs {
		name := strings.TrimSpace(s.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: tool name is empty", contractx.ErrValidation)
		}
		if s.Invoke == nil {
			return nil, fmt.Errorf("%w: tool %s has no handler", contractx.ErrValidation, name)
		}
		if _, ok := r.specs[name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateTool, name)
		}
		s.Name = name
		r.order = append(r.order, name)
		r.specs[name] = s
	}
	return r, nil
}

func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

func (r *Registry) Has(name string) bool {
	_, ok := r.specs[name]
	return ok
}

func (r *Registry) Spec(name string) (Spec, bool) {
	s, ok := r.specs[name]
	return s, ok
}

// ParamNames returns the declared parameter names of a tool, in order.
func (r *Registry) ParamNames(name string) []string {
	s, ok := r.specs[name]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(s.Params))
	for _, p := range s.Params {
		out = append(out, p.Name)
	}
	return out
}

func (r *Registry) Specs() []Spec {
	out := make([]Spec, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.specs[name])
	}
	return out
}

func (r *Registry) Infos() []*schema.ToolInfo {
	out := make([]*schema.ToolInfo, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.specs[name].Info())
	}
	return out
}

// Execute dispatches one call.
//
// An unknown name returns contract.ErrUnknownTool before anything runs.
// Bad arguments and collaborator failures come back inside the result so
// the reasoning loop can carry on. Auth and provider quota failures are
// returned as errors as well.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (contractx.ToolResult, error) {
	spec, ok := r.Spec(name)
	if !ok {
		return contractx.ToolResult{Tool: name}, fmt.Errorf("%w: %s", contractx.ErrUnknownTool, name)
	}

	if err := validateArgs(spec, args); err != nil {
		return contractx.ToolResult{Tool: name, Error: err.Error()}, nil
	}

	out, err := spec.Invoke(ctx, args)
	if err != nil {
		if contractx.IsFatal(err) {
			return contractx.ToolResult{Tool: name, Error: err.Error()}, err
		}
		if !errors.Is(err, contractx.ErrToolExecution) {
			err = fmt.Errorf("%w: %v", contractx.ErrToolExecution, err)
		}
		return contractx.ToolResult{Tool: name, Error: err.Error()}, nil
	}
	return contractx.ToolResult{Tool: name, Result: out}, nil
}

func validateArgs(spec Spec, args map[string]any) error {
	for _, p := range spec.Params {
		v, ok := args[p.Name]
		if !ok || v == nil {
			if p.Required {
				return fmt.Errorf("%w: missing required argument %q", contractx.ErrValidation, p.Name)
			}
			continue
		}
		if p.Type == schema.String {
			s, ok := v.(string)
			if !ok {
				return fmt.Errorf("%w: argument %q must be a string", contractx.ErrValidation, p.Name)
			}
			if p.Required && strings.TrimSpace(s) == "" {
				return fmt.Errorf("%w: argument %q is empty", contractx.ErrValidation, p.Name)
			}
			if len(p.Enum) > 0 && !containsFold(p.Enum, strings.TrimSpace(s)) {
				return fmt.Errorf("%w: argument %q must be one of %s", contractx.ErrValidation, p.Name, strings.Join(p.Enum, ", "))
			}
		}
	}
	return nil
}

func containsFold(values []string, s string) bool {
	for _, v := range values {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

func stringArg(args map[string]any, name string) string {
	s, _ := args[name].(string)
	return strings.TrimSpace(s)
}
