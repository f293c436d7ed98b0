// Package tools holds the capabilities the model may call and the dispatcher
// that routes every function call to its validated handler.
package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/KakuleMalambo/voice-assistant/pkg/conversation"
	"github.com/KakuleMalambo/voice-assistant/pkg/schema"
)

var (
	// ErrUnknownTool matches every *UnknownToolError.
	ErrUnknownTool = errors.New("tools: unknown tool")

	// ErrDuplicateTool indicates two tools were registered under one name.
	ErrDuplicateTool = errors.New("tools: duplicate tool name")

	// ErrInvalidTool indicates a tool without a name or handler.
	ErrInvalidTool = errors.New("tools: invalid tool")
)

// UnknownToolError reports a call to a name the registry does not hold.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("tools: unknown tool %q", e.Name)
}

// Is reports whether target is ErrUnknownTool.
func (e *UnknownToolError) Is(target error) bool {
	return target == ErrUnknownTool
}

// Handler runs a tool with validated arguments and returns the text to be
// relayed to the model.
type Handler func(ctx context.Context, args schema.Args) (string, error)

// Tool is one capability exposed to the model.
type Tool struct {
	Name        string
	Description string
	// Action describes the tool in failure text, e.g. "getting the weather".
	Action  string
	Schema  schema.Schema
	Handler Handler
}

// Registry is an immutable, ordered set of tools. It is safe for concurrent
// use because nothing mutates it after NewRegistry returns.
type Registry struct {
	tools map[string]Tool
	order []string
}

// NewRegistry builds a registry from tools in the given order.
func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{
		tools: make(map[string]Tool, len(tools)),
		order: make([]string, 0, len(tools)),
	}
	for _, t := range tools {
		if t.Name == "" || t.Handler == nil {
			return nil, fmt.Errorf("%w: %q needs a name and a handler", ErrInvalidTool, t.Name)
		}
		if _, ok := r.tools[t.Name]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateTool, t.Name)
		}
		if t.Action == "" {
			t.Action = "running " + t.Name
		}
		r.tools[t.Name] = t
		r.order = append(r.order, t.Name)
	}
	return r, nil
}

// Get returns the named tool.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Names returns the tool names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	return len(r.order)
}

// Descriptors returns the declarations handed to the model.
func (r *Registry) Descriptors() []conversation.Tool {
	out := make([]conversation.Tool, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		out = append(out, conversation.Tool{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  t.Schema.JSONSchema(),
		})
	}
	return out
}

// Validate checks raw against the named tool's schema.
func (r *Registry) Validate(name string, raw map[string]any) (schema.Args, error) {
	t, ok := r.tools[name]
	if !ok {
		return nil, &UnknownToolError{Name: name}
	}
	return t.Schema.Validate(raw)
}
