package toolcall

import (
	"context"
	"errors"
	"fmt"
	"log"
)

// ErrUnknownTool marks a directive naming a tool with no registered handler.
var ErrUnknownTool = errors.New("toolcall: unknown tool")

// Result is what one tool execution hands back to the caller. A failed
// execution is still a Result, never a panic: the conversation continues.
type Result struct {
	Success bool           `json:"success"`
	Action  string         `json:"action,omitempty"`
	Message string         `json:"message,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

// Handler executes one tool. Side effects are the handler's business; the
// registry only routes.
type Handler func(ctx context.Context, params map[string]string) Result

// Registry maps tool names to handlers.
type Registry struct {
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

func (r *Registry) Register(name string, h Handler) {
	r.handlers[name] = h
}

// Execute runs the named tool. An unknown name degrades to a typed failure
// result with ErrUnknownTool; callers log and move on.
func (r *Registry) Execute(ctx context.Context, name string, params map[string]string) (Result, error) {
	h, ok := r.handlers[name]
	if !ok {
		log.Printf("[toolcall] no handler for %q, ignoring directive", name)
		return Result{
			Success: false,
			Message: fmt.Sprintf("unknown tool %q", name),
		}, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	return h(ctx, params), nil
}
