// Package toolkit implements the Research Agent's tool registry contract:
// each tool is described by a JSON schema, invoked asynchronously, capped by
// an output-length truncation and an execution timeout, and always returns
// either {success:true, data} or {success:false, errorMessage} — never a Go
// error that would need separate handling by the caller.
package toolkit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Result is the uniform shape every tool call resolves to.
type Result struct {
	Success      bool   `json:"success"`
	Data         string `json:"data,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// Spec describes a tool the way it is presented to the tool-selection LLM
// prompt. ArgsSchema MUST NOT mention triggerTime — the agent injects it.
type Spec struct {
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	ArgsSchema    map[string]any `json:"argsSchema"`
	MaxOutputLen  int            `json:"-"`
	TimeoutSeconds int           `json:"-"`
}

// Tool is an executable capability a Research Agent can select and call.
// Call receives the arguments as the tool-selection LLM produced them plus
// the injected triggerTime. Neither the registry nor the agent validates them
// against ArgsSchema; each tool checks its own input.
type Tool interface {
	Spec() Spec
	Call(ctx context.Context, triggerTime string, args json.RawMessage) (string, error)
}

// Registry holds the tools available to a single Research Agent run.
type Registry interface {
	Register(t Tool)
	Specs() []Spec
	Lookup(name string) (Tool, bool)
	// Invoke runs the named tool with the registry's timeout/truncation rules
	// applied, always returning a Result rather than an error — malformed
	// input or a missing tool name is reported as Result.Success == false.
	Invoke(ctx context.Context, name string, triggerTime string, args json.RawMessage) Result
}

type registry struct {
	byName map[string]Tool
}

// NewRegistry returns an in-memory tool registry.
func NewRegistry() Registry {
	return &registry{byName: make(map[string]Tool)}
}

func (r *registry) Register(t Tool) { r.byName[t.Spec().Name] = t }

func (r *registry) Specs() []Spec {
	out := make([]Spec, 0, len(r.byName))
	for _, t := range r.byName {
		out = append(out, t.Spec())
	}
	return out
}

func (r *registry) Lookup(name string) (Tool, bool) {
	t, ok := r.byName[name]
	return t, ok
}

func (r *registry) Invoke(ctx context.Context, name string, triggerTime string, args json.RawMessage) Result {
	t, ok := r.byName[name]
	if !ok {
		return Result{Success: false, ErrorMessage: fmt.Sprintf("tool not found: %s", name)}
	}
	spec := t.Spec()

	timeout := time.Duration(spec.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	data, err := t.Call(callCtx, triggerTime, args)
	if err != nil {
		if callCtx.Err() != nil {
			return Result{Success: false, ErrorMessage: fmt.Sprintf("tool %s timed out after %s", name, timeout)}
		}
		return Result{Success: false, ErrorMessage: err.Error()}
	}

	maxLen := spec.MaxOutputLen
	if maxLen > 0 && len(data) > maxLen {
		data = data[:maxLen] + "... [truncated]"
	}
	return Result{Success: true, Data: data}
}
