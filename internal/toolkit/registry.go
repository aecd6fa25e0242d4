package toolkit

import (
	"context"
	"encoding/json"
)

// DispatchEvent captures a single tool invocation for observers (e.g. the
// Research Agent's tool-call context accumulator, or the event bus).
type DispatchEvent struct {
	Name        string
	TriggerTime string
	Args        json.RawMessage
	Result      Result
}

type recordingRegistry struct {
	base Registry
	on   func(DispatchEvent)
}

// NewRecordingRegistry wraps an existing Registry and calls on for every Invoke.
func NewRecordingRegistry(base Registry, on func(DispatchEvent)) Registry {
	if base == nil {
		base = NewRegistry()
	}
	return &recordingRegistry{base: base, on: on}
}

func (r *recordingRegistry) Register(t Tool)                  { r.base.Register(t) }
func (r *recordingRegistry) Specs() []Spec                    { return r.base.Specs() }
func (r *recordingRegistry) Lookup(name string) (Tool, bool)  { return r.base.Lookup(name) }

func (r *recordingRegistry) Invoke(ctx context.Context, name, triggerTime string, args json.RawMessage) Result {
	result := r.base.Invoke(ctx, name, triggerTime, args)
	if r.on != nil {
		r.on(DispatchEvent{Name: name, TriggerTime: triggerTime, Args: args, Result: result})
	}
	return result
}
