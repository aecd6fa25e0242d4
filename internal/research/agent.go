package research

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"contesttrade/internal/artifact"
	"contesttrade/internal/llmgateway"
	"contesttrade/internal/observability"
	"contesttrade/internal/toolkit"
)

// Agent runs one Research Agent's ReAct loop for a given trigger time.
type Agent struct {
	cfg   Config
	tools toolkit.Registry
	llm   llmgateway.Provider
	// thinkingModel, when non-empty, is used for the write-result step
	// instead of model (mirroring the original's separate GLOBAL_THINKING_LLM).
	model         string
	thinkingModel string
	store         *artifact.Store
	// beliefs, when set, resolves this agent's current belief from its most
	// recent prior run instead of always using cfg.Belief verbatim.
	beliefs *BeliefStore
}

// NewAgent builds an Agent. cfg is normalized via WithDefaults if the caller
// hasn't already done so. beliefs may be nil, in which case cfg.Belief is
// used unchanged on every run.
func NewAgent(cfg Config, tools toolkit.Registry, llm llmgateway.Provider, model, thinkingModel string, store *artifact.Store, beliefs *BeliefStore) *Agent {
	if thinkingModel == "" {
		thinkingModel = model
	}
	return &Agent{cfg: cfg.WithDefaults(), tools: tools, llm: llm, model: model, thinkingModel: thinkingModel, store: store, beliefs: beliefs}
}

// currentBelief resolves the belief to argue from for this run: the
// BeliefStore's persisted value when one is wired in, falling back to the
// agent's static configured belief otherwise.
func (a *Agent) currentBelief() (string, error) {
	if a.beliefs == nil {
		return a.cfg.Belief, nil
	}
	return a.beliefs.Load(a.cfg.AgentName, a.cfg.Belief)
}

// BuildBackgroundInformation renders the XML background block this agent's
// report will be written from, combining the supplied factors, the target
// market context (from internal/market.Manager.GetTargetSymbolContext), and
// the agent's current belief.
func (a *Agent) BuildBackgroundInformation(factors []Factor, targetMarketContext string) (string, error) {
	belief, err := a.currentBelief()
	if err != nil {
		return "", err
	}
	return buildBackgroundInformation(factors, targetMarketContext, belief), nil
}

// Run executes the ReAct loop for input. If a report artifact already exists
// for (agentName, triggerTime), it is returned without recomputing (spec.md
// §7: artifact collisions are success, not error).
func (a *Agent) Run(ctx context.Context, input Input) (Output, error) {
	log := observability.LoggerWithTrace(ctx)

	var existing Output
	found, err := a.store.LoadReport(a.cfg.AgentName, input.TriggerTime, &existing)
	if err != nil {
		return Output{}, fmt.Errorf("load existing report for %s/%s: %w", a.cfg.AgentName, input.TriggerTime, err)
	}
	if found {
		log.Debug().Str("agent", a.cfg.AgentName).Str("triggerTime", input.TriggerTime).Msg("research_report_already_exists")
		return existing, nil
	}

	task := input.Task
	if task == "" {
		task = investTaskPrompt()
	}

	toolsInfo := a.toolsInfoJSON()

	planResult := ""
	if a.cfg.Plan {
		planResult = a.plan(ctx, input.TriggerTime, task, input.BackgroundInformation, toolsInfo)
	}

	var toolCallContext strings.Builder
	toolCallCount := 0

	for {
		tool := a.selectTool(ctx, input.TriggerTime, task, planResult, input.BackgroundInformation, toolCallContext.String(), toolsInfo)

		if a.enoughInformation(ctx, input, task, planResult, toolCallContext.String(), toolsInfo, tool, toolCallCount) {
			break
		}

		outcome := a.callTool(ctx, input.TriggerTime, tool)
		toolCallCount++
		a.appendToolCallContext(&toolCallContext, tool, outcome)
	}

	finalResult, finalResultThinking := a.writeResult(ctx, input, task, planResult, toolCallContext.String(), toolsInfo)

	belief, err := a.currentBelief()
	if err != nil {
		return Output{}, fmt.Errorf("resolve belief for %s: %w", a.cfg.AgentName, err)
	}

	out := Output{
		Task:                  task,
		TriggerTime:           input.TriggerTime,
		BackgroundInformation: input.BackgroundInformation,
		Belief:                belief,
		FinalResult:           finalResult,
		FinalResultThinking:   finalResultThinking,
	}

	if err := a.store.SaveReport(a.cfg.AgentName, input.TriggerTime, out); err != nil {
		return Output{}, fmt.Errorf("save report %s/%s: %w", a.cfg.AgentName, input.TriggerTime, err)
	}
	return out, nil
}

func (a *Agent) toolsInfoJSON() string {
	specs := a.tools.Specs()
	data, err := json.MarshalIndent(specs, "", "  ")
	if err != nil {
		return "[]"
	}
	return string(data)
}

func (a *Agent) plan(ctx context.Context, triggerTime, task, background, toolsInfo string) string {
	log := observability.LoggerWithTrace(ctx)
	prompt := planPrompt(triggerTime, task, background, toolsInfo, a.cfg.OutputLanguage)
	reply, err := a.llm.Chat(ctx, []llmgateway.Message{{Role: "user", Content: prompt}}, nil, a.model)
	if err != nil {
		log.Error().Err(err).Msg("research_plan_failed")
		return ""
	}
	return strings.TrimSpace(reply.Content)
}

var outputBlockPattern = regexp.MustCompile(`(?s)<Output>(.*?)</Output>`)

// selectTool asks the LLM to choose the next tool, retrying up to 3 times
// (re-injecting the prior malformed reply and a correction request) when the
// <Output>...</Output> block fails to parse, mirroring
// select_tool_by_llm's retry loop. When react is disabled it returns a
// final_report selection without calling the LLM. When every attempt fails,
// the returned selectedTool carries an error instead of panicking the loop —
// the caller treats an errored selection as "not enough information" and
// records it as a failed tool call, same as the original.
func (a *Agent) selectTool(ctx context.Context, triggerTime, task, plan, background, toolCallContext, toolsInfo string) selectedTool {
	if !a.cfg.React {
		return selectedTool{ToolName: "final_report", Properties: map[string]any{}}
	}

	log := observability.LoggerWithTrace(ctx)
	prompt := chooseToolPrompt(triggerTime, task, plan, background, toolCallContext, toolsInfo, a.cfg.OutputLanguage)
	messages := []llmgateway.Message{{Role: "user", Content: prompt}}

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if lastErr != nil {
			messages = append(messages, llmgateway.Message{Role: "user", Content: lastErr.Error() + "\n\nPlease try again."})
		}
		reply, err := a.llm.Chat(ctx, messages, nil, a.model)
		if err != nil {
			lastErr = err
			continue
		}
		messages = append(messages, llmgateway.Message{Role: "assistant", Content: reply.Content})

		tool, err := parseSelectedTool(reply.Content)
		if err != nil {
			lastErr = fmt.Errorf("failed to parse tool call: %w", err)
			continue
		}
		return tool
	}

	log.Error().Err(lastErr).Msg("research_tool_selection_failed")
	return selectedTool{Error: lastErr.Error()}
}

// parseSelectedTool extracts and validates the <Output>{"tool_name":...,
// "properties":{...}}</Output> block, stripping spaces from a "market"
// property the same way parse_bounding_json does.
func parseSelectedTool(reply string) (selectedTool, error) {
	m := outputBlockPattern.FindStringSubmatch(reply)
	if m == nil {
		return selectedTool{}, fmt.Errorf("no <Output> block found in reply")
	}
	var tool selectedTool
	if err := json.Unmarshal([]byte(m[1]), &tool); err != nil {
		return selectedTool{}, fmt.Errorf("invalid JSON in <Output> block: %w", err)
	}
	if tool.ToolName == "" {
		return selectedTool{}, fmt.Errorf("tool_name is required in the output")
	}
	if tool.Properties == nil {
		return selectedTool{}, fmt.Errorf("properties is required in the output")
	}
	if market, ok := tool.Properties["market"].(string); ok {
		tool.Properties["market"] = strings.ReplaceAll(market, " ", "")
	}
	return tool, nil
}

// enoughInformation mirrors _enough_information's three-way gate: the
// estimated write-result prompt's character length is checked first
// regardless of tool state (a cheap proxy for the original's
// count_tokens(...)>128000 check), then a failed selection always means
// "not enough", then a final_report selection or an exhausted step budget
// means "enough".
func (a *Agent) enoughInformation(ctx context.Context, input Input, task, plan, toolCallContext, toolsInfo string, tool selectedTool, toolCallCount int) bool {
	log := observability.LoggerWithTrace(ctx)
	estimated := writeResultPrompt(input.TriggerTime, task, input.BackgroundInformation, plan, toolCallContext, toolsInfo, outputFormat(), a.cfg.OutputLanguage)
	if len(estimated) > a.cfg.MaxPromptChars {
		log.Debug().Msg("research_write_result_prompt_over_budget_forcing_final_report")
		return true
	}

	if tool.Error != "" {
		return false
	}
	if tool.ToolName == "final_report" || toolCallCount >= a.cfg.MaxReactStep {
		return true
	}
	return false
}

func (a *Agent) callTool(ctx context.Context, triggerTime string, tool selectedTool) toolkit.Result {
	if tool.Error != "" {
		return toolkit.Result{Success: false, ErrorMessage: tool.Error}
	}
	args, err := json.Marshal(tool.Properties)
	if err != nil {
		return toolkit.Result{Success: false, ErrorMessage: fmt.Sprintf("marshal tool args: %s", err)}
	}
	return a.tools.Invoke(ctx, tool.ToolName, triggerTime, args)
}

func (a *Agent) appendToolCallContext(b *strings.Builder, tool selectedTool, result toolkit.Result) {
	record := toolCallRecord{
		ToolCalled: tool,
		ToolResult: toolOutcome{Success: result.Success, Data: result.Data, ErrorMessage: result.ErrorMessage},
	}
	data, err := json.Marshal(record)
	if err != nil {
		return
	}
	b.Write(data)
	b.WriteByte('\n')
}

// writeResult produces the final report via a streaming call so the
// provider's thought-summary deltas (when the provider emits them) can be
// captured separately from the answer content, mirroring the original's
// result.content / result.reasoning_content split.
func (a *Agent) writeResult(ctx context.Context, input Input, task, plan, toolCallContext, toolsInfo string) (string, string) {
	log := observability.LoggerWithTrace(ctx)
	prompt := writeResultPrompt(input.TriggerTime, task, input.BackgroundInformation, plan, toolCallContext, toolsInfo, outputFormat(), a.cfg.OutputLanguage)

	h := &collectingHandler{}
	err := a.llm.ChatStream(ctx, []llmgateway.Message{{Role: "user", Content: prompt}}, nil, a.thinkingModel, h)
	if err != nil {
		log.Error().Err(err).Msg("research_write_result_failed")
		return "", ""
	}
	return h.content.String(), h.thinking.String()
}

type collectingHandler struct {
	content  strings.Builder
	thinking strings.Builder
}

func (h *collectingHandler) OnDelta(content string)         { h.content.WriteString(content) }
func (h *collectingHandler) OnToolCall(llmgateway.ToolCall) {}
func (h *collectingHandler) OnImage(llmgateway.GeneratedImage) {}
func (h *collectingHandler) OnThoughtSummary(summary string) { h.thinking.WriteString(summary) }
