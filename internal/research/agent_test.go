package research

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contesttrade/internal/artifact"
	"contesttrade/internal/llmgateway"
	"contesttrade/internal/toolkit"
)

type scriptedLLM struct {
	calls      int32
	chatReply  func(call int32, prompt string) (string, error)
	streamText string
	streamThink string
}

func (s *scriptedLLM) Chat(_ context.Context, msgs []llmgateway.Message, _ []llmgateway.ToolSchema, _ string) (llmgateway.Message, error) {
	n := atomic.AddInt32(&s.calls, 1)
	content, err := s.chatReply(n, msgs[len(msgs)-1].Content)
	if err != nil {
		return llmgateway.Message{}, err
	}
	return llmgateway.Message{Content: content}, nil
}

func (s *scriptedLLM) ChatStream(_ context.Context, _ []llmgateway.Message, _ []llmgateway.ToolSchema, _ string, h llmgateway.StreamHandler) error {
	h.OnDelta(s.streamText)
	h.OnThoughtSummary(s.streamThink)
	return nil
}

type fakeRegistry struct {
	specs    []toolkit.Spec
	invoked  int32
	response toolkit.Result
}

func (r *fakeRegistry) Register(toolkit.Tool) {}
func (r *fakeRegistry) Specs() []toolkit.Spec { return r.specs }
func (r *fakeRegistry) Lookup(string) (toolkit.Tool, bool) { return nil, false }
func (r *fakeRegistry) Invoke(context.Context, string, string, json.RawMessage) toolkit.Result {
	atomic.AddInt32(&r.invoked, 1)
	return r.response
}

func newStore(t *testing.T) *artifact.Store {
	t.Helper()
	store, err := artifact.NewStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestRunReactDisabledSkipsToolSelection(t *testing.T) {
	llm := &scriptedLLM{
		chatReply:  func(int32, string) (string, error) { return "", fmt.Errorf("chat should not be called") },
		streamText: "Final report body.",
		streamThink: "internal reasoning",
	}
	registry := &fakeRegistry{}
	cfg := Config{AgentName: "no-react", MaxReactStep: 5, Plan: false, React: false}
	agent := NewAgent(cfg, registry, llm, "test-model", "test-model", newStore(t), nil)

	out, err := agent.Run(context.Background(), Input{Task: "evaluate", BackgroundInformation: "bg", TriggerTime: "2024-01-02 09:30:00"})
	require.NoError(t, err)

	assert.Equal(t, "Final report body.", out.FinalResult)
	assert.Equal(t, "internal reasoning", out.FinalResultThinking)
	assert.Equal(t, int32(0), atomic.LoadInt32(&llm.calls))
	assert.Equal(t, int32(0), atomic.LoadInt32(&registry.invoked))
}

func TestRunCallsToolThenFinalReport(t *testing.T) {
	llm := &scriptedLLM{
		chatReply: func(n int32, _ string) (string, error) {
			if n == 1 {
				return `<Output>{"tool_name": "lookup", "properties": {"query": "AAPL"}}</Output>`, nil
			}
			return `<Output>{"tool_name": "final_report", "properties": {}}</Output>`, nil
		},
		streamText: "Report citing lookup result.",
	}
	registry := &fakeRegistry{response: toolkit.Result{Success: true, Data: "lookup succeeded"}}
	cfg := Config{AgentName: "tool-agent", MaxReactStep: 5, Plan: false, React: true}
	agent := NewAgent(cfg, registry, llm, "test-model", "test-model", newStore(t), nil)

	out, err := agent.Run(context.Background(), Input{Task: "evaluate", BackgroundInformation: "bg", TriggerTime: "2024-01-02 09:30:00"})
	require.NoError(t, err)

	assert.Equal(t, int32(2), atomic.LoadInt32(&llm.calls))
	assert.Equal(t, int32(1), atomic.LoadInt32(&registry.invoked))
	assert.Equal(t, "Report citing lookup result.", out.FinalResult)
}

func TestRunStopsAtMaxReactStepEvenWithoutFinalReport(t *testing.T) {
	llm := &scriptedLLM{
		chatReply: func(int32, string) (string, error) {
			return `<Output>{"tool_name": "lookup", "properties": {"query": "AAPL"}}</Output>`, nil
		},
		streamText: "Report after exhausting the step budget.",
	}
	registry := &fakeRegistry{response: toolkit.Result{Success: true, Data: "ok"}}
	cfg := Config{AgentName: "bounded-agent", MaxReactStep: 2, Plan: false, React: true}
	agent := NewAgent(cfg, registry, llm, "test-model", "test-model", newStore(t), nil)

	out, err := agent.Run(context.Background(), Input{TriggerTime: "2024-01-02 09:30:00"})
	require.NoError(t, err)

	assert.Equal(t, int32(2), atomic.LoadInt32(&registry.invoked))
	assert.Equal(t, "Report after exhausting the step budget.", out.FinalResult)
}

func TestRunIsIdempotent(t *testing.T) {
	llm := &scriptedLLM{streamText: "report"}
	registry := &fakeRegistry{}
	cfg := Config{AgentName: "idempotent-agent", Plan: false, React: false, MaxReactStep: 3}
	store := newStore(t)
	agent := NewAgent(cfg, registry, llm, "test-model", "test-model", store, nil)

	_, err := agent.Run(context.Background(), Input{TriggerTime: "2024-01-02 09:30:00"})
	require.NoError(t, err)

	_, err = agent.Run(context.Background(), Input{TriggerTime: "2024-01-02 09:30:00"})
	require.NoError(t, err)

	assert.Equal(t, int32(0), atomic.LoadInt32(&llm.calls))
}

func TestSelectToolRetriesOnMalformedOutput(t *testing.T) {
	llm := &scriptedLLM{
		chatReply: func(n int32, _ string) (string, error) {
			if n == 1 {
				return "not a valid output block", nil
			}
			return `<Output>{"tool_name": "final_report", "properties": {}}</Output>`, nil
		},
	}
	cfg := Config{AgentName: "retry-agent", React: true}.WithDefaults()
	agent := NewAgent(cfg, &fakeRegistry{}, llm, "test-model", "test-model", newStore(t), nil)

	tool := agent.selectTool(context.Background(), "2024-01-02 09:30:00", "task", "", "bg", "", "[]")

	assert.Equal(t, "final_report", tool.ToolName)
	assert.Equal(t, int32(2), atomic.LoadInt32(&llm.calls))
}

func TestEnoughInformationForcesFinalReportWhenPromptTooLarge(t *testing.T) {
	cfg := Config{AgentName: "big-agent", MaxReactStep: 10}.WithDefaults()
	agent := NewAgent(cfg, &fakeRegistry{}, &scriptedLLM{}, "test-model", "test-model", newStore(t), nil)

	huge := strings.Repeat("x", 600000)
	input := Input{TriggerTime: "2024-01-02 09:30:00", BackgroundInformation: huge}
	tool := selectedTool{ToolName: "lookup", Properties: map[string]any{}}

	enough := agent.enoughInformation(context.Background(), input, "task", "", "", "[]", tool, 0)
	assert.True(t, enough)
}

func TestBuildBackgroundInformationIncludesFactorsAndBelief(t *testing.T) {
	cfg := Config{AgentName: "ctx-agent", Belief: "prefers growth stocks"}.WithDefaults()
	agent := NewAgent(cfg, &fakeRegistry{}, &scriptedLLM{}, "test-model", "test-model", newStore(t), nil)

	factors := []Factor{{AgentName: "news-agent", TriggerTime: "2024-01-02 09:30:00", ContextString: "market is up"}}
	background, err := agent.BuildBackgroundInformation(factors, "market_name: CN-Stock")
	require.NoError(t, err)

	assert.Contains(t, background, "news-agent")
	assert.Contains(t, background, "market is up")
	assert.Contains(t, background, "CN-Stock")
	assert.Contains(t, background, "prefers growth stocks")
}
