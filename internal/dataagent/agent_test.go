package dataagent

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contesttrade/internal/artifact"
	"contesttrade/internal/datasource"
	"contesttrade/internal/llmgateway"
)

type fakeSource struct {
	name string
	rows []datasource.Row
}

func (f fakeSource) Name() string { return f.name }
func (f fakeSource) GetData(_ context.Context, _ string) ([]datasource.Row, error) {
	return f.rows, nil
}

type scriptedLLM struct {
	calls int32
	reply func(prompt string) string
}

func (s *scriptedLLM) Chat(_ context.Context, msgs []llmgateway.Message, _ []llmgateway.ToolSchema, _ string) (llmgateway.Message, error) {
	atomic.AddInt32(&s.calls, 1)
	return llmgateway.Message{Content: s.reply(msgs[0].Content)}, nil
}

func (s *scriptedLLM) ChatStream(context.Context, []llmgateway.Message, []llmgateway.ToolSchema, string, llmgateway.StreamHandler) error {
	return fmt.Errorf("not used")
}

func newStore(t *testing.T) *artifact.Store {
	t.Helper()
	store, err := artifact.NewStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestRunProducesFactorWithReferences(t *testing.T) {
	rows := []datasource.Row{
		{Title: "Company A posts record earnings", Content: "Company A reported record quarterly earnings today, beating estimates.", PubTime: "2024-01-02 08:00:00"},
		{Title: "  ", Content: "should be dropped, blank title", PubTime: "2024-01-02 08:00:00"},
		{Title: "Company B announces buyback", Content: "Company B announced a share buyback program.", PubTime: "2024-01-02 08:30:00"},
	}
	src := fakeSource{name: "news", rows: rows}

	llm := &scriptedLLM{reply: func(prompt string) string {
		return "Summary referencing document [1] and [2]."
	}}

	cfg := Config{AgentName: "test-agent", SourceList: []string{"news"}, BiasGoal: "growth stocks", CreditsPerBatch: 2, LLMCallsPerBatch: 2, MaxConcurrentTasks: 2}
	store := newStore(t)
	agent := NewAgent(cfg, []datasource.Source{src}, llm, "test-model", store, "English")

	out, err := agent.Run(context.Background(), "2024-01-02 09:30:00")
	require.NoError(t, err)

	assert.Equal(t, "test-agent", out.AgentName)
	assert.NotEmpty(t, out.ContextString)
	assert.Len(t, out.References, 2)
	assert.ElementsMatch(t, []int{1, 2}, []int{out.References[0].ID, out.References[1].ID})
}

func TestRunIsIdempotent(t *testing.T) {
	src := fakeSource{name: "news", rows: []datasource.Row{
		{Title: "headline", Content: "some content here", PubTime: "2024-01-02 08:00:00"},
	}}
	llm := &scriptedLLM{reply: func(string) string { return "a summary [1]" }}

	cfg := Config{AgentName: "idempotent-agent", SourceList: []string{"news"}, BiasGoal: "growth stocks"}
	store := newStore(t)
	agent := NewAgent(cfg, []datasource.Source{src}, llm, "test-model", store, "English")

	_, err := agent.Run(context.Background(), "2024-01-02 09:30:00")
	require.NoError(t, err)
	callsAfterFirst := atomic.LoadInt32(&llm.calls)
	require.Greater(t, callsAfterFirst, int32(0))

	_, err = agent.Run(context.Background(), "2024-01-02 09:30:00")
	require.NoError(t, err)
	assert.Equal(t, callsAfterFirst, atomic.LoadInt32(&llm.calls), "second run should short-circuit on the existing artifact")
}

func TestSplitBatchesCoversAllDocs(t *testing.T) {
	agent := &Agent{cfg: Config{BatchCount: 3}}
	docs := make([]doc, 7)
	for i := range docs {
		docs[i] = doc{ID: i + 1}
	}

	batches := agent.splitBatches(docs)

	var total int
	for _, b := range batches {
		total += len(b.docs)
	}
	assert.Equal(t, len(docs), total)
}

func TestExtractReferenceIDs(t *testing.T) {
	ids := extractReferenceIDs("This cites [3] and also [10] twice [3].")
	assert.ElementsMatch(t, []int{3, 10, 3}, ids)
}
