package contest

import (
	"context"
	"sync"
	"testing"

	"contesttrade/internal/llmgateway"
)

// scriptedJudgeLLM returns the same reply to every judge's call and
// implements llmgateway.Provider.
type scriptedJudgeLLM struct {
	mu    sync.Mutex
	reply string
	err   error
	calls int
}

func (s *scriptedJudgeLLM) Chat(_ context.Context, _ []llmgateway.Message, _ []llmgateway.ToolSchema, _ string) (llmgateway.Message, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.err != nil {
		return llmgateway.Message{}, s.err
	}
	return llmgateway.Message{Role: "assistant", Content: s.reply}, nil
}

func (s *scriptedJudgeLLM) ChatStream(context.Context, []llmgateway.Message, []llmgateway.ToolSchema, string, llmgateway.StreamHandler) error {
	return nil
}

func TestJudgeEnsembleScoresEverySignalFromEveryJudge(t *testing.T) {
	llm := &scriptedJudgeLLM{reply: "agentA: 85|solid evidence\nagentB: 40 - thin evidence"}
	ensemble := NewJudgeEnsemble(JudgeEnsembleConfig{NumJudgers: 3}, llm, "test-model")

	signals := []ParsedSignal{
		{AgentName: "agentA", HasOpportunity: true, Action: "buy"},
		{AgentName: "agentB", HasOpportunity: true, Action: "sell"},
	}

	scores, err := ensemble.Score(context.Background(), "2024-01-02 09:30:00", signals, nil)
	if err != nil {
		t.Fatalf("Score returned error: %v", err)
	}
	if len(scores) != 6 {
		t.Fatalf("scores length = %d, want 6 (3 judges x 2 signals)", len(scores))
	}

	consensus := ConsensusScores(scores)
	if consensus["agentA"] != 85 {
		t.Fatalf("agentA consensus = %v, want 85", consensus["agentA"])
	}
	if consensus["agentB"] != 40 {
		t.Fatalf("agentB consensus = %v, want 40", consensus["agentB"])
	}
	if llm.calls != 3 {
		t.Fatalf("expected 3 judge calls, got %d", llm.calls)
	}
}

func TestJudgeEnsembleScoreReturnsNilForNoSignals(t *testing.T) {
	llm := &scriptedJudgeLLM{reply: "irrelevant"}
	ensemble := NewJudgeEnsemble(JudgeEnsembleConfig{}, llm, "test-model")

	scores, err := ensemble.Score(context.Background(), "2024-01-02 09:30:00", nil, nil)
	if err != nil {
		t.Fatalf("Score returned error: %v", err)
	}
	if scores != nil {
		t.Fatalf("expected nil scores for empty signal set, got %v", scores)
	}
	if llm.calls != 0 {
		t.Fatalf("expected no LLM calls for empty signal set, got %d", llm.calls)
	}
}

func TestJudgeEnsembleDegradesOnJudgeFailure(t *testing.T) {
	llm := &scriptedJudgeLLM{err: errTest("provider down")}
	ensemble := NewJudgeEnsemble(JudgeEnsembleConfig{NumJudgers: 2}, llm, "test-model")

	signals := []ParsedSignal{{AgentName: "agentA", HasOpportunity: true, Action: "buy"}}
	scores, err := ensemble.Score(context.Background(), "2024-01-02 09:30:00", signals, nil)
	if err != nil {
		t.Fatalf("Score should not surface a per-judge failure as an error: %v", err)
	}
	if len(scores) != 0 {
		t.Fatalf("expected zero scores when every judge call fails, got %d", len(scores))
	}
}

func TestParseJudgeReplyTakesFirstEmbeddedIntegerAndClamps(t *testing.T) {
	scores := parseJudgeReply("agentA: 150|overflow clamp\nagentB: -10|negative clamp\nmalformed line with no colon", 0)
	if len(scores) != 2 {
		t.Fatalf("expected 2 parsed scores, got %d: %+v", len(scores), scores)
	}
	if scores[0].Score != 100 {
		t.Fatalf("agentA score = %v, want clamped to 100", scores[0].Score)
	}
	if scores[1].Score != 0 {
		t.Fatalf("agentB score = %v, want clamped to 0", scores[1].Score)
	}
}

type errTest string

func (e errTest) Error() string { return string(e) }
