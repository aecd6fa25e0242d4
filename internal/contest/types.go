// Package contest implements the Contest subsystem: parsing a Research
// Agent's signal blocks, judging those signals with an LLM ensemble,
// computing historical reward, predicting a Sharpe ratio per agent, and
// allocating weights across agents.
//
// Grounded on original_source/contest_trade/contest/judger_weight_optimizer.py,
// judger_signal_judger.py, and researcher/research_predictor.py.
package contest

// Evidence is one cited data point backing a signal's conclusion.
type Evidence struct {
	Description string `json:"description"`
	Time        string `json:"time"`
	FromSource  string `json:"fromSource"`
}

// ParsedSignal is one <signal>...</signal> block extracted from a Research
// Agent's FinalResult.
type ParsedSignal struct {
	AgentName      string     `json:"agentName"`
	HasOpportunity bool       `json:"hasOpportunity"`
	Action         string     `json:"action"` // buy | sell | HOLD
	SymbolCode     string     `json:"symbolCode"`
	SymbolName     string     `json:"symbolName"`
	EvidenceList   []Evidence `json:"evidenceList"`
	Limitations    []string   `json:"limitations"`
	Probability    int        `json:"probability"`
}

// JudgeScore is one judge's verdict on one signal.
type JudgeScore struct {
	SignalName string  `json:"signalName"`
	Score      float64 `json:"score"`
	Reasoning  string  `json:"reasoning"`
	JudgerID   int     `json:"judgerId"`
}

// ContestData is the historical reward/judge record attached to a past
// signal, used to build the predictor's feature vectors.
type ContestData struct {
	Reward         float64   `json:"reward"`
	EvaluationDate string    `json:"evaluationDate"`
	JudgeScores    []float64 `json:"judgeScores,omitempty"`
}

// Summary is the WeightResult's top-line digest, capped to the top 3
// signals by consensus score (original_source's save_final_results slices
// the sorted list [:3]).
type Summary struct {
	TotalSignals int      `json:"totalSignals"`
	AvgScore     float64  `json:"avgScore"`
	TopSignals   []string `json:"topSignals"`
}

// WeightResult is the final, persisted weight-allocation artifact.
type WeightResult struct {
	TriggerTime     string             `json:"triggerTime"`
	Weights         map[string]float64 `json:"weights"`
	PredictedSharpe map[string]float64 `json:"predictedSharpe"`
	Summary         Summary            `json:"summary"`
}
