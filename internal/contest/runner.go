package contest

import "context"

// Result is what the company workflow's finalize stage receives: the
// signals extracted from this run's research reports plus whatever weight
// allocation the Runner computed over them.
type Result struct {
	Signals []ParsedSignal `json:"signals"`
	Weights WeightResult   `json:"weights"`
}

// Runner is the full judger/predictor/optimizer pipeline (JudgeEnsemble +
// historical reward + Predictor + OptimizeWeights), exposed behind an
// interface so internal/workflow depends only on this contract rather than
// the contest internals.
type Runner interface {
	Run(ctx context.Context, triggerTime string, signals []ParsedSignal) (Result, error)
}
