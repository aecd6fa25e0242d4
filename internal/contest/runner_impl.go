package contest

import (
	"context"
	"fmt"

	"contesttrade/internal/artifact"
)

// DefaultRunner is the full judger -> historical-reward -> predictor ->
// optimizer pipeline implementing Runner, wired together the way
// contest/researcher/research_contest.py orchestrates the same stages in
// the original.
type DefaultRunner struct {
	judges    *JudgeEnsemble
	history   *HistoryReader
	predictor *Predictor // optional: nil skips Sharpe prediction entirely
	store     *artifact.Store
}

// NewDefaultRunner builds a DefaultRunner. predictor and store may be nil:
// a nil predictor skips PredictedSharpe (spec.md §4.4.4's "predictor
// unavailable -> omit, don't fail"); a nil store skips persistence.
func NewDefaultRunner(judges *JudgeEnsemble, history *HistoryReader, predictor *Predictor, store *artifact.Store) *DefaultRunner {
	return &DefaultRunner{judges: judges, history: history, predictor: predictor, store: store}
}

// Run implements Runner.
func (r *DefaultRunner) Run(ctx context.Context, triggerTime string, signals []ParsedSignal) (Result, error) {
	historicalReturns := map[string]float64{}
	for _, s := range signals {
		ret, ok, err := r.history.CompoundedReturn(ctx, s.AgentName, triggerTime)
		if err != nil {
			return Result{}, fmt.Errorf("compounded return for %s: %w", s.AgentName, err)
		}
		if ok {
			historicalReturns[s.AgentName] = ret
		}
	}

	judgeScores, err := r.judges.Score(ctx, triggerTime, signals, historicalReturns)
	if err != nil {
		return Result{}, fmt.Errorf("judge signals: %w", err)
	}
	consensus := ConsensusScores(judgeScores)

	weights := OptimizeWeights(triggerTime, signals, consensus, historicalReturns)

	if r.predictor != nil {
		weights.PredictedSharpe = r.predictSharpes(ctx, triggerTime, signals, judgeScores)
	}

	if r.store != nil {
		if err := r.store.SaveFinalResult(triggerTime, weights); err != nil {
			return Result{}, fmt.Errorf("save final result: %w", err)
		}
		if err := r.store.SaveJudgerScores(triggerTime, judgeScores); err != nil {
			return Result{}, fmt.Errorf("save judger scores: %w", err)
		}
	}

	return Result{Signals: signals, Weights: weights}, nil
}

func (r *DefaultRunner) predictSharpes(ctx context.Context, triggerTime string, signals []ParsedSignal, judgeScores []JudgeScore) map[string]float64 {
	byName := map[string][]float64{}
	for _, js := range judgeScores {
		byName[js.SignalName] = append(byName[js.SignalName], js.Score)
	}

	out := map[string]float64{}
	for _, s := range signals {
		rewards, err := r.history.PerDayReturns(ctx, s.AgentName, triggerTime)
		if err != nil {
			continue
		}
		sharpe, err := r.predictor.PredictSharpe(rewards, byName[s.AgentName])
		if err != nil {
			continue
		}
		out[s.AgentName] = sharpe
	}
	return out
}
