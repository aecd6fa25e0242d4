package contest

import "sort"

// ConsensusScores averages every judge's score for each signal name,
// grounded on judger_signal_judger.py's calculate_consensus_scores. A
// signal with no surviving judge scores is simply absent from the result.
func ConsensusScores(scores []JudgeScore) map[string]float64 {
	sums := map[string]float64{}
	counts := map[string]int{}
	for _, s := range scores {
		sums[s.SignalName] += s.Score
		counts[s.SignalName]++
	}

	out := make(map[string]float64, len(sums))
	for name, sum := range sums {
		out[name] = sum / float64(counts[name])
	}
	return out
}

// OptimizeWeights allocates portfolio weight across signals whose
// hasOpportunity is true. Grounded on
// judger_weight_optimizer.py's optimize_weights/_calculate_composite_weights:
// composite = consensus*(1+0.5*historicalReturn) when historicalReturn>0,
// else 0; positive composites normalize to sum to 1, everything else gets
// zero weight.
func OptimizeWeights(triggerTime string, signals []ParsedSignal, consensus map[string]float64, historicalReturns map[string]float64) WeightResult {
	composite := map[string]float64{}
	for _, s := range signals {
		if !s.HasOpportunity {
			continue
		}
		name := s.AgentName
		c := consensus[name]
		if hr, ok := historicalReturns[name]; ok && hr > 0 {
			composite[name] = c * (1 + 0.5*hr)
		} else {
			composite[name] = 0
		}
	}

	return WeightResult{
		TriggerTime: triggerTime,
		Weights:     normalizePositive(composite),
		Summary:     buildSummary(consensus),
	}
}

func normalizePositive(composite map[string]float64) map[string]float64 {
	total := 0.0
	for _, v := range composite {
		if v > 0 {
			total += v
		}
	}

	out := make(map[string]float64, len(composite))
	for name, v := range composite {
		if v > 0 && total > 0 {
			out[name] = v / total
		} else {
			out[name] = 0
		}
	}
	return out
}

// buildSummary mirrors judger_weight_optimizer.py's save_final_results
// summary block, with topSignals capped at the top 3 by consensus score.
func buildSummary(consensus map[string]float64) Summary {
	names := make([]string, 0, len(consensus))
	sum := 0.0
	for name, score := range consensus {
		names = append(names, name)
		sum += score
	}
	sort.Slice(names, func(i, j int) bool { return consensus[names[i]] > consensus[names[j]] })

	top := names
	if len(top) > 3 {
		top = top[:3]
	}

	avg := 0.0
	if len(consensus) > 0 {
		avg = sum / float64(len(consensus))
	}

	return Summary{
		TotalSignals: len(consensus),
		AvgScore:     avg,
		TopSignals:   append([]string(nil), top...),
	}
}
