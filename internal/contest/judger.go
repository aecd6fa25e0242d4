package contest

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"contesttrade/internal/llmgateway"
)

// JudgeEnsembleConfig configures one judge ensemble run.
type JudgeEnsembleConfig struct {
	NumJudgers int
	WindowDays int
}

// WithDefaults fills in the original's defaults: 5 independent judges over
// a 5-trading-day historical-performance window.
func (c JudgeEnsembleConfig) WithDefaults() JudgeEnsembleConfig {
	if c.NumJudgers <= 0 {
		c.NumJudgers = 5
	}
	if c.WindowDays <= 0 {
		c.WindowDays = 5
	}
	return c
}

// JudgeEnsemble fires NumJudgers independent, parallel LLM calls over the
// same batched scoring prompt (spec.md §4.4.1).
type JudgeEnsemble struct {
	cfg   JudgeEnsembleConfig
	llm   llmgateway.Provider
	model string
}

// NewJudgeEnsemble builds a JudgeEnsemble.
func NewJudgeEnsemble(cfg JudgeEnsembleConfig, llm llmgateway.Provider, model string) *JudgeEnsemble {
	return &JudgeEnsemble{cfg: cfg.WithDefaults(), llm: llm, model: model}
}

// Score evaluates every signal with cfg.NumJudgers independent judges and
// returns every successful judge's per-signal scores, flattened. A judge
// whose call errors, or whose reply has no parseable lines, simply
// contributes nothing — the caller's consensus mean degrades gracefully
// rather than the whole ensemble failing (spec.md §4.4.1, §7).
func (j *JudgeEnsemble) Score(ctx context.Context, evaluationDate string, signals []ParsedSignal, historicalReturns map[string]float64) ([]JudgeScore, error) {
	if len(signals) == 0 {
		return nil, nil
	}
	prompt := buildScoringPrompt(evaluationDate, signals, historicalReturns, j.cfg.WindowDays)

	results := make([][]JudgeScore, j.cfg.NumJudgers)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < j.cfg.NumJudgers; i++ {
		judgerID := i
		g.Go(func() error {
			reply, err := j.llm.Chat(gctx, []llmgateway.Message{{Role: "user", Content: prompt}}, nil, j.model)
			if err != nil {
				return nil
			}
			results[judgerID] = parseJudgeReply(reply.Content, judgerID)
			return nil
		})
	}
	_ = g.Wait()

	var out []JudgeScore
	for _, r := range results {
		out = append(out, r...)
	}
	return out, nil
}

// buildScoringPrompt renders the batched critique prompt every judge
// receives, grounded on judger_signal_judger.py's build_scoring_prompt.
func buildScoringPrompt(evaluationDate string, signals []ParsedSignal, historicalReturns map[string]float64, windowDays int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a strict stock investment analyst who needs to critically evaluate trading signals.\n\nEvaluation Date: %s\n\nBelow is the signal information from all researchers:\n", evaluationDate)

	for _, s := range signals {
		historicalInfo := fmt.Sprintf("Compounded return over past %d days: Insufficient data", windowDays)
		if hr, ok := historicalReturns[s.AgentName]; ok {
			historicalInfo = fmt.Sprintf("Compounded return over past %d days: %.2f%%", windowDays, hr*100)
		}

		evidenceText := "None"
		if len(s.EvidenceList) > 0 {
			lines := make([]string, 0, len(s.EvidenceList))
			for _, e := range s.EvidenceList {
				lines = append(lines, "- "+e.Description)
			}
			evidenceText = strings.Join(lines, "\n")
		}

		limitationsText := "None"
		if len(s.Limitations) > 0 {
			limitationsText = strings.Join(s.Limitations, "; ")
		}

		fmt.Fprintf(&b, "\nResearcher ID: %s\nHistorical Performance: %s\nRecommended Action: %s\nOpportunity Assessment: %v\nEvidence List: %s\nLimitations: %s\nProbability Assessment: %d\n",
			s.AgentName, historicalInfo, s.Action, s.HasOpportunity, evidenceText, limitationsText, s.Probability)
	}

	b.WriteString("\nPlease evaluate all signals according to the following criticism criteria (start from 100 points, only deduct points, no bonus points):\n")
	b.WriteString("1. Historical Performance Issues\n2. Analysis Quality Issues\n3. Insufficient Evidence Issues\n4. Risk Assessment Issues\n5. Opportunity Judgment Issues\n6. Logical Flaws\n7. Data Issues\n\n")
	b.WriteString("Output strictly one line per researcher: researcherID: score|reasons for deduction. Use \"|\" to separate score and reasons, no other separator.\n")
	return b.String()
}

var judgeLinePattern = regexp.MustCompile(`^([^:]+):\s*(.+)$`)
var scoreNumberPattern = regexp.MustCompile(`-?\d+`)

// parseJudgeReply tolerantly extracts {signalName: score|reason} lines from
// one judge's raw reply, grounded on
// judger_signal_judger.py's parse_llm_scores: split on the first ":", then
// on "|" (falling back to " - "), then pull the first integer (with an
// optional leading minus) as the score and clamp to [0,100]. Lines that don't fit are skipped, not fatal.
func parseJudgeReply(content string, judgerID int) []JudgeScore {
	var out []JudgeScore
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !strings.Contains(line, ":") {
			continue
		}
		m := judgeLinePattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		signalName := strings.TrimSpace(m[1])
		rest := strings.TrimSpace(m[2])

		var scoreText, reason string
		if idx := strings.Index(rest, "|"); idx >= 0 {
			scoreText, reason = rest[:idx], strings.TrimSpace(rest[idx+1:])
		} else if idx := strings.Index(rest, " - "); idx >= 0 {
			scoreText, reason = rest[:idx], strings.TrimSpace(rest[idx+len(" - "):])
		} else {
			scoreText, reason = rest, "no reason given"
		}

		digits := scoreNumberPattern.FindString(scoreText)
		if digits == "" {
			continue
		}
		score, err := strconv.ParseFloat(digits, 64)
		if err != nil {
			continue
		}
		if score < 0 {
			score = 0
		}
		if score > 100 {
			score = 100
		}

		out = append(out, JudgeScore{SignalName: signalName, Score: score, Reasoning: reason, JudgerID: judgerID})
	}
	return out
}
