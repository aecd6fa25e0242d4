package dataagent

// Config configures one Data Analysis Agent instance. Defaults mirror
// original_source/contest_trade/agents/data_analysis_agent.py's
// DataAnalysisAgentConfig.
type Config struct {
	AgentName          string
	SourceList         []string
	BiasGoal           string
	MaxConcurrentTasks int
	CreditsPerBatch    int
	LLMCallsPerBatch   int
	ContentCutoffLength int
	MaxLLMContext      int
	FinalTargetTokens  int

	// Derived, computed by WithDefaults.
	BatchCount            int
	TitleSelectionPerBatch int
	SummaryTargetTokens    int
}

// WithDefaults fills in the original's defaults for anything left at its
// zero value, then computes the three derived parameters exactly as the
// original does:
//
//	batchCount             = creditsPerBatch / llmCallsPerBatch + 1
//	titleSelectionPerBatch = maxLLMContext / contentCutoffLength
//	summaryTargetTokens    = maxLLMContext / batchCount
func (c Config) WithDefaults() Config {
	if c.MaxConcurrentTasks <= 0 {
		c.MaxConcurrentTasks = 6
	}
	if c.CreditsPerBatch <= 0 {
		c.CreditsPerBatch = 10
	}
	if c.LLMCallsPerBatch <= 0 {
		c.LLMCallsPerBatch = 2
	}
	if c.ContentCutoffLength <= 0 {
		c.ContentCutoffLength = 2000
	}
	if c.MaxLLMContext <= 0 {
		c.MaxLLMContext = 28000
	}
	if c.FinalTargetTokens <= 0 {
		c.FinalTargetTokens = 4000
	}

	c.BatchCount = c.CreditsPerBatch/c.LLMCallsPerBatch + 1
	c.TitleSelectionPerBatch = c.MaxLLMContext / c.ContentCutoffLength
	c.SummaryTargetTokens = c.MaxLLMContext / c.BatchCount
	return c
}
