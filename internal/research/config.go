// Package research implements the Research Agent: a bounded ReAct loop that
// starts from market/company background information, repeatedly selects and
// calls tools to gather evidence, then writes a final report once it judges
// it has enough information or exhausts its step budget.
//
// Grounded on original_source/contest_trade/agents/research_agent.py's
// init_data -> plan -> tool_selection/call_tool loop -> write_result graph.
package research

// Config configures one Research Agent instance, mirroring the original's
// ResearchAgentConfig.
type Config struct {
	AgentName      string
	Belief         string
	MaxReactStep   int
	OutputLanguage string

	// Plan, when true, runs a single planning step before the tool-selection
	// loop begins. Plan runs in the original's _plan node.
	Plan bool
	// React, when false, skips tool selection entirely: the agent writes its
	// final report straight from the background information it was given,
	// matching the original's "selected_tool={'tool_name':'final_report'}"
	// shortcut when react is disabled.
	React bool

	// MaxPromptChars bounds the estimated size of the write-result prompt;
	// once the prompt would exceed it, the agent is forced to finalize
	// regardless of tool state. A character count rather than a real
	// tokenizer pass, matching the original's count_tokens(...)>128000 check
	// in spirit without a full tokenization round-trip on every loop step.
	MaxPromptChars int
}

// WithDefaults fills in the original's defaults for anything left at its
// zero value. Plan and React default to true (the original defaults both to
// true when absent from config), so a zero-value Config must be constructed
// through NewConfig or have these fields set explicitly before use.
func (c Config) WithDefaults() Config {
	if c.AgentName == "" {
		c.AgentName = "research_agent"
	}
	if c.MaxReactStep <= 0 {
		c.MaxReactStep = 10
	}
	if c.OutputLanguage == "" {
		c.OutputLanguage = "English"
	}
	if c.MaxPromptChars <= 0 {
		c.MaxPromptChars = 128000
	}
	return c
}

// NewConfig builds a Config with Plan and React both enabled, matching the
// original's default behavior when those keys are absent from its YAML.
func NewConfig(agentName, belief string) Config {
	return Config{AgentName: agentName, Belief: belief, Plan: true, React: true}.WithDefaults()
}
