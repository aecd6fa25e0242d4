package workflow

import (
	"contesttrade/internal/contest"
	"contesttrade/internal/dataagent"
	"contesttrade/internal/eventbus"
	"contesttrade/internal/research"
)

// CompanyInput is what starts one run of the company workflow.
type CompanyInput struct {
	TriggerTime string
}

// DataTeamResult is runDataAgents' output: every factor that was produced,
// plus the per-agent failure reason for any agent that didn't produce one.
// A failed data agent does not abort the node (spec.md §4.1).
type DataTeamResult struct {
	Factors  []dataagent.Output
	Failures map[string]string
}

// ResearchTeamResult is runResearchAgents' output. Reports is keyed by
// agent name (rather than a plain slice) so finalize can attribute each
// parsed signal back to the agent that produced it.
type ResearchTeamResult struct {
	Reports  map[string]research.Output
	Failures map[string]string
}

// StepResults bundles each node's own output, matching spec.md §4.1's
// stepResults:{dataTeam, researchTeam, contest}.
type StepResults struct {
	DataTeam     DataTeamResult
	ResearchTeam ResearchTeamResult
	Contest      contest.Result
}

// CompanyOutput is the company workflow's terminal output (spec.md §4.1).
type CompanyOutput struct {
	TriggerTime     string
	DataFactors     []dataagent.Output
	ResearchSignals []contest.ParsedSignal
	StepResults     StepResults
	Events          []eventbus.Event
}

// NamedDataAgent pairs a Data Analysis Agent with the name it's addressed
// by in events, failure maps, and factor lookups.
type NamedDataAgent struct {
	Name  string
	Agent *dataagent.Agent
}

// NamedResearchAgent pairs a Research Agent with its addressable name.
type NamedResearchAgent struct {
	Name  string
	Agent *research.Agent
}
