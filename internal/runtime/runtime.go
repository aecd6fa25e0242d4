// Package runtime wires every other package's constructors together into a
// single handle (spec.md §9's redesign guidance: thread collaborators
// through constructors instead of reaching for package-level globals), then
// exposes one method that builds a ready-to-run Company workflow from
// resolved configuration.
package runtime

import (
	"fmt"
	"path/filepath"

	"contesttrade/internal/artifact"
	"contesttrade/internal/config"
	"contesttrade/internal/contest"
	"contesttrade/internal/dataagent"
	"contesttrade/internal/datasource"
	"contesttrade/internal/eventbus"
	"contesttrade/internal/llmgateway"
	"contesttrade/internal/llmgateway/providers"
	"contesttrade/internal/market"
	"contesttrade/internal/observability"
	"contesttrade/internal/research"
	"contesttrade/internal/tools"
	"contesttrade/internal/toolkit"
	"contesttrade/internal/workflow"
)

// Runtime holds every long-lived collaborator the pipeline needs, built
// once at process startup from a resolved config.Config.
type Runtime struct {
	Cfg config.Config

	LLM         llmgateway.Provider
	LLMThinking llmgateway.Provider
	VLM         llmgateway.Provider

	Artifacts *artifact.Store
	Sources   *datasource.Registry
	Beliefs   *research.BeliefStore
	Bus       *eventbus.Bus
	Market    *market.Manager // nil when no market.Calendar/PriceSource is wired in
}

// New builds a Runtime from cfg. calendar/prices/resolvers may be nil: a
// deployment with no market data feed configured still runs the
// data-agent/research-agent stages, it just can't price signals (the
// Contest subsystem degrades per spec.md §4.4 when Market is nil).
func New(cfg config.Config, calendar market.Calendar, prices market.PriceSource, resolvers map[string]market.SymbolResolver) (*Runtime, error) {
	httpClient := observability.NewHTTPClient(nil)

	llm, err := providers.Build(cfg.LLM, cfg.Retry, httpClient)
	if err != nil {
		return nil, fmt.Errorf("build LLM provider: %w", err)
	}
	llmThinking := llm
	if cfg.LLMThinking.Provider != "" {
		llmThinking, err = providers.Build(cfg.LLMThinking, cfg.Retry, httpClient)
		if err != nil {
			return nil, fmt.Errorf("build LLM_THINKING provider: %w", err)
		}
	}
	var vlm llmgateway.Provider
	if cfg.VLM.Provider != "" {
		vlm, err = providers.Build(cfg.VLM, cfg.Retry, httpClient)
		if err != nil {
			return nil, fmt.Errorf("build VLM provider: %w", err)
		}
	}

	artifacts, err := artifact.NewStore(cfg.ArtifactDir)
	if err != nil {
		return nil, fmt.Errorf("build artifact store: %w", err)
	}

	beliefs, err := research.NewBeliefStore(filepath.Join(cfg.Workdir, "beliefs"))
	if err != nil {
		return nil, fmt.Errorf("build belief store: %w", err)
	}

	var mgr *market.Manager
	if calendar != nil && prices != nil {
		mgr, err = market.NewManager(cfg.Market, calendar, prices, resolvers)
		if err != nil {
			return nil, fmt.Errorf("build market manager: %w", err)
		}
	}

	return &Runtime{
		Cfg:         cfg,
		LLM:         llm,
		LLMThinking: llmThinking,
		VLM:         vlm,
		Artifacts:   artifacts,
		Sources:     datasource.NewRegistry(),
		Beliefs:     beliefs,
		Bus:         eventbus.NewBus(),
		Market:      mgr,
	}, nil
}

// RegisterSource wires a named data source in, caching its results under
// the runtime's workdir.
func (r *Runtime) RegisterSource(src datasource.Source) error {
	cache, err := datasource.NewCache(filepath.Join(r.Cfg.Workdir, "datasource_cache"))
	if err != nil {
		return fmt.Errorf("build datasource cache: %w", err)
	}
	r.Sources.Register(src, cache)
	return nil
}

// buildToolRegistry assembles the toolkit.Registry every Research Agent
// shares: currently just PriceTool when a Market is wired in (spec.md's
// other original tools are vendor-specific and left for deployment-time
// registration via the same toolkit.Tool interface).
func (r *Runtime) buildToolRegistry() toolkit.Registry {
	reg := toolkit.NewRegistry()
	if r.Market != nil {
		reg.Register(tools.NewPriceTool(r.Market))
	}
	return reg
}

// BuildCompany assembles a workflow.Company from the runtime's
// collaborators plus the resolved per-agent configuration
// (config.Config.DataAgents/ResearchAgentConfigs), using beliefEntries for
// each research agent's (name, belief) pair (spec.md §6's belief-list
// roster) and runner as the Contest subsystem's Runner (nil is a valid,
// best-effort degrade per internal/workflow's finalize).
func (r *Runtime) BuildCompany(wfCfg workflow.Config, beliefEntries []research.BeliefEntry, runner contest.Runner) (*workflow.Company, error) {
	dataAgents := make([]workflow.NamedDataAgent, 0, len(r.Cfg.DataAgents))
	for _, dc := range r.Cfg.DataAgents {
		sources := make([]datasource.Source, 0, len(dc.DataSourceList))
		for _, name := range dc.DataSourceList {
			src, ok := r.Sources.Get(name)
			if !ok {
				return nil, fmt.Errorf("data agent %s references unknown data source %s", dc.AgentName, name)
			}
			sources = append(sources, src)
		}
		cfg := dataagent.Config{
			AgentName:           dc.AgentName,
			SourceList:          dc.DataSourceList,
			BiasGoal:            dc.BiasGoal,
			MaxConcurrentTasks:  dc.MaxConcurrentTasks,
			CreditsPerBatch:     dc.CreditsPerBatch,
			LLMCallsPerBatch:    dc.LLMCallsPerBatch,
			ContentCutoffLength: dc.ContentCutoffLength,
			MaxLLMContext:       dc.MaxLLMContext,
			FinalTargetTokens:   dc.FinalTargetTokens,
		}.WithDefaults()
		agent := dataagent.NewAgent(cfg, sources, r.LLM, r.Cfg.LLM.OpenAI.Model, r.Artifacts, r.Cfg.SystemLanguage)
		dataAgents = append(dataAgents, workflow.NamedDataAgent{Name: dc.AgentName, Agent: agent})
	}

	beliefByName := make(map[string]string, len(beliefEntries))
	for _, e := range beliefEntries {
		beliefByName[e.Name] = e.Belief
	}

	toolReg := r.buildToolRegistry()

	researchAgents := make([]workflow.NamedResearchAgent, 0, len(r.Cfg.ResearchAgentConfigs))
	for _, rc := range r.Cfg.ResearchAgentConfigs {
		cfg := research.Config{
			AgentName:      rc.AgentName,
			Belief:         beliefByName[rc.AgentName],
			MaxReactStep:   rc.MaxReactStep,
			OutputLanguage: rc.OutputLanguage,
			Plan:           rc.PlanOrDefault(),
			React:          rc.ReactOrDefault(),
		}.WithDefaults()
		agent := research.NewAgent(cfg, toolReg, r.LLM, r.Cfg.LLM.OpenAI.Model, r.Cfg.LLMThinking.OpenAI.Model, r.Artifacts, r.Beliefs)
		researchAgents = append(researchAgents, workflow.NamedResearchAgent{Name: rc.AgentName, Agent: agent})
	}

	return workflow.NewCompany(wfCfg, r.Bus, r.Market, dataAgents, researchAgents, runner), nil
}

// BuildContestRunner assembles the DefaultRunner from the runtime's
// collaborators. predictor may be nil (no regression models configured);
// Market must be non-nil, since judging and weighting both need it for
// historical returns.
func (r *Runtime) BuildContestRunner(predictor *contest.Predictor) (*contest.DefaultRunner, error) {
	if r.Market == nil {
		return nil, fmt.Errorf("contest runner requires a market.Manager")
	}
	history := contest.NewHistoryReader(r.Artifacts, r.Market, r.primaryMarketName(), r.Cfg.Contest.WindowDays)
	judges := contest.NewJudgeEnsemble(contest.JudgeEnsembleConfig{
		NumJudgers: r.Cfg.Contest.NumJudgers,
		WindowDays: r.Cfg.Contest.WindowDays,
	}, r.LLM, r.Cfg.LLM.OpenAI.Model)
	return contest.NewDefaultRunner(judges, history, predictor, r.Artifacts), nil
}

func (r *Runtime) primaryMarketName() string {
	if len(r.Cfg.Market.TargetMarkets) == 0 {
		return ""
	}
	return r.Cfg.Market.TargetMarkets[0]
}
