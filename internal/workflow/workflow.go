package workflow

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"contesttrade/internal/contest"
	"contesttrade/internal/dataagent"
	"contesttrade/internal/eventbus"
	"contesttrade/internal/market"
	"contesttrade/internal/observability"
	"contesttrade/internal/research"
)

// Company runs the three-stage company workflow graph:
// runDataAgents -> runResearchAgents -> finalize. Research agents start
// only after every data agent has finished; finalize starts only after
// every research agent has finished (spec.md §4.1, §5 ordering guarantees).
type Company struct {
	cfg    Config
	bus    *eventbus.Bus
	market *market.Manager

	dataAgents     []NamedDataAgent
	researchAgents []NamedResearchAgent
	contest        contest.Runner
}

// NewCompany builds a Company. bus and contest.Runner may be nil: a nil bus
// simply means no one is listening, and a nil Runner means finalize only
// parses signals and skips scoring (StepResults.Contest carries just the
// parsed Signals).
func NewCompany(cfg Config, bus *eventbus.Bus, mkt *market.Manager, dataAgents []NamedDataAgent, researchAgents []NamedResearchAgent, runner contest.Runner) *Company {
	return &Company{
		cfg:            cfg.WithDefaults(),
		bus:            bus,
		market:         mkt,
		dataAgents:     dataAgents,
		researchAgents: researchAgents,
		contest:        runner,
	}
}

func (c *Company) publishStart(name string, tags ...string) {
	if c.bus != nil {
		c.bus.PublishChainStart(name, tags...)
	}
}

func (c *Company) publishEnd(name string, data any, tags ...string) {
	if c.bus != nil {
		c.bus.PublishChainEnd(name, data, tags...)
	}
}

// Run drives one end-to-end execution of the company workflow for
// input.TriggerTime.
func (c *Company) Run(ctx context.Context, input CompanyInput) (CompanyOutput, error) {
	log := observability.LoggerWithTrace(ctx)

	c.publishStart("company_workflow", "trigger:"+input.TriggerTime)

	dataResult := c.runDataAgents(ctx, input.TriggerTime)
	log.Info().Int("factors", len(dataResult.Factors)).Int("failed", len(dataResult.Failures)).Msg("data_team_finished")

	researchResult := c.runResearchAgents(ctx, input.TriggerTime, dataResult.Factors)
	log.Info().Int("reports", len(researchResult.Reports)).Int("failed", len(researchResult.Failures)).Msg("research_team_finished")

	contestResult, signals := c.finalize(ctx, input.TriggerTime, researchResult.Reports)

	out := CompanyOutput{
		TriggerTime:     input.TriggerTime,
		DataFactors:     dataResult.Factors,
		ResearchSignals: signals,
		StepResults: StepResults{
			DataTeam:     dataResult,
			ResearchTeam: researchResult,
			Contest:      contestResult,
		},
	}

	c.publishEnd("company_workflow", out, "trigger:"+input.TriggerTime)
	return out, nil
}

// runDataAgents fans out over every configured Data Analysis Agent with
// bounded concurrency (default: one goroutine per agent). A single agent's
// failure is recorded and does not abort the node.
func (c *Company) runDataAgents(ctx context.Context, triggerTime string) DataTeamResult {
	log := observability.LoggerWithTrace(ctx)
	c.publishStart("data_team", "stage:data")

	result := DataTeamResult{Failures: map[string]string{}}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	if c.cfg.DataAgentConcurrency > 0 {
		g.SetLimit(c.cfg.DataAgentConcurrency)
	}

	for _, na := range c.dataAgents {
		na := na
		g.Go(func() error {
			c.publishStart("data_agent:"+na.Name, "stage:data")
			out, err := na.Agent.Run(gctx, triggerTime)
			if err != nil {
				log.Error().Err(err).Str("agent", na.Name).Msg("data_agent_failed")
				mu.Lock()
				result.Failures[na.Name] = err.Error()
				mu.Unlock()
				c.publishEnd("data_agent:"+na.Name, err.Error(), "stage:data")
				return nil
			}
			mu.Lock()
			result.Factors = append(result.Factors, out)
			mu.Unlock()
			c.publishEnd("data_agent:"+na.Name, out, "stage:data")
			return nil
		})
	}
	_ = g.Wait() // stage goroutines never return an error; failures are captured above

	c.publishEnd("data_team", result, "stage:data")
	return result
}

// runResearchAgents fans out over every configured Research Agent, once
// every data agent has finished, building each agent's background
// information from the full set of factors plus the market's target-symbol
// context.
func (c *Company) runResearchAgents(ctx context.Context, triggerTime string, factors []dataagent.Output) ResearchTeamResult {
	log := observability.LoggerWithTrace(ctx)
	c.publishStart("research_team", "stage:research")

	researchFactors := make([]research.Factor, 0, len(factors))
	for _, f := range factors {
		researchFactors = append(researchFactors, research.Factor{
			AgentName:     f.AgentName,
			TriggerTime:   f.TriggerTime,
			ContextString: f.ContextString,
		})
	}

	targetMarketContext := ""
	if c.market != nil {
		targetMarketContext = c.market.GetTargetSymbolContext(triggerTime)
	}

	result := ResearchTeamResult{Reports: map[string]research.Output{}, Failures: map[string]string{}}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	if c.cfg.ResearchAgentConcurrency > 0 {
		g.SetLimit(c.cfg.ResearchAgentConcurrency)
	}

	for _, na := range c.researchAgents {
		na := na
		g.Go(func() error {
			c.publishStart("research_agent:"+na.Name, "stage:research")

			background, err := na.Agent.BuildBackgroundInformation(researchFactors, targetMarketContext)
			if err != nil {
				log.Error().Err(err).Str("agent", na.Name).Msg("research_agent_background_failed")
				mu.Lock()
				result.Failures[na.Name] = err.Error()
				mu.Unlock()
				c.publishEnd("research_agent:"+na.Name, err.Error(), "stage:research")
				return nil
			}

			out, err := na.Agent.Run(gctx, research.Input{BackgroundInformation: background, TriggerTime: triggerTime})
			if err != nil {
				log.Error().Err(err).Str("agent", na.Name).Msg("research_agent_failed")
				mu.Lock()
				result.Failures[na.Name] = err.Error()
				mu.Unlock()
				c.publishEnd("research_agent:"+na.Name, err.Error(), "stage:research")
				return nil
			}

			mu.Lock()
			result.Reports[na.Name] = out
			mu.Unlock()
			c.publishEnd("research_agent:"+na.Name, out, "stage:research")
			return nil
		})
	}
	_ = g.Wait()

	c.publishEnd("research_team", result, "stage:research")
	return result
}

// finalize parses every research report's signals and, if a contest.Runner
// is wired in, scores and weights them. A nil Runner (or an empty report
// set) skips scoring and returns a contest.Result holding only the parsed
// signals (no scores or weights), matching spec.md
// §4.4's "missing data -> artifact simply not produced" failure semantics.
func (c *Company) finalize(ctx context.Context, triggerTime string, reports map[string]research.Output) (contest.Result, []contest.ParsedSignal) {
	log := observability.LoggerWithTrace(ctx)
	c.publishStart("finalize", "stage:finalize")

	var signals []contest.ParsedSignal
	for agentName, r := range reports {
		agentSignals, err := contest.ParseSignals(agentName, r.FinalResult)
		if err != nil {
			log.Error().Err(err).Str("agent", agentName).Msg("finalize_parse_signals_failed")
			continue
		}
		signals = append(signals, agentSignals...)
	}

	c.fixSymbolCodes(ctx, signals)

	if c.contest == nil || len(signals) == 0 {
		result := contest.Result{Signals: signals}
		c.publishEnd("finalize", result, "stage:finalize")
		return result, signals
	}

	result, err := c.contest.Run(ctx, triggerTime, signals)
	if err != nil {
		log.Error().Err(err).Msg("finalize_contest_run_failed")
		result = contest.Result{Signals: signals}
	}

	c.publishEnd("finalize", result, "stage:finalize")
	return result, signals
}

// fixSymbolCodes resolves each parsed signal's (symbolName, symbolCode)
// against the configured market's symbol resolver in place, so a signal
// naming a company only by its local name (e.g. "贵州茅台" with no code)
// comes out of finalize with the vendor-facing code ("600519.SH") the
// contest subsystem's DailyReturn lookup needs. Mirrors the original's
// DataFormatConverter._parse_single_signal, which calls fix_symbol_code
// immediately after parsing symbol_name/symbol_code.
func (c *Company) fixSymbolCodes(ctx context.Context, signals []contest.ParsedSignal) {
	if c.market == nil {
		return
	}
	marketName, ok := c.market.PrimaryMarket()
	if !ok {
		return
	}
	log := observability.LoggerWithTrace(ctx)
	for i := range signals {
		name, code, err := c.market.FixSymbolCode(ctx, marketName, signals[i].SymbolName, signals[i].SymbolCode)
		if err != nil {
			log.Warn().Err(err).Str("agent", signals[i].AgentName).Msg("finalize_fix_symbol_code_failed")
			continue
		}
		signals[i].SymbolName = name
		signals[i].SymbolCode = code
	}
}
