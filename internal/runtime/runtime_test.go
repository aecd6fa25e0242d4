package runtime

import (
	"context"
	"testing"
	"time"

	"contesttrade/internal/config"
	"contesttrade/internal/market"
	"contesttrade/internal/research"
	"contesttrade/internal/workflow"
)

type fakeCalendar struct{}

func (fakeCalendar) IsTradingDay(context.Context, string, string) (bool, error) { return true, nil }

func (fakeCalendar) OffsetTradingDate(_ context.Context, _, date string, dateDiff int) (string, error) {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return "", err
	}
	return t.AddDate(0, 0, dateDiff).Format("2006-01-02"), nil
}

type fakePriceSource struct{}

func (fakePriceSource) Quote(_ context.Context, _, _, _ string) (market.Quote, error) {
	return market.Quote{Open: 100, High: 105, Low: 95, Close: 102}, nil
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		Workdir:        t.TempDir(),
		ArtifactDir:    t.TempDir(),
		SystemLanguage: "English",
		LLM: config.ProviderConfig{
			Provider: "openai",
			OpenAI:   config.OpenAIConfig{APIKey: "test-key", Model: "test-model"},
		},
		Contest: config.ContestConfig{NumJudgers: 3, WindowDays: 5},
		Market:  config.MarketConfig{TargetMarkets: []string{"CN-Stock"}},
	}
}

func TestNewBuildsRuntimeWithoutMarket(t *testing.T) {
	rt, err := New(testConfig(t), nil, nil, nil)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if rt.Market != nil {
		t.Fatalf("expected a nil Market when no calendar/price source is supplied")
	}
	if rt.LLM == nil {
		t.Fatalf("expected a non-nil LLM provider")
	}
}

func TestNewBuildsRuntimeWithMarket(t *testing.T) {
	rt, err := New(testConfig(t), fakeCalendar{}, fakePriceSource{}, nil)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if rt.Market == nil {
		t.Fatalf("expected a non-nil Market when a calendar/price source is supplied")
	}
}

func TestBuildContestRunnerRequiresMarket(t *testing.T) {
	rt, err := New(testConfig(t), nil, nil, nil)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if _, err := rt.BuildContestRunner(nil); err == nil {
		t.Fatalf("expected an error building a contest runner without a market")
	}
}

func TestBuildContestRunnerSucceedsWithMarket(t *testing.T) {
	rt, err := New(testConfig(t), fakeCalendar{}, fakePriceSource{}, nil)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	runner, err := rt.BuildContestRunner(nil)
	if err != nil {
		t.Fatalf("BuildContestRunner returned error: %v", err)
	}
	if runner == nil {
		t.Fatalf("expected a non-nil runner")
	}
}

func TestBuildCompanyAssemblesAgentsFromConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.DataAgents = []config.DataAgentConfig{{AgentName: "news_agent"}}
	cfg.ResearchAgentConfigs = []config.ResearchAgentConfig{{AgentName: "growth_agent"}}

	rt, err := New(cfg, fakeCalendar{}, fakePriceSource{}, nil)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	beliefs := []research.BeliefEntry{{Name: "growth_agent", Belief: "favor growth names"}}
	company, err := rt.BuildCompany(workflow.Config{}.WithDefaults(), beliefs, nil)
	if err != nil {
		t.Fatalf("BuildCompany returned error: %v", err)
	}
	if company == nil {
		t.Fatalf("expected a non-nil company")
	}
}

func TestBuildCompanyRejectsUnknownDataSource(t *testing.T) {
	cfg := testConfig(t)
	cfg.DataAgents = []config.DataAgentConfig{{AgentName: "news_agent", DataSourceList: []string{"missing_source"}}}

	rt, err := New(cfg, nil, nil, nil)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	if _, err := rt.BuildCompany(workflow.Config{}.WithDefaults(), nil, nil); err == nil {
		t.Fatalf("expected an error referencing an unregistered data source")
	}
}
