// Package config loads the pipeline's configuration from environment
// variables (optionally via a local .env) and an optional YAML file for
// structured, list-valued settings that are awkward to express as flat env
// vars (the per-data-agent list, research-agent tool list, market config).
package config

// OpenAIConfig configures an OpenAI-compatible provider (also used for
// self-hosted "local" backends via the completions API).
type OpenAIConfig struct {
	APIKey      string
	Model       string
	BaseURL     string
	API         string // "completions" (default) or "responses"
	ExtraParams map[string]any
	LogPayloads bool
}

// AnthropicPromptCacheConfig controls Anthropic prompt-caching scope.
type AnthropicPromptCacheConfig struct {
	Enabled       bool
	CacheSystem   bool
	CacheTools    bool
	CacheMessages bool
}

// AnthropicConfig configures the Anthropic provider.
type AnthropicConfig struct {
	APIKey      string
	Model       string
	BaseURL     string
	ExtraParams map[string]any
	PromptCache AnthropicPromptCacheConfig
}

// ProviderConfig selects and configures one LLM backend. The pipeline wires
// up to three of these (llm, llmThinking, vlm per spec.md §6), each
// independently pointed at whichever provider/model fits that role.
type ProviderConfig struct {
	Provider  string // "openai" | "anthropic" | "local"
	OpenAI    OpenAIConfig
	Anthropic AnthropicConfig
}

// RetryConfig controls the LLM gateway's retry/backoff behavior (§6 of
// SPEC_FULL.md — default (60s, 3 retries, 20s delay)).
type RetryConfig struct {
	TimeoutSeconds  int
	MaxRetries      int
	RetryDelaySeconds int
}

// DataAgentConfig is one entry of spec.md §6's `dataAgents` list.
type DataAgentConfig struct {
	AgentName          string   `yaml:"agentName"`
	DataSourceList     []string `yaml:"dataSourceList"`
	FinalTargetTokens  int      `yaml:"finalTargetTokens"`
	BiasGoal           string   `yaml:"biasGoal"`
	MaxConcurrentTasks int      `yaml:"maxConcurrentTasks"`
	CreditsPerBatch    int      `yaml:"creditsPerBatch"`
	LLMCallsPerBatch   int      `yaml:"llmCallsPerBatch"`
	ContentCutoffLength int     `yaml:"contentCutoffLength"`
	MaxLLMContext      int      `yaml:"maxLLMContext"`
}

// ResearchAgentConfig is spec.md §6's `researchAgentConfig`. Plan and React
// are pointers so a config.yaml entry that omits them is distinguishable
// from one that explicitly disables them: both default to true, matching
// the original's ResearchAgent defaults, via PlanOrDefault/ReactOrDefault.
type ResearchAgentConfig struct {
	AgentName      string   `yaml:"agentName"`
	MaxReactStep   int      `yaml:"maxReactStep"`
	Tools          []string `yaml:"tools"`
	OutputLanguage string   `yaml:"outputLanguage"`
	Plan           *bool    `yaml:"plan"`
	React          *bool    `yaml:"react"`
	BeliefListPath string   `yaml:"beliefListPath"`
}

// PlanOrDefault reports whether the planning step should run: true unless
// the config explicitly set plan: false.
func (r ResearchAgentConfig) PlanOrDefault() bool {
	return r.Plan == nil || *r.Plan
}

// ReactOrDefault reports whether the ReAct tool-selection loop should run:
// true unless the config explicitly set react: false.
func (r ResearchAgentConfig) ReactOrDefault() bool {
	return r.React == nil || *r.React
}

// ContestConfig is spec.md §6's `researcherContestConfig`.
type ContestConfig struct {
	WindowDays   int    `yaml:"windowM"`
	NumJudgers   int    `yaml:"numJudgers"`
	JudgerConfig string `yaml:"judgerConfig"`
}

// MarketConfig is spec.md §6's `marketConfig`.
type MarketConfig struct {
	TargetMarkets []string            `yaml:"targetMarkets"`
	TradingCosts  float64             `yaml:"tradingCosts"`
	CustomSymbols map[string][]string `yaml:"customSymbols"`
}

// Config is the pipeline's fully-resolved configuration.
type Config struct {
	Workdir      string
	LogPath      string
	LogLevel     string
	SystemLanguage string

	LLM         ProviderConfig
	LLMThinking ProviderConfig
	VLM         ProviderConfig
	Retry       RetryConfig

	DataAgents          []DataAgentConfig
	ResearchAgentConfigs []ResearchAgentConfig
	Contest             ContestConfig
	Market              MarketConfig

	ArtifactDir string

	Obs ObsConfig
}

// ObsConfig configures optional OpenTelemetry export.
type ObsConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	OTLP           string
}
