package providers

import (
	"fmt"
	"net/http"
	"time"

	"contesttrade/internal/config"
	"contesttrade/internal/llmgateway"
	"contesttrade/internal/llmgateway/anthropic"
	openaillm "contesttrade/internal/llmgateway/openai"
)

// Build constructs an llmgateway.Provider for the given provider config,
// wrapped in the configured retry/backoff policy. "local" reuses the
// OpenAI-compatible client pointed at a self-hosted completions endpoint,
// matching how the original system lets llm/llmThinking/vlm each target a
// different backend without changing call sites.
func Build(cfg config.ProviderConfig, retry config.RetryConfig, httpClient *http.Client) (llmgateway.Provider, error) {
	var p llmgateway.Provider
	switch cfg.Provider {
	case "", "openai":
		p = openaillm.New(cfg.OpenAI, httpClient)
	case "local":
		oc := cfg.OpenAI
		oc.API = "completions"
		p = openaillm.New(oc, httpClient)
	case "anthropic":
		p = anthropic.New(cfg.Anthropic, httpClient)
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.Provider)
	}

	return llmgateway.WithRetry(p, llmgateway.RetryConfig{
		Timeout:    time.Duration(retry.TimeoutSeconds) * time.Second,
		MaxRetries: retry.MaxRetries,
		BaseDelay:  time.Duration(retry.RetryDelaySeconds) * time.Second,
	}), nil
}
