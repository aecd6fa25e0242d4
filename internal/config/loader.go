package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	yaml "gopkg.in/yaml.v3"
)

// yamlConfig holds the structured, list-valued settings that are awkward to
// express as flat environment variables. Flat settings are read from the
// environment directly in Load.
type yamlConfig struct {
	DataAgents          []DataAgentConfig     `yaml:"dataAgents"`
	ResearchAgentConfigs []ResearchAgentConfig `yaml:"researchAgentConfigs"`
	Contest             ContestConfig         `yaml:"researcherContestConfig"`
	Market              MarketConfig          `yaml:"marketConfig"`
}

// Load reads configuration from environment variables (optionally via a
// local .env, which is allowed to override the inherited shell environment)
// followed by an optional YAML file for structured settings. Defaults are
// applied only after both sources have been merged.
func Load() (Config, error) {
	_ = godotenv.Overload()

	cfg := Config{}
	cfg.Workdir = strings.TrimSpace(os.Getenv("WORKDIR"))
	cfg.LogPath = strings.TrimSpace(os.Getenv("LOG_PATH"))
	cfg.LogLevel = strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	cfg.SystemLanguage = strings.TrimSpace(os.Getenv("SYSTEM_LANGUAGE"))
	cfg.ArtifactDir = strings.TrimSpace(os.Getenv("ARTIFACT_DIR"))

	cfg.LLM = loadProvider("LLM")
	cfg.LLMThinking = loadProvider("LLM_THINKING")
	cfg.VLM = loadProvider("VLM")

	cfg.Retry.TimeoutSeconds = envInt("LLM_TIMEOUT_SECONDS", 60)
	cfg.Retry.MaxRetries = envInt("LLM_MAX_RETRIES", 3)
	cfg.Retry.RetryDelaySeconds = envInt("LLM_RETRY_DELAY_SECONDS", 20)

	cfg.Obs.ServiceName = firstNonEmpty(strings.TrimSpace(os.Getenv("OTEL_SERVICE_NAME")), "contesttrade")
	cfg.Obs.ServiceVersion = strings.TrimSpace(os.Getenv("SERVICE_VERSION"))
	cfg.Obs.Environment = firstNonEmpty(strings.TrimSpace(os.Getenv("ENVIRONMENT")), "dev")
	cfg.Obs.OTLP = strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))

	if err := loadYAML(&cfg); err != nil {
		return Config{}, err
	}

	if cfg.Workdir == "" {
		return Config{}, errors.New("WORKDIR is required (set in .env or environment)")
	}
	absWD, err := filepath.Abs(cfg.Workdir)
	if err != nil {
		return Config{}, fmt.Errorf("resolve WORKDIR: %w", err)
	}
	info, err := os.Stat(absWD)
	if err != nil {
		return Config{}, fmt.Errorf("stat WORKDIR: %w", err)
	}
	if !info.IsDir() {
		return Config{}, fmt.Errorf("WORKDIR must be a directory: %s", absWD)
	}
	cfg.Workdir = absWD

	if cfg.ArtifactDir == "" {
		cfg.ArtifactDir = filepath.Join(absWD, "artifacts")
	}

	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "openai"
	}
	if cfg.LLM.OpenAI.APIKey == "" && cfg.LLM.Anthropic.APIKey == "" {
		return Config{}, errors.New("at least one of OPENAI_API_KEY / ANTHROPIC_API_KEY is required")
	}
	if cfg.Contest.NumJudgers <= 0 {
		cfg.Contest.NumJudgers = 5
	}
	if cfg.Contest.WindowDays <= 0 {
		cfg.Contest.WindowDays = 5
	}

	return cfg, nil
}

func loadProvider(prefix string) ProviderConfig {
	var pc ProviderConfig
	pc.Provider = strings.ToLower(strings.TrimSpace(os.Getenv(prefix + "_PROVIDER")))
	pc.OpenAI.APIKey = strings.TrimSpace(os.Getenv(prefix + "_OPENAI_API_KEY"))
	pc.OpenAI.Model = strings.TrimSpace(os.Getenv(prefix + "_OPENAI_MODEL"))
	pc.OpenAI.BaseURL = strings.TrimSpace(os.Getenv(prefix + "_OPENAI_BASE_URL"))
	pc.OpenAI.API = firstNonEmpty(strings.TrimSpace(os.Getenv(prefix+"_OPENAI_API")), "completions")
	pc.Anthropic.APIKey = strings.TrimSpace(os.Getenv(prefix + "_ANTHROPIC_API_KEY"))
	pc.Anthropic.Model = strings.TrimSpace(os.Getenv(prefix + "_ANTHROPIC_MODEL"))
	pc.Anthropic.BaseURL = strings.TrimSpace(os.Getenv(prefix + "_ANTHROPIC_BASE_URL"))

	// Fall back to bare OPENAI_/ANTHROPIC_ vars for the primary "LLM" role so
	// a single-provider deployment doesn't need three copies of the same key.
	if prefix == "LLM" {
		pc.OpenAI.APIKey = firstNonEmpty(pc.OpenAI.APIKey, strings.TrimSpace(os.Getenv("OPENAI_API_KEY")))
		pc.OpenAI.Model = firstNonEmpty(pc.OpenAI.Model, strings.TrimSpace(os.Getenv("OPENAI_MODEL")))
		pc.Anthropic.APIKey = firstNonEmpty(pc.Anthropic.APIKey, strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY")))
		pc.Anthropic.Model = firstNonEmpty(pc.Anthropic.Model, strings.TrimSpace(os.Getenv("ANTHROPIC_MODEL")))
	}
	return pc
}

// loadYAML populates the structured parts of cfg from a YAML file. The path
// may be given via CONFIG_FILE; otherwise config.yaml/config.yml in the
// current directory are tried. Absence of a file is not an error — the
// structured settings simply stay empty.
func loadYAML(cfg *Config) error {
	var paths []string
	if p := strings.TrimSpace(os.Getenv("CONFIG_FILE")); p != "" {
		paths = append(paths, p)
	}
	paths = append(paths, "config.yaml", "config.yml")

	var data []byte
	for _, p := range paths {
		b, err := os.ReadFile(p)
		if err == nil {
			data = b
			break
		}
		if !os.IsNotExist(err) {
			return fmt.Errorf("read %s: %w", p, err)
		}
	}
	if len(data) == 0 {
		return nil
	}

	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return fmt.Errorf("parse yaml config: %w", err)
	}
	cfg.DataAgents = yc.DataAgents
	cfg.ResearchAgentConfigs = yc.ResearchAgentConfigs
	if yc.Contest.NumJudgers > 0 || yc.Contest.WindowDays > 0 || yc.Contest.JudgerConfig != "" {
		cfg.Contest = yc.Contest
	}
	cfg.Market = yc.Market
	return nil
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
