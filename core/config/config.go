package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/tristendillon/diagify/core/logger"
	"gopkg.in/yaml.v3"
)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

type Config struct {
	Provider   Provider   `yaml:"provider" toml:"provider"`
	Generation Stage      `yaml:"generation" toml:"generation"`
	Correction Correction `yaml:"correction" toml:"correction"`
	Catalog    Catalog    `yaml:"catalog" toml:"catalog"`
	Validation Validation `yaml:"validation" toml:"validation"`
	Execution  Execution  `yaml:"execution" toml:"execution"`
	State      State      `yaml:"state" toml:"state"`
	Storage    Storage    `yaml:"storage" toml:"storage"`
	Watch      Watch      `yaml:"watch" toml:"watch"`
}

type Provider struct {
	Name      string `yaml:"name" toml:"name"`
	BaseURL   string `yaml:"base_url" toml:"base_url"`
	APIKeyEnv string `yaml:"api_key_env" toml:"api_key_env"`
}

type Stage struct {
	Model       string  `yaml:"model" toml:"model"`
	Temperature float64 `yaml:"temperature" toml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens" toml:"max_tokens"`
}

type Correction struct {
	Stage       `yaml:",inline"`
	MaxAttempts int `yaml:"max_attempts" toml:"max_attempts"`
}

type Catalog struct {
	Package string `yaml:"package" toml:"package"`
	Root    string `yaml:"root" toml:"root"`
	Mode    string `yaml:"mode" toml:"mode"`
	Python  string `yaml:"python" toml:"python"`
	Workers int    `yaml:"workers" toml:"workers"`
	Cache   bool   `yaml:"cache" toml:"cache"`
}

type Validation struct {
	Cutoff          float64  `yaml:"cutoff" toml:"cutoff"`
	MaxSuggestions  int      `yaml:"max_suggestions" toml:"max_suggestions"`
	AllowedImports  []string `yaml:"allowed_imports" toml:"allowed_imports"`
	FailOnUnfixable bool     `yaml:"fail_on_unfixable" toml:"fail_on_unfixable"`
}

type Execution struct {
	Interpreter    string `yaml:"interpreter" toml:"interpreter"`
	Isolate        bool   `yaml:"isolate" toml:"isolate"`
	ImagePattern   string `yaml:"image_pattern" toml:"image_pattern"`
	TimeoutSeconds int    `yaml:"timeout_seconds" toml:"timeout_seconds"`
	MaxMemoryMB    int    `yaml:"max_memory_mb" toml:"max_memory_mb"`
	MaxCPUSeconds  int    `yaml:"max_cpu_seconds" toml:"max_cpu_seconds"`
}

type State struct {
	Dir string `yaml:"dir" toml:"dir"`
}

type Storage struct {
	Region   string `yaml:"region" toml:"region"`
	KMSKeyID string `yaml:"kms_key_id" toml:"kms_key_id"`
}

type Watch struct {
	DebounceMillis    int     `yaml:"debounce_ms" toml:"debounce_ms"`
	RequestsPerMinute float64 `yaml:"requests_per_minute" toml:"requests_per_minute"`
}

var FileNames = []string{"diagify.yaml", "diagify.yml", "diagify.toml"}

func Default() *Config {
	return &Config{
		Provider: Provider{
			Name: ProviderOpenAI,
		},
		Generation: Stage{
			Model:       "gpt-4o-mini",
			Temperature: 0.5,
			MaxTokens:   1084,
		},
		Correction: Correction{
			Stage: Stage{
				Model:       "gpt-4o",
				Temperature: 0.3,
				MaxTokens:   1084,
			},
			MaxAttempts: 2,
		},
		Catalog: Catalog{
			Package: "diagrams",
			Mode:    "introspect",
			Python:  "python3",
			Workers: 8,
			Cache:   true,
		},
		Validation: Validation{
			Cutoff:         0.6,
			MaxSuggestions: 10,
		},
		Execution: Execution{
			Interpreter:  "python3",
			Isolate:      true,
			ImagePattern: "*.png",
		},
		State: State{
			Dir: defaultStateDir(),
		},
		Watch: Watch{
			DebounceMillis:    500,
			RequestsPerMinute: 6,
		},
	}
}

func defaultStateDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "diagify")
	}
	return ".diagify"
}

// Load reads the first config file found in the working directory, or path
// when it is not empty, on top of Default and applies env overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("cannot determine working dir: %w", err)
		}
		path = find(wd)
	}

	cfg := Default()
	if path == "" {
		logger.Debug("No config file found, using default config")
	} else {
		if err := decodeFile(path, cfg); err != nil {
			return nil, err
		}
		logger.Debug("Config file found: %s", path)
	}

	applyEnv(cfg)
	applyProviderDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger.Debug("Config: %+v", *cfg)
	return cfg, nil
}

func find(dir string) string {
	for _, name := range FileNames {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return fmt.Errorf("failed to parse toml: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to parse yaml: %w", err)
		}
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("DIAGIFY_PROVIDER")); v != "" {
		cfg.Provider.Name = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv("DIAGIFY_BASE_URL")); v != "" {
		cfg.Provider.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("DIAGIFY_MODEL")); v != "" {
		cfg.Generation.Model = v
	}
	if v := strings.TrimSpace(os.Getenv("DIAGIFY_CORRECTION_MODEL")); v != "" {
		cfg.Correction.Model = v
	}
	if v := strings.TrimSpace(os.Getenv("DIAGIFY_PYTHON")); v != "" {
		cfg.Catalog.Python = v
		cfg.Execution.Interpreter = v
	}
	if v := strings.TrimSpace(os.Getenv("DIAGIFY_STATE_DIR")); v != "" {
		cfg.State.Dir = v
	}
	if v := strings.TrimSpace(os.Getenv("DIAGIFY_TIMEOUT_SECONDS")); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			cfg.Execution.TimeoutSeconds = parsed
		}
	}
}

// applyProviderDefaults swaps the OpenAI default models for the selected
// provider's when the user did not pick models explicitly.
func applyProviderDefaults(cfg *Config) {
	def := Default()
	gen, corr := cfg.Generation.Model == def.Generation.Model, cfg.Correction.Model == def.Correction.Model
	switch cfg.Provider.Name {
	case ProviderAnthropic:
		if gen {
			cfg.Generation.Model = "claude-3-5-haiku-latest"
		}
		if corr {
			cfg.Correction.Model = "claude-3-7-sonnet-latest"
		}
	case ProviderGemini:
		if gen {
			cfg.Generation.Model = "gemini-2.0-flash"
		}
		if corr {
			cfg.Correction.Model = "gemini-2.5-pro"
		}
	}
	if cfg.Provider.APIKeyEnv == "" {
		cfg.Provider.APIKeyEnv = DefaultAPIKeyEnv(cfg.Provider.Name)
	}
}

func DefaultAPIKeyEnv(provider string) string {
	switch provider {
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case ProviderGemini:
		return "GEMINI_API_KEY"
	default:
		return "OPENAI_API_KEY"
	}
}

// Write serializes cfg to path, choosing the format by extension.
func Write(cfg *Config, path string) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		var b strings.Builder
		err = toml.NewEncoder(&b).Encode(cfg)
		data = []byte(b.String())
	default:
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return nil
}
