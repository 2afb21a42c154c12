package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/ktsujino/zenn-assist/errors"
	"gopkg.in/yaml.v3"
)

const configDir = ".zenn-assist"

// Config holds all application configuration.
type Config struct {
	LLMClient     string `yaml:"llm"`            // anthropic | bedrock | openai | gemini
	SuggestModel  string `yaml:"suggest_model"`  // model driving the suggestion agent
	SearchModel   string `yaml:"search_model"`   // model driving the web-search sub-agent
	GenerateModel string `yaml:"generate_model"` // model writing full articles
	MaxTokens     int    `yaml:"max_tokens"`

	MaxTurns      int `yaml:"max_turns"`       // upper bound on suggestion loop iterations
	SearchMaxUses int `yaml:"search_max_uses"` // web search uses allowed per sub-agent call

	Port           string `yaml:"port"`
	DBPath         string `yaml:"db_path"`
	ArticlesDir    string `yaml:"articles_dir"`
	ModelTimeoutS  int    `yaml:"model_timeout_seconds"`   // per model call
	RequestTimeout int    `yaml:"request_timeout_seconds"` // whole HTTP request
}

// LoadConfig loads configuration from the user's home directory and the
// current working directory, with the latter taking precedence. Deployment
// knobs may still be overridden through the environment.
func LoadConfig() (*Config, error) {
	cfg := defaults()

	home, err := os.UserHomeDir()
	if err == nil {
		userConfigPath := filepath.Join(home, configDir, "config.yaml")
		if _, err := os.Stat(userConfigPath); err == nil {
			if err := loadFromFile(userConfigPath, cfg); err != nil {
				return nil, errors.Wrapf(err, "error loading user config")
			}
		}
	}

	wd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrapf(err, "could not get working directory")
	}
	projectConfigPath := filepath.Join(wd, configDir, "config.yaml")
	if _, err := os.Stat(projectConfigPath); err == nil {
		if err := loadFromFile(projectConfigPath, cfg); err != nil {
			return nil, errors.Wrapf(err, "error loading project config")
		}
	}

	applyEnv(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		LLMClient:      "anthropic",
		SuggestModel:   "claude-sonnet-4-5",
		SearchModel:    "claude-3-5-haiku-latest",
		GenerateModel:  "gpt-5-nano",
		MaxTokens:      1000,
		MaxTurns:       10,
		SearchMaxUses:  5,
		Port:           "8080",
		DBPath:         "./data/zenn-assist.db",
		ArticlesDir:    "./articles",
		ModelTimeoutS:  120,
		RequestTimeout: 600,
	}
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	// Unmarshal overwrites fields present in the YAML, which gives a simple
	// merge where project-level config replaces user-level.
	return yaml.Unmarshal(data, cfg)
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("ARTICLES_DIR"); v != "" {
		cfg.ArticlesDir = v
	}
}

func (c *Config) validate() error {
	if c.MaxTurns <= 0 {
		return errors.New("max_turns must be > 0")
	}
	if c.MaxTokens <= 0 {
		return errors.New("max_tokens must be > 0")
	}
	if c.Port == "" {
		return errors.New("port cannot be empty")
	}
	if c.DBPath == "" {
		return errors.New("db_path cannot be empty")
	}
	return nil
}

// ModelTimeout returns the per-model-call deadline.
func (c *Config) ModelTimeout() time.Duration {
	return time.Duration(c.ModelTimeoutS) * time.Second
}
