package config

import (
	"log"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App       AppConfig                 `yaml:"app"`
	Providers map[string]ProviderConfig `yaml:"providers"`
	Memory    MemoryConfig              `yaml:"memory"`
	Planning  PlanningConfig            `yaml:"planning"`
}

type AppConfig struct {
	Name      string `yaml:"name"`
	Workspace string `yaml:"workspace"`
	Prompts   string `yaml:"prompts"`
}

type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url,omitempty"`
	Enabled bool   `yaml:"enabled"`
}

type MemoryConfig struct {
	Path string `yaml:"path"`
}

type PlanningConfig struct {
	MaxSteps     int  `yaml:"max_steps"`
	Reevaluation bool `yaml:"reevaluation"`
	LLMRetries   int  `yaml:"llm_retries"`
}

func LoadConfig(path string) *Config {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("failed to open config file: %v", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		log.Fatalf("failed to decode config file: %v", err)
	}

	applyDefaults(&cfg)
	return &cfg
}

func applyDefaults(cfg *Config) {
	if cfg.App.Workspace == "" {
		cfg.App.Workspace = "workspace"
	}
	if cfg.App.Prompts == "" {
		cfg.App.Prompts = "./prompts"
	}
	if cfg.Memory.Path == "" {
		cfg.Memory.Path = "memory.db"
	}
	if cfg.Planning.MaxSteps <= 0 {
		cfg.Planning.MaxSteps = 10
	}
}

// GetDefaultProvider returns the first enabled provider
func (c *Config) GetDefaultProvider() (string, ProviderConfig) {
	for name, p := range c.Providers {
		if p.Enabled {
			return name, p
		}
	}
	return "", ProviderConfig{}
}
