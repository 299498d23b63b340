package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
app:
  name: catalyst
  workspace: /tmp/ws
  prompts: /tmp/prompts
providers:
  openai:
    api_key: test-key
    model: gpt-4o
    enabled: true
memory:
  path: /tmp/test.db
planning:
  max_steps: 7
  reevaluation: true
  llm_retries: 3
`)

	cfg := LoadConfig(path)

	if cfg.App.Name != "catalyst" || cfg.App.Workspace != "/tmp/ws" {
		t.Errorf("app config not loaded: %+v", cfg.App)
	}
	if cfg.Memory.Path != "/tmp/test.db" {
		t.Errorf("memory path not loaded: %s", cfg.Memory.Path)
	}
	if cfg.Planning.MaxSteps != 7 || !cfg.Planning.Reevaluation || cfg.Planning.LLMRetries != 3 {
		t.Errorf("planning config not loaded: %+v", cfg.Planning)
	}

	name, provider := cfg.GetDefaultProvider()
	if name != "openai" || provider.APIKey != "test-key" || provider.Model != "gpt-4o" {
		t.Errorf("default provider wrong: %s %+v", name, provider)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeConfig(t, `
app:
  name: catalyst
`)

	cfg := LoadConfig(path)

	if cfg.App.Workspace != "workspace" {
		t.Errorf("workspace default not applied: %s", cfg.App.Workspace)
	}
	if cfg.App.Prompts != "./prompts" {
		t.Errorf("prompts default not applied: %s", cfg.App.Prompts)
	}
	if cfg.Memory.Path != "memory.db" {
		t.Errorf("memory default not applied: %s", cfg.Memory.Path)
	}
	if cfg.Planning.MaxSteps != 10 {
		t.Errorf("max steps default not applied: %d", cfg.Planning.MaxSteps)
	}
}

func TestGetDefaultProvider_NoneEnabled(t *testing.T) {
	path := writeConfig(t, `
providers:
  openai:
    api_key: k
    enabled: false
`)

	cfg := LoadConfig(path)
	if name, _ := cfg.GetDefaultProvider(); name != "" {
		t.Errorf("expected no provider, got %s", name)
	}
}
