package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/catalyst-ai/catalyst/internal/agent"
	"github.com/catalyst-ai/catalyst/internal/engine"
	"github.com/catalyst-ai/catalyst/internal/gateway"
	"github.com/catalyst-ai/catalyst/internal/governance"
	"github.com/catalyst-ai/catalyst/internal/llm"
	"github.com/catalyst-ai/catalyst/internal/memory"
	"github.com/catalyst-ai/catalyst/internal/observability"
	"github.com/catalyst-ai/catalyst/internal/planner"
	"github.com/catalyst-ai/catalyst/internal/tools"
	"github.com/catalyst-ai/catalyst/pkg/config"

	"github.com/google/uuid"
)

func main() {
	observability.PrintBanner()
	observability.InitializeTerminal()

	// Route all log output through the terminal mutex so it never
	// interrupts the dashboard's cursor save/restore sequence.
	log.SetOutput(observability.NewTermWriter())

	configPath := "config.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}
	cfg := config.LoadConfig(configPath)

	logger := observability.NewLogger()
	gov := governance.NewSafetyPolicyEngine()

	// Initialize Tools
	registry := tools.NewRegistry(tools.WithPolicy(gov), tools.WithLogger(logger))

	registry.Register(tools.NewCalculatorTool())
	registry.Register(tools.NewFilesystemTool(cfg.App.Workspace))
	registry.Register(tools.NewDownloadTool(cfg.App.Workspace))
	registry.Register(tools.NewScraperTool())
	registry.Register(tools.NewBrowserTool())
	registry.Register(tools.NewShellTool())

	searchTool, err := tools.NewSearchTool()
	if err != nil {
		log.Printf("Warning: Failed to initialize search tool: %v", err)
	} else {
		registry.Register(searchTool)
	}

	store, err := memory.NewStore(cfg.Memory.Path)
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	// Initialize LLM (using default enabled provider)
	pName, pCfg := cfg.GetDefaultProvider()
	if pName == "" {
		log.Fatal("No enabled provider found in config")
	}

	var model llms.Model
	switch pName {
	case "openai", "openrouter":
		opts := []openai.Option{
			openai.WithToken(pCfg.APIKey),
			openai.WithModel(pCfg.Model),
		}
		if pCfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(pCfg.BaseURL))
		}
		model, err = openai.New(opts...)
	default:
		log.Fatalf("Provider %s not yet implemented in main", pName)
	}
	if err != nil {
		log.Fatal(err)
	}

	client := llm.NewClient(model,
		llm.WithLogger(logger),
		llm.WithRetries(cfg.Planning.LLMRetries),
	)

	prompts := agent.NewPromptManager(cfg.App.Prompts)

	eng := engine.New(
		planner.New(client),
		engine.NewStepExecutor(registry, client),
		client,
		registry,
		engine.WithReevaluation(cfg.Planning.Reevaluation),
		engine.WithLogger(logger),
	)

	core := agent.NewCore(store, registry, client, eng, prompts, logger,
		agent.WithMaxSteps(cfg.Planning.MaxSteps),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start Live Resource Dashboard (1-second updates)
	go func() {
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				observability.PrintLiveStatus()
			}
		}
	}()

	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				observability.Heartbeat()
				logger.LogHeartbeat()
			}
		}
	}()

	console := gateway.NewConsole(core, uuid.NewString())

	// Run the gateway in a goroutine so we can wait for signals here.
	done := make(chan error, 1)
	go func() {
		done <- console.Start()
	}()

	select {
	case <-ctx.Done():
		_ = console.Stop()
	case err := <-done:
		if err != nil {
			log.Printf("\033[91m[ FAIL ] GATEWAY ERROR: %v\033[0m", err)
		}
	}

	// Reset terminal aesthetics
	observability.CleanupTerminal()

	time.Sleep(200 * time.Millisecond)
	log.Println("\033[95m[ EXIT ] ENGINE STOPPED. GOODBYE.\033[0m")
}
