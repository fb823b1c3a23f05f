package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/doughub/engine/internal/cache"
	"github.com/doughub/engine/internal/client"
	"github.com/doughub/engine/internal/config"
	"github.com/doughub/engine/internal/daemon"
	"github.com/doughub/engine/internal/engine"
	"github.com/doughub/engine/internal/provider"
	"github.com/doughub/engine/internal/supervisor"
	"github.com/doughub/engine/internal/task"
	"github.com/doughub/engine/internal/task/catalog"
	"github.com/doughub/engine/internal/vault"
)

func cmdStart(args []string) {
	foreground := false
	for _, a := range args {
		if a == "--foreground" || a == "-f" {
			foreground = true
		}
	}

	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
		os.Exit(1)
	}

	if err := daemon.Run(cfg, foreground); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func cmdStop() {
	mustLoadConfig()
	if err := daemon.Stop(); err != nil {
		fmt.Fprintf(os.Stderr, "error stopping daemon: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("doughub-engine stopped")
}

func cmdStatus() {
	mustLoadConfig()
	if err := daemon.Status(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

// cmdRun executes one task in-process, without a running daemon. Useful
// for trying prompts and inspecting outcomes from a shell.
func cmdRun(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: doughub-engine run <task-id> [json-input]")
		os.Exit(1)
	}
	taskID := args[0]

	input := task.Input{}
	if len(args) > 1 {
		if err := json.Unmarshal([]byte(args[1]), &input); err != nil {
			fmt.Fprintf(os.Stderr, "invalid json input: %v\n", err)
			os.Exit(1)
		}
	}

	cfg := mustLoadConfig()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
		With().Timestamp().Logger().Level(zerolog.WarnLevel)

	resolver := provider.NewResolver()
	v := vault.New()

	resolve := func() (*provider.Config, error) {
		kind := provider.Kind(cfg.Provider.Kind)
		if kind == "auto" {
			kind = ""
		}
		apiKey := cfg.Provider.APIKey
		if apiKey == "" && cfg.Provider.KeyRef != "" {
			if key, err := v.ResolveKeyRef(cfg.Provider.KeyRef); err == nil {
				apiKey = key
			}
		}
		pcfg, err := resolver.Resolve(context.Background(), provider.ResolveOptions{
			Kind:          kind,
			DefaultRemote: provider.Kind(cfg.Provider.DefaultRemoteKind),
			ProbeTimeout:  cfg.Provider.ProbeTimeout(),
			Overrides: provider.Overrides{
				Endpoint: cfg.Provider.Endpoint,
				APIKey:   apiKey,
				Model:    cfg.Provider.Model,
				Timeout:  cfg.Provider.TimeoutDuration(),
			},
		})
		if err != nil {
			return nil, err
		}
		if !pcfg.Local && pcfg.APIKey == "" {
			if key, err := v.Get(string(pcfg.Kind)); err == nil {
				pcfg.APIKey = key
			}
		}
		return pcfg, nil
	}
	manager := client.NewManager(resolve)

	sup := supervisor.New(supervisor.Options{
		Endpoint:        provider.LocalEndpoint(),
		Executable:      supervisor.FindExecutable(cfg.Local.Executable),
		Autostart:       cfg.Local.Autostart,
		HealthTimeout:   cfg.Local.HealthTimeout(),
		StartupRetries:  cfg.Local.StartupRetries,
		StartupInterval: cfg.Local.StartupInterval(),
	}, logger)
	defer sup.Terminate()

	var respCache *cache.Cache
	if cfg.Cache.Enabled {
		c, err := cache.New(cfg.Cache.MaxEntries, nil)
		if err == nil {
			respCache = c
		}
	}

	eng := engine.New(engine.Options{
		Registry: catalog.New(),
		Cache:    respCache,
		Acquire: func() (client.Invoker, *provider.Config, error) {
			c, err := manager.Get()
			if err != nil {
				return nil, nil, err
			}
			return c, c.Config(), nil
		},
		Supervisor:      sup,
		Retry:           engine.PolicyFromConfig(cfg.Resilience),
		MaxPromptTokens: cfg.Engine.MaxPromptToken,
	}, logger)

	out, err := eng.RunTask(context.Background(), taskID, input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(out)
}

func cmdTasks() {
	for _, info := range catalog.New().List() {
		fmt.Printf("  %-22s %s\n", info.ID, info.Description)
	}
}

func cmdInitConfig() {
	if err := config.InitConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "error generating config: %v\n", err)
		os.Exit(1)
	}
}

func cmdInstallService() {
	if err := daemon.InstallService(); err != nil {
		fmt.Fprintf(os.Stderr, "error installing service: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Service installed successfully")
}

func cmdConfigExport(args []string) {
	path := "doughub-engine-export.toml"
	if len(args) > 0 {
		path = args[0]
	}
	mustLoadConfig()
	if err := config.ExportConfig(path); err != nil {
		fmt.Fprintf(os.Stderr, "error exporting config: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Config exported to %s\n", path)
}

func mustLoadConfig() *config.Config {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}
