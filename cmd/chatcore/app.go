package main

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/nullpointer-labs/chatcore/internal/historystore"
	"github.com/nullpointer-labs/chatcore/internal/logging"
	"github.com/nullpointer-labs/chatcore/internal/mcpclient"
	"github.com/nullpointer-labs/chatcore/internal/model"
	"github.com/nullpointer-labs/chatcore/internal/orchestrator"
	"github.com/nullpointer-labs/chatcore/internal/providers"
	"github.com/nullpointer-labs/chatcore/internal/providers/anthropic"
	"github.com/nullpointer-labs/chatcore/internal/providers/google"
	"github.com/nullpointer-labs/chatcore/internal/providers/local"
	"github.com/nullpointer-labs/chatcore/internal/providers/openaicompat"
	"github.com/nullpointer-labs/chatcore/internal/settingsstore"
)

// appContext bundles the dependencies every subcommand needs. It is
// constructed once per invocation from --config-dir; nothing here
// survives past the process, matching a CLI front end rather than a
// resident daemon.
type appContext struct {
	configDir string
	logger    *zap.Logger
	settings  *settingsstore.Store
	history   *historystore.Store
}

func newAppContext(configDir string) (*appContext, error) {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		configDir = filepath.Join(home, ".chatcore")
	}

	logger, err := logging.New("")
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	settings, err := settingsstore.NewStore(configDir)
	if err != nil {
		return nil, fmt.Errorf("open settings store: %w", err)
	}

	history, err := historystore.Open(filepath.Join(configDir, "history.db"))
	if err != nil {
		return nil, fmt.Errorf("open history store: %w", err)
	}

	return &appContext{configDir: configDir, logger: logger, settings: settings, history: history}, nil
}

func (a *appContext) close() {
	if a.history != nil {
		a.history.Close()
	}
	if a.logger != nil {
		a.logger.Sync()
	}
}

// buildOrchestrator wires one adapter per provider family behind a fresh
// MCP registry and stream registry, scoped to a single command invocation.
func (a *appContext) buildOrchestrator(mcpRegistry *mcpclient.Registry, streamRegistry *orchestrator.StreamRegistry) *orchestrator.Orchestrator {
	adapters := map[model.ProviderType]providers.Adapter{
		model.ProviderLocal:        local.NewClient(a.logger),
		model.ProviderOpenAICompat: openaicompat.NewClient(a.logger),
		model.ProviderAnthropic:    anthropic.NewClient(a.logger),
		model.ProviderGoogle:       google.NewClient(a.logger),
	}
	return orchestrator.New(adapters, mcpRegistry, streamRegistry, a.logger)
}
