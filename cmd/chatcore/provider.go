package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nullpointer-labs/chatcore/internal/model"
)

func providerCommand(configDir *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "provider",
		Short: "Manage configured model providers",
	}
	cmd.AddCommand(providerAddCommand(configDir))
	cmd.AddCommand(providerUpdateCommand(configDir))
	cmd.AddCommand(providerDeleteCommand(configDir))
	cmd.AddCommand(providerListCommand(configDir))
	cmd.AddCommand(providerActiveCommand(configDir))
	return cmd
}

func providerFlags(cmd *cobra.Command, provider *model.ProviderConfig, providerType *string) {
	cmd.Flags().StringVar(&provider.ID, "id", "", "Provider id")
	cmd.Flags().StringVar(&provider.Name, "name", "", "Display name")
	cmd.Flags().StringVar(providerType, "type", "", "Provider type: local, openai-compatible, anthropic, google, other")
	cmd.Flags().StringVar(&provider.APIKey, "api-key", "", "API key")
	cmd.Flags().StringVar(&provider.BaseURL, "base-url", "", "Base URL override")
	cmd.Flags().BoolVar(&provider.Enabled, "enabled", true, "Whether the provider is enabled")
}

func providerAddCommand(configDir *string) *cobra.Command {
	var provider model.ProviderConfig
	var providerType string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add or replace a provider",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if provider.ID == "" {
				return fmt.Errorf("--id is required")
			}
			provider.Type = model.ProviderType(providerType)
			app, err := newAppContext(*configDir)
			if err != nil {
				return err
			}
			defer app.close()
			if err := app.settings.AddProvider(provider); err != nil {
				return fmt.Errorf("add provider: %w", err)
			}
			return printJSON(provider)
		},
	}
	providerFlags(cmd, &provider, &providerType)
	return cmd
}

func providerUpdateCommand(configDir *string) *cobra.Command {
	var provider model.ProviderConfig
	var providerType string
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update an existing provider",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if provider.ID == "" {
				return fmt.Errorf("--id is required")
			}
			provider.Type = model.ProviderType(providerType)
			app, err := newAppContext(*configDir)
			if err != nil {
				return err
			}
			defer app.close()
			if err := app.settings.UpdateProvider(provider); err != nil {
				return fmt.Errorf("update provider: %w", err)
			}
			return printJSON(provider)
		},
	}
	providerFlags(cmd, &provider, &providerType)
	return cmd
}

func providerDeleteCommand(configDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newAppContext(*configDir)
			if err != nil {
				return err
			}
			defer app.close()
			if err := app.settings.DeleteProvider(args[0]); err != nil {
				return fmt.Errorf("delete provider: %w", err)
			}
			fmt.Printf("deleted %s\n", args[0])
			return nil
		},
	}
}

func providerListCommand(configDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured providers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newAppContext(*configDir)
			if err != nil {
				return err
			}
			defer app.close()
			providers, err := app.settings.ListProviders()
			if err != nil {
				return fmt.Errorf("list providers: %w", err)
			}
			return printJSON(providers)
		},
	}
}

func providerActiveCommand(configDir *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "active [id]",
		Short: "Get or set the active provider",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newAppContext(*configDir)
			if err != nil {
				return err
			}
			defer app.close()

			if len(args) == 1 {
				if err := app.settings.SetActiveProvider(args[0]); err != nil {
					return fmt.Errorf("set active provider: %w", err)
				}
			}
			active, err := app.settings.GetActiveProvider()
			if err != nil {
				return fmt.Errorf("get active provider: %w", err)
			}
			return printJSON(active)
		},
	}
	return cmd
}
