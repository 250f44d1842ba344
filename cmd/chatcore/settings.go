package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func settingsCommand(configDir *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Read or replace the settings document",
	}
	cmd.AddCommand(settingsGetCommand(configDir))
	cmd.AddCommand(settingsSetCommand(configDir))
	return cmd
}

func settingsGetCommand(configDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Print the current settings document as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newAppContext(*configDir)
			if err != nil {
				return err
			}
			defer app.close()

			settings, err := app.settings.Get()
			if err != nil {
				return fmt.Errorf("get settings: %w", err)
			}
			return printJSON(settings)
		},
	}
}

func settingsSetCommand(configDir *string) *cobra.Command {
	var serverURL, defaultModel, theme string
	var setupCompleted bool
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Update top-level settings fields",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newAppContext(*configDir)
			if err != nil {
				return err
			}
			defer app.close()

			settings, err := app.settings.Get()
			if err != nil {
				return fmt.Errorf("get settings: %w", err)
			}
			if cmd.Flags().Changed("server-url") {
				settings.ServerURL = serverURL
			}
			if cmd.Flags().Changed("default-model") {
				settings.DefaultModel = defaultModel
			}
			if cmd.Flags().Changed("theme") {
				settings.Theme = theme
			}
			if cmd.Flags().Changed("setup-completed") {
				settings.SetupCompleted = setupCompleted
			}
			if err := app.settings.Set(settings); err != nil {
				return fmt.Errorf("set settings: %w", err)
			}
			return printJSON(settings)
		},
	}
	cmd.Flags().StringVar(&serverURL, "server-url", "", "Default server URL")
	cmd.Flags().StringVar(&defaultModel, "default-model", "", "Default model name")
	cmd.Flags().StringVar(&theme, "theme", "", "UI theme name")
	cmd.Flags().BoolVar(&setupCompleted, "setup-completed", false, "Mark first-run setup as completed")
	return cmd
}

func printJSON(value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
