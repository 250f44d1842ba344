package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nullpointer-labs/chatcore/internal/mcpclient"
)

// mcpCommand groups MCP connectivity diagnostics. Because this binary
// does not run as a resident daemon, connect-stdio/connect-sse/list-tools
// each connect fresh, report, and disconnect within the one invocation —
// they exist to verify a server is reachable and lists the tools a
// `chat --mcp-stdio/--mcp-sse` run would see.
func mcpCommand(configDir *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Inspect MCP servers",
	}
	cmd.AddCommand(mcpConnectStdioCommand(configDir))
	cmd.AddCommand(mcpConnectSSECommand(configDir))
	cmd.AddCommand(mcpListToolsCommand(configDir))
	return cmd
}

func mcpConnectStdioCommand(configDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "connect-stdio <name> <command> [args...]",
		Short: "Connect to a stdio MCP server and list its tools",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newAppContext(*configDir)
			if err != nil {
				return err
			}
			defer app.close()

			registry := mcpclient.NewRegistry(app.logger)
			defer registry.CloseAll()

			client, err := registry.ConnectStdio(cmd.Context(), args[0], args[1], args[2:])
			if err != nil {
				return fmt.Errorf("connect stdio mcp server: %w", err)
			}
			return printTools(cmd.Context(), client)
		},
	}
}

func mcpConnectSSECommand(configDir *string) *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "connect-sse <name> <url>",
		Short: "Connect to an SSE MCP server and list its tools",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newAppContext(*configDir)
			if err != nil {
				return err
			}
			defer app.close()

			registry := mcpclient.NewRegistry(app.logger)
			defer registry.CloseAll()

			client, err := registry.ConnectSSE(cmd.Context(), args[0], args[1], token)
			if err != nil {
				return fmt.Errorf("connect sse mcp server: %w", err)
			}
			return printTools(cmd.Context(), client)
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "Bearer token for the SSE server")
	return cmd
}

func mcpListToolsCommand(configDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list-tools <name> <command> [args...]",
		Short: "Alias for connect-stdio, kept for command-surface parity",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mcpConnectStdioCommand(configDir).RunE(cmd, args)
		},
	}
}

func printTools(ctx context.Context, client *mcpclient.Client) error {
	tools, err := client.ListTools(ctx)
	if err != nil {
		return fmt.Errorf("list tools: %w", err)
	}
	if len(tools) == 0 {
		fmt.Println("no tools reported")
		return nil
	}
	var builder strings.Builder
	for _, tool := range tools {
		fmt.Fprintf(&builder, "%s\t%s\n", tool.Name, tool.Description)
	}
	fmt.Print(builder.String())
	return nil
}
