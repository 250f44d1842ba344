// Command chatcore is the CLI front end over the conversation core: one
// run drives chat_stream/chat_cancel/connect_mcp_*/list_tools against the
// active or a named provider. Grounded on the teacher's cmd/claude/main.go
// cobra root + subcommand registration idiom (persistent flags, AddCommand
// tree), trimmed to this domain's command surface — the original's
// Claude-Code-specific flag surface (stream-json control protocol, hook
// system, teammate coordination) has no counterpart here.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	var configDir string

	rootCmd := &cobra.Command{
		Use:   "chatcore",
		Short: "Tool-augmented multi-provider chat core",
	}
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "Override the settings/history directory (default ~/.chatcore)")

	rootCmd.AddCommand(chatCommand(&configDir))
	rootCmd.AddCommand(cancelCommand())
	rootCmd.AddCommand(mcpCommand(&configDir))
	rootCmd.AddCommand(settingsCommand(&configDir))
	rootCmd.AddCommand(providerCommand(&configDir))
	rootCmd.AddCommand(historyCommand(&configDir))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
