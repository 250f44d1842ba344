package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// cancelCommand documents chat_cancel's process-scoped nature: this
// binary runs one conversation per process and cancels it in place (via
// Ctrl-C during `chat`), so there is no resident stream registry a
// separate process could reach into.
func cancelCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <stream-id>",
		Short: "Cancel an in-flight stream",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return fmt.Errorf("streams are scoped to the `chat` process that started them; press Ctrl-C in that terminal to cancel stream %q", args[0])
		},
	}
}
