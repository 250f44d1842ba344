package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func historyCommand(configDir *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect persisted chats and messages",
	}
	cmd.AddCommand(historyListChatsCommand(configDir))
	cmd.AddCommand(historyListMessagesCommand(configDir))
	return cmd
}

func historyListChatsCommand(configDir *string) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list-chats",
		Short: "List recent chats, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newAppContext(*configDir)
			if err != nil {
				return err
			}
			defer app.close()
			chats, err := app.history.ListChatsWithFlags(limit)
			if err != nil {
				return fmt.Errorf("list chats: %w", err)
			}
			return printJSON(chats)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 100, "Maximum number of chats to return")
	return cmd
}

func historyListMessagesCommand(configDir *string) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list-messages <chat-id>",
		Short: "List a chat's messages in chronological order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newAppContext(*configDir)
			if err != nil {
				return err
			}
			defer app.close()
			messages, err := app.history.ListMessages(args[0], limit)
			if err != nil {
				return fmt.Errorf("list messages: %w", err)
			}
			return printJSON(messages)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 500, "Maximum number of messages to return")
	return cmd
}
