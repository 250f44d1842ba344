package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/nullpointer-labs/chatcore/internal/eventsink"
	"github.com/nullpointer-labs/chatcore/internal/mcpclient"
	"github.com/nullpointer-labs/chatcore/internal/model"
	"github.com/nullpointer-labs/chatcore/internal/orchestrator"
)

// turnAccumulator collects the assistant content carried by chat:chunk
// events on an event sink so it can be appended to history once the
// conversation finishes, without RunConversation needing to return
// anything beyond its error. Every other topic, tool starts included, is
// ignored.
type turnAccumulator struct {
	content strings.Builder
}

func (a *turnAccumulator) Emit(topic string, payload any) {
	if topic != "chat:chunk" {
		return
	}
	fields, ok := payload.(map[string]any)
	if !ok {
		return
	}
	message, ok := fields["message"].(model.ChatMessage)
	if !ok {
		return
	}
	a.content.WriteString(message.Content)
}

func chatCommand(configDir *string) *cobra.Command {
	var providerID, modelName, chatID string
	var mcpStdio, mcpSSE []string
	var noTUI bool

	cmd := &cobra.Command{
		Use:   "chat [prompt]",
		Short: "Run one conversation turn against the active or a named provider",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt, err := resolvePrompt(args)
			if err != nil {
				return err
			}

			app, err := newAppContext(*configDir)
			if err != nil {
				return err
			}
			defer app.close()

			provider, err := resolveProvider(app, providerID)
			if err != nil {
				return err
			}
			if modelName == "" {
				settings, err := app.settings.Get()
				if err != nil {
					return fmt.Errorf("get settings: %w", err)
				}
				modelName = settings.DefaultModel
			}

			chat, priorMessages, err := resolveChat(app, chatID, provider, modelName)
			if err != nil {
				return err
			}

			if _, err := app.history.AppendMessage(chat.ID, string(model.RoleUser), prompt, nil); err != nil {
				return fmt.Errorf("append user message: %w", err)
			}
			messages := append(priorMessages, model.ChatMessage{Role: model.RoleUser, Content: prompt})

			mcpRegistry := mcpclient.NewRegistry(app.logger)
			defer mcpRegistry.CloseAll()
			if err := connectMCPServers(cmd.Context(), mcpRegistry, mcpStdio, mcpSSE); err != nil {
				return err
			}

			streamRegistry := orchestrator.NewStreamRegistry()
			orch := app.buildOrchestrator(mcpRegistry, streamRegistry)

			streamID := uuid.NewString()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			go func() {
				<-ctx.Done()
				streamRegistry.Cancel(streamID)
			}()

			accumulator := &turnAccumulator{}
			runErr := runChatTurn(ctx, orch, provider, modelName, messages, streamID, accumulator, noTUI)

			if content := accumulator.content.String(); content != "" {
				if _, err := app.history.AppendMessage(chat.ID, string(model.RoleAssistant), content, nil); err != nil {
					return fmt.Errorf("append assistant message: %w", err)
				}
			}
			if runErr != nil {
				return runErr
			}
			fmt.Printf("chat id: %s\n", chat.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&providerID, "provider", "", "Provider id to use (defaults to the active provider)")
	cmd.Flags().StringVar(&modelName, "model", "", "Model name (defaults to the settings default model)")
	cmd.Flags().StringVar(&chatID, "chat-id", "", "Resume an existing chat by id instead of starting a new one")
	cmd.Flags().StringArrayVar(&mcpStdio, "mcp-stdio", nil, "Connect a stdio MCP server: name|command|arg1,arg2,...")
	cmd.Flags().StringArrayVar(&mcpSSE, "mcp-sse", nil, "Connect an SSE MCP server: name|url|token")
	cmd.Flags().BoolVar(&noTUI, "no-tui", false, "Force the plain-print live view even when stdout is a terminal")
	return cmd
}

// runChatTurn fans events out to history persistence and a live view: the
// bubbletea viewport when stdout is a terminal and --no-tui was not given,
// a line-buffered print fallback otherwise.
func runChatTurn(
	ctx context.Context,
	orch *orchestrator.Orchestrator,
	provider model.ProviderConfig,
	modelName string,
	messages []model.ChatMessage,
	streamID string,
	accumulator eventsink.Sink,
	noTUI bool,
) error {
	useTUI := !noTUI && term.IsTerminal(int(os.Stdout.Fd())) && term.IsTerminal(int(os.Stdin.Fd()))

	channelSink := eventsink.NewChannelSink(256)
	sink := eventsink.Tee(accumulator, channelSink)

	runDone := make(chan error, 1)
	go func() {
		runDone <- orch.RunConversation(ctx, provider, modelName, messages, model.ChatOptions{}, streamID, sink)
	}()

	var viewErr error
	if useTUI {
		viewErr = runLiveView(channelSink)
	} else {
		viewErr = runPlainView(channelSink)
	}

	runErr := <-runDone
	if runErr != nil {
		return runErr
	}
	return viewErr
}

// runPlainView prints chunks as they arrive until the channel sink closes,
// which RunConversation never explicitly does — instead we read until
// chat:complete, chat:error, or chat:cancelled.
func runPlainView(sink *eventsink.ChannelSink) error {
	for event := range sink.Events() {
		fields, _ := event.Payload.(map[string]any)
		switch event.Topic {
		case "chat:chunk":
			if message, ok := fields["message"].(model.ChatMessage); ok {
				fmt.Print(message.Content)
			}
		case "chat:tool-start":
			fmt.Printf("\n[tool] %v %v\n", fields["tool"], fields["args"])
		case "chat:error":
			fmt.Printf("\n[error] %v\n", fields["error"])
			return fmt.Errorf("stream error: %v", fields["error"])
		case "chat:cancelled":
			fmt.Println("\n[cancelled]")
			return nil
		case "chat:complete":
			fmt.Println()
			if completed, _ := fields["completed"].(bool); !completed {
				fmt.Printf("[incomplete: %v]\n", fields["reason"])
			}
			return nil
		}
	}
	return nil
}

func resolvePrompt(args []string) (string, error) {
	return resolvePromptFrom(args, os.Stdin, term.IsTerminal(int(os.Stdin.Fd())))
}

// resolvePromptFrom is resolvePrompt's testable core: stdin and its
// terminal-ness are passed in rather than read from the process globals.
func resolvePromptFrom(args []string, stdin io.Reader, stdinIsTerminal bool) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	if stdinIsTerminal {
		return "", fmt.Errorf("a prompt is required: pass it as an argument or pipe it on stdin")
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read prompt from stdin: %w", err)
	}
	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return "", fmt.Errorf("empty prompt")
	}
	return prompt, nil
}

func resolveProvider(app *appContext, providerID string) (model.ProviderConfig, error) {
	if providerID == "" {
		return app.settings.GetActiveProvider()
	}
	providers, err := app.settings.ListProviders()
	if err != nil {
		return model.ProviderConfig{}, fmt.Errorf("list providers: %w", err)
	}
	for _, provider := range providers {
		if provider.ID == providerID {
			return provider, nil
		}
	}
	return model.ProviderConfig{}, fmt.Errorf("no provider configured with id %q", providerID)
}

// resolveChat loads an existing chat's prior messages when chatID is given,
// or creates a fresh chat row otherwise.
func resolveChat(app *appContext, chatID string, provider model.ProviderConfig, modelName string) (historystoreChat, []model.ChatMessage, error) {
	if chatID != "" {
		records, err := app.history.ListMessages(chatID, 0)
		if err != nil {
			return historystoreChat{}, nil, fmt.Errorf("load chat %q: %w", chatID, err)
		}
		messages := make([]model.ChatMessage, 0, len(records))
		for _, record := range records {
			messages = append(messages, model.ChatMessage{Role: model.Role(record.Role), Content: record.Content})
		}
		return historystoreChat{ID: chatID}, messages, nil
	}

	created, err := app.history.CreateChat(&modelName, nil, nil)
	if err != nil {
		return historystoreChat{}, nil, fmt.Errorf("create chat: %w", err)
	}
	return historystoreChat{ID: created.ID}, nil, nil
}

// historystoreChat is the minimal chat identity chat.go needs; resolveChat
// deliberately avoids depending on the full historystore.Chat shape.
type historystoreChat struct {
	ID string
}

// stdioSpec is one parsed --mcp-stdio flag value: name|command|arg1,arg2,...
type stdioSpec struct {
	name    string
	command string
	args    []string
}

// sseSpec is one parsed --mcp-sse flag value: name|url|token
type sseSpec struct {
	name  string
	url   string
	token string
}

func parseStdioSpec(spec string) (stdioSpec, error) {
	parts := strings.SplitN(spec, "|", 3)
	if len(parts) < 2 {
		return stdioSpec{}, fmt.Errorf("invalid --mcp-stdio %q: expected name|command|args", spec)
	}
	result := stdioSpec{name: parts[0], command: parts[1]}
	if len(parts) == 3 && parts[2] != "" {
		result.args = strings.Split(parts[2], ",")
	}
	return result, nil
}

func parseSSESpec(spec string) (sseSpec, error) {
	parts := strings.SplitN(spec, "|", 3)
	if len(parts) < 2 {
		return sseSpec{}, fmt.Errorf("invalid --mcp-sse %q: expected name|url|token", spec)
	}
	result := sseSpec{name: parts[0], url: parts[1]}
	if len(parts) == 3 {
		result.token = parts[2]
	}
	return result, nil
}

// connectMCPServers parses and connects every --mcp-stdio/--mcp-sse flag.
func connectMCPServers(ctx context.Context, registry *mcpclient.Registry, stdioSpecs, sseSpecs []string) error {
	for _, raw := range stdioSpecs {
		spec, err := parseStdioSpec(raw)
		if err != nil {
			return err
		}
		if _, err := registry.ConnectStdio(ctx, spec.name, spec.command, spec.args); err != nil {
			return fmt.Errorf("connect mcp stdio server %q: %w", spec.name, err)
		}
	}
	for _, raw := range sseSpecs {
		spec, err := parseSSESpec(raw)
		if err != nil {
			return err
		}
		if _, err := registry.ConnectSSE(ctx, spec.name, spec.url, spec.token); err != nil {
			return fmt.Errorf("connect mcp sse server %q: %w", spec.name, err)
		}
	}
	return nil
}
