package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/nullpointer-labs/chatcore/internal/eventsink"
	"github.com/nullpointer-labs/chatcore/internal/model"
)

// chunkMsg carries one streamed content delta into the TUI event loop.
type chunkMsg struct {
	text string
	done bool
}

// toolStartMsg reports a tool invocation the orchestrator is about to run.
type toolStartMsg struct {
	tool string
	args string
}

// turnDoneMsg signals the conversation loop finished, successfully or not.
type turnDoneMsg struct {
	completed bool
	reason    string
}

// turnCancelledMsg signals the user (or a SIGINT) cancelled the stream.
type turnCancelledMsg struct{}

// turnErrorMsg reports an adapter or transport failure surfaced as chat:error.
type turnErrorMsg struct {
	message string
}

var (
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#5FAFFF"))
	toolStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#D7AF00"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F5F")).Bold(true)
	mutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// liveChatModel is the bubbletea program driving one conversation turn's
// live view: it accumulates streamed content and re-renders the finished
// assistant turn through glamour once the stream completes.
type liveChatModel struct {
	events   <-chan eventsink.Event
	renderer *glamour.TermRenderer

	content  string
	lastTool string
	done     bool
	err      error
}

func newLiveChatModel(sink *eventsink.ChannelSink) liveChatModel {
	var renderer *glamour.TermRenderer
	if glam, err := glamour.NewTermRenderer(glamour.WithAutoStyle()); err == nil {
		renderer = glam
	}
	return liveChatModel{events: sink.Events(), renderer: renderer}
}

func (m liveChatModel) Init() tea.Cmd {
	return listenForEvent(m.events)
}

// listenForEvent blocks on the next event from the orchestrator's channel
// sink, translating it into a typed bubbletea message.
func listenForEvent(events <-chan eventsink.Event) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-events
		if !ok {
			return turnDoneMsg{completed: true}
		}
		fields, _ := event.Payload.(map[string]any)
		switch event.Topic {
		case "chat:chunk":
			message, _ := fields["message"].(model.ChatMessage)
			done, _ := fields["done"].(bool)
			return chunkMsg{text: message.Content, done: done}
		case "chat:tool-start":
			tool, _ := fields["tool"].(string)
			args, _ := fields["args"].(string)
			return toolStartMsg{tool: tool, args: args}
		case "chat:cancelled":
			return turnCancelledMsg{}
		case "chat:error":
			errText, _ := fields["error"].(string)
			return turnErrorMsg{message: errText}
		case "chat:complete":
			completed, _ := fields["completed"].(bool)
			reason, _ := fields["reason"].(string)
			return turnDoneMsg{completed: completed, reason: reason}
		default:
			return listenForEvent(events)()
		}
	}
}

func (m liveChatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case chunkMsg:
		m.content += msg.text
		return m, listenForEvent(m.events)
	case toolStartMsg:
		m.lastTool = msg.tool
		return m, listenForEvent(m.events)
	case turnCancelledMsg:
		m.done = true
		return m, tea.Quit
	case turnErrorMsg:
		m.done = true
		m.err = fmt.Errorf("%s", msg.message)
		return m, tea.Quit
	case turnDoneMsg:
		m.done = true
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m liveChatModel) View() string {
	if m.done {
		if m.err != nil {
			return errorStyle.Render("error: "+m.err.Error()) + "\n"
		}
		if m.renderer != nil {
			if rendered, err := m.renderer.Render(m.content); err == nil {
				return rendered
			}
		}
		return assistantStyle.Render(m.content) + "\n"
	}
	view := assistantStyle.Render(m.content) + mutedStyle.Render(" ▋")
	if m.lastTool != "" {
		view += "\n" + toolStyle.Render("running "+m.lastTool+"...")
	}
	return view
}

// runLiveView drives the bubbletea program until the stream finishes.
func runLiveView(sink *eventsink.ChannelSink) error {
	program := tea.NewProgram(newLiveChatModel(sink))
	finalModel, err := program.Run()
	if err != nil {
		return fmt.Errorf("run live view: %w", err)
	}
	if live, ok := finalModel.(liveChatModel); ok && live.err != nil {
		return live.err
	}
	return nil
}
