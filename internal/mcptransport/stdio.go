package mcptransport

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"go.uber.org/zap"
)

// StdioTransport spawns a child process, writes one JSON value per
// newline-terminated line to its stdin, and reads responses line-by-line
// from its stdout. Stderr is inherited so the child's own diagnostics
// surface on the parent's stderr.
type StdioTransport struct {
	logger *zap.Logger

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Scanner

	mu     sync.Mutex
	closed bool
}

// NewStdioTransport spawns command with args and wires its stdio pipes.
// Grounded on the child-process pipe wiring and close sequence in
// other_examples/bd3c5d08_dhamidi-smolcode__mcp-mcp.go.go.
func NewStdioTransport(ctx context.Context, command string, args []string, logger *zap.Logger) (*StdioTransport, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("mcptransport: stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("mcptransport: stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("mcptransport: start %s: %w", command, err)
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	return &StdioTransport{
		logger: logger.With(zap.String("transport", "stdio"), zap.String("command", command)),
		cmd:    cmd,
		stdin:  stdin,
		stdout: scanner,
	}, nil
}

// Kind reports the stdio transport tag.
func (t *StdioTransport) Kind() Kind { return KindStdio }

// Send writes one JSON value as a newline-terminated line, flushed immediately.
func (t *StdioTransport) Send(ctx context.Context, value json.RawMessage) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed
	}
	if _, err := t.stdin.Write(append(append([]byte(nil), value...), '\n')); err != nil {
		return fmt.Errorf("mcptransport: stdio write: %w", err)
	}
	return nil
}

// Receive reads the next line and parses it as JSON. ErrClosed is returned
// on EOF, matching the spec's "receive returns None on EOF".
func (t *StdioTransport) Receive(ctx context.Context) (json.RawMessage, error) {
	for {
		if !t.stdout.Scan() {
			if err := t.stdout.Err(); err != nil {
				return nil, fmt.Errorf("mcptransport: stdio read: %w", err)
			}
			return nil, ErrClosed
		}
		line := t.stdout.Bytes()
		if len(line) == 0 {
			continue
		}
		out := make(json.RawMessage, len(line))
		copy(out, line)
		return out, nil
	}
}

// Close terminates the child process: interrupt first, kill on failure,
// then wait to release resources.
func (t *StdioTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()

	_ = t.stdin.Close()
	if t.cmd.Process == nil {
		return nil
	}
	if err := t.cmd.Process.Signal(os.Interrupt); err != nil {
		if killErr := t.cmd.Process.Kill(); killErr != nil {
			t.logger.Warn("failed to kill child process", zap.Error(killErr))
		}
	}
	_, _ = t.cmd.Process.Wait()
	return nil
}
