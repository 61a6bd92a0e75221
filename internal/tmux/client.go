// Package tmux runs the handful of tmux commands chat-intray needs to
// surface unread state inside a tmux status line.
package tmux

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/cristianoliveira/chat-intray/internal/colors"
)

// Client abstracts the tmux operations used by the title sink.
type Client interface {
	// HasSession checks if the tmux server is running.
	HasSession() (bool, error)

	// SetOption sets a global user or status option.
	SetOption(name, value string) error

	// UnsetOption removes a global option.
	UnsetOption(name string) error

	// SetEnvironment sets a global tmux environment variable.
	SetEnvironment(name, value string) error

	// Run executes a tmux command with the given arguments.
	Run(args ...string) (string, string, error)
}

// DefaultClient implements Client using exec.Command to run tmux.
type DefaultClient struct {
	binary     string
	socketPath string
	timeout    time.Duration
}

var _ Client = (*DefaultClient)(nil)

// NewDefaultClient creates a new DefaultClient with the given options.
func NewDefaultClient(opts ...ClientOption) *DefaultClient {
	client := &DefaultClient{
		binary:  DefaultBinary,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// InsideTmux reports whether the process runs inside a tmux client.
func InsideTmux() bool {
	return os.Getenv("TMUX") != ""
}

// runCommand executes a tmux command with the given arguments.
// It returns stdout, stderr, and any error that occurred.
func (c *DefaultClient) runCommand(args ...string) (string, string, error) {
	start := time.Now()
	command := ""
	if len(args) > 0 {
		command = args[0]
	}
	colors.StructuredDebug("tmux", "run", "started", nil, command, map[string]interface{}{"args_count": len(args)})
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	cmdArgs := []string{}
	if c.socketPath != "" {
		cmdArgs = append(cmdArgs, "-L", c.socketPath)
	}
	cmdArgs = append(cmdArgs, args...)

	cmd := exec.CommandContext(ctx, c.binary, cmdArgs...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	duration := time.Since(start).Seconds()
	if err != nil {
		colors.StructuredError("tmux", "run", "failed", err, command, map[string]interface{}{"args_count": len(args), "duration_seconds": duration})
	} else {
		colors.StructuredDebug("tmux", "run", "completed", nil, command, map[string]interface{}{"args_count": len(args), "duration_seconds": duration})
	}
	return stdout.String(), stderr.String(), err
}

// Run executes a tmux command with the given arguments.
// It returns stdout, stderr, and any error that occurred.
func (c *DefaultClient) Run(args ...string) (string, string, error) {
	stdout, stderr, err := c.runCommand(args...)
	if err != nil {
		if serverMissing(stderr) {
			return stdout, stderr, fmt.Errorf("%w: %v: %w", ErrTmuxNotRunning, args, err)
		}
		return stdout, stderr, fmt.Errorf("%w: %v: %w", ErrTmuxCommandFailed, args, err)
	}
	return stdout, stderr, nil
}

// HasSession checks if the tmux server is running.
func (c *DefaultClient) HasSession() (bool, error) {
	_, stderr, err := c.runCommand("has-session")
	if err == nil {
		return true, nil
	}
	if serverMissing(stderr) {
		return false, nil
	}
	if _, ok := err.(*exec.ExitError); ok {
		return false, nil
	}
	return false, fmt.Errorf("check tmux session: %w", err)
}

// SetOption sets a global option.
func (c *DefaultClient) SetOption(name, value string) error {
	if _, stderr, err := c.Run("set-option", "-gq", name, value); err != nil {
		if stderr != "" {
			colors.Debug("stderr: " + stderr)
		}
		return fmt.Errorf("failed to set option %s: %w", name, err)
	}
	return nil
}

// UnsetOption removes a global option.
func (c *DefaultClient) UnsetOption(name string) error {
	if _, _, err := c.Run("set-option", "-gqu", name); err != nil {
		return fmt.Errorf("failed to unset option %s: %w", name, err)
	}
	return nil
}

// SetEnvironment sets a global tmux environment variable.
func (c *DefaultClient) SetEnvironment(name, value string) error {
	_, stderr, err := c.Run("set-environment", "-g", name, value)
	if err != nil {
		if stderr != "" {
			colors.Debug("stderr: " + stderr)
		}
		return fmt.Errorf("failed to set environment variable %s: %w", name, err)
	}
	return nil
}
