package bitwarden

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// Invocation describes a single call of the Bitwarden CLI.
type Invocation struct {
	Args []string
	// Env holds KEY=VALUE pairs added to the inherited environment.
	Env []string
	// Interactive attaches the terminal so the CLI can prompt for the
	// master password. Only stdout is captured.
	Interactive bool
}

// Runner executes the Bitwarden CLI and returns its standard output.
type Runner interface {
	Run(ctx context.Context, program string, inv Invocation) ([]byte, error)
}

// CommandError is returned when the CLI exits with a non-zero status.
type CommandError struct {
	Command  string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("`bw %s` exited with status %d", e.Command, e.ExitCode)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ExecRunner runs the CLI as a child process without a shell.
type ExecRunner struct {
	Stdin  io.Reader // terminal input for interactive invocations
	Stderr io.Writer // prompt output for interactive invocations
}

// NewExecRunner returns a runner wired to the process terminal.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{Stdin: os.Stdin, Stderr: os.Stderr}
}

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, program string, inv Invocation) ([]byte, error) {
	cmd := exec.CommandContext(ctx, program, inv.Args...)
	cmd.Env = append(os.Environ(), inv.Env...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	if inv.Interactive {
		cmd.Stdin = r.Stdin
		cmd.Stderr = r.Stderr
	} else {
		cmd.Stderr = &stderr
	}

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return stdout.Bytes(), &CommandError{
				Command:  commandName(inv.Args),
				ExitCode: exitErr.ExitCode(),
				Stderr:   strings.TrimSpace(stderr.String()),
				Err:      err,
			}
		}
		return nil, fmt.Errorf("failed to run %s: %w", program, err)
	}

	return stdout.Bytes(), nil
}

// commandName returns the subcommand part of args for messages, without flag values.
func commandName(args []string) string {
	var parts []string
	for _, a := range args {
		if strings.HasPrefix(a, "-") {
			if a == "--version" {
				parts = append(parts, a)
			}
			continue
		}
		parts = append(parts, a)
		if len(parts) == 2 {
			break
		}
	}
	return strings.Join(parts, " ")
}
