// Package sshagent loads private keys into a running ssh-agent.
//
// Keys are added with ssh-add, which only accepts a passphrase typed at a
// terminal. PTYAdder runs ssh-add under a pseudo-terminal and types the
// passphrase once the prompt is visible, so the passphrase never appears
// in an argument list or environment.
package sshagent

import (
	"context"
	"errors"
	"time"

	"github.com/hashicorp/go-hclog"
)

var (
	// ErrPromptTimeout is returned when ssh-add does not show its prompt in time.
	ErrPromptTimeout = errors.New("timed out waiting for passphrase prompt")
	// ErrBadPassphrase is returned when ssh-add asks again after the passphrase was typed.
	ErrBadPassphrase = errors.New("passphrase rejected by ssh-add")
)

// Adder adds a passphrase-protected private key to the agent.
type Adder interface {
	Add(ctx context.Context, keyPath, passphrase string) error
}

// Options configures a PTYAdder.
type Options struct {
	// Program is the ssh-add executable.
	Program string
	// PromptPattern is matched case-insensitively against ssh-add output.
	// When empty, the passphrase is typed after PromptDelay instead.
	PromptPattern string
	PromptDelay   time.Duration
	// PromptTimeout bounds the wait for the prompt and for ssh-add to
	// finish after the passphrase was typed. Zero disables the bound.
	PromptTimeout time.Duration
	Logger        hclog.Logger
}

// PTYAdder drives ssh-add through a pseudo-terminal.
type PTYAdder struct {
	opts Options
}

// NewPTYAdder returns an Adder for opts.
func NewPTYAdder(opts Options) *PTYAdder {
	if opts.Program == "" {
		opts.Program = "ssh-add"
	}
	if opts.Logger == nil {
		opts.Logger = hclog.NewNullLogger()
	}
	return &PTYAdder{opts: opts}
}
