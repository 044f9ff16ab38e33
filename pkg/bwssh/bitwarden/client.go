// Package bitwarden drives the Bitwarden CLI (`bw`) to obtain a session,
// synchronize the vault, list folder items and lock the vault again.
package bitwarden

import (
	"context"

	"github.com/hashicorp/go-hclog"
)

// Client wraps the Bitwarden CLI.
type Client struct {
	program     string
	account     string
	nodeOptions string
	runner      Runner
	features    *Features
	logger      hclog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithRunner replaces the process runner.
func WithRunner(r Runner) Option {
	return func(c *Client) {
		c.runner = r
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(l hclog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithAccount sets the account email passed to `bw login`.
func WithAccount(email string) Option {
	return func(c *Client) {
		c.account = email
	}
}

// WithNodeOptions sets NODE_OPTIONS for every CLI call.
func WithNodeOptions(opts string) Option {
	return func(c *Client) {
		c.nodeOptions = opts
	}
}

// NewClient returns a client for the CLI executable program.
func NewClient(program string, opts ...Option) *Client {
	c := &Client{
		program: program,
		runner:  NewExecRunner(),
		logger:  hclog.NewNullLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.features = NewFeatures(c.version)
	return c
}

func (c *Client) version(ctx context.Context) (string, error) {
	out, err := c.run(ctx, Session{}, Invocation{Args: []string{"--version"}})
	return string(out), err
}

// run invokes the CLI. A valid session is handed over through BW_SESSION
// so the token never shows up in the process list.
func (c *Client) run(ctx context.Context, s Session, inv Invocation) ([]byte, error) {
	if c.nodeOptions != "" {
		inv.Env = append(inv.Env, "NODE_OPTIONS="+c.nodeOptions)
	}
	if s.Valid() {
		inv.Env = append(inv.Env, "BW_SESSION="+s.token)
	}

	c.logger.Debug("running bw", "args", inv.Args, "interactive", inv.Interactive)
	return c.runner.Run(ctx, c.program, inv)
}
