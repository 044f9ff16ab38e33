package main

import (
	"io"

	"github.com/hashicorp/go-hclog"
)

// Environment variables read by the command layer
const (
	EnvConfig      = "BWSSH_CONFIG"
	EnvSession     = "BW_SESSION"
	EnvAgentSocket = "SSH_AUTH_SOCK"
)

// GlobalOptions holds the global configuration flags
type GlobalOptions struct {
	Debug bool
}

// globalOpts is the shared global options instance
var globalOpts = &GlobalOptions{}

// newLogger returns the root logger. Debug output is opt-in.
func newLogger(w io.Writer, debug bool) hclog.Logger {
	level := hclog.Info
	if debug {
		level = hclog.Debug
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:   "bwssh",
		Level:  level,
		Output: w,
		Color:  hclog.AutoColor,
	})
}
