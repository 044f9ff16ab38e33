package cli

import (
	"errors"
	"io"
	"io/fs"
	"os"

	"github.com/bwssh/bwssh/internal/xdg"
	"github.com/bwssh/bwssh/pkg/bwssh/bitwarden"
	"github.com/bwssh/bwssh/pkg/bwssh/config"
	"github.com/bwssh/bwssh/pkg/bwssh/keymap"
	"github.com/bwssh/bwssh/pkg/bwssh/output"
	"github.com/bwssh/bwssh/pkg/bwssh/sshagent"
	"github.com/hashicorp/go-hclog"
)

// Options carries the process inputs of a run
type Options struct {
	// ConfigPath overrides the XDG config location (BWSSH_CONFIG)
	ConfigPath string
	// Session is a pre-existing vault session token (BW_SESSION)
	Session string
	// AgentSocket is the ssh-agent socket (SSH_AUTH_SOCK)
	AgentSocket string
	Logger      hclog.Logger
	Stdin       *os.File
	Stderr      io.Writer
}

// ResolveConfigPath returns the effective config path:
// 1. Explicit configPath argument (BWSSH_CONFIG)
// 2. XDG default path
func ResolveConfigPath(configPath string, paths xdg.Paths) string {
	if configPath != "" {
		return configPath
	}
	return paths.ConfigPath()
}

// CLI represents the command-line interface
type CLI struct {
	config   config.Config
	xdgPaths xdg.Paths
	session  string
	vault    Vault
	adder    sshagent.Adder
	verifier AgentVerifier // nil when verify_agent is off
	password keymap.PasswordFunc
	stat     func(name string) (os.FileInfo, error)
	logger   hclog.Logger
}

// NewCLI loads and validates the configuration and wires the vault and
// agent clients. Nothing external is invoked yet.
func NewCLI(opts Options) (*CLI, error) {
	xdgPaths, err := xdg.NewPaths()
	if err != nil {
		return nil, output.NewError(output.CodeConfigInvalid, "failed to get XDG paths").WithCause(err)
	}

	configPath := ResolveConfigPath(opts.ConfigPath, xdgPaths)
	// Only the XDG default may be absent; an explicit path must exist.
	if opts.ConfigPath != "" {
		if _, err := os.Stat(configPath); errors.Is(err, fs.ErrNotExist) {
			return nil, output.NewError(output.CodeConfigNotFound, "config file not found: "+configPath)
		}
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, output.NewError(output.CodeConfigParseError, "failed to load config").WithCause(err)
	}
	if cfg.Mapping == "" {
		cfg.Mapping = xdgPaths.MappingPath()
	}
	if err := cfg.Validate(); err != nil {
		return nil, output.NewError(output.CodeConfigInvalid, "config "+configPath).WithCause(err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	logger.Debug("config loaded", "path", cfg.Path(), "from_file", cfg.FromFile(), "mapping", cfg.Mapping)

	vault := bitwarden.NewClient(cfg.BWProgram,
		bitwarden.WithAccount(cfg.Account),
		bitwarden.WithNodeOptions(cfg.NodeOptions),
		bitwarden.WithLogger(logger.Named("bitwarden")),
		bitwarden.WithRunner(&bitwarden.ExecRunner{Stdin: opts.Stdin, Stderr: stderr}),
	)

	adder := sshagent.NewPTYAdder(sshagent.Options{
		Program:       cfg.SSHAddProgram,
		PromptPattern: cfg.PromptPattern,
		PromptDelay:   cfg.PromptDelay,
		PromptTimeout: cfg.PromptTimeout,
		Logger:        logger.Named("sshagent"),
	})

	var verifier AgentVerifier
	if cfg.VerifyAgent {
		verifier = sshagent.NewVerifier(opts.AgentSocket)
	}

	return &CLI{
		config:   cfg,
		xdgPaths: xdgPaths,
		session:  opts.Session,
		vault:    vault,
		adder:    adder,
		verifier: verifier,
		password: mappingPassword(opts.Stdin, stderr),
		stat:     os.Stat,
		logger:   logger,
	}, nil
}
