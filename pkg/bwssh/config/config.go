package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of every environment override, e.g. BWSSH_FOLDER_ID.
const EnvPrefix = "bwssh"

// Defaults applied before the config file and environment are read.
const (
	DefaultBWProgram     = "bw"
	DefaultNodeOptions   = "--no-deprecation"
	DefaultSSHAddProgram = "ssh-add"
	DefaultPromptPattern = "passphrase"
	DefaultPromptDelay   = 800 * time.Millisecond
	DefaultPromptTimeout = 10 * time.Second
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config represents the bwssh configuration
type Config struct {
	Account       string        `yaml:"account,omitempty"` // Bitwarden account email used for login
	FolderID      string        `yaml:"folder_id"`         // Vault folder holding the key passphrases
	Mapping       string        `yaml:"mapping"`           // CSV of item id -> private key path
	BWProgram     string        `yaml:"bw_program"`        // Bitwarden CLI executable, looked up in PATH
	NodeOptions   string        `yaml:"node_options"`      // Exported as NODE_OPTIONS for the Bitwarden CLI
	SSHAddProgram string        `yaml:"ssh_add_program"`   // ssh-add executable, looked up in PATH
	PromptPattern string        `yaml:"prompt_pattern"`    // Text that marks the passphrase prompt; empty = fixed delay
	PromptDelay   time.Duration `yaml:"prompt_delay"`      // Delay before typing when no prompt pattern is set
	PromptTimeout time.Duration `yaml:"prompt_timeout"`    // Max wait for the prompt pattern
	VerifyAgent   bool          `yaml:"verify_agent"`      // Check the agent key list after each add

	path     string
	fromFile bool
}

// envOverrides mirrors the settings that may be overridden from the environment.
type envOverrides struct {
	Account       string        `envconfig:"ACCOUNT"`
	FolderID      string        `envconfig:"FOLDER_ID"`
	Mapping       string        `envconfig:"MAPPING"`
	BWProgram     string        `envconfig:"BW_PROGRAM"`
	SSHAddProgram string        `envconfig:"SSH_ADD_PROGRAM"`
	PromptDelay   time.Duration `envconfig:"PROMPT_DELAY"`
	PromptTimeout time.Duration `envconfig:"PROMPT_TIMEOUT"`
}

// DefaultConfig returns a new Config with the built-in defaults.
func DefaultConfig() Config {
	return Config{
		BWProgram:     DefaultBWProgram,
		NodeOptions:   DefaultNodeOptions,
		SSHAddProgram: DefaultSSHAddProgram,
		PromptPattern: DefaultPromptPattern,
		PromptDelay:   DefaultPromptDelay,
		PromptTimeout: DefaultPromptTimeout,
		VerifyAgent:   true,
	}
}

// Load reads the config from the specified path and applies BWSSH_*
// environment overrides on top of it.
// A missing file is not an error; the environment may carry every
// required setting. Validate must be called on the result.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	cfg.path = path

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	default:
		cfg.fromFile = true
		if err := decode(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	if cfg.Mapping != "" {
		expanded, err := homedir.Expand(cfg.Mapping)
		if err != nil {
			return Config{}, fmt.Errorf("failed to expand mapping path %q: %w", cfg.Mapping, err)
		}
		cfg.Mapping = expanded
	}

	return cfg, nil
}

// decode unmarshals YAML into cfg, rejecting unknown keys.
func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// applyEnv overlays non-empty BWSSH_* variables onto cfg.
func applyEnv(cfg *Config) error {
	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("failed to read environment overrides: %w", err)
	}

	setString := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	setString(&cfg.Account, env.Account)
	setString(&cfg.FolderID, env.FolderID)
	setString(&cfg.Mapping, env.Mapping)
	setString(&cfg.BWProgram, env.BWProgram)
	setString(&cfg.SSHAddProgram, env.SSHAddProgram)

	if env.PromptDelay != 0 {
		cfg.PromptDelay = env.PromptDelay
	}
	if env.PromptTimeout != 0 {
		cfg.PromptTimeout = env.PromptTimeout
	}
	return nil
}

// Path returns the file the config was loaded from.
func (c Config) Path() string {
	return c.path
}

// FromFile reports whether a config file was found and parsed.
func (c Config) FromFile() bool {
	return c.fromFile
}

// Validate checks that every setting required for a run is present.
func (c Config) Validate() error {
	hint := ""
	if !c.fromFile {
		hint = fmt.Sprintf(" (no config file at %s)", c.path)
	}

	if c.FolderID == "" {
		return fmt.Errorf("%w: folder_id is not set%s; set it in the config or BWSSH_FOLDER_ID", ErrInvalid, hint)
	}
	if c.Mapping == "" {
		return fmt.Errorf("%w: mapping is not set%s; set it in the config or BWSSH_MAPPING", ErrInvalid, hint)
	}
	if c.BWProgram == "" {
		return fmt.Errorf("%w: bw_program must not be empty", ErrInvalid)
	}
	if c.SSHAddProgram == "" {
		return fmt.Errorf("%w: ssh_add_program must not be empty", ErrInvalid)
	}
	if c.PromptDelay < 0 {
		return fmt.Errorf("%w: prompt_delay must not be negative", ErrInvalid)
	}
	if c.PromptPattern != "" && c.PromptTimeout <= 0 {
		return fmt.Errorf("%w: prompt_timeout must be positive when prompt_pattern is set", ErrInvalid)
	}
	return nil
}
