package xdg

import (
	"os"
	"os/user"
	"path/filepath"
)

const appName = "bwssh"

// Paths holds XDG-compliant directory paths
type Paths struct {
	ConfigHome string
	StateHome  string
}

// NewPaths returns XDG-compliant directory paths
// If XDG environment variables are set, they are used; otherwise, defaults are applied
func NewPaths() (Paths, error) {
	homeDir, err := getHomeDir()
	if err != nil {
		return Paths{}, err
	}

	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		configHome = filepath.Join(homeDir, ".config")
	}

	stateHome := os.Getenv("XDG_STATE_HOME")
	if stateHome == "" {
		stateHome = filepath.Join(homeDir, ".local", "state")
	}

	return Paths{
		ConfigHome: configHome,
		StateHome:  stateHome,
	}, nil
}

// getHomeDir returns the user's home directory
func getHomeDir() (string, error) {
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return home, nil
	}
	currentUser, err := user.Current()
	if err != nil {
		return "", err
	}
	return currentUser.HomeDir, nil
}

// ConfigPath returns the path to the config file
func (p Paths) ConfigPath() string {
	return filepath.Join(p.ConfigHome, appName, "config")
}

// MappingPath returns the default path of the item-id to key-path table
func (p Paths) MappingPath() string {
	return filepath.Join(p.ConfigHome, appName, "keys.csv")
}

// LockPath returns the path of the file guarding concurrent runs
func (p Paths) LockPath() string {
	return filepath.Join(p.StateHome, appName, "run.lock")
}
