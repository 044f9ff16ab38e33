package cli

import (
	"context"

	"github.com/bwssh/bwssh/pkg/bwssh/bitwarden"
)

// Vault defines the vault operations required by the CLI
type Vault interface {
	Session(ctx context.Context, preset string) (bitwarden.Session, error)
	Sync(ctx context.Context, s bitwarden.Session) error
	FolderItems(ctx context.Context, s bitwarden.Session, folderID string) ([]bitwarden.Item, error)
	Lock(ctx context.Context, s bitwarden.Session) error
}

// AgentVerifier inspects the running ssh-agent
type AgentVerifier interface {
	Ping() error
	Holds(pubKeyPath string) (bool, error)
}
