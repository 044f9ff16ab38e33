//go:build windows

package sshagent

import (
	"context"
	"errors"
)

// Add is not available on Windows, which has no pseudo-terminals for ssh-add.
func (a *PTYAdder) Add(ctx context.Context, keyPath, passphrase string) error {
	return errors.New("adding keys through a pseudo-terminal is not supported on windows")
}
