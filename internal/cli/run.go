package cli

import (
	"context"
	"errors"

	"github.com/bwssh/bwssh/pkg/bwssh/keymap"
	"github.com/bwssh/bwssh/pkg/bwssh/output"
	"github.com/bwssh/bwssh/pkg/bwssh/runlock"
)

// ErrRunLocked is returned when another run holds the run lock
var ErrRunLocked = runlock.ErrLocked

// Run loads the mapping, opens a vault session, syncs, lists the configured
// folder and adds every mapped key to the agent. Once a session exists the
// vault is locked again on every return path.
func (c *CLI) Run(ctx context.Context) (report *ImportReport, err error) {
	lock, err := runlock.Acquire(c.xdgPaths.LockPath())
	if err != nil {
		if errors.Is(err, runlock.ErrLocked) {
			return nil, output.NewError(output.CodeRunLocked, "failed to acquire run lock").WithCause(err)
		}
		return nil, output.NewError(output.CodeGeneralError, "failed to acquire run lock").WithCause(err)
	}
	defer func() { _ = lock.Release() }()

	mapping, err := c.loadMapping()
	if err != nil {
		return nil, err
	}
	c.logger.Debug("mapping loaded", "entries", mapping.Len())

	session, err := c.vault.Session(ctx, c.session)
	if err != nil {
		return nil, output.NewError(output.CodeAuthError, "failed to obtain Bitwarden session").WithCause(err)
	}
	c.logger.Debug("session obtained", "source", session.Source())

	defer func() {
		lockErr := c.vault.Lock(context.WithoutCancel(ctx), session)
		if lockErr == nil {
			c.logger.Debug("vault locked")
			return
		}
		c.logger.Error("failed to lock vault", "error", lockErr)
		if err == nil {
			err = output.NewError(output.CodeVaultLockFailed, "failed to lock vault").WithCause(lockErr)
		}
	}()

	if err := c.vault.Sync(ctx, session); err != nil {
		return nil, output.NewError(output.CodeVaultSyncFailed, "failed to sync vault").WithCause(err)
	}

	items, err := c.vault.FolderItems(ctx, session, c.config.FolderID)
	if err != nil {
		return nil, output.NewErrorf(output.CodeVaultListFailed, "failed to list items of folder %s", c.config.FolderID).WithCause(err)
	}
	c.logger.Debug("folder listed", "folder", c.config.FolderID, "items", len(items))

	im := &importer{
		mapping:  mapping,
		adder:    c.adder,
		verifier: c.verifier,
		stat:     c.stat,
		logger:   c.logger.Named("import"),
	}
	report = im.run(ctx, items)

	c.logger.Info("import finished",
		"added", len(report.Added),
		"skipped", len(report.Skipped),
		"failed", len(report.Failed()))
	return report, nil
}

func (c *CLI) loadMapping() (*keymap.Mapping, error) {
	mapping, err := keymap.Load(c.config.Mapping, keymap.WithPassword(c.password))
	switch {
	case err == nil:
		return mapping, nil
	case errors.Is(err, keymap.ErrDecrypt):
		return nil, output.NewError(output.CodeMappingDecrypt, "failed to decrypt mapping "+c.config.Mapping).WithCause(err)
	default:
		return nil, output.NewError(output.CodeMappingInvalid, "failed to load mapping "+c.config.Mapping).WithCause(err)
	}
}
