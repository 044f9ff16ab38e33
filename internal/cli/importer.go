package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/bwssh/bwssh/pkg/bwssh/bitwarden"
	"github.com/bwssh/bwssh/pkg/bwssh/keymap"
	"github.com/bwssh/bwssh/pkg/bwssh/sshagent"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
)

// ImportReport summarizes one import pass.
type ImportReport struct {
	Added   []string
	Skipped []string
	errs    *multierror.Error
}

// Failed returns the per-item add failures.
func (r *ImportReport) Failed() []error {
	return r.errs.WrappedErrors()
}

// Err returns the aggregated add failures, or nil.
func (r *ImportReport) Err() error {
	return r.errs.ErrorOrNil()
}

type importer struct {
	mapping  *keymap.Mapping
	adder    sshagent.Adder
	verifier AgentVerifier
	stat     func(name string) (os.FileInfo, error)
	logger   hclog.Logger
}

// run imports every item independently. A failed precondition or a failed
// add only affects that item.
func (im *importer) run(ctx context.Context, items []bitwarden.Item) *ImportReport {
	report := &ImportReport{}

	if im.verifier != nil {
		if err := im.verifier.Ping(); err != nil {
			im.logger.Warn("ssh-agent is not reachable", "error", err)
			im.verifier = nil
		}
	}

	for _, item := range items {
		if ctx.Err() != nil {
			report.errs = multierror.Append(report.errs, fmt.Errorf("%s: %w", item.Name, ctx.Err()))
			continue
		}

		path, ok := im.mapping.Lookup(item.ID)
		if !ok {
			im.logger.Warn("path not found", "item", item.Name)
			report.Skipped = append(report.Skipped, item.Name)
			continue
		}

		passphrase, ok := item.Passphrase()
		if !ok {
			im.logger.Warn("passphrase not found", "item", item.Name)
			report.Skipped = append(report.Skipped, item.Name)
			continue
		}

		if _, err := im.stat(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				im.logger.Warn("private key does not exist", "item", item.Name, "path", path)
			} else {
				im.logger.Warn("cannot access private key", "item", item.Name, "path", path, "error", err)
			}
			report.Skipped = append(report.Skipped, item.Name)
			continue
		}

		if err := im.adder.Add(ctx, path, passphrase); err != nil {
			im.logger.Warn("could not add key to the SSH agent", "item", item.Name, "error", err)
			report.errs = multierror.Append(report.errs, fmt.Errorf("%s: %w", item.Name, err))
			continue
		}

		im.logger.Info("key added", "item", item.Name, "path", path)
		report.Added = append(report.Added, item.Name)
		im.verify(item.Name, path)
	}

	return report
}

func (im *importer) verify(name, path string) {
	if im.verifier == nil {
		return
	}

	held, err := im.verifier.Holds(path + ".pub")
	switch {
	case errors.Is(err, fs.ErrNotExist):
		im.logger.Debug("no public key next to private key, skipping agent check", "item", name)
	case err != nil:
		im.logger.Debug("agent check failed", "item", name, "error", err)
	case held:
		im.logger.Debug("key listed by agent", "item", name)
	default:
		im.logger.Debug("key not listed by agent", "item", name)
	}
}
