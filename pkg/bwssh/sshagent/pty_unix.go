//go:build !windows

package sshagent

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/creack/pty"
)

const badPassphraseText = "bad passphrase"

// Add runs `ssh-add keyPath` and types passphrase at its prompt.
func (a *PTYAdder) Add(ctx context.Context, keyPath, passphrase string) error {
	cmd := exec.CommandContext(ctx, a.opts.Program, keyPath)
	// Keep ssh-add on the terminal even when a graphical askpass is configured.
	cmd.Env = append(os.Environ(), "SSH_ASKPASS_REQUIRE=never")

	ptmx, err := pty.Start(cmd)
	if err != nil {
		return fmt.Errorf("failed to start %s: %w", a.opts.Program, err)
	}
	defer func() { _ = ptmx.Close() }()

	done := make(chan struct{})
	defer close(done)
	chunks := readChunks(ptmx, done)

	t := &transcript{secret: passphrase}
	result := a.converse(ctx, chunks, t, func() error {
		_, err := ptmx.Write([]byte(passphrase + "\n"))
		return err
	})
	if result != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		a.opts.Logger.Debug("ssh-add aborted", "key", keyPath, "output", t.String())
		return result
	}

	waitErr := cmd.Wait()
	a.opts.Logger.Debug("ssh-add finished", "key", keyPath, "output", t.String())
	if waitErr != nil {
		if last := t.lastLine(); last != "" {
			return fmt.Errorf("ssh-add failed: %w: %s", waitErr, last)
		}
		return fmt.Errorf("ssh-add failed: %w", waitErr)
	}
	return nil
}

// converse waits for the prompt, types the passphrase through send and then
// watches the remaining output until ssh-add closes the terminal.
func (a *PTYAdder) converse(ctx context.Context, chunks <-chan []byte, t *transcript, send func() error) error {
	pattern := strings.ToLower(a.opts.PromptPattern)

	if pattern == "" {
		if err := sleep(ctx, a.opts.PromptDelay); err != nil {
			return err
		}
	} else {
		deadline := a.deadline()
		for !t.containsFold(pattern) {
			select {
			case chunk, ok := <-chunks:
				if !ok {
					// ssh-add exited without prompting, e.g. the key is not encrypted.
					return nil
				}
				t.write(chunk)
			case <-deadline:
				return ErrPromptTimeout
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	if err := send(); err != nil {
		return fmt.Errorf("failed to send passphrase: %w", err)
	}
	mark := t.len()

	deadline := a.deadline()
	for {
		select {
		case chunk, ok := <-chunks:
			if !ok {
				return nil
			}
			t.write(chunk)
			if strings.Contains(strings.ToLower(t.since(mark)), badPassphraseText) {
				return ErrBadPassphrase
			}
		case <-deadline:
			return fmt.Errorf("ssh-add did not finish: %w", ErrPromptTimeout)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// deadline returns a channel that fires after PromptTimeout, or never.
func (a *PTYAdder) deadline() <-chan time.Time {
	if a.opts.PromptTimeout <= 0 {
		return nil
	}
	return time.After(a.opts.PromptTimeout)
}

// readChunks copies terminal output to a channel until read fails or done closes.
func readChunks(f *os.File, done <-chan struct{}) <-chan []byte {
	out := make(chan []byte)
	go func() {
		defer close(out)
		buf := make([]byte, 1024)
		for {
			n, err := f.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				select {
				case out <- chunk:
				case <-done:
					return
				}
			}
			if err != nil {
				// EIO once the child side of the terminal is closed.
				return
			}
		}
	}()
	return out
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
