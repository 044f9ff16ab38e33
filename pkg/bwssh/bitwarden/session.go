package bitwarden

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrEmptySession is returned when login or unlock prints no token.
var ErrEmptySession = errors.New("bw returned an empty session token")

// Source records where a session token came from.
type Source int

const (
	SourceNone Source = iota
	SourceEnvironment
	SourceLogin
	SourceUnlock
)

func (s Source) String() string {
	switch s {
	case SourceEnvironment:
		return "environment"
	case SourceLogin:
		return "login"
	case SourceUnlock:
		return "unlock"
	default:
		return "none"
	}
}

// Session is an unlocked vault handle. Its String form never contains the token.
type Session struct {
	token  string
	source Source
}

// NewSession wraps a raw token.
func NewSession(token string, source Source) Session {
	return Session{token: strings.TrimSpace(token), source: source}
}

// Valid reports whether the session carries a token.
func (s Session) Valid() bool {
	return s.token != ""
}

// Source returns where the token came from.
func (s Session) Source() Source {
	return s.source
}

func (s Session) String() string {
	if !s.Valid() {
		return "session(none)"
	}
	return fmt.Sprintf("session(%s)", s.source)
}

// Session returns a usable session. A non-empty preset token, usually the
// caller's BW_SESSION, is returned as is. Otherwise the CLI is asked
// whether it is logged in and then runs an interactive login or unlock.
func (c *Client) Session(ctx context.Context, preset string) (Session, error) {
	if s := NewSession(preset, SourceEnvironment); s.Valid() {
		c.logger.Debug("existing Bitwarden session found")
		return s, nil
	}

	loggedIn, err := c.LoggedIn(ctx)
	if err != nil {
		return Session{}, err
	}

	args := []string{"unlock", "--raw"}
	source := SourceUnlock
	if loggedIn {
		c.logger.Debug("Bitwarden vault is locked")
	} else {
		c.logger.Debug("not logged into Bitwarden")
		args = []string{"login"}
		if c.account != "" {
			args = append(args, c.account)
		}
		args = append(args, "--raw")
		source = SourceLogin
	}

	out, err := c.run(ctx, Session{}, Invocation{Args: args, Interactive: true})
	if err != nil {
		return Session{}, fmt.Errorf("bw %s failed: %w", source, err)
	}

	s := NewSession(string(out), source)
	if !s.Valid() {
		return Session{}, ErrEmptySession
	}
	return s, nil
}

// LoggedIn runs the quiet login probe. A non-zero exit means not logged in.
func (c *Client) LoggedIn(ctx context.Context) (bool, error) {
	args := []string{"login", "--check", "--quiet"}
	if c.features.Supports(ctx, FeatureNoInteraction) {
		args = append(args, "--nointeraction")
	}

	_, err := c.run(ctx, Session{}, Invocation{Args: args})
	var cmdErr *CommandError
	switch {
	case err == nil:
		return true, nil
	case errors.As(err, &cmdErr):
		return false, nil
	default:
		return false, err
	}
}

// Lock locks the vault, invalidating s.
func (c *Client) Lock(ctx context.Context, s Session) error {
	if !s.Valid() {
		return nil
	}
	if _, err := c.run(ctx, s, Invocation{Args: []string{"lock"}}); err != nil {
		return fmt.Errorf("failed to lock vault: %w", err)
	}
	return nil
}
