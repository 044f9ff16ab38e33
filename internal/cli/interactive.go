package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/bwssh/bwssh/pkg/bwssh/keymap"
	"golang.org/x/term"
)

// MappingPasswordEnv holds the password of an encrypted mapping file.
const MappingPasswordEnv = "BWSSH_MAPPING_PASSWORD"

// ErrNoTerminal is returned when a password is needed but nothing can prompt for it
var ErrNoTerminal = errors.New("standard input is not a terminal")

// mappingPassword returns the password source for encrypted mapping files.
// The environment wins; otherwise the user is prompted without echo.
func mappingPassword(tty *os.File, prompt io.Writer) keymap.PasswordFunc {
	return func() ([]byte, error) {
		if pw, ok := os.LookupEnv(MappingPasswordEnv); ok && pw != "" {
			return []byte(pw), nil
		}
		if tty == nil || !term.IsTerminal(int(tty.Fd())) {
			return nil, fmt.Errorf("%w; set %s", ErrNoTerminal, MappingPasswordEnv)
		}

		_, _ = fmt.Fprint(prompt, "Mapping file password: ")
		pw, err := term.ReadPassword(int(tty.Fd()))
		_, _ = fmt.Fprintln(prompt)
		if err != nil {
			return nil, fmt.Errorf("failed to read password: %w", err)
		}
		return pw, nil
	}
}
