package keymap

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ProtonMail/go-crypto/openpgp/armor"
	"github.com/ProtonMail/gopenpgp/v3/crypto"
)

// ErrDecrypt is returned when an encrypted mapping cannot be opened.
var ErrDecrypt = errors.New("failed to decrypt mapping")

// PasswordFunc supplies the password of an encrypted mapping file.
type PasswordFunc func() ([]byte, error)

// Option configures Load.
type Option func(*loadOptions)

type loadOptions struct {
	password PasswordFunc
}

// WithPassword sets the password source used when the mapping file is an
// armored, password-encrypted OpenPGP message.
func WithPassword(fn PasswordFunc) Option {
	return func(o *loadOptions) {
		o.password = fn
	}
}

// Load reads the mapping at path. Armored OpenPGP messages are decrypted
// with the WithPassword source first. Relative key paths are resolved
// against the directory of the mapping file.
func Load(path string, opts ...Option) (*Mapping, error) {
	var o loadOptions
	for _, opt := range opts {
		opt(&o)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read mapping: %w", err)
	}

	if IsEncrypted(data) {
		data, err = decrypt(data, o.password)
		if err != nil {
			return nil, err
		}
	}

	m, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	base := filepath.Dir(path)
	for i, e := range m.entries {
		if !filepath.IsAbs(e.Path) {
			m.entries[i].Path = filepath.Join(base, e.Path)
		}
	}
	return New(m.entries...), nil
}

// IsEncrypted reports whether data is an ASCII-armored OpenPGP message.
func IsEncrypted(data []byte) bool {
	block, err := armor.Decode(bytes.NewReader(data))
	return err == nil && block.Type == "PGP MESSAGE"
}

// decrypt opens a password-encrypted armored message.
func decrypt(data []byte, password PasswordFunc) ([]byte, error) {
	if password == nil {
		return nil, fmt.Errorf("%w: mapping is encrypted and no password source is configured", ErrDecrypt)
	}

	pw, err := password()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	defer clear(pw)

	decHandle, err := crypto.PGP().Decryption().Password(pw).New()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}

	plaintext, err := decHandle.Decrypt(data, crypto.Armor)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	return plaintext.Bytes(), nil
}
