//go:build !windows

package sshagent

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
)

// startAgent serves an in-memory keyring on a unix socket.
func startAgent(t *testing.T) (agent.Agent, string) {
	t.Helper()
	// Short directory: unix socket paths are limited to ~100 bytes.
	dir, err := os.MkdirTemp("", "agent")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })

	socket := filepath.Join(dir, "sock")
	l, err := net.Listen("unix", socket)
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })

	keyring := agent.NewKeyring()
	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			go func() {
				defer func() { _ = conn.Close() }()
				_ = agent.ServeAgent(keyring, conn)
			}()
		}
	}()
	return keyring, socket
}

func writePublicKey(t *testing.T, pub ed25519.PublicKey) string {
	t.Helper()
	sshPub, err := ssh.NewPublicKey(pub)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "id_ed25519.pub")
	require.NoError(t, os.WriteFile(path, ssh.MarshalAuthorizedKey(sshPub), 0o644))
	return path
}

func TestVerifier_Holds(t *testing.T) {
	keyring, socket := startAgent(t)
	v := NewVerifier(socket)
	require.NoError(t, v.Ping())

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	pubPath := writePublicKey(t, pub)

	held, err := v.Holds(pubPath)
	require.NoError(t, err)
	assert.False(t, held)

	require.NoError(t, keyring.Add(agent.AddedKey{PrivateKey: priv, Comment: "test"}))

	held, err = v.Holds(pubPath)
	require.NoError(t, err)
	assert.True(t, held)
}

func TestVerifier_Errors(t *testing.T) {
	t.Run("no socket", func(t *testing.T) {
		err := NewVerifier("").Ping()
		assert.True(t, errors.Is(err, ErrNoAgent))
	})

	t.Run("dead socket", func(t *testing.T) {
		err := NewVerifier(filepath.Join(t.TempDir(), "nope")).Ping()
		require.Error(t, err)
	})

	t.Run("missing public key", func(t *testing.T) {
		_, socket := startAgent(t)
		_, err := NewVerifier(socket).Holds(filepath.Join(t.TempDir(), "missing.pub"))
		assert.True(t, errors.Is(err, os.ErrNotExist))
	})

	t.Run("garbage public key", func(t *testing.T) {
		_, socket := startAgent(t)
		path := filepath.Join(t.TempDir(), "bad.pub")
		require.NoError(t, os.WriteFile(path, []byte("not a key"), 0o644))
		_, err := NewVerifier(socket).Holds(path)
		require.Error(t, err)
	})
}
