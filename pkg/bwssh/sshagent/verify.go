package sshagent

import (
	"bytes"
	"errors"
	"fmt"
	"net"
	"os"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
)

// ErrNoAgent is returned when no agent socket is configured.
var ErrNoAgent = errors.New("SSH_AUTH_SOCK is not set")

// Verifier inspects the keys held by a running agent.
type Verifier struct {
	socket string
}

// NewVerifier returns a Verifier for the agent listening on socket,
// usually the value of SSH_AUTH_SOCK.
func NewVerifier(socket string) *Verifier {
	return &Verifier{socket: socket}
}

func (v *Verifier) dial() (agent.ExtendedAgent, net.Conn, error) {
	if v.socket == "" {
		return nil, nil, ErrNoAgent
	}
	conn, err := net.Dial("unix", v.socket)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to ssh-agent: %w", err)
	}
	return agent.NewClient(conn), conn, nil
}

// Ping checks that the agent answers a key list request.
func (v *Verifier) Ping() error {
	client, conn, err := v.dial()
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	if _, err := client.List(); err != nil {
		return fmt.Errorf("ssh-agent did not answer: %w", err)
	}
	return nil
}

// Holds reports whether the agent holds the public key stored at
// pubKeyPath in authorized_keys format.
func (v *Verifier) Holds(pubKeyPath string) (bool, error) {
	data, err := os.ReadFile(pubKeyPath)
	if err != nil {
		return false, fmt.Errorf("failed to read public key: %w", err)
	}
	pub, _, _, _, err := ssh.ParseAuthorizedKey(data)
	if err != nil {
		return false, fmt.Errorf("failed to parse public key %s: %w", pubKeyPath, err)
	}

	client, conn, err := v.dial()
	if err != nil {
		return false, err
	}
	defer func() { _ = conn.Close() }()

	keys, err := client.List()
	if err != nil {
		return false, fmt.Errorf("failed to list agent keys: %w", err)
	}
	want := pub.Marshal()
	for _, k := range keys {
		if bytes.Equal(k.Marshal(), want) {
			return true, nil
		}
	}
	return false, nil
}
