package sshagent

import (
	"strings"
)

// transcript collects terminal output with the passphrase masked.
type transcript struct {
	secret string
	buf    strings.Builder
}

func (t *transcript) write(p []byte) {
	t.buf.Write(p)
}

func (t *transcript) len() int {
	return t.buf.Len()
}

func (t *transcript) since(offset int) string {
	s := t.buf.String()
	if offset >= len(s) {
		return ""
	}
	return s[offset:]
}

func (t *transcript) containsFold(lowerSubstr string) bool {
	return strings.Contains(strings.ToLower(t.buf.String()), lowerSubstr)
}

// String returns the output with the passphrase replaced.
func (t *transcript) String() string {
	s := strings.TrimSpace(t.buf.String())
	if t.secret != "" {
		s = strings.ReplaceAll(s, t.secret, "********")
	}
	return s
}

// lastLine returns the last non-empty output line.
func (t *transcript) lastLine() string {
	lines := strings.Split(strings.ReplaceAll(t.String(), "\r", ""), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return ""
}
