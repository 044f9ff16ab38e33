package cli

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/bwssh/bwssh/internal/xdg"
	"github.com/bwssh/bwssh/pkg/bwssh/bitwarden"
	"github.com/bwssh/bwssh/pkg/bwssh/config"
	"github.com/bwssh/bwssh/pkg/bwssh/output"
	"github.com/bwssh/bwssh/pkg/bwssh/runlock"
	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeVault struct {
	sessionErr error
	syncErr    error
	listErr    error
	lockErr    error
	items      []bitwarden.Item

	calls      []string
	preset     string
	listFolder string
	locked     []bitwarden.Session
	lockCtxErr error
}

func (v *fakeVault) Session(_ context.Context, preset string) (bitwarden.Session, error) {
	v.calls = append(v.calls, "session")
	v.preset = preset
	if v.sessionErr != nil {
		return bitwarden.Session{}, v.sessionErr
	}
	if preset != "" {
		return bitwarden.NewSession(preset, bitwarden.SourceEnvironment), nil
	}
	return bitwarden.NewSession("unlocked-token", bitwarden.SourceUnlock), nil
}

func (v *fakeVault) Sync(ctx context.Context, _ bitwarden.Session) error {
	v.calls = append(v.calls, "sync")
	if err := ctx.Err(); err != nil {
		return err
	}
	return v.syncErr
}

func (v *fakeVault) FolderItems(_ context.Context, _ bitwarden.Session, folderID string) ([]bitwarden.Item, error) {
	v.calls = append(v.calls, "list")
	v.listFolder = folderID
	if v.listErr != nil {
		return nil, v.listErr
	}
	return v.items, nil
}

func (v *fakeVault) Lock(ctx context.Context, s bitwarden.Session) error {
	v.calls = append(v.calls, "lock")
	v.locked = append(v.locked, s)
	v.lockCtxErr = ctx.Err()
	return v.lockErr
}

func (v *fakeVault) count(call string) int {
	n := 0
	for _, c := range v.calls {
		if c == call {
			n++
		}
	}
	return n
}

type addCall struct {
	path       string
	passphrase string
}

type fakeAdder struct {
	fail  map[string]error
	calls []addCall
}

func (a *fakeAdder) Add(_ context.Context, keyPath, passphrase string) error {
	a.calls = append(a.calls, addCall{path: keyPath, passphrase: passphrase})
	return a.fail[keyPath]
}

type fakeVerifier struct {
	pingErr error
	held    map[string]bool
	checked []string
}

func (v *fakeVerifier) Ping() error {
	return v.pingErr
}

func (v *fakeVerifier) Holds(pubKeyPath string) (bool, error) {
	v.checked = append(v.checked, pubKeyPath)
	held, ok := v.held[pubKeyPath]
	if !ok {
		return false, &fs.PathError{Op: "open", Path: pubKeyPath, Err: fs.ErrNotExist}
	}
	return held, nil
}

type testEnv struct {
	cli   *CLI
	vault *fakeVault
	adder *fakeAdder
	logs  *bytes.Buffer
}

// newTestEnv builds a CLI around fakes. mapping is the CSV content and
// existing lists the key files that exist.
func newTestEnv(t *testing.T, mapping string, items []bitwarden.Item, existing ...string) *testEnv {
	t.Helper()

	dir := t.TempDir()
	mappingPath := filepath.Join(dir, "keys.csv")
	require.NoError(t, os.WriteFile(mappingPath, []byte(mapping), 0o600))

	cfg := config.DefaultConfig()
	cfg.FolderID = "folder-1"
	cfg.Mapping = mappingPath

	files := make(map[string]bool, len(existing))
	for _, p := range existing {
		files[p] = true
	}

	logs := &bytes.Buffer{}
	vault := &fakeVault{items: items}
	adder := &fakeAdder{}

	return &testEnv{
		cli: &CLI{
			config:   cfg,
			xdgPaths: xdg.Paths{ConfigHome: dir, StateHome: filepath.Join(dir, "state")},
			vault:    vault,
			adder:    adder,
			stat: func(name string) (os.FileInfo, error) {
				if files[name] {
					return nil, nil
				}
				return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrNotExist}
			},
			logger: hclog.New(&hclog.LoggerOptions{
				Name:   "bwssh",
				Output: logs,
				Level:  hclog.Debug,
			}),
		},
		vault: vault,
		adder: adder,
		logs:  logs,
	}
}

func item(id, name string, password *string) bitwarden.Item {
	return bitwarden.Item{ID: id, Name: name, Login: &bitwarden.Login{Password: password}}
}

func ptr(s string) *string {
	return &s
}

func exitCode(err error) ExitCode {
	var outErr *output.Error
	if errors.As(err, &outErr) {
		return outErr.ExitCode()
	}
	return ExitGeneralError
}

func TestRunImportsMappedKey(t *testing.T) {
	env := newTestEnv(t, "item1,/keys/id_rsa\n",
		[]bitwarden.Item{item("item1", "k1", ptr("secret"))},
		"/keys/id_rsa")

	report, err := env.cli.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, env.adder.calls, 1)
	assert.Equal(t, addCall{path: "/keys/id_rsa", passphrase: "secret"}, env.adder.calls[0])
	assert.Equal(t, []string{"k1"}, report.Added)
	assert.Empty(t, report.Skipped)
	assert.NoError(t, report.Err())

	assert.Equal(t, []string{"session", "sync", "list", "lock"}, env.vault.calls)
	assert.Equal(t, "folder-1", env.vault.listFolder)
	assert.NotContains(t, env.logs.String(), "secret")
}

func TestRunUnmappedItem(t *testing.T) {
	env := newTestEnv(t, "",
		[]bitwarden.Item{item("item2", "k2", ptr("x"))})

	report, err := env.cli.Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, env.adder.calls)
	assert.Equal(t, []string{"k2"}, report.Skipped)
	assert.Equal(t, 1, bytes.Count(env.logs.Bytes(), []byte("path not found")))
	assert.Contains(t, env.logs.String(), "item=k2")
}

func TestRunMissingPassphrase(t *testing.T) {
	env := newTestEnv(t, "item1,/keys/a\nitem2,/keys/b\n",
		[]bitwarden.Item{
			item("item1", "null-password", nil),
			{ID: "item2", Name: "no-login"},
		},
		"/keys/a", "/keys/b")

	report, err := env.cli.Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, env.adder.calls)
	assert.Len(t, report.Skipped, 2)
	assert.Equal(t, 2, bytes.Count(env.logs.Bytes(), []byte("passphrase not found")))
}

func TestRunEmptyPassphraseIsAttempted(t *testing.T) {
	env := newTestEnv(t, "item1,/keys/a\n",
		[]bitwarden.Item{item("item1", "empty-password", ptr(""))},
		"/keys/a")

	report, err := env.cli.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, env.adder.calls, 1)
	assert.Equal(t, addCall{path: "/keys/a", passphrase: ""}, env.adder.calls[0])
	assert.Equal(t, []string{"empty-password"}, report.Added)
	assert.NotContains(t, env.logs.String(), "passphrase not found")
}

func TestRunMissingKeyFile(t *testing.T) {
	env := newTestEnv(t, "item1,/keys/gone\n",
		[]bitwarden.Item{item("item1", "k1", ptr("secret"))})

	report, err := env.cli.Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, env.adder.calls)
	assert.Equal(t, []string{"k1"}, report.Skipped)
	assert.Contains(t, env.logs.String(), "private key does not exist")
	assert.Contains(t, env.logs.String(), "path=/keys/gone")
}

func TestRunUnreadableKeyFile(t *testing.T) {
	env := newTestEnv(t, "item1,/keys/locked\n",
		[]bitwarden.Item{item("item1", "k1", ptr("secret"))})
	env.cli.stat = func(name string) (os.FileInfo, error) {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrPermission}
	}

	report, err := env.cli.Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, env.adder.calls)
	assert.Equal(t, []string{"k1"}, report.Skipped)
	assert.Contains(t, env.logs.String(), "cannot access private key")
	assert.Contains(t, env.logs.String(), "permission denied")
	assert.NotContains(t, env.logs.String(), "does not exist")
}

func TestRunAddFailureContinues(t *testing.T) {
	env := newTestEnv(t, "item1,/keys/a\nitem2,/keys/b\n",
		[]bitwarden.Item{
			item("item1", "k1", ptr("one")),
			item("item2", "k2", ptr("two")),
		},
		"/keys/a", "/keys/b")
	env.adder.fail = map[string]error{"/keys/a": errors.New("ssh-add exited with status 1")}

	report, err := env.cli.Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, env.adder.calls, 2)
	assert.Equal(t, []string{"k2"}, report.Added)
	require.Len(t, report.Failed(), 1)
	assert.ErrorContains(t, report.Err(), "k1")
	assert.Contains(t, env.logs.String(), "could not add key to the SSH agent")
	assert.Equal(t, 1, env.vault.count("lock"))
}

func TestRunSessionFailure(t *testing.T) {
	env := newTestEnv(t, "item1,/keys/id_rsa\n",
		[]bitwarden.Item{item("item1", "k1", ptr("secret"))},
		"/keys/id_rsa")
	env.vault.sessionErr = errors.New("bw unlock failed: exit status 1")

	report, err := env.cli.Run(context.Background())
	require.Error(t, err)
	assert.Nil(t, report)
	assert.Equal(t, ExitAuthError, exitCode(err))

	assert.Equal(t, []string{"session"}, env.vault.calls)
	assert.Empty(t, env.adder.calls)
}

func TestRunLocksOnceOnFatalErrors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(v *fakeVault)
		calls []string
	}{
		{
			name:  "sync fails",
			setup: func(v *fakeVault) { v.syncErr = errors.New("network down") },
			calls: []string{"session", "sync", "lock"},
		},
		{
			name:  "list fails",
			setup: func(v *fakeVault) { v.listErr = errors.New("not json") },
			calls: []string{"session", "sync", "list", "lock"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, "item1,/keys/id_rsa\n", nil)
			tt.setup(env.vault)

			_, err := env.cli.Run(context.Background())
			require.Error(t, err)
			assert.Equal(t, ExitVaultError, exitCode(err))
			assert.Equal(t, tt.calls, env.vault.calls)
			assert.Equal(t, 1, env.vault.count("lock"))
		})
	}
}

func TestRunLockFailure(t *testing.T) {
	t.Run("reported after success", func(t *testing.T) {
		env := newTestEnv(t, "", nil)
		env.vault.lockErr = errors.New("lock failed")

		_, err := env.cli.Run(context.Background())
		require.Error(t, err)
		assert.True(t, errors.Is(err, output.NewError(output.CodeVaultLockFailed, "")))
		assert.Contains(t, env.logs.String(), "failed to lock vault")
	})

	t.Run("does not mask earlier error", func(t *testing.T) {
		env := newTestEnv(t, "", nil)
		env.vault.syncErr = errors.New("sync failed")
		env.vault.lockErr = errors.New("lock failed")

		_, err := env.cli.Run(context.Background())
		require.Error(t, err)
		assert.True(t, errors.Is(err, output.NewError(output.CodeVaultSyncFailed, "")))
	})
}

func TestRunPresetSession(t *testing.T) {
	env := newTestEnv(t, "", nil)
	env.cli.session = "preset-token"

	_, err := env.cli.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "preset-token", env.vault.preset)
	require.Len(t, env.vault.locked, 1)
	assert.Equal(t, bitwarden.SourceEnvironment, env.vault.locked[0].Source())
	assert.NotContains(t, env.logs.String(), "preset-token")
}

func TestRunCancelledStillLocks(t *testing.T) {
	env := newTestEnv(t, "", nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := env.cli.Run(ctx)
	require.Error(t, err)
	assert.Equal(t, 1, env.vault.count("lock"))
	assert.NoError(t, env.vault.lockCtxErr)
}

func TestRunMappingExtraColumns(t *testing.T) {
	env := newTestEnv(t, "item1,/keys/id_rsa,work laptop\n",
		[]bitwarden.Item{item("item1", "k1", ptr("secret"))},
		"/keys/id_rsa")

	_, err := env.cli.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, env.adder.calls, 1)
	assert.Equal(t, "/keys/id_rsa", env.adder.calls[0].path)
}

func TestRunMappingErrors(t *testing.T) {
	t.Run("malformed", func(t *testing.T) {
		env := newTestEnv(t, "item1\n", nil)

		_, err := env.cli.Run(context.Background())
		require.Error(t, err)
		assert.Equal(t, ExitConfigError, exitCode(err))
		assert.Empty(t, env.vault.calls)
	})

	t.Run("missing", func(t *testing.T) {
		env := newTestEnv(t, "", nil)
		env.cli.config.Mapping = filepath.Join(t.TempDir(), "absent.csv")

		_, err := env.cli.Run(context.Background())
		require.Error(t, err)
		assert.Equal(t, ExitConfigError, exitCode(err))
		assert.Empty(t, env.vault.calls)
	})
}

func TestRunAlreadyRunning(t *testing.T) {
	env := newTestEnv(t, "", nil)

	held, err := runlock.Acquire(env.cli.xdgPaths.LockPath())
	require.NoError(t, err)
	defer func() { _ = held.Release() }()

	_, err = env.cli.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRunLocked)
	assert.Equal(t, ExitGeneralError, exitCode(err))
	assert.Empty(t, env.vault.calls)
}

func TestRunVerifiesAgent(t *testing.T) {
	t.Run("checks public key after add", func(t *testing.T) {
		env := newTestEnv(t, "item1,/keys/a\nitem2,/keys/b\n",
			[]bitwarden.Item{
				item("item1", "k1", ptr("one")),
				item("item2", "k2", ptr("two")),
			},
			"/keys/a", "/keys/b")
		verifier := &fakeVerifier{held: map[string]bool{"/keys/a.pub": true}}
		env.cli.verifier = verifier

		_, err := env.cli.Run(context.Background())
		require.NoError(t, err)

		assert.Equal(t, []string{"/keys/a.pub", "/keys/b.pub"}, verifier.checked)
		assert.Contains(t, env.logs.String(), "key listed by agent")
		assert.Contains(t, env.logs.String(), "no public key next to private key")
	})

	t.Run("unreachable agent warns once", func(t *testing.T) {
		env := newTestEnv(t, "item1,/keys/a\nitem2,/keys/b\n",
			[]bitwarden.Item{
				item("item1", "k1", ptr("one")),
				item("item2", "k2", ptr("two")),
			},
			"/keys/a", "/keys/b")
		verifier := &fakeVerifier{pingErr: errors.New("connection refused")}
		env.cli.verifier = verifier

		report, err := env.cli.Run(context.Background())
		require.NoError(t, err)

		assert.Len(t, report.Added, 2)
		assert.Empty(t, verifier.checked)
		assert.Equal(t, 1, bytes.Count(env.logs.Bytes(), []byte("ssh-agent is not reachable")))
	})
}
