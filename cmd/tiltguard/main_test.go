package main

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/goliatone/go-tiltguard/auth"
	"github.com/goliatone/go-tiltguard/client"
)

func TestMain(m *testing.M) {
	auth.PasswordHashCost = bcrypt.MinCost
	os.Exit(m.Run())
}

func writeConfig(t *testing.T, extra string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "tiltguard.toml")
	body := fmt.Sprintf(`
[auth]
signing_key = "cli-test-secret"

[persistence]
driver = "sqlite"
dsn = "file:%s?cache=shared"

[log]
level = "error"
%s`, filepath.Join(dir, "tiltguard.db"), extra)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestConfigCommandMasksSecrets(t *testing.T) {
	path := writeConfig(t, "")

	out, err := run(t, "config", "--config", path)
	require.NoError(t, err)
	assert.NotContains(t, out, "cli-test-secret")
	assert.Contains(t, out, "tiltguard.db")
}

func TestConfigCommandRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, "\n[server]\nport = 1\n")

	_, err := run(t, "config", "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port")
}

func TestMigrateAndSeed(t *testing.T) {
	path := writeConfig(t, "")

	_, err := run(t, "migrate", "--config", path)
	require.NoError(t, err)

	out, err := run(t, "seed", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "created 5 users, skipped 0")
	assert.Contains(t, out, "+ juan@example.com")

	out, err = run(t, "seed", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "created 0 users, skipped 5")

	out, err = run(t, "seed", "--config", path, "--clean")
	require.NoError(t, err)
	assert.Contains(t, out, "removed 5 users")
	assert.Contains(t, out, "created 5 users")

	out, err = run(t, "migrate", "--config", path, "--rollback")
	require.NoError(t, err)
	assert.Contains(t, out, "rolled back")
}

func TestWatchOnceAgainstServer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	apiURL := "http://" + ln.Addr().String() + "/api"

	path := writeConfig(t, fmt.Sprintf(`
[client]
api_url = %q
email = "maria@example.com"
password = "password123"
`, apiURL))

	_, err = run(t, "seed", "--config", path)
	require.NoError(t, err)

	a := &app{configPath: path}
	require.NoError(t, a.init())

	ctx := context.Background()
	db, err := a.openDB(ctx)
	require.NoError(t, err)
	st, err := a.buildStack(ctx, db)
	require.NoError(t, err)
	defer st.Close()

	go func() { _ = st.server.App().Listener(ln) }()
	defer func() { _ = st.server.Shutdown(ctx) }()

	out, err := run(t, "watch", "--once", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "blocked: false")

	c := client.New(apiURL)
	_, err = c.Login(ctx, "maria@example.com", "password123")
	require.NoError(t, err)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+"/blocking/activate", strings.NewReader(`{"duration":"day"}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.Token())
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	out, err = run(t, "watch", "--once", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "risk settings blocked until")
	assert.Contains(t, out, "blocked: true")
}
