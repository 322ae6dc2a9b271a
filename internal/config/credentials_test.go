package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohankatakam/neointerface/internal/logging"
)

func newTestCredentialManager(t *testing.T, input string) *CredentialManager {
	cm := NewCredentialManager(logging.Discard())
	cm.credsPath = filepath.Join(t.TempDir(), "credentials.yaml")
	cm.in = strings.NewReader(input)
	cm.out = &bytes.Buffer{}
	return cm
}

func TestGetPassword_EnvironmentWins(t *testing.T) {
	t.Setenv("NEO4J_PASSWORD", "from-env")
	cm := newTestCredentialManager(t, "")

	password, err := cm.GetPassword("neo4j", "bolt://localhost:7687")
	require.NoError(t, err)
	assert.Equal(t, "from-env", password)
}

func TestGetPassword_CredentialsFile(t *testing.T) {
	t.Setenv("NEO4J_PASSWORD", "")
	cm := newTestCredentialManager(t, "")
	if cm.keyring.IsAvailable() {
		t.Skip("keychain available; file fallback not reached")
	}

	require.NoError(t, cm.saveCredentialsFile(&Credentials{
		Passwords: map[string]string{"neo4j@bolt://db:7687": "from-file"},
	}))

	password, err := cm.GetPassword("neo4j", "bolt://db:7687")
	require.NoError(t, err)
	assert.Equal(t, "from-file", password)

	info, err := os.Stat(cm.credsPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestSaveAndDeletePassword_FileFallback(t *testing.T) {
	cm := newTestCredentialManager(t, "")
	if cm.keyring.IsAvailable() {
		t.Skip("keychain available; file fallback not reached")
	}

	where, err := cm.SavePassword("neo4j", "bolt://db:7687", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, cm.credsPath, where)

	creds, err := cm.loadCredentialsFile()
	require.NoError(t, err)
	assert.Equal(t, "s3cret", creds.Passwords["neo4j@bolt://db:7687"])

	require.NoError(t, cm.DeletePassword("neo4j", "bolt://db:7687"))
	creds, err = cm.loadCredentialsFile()
	require.NoError(t, err)
	assert.NotContains(t, creds.Passwords, "neo4j@bolt://db:7687")
}

func TestResolvePassword_SkipsWhenSetOrNoAuth(t *testing.T) {
	cm := newTestCredentialManager(t, "")

	cfg := Default()
	cfg.Neo4j.Password = "given"
	require.NoError(t, cm.ResolvePassword(cfg))
	assert.Equal(t, "given", cfg.Neo4j.Password)

	cfg = Default()
	cfg.Neo4j.NoAuth = true
	require.NoError(t, cm.ResolvePassword(cfg))
	assert.Empty(t, cfg.Neo4j.Password)
}

func TestPromptPassword_PipedInput(t *testing.T) {
	cm := newTestCredentialManager(t, "  hunter2 \n")

	password, err := cm.PromptPassword("Password: ")
	require.NoError(t, err)
	assert.Equal(t, "hunter2", password)
	assert.Equal(t, "Password: ", cm.out.(*bytes.Buffer).String())
}

func TestKeyringManager_RoundTrip(t *testing.T) {
	km := NewKeyringManager(logging.Discard())
	if !km.IsAvailable() {
		t.Skip("Keychain not available, skipping test")
	}

	user, host := "neoi-test", "bolt://keyring-test:7687"
	defer km.DeletePassword(user, host)

	require.NoError(t, km.SavePassword(user, host, "pw"))
	got, err := km.GetPassword(user, host)
	require.NoError(t, err)
	assert.Equal(t, "pw", got)

	require.NoError(t, km.DeletePassword(user, host))
	got, err = km.GetPassword(user, host)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestKeyringManager_EmptyPasswordRejected(t *testing.T) {
	km := NewKeyringManager(logging.Discard())
	assert.Error(t, km.SavePassword("neo4j", "bolt://x:7687", ""))
}
