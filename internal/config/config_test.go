package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolateEnv points HOME at an empty directory and clears the DOCSUP_*
// variables so ambient configuration cannot leak into a test.
func isolateEnv(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, key := range []string{
		"DOCSUP_USERNAME", "DOCSUP_PASSWORD", "DOCSUP_TOKEN",
		"DOCSUP_PROTOCOL", "DOCSUP_HOST", "DOCSUP_CONFLICT",
		"DOCSUP_ENVIRONMENT",
	} {
		t.Setenv(key, "")
	}
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	isolateEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https", cfg.Protocol)
	assert.Equal(t, "docs.google.com", cfg.Host)
	assert.Equal(t, "development", cfg.Environment)
	assert.Empty(t, cfg.Username)
	assert.Empty(t, cfg.Conflict)
	assert.Equal(t, "https://docs.google.com", cfg.BaseURL())
}

func TestLoad_FromEnvironment(t *testing.T) {
	isolateEnv(t)
	t.Setenv("DOCSUP_USERNAME", "alice")
	t.Setenv("DOCSUP_TOKEN", "tok-1")
	t.Setenv("DOCSUP_HOST", "feed.internal")
	t.Setenv("DOCSUP_PROTOCOL", "http")
	t.Setenv("DOCSUP_CONFLICT", "skip-all")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "alice", cfg.Username)
	assert.Equal(t, "tok-1", cfg.Token)
	assert.Equal(t, "skip-all", cfg.Conflict)
	assert.Equal(t, "http://feed.internal", cfg.BaseURL())
}

func TestLoad_FromFile(t *testing.T) {
	isolateEnv(t)
	path := writeConfigFile(t, `
username: bob
host: feed.example.com
conflict: add-all
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "bob", cfg.Username)
	assert.Equal(t, "feed.example.com", cfg.Host)
	assert.Equal(t, "add-all", cfg.Conflict)
	assert.Equal(t, "https", cfg.Protocol, "unset file fields fall back to defaults")
}

func TestLoad_EnvironmentWinsOverFile(t *testing.T) {
	isolateEnv(t)
	t.Setenv("DOCSUP_USERNAME", "alice")
	path := writeConfigFile(t, `
username: bob
host: feed.example.com
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "alice", cfg.Username)
	assert.Equal(t, "feed.example.com", cfg.Host, "file still fills fields the environment left empty")
}

func TestLoad_ExplicitMissingFileIsFatal(t *testing.T) {
	isolateEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.Error(t, err)
}

func TestLoad_DefaultMissingFileIgnored(t *testing.T) {
	isolateEnv(t)

	_, err := Load("")
	require.NoError(t, err)
}

func TestLoad_DefaultPathPickedUp(t *testing.T) {
	isolateEnv(t)
	home := os.Getenv("HOME")
	require.NoError(t, os.MkdirAll(filepath.Join(home, ".docsup"), 0o700))
	require.NoError(t, os.WriteFile(
		filepath.Join(home, ".docsup", "config.yaml"),
		[]byte("username: carol\n"), 0o600,
	))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "carol", cfg.Username)
}

func TestLoad_MalformedFile(t *testing.T) {
	isolateEnv(t)
	path := writeConfigFile(t, "username: [unclosed")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config file")
}

func TestLoad_InvalidConflictPolicy(t *testing.T) {
	isolateEnv(t)
	t.Setenv("DOCSUP_CONFLICT", "overwrite")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid conflict policy")
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("HOME", "/home/alice")
	assert.Equal(t, filepath.Join("/home/alice", ".docsup", "config.yaml"), DefaultPath())
}
