package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "relwatch.db", cfg.DBPath)
	assert.Equal(t, 10, cfg.Workers)
	assert.Equal(t, 20*time.Second, cfg.FetchTimeout)
	assert.Equal(t, uint64(1), cfg.MaxRetries)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("RELWATCH_DB_PATH", "/tmp/test.db")
	t.Setenv("RELWATCH_WORKERS", "4")
	t.Setenv("RELWATCH_FETCH_TIMEOUT", "5s")
	t.Setenv("RELWATCH_WEBHOOK_URL", "https://hooks.example.org/releases")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/test.db", cfg.DBPath)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 5*time.Second, cfg.FetchTimeout)
	assert.Equal(t, "https://hooks.example.org/releases", cfg.WebhookURL)
}

func TestLoad_RejectsBadWorkers(t *testing.T) {
	t.Setenv("RELWATCH_WORKERS", "0")
	_, err := Load()
	assert.Error(t, err)
}

const seedYAML = `projects:
  - name: requests
    ecosystem: pypi
    homepage: https://requests.readthedocs.io
  - name: gnash
    backend: folder
    version_url: https://ftp.gnu.org/gnu/gnash/
    version_prefix: gnash-
    insecure: true
    fetch_timeout: 30s
`

func TestLoadSeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(seedYAML), 0o644))

	projects, err := LoadSeed(path)
	require.NoError(t, err)
	require.Len(t, projects, 2)

	assert.Equal(t, "requests", projects[0].Name)
	assert.Equal(t, "pypi", projects[0].Ecosystem)

	assert.Equal(t, "folder", projects[1].Backend)
	assert.Equal(t, "gnash-", projects[1].VersionPrefix)
	assert.True(t, projects[1].Insecure)
	assert.Equal(t, 30*time.Second, projects[1].FetchTimeout)
}

func TestLoadSeed_RequiresName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte("projects:\n  - ecosystem: pypi\n"), 0o644))

	_, err := LoadSeed(path)
	assert.Error(t, err)
}
