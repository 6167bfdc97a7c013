package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "drmem.toml")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestLoadMinimalConfig(t *testing.T) {
	p := writeTemp(t, `
log_level = "debug"

[[driver]]
name = "sump"
prefix = "sump:tank1"
`)
	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, LogDebug, cfg.LogLevel)
	require.Len(t, cfg.Driver, 1)
	assert.Equal(t, "sump", cfg.Driver[0].Name)
}

func TestLoadAppliesStreamsDefaults(t *testing.T) {
	p := writeTemp(t, `
[backend]
kind = "streams"

[[driver]]
name = "d"
prefix = "d"
`)
	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:6379", cfg.Backend.Streams.Addr)
}

func TestLoadRejectsDuplicateDriverNames(t *testing.T) {
	p := writeTemp(t, `
[[driver]]
name = "d"
prefix = "a"

[[driver]]
name = "d"
prefix = "b"
`)
	_, err := Load(p)
	require.Error(t, err)
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}

func TestLoadMergesDriverDefaultsUnderCfg(t *testing.T) {
	p := writeTemp(t, `
[driver_defaults]
poll_ms = 500
retries = 3

[[driver]]
name = "sump"
prefix = "sump:tank1"
[driver.cfg]
poll_ms = 100
`)
	cfg, err := Load(p)
	require.NoError(t, err)
	require.Len(t, cfg.Driver, 1)
	assert.Equal(t, int64(100), cfg.Driver[0].Cfg["poll_ms"])
	assert.Equal(t, int64(3), cfg.Driver[0].Cfg["retries"])
}

func TestLoadRejectsLogicBlockWithNoExprs(t *testing.T) {
	p := writeTemp(t, `
[[logic]]
name = "x"
`)
	_, err := Load(p)
	require.Error(t, err)
}
