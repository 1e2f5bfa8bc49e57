package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/joao-cognition/devin-workshop/pkg/types"
)

func TestDefaultConfigYAMLParses(t *testing.T) {
	var cfg types.Config
	require.NoError(t, yaml.Unmarshal([]byte(defaultConfigYAML), &cfg))

	assert.Equal(t, types.BackendSQLite, cfg.Backend)
	// Everything else ships commented out.
	assert.Empty(t, cfg.DataDir)
	assert.Empty(t, cfg.SinkDSN)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigCreatesDefaultFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "config")

	v, err := loadConfig(dir)
	require.NoError(t, err)

	path := filepath.Join(dir, configFileExt)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, defaultConfigYAML, string(data))

	cfg := configFromViper(v)
	assert.Equal(t, types.BackendSQLite, cfg.Backend)
	assert.Equal(t, defaultProject, cfg.Project)
}

func TestLoadConfigKeepsExistingFile(t *testing.T) {
	dir := t.TempDir()
	custom := "backend: sqlite\nproject: billing\nwindow_days: 14\nlisten_addr: :9000\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFileExt), []byte(custom), 0o644))

	v, err := loadConfig(dir)
	require.NoError(t, err)

	cfg := configFromViper(v)
	assert.Equal(t, "billing", cfg.Project)
	assert.Equal(t, 14, cfg.WindowDays)
	assert.Equal(t, ":9000", cfg.ListenAddr)
}

func TestParseSince(t *testing.T) {
	abs, err := parseSince("2026-03-14T10:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC), abs)

	rel, err := parseSince("48h")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC().Add(-48*time.Hour), rel, 5*time.Second)

	_, err = parseSince("not-a-time")
	require.Error(t, err)
	var ue usageError
	assert.True(t, errors.As(err, &ue))
}
