package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "adder.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, "recursion_limit: 500\ncheck_interval: 64\ntimeout_ms: 2000\n")
	l, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 500, l.RecursionLimit)
	assert.Equal(t, 64, l.CheckInterval)
	assert.Equal(t, 2000, l.TimeoutMS)
}

func TestLoadPartial(t *testing.T) {
	path := writeConfig(t, "recursion_limit: 100\n")
	l, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 100, l.RecursionLimit)
	assert.Zero(t, l.CheckInterval)
	assert.Zero(t, l.TimeoutMS)
}

func TestLoadRejectsNegative(t *testing.T) {
	path := writeConfig(t, "timeout_ms: -5\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.ErrorContains(t, err, "negative")
}

func TestLoadRejectsBadYaml(t *testing.T) {
	path := writeConfig(t, "recursion_limit: [not an int\n")
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadIfPresentMissingFile(t *testing.T) {
	l, err := LoadIfPresent(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), l)
}
