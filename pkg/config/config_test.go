package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir changes the working directory for the duration of the test.
// Equivalent to t.Chdir, which requires Go 1.24+.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Errorf("restore working directory: %v", err)
		}
	})
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir()) // no config.yaml present

	cfg, err := Load("test-version")
	require.NoError(t, err)

	assert.Equal(t, "test-version", cfg.Version)
	assert.Equal(t, "127.0.0.1", cfg.BindAddr)
	assert.Equal(t, "8090", cfg.Port)
	assert.Equal(t, "", cfg.DuckDB.Path)
	assert.Equal(t, 120, cfg.Worker.TimeoutSeconds)
	assert.Equal(t, 120*time.Second, cfg.Worker.Timeout())
	assert.Equal(t, 5, cfg.Digest.MaxFilters)
	assert.Equal(t, 8, cfg.Digest.MaxMetrics)
	assert.Equal(t, 2000, cfg.Digest.MaxChars)
	assert.False(t, cfg.LLM.Enabled())
}

func TestLoad_EnvOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("PORT", "9999")
	t.Setenv("LLM_PROVIDER", "openai")
	t.Setenv("LLM_MODEL", "gpt-4o-mini")
	t.Setenv("LLM_API_KEY", "sk-test")
	t.Setenv("WORKER_ARGS", "--mode,cluster")

	cfg, err := Load("v1")
	require.NoError(t, err)

	assert.Equal(t, "9999", cfg.Port)
	assert.True(t, cfg.LLM.Enabled())
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, []string{"--mode", "cluster"}, cfg.Worker.Args)
}

func TestLoad_RejectsNonPositiveTimeout(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("WORKER_TIMEOUT_SECONDS", "0")

	_, err := Load("v1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout_seconds")
}

func TestSplitArgs(t *testing.T) {
	assert.Nil(t, splitArgs(""))
	assert.Equal(t, []string{"a"}, splitArgs("a"))
	assert.Equal(t, []string{"a", "b"}, splitArgs("a,b"))
	assert.Equal(t, []string{"a", "b"}, splitArgs(" a , ,b "))
}
