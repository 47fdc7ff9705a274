package config

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CLUSTER_NAME", "prod-eu")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "prod-eu", cfg.ClusterName)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "default", cfg.Namespace)
	assert.Equal(t, 30*time.Second, cfg.ToolTimeout)
	assert.Equal(t, "/vault/secrets/kubectl.ini", cfg.KubeconfigINIPath)
	assert.Equal(t, int64(50), cfg.LogTailLines)
	assert.Equal(t, 80, cfg.MemoryThresholdPercent)
	assert.Equal(t, MetricsSourceAPI, cfg.MetricsSource)
	assert.Equal(t, time.Minute, cfg.DiscoveryInterval)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CLUSTER_NAME", "c")
	t.Setenv("PORT", "9000")
	t.Setenv("TOOL_TIMEOUT", "5s")
	t.Setenv("LOG_TAIL_LINES", "100")
	t.Setenv("MEMORY_THRESHOLD_PERCENT", "90")
	t.Setenv("METRICS_SOURCE", "kubectl")
	t.Setenv("MCP_TEMP_DIR", "/scratch")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, 5*time.Second, cfg.ToolTimeout)
	assert.Equal(t, int64(100), cfg.LogTailLines)
	assert.Equal(t, 90, cfg.MemoryThresholdPercent)
	assert.Equal(t, MetricsSourceKubectl, cfg.MetricsSource)
	assert.Equal(t, "/scratch", cfg.TempDir)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cluster_name: from-file\nmemory_threshold_percent: 70\nport: 7000\n"), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "7100")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.ClusterName)
	assert.Equal(t, 70, cfg.MemoryThresholdPercent)
	assert.Equal(t, 7100, cfg.Port, "environment wins over the file")
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{name: "missing cluster name", env: map[string]string{}, want: "CLUSTER_NAME"},
		{name: "threshold too high", env: map[string]string{"CLUSTER_NAME": "c", "MEMORY_THRESHOLD_PERCENT": "101"}, want: "MEMORY_THRESHOLD_PERCENT"},
		{name: "zero tail lines", env: map[string]string{"CLUSTER_NAME": "c", "LOG_TAIL_LINES": "0"}, want: "LOG_TAIL_LINES"},
		{name: "unknown metrics source", env: map[string]string{"CLUSTER_NAME": "c", "METRICS_SOURCE": "prometheus"}, want: "METRICS_SOURCE"},
		{name: "missing config file", env: map[string]string{"CLUSTER_NAME": "c", "CONFIG_FILE": "/nonexistent/config.yaml"}, want: "config file"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("CLUSTER_NAME", "")
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestFanout(t *testing.T) {
	var primary, secondary bytes.Buffer
	h := newFanout(
		slog.NewJSONHandler(&primary, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewTextHandler(&secondary, &slog.HandlerOptions{Level: slog.LevelDebug}),
	)
	logger := slog.New(h).With("component", "test")

	logger.Debug("dropped")
	logger.Info("kept", "k", "v")

	assert.False(t, h.Enabled(context.Background(), slog.LevelDebug))
	assert.NotContains(t, primary.String(), "dropped")
	assert.NotContains(t, secondary.String(), "dropped")
	assert.Contains(t, primary.String(), `"msg":"kept"`)
	assert.Contains(t, primary.String(), `"component":"test"`)
	assert.Contains(t, secondary.String(), "msg=kept")
	assert.Contains(t, secondary.String(), "component=test")
}
