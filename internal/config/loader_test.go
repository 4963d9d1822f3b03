package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goran-ethernal/ChainReplay/pkg/config"
	"github.com/stretchr/testify/require"
)

func TestLoadFromFile_Examples(t *testing.T) {
	for _, path := range []string{
		"../../config.example.yaml",
		"../../config.example.json",
		"../../config.example.toml",
	} {
		t.Run(filepath.Ext(path), func(t *testing.T) {
			cfg, err := LoadFromFile(path)
			require.NoError(t, err)
			validateConfig(t, cfg)
		})
	}
}

func TestLoadFromFile_UnsupportedFormat(t *testing.T) {
	_, err := LoadFromFile("config.txt")
	require.ErrorContains(t, err, "unsupported config file format")
}

func TestLoadFromYAML_Defaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "minimal.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
chain:
  rpc_url: "http://localhost:8545"
parser:
  contracts:
    - events: ["Transfer(address indexed from, address indexed to, uint256 amount)"]
`), 0o600))

	cfg, err := LoadFromYAML(path)
	require.NoError(t, err)

	require.Equal(t, "1", cfg.Chain.ChainID)
	require.Equal(t, 12*time.Second, cfg.Chain.AverageBlockTime.Duration)
	require.Equal(t, config.StorageMemory, cfg.Indexer.Storage)
	require.Equal(t, 100, cfg.Indexer.DefaultPageLimit)
	require.Equal(t, 1000, cfg.Replay.BatchSize)
	require.Equal(t, 3, cfg.Replay.MaxConsecutiveFailures)
	require.NotNil(t, cfg.Logging)
	require.Equal(t, "info", cfg.Logging.DefaultLevel)
}

func TestLoadFromYAML_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errMsg  string
	}{
		{
			name:    "missing rpc url",
			content: "parser:\n  contracts:\n    - events: [\"A()\"]\n",
			errMsg:  "chain.rpc_url is required",
		},
		{
			name:    "no parser contracts",
			content: "chain:\n  rpc_url: http://x\n",
			errMsg:  "at least one contract",
		},
		{
			name: "batch size above cap",
			content: "chain:\n  rpc_url: http://x\nparser:\n  contracts:\n    - events: [\"A()\"]\n" +
				"replay:\n  batch_size: 10001\n",
			errMsg: "replay.batch_size",
		},
		{
			name: "sqlite without path",
			content: "chain:\n  rpc_url: http://x\nparser:\n  contracts:\n    - events: [\"A()\"]\n" +
				"indexer:\n  storage: sqlite\n",
			errMsg: "indexer.db.path",
		},
		{
			name: "unknown log component",
			content: "chain:\n  rpc_url: http://x\nparser:\n  contracts:\n    - events: [\"A()\"]\n" +
				"logging:\n  component_levels:\n    downloader: debug\n",
			errMsg: "unknown component",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "cfg.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))

			_, err := LoadFromYAML(path)
			require.ErrorContains(t, err, tt.errMsg)
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(EnvRPCURL+"=http://from-env:8545\n"), 0o600))

	t.Setenv(EnvRPCURL, "")
	require.NoError(t, os.Unsetenv(EnvRPCURL))
	require.NoError(t, LoadEnvFiles(envFile, filepath.Join(dir, "missing.env")))
	require.Equal(t, "http://from-env:8545", os.Getenv(EnvRPCURL))

	cfg, err := LoadFromFile("../../config.example.yaml")
	require.NoError(t, err)
	require.Equal(t, "http://from-env:8545", cfg.Chain.RPCURL)
}

func TestGenerateSchema(t *testing.T) {
	data, err := GenerateSchema()
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(data, &schema))
	require.Equal(t, "ChainReplay configuration", schema["title"])
	require.Contains(t, string(data), "batch_size")
	require.Contains(t, string(data), "rpc_url")
}

// validateConfig checks that the loaded example config has expected values
func validateConfig(t *testing.T, cfg *config.Config) {
	t.Helper()

	require.NotEmpty(t, cfg.Chain.RPCURL)
	require.Equal(t, "1", cfg.Chain.ChainID)
	require.NotNil(t, cfg.Chain.Retry)
	require.Equal(t, 5, cfg.Chain.Retry.MaxAttempts)
	require.Equal(t, time.Second, cfg.Chain.Retry.InitialBackoff.Duration)

	require.Len(t, cfg.Parser.Contracts, 1)
	require.Len(t, cfg.Parser.Contracts[0].Events, 2)

	require.Equal(t, 720*time.Hour, cfg.Indexer.Retention.Duration)
	require.Equal(t, time.Hour, cfg.Indexer.CleanupInterval.Duration)

	require.Equal(t, 1000, cfg.Replay.BatchSize)
	require.Equal(t, 500*time.Millisecond, cfg.Replay.Delay.Duration)
	require.True(t, cfg.Replay.SkipExisting)

	require.NotNil(t, cfg.API)
	require.True(t, cfg.API.Enabled)
	require.Equal(t, ":8080", cfg.API.ListenAddress)

	require.Equal(t, "debug", cfg.Logging.GetComponentLevel("replay-engine"))
	require.Equal(t, "info", cfg.Logging.GetComponentLevel("event-indexer"))

	require.NotNil(t, cfg.Metrics)
	require.Equal(t, "/metrics", cfg.Metrics.Path)
}
