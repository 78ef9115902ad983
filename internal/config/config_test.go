package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dex-swaps-lab/internal/domain"
	"dex-swaps-lab/internal/ingestion"
	"dex-swaps-lab/internal/registry"
	"dex-swaps-lab/internal/subgraph"
)

var configKeys = []string{
	"SUBGRAPH_ENDPOINT_TEMPLATE", "SOURCES", "FETCH_MODE", "FETCH_WORKERS", "ROW_LIMIT",
	"FETCH_TIMEOUT", "LOAD_TIMEOUT", "HTTP_TIMEOUT", "LOG_LEVEL", "LOG_FORMAT",
	"POSTGRES_DSN", "CLICKHOUSE_DSN", "LISTEN_ADDR", "METRICS_NAMESPACE",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configKeys {
		t.Setenv(k, "")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, registry.DefaultEndpointTemplate, cfg.EndpointTemplate)
	assert.Empty(t, cfg.Sources)
	assert.Equal(t, domain.Parallel, cfg.Mode)
	assert.Equal(t, ingestion.DefaultWorkers, cfg.FetchWorkers)
	assert.Equal(t, subgraph.DefaultRowLimit, cfg.RowLimit)
	assert.Equal(t, time.Duration(0), cfg.FetchTimeout)
	assert.Equal(t, subgraph.DefaultTimeout, cfg.HTTPTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "dex_swaps_lab", cfg.MetricsNamespace)

	descs, err := cfg.SourceDescriptors()
	require.NoError(t, err)
	assert.Len(t, descs, len(registry.IDs()))
}

func TestFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("SUBGRAPH_ENDPOINT_TEMPLATE", "http://localhost:8000/subgraphs/name/messari/{id}")
	t.Setenv("SOURCES", "uniswap-v3-ethereum, sushiswap-polygon,")
	t.Setenv("FETCH_MODE", "Sequential")
	t.Setenv("FETCH_WORKERS", "8")
	t.Setenv("ROW_LIMIT", "500")
	t.Setenv("FETCH_TIMEOUT", "45s")
	t.Setenv("LOAD_TIMEOUT", "10s")
	t.Setenv("POSTGRES_DSN", "postgres://u:p@localhost/db")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, []string{"uniswap-v3-ethereum", "sushiswap-polygon"}, cfg.Sources)
	assert.Equal(t, domain.Sequential, cfg.Mode)
	assert.Equal(t, 8, cfg.FetchWorkers)
	assert.Equal(t, 500, cfg.RowLimit)
	assert.Equal(t, 45*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 10*time.Second, cfg.LoadTimeout)
	assert.Equal(t, "postgres://u:p@localhost/db", cfg.PostgresDSN)

	descs, err := cfg.SourceDescriptors()
	require.NoError(t, err)
	require.Len(t, descs, 2)
	assert.Equal(t, "http://localhost:8000/subgraphs/name/messari/uniswap-v3-ethereum", descs[0].Endpoint)
}

func TestFromEnv_InvalidNumbersFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("FETCH_WORKERS", "many")
	t.Setenv("FETCH_TIMEOUT", "soon")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ingestion.DefaultWorkers, cfg.FetchWorkers)
	assert.Equal(t, time.Duration(0), cfg.FetchTimeout)
}

func TestFromEnv_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown mode", map[string]string{"FETCH_MODE": "sideways"}},
		{"zero workers", map[string]string{"FETCH_WORKERS": "0"}},
		{"negative row limit", map[string]string{"ROW_LIMIT": "-1"}},
		{"template without placeholder", map[string]string{"SUBGRAPH_ENDPOINT_TEMPLATE": "http://localhost/x"}},
		{"unknown source", map[string]string{"SOURCES": "not-a-dex"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, domain.Parallel, m)

	m, err = ParseMode(" SEQUENTIAL ")
	require.NoError(t, err)
	assert.Equal(t, domain.Sequential, m)

	_, err = ParseMode("both")
	assert.Error(t, err)
}
