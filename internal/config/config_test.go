package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/koustreak/datri-datasets/internal/database"
	"github.com/koustreak/datri-datasets/internal/errs"
	"github.com/koustreak/datri-datasets/internal/fetch"
	"github.com/koustreak/datri-datasets/internal/filestore"
	"github.com/koustreak/datri-datasets/internal/generate"
	"github.com/koustreak/datri-datasets/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const full = `
log:
  level: debug
  format: console
http:
  timeout: 5s
  base_url: https://mirror.test/monte
  chunk_size: 1048576
filestore:
  endpoint: localhost:9000
  access_key: minioadmin
  secret_key: minioadmin
database:
  driver: mysql
  dsn: "user:pass@tcp(localhost:3306)/datasets"
server:
  addr: 127.0.0.1:9090
datasets:
  - name: iris
    locator: https://example.test/iris.csv
    nulls: ["", "NA"]
    fields:
      - {name: sepal_length, type: float}
      - {name: species, type: text, nullable: true, source: Species}
  - name: readings
    locator: sql://readings?order=id
    encoding: json
    fields:
      - {name: id, type: integer}
synthetic:
  - name: noise
    rows: 100
    seed: 7
    columns:
      - {name: id, dist: sequence, start: 1}
      - {name: x, dist: normal, mean: 0, stddev: 1, missing_rate: 0.1}
      - {name: grp, dist: categorical, levels: [a, b]}
`

func TestParse_Full(t *testing.T) {
	cfg, err := Parse([]byte(full))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 5*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, int64(1<<20), cfg.HTTP.ChunkSize)
	assert.Equal(t, 4, cfg.HTTP.ChunkConcurrency, "default kept")
	assert.True(t, cfg.HTTP.Builtin, "default kept")
	assert.Equal(t, "127.0.0.1:9090", cfg.Server.Addr)
	assert.Equal(t, 90*time.Second, cfg.Server.LoadTimeout, "default kept")

	require.NotNil(t, cfg.Filestore)
	assert.Equal(t, filestore.ProviderMinIO, cfg.Filestore.Provider)
	require.NotNil(t, cfg.Database)
	assert.Equal(t, database.DriverMySQL, cfg.Database.Driver)

	ps, err := cfg.Providers()
	require.NoError(t, err)
	names := make([]string, len(ps))
	for i, p := range ps {
		names[i] = p.Name
	}
	assert.Equal(t, []string{"diabetes", "diabetes-csv", "iris", "readings", "noise"}, names)

	assert.Equal(t, fetch.Locator("https://mirror.test/monte/diabetes/diabetes.json"), ps[0].Locator)

	iris := ps[2]
	assert.Equal(t, fetch.EncodingCSV, iris.Decoder.Encoding())
	assert.Equal(t, []string{"sepal_length", "Species"}, iris.Schema.SourceNames())
	assert.Equal(t, schema.Float, iris.Schema.Field(0).Type)
	assert.True(t, iris.Schema.Field(1).Nullable)

	assert.Equal(t, fetch.EncodingJSON, ps[3].Decoder.Encoding())

	noise := ps[4]
	require.True(t, noise.Synthetic())
	assert.Equal(t, 100, noise.Generator.Rows)
	assert.Equal(t, uint64(7), noise.Generator.Seed)
	assert.Equal(t, generate.Sequence{Start: 1}, noise.Generator.Columns[0].Dist)
	assert.Equal(t, 0.1, noise.Generator.Columns[1].MissingRate)
}

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown key", "http:\n  timout: 5s\n"},
		{"bad duration", "http:\n  timeout: soon\n"},
		{"negative timeout", "http:\n  timeout: -1s\n"},
		{"bad driver", "database:\n  driver: oracle\n  dsn: x\n"},
		{"missing dsn", "database:\n  driver: postgres\n"},
		{"missing endpoint", "filestore:\n  access_key: a\n"},
		{"not yaml", "http: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.True(t, errs.IsInvalidInput(err), "got %v", err)
		})
	}
}

func TestProviders_Rejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad field type", "datasets:\n  - {name: a, locator: 'https://x/a.json', fields: [{name: f, type: bool}]}\n"},
		{"duplicate field", "datasets:\n  - {name: a, locator: 'https://x/a.json', fields: [{name: f, type: int}, {name: f, type: int}]}\n"},
		{"no encoding", "datasets:\n  - {name: a, locator: 'https://x/latest', fields: [{name: f, type: int}]}\n"},
		{"bad encoding", "datasets:\n  - {name: a, locator: 'https://x/a', encoding: xml, fields: [{name: f, type: int}]}\n"},
		{"bad distribution", "synthetic:\n  - {name: g, rows: 1, columns: [{name: x, dist: zipf}]}\n"},
		{"bad parameters", "synthetic:\n  - {name: g, rows: 1, columns: [{name: x, dist: bernoulli, p: 2}]}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse([]byte(tt.yaml))
			require.NoError(t, err)
			_, err = cfg.Providers()
			assert.True(t, errs.IsInvalidInput(err), "got %v", err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "datasets.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http:\n  builtin: false\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.False(t, cfg.HTTP.Builtin)

	ps, err := cfg.Providers()
	require.NoError(t, err)
	assert.Empty(t, ps)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, errs.IsInvalidInput(err))
}
