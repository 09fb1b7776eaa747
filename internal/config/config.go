// Package config loads the YAML file that wires a dataset registry.
//
// Only programs read configuration. The pipeline packages take their
// collaborators as constructor arguments and never look at files or the
// environment.
//
//	log:
//	  level: info
//	http:
//	  timeout: 30s
//	  base_url: https://raw.githubusercontent.com/monte-rs/monte-datasets/main
//	datasets:
//	  - name: iris
//	    locator: https://example.org/iris.csv
//	    nulls: ["", "NA"]
//	    fields:
//	      - {name: sepal_length, type: float}
//	      - {name: species, type: text, nullable: true}
//	synthetic:
//	  - name: noise
//	    rows: 1000
//	    seed: 42
//	    columns:
//	      - {name: id, dist: sequence, start: 1}
//	      - {name: x, dist: normal, mean: 0, stddev: 1, missing_rate: 0.05}
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/koustreak/datri-datasets/internal/database"
	"github.com/koustreak/datri-datasets/internal/errs"
	"github.com/koustreak/datri-datasets/internal/filestore"
	"github.com/koustreak/datri-datasets/internal/logger"
	"go.yaml.in/yaml/v3"
)

// Config is the root of the YAML file.
type Config struct {
	Log  logger.Config `yaml:"log"`
	HTTP HTTPConfig    `yaml:"http"`

	// Filestore enables s3:// locators. Nil leaves them unrouted.
	Filestore *filestore.Config `yaml:"filestore"`

	// Database enables sql:// locators. Nil leaves them unrouted.
	Database *database.Config `yaml:"database"`

	Server ServerConfig `yaml:"server"`

	Datasets  []DatasetConfig   `yaml:"datasets"`
	Synthetic []SyntheticConfig `yaml:"synthetic"`
}

// HTTPConfig tunes the http(s) fetchers.
type HTTPConfig struct {
	// Timeout bounds one whole fetch. Zero means no timeout.
	Timeout time.Duration `yaml:"timeout"`

	// BaseURL roots the built-in catalog.
	BaseURL string `yaml:"base_url"`

	// Builtin registers the built-in catalog.
	Builtin bool `yaml:"builtin"`

	// ChunkSize > 0 switches http(s) to ranged, parallel fetching.
	ChunkSize        int64 `yaml:"chunk_size"`
	ChunkConcurrency int   `yaml:"chunk_concurrency"`
}

// ServerConfig configures the read-only HTTP surface.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// LoadTimeout bounds each dataset load made for a request.
	LoadTimeout time.Duration `yaml:"load_timeout"`
}

// DatasetConfig declares a fetched dataset.
type DatasetConfig struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Locator     string `yaml:"locator"`

	// Encoding is json or csv; empty infers it from the locator's extension.
	Encoding string `yaml:"encoding"`

	// Nulls lists tokens that mean "missing". Unset keeps the decoder default.
	Nulls []string `yaml:"nulls"`

	Fields []FieldConfig `yaml:"fields"`
}

// FieldConfig declares one schema field.
type FieldConfig struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Nullable bool   `yaml:"nullable"`
	Source   string `yaml:"source"`
}

// SyntheticConfig declares a generated dataset.
type SyntheticConfig struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Rows        int            `yaml:"rows"`
	Seed        uint64         `yaml:"seed"`
	Columns     []ColumnConfig `yaml:"columns"`
}

// ColumnConfig declares one generated column. Which parameters apply
// depends on Dist.
type ColumnConfig struct {
	Name        string    `yaml:"name"`
	Dist        string    `yaml:"dist"`
	Start       int64     `yaml:"start"`
	Low         float64   `yaml:"low"`
	High        float64   `yaml:"high"`
	Mean        float64   `yaml:"mean"`
	StdDev      float64   `yaml:"stddev"`
	Lambda      float64   `yaml:"lambda"`
	P           float64   `yaml:"p"`
	Levels      []string  `yaml:"levels"`
	Weights     []float64 `yaml:"weights"`
	MissingRate float64   `yaml:"missing_rate"`
}

// Default returns a config that serves the built-in catalog over HTTPS.
func Default() *Config {
	return &Config{
		Log: *logger.DefaultConfig(),
		HTTP: HTTPConfig{
			Timeout:          60 * time.Second,
			Builtin:          true,
			ChunkConcurrency: 4,
		},
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 120 * time.Second,
			LoadTimeout:  90 * time.Second,
		},
	}
}

// Load reads the YAML file at path over Default. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, fmt.Sprintf("read config %s", path), err)
	}
	return Parse(data)
}

// Parse decodes YAML over Default. An empty document yields Default.
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "parse config", err)
	}
	if cfg.Filestore != nil && cfg.Filestore.Provider == "" {
		cfg.Filestore.Provider = filestore.ProviderMinIO
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that do not depend on other sections.
func (c *Config) Validate() error {
	if c.HTTP.Timeout < 0 {
		return errs.New(errs.ErrKindInvalidInput, "http.timeout must not be negative")
	}
	if c.HTTP.ChunkSize < 0 {
		return errs.New(errs.ErrKindInvalidInput, "http.chunk_size must not be negative")
	}
	if c.Database != nil {
		switch c.Database.Driver {
		case database.DriverPostgres, database.DriverMySQL:
		default:
			return errs.New(errs.ErrKindInvalidInput,
				fmt.Sprintf("database.driver %q is not postgres or mysql", c.Database.Driver))
		}
		if c.Database.DSN == "" {
			return errs.New(errs.ErrKindInvalidInput, "database.dsn is required")
		}
	}
	if c.Filestore != nil {
		if c.Filestore.Provider != filestore.ProviderMinIO {
			return errs.New(errs.ErrKindInvalidInput,
				fmt.Sprintf("filestore.provider %q is not minio", c.Filestore.Provider))
		}
		if c.Filestore.Endpoint == "" {
			return errs.New(errs.ErrKindInvalidInput, "filestore.endpoint is required")
		}
	}
	return nil
}
