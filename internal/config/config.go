// Package config provides configuration for the popreader tool.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	poperrors "github.com/popreader/popreader/internal/errors"
)

// Storage types.
const (
	StorageNone  = "none"
	StorageLocal = "local"
	StorageS3    = "s3"
)

// Config holds the configuration of a popreader run.
type Config struct {
	// DataDir is the base directory for all data files
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// Input describes the delimited census file
	Input InputConfig `json:"input" yaml:"input"`

	// Store describes the binary record file
	Store StoreConfig `json:"store" yaml:"store"`

	// Output describes the summary sink
	Output OutputConfig `json:"output" yaml:"output"`

	// Manifest configures the snapshot catalog
	Manifest ManifestConfig `json:"manifest" yaml:"manifest"`

	// Storage configures artifact publication
	Storage StorageConfig `json:"storage" yaml:"storage"`

	// Log configures structured logging
	Log LogConfig `json:"log" yaml:"log"`
}

// InputConfig holds ingestion settings.
type InputConfig struct {
	// Path is the delimited input file
	Path string `json:"path" yaml:"path"`

	// Delimiter separates fields (one character)
	Delimiter string `json:"delimiter" yaml:"delimiter"`

	// HeaderLines is the number of leading lines to skip
	HeaderLines int `json:"header_lines" yaml:"header_lines"`

	// ThousandsSeparator is removed from numeric fields; empty disables it
	ThousandsSeparator string `json:"thousands_separator" yaml:"thousands_separator"`
}

// StoreConfig holds binary store settings.
type StoreConfig struct {
	Path string `json:"path" yaml:"path"`

	// AtomicWrites persists through a temporary file and rename
	AtomicWrites bool `json:"atomic_writes" yaml:"atomic_writes"`

	// VerifyChecksum compares a loaded file with the latest catalog snapshot
	VerifyChecksum bool `json:"verify_checksum" yaml:"verify_checksum"`
}

// OutputConfig holds summary output settings.
type OutputConfig struct {
	SummaryPath string `json:"summary_path" yaml:"summary_path"`
}

// ManifestConfig holds snapshot catalog settings.
type ManifestConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Path    string `json:"path" yaml:"path"`
}

// StorageConfig holds object storage configuration.
type StorageConfig struct {
	// Type is the storage type: none, local, s3
	Type string `json:"type" yaml:"type"`

	// Path is the local storage path (for local type)
	Path string `json:"path" yaml:"path"`

	// Prefix is prepended to every object path
	Prefix string `json:"prefix" yaml:"prefix"`

	// Compress uploads artifacts as framed snappy streams
	Compress bool `json:"compress" yaml:"compress"`

	// S3 configuration (for s3 type)
	S3 S3Config `json:"s3" yaml:"s3"`
}

// S3Config holds S3 storage configuration.
type S3Config struct {
	// Bucket is the S3 bucket name
	Bucket string `json:"bucket" yaml:"bucket"`

	// Region is the AWS region
	Region string `json:"region" yaml:"region"`

	// Endpoint is the S3 endpoint (for S3-compatible storage)
	Endpoint string `json:"endpoint" yaml:"endpoint"`

	// UsePathStyle forces path-style addressing (MinIO and similar)
	UsePathStyle bool `json:"use_path_style" yaml:"use_path_style"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	// Level is one of debug, info, warn, error
	Level string `json:"level" yaml:"level"`

	// Format is text or json
	Format string `json:"format" yaml:"format"`
}

// DefaultConfig returns the default configuration for local use.
func DefaultConfig() *Config {
	return &Config{
		DataDir: "./data/popreader",
		Input: InputConfig{
			Path:               "",
			Delimiter:          ";",
			HeaderLines:        3,
			ThousandsSeparator: ".",
		},
		Store: StoreConfig{
			AtomicWrites:   true,
			VerifyChecksum: true,
		},
		Manifest: ManifestConfig{
			Enabled: true,
		},
		Storage: StorageConfig{
			Type:   StorageNone,
			Prefix: "popreader",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Resolve fills unset paths from DataDir.
func (c *Config) Resolve() {
	if c.DataDir == "" {
		c.DataDir = "./data/popreader"
	}
	if c.Input.Path == "" {
		c.Input.Path = filepath.Join(c.DataDir, "datos-ine-csv.csv")
	}
	if c.Store.Path == "" {
		c.Store.Path = filepath.Join(c.DataDir, "data.bin")
	}
	if c.Output.SummaryPath == "" {
		c.Output.SummaryPath = filepath.Join(c.DataDir, "population_sum.txt")
	}
	if c.Manifest.Path == "" {
		c.Manifest.Path = filepath.Join(c.DataDir, "manifest.db")
	}
	if c.Storage.Type == StorageLocal && c.Storage.Path == "" {
		c.Storage.Path = filepath.Join(c.DataDir, "storage")
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return poperrors.NewConfigError("data_dir is required")
	}

	if len([]rune(c.Input.Delimiter)) != 1 {
		return poperrors.NewConfigError(fmt.Sprintf("input.delimiter must be a single character, got %q", c.Input.Delimiter))
	}
	if c.Input.HeaderLines < 0 {
		return poperrors.NewConfigError(fmt.Sprintf("input.header_lines must not be negative, got %d", c.Input.HeaderLines))
	}
	if c.Input.ThousandsSeparator == c.Input.Delimiter {
		return poperrors.NewConfigError("input.thousands_separator must differ from input.delimiter")
	}

	switch c.Storage.Type {
	case StorageNone, StorageLocal:
	case StorageS3:
		if c.Storage.S3.Bucket == "" {
			return poperrors.NewConfigError("storage.s3.bucket is required when storage type is s3")
		}
	default:
		return poperrors.NewConfigError(fmt.Sprintf("invalid storage type: %s (must be none, local, or s3)", c.Storage.Type))
	}

	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return poperrors.NewConfigError(fmt.Sprintf("invalid log format: %s (must be text or json)", c.Log.Format))
	}

	return nil
}

// LoadFromFile loads configuration from a YAML or JSON file on top of the defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return nil, poperrors.NewConfigError(fmt.Sprintf("unsupported config file format: %s", ext))
	}

	return cfg, nil
}

// LoadFromEnv overlays environment variables with the POPREADER_ prefix.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("POPREADER_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}

	// Input configuration
	if v := os.Getenv("POPREADER_INPUT_PATH"); v != "" {
		cfg.Input.Path = v
	}
	if v := os.Getenv("POPREADER_INPUT_DELIMITER"); v != "" {
		cfg.Input.Delimiter = v
	}
	if v := os.Getenv("POPREADER_INPUT_HEADER_LINES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Input.HeaderLines = n
		}
	}
	if v, ok := os.LookupEnv("POPREADER_INPUT_THOUSANDS_SEPARATOR"); ok {
		cfg.Input.ThousandsSeparator = v
	}

	// Store configuration
	if v := os.Getenv("POPREADER_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("POPREADER_STORE_ATOMIC_WRITES"); v != "" {
		cfg.Store.AtomicWrites = parseBool(v)
	}
	if v := os.Getenv("POPREADER_STORE_VERIFY_CHECKSUM"); v != "" {
		cfg.Store.VerifyChecksum = parseBool(v)
	}

	if v := os.Getenv("POPREADER_OUTPUT_SUMMARY_PATH"); v != "" {
		cfg.Output.SummaryPath = v
	}

	// Manifest configuration
	if v := os.Getenv("POPREADER_MANIFEST_ENABLED"); v != "" {
		cfg.Manifest.Enabled = parseBool(v)
	}
	if v := os.Getenv("POPREADER_MANIFEST_PATH"); v != "" {
		cfg.Manifest.Path = v
	}

	// Storage configuration
	if v := os.Getenv("POPREADER_STORAGE_TYPE"); v != "" {
		cfg.Storage.Type = v
	}
	if v := os.Getenv("POPREADER_STORAGE_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("POPREADER_STORAGE_PREFIX"); v != "" {
		cfg.Storage.Prefix = v
	}
	if v := os.Getenv("POPREADER_STORAGE_COMPRESS"); v != "" {
		cfg.Storage.Compress = parseBool(v)
	}
	if v := os.Getenv("POPREADER_S3_BUCKET"); v != "" {
		cfg.Storage.S3.Bucket = v
	}
	if v := os.Getenv("POPREADER_S3_REGION"); v != "" {
		cfg.Storage.S3.Region = v
	}
	if v := os.Getenv("POPREADER_S3_ENDPOINT"); v != "" {
		cfg.Storage.S3.Endpoint = v
	}
	if v := os.Getenv("POPREADER_S3_USE_PATH_STYLE"); v != "" {
		cfg.Storage.S3.UsePathStyle = parseBool(v)
	}

	// Log configuration
	if v := os.Getenv("POPREADER_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("POPREADER_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

func parseBool(v string) bool {
	return v == "true" || v == "1"
}

// EnsureDirectories creates the parent directories of every configured path.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.DataDir,
		filepath.Dir(c.Store.Path),
		filepath.Dir(c.Output.SummaryPath),
	}
	if c.Manifest.Enabled {
		dirs = append(dirs, filepath.Dir(c.Manifest.Path))
	}
	if c.Storage.Type == StorageLocal {
		dirs = append(dirs, c.Storage.Path)
	}

	for _, dir := range dirs {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
