// Package config handles loading smap configuration from files and the
// environment.
//
// Configuration can be specified in a JSON file named smap.json or .smaprc.
// The config file is searched for in the start directory and its parents.
// SMAP_* environment variables override the file, CLI flags override both.
package config

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	null "gopkg.in/guregu/null.v3"

	"github.com/HugoDaniel/smap/internal/resolver"
	"github.com/HugoDaniel/smap/internal/sourcemap"
)

// Config represents the configuration file structure.
// All fields are optional and will use default values if not specified.
type Config struct {
	// TrimFileScheme turns "file:" sources into local paths
	TrimFileScheme null.Bool `json:"trimFileScheme" envconfig:"trim_file_scheme"`

	// CaseSensitivePaths controls how source URLs and files are compared
	CaseSensitivePaths null.Bool `json:"caseSensitivePaths" envconfig:"case_sensitive_paths"`

	// BaseIsFile resolves relative sources against the directory of the map
	// (true) or against the map URL itself (false)
	BaseIsFile null.Bool `json:"baseIsFile" envconfig:"base_is_file"`

	// CacheSize is the number of decoded maps kept in memory
	CacheSize null.Int `json:"cacheSize" envconfig:"cache_size"`

	// ZeroCopyThreshold is the mappings length from which the decoder
	// borrows the input instead of copying it
	ZeroCopyThreshold null.Int `json:"zeroCopyThreshold" envconfig:"zero_copy_threshold"`

	LogLevel  null.String `json:"logLevel" envconfig:"log_level"`
	LogFormat null.String `json:"logFormat" envconfig:"log_format"`
}

// ConfigFileNames are the names searched for config files, in order of preference.
var ConfigFileNames = []string{
	"smap.json",
	".smaprc",
	".smaprc.json",
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		TrimFileScheme:     null.BoolFrom(true),
		CaseSensitivePaths: null.BoolFrom(resolver.DefaultCaseSensitive()),
		BaseIsFile:         null.BoolFrom(true),
		CacheSize:          null.IntFrom(sourcemap.DefaultCacheSize),
		ZeroCopyThreshold:  null.IntFrom(sourcemap.DefaultZeroCopyThreshold),
		LogLevel:           null.StringFrom("warn"),
		LogFormat:          null.StringFrom("text"),
	}
}

// Load searches for a config file starting from the given directory
// and walking up to parent directories. Returns nil if no config file is found.
func Load(fs afero.Fs, startDir string) (*Config, string, error) {
	dir := startDir
	for {
		for _, name := range ConfigFileNames {
			path := filepath.Join(dir, name)
			if ok, _ := afero.Exists(fs, path); ok {
				cfg, err := LoadFile(fs, path)
				return cfg, path, err
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, "", nil
		}
		dir = parent
	}
}

// LoadFile loads configuration from a specific file path.
func LoadFile(fs afero.Fs, path string) (*Config, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &cfg, nil
}

// FromEnv reads SMAP_* environment variables.
func FromEnv() (Config, error) {
	var cfg Config
	err := envconfig.Process("smap", &cfg)
	return cfg, err
}

// Apply returns c overridden by every field set in cfg.
func (c Config) Apply(cfg Config) Config {
	if cfg.TrimFileScheme.Valid {
		c.TrimFileScheme = cfg.TrimFileScheme
	}
	if cfg.CaseSensitivePaths.Valid {
		c.CaseSensitivePaths = cfg.CaseSensitivePaths
	}
	if cfg.BaseIsFile.Valid {
		c.BaseIsFile = cfg.BaseIsFile
	}
	if cfg.CacheSize.Valid {
		c.CacheSize = cfg.CacheSize
	}
	if cfg.ZeroCopyThreshold.Valid {
		c.ZeroCopyThreshold = cfg.ZeroCopyThreshold
	}
	if cfg.LogLevel.Valid {
		c.LogLevel = cfg.LogLevel
	}
	if cfg.LogFormat.Valid {
		c.LogFormat = cfg.LogFormat
	}
	return c
}

// Validate checks the values that can be wrong independently of each other.
func (c Config) Validate() error {
	if c.CacheSize.Valid && c.CacheSize.Int64 <= 0 {
		return fmt.Errorf("cacheSize must be positive, got %d", c.CacheSize.Int64)
	}
	if c.LogLevel.Valid {
		if _, err := logrus.ParseLevel(c.LogLevel.String); err != nil {
			return err
		}
	}
	if c.LogFormat.Valid {
		switch strings.ToLower(c.LogFormat.String) {
		case "text", "json":
		default:
			return fmt.Errorf("unsupported log format %q", c.LogFormat.String)
		}
	}
	return nil
}

// ToOptions converts a Config to decode options, using defaults for unset fields.
func (c Config) ToOptions(fs afero.Fs, logger logrus.FieldLogger) (sourcemap.Options, error) {
	c = Default().Apply(c)
	if err := c.Validate(); err != nil {
		return sourcemap.Options{}, err
	}

	cache, err := sourcemap.NewCache(int(c.CacheSize.Int64), logger)
	if err != nil {
		return sourcemap.Options{}, err
	}
	opts := sourcemap.DefaultOptions()
	opts.TrimFileScheme = c.TrimFileScheme.Bool
	opts.CaseSensitive = c.CaseSensitivePaths.Bool
	opts.BaseIsFile = c.BaseIsFile.Bool
	opts.ZeroCopyThreshold = int(c.ZeroCopyThreshold.Int64)
	opts.Cache = cache
	opts.Logger = logger
	if fs != nil {
		opts.Fs = fs
	}
	return opts, nil
}

// ConfigureLogger applies the log level and format to logger.
func (c Config) ConfigureLogger(logger *logrus.Logger) error {
	c = Default().Apply(c)
	if err := c.Validate(); err != nil {
		return err
	}
	level, _ := logrus.ParseLevel(c.LogLevel.String)
	logger.SetLevel(level)
	if strings.EqualFold(c.LogFormat.String, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return nil
}
