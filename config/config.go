// Package config loads server settings from defaults, an optional YAML file,
// a .env file and LUMI_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/ViniZap4/lumi-notes/idalloc"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultFile is read when no config path is given and it exists.
const DefaultFile = "lumi-notes.yaml"

type Config struct {
	Addr            string        `yaml:"addr"`
	NotesDir        string        `yaml:"notes_dir"`
	TokensFile      string        `yaml:"tokens_file"`
	TokenCache      bool          `yaml:"token_cache"`
	TokenHashes     bool          `yaml:"token_hashes"`
	IDBackend       string        `yaml:"id_backend"`
	SQLitePath      string        `yaml:"sqlite_path"`
	DatabaseURL     string        `yaml:"database_url"`
	LogLevel        string        `yaml:"log_level"`
	LogFormat       string        `yaml:"log_format"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

func Default() Config {
	return Config{
		Addr:            "127.0.0.1:8000",
		NotesDir:        "notes",
		TokensFile:      "tokens.txt",
		IDBackend:       idalloc.BackendFile,
		SQLitePath:      "notes/.ids.db",
		LogLevel:        "info",
		LogFormat:       "json",
		ShutdownTimeout: 10 * time.Second,
	}
}

// Load builds a Config. An explicit path must exist; DefaultFile is optional.
// The result is not validated so callers can apply overrides first.
func Load(path string) (Config, error) {
	cfg := Default()

	file, required := path, true
	if file == "" {
		file, required = DefaultFile, false
	}
	if err := cfg.readFile(file, required); err != nil {
		return Config{}, err
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) readFile(path string, required bool) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) && !required {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"LUMI_ADDR":         &c.Addr,
		"LUMI_NOTES_DIR":    &c.NotesDir,
		"LUMI_TOKENS_FILE":  &c.TokensFile,
		"LUMI_ID_BACKEND":   &c.IDBackend,
		"LUMI_SQLITE_PATH":  &c.SQLitePath,
		"LUMI_DATABASE_URL": &c.DatabaseURL,
		"LUMI_LOG_LEVEL":    &c.LogLevel,
		"LUMI_LOG_FORMAT":   &c.LogFormat,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	bools := map[string]*bool{
		"LUMI_TOKEN_CACHE":  &c.TokenCache,
		"LUMI_TOKEN_HASHES": &c.TokenHashes,
	}
	for key, dst := range bools {
		if v := os.Getenv(key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = b
		}
	}
	if v := os.Getenv("LUMI_SHUTDOWN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("LUMI_SHUTDOWN_TIMEOUT: %w", err)
		}
		c.ShutdownTimeout = d
	}
	return nil
}

func (c Config) Validate() error {
	if c.NotesDir == "" {
		return errors.New("notes_dir is required")
	}
	if c.TokensFile == "" {
		return errors.New("tokens_file is required")
	}

	switch c.IDBackend {
	case idalloc.BackendFile:
	case idalloc.BackendSQLite:
		if c.SQLitePath == "" {
			return errors.New("sqlite_path is required for the sqlite id backend")
		}
	case idalloc.BackendPostgres:
		if c.DatabaseURL == "" {
			return errors.New("database_url is required for the postgres id backend")
		}
	default:
		return fmt.Errorf("unknown id_backend %q", c.IDBackend)
	}

	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("unknown log_format %q", c.LogFormat)
	}
	if c.ShutdownTimeout < 0 {
		return errors.New("shutdown_timeout must not be negative")
	}
	return nil
}
