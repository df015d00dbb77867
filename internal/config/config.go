// Package config loads proposal-engine.yaml and applies environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"proposal-engine/internal/logging"
	"proposal-engine/internal/store"
)

// FileName is the config file looked up in the working directory.
const FileName = "proposal-engine.yaml"

const (
	defaultPort    = 8080
	defaultDataDir = "data"
)

type ServerConfig struct {
	Port int `yaml:"port"`
}

type StoreConfig struct {
	// Backend is memory, file or sqlite.
	Backend string `yaml:"backend"`
	DataDir string `yaml:"data_dir"`
}

type CatalogConfig struct {
	// PlansFile replaces the embedded plan catalog when set.
	PlansFile string `yaml:"plans_file,omitempty"`
}

type Config struct {
	Server  ServerConfig   `yaml:"server"`
	Store   StoreConfig    `yaml:"store"`
	Catalog CatalogConfig  `yaml:"catalog"`
	Log     logging.Config `yaml:"log"`
}

func Default() Config {
	return Config{
		Server: ServerConfig{Port: defaultPort},
		Store:  StoreConfig{Backend: store.KindMemory, DataDir: defaultDataDir},
		Log:    logging.Config{Level: "info", Format: "json"},
	}
}

// Load reads path if it exists, then applies env overrides. A missing file is
// not an error.
func Load(path string) (Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return Config{}, err
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: PORT: %w", err)
		}
		c.Server.Port = port
	}
	if v, ok := lookup("PROPOSAL_STORE"); ok && v != "" {
		c.Store.Backend = v
	}
	if v, ok := lookup("PROPOSAL_DATA_DIR"); ok && v != "" {
		c.Store.DataDir = v
	}
	if v, ok := lookup("PROPOSAL_PLANS_FILE"); ok && v != "" {
		c.Catalog.PlansFile = v
	}
	if v, ok := lookup("LOG_LEVEL"); ok && v != "" {
		c.Log.Level = v
	}
	if v, ok := lookup("LOG_FORMAT"); ok && v != "" {
		c.Log.Format = v
	}
	return nil
}

func (c *Config) normalize() {
	c.Store.Backend = strings.ToLower(strings.TrimSpace(c.Store.Backend))
	if c.Store.Backend == "" {
		c.Store.Backend = store.KindMemory
	}
	if strings.TrimSpace(c.Store.DataDir) == "" {
		c.Store.DataDir = defaultDataDir
	}
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
}

func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	switch c.Store.Backend {
	case store.KindMemory, store.KindFile, store.KindSQLite:
	default:
		return fmt.Errorf("store.backend %q is not one of memory, file, sqlite", c.Store.Backend)
	}
	switch c.Log.Format {
	case "", "json", "console":
	default:
		return fmt.Errorf("log.format %q is not json or console", c.Log.Format)
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return ":" + strconv.Itoa(c.Server.Port)
}
