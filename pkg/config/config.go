// Package config loads the application configuration from an optional YAML
// file, a .env file, and environment variables, in that order of precedence
// (environment wins).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/kass/go-resource-finder/pkg/storage"
)

// Config holds the tunable settings for the finder.
type Config struct {
	Storage struct {
		Driver string `yaml:"driver"` // "file" or "postgres"
		Dir    string `yaml:"dir"`
	} `yaml:"storage"`
	Postgres struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Database string `yaml:"database"`
	} `yaml:"postgres"`
	API struct {
		BaseURL string `yaml:"base_url"`
		Host    string `yaml:"host"`
	} `yaml:"api"`
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
}

func defaults() Config {
	var c Config
	c.Storage.Driver = "file"
	c.Storage.Dir = defaultDataDir()
	c.Postgres.Host = "localhost"
	c.Postgres.Port = 5432
	c.Server.Port = 3003
	return c
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "resource-finder")
	}
	return "data"
}

// Load reads the config file at path if it exists, applying defaults and
// environment overrides. A missing file is not an error.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	c := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, &c); err != nil {
				return c, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return c, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	if dir := os.Getenv("RESOURCE_FINDER_DATA_DIR"); dir != "" {
		c.Storage.Dir = dir
	}
	if u := os.Getenv("RESOURCE_FINDER_API_URL"); u != "" {
		c.API.BaseURL = u
	}
	if h := os.Getenv("RESOURCE_FINDER_API_HOST"); h != "" {
		c.API.Host = h
	}
	if p := os.Getenv("PORT"); p != "" {
		if port, err := strconv.Atoi(p); err == nil {
			c.Server.Port = port
		}
	}

	return c, nil
}

// OpenStore opens the key-value store the config selects.
func (c Config) OpenStore() (storage.Store, error) {
	switch c.Storage.Driver {
	case "", "file":
		return storage.NewFileStore(c.Storage.Dir)
	case "postgres":
		store, err := storage.NewPostgresStore(
			c.Postgres.Host, c.Postgres.User, c.Postgres.Password,
			c.Postgres.Database, c.Postgres.Port)
		if err != nil {
			return nil, err
		}
		if err := store.InitSchema(); err != nil {
			return nil, err
		}
		return store, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
}
