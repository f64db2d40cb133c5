// Package config loads credpulse settings: built-in defaults, then an optional
// YAML file, then an optional .env file, then CREDPULSE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	ConfigFileName = "config.yaml"
	EnvFileName    = ".env"
	EnvPrefix      = "CREDPULSE_"

	dirMode  = 0700
	fileMode = 0600
)

// Config represents app config object.
type Config struct {
	Generate Generate `yaml:"generate"`
	Server   Server   `yaml:"server"`
	Store    Store    `yaml:"store"`
	Log      Log      `yaml:"log"`
}

type Generate struct {
	Rows     int    `yaml:"rows"`
	Seed     uint64 `yaml:"seed"`
	Workers  int    `yaml:"workers"`
	Colleges int    `yaml:"colleges"`
	Cities   int    `yaml:"cities"`
	Out      string `yaml:"out"`
}

type Server struct {
	Addr           string        `yaml:"addr"`
	Bundle         string        `yaml:"bundle"`
	CORSOrigins    []string      `yaml:"cors_origins"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
}

// Store is the optional SQL sink. An empty DSN disables it.
type Store struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Generate: Generate{
			Rows:     10_000,
			Seed:     42,
			Colleges: 100,
			Cities:   10,
			Out:      "student_creditworthiness_dataset.csv",
		},
		Server: Server{
			Addr:           ":8080",
			Bundle:         "bundle.yaml",
			CORSOrigins:    []string{"*"},
			RequestTimeout: 30 * time.Second,
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   15 * time.Second,
		},
		Store: Store{
			Driver: "sqlite",
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the effective config. An empty path skips the YAML file; a
// missing .env file is ignored.
func Load(path, envFile string) (*Config, error) {
	c := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, c); err != nil {
			return nil, fmt.Errorf("error unmarshalling config file %s: %w", path, err)
		}
	}

	dotenv := map[string]string{}
	if envFile != "" {
		m, err := godotenv.Read(envFile)
		switch {
		case err == nil:
			dotenv = m
		case errors.Is(err, os.ErrNotExist):
			slog.Debug("no env file", "path", envFile)
		default:
			return nil, fmt.Errorf("error reading env file %s: %w", envFile, err)
		}
	}

	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}
	if err := c.applyEnv(lookup); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := map[string]*string{
		"OUT":        &c.Generate.Out,
		"ADDR":       &c.Server.Addr,
		"BUNDLE":     &c.Server.Bundle,
		"DB_DRIVER":  &c.Store.Driver,
		"DB_DSN":     &c.Store.DSN,
		"LOG_LEVEL":  &c.Log.Level,
		"LOG_FORMAT": &c.Log.Format,
	}
	for k, p := range str {
		if v, ok := lookup(EnvPrefix + k); ok {
			*p = v
		}
	}

	num := map[string]*int{
		"ROWS":     &c.Generate.Rows,
		"WORKERS":  &c.Generate.Workers,
		"COLLEGES": &c.Generate.Colleges,
		"CITIES":   &c.Generate.Cities,
	}
	for k, p := range num {
		v, ok := lookup(EnvPrefix + k)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s%s: %w", EnvPrefix, k, err)
		}
		*p = n
	}

	if v, ok := lookup(EnvPrefix + "SEED"); ok {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %sSEED: %w", EnvPrefix, err)
		}
		c.Generate.Seed = n
	}

	if v, ok := lookup(EnvPrefix + "CORS_ORIGINS"); ok {
		c.Server.CORSOrigins = splitList(v)
	}

	if v, ok := lookup(EnvPrefix + "REQUEST_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %sREQUEST_TIMEOUT: %w", EnvPrefix, err)
		}
		c.Server.RequestTimeout = d
	}
	return nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	list := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			list = append(list, p)
		}
	}
	return list
}

func Save(dirPath string, c *Config) error {
	if dirPath == "" {
		return errors.New("config directory required")
	}
	if c == nil {
		return errors.New("config required")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	path := filepath.Join(dirPath, ConfigFileName)
	if err := os.WriteFile(path, b, fileMode); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return nil
}

// ReadOrCreate reads app config from directory or creates a new one.
func ReadOrCreate(dirPath string) (*Config, error) {
	if dirPath == "" {
		return nil, errors.New("config directory required")
	}

	if _, err := os.Stat(dirPath); errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(dirPath, dirMode); err != nil {
			return nil, fmt.Errorf("failed to create dir %s: %w", dirPath, err)
		}
	}

	path := filepath.Join(dirPath, ConfigFileName)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		slog.Debug("creating default config", "path", path)
		if err := Save(dirPath, Default()); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	}

	return Load(path, "")
}

// GetOrCreateHomeDir returns the named directory under the user's home.
// The create flag is set to true if the directory was created.
func GetOrCreateHomeDir(name string) (path string, created bool, err error) {
	if name == "" {
		return "", false, errors.New("name cannot be empty")
	}

	if !strings.HasPrefix(name, ".") {
		name = "." + name
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", false, fmt.Errorf("failed to get user home dir: %w", err)
	}

	dir := filepath.Join(home, name)
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		slog.Debug("creating dir", "path", dir)
		if err := os.Mkdir(dir, dirMode); err != nil {
			return "", false, fmt.Errorf("failed to create dir %s: %w", dir, err)
		}
		created = true
	}
	return dir, created, nil
}
