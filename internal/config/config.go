package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/dyluth/gamedata/internal/assets"
	"github.com/dyluth/gamedata/pkg/datastore"
	"gopkg.in/yaml.v3"
)

// DefaultFile is the config file name looked up in the working directory.
const DefaultFile = "gamedata.yml"

const (
	defaultInstance = "default"
	defaultWorkers  = 4
)

// GamedataConfig represents the top-level gamedata.yml configuration
type GamedataConfig struct {
	Version    string            `yaml:"version"`
	Instance   string            `yaml:"instance,omitempty"` // Redis key namespace, default "default"
	Redis      *RedisConfig      `yaml:"redis,omitempty"`    // Optional external asset store
	Workers    int               `yaml:"workers,omitempty"`  // Async pool size, default 4
	Namespaces []NamespaceConfig `yaml:"namespaces,omitempty"`
	Assets     []AssetConfig     `yaml:"assets,omitempty"`
}

// RedisConfig locates the Redis server backing the asset store
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
}

// NamespaceConfig seeds one namespace
type NamespaceConfig struct {
	Type       string           `yaml:"type"`
	Namespace  string           `yaml:"namespace"`
	Properties []PropertyConfig `yaml:"properties,omitempty"`
}

// PropertyConfig declares one property. Without a value the property is
// created undefined with the declared type.
type PropertyConfig struct {
	Name  string      `yaml:"name"`
	Type  string      `yaml:"type,omitempty"` // LONG, DOUBLE, ...; inferred from value when empty
	Value interface{} `yaml:"value,omitempty"`
	Tags  []string    `yaml:"tags,omitempty"`
}

// AssetConfig registers asset content. Exactly one of File or Content is set.
type AssetConfig struct {
	Name    string `yaml:"name"`
	Type    string `yaml:"type"` // json, text, image or binary
	File    string `yaml:"file,omitempty"`
	Content string `yaml:"content,omitempty"`
}

// EnvOverrides are read from the environment after the file is parsed
type EnvOverrides struct {
	Instance  string `env:"GAMEDATA_INSTANCE"`
	RedisAddr string `env:"GAMEDATA_REDIS_ADDR"`
	Workers   int    `env:"GAMEDATA_WORKERS"`
}

// Default returns the configuration used when no file exists
func Default() *GamedataConfig {
	return &GamedataConfig{Version: "1.0"}
}

// Validate performs strict validation on the configuration and applies defaults
func (c *GamedataConfig) Validate() error {
	// Required: version
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	if c.Instance == "" {
		c.Instance = defaultInstance
	}
	if err := assets.ValidateInstanceName(c.Instance); err != nil {
		return err
	}
	if c.Workers == 0 {
		c.Workers = defaultWorkers
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be >= 1, got %d", c.Workers)
	}

	if c.Redis != nil && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required when redis is configured")
	}

	assetsSeen := make(map[string]bool)
	for i := range c.Assets {
		a := &c.Assets[i]
		if err := a.Validate(); err != nil {
			return err
		}
		if assetsSeen[a.Name] {
			return fmt.Errorf("duplicate asset name '%s'", a.Name)
		}
		assetsSeen[a.Name] = true
	}

	namespacesSeen := make(map[string]bool)
	for i := range c.Namespaces {
		ns := &c.Namespaces[i]
		if err := ns.Validate(); err != nil {
			return err
		}
		key := ns.Type + "/" + ns.Namespace
		if namespacesSeen[key] {
			return fmt.Errorf("duplicate namespace '%s'", key)
		}
		namespacesSeen[key] = true
	}

	return nil
}

// Validate performs validation on a single namespace
func (n *NamespaceConfig) Validate() error {
	if n.Type == "" {
		return fmt.Errorf("namespace '%s': type is required", n.Namespace)
	}
	if n.Namespace == "" {
		return fmt.Errorf("namespace of type '%s': namespace is required", n.Type)
	}

	seen := make(map[string]bool)
	for _, p := range n.Properties {
		if p.Name == "" {
			return fmt.Errorf("namespace '%s/%s': property name is required", n.Type, n.Namespace)
		}
		if seen[p.Name] {
			return fmt.Errorf("namespace '%s/%s': duplicate property '%s'", n.Type, n.Namespace, p.Name)
		}
		seen[p.Name] = true

		if p.Type == "" && p.Value == nil {
			return fmt.Errorf("namespace '%s/%s': property '%s' needs a type or a value", n.Type, n.Namespace, p.Name)
		}
		if len(p.Tags) > 0 && p.Value == nil {
			return fmt.Errorf("namespace '%s/%s': property '%s' has tags but no value", n.Type, n.Namespace, p.Name)
		}
		if p.Type != "" {
			if _, err := datastore.ParseDataType(p.Type); err != nil {
				return fmt.Errorf("namespace '%s/%s': property '%s': %w", n.Type, n.Namespace, p.Name, err)
			}
		}
	}
	return nil
}

// Validate performs validation on a single asset
func (a *AssetConfig) Validate() error {
	if a.Name == "" {
		return fmt.Errorf("asset name is required")
	}
	if err := datastore.AssetType(a.Type).Validate(); err != nil {
		return fmt.Errorf("asset '%s': %w", a.Name, err)
	}
	if (a.File == "") == (a.Content == "") {
		return fmt.Errorf("asset '%s': exactly one of file or content must be set", a.Name)
	}
	return nil
}

// ApplyEnv overlays environment overrides onto the configuration
func (c *GamedataConfig) ApplyEnv() error {
	var overrides EnvOverrides
	if err := env.Parse(&overrides); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}

	if overrides.Instance != "" {
		c.Instance = overrides.Instance
	}
	if overrides.RedisAddr != "" {
		if c.Redis == nil {
			c.Redis = &RedisConfig{}
		}
		c.Redis.Addr = overrides.RedisAddr
	}
	if overrides.Workers != 0 {
		c.Workers = overrides.Workers
	}
	return nil
}

// Load reads gamedata.yml from the specified path, applies environment
// overrides and validates the result
func Load(path string) (*GamedataConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config GamedataConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := config.ApplyEnv(); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// LoadOrDefault loads path when it exists and falls back to Default otherwise.
// Environment overrides apply in both cases.
func LoadOrDefault(path string) (*GamedataConfig, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		config := Default()
		if err := config.ApplyEnv(); err != nil {
			return nil, err
		}
		if err := config.Validate(); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
		return config, nil
	}
	return Load(path)
}
