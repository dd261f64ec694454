// Package config handles anthem engine configuration.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"anthemengine/internal/anthem"
	"anthemengine/internal/domain"
	"anthemengine/internal/logging"
	"anthemengine/internal/records"
	_ "anthemengine/internal/records/sources" // registers source types
	"anthemengine/internal/service"
)

// CurrentConfigVersion is the current version of the config file format.
const CurrentConfigVersion = 1

// DefaultFileName is the config file looked up when ANTHEM_CONFIG is unset.
const DefaultFileName = "anthem.yaml"

// Environment overrides.
const (
	EnvConfig   = "ANTHEM_CONFIG"
	EnvDataDir  = "ANTHEM_DATA_DIR"
	EnvLogLevel = "ANTHEM_LOG_LEVEL"
	EnvMode     = "ANTHEM_MODE"
	EnvAddr     = "ANTHEM_ADDR"
)

// Config represents the anthem.yaml configuration file.
type Config struct {
	Version   int                `yaml:"version"`
	DataDir   string             `yaml:"dataDir,omitempty"`
	Log       logging.Config     `yaml:"log"`
	Generator GeneratorConfig    `yaml:"generator"`
	Objects   domain.Objects     `yaml:"objects"`
	Source    SourceConfig       `yaml:"source"`
	Server    ServerConfig       `yaml:"server"`
	Schedules []service.Schedule `yaml:"schedules,omitempty"`
	Watch     []service.Watch    `yaml:"watch,omitempty"`
}

// GeneratorConfig controls how samples are produced.
type GeneratorConfig struct {
	Mode              domain.GenerationMode `yaml:"mode"`
	SampleBudget      int                   `yaml:"sampleBudget"`
	PlaceholderLength int                   `yaml:"placeholderLength,omitempty"`
}

// SourceConfig selects the record source type and its settings.
type SourceConfig struct {
	Type   string               `yaml:"type,omitempty"`
	Config records.SourceConfig `yaml:"config,omitempty"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Version:   CurrentConfigVersion,
		DataDir:   DefaultDataDir(),
		Log:       logging.Config{Level: "info", Format: "text"},
		Generator: GeneratorConfig{Mode: domain.ModePipeline, SampleBudget: anthem.DefaultSampleBudget},
		Objects:   domain.DefaultObjects(),
		Server:    ServerConfig{Addr: ":3000"},
	}
}

// DefaultDataDir is where the local database lives unless configured.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".anthem"
	}
	return filepath.Join(home, ".local", "share", "anthem")
}

// Load reads a Config from a file path. Omitted sections keep their defaults.
func Load(path string) (*Config, error) {
	f, err := os.Open(path) //nolint:gosec // path is provided by caller
	if err != nil {
		return nil, err
	}
	defer f.Close() //nolint:errcheck

	cfg := Default()
	cfg.Objects = domain.Objects{}
	if err := yaml.NewDecoder(f).Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if isZeroObjects(cfg.Objects) {
		cfg.Objects = domain.DefaultObjects()
	}
	return cfg, nil
}

// Resolve loads the config named by ANTHEM_CONFIG (or anthem.yaml in the
// working directory), falling back to Default when that file does not
// exist, then applies environment overrides and validates the result.
// It returns the path the config was read from, or would be saved to.
func Resolve(getenv func(string) string) (*Config, string, error) {
	path := getenv(EnvConfig)
	explicit := path != ""
	if !explicit {
		path = DefaultFileName
	}

	cfg, err := Load(path)
	switch {
	case err == nil:
	case errors.Is(err, os.ErrNotExist) && !explicit:
		cfg = Default()
	default:
		return nil, path, err
	}

	cfg.ApplyEnv(getenv)
	if err := cfg.Validate(); err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// ApplyEnv overrides fields from ANTHEM_* variables.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvDataDir); v != "" {
		c.DataDir = v
	}
	if v := getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := getenv(EnvMode); v != "" {
		c.Generator.Mode = domain.GenerationMode(strings.ToLower(v))
	}
	if v := getenv(EnvAddr); v != "" {
		c.Server.Addr = v
	}
}

// Save writes the Config to a file path.
func (c *Config) Save(path string) error {
	f, err := os.Create(path) //nolint:gosec // path is provided by caller
	if err != nil {
		return err
	}
	defer f.Close() //nolint:errcheck

	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	return enc.Encode(c)
}

// Validate checks the configuration for required fields and valid values.
func (c *Config) Validate() error {
	if c.Version != CurrentConfigVersion {
		return errors.New("unsupported config version")
	}
	if err := c.Log.Validate(); err != nil {
		return err
	}
	switch c.Generator.Mode {
	case domain.ModePipeline, domain.ModePlaceholder:
	default:
		return fmt.Errorf("config: unknown generator mode %q", c.Generator.Mode)
	}
	if c.Generator.SampleBudget <= 0 {
		return fmt.Errorf("config: generator.sampleBudget must be positive, got %d", c.Generator.SampleBudget)
	}
	for name, obj := range map[string]domain.ObjectSchema{
		"primary":   c.Objects.Primary,
		"secondary": c.Objects.Secondary,
		"related":   c.Objects.Related,
	} {
		if obj.Object == "" || obj.KeyField == "" {
			return fmt.Errorf("config: objects.%s needs object and keyField", name)
		}
		if len(obj.Fields) == 0 {
			return fmt.Errorf("config: objects.%s has no fields", name)
		}
	}
	if c.Objects.Related.LinkField == "" {
		return errors.New("config: objects.related needs linkField")
	}
	if c.Source.Type != "" {
		if _, err := records.GetSource(c.Source.Type); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}
	for _, s := range c.Schedules {
		if strings.TrimSpace(s.OpportunityID) == "" || strings.TrimSpace(s.Cron) == "" {
			return errors.New("config: every schedule needs opportunityId and cron")
		}
	}
	for _, w := range c.Watch {
		if strings.TrimSpace(w.Path) == "" {
			return errors.New("config: every watch needs a path")
		}
	}
	return nil
}

// DBPath is the local database file inside DataDir.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "anthem.db")
}

func isZeroObjects(o domain.Objects) bool {
	return o.Primary.Object == "" && o.Secondary.Object == "" && o.Related.Object == ""
}
