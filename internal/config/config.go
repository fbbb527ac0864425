// Package config defines the exporter configuration, its defaults, and
// validation. Configuration is loaded from a YAML file; defaults apply for
// any field the file omits.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	apperrors "github.com/netsweep/netsweep/internal/errors"
)

// Default values matching the behavior of earlier deployments.
const (
	DefaultTargetFile    = "portscanip.nmap"
	DefaultPort          = 9808
	DefaultInterval      = time.Hour
	DefaultBatchSize     = 32
	DefaultConcurrency   = 4
	DefaultGeoIPProvider = "ipapi.co"
	DefaultCacheTTL      = 24 * time.Hour
)

// Config represents the complete exporter configuration.
type Config struct {
	Targets  TargetsConfig  `yaml:"targets" json:"targets"`
	Scanning ScanningConfig `yaml:"scanning" json:"scanning"`
	GeoIP    GeoIPConfig    `yaml:"geoip" json:"geoip"`
	Server   ServerConfig   `yaml:"server" json:"server"`
	Logging  LoggingConfig  `yaml:"logging" json:"logging"`
}

// TargetsConfig selects and parameterizes the target source.
type TargetsConfig struct {
	// Source selects where targets come from each cycle.
	Source string `yaml:"source" json:"source" validate:"oneof=file static aws azure"`

	// File is the target list path for the file source.
	File string `yaml:"file" json:"file"`

	// Static is a fixed target list for the static source.
	Static []string `yaml:"static" json:"static"`

	// AWSCredentials is a JSON list of account credential objects.
	AWSCredentials string `yaml:"aws_credentials" json:"aws_credentials"`

	// AzureCredentials is a JSON list of tenant credential objects.
	AzureCredentials string `yaml:"azure_credentials" json:"azure_credentials"`
}

// ScanningConfig holds batch scheduling and nmap settings.
type ScanningConfig struct {
	// BatchSize is the maximum number of targets per scan invocation.
	BatchSize int `yaml:"batch_size" json:"batch_size" validate:"gt=0"`

	// MaxConcurrency bounds how many batches scan in parallel.
	MaxConcurrency int `yaml:"max_concurrency" json:"max_concurrency" validate:"gt=0"`

	// Ports is the nmap port specification; empty uses nmap defaults.
	Ports string `yaml:"ports" json:"ports"`

	// Args carries extra nmap arguments as a whitespace-separated string.
	Args string `yaml:"args" json:"args"`

	// Interval is the sleep between scan cycles.
	Interval time.Duration `yaml:"interval" json:"interval" validate:"gt=0"`
}

// GeoIPConfig holds enrichment settings.
type GeoIPConfig struct {
	// Enabled toggles GeoIP enrichment of discovered hosts.
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Provider names the lookup provider.
	Provider string `yaml:"provider" json:"provider"`

	// CacheTTL is how long a cached record serves the fast path.
	CacheTTL time.Duration `yaml:"cache_ttl" json:"cache_ttl" validate:"gt=0"`

	// Token is an optional provider API token.
	Token string `yaml:"token" json:"token"`
}

// ServerConfig holds the metrics exposition server settings.
type ServerConfig struct {
	// ListenAddr is the bind address.
	ListenAddr string `yaml:"listen_addr" json:"listen_addr"`

	// Port is the exposition port.
	Port int `yaml:"port" json:"port" validate:"gt=0,lte=65535"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level" json:"level" validate:"oneof=debug info warn error"`

	// Format is text or json.
	Format string `yaml:"format" json:"format" validate:"oneof=text json"`

	// Output is stdout, stderr, or a file path.
	Output string `yaml:"output" json:"output"`
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Targets: TargetsConfig{
			Source: "file",
			File:   DefaultTargetFile,
		},
		Scanning: ScanningConfig{
			BatchSize:      DefaultBatchSize,
			MaxConcurrency: DefaultConcurrency,
			Ports:          "",
			Args:           "-sV -Pn",
			Interval:       DefaultInterval,
		},
		GeoIP: GeoIPConfig{
			Enabled:  false,
			Provider: DefaultGeoIPProvider,
			CacheTTL: DefaultCacheTTL,
		},
		Server: ServerConfig{
			ListenAddr: "",
			Port:       DefaultPort,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
	}
}

// Load loads configuration from a YAML file, layered over defaults. A
// missing file returns the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.WrapConfigError(apperrors.CodeConfiguration,
			"failed to read config file", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, apperrors.WrapConfigError(apperrors.CodeConfiguration,
			"failed to parse YAML config", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration, including source-specific required
// fields.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return apperrors.WrapConfigError(apperrors.CodeValidation,
			"invalid configuration", err)
	}

	switch c.Targets.Source {
	case "file":
		if c.Targets.File == "" {
			return apperrors.ErrConfigMissing("targets.file")
		}
	case "static":
		if len(c.Targets.Static) == 0 {
			return apperrors.ErrConfigMissing("targets.static")
		}
	case "aws":
		if c.Targets.AWSCredentials == "" {
			return apperrors.ErrConfigMissing("targets.aws_credentials")
		}
	case "azure":
		if c.Targets.AzureCredentials == "" {
			return apperrors.ErrConfigMissing("targets.azure_credentials")
		}
	}

	if c.GeoIP.Enabled && c.GeoIP.Provider != DefaultGeoIPProvider {
		return apperrors.NewConfigFieldError(apperrors.CodeValidation,
			fmt.Sprintf("unsupported GeoIP provider: %s", c.GeoIP.Provider),
			"geoip.provider", c.GeoIP.Provider)
	}

	return nil
}

// ListenAddress returns the full exposition bind address.
func (c *Config) ListenAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.ListenAddr, c.Server.Port)
}
