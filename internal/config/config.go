// Package config loads the gateway configuration from YAML with environment
// overrides.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/hanpama/thundergql/internal/producer"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "THUNDERGQL_"

// Config is the root configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Store  StoreConfig  `yaml:"store"`
	Images ImagesConfig `yaml:"images"`
	Media  MediaConfig  `yaml:"media"`
	Remote RemoteConfig `yaml:"remote"`
	Otel   OtelConfig   `yaml:"otel"`
	Log    LogConfig    `yaml:"log"`

	// CallbackFields adds fields that read the same-named key of their
	// parent value, keyed by type name.
	CallbackFields map[string][]string `yaml:"callbackFields"`
}

type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	Path           string   `yaml:"path"`
	Timeout        string   `yaml:"timeout"`
	Pretty         bool     `yaml:"pretty"`
	MaxBodyBytes   int64    `yaml:"maxBodyBytes"`
	CORS           []string `yaml:"cors"`
	GraphiQL       bool     `yaml:"graphiql"`
	Introspection  bool     `yaml:"introspection"`
	MaxConcurrency int      `yaml:"maxConcurrency"`
}

// StoreConfig selects the entity store. Driver "memory" loads Fixtures into
// memory; driver "sqlite" opens DSN.
type StoreConfig struct {
	Driver   string `yaml:"driver"`
	Fixtures string `yaml:"fixtures"`
	DSN      string `yaml:"dsn"`
}

type ImagesConfig struct {
	BaseURL  string                         `yaml:"baseURL"`
	FilesDir string                         `yaml:"filesDir"`
	Styles   map[string]producer.ImageStyle `yaml:"styles"`
}

type MediaConfig struct {
	// SourceFields maps media bundles to the field holding the media source.
	SourceFields    map[string]string `yaml:"sourceFields"`
	Languages       []string          `yaml:"languages"`
	DefaultLanguage string            `yaml:"defaultLanguage"`
}

// RemoteConfig routes operations to remote producers over gRPC.
type RemoteConfig struct {
	Operations          map[string][]string `yaml:"operations"`
	MaxConnsPerEndpoint int                 `yaml:"maxConnsPerEndpoint"`
	RPCTimeout          string              `yaml:"rpcTimeout"`
}

type OtelConfig struct {
	Endpoint string `yaml:"endpoint"`
	Service  string `yaml:"service"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	opts := producer.DefaultOptions()
	return &Config{
		Server: ServerConfig{
			Addr:           ":8080",
			Path:           "/graphql",
			Timeout:        "10s",
			MaxBodyBytes:   1 << 20,
			GraphiQL:       true,
			Introspection:  true,
			MaxConcurrency: 8,
		},
		Store: StoreConfig{Driver: "memory"},
		Images: ImagesConfig{
			BaseURL:  opts.BaseURL,
			FilesDir: opts.FilesDir,
			Styles:   opts.Styles,
		},
		Media: MediaConfig{
			SourceFields:    opts.SourceFields,
			Languages:       opts.Languages,
			DefaultLanguage: opts.DefaultLanguage,
		},
		Remote: RemoteConfig{MaxConnsPerEndpoint: 2, RPCTimeout: "3s"},
		Otel:   OtelConfig{Service: "thundergql"},
		Log:    LogConfig{Level: "info", Format: "json"},
	}
}

// Load reads path over the defaults and applies environment overrides. An
// empty path or a missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, errors.Wrap(err, "read config")
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, errors.Wrapf(err, "parse config %s", path)
			}
		}
	}
	if err := cfg.applyEnvOverrides(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			*dst = v
		}
	}
	str("ADDR", &c.Server.Addr)
	str("TIMEOUT", &c.Server.Timeout)
	str("STORE_DRIVER", &c.Store.Driver)
	str("STORE_FIXTURES", &c.Store.Fixtures)
	str("STORE_DSN", &c.Store.DSN)
	str("IMAGES_BASE_URL", &c.Images.BaseURL)
	str("OTEL_ENDPOINT", &c.Otel.Endpoint)
	str("OTEL_SERVICE", &c.Otel.Service)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)

	if v, ok := lookup(EnvPrefix + "INTROSPECTION"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.Wrapf(err, "%sINTROSPECTION", EnvPrefix)
		}
		c.Server.Introspection = b
	}
	if v, ok := lookup(EnvPrefix + "CORS"); ok && v != "" {
		c.Server.CORS = strings.Split(v, ",")
	}
	return nil
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "memory":
	case "sqlite":
		if c.Store.DSN == "" {
			return errors.New("store.dsn is required for the sqlite driver")
		}
	default:
		return errors.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if _, err := time.ParseDuration(c.Server.Timeout); err != nil {
		return errors.Wrap(err, "server.timeout")
	}
	if _, err := time.ParseDuration(c.Remote.RPCTimeout); err != nil {
		return errors.Wrap(err, "remote.rpcTimeout")
	}
	return nil
}

// ServerTimeout returns the request timeout.
func (c *Config) ServerTimeout() time.Duration {
	d, err := time.ParseDuration(c.Server.Timeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// RPCTimeout returns the remote producer call timeout.
func (c *Config) RPCTimeout() time.Duration {
	d, err := time.ParseDuration(c.Remote.RPCTimeout)
	if err != nil {
		return 3 * time.Second
	}
	return d
}

// ProducerOptions returns the builtin producer options.
func (c *Config) ProducerOptions() producer.Options {
	return producer.Options{
		BaseURL:         c.Images.BaseURL,
		FilesDir:        c.Images.FilesDir,
		Styles:          c.Images.Styles,
		SourceFields:    c.Media.SourceFields,
		Languages:       c.Media.Languages,
		DefaultLanguage: c.Media.DefaultLanguage,
	}
}

// Marshal renders c as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
