package config

import (
	"fmt"
	"strings"

	"github.com/creasty/defaults"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/vnykmshr/gofabric/pkg/fabric"
	"github.com/vnykmshr/gofabric/pkg/metrics"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "FABRIC"

// Configuration is the root of the fabricctl settings.
type Configuration struct {
	Fabric    Fabric  `mapstructure:"fabric"`
	Metrics   Metrics `mapstructure:"metrics"`
	LogFormat string  `mapstructure:"log-format" default:"console"`
	LogLevel  string  `mapstructure:"log-level" default:"info"`
}

// Fabric holds worker pool settings.
type Fabric struct {
	Name         string `mapstructure:"name" default:"fabricctl"`
	Workers      int    `mapstructure:"workers" default:"0"`
	StackSize    int    `mapstructure:"stack-size" default:"65536"`
	CarrierCache int    `mapstructure:"carrier-cache" default:"64"`
}

// Metrics holds Prometheus settings.
type Metrics struct {
	Enabled bool   `mapstructure:"enabled" default:"true"`
	Address string `mapstructure:"address" default:":9090"`
	Path    string `mapstructure:"path" default:"/metrics"`
}

// NewConfiguration returns a configuration holding only defaults.
func NewConfiguration() (*Configuration, error) {
	c := &Configuration{}
	if err := defaults.Set(c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	return c, nil
}

// flagKeys maps flag names to configuration keys.
var flagKeys = map[string]string{
	"workers":       "fabric.workers",
	"stack-size":    "fabric.stack-size",
	"carrier-cache": "fabric.carrier-cache",
	"name":          "fabric.name",
	"metrics":       "metrics.enabled",
	"metrics-addr":  "metrics.address",
	"log-format":    "log-format",
	"log-level":     "log-level",
}

// BindFlags registers the configuration flags on fs, using the struct
// defaults as flag defaults.
func BindFlags(fs *pflag.FlagSet) {
	d, _ := NewConfiguration()
	fs.String("config", "", "path to a config file (yaml, json or toml)")
	fs.Int("workers", d.Fabric.Workers, "number of workers (0 = GOMAXPROCS)")
	fs.Int("stack-size", d.Fabric.StackSize, "per-task stack budget in bytes")
	fs.Int("carrier-cache", d.Fabric.CarrierCache, "idle carriers kept per worker")
	fs.String("name", d.Fabric.Name, "fabric name used in logs and metrics")
	fs.Bool("metrics", d.Metrics.Enabled, "record Prometheus metrics")
	fs.String("metrics-addr", d.Metrics.Address, "listen address for the metrics endpoint")
	fs.String("log-format", d.LogFormat, "log format: console or json")
	fs.String("log-level", d.LogLevel, "log level")
}

// Load resolves the configuration from defaults, the file named by the
// config flag, environment variables and the flags set on fs. fs may be nil.
func Load(fs *pflag.FlagSet) (*Configuration, error) {
	c, err := NewConfiguration()
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v, c)

	if fs != nil {
		for flag, key := range flagKeys {
			if f := fs.Lookup(flag); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", flag, err)
				}
			}
		}
		if f := fs.Lookup("config"); f != nil && f.Value.String() != "" {
			v.SetConfigFile(f.Value.String())
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config %s: %w", f.Value.String(), err)
			}
		}
	}

	if err := v.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("decode configuration: %w", err)
	}
	return c, nil
}

// setDefaults registers every key so environment variables are seen by
// Unmarshal.
func setDefaults(v *viper.Viper, c *Configuration) {
	v.SetDefault("fabric.name", c.Fabric.Name)
	v.SetDefault("fabric.workers", c.Fabric.Workers)
	v.SetDefault("fabric.stack-size", c.Fabric.StackSize)
	v.SetDefault("fabric.carrier-cache", c.Fabric.CarrierCache)
	v.SetDefault("metrics.enabled", c.Metrics.Enabled)
	v.SetDefault("metrics.address", c.Metrics.Address)
	v.SetDefault("metrics.path", c.Metrics.Path)
	v.SetDefault("log-format", c.LogFormat)
	v.SetDefault("log-level", c.LogLevel)
}

// FabricConfig converts the settings into a fabric configuration.
func (c *Configuration) FabricConfig(logger *zap.Logger, reg *metrics.Registry) fabric.Config {
	cfg := fabric.Config{
		Name:             c.Fabric.Name,
		WorkerCount:      c.Fabric.Workers,
		StackSize:        c.Fabric.StackSize,
		CarrierCacheSize: c.Fabric.CarrierCache,
		Logger:           logger,
	}
	if c.Metrics.Enabled {
		cfg.Metrics = reg
	}
	return cfg
}
