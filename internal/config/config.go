package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the configuration settings for the shade routing service.
//
// Values are resolved in order: built-in defaults, an optional YAML file named by
// SHADEWAY_CONFIG, then environment variables. Every key maps to an environment
// variable with the SHADEWAY_ prefix and dots replaced by underscores, so
// shadow.shrink_factor is read from SHADEWAY_SHADOW_SHRINK_FACTOR. Database
// settings keep the plain DB_* names.
type Config struct {
	Env      string         `mapstructure:"env"`       // Env is the current environment: local, development, production.
	Port     int            `mapstructure:"port"`      // Port is the monitoring server port.
	HTTPAddr string         `mapstructure:"http_addr"` // HTTPAddr is the listen address of the routing API.
	Workers  int            `mapstructure:"workers"`   // Workers is the number of concurrent scoring workers.
	Interval time.Duration  `mapstructure:"interval"`  // Interval is the duration between coverage refreshes.
	Area     string         `mapstructure:"area"`      // Area names the routed network in logs.
	Geocoder GeocoderConfig `mapstructure:"geocoder"`
	Database PostgresConfig `mapstructure:"postgres"`
	Shadow   ShadowConfig   `mapstructure:"shadow"`
	Coverage CoverageConfig `mapstructure:"coverage"`
	Routing  RoutingConfig  `mapstructure:"routing"`
	Planting PlantingConfig `mapstructure:"planting"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
}

// GeocoderConfig selects the provider used to resolve route endpoints given as addresses.
type GeocoderConfig struct {
	Provider  string `mapstructure:"provider"`   // google or nominatim
	APIKey    string `mapstructure:"api_key"`    // required for google
	RateLimit int    `mapstructure:"rate_limit"` // requests per second, zero for provider default
	Region    string `mapstructure:"region"`     // ccTLD region bias
}

// PostgresConfig struct holds the configuration details for connecting to a PostgreSQL database.
type PostgresConfig struct {
	Host     string `mapstructure:"host"`     // Host is the database server address.
	Port     string `mapstructure:"port"`     // Port is the database server port.
	User     string `mapstructure:"user"`     // User is the database user.
	Password string `mapstructure:"password"` // Password is the database user's password.
	Name     string `mapstructure:"name"`     // Name is the name of the database.
}

type ShadowConfig struct {
	ShrinkFactor float64 `mapstructure:"shrink_factor"`
	TrunkRadius  float64 `mapstructure:"trunk_radius"`
	QuadSegs     int     `mapstructure:"quad_segs"`
}

type CoverageConfig struct {
	Epsilon float64 `mapstructure:"epsilon"`
}

type RoutingConfig struct {
	Timeout time.Duration `mapstructure:"timeout"` // Timeout bounds a single path search.
	Alpha   float64       `mapstructure:"alpha"`   // Alpha is used when a request omits it.
}

type PlantingConfig struct {
	Spacing       float64 `mapstructure:"spacing"`
	TreesInRow    int     `mapstructure:"trees_in_row"`
	MinShade      float64 `mapstructure:"min_shade"`
	MinTraffic    float64 `mapstructure:"min_traffic"`
	TrafficWeight float64 `mapstructure:"traffic_weight"`
	Budget        int     `mapstructure:"budget"`
}

// TracingConfig configures OpenTelemetry export.
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Exporter    string  `mapstructure:"exporter"` // stdout or otlp
	Endpoint    string  `mapstructure:"endpoint"` // OTLP gRPC collector address
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

var defaults = map[string]any{
	"env":                     "production",
	"port":                    8080,
	"http_addr":               ":8090",
	"workers":                 10,
	"interval":                "15m",
	"area":                    "default",
	"geocoder.provider":       "nominatim",
	"geocoder.api_key":        "",
	"geocoder.rate_limit":     0,
	"geocoder.region":         "",
	"postgres.host":           "",
	"postgres.port":           "5432",
	"postgres.user":           "",
	"postgres.password":       "",
	"postgres.name":           "",
	"shadow.shrink_factor":    0.2,
	"shadow.trunk_radius":     0.3,
	"shadow.quad_segs":        8,
	"coverage.epsilon":        1e-6,
	"routing.timeout":         "5s",
	"routing.alpha":           0.5,
	"planting.spacing":        8.0,
	"planting.trees_in_row":   5,
	"planting.min_shade":      0.75,
	"planting.min_traffic":    0.5,
	"planting.traffic_weight": 0.5,
	"planting.budget":         100,
	"tracing.enabled":         false,
	"tracing.exporter":        "stdout",
	"tracing.endpoint":        "localhost:4317",
	"tracing.sample_ratio":    1.0,
}

var databaseEnv = map[string]string{
	"postgres.host":     "DB_HOST",
	"postgres.port":     "DB_PORT",
	"postgres.user":     "DB_USERNAME",
	"postgres.password": "DB_PASSWORD",
	"postgres.name":     "DB_NAME",
}

// MustLoad resolves the configuration and panics when a value cannot be parsed or is out of range.
func MustLoad() *Config {
	_ = godotenv.Load()

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix("SHADEWAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range databaseEnv {
		_ = v.BindEnv(key, env)
	}

	if path := os.Getenv("SHADEWAY_CONFIG"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			panic("failed to read configuration file " + path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to parse configuration: %v", err))
	}

	if err := cfg.validate(); err != nil {
		panic(err.Error())
	}

	return &cfg
}

func (c *Config) validate() error {
	switch {
	case c.Workers <= 0:
		return fmt.Errorf("failed to parse workers from configuration, must be positive: %d", c.Workers)
	case c.Interval <= 0:
		return fmt.Errorf("failed to parse interval from configuration, must be positive: %s", c.Interval)
	case c.Shadow.ShrinkFactor < 0 || c.Shadow.ShrinkFactor >= 1:
		return fmt.Errorf("shadow shrink factor must be in [0, 1): %g", c.Shadow.ShrinkFactor)
	case c.Shadow.TrunkRadius <= 0:
		return fmt.Errorf("shadow trunk radius must be positive: %g", c.Shadow.TrunkRadius)
	case c.Shadow.QuadSegs <= 0:
		return fmt.Errorf("shadow quad segments must be positive: %d", c.Shadow.QuadSegs)
	case c.Coverage.Epsilon < 0:
		return fmt.Errorf("coverage epsilon must not be negative: %g", c.Coverage.Epsilon)
	case c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1:
		return fmt.Errorf("tracing sample ratio must be in [0, 1]: %g", c.Tracing.SampleRatio)
	}
	return nil
}
