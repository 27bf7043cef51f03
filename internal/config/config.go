package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Engine     EngineConfig     `yaml:"engine" mapstructure:"engine"`
	Thresholds ThresholdsConfig `yaml:"thresholds" mapstructure:"thresholds"`
	Zones      ZonesConfig      `yaml:"zones" mapstructure:"zones"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
	Trace      TraceConfig      `yaml:"trace" mapstructure:"trace"`
}

// StoreConfig configures run history persistence.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // "sqlite" or "postgres"
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
	// Disabled skips run history entirely.
	Disabled bool `yaml:"disabled" mapstructure:"disabled"`
}

// EngineConfig tunes the weight solver, classifier and aggregator.
type EngineConfig struct {
	Method              string  `yaml:"method" mapstructure:"method"`
	ConsistencyLimit    float64 `yaml:"consistency_limit" mapstructure:"consistency_limit"`
	WeightTolerance     float64 `yaml:"weight_tolerance" mapstructure:"weight_tolerance"`
	Workers             int     `yaml:"workers" mapstructure:"workers"` // 0 = GOMAXPROCS
	StrictReciprocal    bool    `yaml:"strict_reciprocal" mapstructure:"strict_reciprocal"`
	ReciprocalTolerance float64 `yaml:"reciprocal_tolerance" mapstructure:"reciprocal_tolerance"`
}

// FactorThreshold holds the (low, high) classification thresholds of a factor.
type FactorThreshold struct {
	Low  float64 `yaml:"low" mapstructure:"low"`
	High float64 `yaml:"high" mapstructure:"high"`
}

// ThresholdsConfig holds default thresholds per factor kind.
type ThresholdsConfig struct {
	Elevation FactorThreshold `yaml:"elevation" mapstructure:"elevation"`
	Slope     FactorThreshold `yaml:"slope" mapstructure:"slope"`
	Rainfall  FactorThreshold `yaml:"rainfall" mapstructure:"rainfall"`
	Proximity FactorThreshold `yaml:"proximity" mapstructure:"proximity"`
}

// For returns the thresholds configured for a factor kind.
func (t ThresholdsConfig) For(kind string) (FactorThreshold, bool) {
	switch strings.ToLower(kind) {
	case "elevation":
		return t.Elevation, true
	case "slope":
		return t.Slope, true
	case "rainfall":
		return t.Rainfall, true
	case "proximity":
		return t.Proximity, true
	}
	return FactorThreshold{}, false
}

// ZonesConfig configures risk zone extraction.
type ZonesConfig struct {
	Connectivity int `yaml:"connectivity" mapstructure:"connectivity"` // 4 or 8
	MinCells     int `yaml:"min_cells" mapstructure:"min_cells"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// TraceConfig configures OTLP span export. An empty endpoint disables it.
type TraceConfig struct {
	Endpoint    string `yaml:"endpoint" mapstructure:"endpoint"` // host:port
	Insecure    bool   `yaml:"insecure" mapstructure:"insecure"`
	ServiceName string `yaml:"service_name" mapstructure:"service_name"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("FLOODRISK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "floodrisk.db")
	v.SetDefault("store.disabled", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("engine.method", "eigen")
	v.SetDefault("engine.consistency_limit", 0.1)
	v.SetDefault("engine.weight_tolerance", 1e-6)
	v.SetDefault("engine.workers", 0)
	v.SetDefault("engine.strict_reciprocal", false)
	v.SetDefault("engine.reciprocal_tolerance", 0.05)
	v.SetDefault("thresholds.elevation.low", 570)
	v.SetDefault("thresholds.elevation.high", 700)
	v.SetDefault("thresholds.slope.low", 30)
	v.SetDefault("thresholds.slope.high", 50)
	v.SetDefault("thresholds.rainfall.low", 10)
	v.SetDefault("thresholds.rainfall.high", 24)
	v.SetDefault("thresholds.proximity.low", 0.3)
	v.SetDefault("thresholds.proximity.high", 0.6)
	v.SetDefault("zones.connectivity", 4)
	v.SetDefault("zones.min_cells", 1)
	v.SetDefault("trace.endpoint", "")
	v.SetDefault("trace.insecure", false)
	v.SetDefault("trace.service_name", "floodrisk")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks engine limits, thresholds and the store driver.
func (c *Config) Validate() error {
	var errs []string

	switch c.Engine.Method {
	case "", "eigen", "column-mean":
	default:
		errs = append(errs, "engine.method must be eigen or column-mean")
	}
	if c.Engine.ConsistencyLimit <= 0 {
		errs = append(errs, "engine.consistency_limit must be positive")
	}
	if c.Engine.WeightTolerance <= 0 {
		errs = append(errs, "engine.weight_tolerance must be positive")
	}
	if c.Engine.ReciprocalTolerance <= 0 {
		errs = append(errs, "engine.reciprocal_tolerance must be positive")
	}
	if c.Engine.Workers < 0 {
		errs = append(errs, "engine.workers must not be negative")
	}

	for _, kind := range []string{"elevation", "slope", "rainfall", "proximity"} {
		th, _ := c.Thresholds.For(kind)
		if th.Low > th.High {
			errs = append(errs, "thresholds."+kind+": low must not exceed high")
		}
	}

	if c.Zones.Connectivity != 4 && c.Zones.Connectivity != 8 {
		errs = append(errs, "zones.connectivity must be 4 or 8")
	}

	if !c.Store.Disabled {
		switch c.Store.Driver {
		case "sqlite", "postgres":
		default:
			errs = append(errs, "store.driver must be sqlite or postgres")
		}
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required")
		}
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 1 and 65535")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: invalid: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
