package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/nvdb-export/internal/geometry"
)

// Output formats accepted by export.format.
const (
	FormatGPKG      = "gpkg"
	FormatShapefile = "shp"
)

// Config holds the full application configuration.
type Config struct {
	NVDB   NVDBConfig   `yaml:"nvdb" mapstructure:"nvdb"`
	Export ExportConfig `yaml:"export" mapstructure:"export"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// NVDBConfig configures the NVDB read API client.
type NVDBConfig struct {
	BaseURL        string  `yaml:"base_url" mapstructure:"base_url"`
	CatalogURL     string  `yaml:"catalog_url" mapstructure:"catalog_url"`
	ClientName     string  `yaml:"client_name" mapstructure:"client_name"`
	TimeoutSecs    int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries     int     `yaml:"max_retries" mapstructure:"max_retries"` // attempts per request, first try included
	PageSize       int     `yaml:"page_size" mapstructure:"page_size"`
	RequestsPerSec float64 `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
	// Consecutive failed requests before the client stops calling NVDB for
	// BreakerResetSecs. -1 disables the breaker.
	BreakerThreshold int `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
	BreakerResetSecs int `yaml:"breaker_reset_secs" mapstructure:"breaker_reset_secs"`
}

// ExportConfig configures what is exported and where it is written.
type ExportConfig struct {
	Fylke             int    `yaml:"fylke" mapstructure:"fylke"`
	CRS               string `yaml:"crs" mapstructure:"crs"`
	OutDir            string `yaml:"out_dir" mapstructure:"out_dir"`
	Basename          string `yaml:"basename" mapstructure:"basename"`
	Format            string `yaml:"format" mapstructure:"format"`
	IncludeProperties bool   `yaml:"include_properties" mapstructure:"include_properties"`
	Report            bool   `yaml:"report" mapstructure:"report"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// SRID returns the numeric EPSG code of the configured CRS.
func (e ExportConfig) SRID() (int, error) {
	return geometry.ParseCRS(e.CRS)
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("NVDB_EXPORT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("nvdb.base_url", "https://nvdbapiles.atlas.vegvesen.no/vegobjekter/api/v4")
	v.SetDefault("nvdb.catalog_url", "https://nvdbapiles.atlas.vegvesen.no/datakatalog/api/v4")
	v.SetDefault("nvdb.client_name", "nvdb-export")
	v.SetDefault("nvdb.timeout_secs", 60)
	v.SetDefault("nvdb.max_retries", 3)
	v.SetDefault("nvdb.page_size", 1000)
	v.SetDefault("nvdb.requests_per_sec", 5)
	v.SetDefault("nvdb.breaker_threshold", 5)
	v.SetDefault("nvdb.breaker_reset_secs", 30)
	v.SetDefault("export.fylke", 56)
	v.SetDefault("export.crs", "EPSG:5973")
	v.SetDefault("export.out_dir", ".")
	v.SetDefault("export.basename", "nvdb_finnmark_all")
	v.SetDefault("export.format", FormatGPKG)
	v.SetDefault("export.include_properties", true)
	v.SetDefault("export.report", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

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

// Validate checks the values an export run depends on and reports every
// problem at once.
func (c *Config) Validate() error {
	var errs []string

	if c.Export.Fylke <= 0 {
		errs = append(errs, "export.fylke must be > 0")
	}
	if _, err := c.Export.SRID(); err != nil {
		errs = append(errs, "export.crs: "+err.Error())
	}
	if strings.TrimSpace(c.Export.Basename) == "" {
		errs = append(errs, "export.basename is required")
	}
	switch c.Export.Format {
	case FormatGPKG, FormatShapefile:
	default:
		errs = append(errs, "export.format must be gpkg or shp, got "+c.Export.Format)
	}
	if c.NVDB.BaseURL == "" {
		errs = append(errs, "nvdb.base_url is required")
	}
	if c.NVDB.CatalogURL == "" {
		errs = append(errs, "nvdb.catalog_url is required")
	}
	if c.NVDB.PageSize < 1 || c.NVDB.PageSize > 10000 {
		errs = append(errs, "nvdb.page_size must be between 1 and 10000")
	}
	if c.NVDB.MaxRetries < 1 {
		errs = append(errs, "nvdb.max_retries must be >= 1 (attempts per request; 1 disables retries)")
	}
	if c.NVDB.RequestsPerSec < 0 {
		errs = append(errs, "nvdb.requests_per_sec must be >= 0")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
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
