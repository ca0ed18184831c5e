package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Fetch   FetchConfig   `yaml:"fetch" mapstructure:"fetch"`
	Sources SourcesConfig `yaml:"sources" mapstructure:"sources"`
	Enrich  EnrichConfig  `yaml:"enrich" mapstructure:"enrich"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// FetchConfig tunes the shared HTTP client used by every adapter.
type FetchConfig struct {
	TimeoutSecs    int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries     int    `yaml:"max_retries" mapstructure:"max_retries"`
	RetryDelayMs   int    `yaml:"retry_delay_ms" mapstructure:"retry_delay_ms"`
	UserAgent      string `yaml:"user_agent" mapstructure:"user_agent"`
	HostRatePerSec int    `yaml:"host_rate_per_sec" mapstructure:"host_rate_per_sec"`
}

// Timeout returns the fetch timeout as a duration.
func (f FetchConfig) Timeout() time.Duration {
	return time.Duration(f.TimeoutSecs) * time.Second
}

// RetryDelay returns the base retry delay as a duration.
func (f FetchConfig) RetryDelay() time.Duration {
	return time.Duration(f.RetryDelayMs) * time.Millisecond
}

// SourcesConfig groups the per-adapter settings.
type SourcesConfig struct {
	HeadStart HeadStartConfig `yaml:"head_start" mapstructure:"head_start"`
	NCESPK    NCESPKConfig    `yaml:"nces_pk" mapstructure:"nces_pk"`
	VA        VAConfig        `yaml:"va_license" mapstructure:"va_license"`
	FL        FLConfig        `yaml:"fl_license" mapstructure:"fl_license"`
	TX        TXConfig        `yaml:"tx_license" mapstructure:"tx_license"`
}

// HeadStartConfig configures the Head Start center directory adapter.
type HeadStartConfig struct {
	URL string `yaml:"url" mapstructure:"url"`
}

// NCESPKConfig configures the NCES public-school pre-K adapter.
type NCESPKConfig struct {
	URL     string `yaml:"url" mapstructure:"url"`
	MaxRows int    `yaml:"max_rows" mapstructure:"max_rows"`
}

// VAConfig configures the Virginia licensing search scrape.
type VAConfig struct {
	SearchURL         string `yaml:"search_url" mapstructure:"search_url"`
	DetailURL         string `yaml:"detail_url" mapstructure:"detail_url"`
	DetailConcurrency int    `yaml:"detail_concurrency" mapstructure:"detail_concurrency"`
	MaxDetails        int    `yaml:"max_details" mapstructure:"max_details"`
}

// FLConfig configures the Florida provider search API. The token credentials
// are the published public-search ones; override them when the state rotates
// them.
type FLConfig struct {
	TokenURL      string   `yaml:"token_url" mapstructure:"token_url"`
	SearchURL     string   `yaml:"search_url" mapstructure:"search_url"`
	TokenUsername string   `yaml:"token_username" mapstructure:"token_username"`
	TokenPassword string   `yaml:"token_password" mapstructure:"token_password"`
	APIKey        string   `yaml:"api_key" mapstructure:"api_key"`
	APISecret     string   `yaml:"api_secret" mapstructure:"api_secret"`
	SeedTerms     []string `yaml:"seed_terms" mapstructure:"seed_terms"`
	MaxQueries    int      `yaml:"max_queries" mapstructure:"max_queries"`
}

// TXConfig configures the Texas provider search API.
type TXConfig struct {
	TokenURL  string `yaml:"token_url" mapstructure:"token_url"`
	SearchURL string `yaml:"search_url" mapstructure:"search_url"`
	PageSize  int    `yaml:"page_size" mapstructure:"page_size"`
	MaxPages  int    `yaml:"max_pages" mapstructure:"max_pages"`
}

// EnrichConfig configures the website enrichment batch.
type EnrichConfig struct {
	Limit         int `yaml:"limit" mapstructure:"limit"`
	CacheTTLHours int `yaml:"cache_ttl_hours" mapstructure:"cache_ttl_hours"`
}

// CacheTTL returns the search-result cache TTL as a duration.
func (e EnrichConfig) CacheTTL() time.Duration {
	return time.Duration(e.CacheTTLHours) * time.Hour
}

// ServerConfig configures the HTTP trigger server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("INGEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "ingest.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("fetch.timeout_secs", 30)
	v.SetDefault("fetch.max_retries", 2)
	v.SetDefault("fetch.retry_delay_ms", 500)
	v.SetDefault("fetch.user_agent", "yourschools-ingest/1.0")
	v.SetDefault("fetch.host_rate_per_sec", 5)
	v.SetDefault("sources.head_start.url", "https://eclkc.ohs.acf.hhs.gov/sites/default/files/data/center-directory.csv")
	v.SetDefault("sources.nces_pk.url", "https://nces.ed.gov/ccd/data/csv/public-school-directory.csv")
	v.SetDefault("sources.nces_pk.max_rows", 0)
	v.SetDefault("sources.va_license.search_url", "https://www.dss.virginia.gov/facility/search/cc2.cgi")
	v.SetDefault("sources.va_license.detail_url", "https://www.dss.virginia.gov/facility/search/cc2.cgi")
	v.SetDefault("sources.va_license.detail_concurrency", 8)
	v.SetDefault("sources.va_license.max_details", 0)
	v.SetDefault("sources.fl_license.token_url", "https://caresapi.myflfamilies.com/api/user/token")
	v.SetDefault("sources.fl_license.search_url", "https://caresapi.myflfamilies.com/api/publicSearch/Search")
	v.SetDefault("sources.fl_license.token_username", "publicSearch@myflfamilies.com")
	v.SetDefault("sources.fl_license.token_password", "Cares1234!")
	v.SetDefault("sources.fl_license.api_key", "carespwaclient")
	v.SetDefault("sources.fl_license.api_secret", "29D28345-C513-47C7-BEA1-EF5125AA03B0")
	v.SetDefault("sources.fl_license.max_queries", 450)
	v.SetDefault("sources.tx_license.token_url", "https://childcare.hhs.texas.gov/api/public/security/token")
	v.SetDefault("sources.tx_license.search_url", "https://childcare.hhs.texas.gov/api/ps/daycare/providers")
	v.SetDefault("sources.tx_license.page_size", 1000)
	v.SetDefault("sources.tx_license.max_pages", 0)
	v.SetDefault("enrich.limit", 25)
	v.SetDefault("enrich.cache_ttl_hours", 24)

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

// Validate checks the settings a command mode depends on. Modes: "ingest",
// "enrich", "serve".
func (c *Config) Validate(mode string) error {
	var problems []string

	if c.Store.Driver != "postgres" && c.Store.Driver != "sqlite" {
		problems = append(problems, "store.driver must be postgres or sqlite")
	}
	if c.Store.DatabaseURL == "" {
		problems = append(problems, "store.database_url is required")
	}

	switch mode {
	case "ingest":
		if c.Fetch.MaxRetries < 0 {
			problems = append(problems, "fetch.max_retries must be >= 0")
		}
		if c.Sources.VA.DetailConcurrency < 1 || c.Sources.VA.DetailConcurrency > 32 {
			problems = append(problems, "sources.va_license.detail_concurrency must be between 1 and 32")
		}
		if c.Sources.TX.PageSize < 1 {
			problems = append(problems, "sources.tx_license.page_size must be > 0")
		}
	case "enrich":
		if c.Enrich.Limit < 1 || c.Enrich.Limit > 1000 {
			problems = append(problems, "enrich.limit must be between 1 and 1000")
		}
	case "serve":
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: invalid configuration: %s", strings.Join(problems, "; "))
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
