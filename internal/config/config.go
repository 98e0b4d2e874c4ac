package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/shopgrid/scraper/internal/browser"
	"github.com/shopgrid/scraper/internal/scraper"
)

const MaxProductsLimit = 50

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Scraper  ScraperConfig  `mapstructure:"scraper"`
	Browser  BrowserConfig  `mapstructure:"browser"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Host            string        `mapstructure:"host"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

type ScraperConfig struct {
	SearchEndpoint string        `mapstructure:"search_endpoint"`
	BaseURL        string        `mapstructure:"base_url"`
	MaxProducts    int           `mapstructure:"max_products"`
	PanelTimeout   time.Duration `mapstructure:"panel_timeout"`
	DetailTimeout  time.Duration `mapstructure:"detail_timeout"`
	SettleDelay    time.Duration `mapstructure:"settle_delay"`
	MaxConcurrent  int           `mapstructure:"max_concurrent"`
	// RateLimit is scrape requests per second admitted by the API.
	RateLimit   float64 `mapstructure:"rate_limit"`
	RateBurst   int     `mapstructure:"rate_burst"`
	FiltersFile string  `mapstructure:"filters_file"`
}

type BrowserConfig struct {
	Driver         string        `mapstructure:"driver"`
	Headless       bool          `mapstructure:"headless"`
	Timeout        time.Duration `mapstructure:"timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
	ViewportWidth  int           `mapstructure:"viewport_width"`
	ViewportHeight int           `mapstructure:"viewport_height"`
	AcceptLanguage string        `mapstructure:"accept_language"`
	TimezoneID     string        `mapstructure:"timezone"`
	Locale         string        `mapstructure:"locale"`
	ProxyServer    string        `mapstructure:"proxy"`
	ExecPath       string        `mapstructure:"exec_path"`
	BlockResources []string      `mapstructure:"block_resources"`
}

type DatabaseConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"name"`
	SSLMode  string `mapstructure:"ssl_mode"`
	MaxConns int32  `mapstructure:"max_conns"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Stream   string `mapstructure:"stream"`
}

type StorageConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	OutputFile string `mapstructure:"output_file"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads defaults, then an optional YAML file, then the environment.
// Environment keys are the upper-cased dotted keys with "." replaced by "_",
// e.g. SERVER_PORT or BROWSER_DRIVER. An empty configFile searches for
// config.yaml in the working directory and ./config.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindLegacyEnv(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 5*time.Minute)
	v.SetDefault("server.request_timeout", 4*time.Minute)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:*", "https://localhost:*"})

	v.SetDefault("scraper.search_endpoint", scraper.DefaultSearchEndpoint)
	v.SetDefault("scraper.base_url", "https://www.google.com/")
	v.SetDefault("scraper.max_products", scraper.DefaultMaxProducts)
	v.SetDefault("scraper.panel_timeout", 5*time.Second)
	v.SetDefault("scraper.detail_timeout", 5*time.Second)
	v.SetDefault("scraper.settle_delay", time.Second)
	v.SetDefault("scraper.max_concurrent", 2)
	v.SetDefault("scraper.rate_limit", 0.5)
	v.SetDefault("scraper.rate_burst", 2)
	v.SetDefault("scraper.filters_file", "data/available-filters.json")

	bd := browser.DefaultOptions()
	v.SetDefault("browser.driver", bd.Driver)
	v.SetDefault("browser.headless", bd.Headless)
	v.SetDefault("browser.timeout", bd.Timeout)
	v.SetDefault("browser.user_agent", bd.UserAgent)
	v.SetDefault("browser.viewport_width", bd.ViewportWidth)
	v.SetDefault("browser.viewport_height", bd.ViewportHeight)
	v.SetDefault("browser.accept_language", bd.AcceptLanguage)
	v.SetDefault("browser.timezone", bd.TimezoneID)
	v.SetDefault("browser.locale", bd.Locale)
	v.SetDefault("browser.proxy", "")
	v.SetDefault("browser.exec_path", "")
	v.SetDefault("browser.block_resources", bd.BlockResources)

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "shopscraper")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_conns", 5)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.stream", "stream:scrape_runs")

	v.SetDefault("storage.enabled", true)
	v.SetDefault("storage.output_file", "product-data.json")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// bindLegacyEnv keeps the short variable names of earlier deployments working.
func bindLegacyEnv(v *viper.Viper) {
	_ = v.BindEnv("logging.level", "LOGGING_LEVEL", "LOG_LEVEL")
	_ = v.BindEnv("logging.format", "LOGGING_FORMAT", "LOG_FORMAT")
	_ = v.BindEnv("database.host", "DATABASE_HOST", "DB_HOST")
	_ = v.BindEnv("database.port", "DATABASE_PORT", "DB_PORT")
	_ = v.BindEnv("database.user", "DATABASE_USER", "DB_USER")
	_ = v.BindEnv("database.password", "DATABASE_PASSWORD", "DB_PASSWORD")
	_ = v.BindEnv("database.name", "DATABASE_NAME", "DB_NAME")
	_ = v.BindEnv("scraper.max_concurrent", "SCRAPER_MAX_CONCURRENT", "SCRAPER_CONCURRENT_LIMIT")
}

func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Scraper.MaxProducts < 1 || c.Scraper.MaxProducts > MaxProductsLimit {
		return fmt.Errorf("SCRAPER_MAX_PRODUCTS must be between 1 and %d", MaxProductsLimit)
	}
	if c.Scraper.MaxConcurrent < 1 {
		return fmt.Errorf("SCRAPER_MAX_CONCURRENT must be at least 1")
	}
	if c.Scraper.RateLimit <= 0 || c.Scraper.RateBurst < 1 {
		return fmt.Errorf("SCRAPER_RATE_LIMIT must be positive and SCRAPER_RATE_BURST at least 1")
	}
	if c.Scraper.PanelTimeout <= 0 || c.Scraper.DetailTimeout <= 0 {
		return fmt.Errorf("SCRAPER_PANEL_TIMEOUT and SCRAPER_DETAIL_TIMEOUT must be positive")
	}
	if c.Scraper.SettleDelay < 0 {
		return fmt.Errorf("SCRAPER_SETTLE_DELAY cannot be negative")
	}

	switch c.Browser.Driver {
	case browser.DriverPlaywright, browser.DriverChromedp:
	default:
		return fmt.Errorf("BROWSER_DRIVER must be %q or %q, got %q", browser.DriverPlaywright, browser.DriverChromedp, c.Browser.Driver)
	}

	if c.Database.Enabled && c.Database.DBName == "" {
		return fmt.Errorf("DATABASE_NAME is required when the database is enabled")
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("REDIS_ADDR is required when redis is enabled")
	}
	if c.Storage.Enabled && c.Storage.OutputFile == "" {
		return fmt.Errorf("STORAGE_OUTPUT_FILE is required when file storage is enabled")
	}

	if f := strings.ToLower(c.Logging.Format); f != "json" && f != "text" {
		return fmt.Errorf("LOGGING_FORMAT must be 'json' or 'text', got %q", c.Logging.Format)
	}

	return nil
}

// BrowserOptions starts from the browser defaults so fields without a config
// key, such as the extra request headers, keep their values.
func (c *Config) BrowserOptions() *browser.Options {
	opts := browser.DefaultOptions()
	opts.Driver = c.Browser.Driver
	opts.Headless = c.Browser.Headless
	opts.Timeout = c.Browser.Timeout
	opts.UserAgent = c.Browser.UserAgent
	opts.ViewportWidth = c.Browser.ViewportWidth
	opts.ViewportHeight = c.Browser.ViewportHeight
	opts.AcceptLanguage = c.Browser.AcceptLanguage
	opts.TimezoneID = c.Browser.TimezoneID
	opts.Locale = c.Browser.Locale
	opts.ProxyServer = c.Browser.ProxyServer
	opts.ExecPath = c.Browser.ExecPath
	opts.BlockResources = c.Browser.BlockResources
	return opts
}

func (c *Config) ScraperOptions() scraper.Options {
	return scraper.Options{
		SearchEndpoint: c.Scraper.SearchEndpoint,
		PanelTimeout:   c.Scraper.PanelTimeout,
		DetailTimeout:  c.Scraper.DetailTimeout,
		SettleDelay:    c.Scraper.SettleDelay,
		MaxProducts:    c.Scraper.MaxProducts,
	}
}
