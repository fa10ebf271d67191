package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	FetchHTTP    = "http"
	FetchBrowser = "browser"
)

// Config holds all application configuration. It is built once at start-up
// and passed explicitly to every component.
type Config struct {
	StoreDriver string

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	SQLitePath string
	CSVPath    string
	ChartPath  string

	RankURL       string
	RankType      string
	PagesToScrape int
	PageDelayMs   int
	FetchMode     string
	ChromeBin     string

	LLMBaseURL string
	LLMAPIKey  string
	LLMModel   string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTLMin   int

	FilterLimit    int
	AskLimit       int
	RecommendLimit int

	ListenAddr string
	LogLevel   string
	LogFormat  string
}

// Load reads .env, an optional YAML file at path, and environment variables
// (upper-case key names, e.g. POSTGRES_HOST) on top of the defaults.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %q: %w", path, err)
		}
	}

	cfg := &Config{
		StoreDriver: v.GetString("store_driver"),

		PostgresHost:     v.GetString("postgres_host"),
		PostgresPort:     v.GetString("postgres_port"),
		PostgresUser:     v.GetString("postgres_user"),
		PostgresPassword: v.GetString("postgres_password"),
		PostgresDB:       v.GetString("postgres_db"),
		PostgresSSLMode:  v.GetString("postgres_sslmode"),

		SQLitePath: v.GetString("sqlite_path"),
		CSVPath:    v.GetString("csv_path"),
		ChartPath:  v.GetString("chart_path"),

		RankURL:       v.GetString("rank_url"),
		RankType:      v.GetString("rank_type"),
		PagesToScrape: v.GetInt("pages_to_scrape"),
		PageDelayMs:   v.GetInt("page_delay_ms"),
		FetchMode:     v.GetString("fetch_mode"),
		ChromeBin:     v.GetString("chrome_bin"),

		LLMBaseURL: v.GetString("llm_base_url"),
		LLMAPIKey:  v.GetString("llm_api_key"),
		LLMModel:   v.GetString("llm_model"),

		RedisAddr:     v.GetString("redis_addr"),
		RedisPassword: v.GetString("redis_password"),
		RedisDB:       v.GetInt("redis_db"),
		CacheTTLMin:   v.GetInt("cache_ttl_min"),

		FilterLimit:    v.GetInt("filter_limit"),
		AskLimit:       v.GetInt("ask_limit"),
		RecommendLimit: v.GetInt("recommend_limit"),

		ListenAddr: v.GetString("listen_addr"),
		LogLevel:   v.GetString("log_level"),
		LogFormat:  v.GetString("log_format"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store_driver", DriverPostgres)

	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", "5432")
	v.SetDefault("postgres_user", "dcd")
	v.SetDefault("postgres_password", "dcd123")
	v.SetDefault("postgres_db", "dcd_data")
	v.SetDefault("postgres_sslmode", "disable")

	v.SetDefault("sqlite_path", "./output/dcd_data.db")
	v.SetDefault("csv_path", "./output/dongchedi_sales.csv")
	v.SetDefault("chart_path", "./output/sales_chart.xlsx")

	v.SetDefault("rank_url", "https://www.dongchedi.com/motor/pc/car/rank_data")
	v.SetDefault("rank_type", "1")
	v.SetDefault("pages_to_scrape", 3)
	v.SetDefault("page_delay_ms", 1500)
	v.SetDefault("fetch_mode", FetchHTTP)
	v.SetDefault("chrome_bin", "")

	v.SetDefault("llm_base_url", "https://api.deepseek.com")
	v.SetDefault("llm_api_key", "")
	v.SetDefault("llm_model", "deepseek-chat")

	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("cache_ttl_min", 60)

	v.SetDefault("filter_limit", 15)
	v.SetDefault("ask_limit", 10)
	v.SetDefault("recommend_limit", 5)

	v.SetDefault("listen_addr", ":8501")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
}

// Validate rejects settings no component can work with.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unknown store_driver %q", c.StoreDriver)
	}
	switch c.FetchMode {
	case FetchHTTP, FetchBrowser:
	default:
		return fmt.Errorf("unknown fetch_mode %q", c.FetchMode)
	}
	if c.PagesToScrape < 1 {
		return fmt.Errorf("pages_to_scrape must be >= 1, got %d", c.PagesToScrape)
	}
	if c.FilterLimit < 1 || c.AskLimit < 1 || c.RecommendLimit < 1 {
		return fmt.Errorf("result limits must be >= 1")
	}
	if c.CSVPath == "" {
		return fmt.Errorf("csv_path is required")
	}
	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

// PageDelay is the pause between two rank pages.
func (c *Config) PageDelay() time.Duration {
	return time.Duration(c.PageDelayMs) * time.Millisecond
}

// CacheTTL is the lifetime of cached translations.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLMin) * time.Minute
}

// LLMEnabled reports whether a model API key is configured.
func (c *Config) LLMEnabled() bool {
	return c.LLMAPIKey != ""
}
