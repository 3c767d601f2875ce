package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `json:"server"`
	Redis    RedisConfig    `json:"redis"`
	Scraper  ScraperConfig  `json:"scraper"`
	Log      LogConfig      `json:"log"`
	Security SecurityConfig `json:"security"`
	Browser  BrowserConfig  `json:"browser"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port         int    `json:"port"`
	Environment  string `json:"environment"`
	ReadTimeout  int    `json:"read_timeout"`
	WriteTimeout int    `json:"write_timeout"`
	IdleTimeout  int    `json:"idle_timeout"`
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	Password     string        `json:"password"`
	DB           int           `json:"db"`
	PoolSize     int           `json:"pool_size"`
	DialTimeout  time.Duration `json:"dial_timeout"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
}

// ScraperConfig holds Nevada entity search scraper configuration
type ScraperConfig struct {
	SolveCaptchaAPIKey string        `json:"solve_captcha_api_key"`
	SearchURL          string        `json:"search_url"`
	Locale             string        `json:"locale"`
	Timezone           string        `json:"timezone"`
	Timeout            time.Duration `json:"timeout"`
	ProbeTimeout       time.Duration `json:"probe_timeout"`
	IframeTimeout      time.Duration `json:"iframe_timeout"`
	ResultTimeout      time.Duration `json:"result_timeout"`
	CacheTTL           time.Duration `json:"cache_ttl"`
	OutputDir          string        `json:"output_dir"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// SecurityConfig holds security configuration
type SecurityConfig struct {
	AdminToken string          `json:"-"`
	RateLimit  RateLimitConfig `json:"rate_limit"`
	CORS       CORSConfig      `json:"cors"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int           `json:"requests_per_minute"`
	BurstSize         int           `json:"burst_size"`
	CleanupInterval   time.Duration `json:"cleanup_interval"`
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowedOrigins   []string `json:"allowed_origins"`
	AllowedMethods   []string `json:"allowed_methods"`
	AllowedHeaders   []string `json:"allowed_headers"`
	AllowCredentials bool     `json:"allow_credentials"`
}

// BrowserConfig holds browser automation configuration
type BrowserConfig struct {
	MinBrowsers    int           `json:"min_browsers"`
	MaxBrowsers    int           `json:"max_browsers"`
	BrowserTimeout time.Duration `json:"browser_timeout"`
	PageTimeout    time.Duration `json:"page_timeout"`
	Headless       bool          `json:"headless"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnvAsInt("PORT", 8080),
			Environment:  getEnv("ENVIRONMENT", "development"),
			ReadTimeout:  getEnvAsInt("READ_TIMEOUT", 30),
			WriteTimeout: getEnvAsInt("WRITE_TIMEOUT", 30),
			IdleTimeout:  getEnvAsInt("IDLE_TIMEOUT", 60),
		},
		Redis: RedisConfig{
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnvAsInt("REDIS_PORT", 6379),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvAsInt("REDIS_DB", 0),
			PoolSize:     getEnvAsInt("REDIS_POOL_SIZE", 10),
			DialTimeout:  time.Duration(getEnvAsInt("REDIS_DIAL_TIMEOUT", 5)) * time.Second,
			ReadTimeout:  time.Duration(getEnvAsInt("REDIS_READ_TIMEOUT", 3)) * time.Second,
			WriteTimeout: time.Duration(getEnvAsInt("REDIS_WRITE_TIMEOUT", 3)) * time.Second,
		},
		Scraper: ScraperConfig{
			SolveCaptchaAPIKey: getEnv("SOLVE_CAPTCHA_API_KEY", ""),
			SearchURL:          getEnv("NEVADA_SEARCH_URL", "https://esos.nv.gov/EntitySearch/OnlineEntitySearch"),
			Locale:             getEnv("SCRAPER_LOCALE", "en-US"),
			Timezone:           getEnv("SCRAPER_TIMEZONE", "America/Panama"),
			Timeout:            time.Duration(getEnvAsInt("SCRAPER_TIMEOUT", 300)) * time.Second,
			ProbeTimeout:       time.Duration(getEnvAsInt("SCRAPER_PROBE_TIMEOUT", 5)) * time.Second,
			IframeTimeout:      time.Duration(getEnvAsInt("SCRAPER_IFRAME_TIMEOUT", 15)) * time.Second,
			ResultTimeout:      time.Duration(getEnvAsInt("SCRAPER_RESULT_TIMEOUT", 10)) * time.Second,
			CacheTTL:           time.Duration(getEnvAsInt("SCRAPER_CACHE_TTL", 3600)) * time.Second,
			OutputDir:          getEnv("SCRAPER_OUTPUT_DIR", "."),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Security: SecurityConfig{
			AdminToken: getEnv("ADMIN_TOKEN", ""),
			RateLimit: RateLimitConfig{
				RequestsPerMinute: getEnvAsInt("RATE_LIMIT_RPM", 60),
				BurstSize:         getEnvAsInt("RATE_LIMIT_BURST", 10),
				CleanupInterval:   time.Duration(getEnvAsInt("RATE_LIMIT_CLEANUP", 60)) * time.Second,
			},
			CORS: CORSConfig{
				AllowedOrigins:   []string{"*"},
				AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
				AllowedHeaders:   []string{"*"},
				AllowCredentials: false,
			},
		},
		Browser: BrowserConfig{
			MinBrowsers:    getEnvAsInt("BROWSER_MIN", 1),
			MaxBrowsers:    getEnvAsInt("BROWSER_MAX", 5),
			BrowserTimeout: time.Duration(getEnvAsInt("BROWSER_TIMEOUT", 60)) * time.Second,
			PageTimeout:    time.Duration(getEnvAsInt("PAGE_TIMEOUT", 30)) * time.Second,
			Headless:       getEnvAsBool("BROWSER_HEADLESS", true),
		},
	}

	// Validate required fields
	if cfg.Scraper.SolveCaptchaAPIKey == "" {
		return nil, fmt.Errorf("SOLVE_CAPTCHA_API_KEY is required")
	}

	return cfg, nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
