package app

import (
	"errors"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the console.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"15s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	// ERP remote store. The console never persists order state itself;
	// every read and write goes through this API.
	ERPBaseURL  string        `envconfig:"ERP_BASE_URL" required:"true"`
	ERPAPIToken string        `envconfig:"ERP_API_TOKEN"`
	ERPTimeout  time.Duration `envconfig:"ERP_TIMEOUT" default:"30s"`

	RedisAddr string        `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	CacheTTL  time.Duration `envconfig:"CACHE_TTL" default:"5m"`
	StatusTTL time.Duration `envconfig:"STATUS_TTL" default:"45s"`

	CurrencyLocale string `envconfig:"CURRENCY_LOCALE" default:"en-GB"`
	CurrencyCode   string `envconfig:"CURRENCY_CODE" default:"GBP"`

	SupplierSearchDelay time.Duration `envconfig:"SUPPLIER_SEARCH_DELAY" default:"300ms"`

	OrderListPageSize int `envconfig:"ORDER_LIST_PAGE_SIZE" default:"20"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.ERPBaseURL) == "" {
		return nil, errors.New("erp base url must be provided")
	}
	if cfg.OrderListPageSize <= 0 {
		cfg.OrderListPageSize = 20
	}
	return &cfg, nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
