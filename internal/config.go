package internal

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Env           string              `mapstructure:"env"`
	Server        ServerConfig        `mapstructure:"http_server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Security      SecurityConfig      `mapstructure:"security"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Currency      CurrencyConfig      `mapstructure:"currency"`
	Settlement    SettlementConfig    `mapstructure:"settlement"`
	Messaging     MessagingConfig     `mapstructure:"messaging"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port"`
	BaseURL           string        `mapstructure:"base_url"`
	AllowedOrigins    string        `mapstructure:"allowed_origins"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	OpenAPISpec       string        `mapstructure:"openapi_spec"`
	ValidateRequests  bool          `mapstructure:"validate_requests"`
}

type DatabaseConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Source          string        `mapstructure:"source"`
}

type SecurityConfig struct {
	JWTSecret           string        `mapstructure:"jwt_secret"`
	JWTIssuer           string        `mapstructure:"jwt_issuer"`
	AccessTokenDuration time.Duration `mapstructure:"access_token_duration"`
	// AllowHeaderIdentity trusts X-User-ID when no bearer token is sent. Development only.
	AllowHeaderIdentity bool `mapstructure:"allow_header_identity"`
}

type ObservabilityConfig struct {
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// CurrencyConfig is the static rate table: units of Reference per one unit of each code.
type CurrencyConfig struct {
	Reference string             `mapstructure:"reference"`
	Rates     map[string]float64 `mapstructure:"rates"`
}

type SettlementConfig struct {
	StrictManualSum  bool    `mapstructure:"strict_manual_sum"`
	ManualSumEpsilon float64 `mapstructure:"manual_sum_epsilon"`
	MaxPageSize      int     `mapstructure:"max_page_size"`
}

type MessagingConfig struct {
	AMQPURL      string `mapstructure:"amqp_url"`
	ExchangeName string `mapstructure:"exchange_name"`
	RoutingKey   string `mapstructure:"routing_key"`
}

func (c *MessagingConfig) Enabled() bool {
	return c.AMQPURL != ""
}

// DefaultConfig mirrors config.yml so a missing key never means a zero rate table or page size.
func DefaultConfig() Config {
	return Config{
		Env: "development",
		Server: ServerConfig{
			Port:              8080,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			IdleTimeout:       60 * time.Second,
			WriteTimeout:      15 * time.Second,
			OpenAPISpec:       "./api/openapi.yml",
		},
		Database: DatabaseConfig{
			MaxOpenConns:    20,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			ConnMaxIdleTime: 5 * time.Minute,
		},
		Security: SecurityConfig{
			JWTIssuer:           "trip-expense",
			AccessTokenDuration: time.Hour,
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{Enabled: true, Path: "/metrics"},
			Logging: LoggingConfig{Level: "info", Format: "text"},
		},
		Currency: CurrencyConfig{
			Reference: "USD",
			Rates: map[string]float64{
				"USD": 1,
				"EUR": 1.08,
			},
		},
		Settlement: SettlementConfig{
			StrictManualSum:  true,
			ManualSumEpsilon: 0.01,
			MaxPageSize:      100,
		},
		Messaging: MessagingConfig{
			ExchangeName: "trip-expense.events",
			RoutingKey:   "chat.system",
		},
	}
}

// LoadConfigFromEnv builds the config for container deployments where no config.yml is mounted.
func LoadConfigFromEnv() *Config {
	cfg := DefaultConfig()
	cfg.Env = getEnv("APP_ENV", "production")

	cfg.Server.Port = getEnvAsInt("HTTP_PORT", cfg.Server.Port)
	cfg.Server.BaseURL = getEnv("BASE_URL", cfg.Server.BaseURL)
	cfg.Server.AllowedOrigins = getEnv("ALLOWED_ORIGINS", cfg.Server.AllowedOrigins)
	cfg.Server.OpenAPISpec = getEnv("OPENAPI_SPEC", cfg.Server.OpenAPISpec)
	cfg.Server.ValidateRequests = getEnvAsBool("VALIDATE_REQUESTS", cfg.Server.ValidateRequests)

	cfg.Database.Source = getEnv("DATABASE_URL", cfg.Database.Source)
	cfg.Database.MaxOpenConns = getEnvAsInt("DB_MAX_OPEN_CONNS", cfg.Database.MaxOpenConns)
	cfg.Database.MaxIdleConns = getEnvAsInt("DB_MAX_IDLE_CONNS", cfg.Database.MaxIdleConns)

	cfg.Security.JWTSecret = getEnv("JWT_SECRET", cfg.Security.JWTSecret)
	cfg.Security.JWTIssuer = getEnv("JWT_ISSUER", cfg.Security.JWTIssuer)

	cfg.Observability.Logging.Level = getEnv("LOG_LEVEL", cfg.Observability.Logging.Level)
	cfg.Observability.Metrics.Enabled = getEnvAsBool("METRICS_ENABLED", cfg.Observability.Metrics.Enabled)

	cfg.Currency.Reference = getEnv("CURRENCY_REFERENCE", cfg.Currency.Reference)
	if raw := os.Getenv("CURRENCY_RATES"); raw != "" {
		if rates, err := ParseRates(raw); err == nil {
			cfg.Currency.Rates = rates
		}
	}

	cfg.Settlement.StrictManualSum = getEnvAsBool("STRICT_MANUAL_SUM", cfg.Settlement.StrictManualSum)

	cfg.Messaging.AMQPURL = getEnv("AMQP_URL", cfg.Messaging.AMQPURL)
	cfg.Messaging.ExchangeName = getEnv("AMQP_EXCHANGE", cfg.Messaging.ExchangeName)
	cfg.Messaging.RoutingKey = getEnv("AMQP_ROUTING_KEY", cfg.Messaging.RoutingKey)

	return &cfg
}

// ParseRates reads "EUR=1.08,GBP=1.27".
func ParseRates(raw string) (map[string]float64, error) {
	rates := make(map[string]float64)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		code, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid rate entry %q", pair)
		}
		rate, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid rate for %s: %w", code, err)
		}
		rates[strings.ToUpper(strings.TrimSpace(code))] = rate
	}
	return rates, nil
}

// ----------------- HELPERS -----------------

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultVal
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if err := c.Security.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("security config: %v", err))
	}

	if err := c.Currency.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("currency config: %v", err))
	}

	if err := c.Settlement.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("settlement config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.AllowedOrigins != "" {
		origins := strings.Split(c.AllowedOrigins, ",")
		for _, origin := range origins {
			origin = strings.TrimSpace(origin)
			if origin == "*" {
				continue
			}
			if _, err := url.Parse(origin); err != nil {
				return fmt.Errorf("invalid allowed origin %s: %w", origin, err)
			}
		}
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *DatabaseConfig) Validate() error {
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	return c.Source
}

func (c *SecurityConfig) Validate() error {
	if c.JWTSecret == "" && !c.AllowHeaderIdentity {
		return errors.New("jwt_secret is required unless allow_header_identity is set")
	}
	if c.JWTSecret != "" && len(c.JWTSecret) < 32 {
		return errors.New("jwt_secret must be at least 32 characters")
	}
	return nil
}

func (c *CurrencyConfig) Validate() error {
	if c.Reference == "" {
		return errors.New("reference currency is required")
	}
	for code, rate := range c.Rates {
		if rate <= 0 {
			return fmt.Errorf("rate for %s must be positive", code)
		}
	}
	return nil
}

func (c *SettlementConfig) Validate() error {
	if c.ManualSumEpsilon < 0 {
		return errors.New("manual_sum_epsilon cannot be negative")
	}
	if c.MaxPageSize < 1 {
		return errors.New("max_page_size must be at least 1")
	}
	return nil
}
