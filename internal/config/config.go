package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment overrides. Nesting uses "__",
// e.g. LUNCH_SCHEMA__ORDERS__STATUS=Order Status.
const EnvPrefix = "LUNCH_"

const (
	StoreAirtable = "airtable"
	StoreMemory   = "memory"
)

type Config struct {
	App      AppConfig      `koanf:"app" yaml:"app"`
	Store    StoreConfig    `koanf:"store" yaml:"store"`
	Schema   Schema         `koanf:"schema" yaml:"schema"`
	Ordering OrderingConfig `koanf:"ordering" yaml:"ordering"`
	Database DatabaseConfig `koanf:"database" yaml:"database"`
	RabbitMQ RabbitMQConfig `koanf:"rabbitmq" yaml:"rabbitmq"`
	Redis    RedisConfig    `koanf:"redis" yaml:"redis"`
	Security SecurityConfig `koanf:"security" yaml:"security"`
}

type AppConfig struct {
	Name     string `koanf:"name" yaml:"name"`
	HTTPAddr string `koanf:"http_addr" yaml:"http_addr"`
	LogFile  string `koanf:"log_file" yaml:"log_file"`
	LogLevel string `koanf:"log_level" yaml:"log_level"`
}

type StoreConfig struct {
	Driver  string        `koanf:"driver" yaml:"driver"`
	BaseURL string        `koanf:"base_url" yaml:"base_url"`
	BaseID  string        `koanf:"base_id" yaml:"base_id"`
	APIKey  string        `koanf:"api_key" yaml:"api_key"`
	Timeout time.Duration `koanf:"timeout" yaml:"timeout"`
}

type OrderingConfig struct {
	DefaultTimeZone        string            `koanf:"default_time_zone" yaml:"default_time_zone"`
	SelfServiceExtrasLimit int               `koanf:"self_service_extras_limit" yaml:"self_service_extras_limit"`
	PageSize               int               `koanf:"page_size" yaml:"page_size"`
	PaidContractTypes      []string          `koanf:"paid_contract_types" yaml:"paid_contract_types"`
	OnlinePaymentMethod    string            `koanf:"online_payment_method" yaml:"online_payment_method"`
	UpcomingDays           int               `koanf:"upcoming_days" yaml:"upcoming_days"`
	Consistency            ConsistencyConfig `koanf:"consistency" yaml:"consistency"`
}

// ConsistencyConfig bounds the poll that confirms a dependent write is
// visible before the next write relies on it.
type ConsistencyConfig struct {
	Attempts        int           `koanf:"attempts" yaml:"attempts"`
	InitialInterval time.Duration `koanf:"initial_interval" yaml:"initial_interval"`
	MaxInterval     time.Duration `koanf:"max_interval" yaml:"max_interval"`
}

type DatabaseConfig struct {
	Host     string `koanf:"host" yaml:"host"`
	Port     int    `koanf:"port" yaml:"port"`
	User     string `koanf:"user" yaml:"user"`
	Password string `koanf:"password" yaml:"password"`
	Database string `koanf:"database" yaml:"database"`
}

func (c DatabaseConfig) Enabled() bool { return c.Host != "" }

type RabbitMQConfig struct {
	Host     string `koanf:"host" yaml:"host"`
	Port     int    `koanf:"port" yaml:"port"`
	User     string `koanf:"user" yaml:"user"`
	Password string `koanf:"password" yaml:"password"`
	Exchange string `koanf:"exchange" yaml:"exchange"`
	Queue    string `koanf:"queue" yaml:"queue"`
	Prefetch int    `koanf:"prefetch" yaml:"prefetch"`
}

func (c RabbitMQConfig) Enabled() bool { return c.Host != "" }

type RedisConfig struct {
	Addr     string        `koanf:"addr" yaml:"addr"`
	Password string        `koanf:"password" yaml:"password"`
	DB       int           `koanf:"db" yaml:"db"`
	TTL      time.Duration `koanf:"ttl" yaml:"ttl"`
}

func (c RedisConfig) Enabled() bool { return c.Addr != "" }

type SecurityConfig struct {
	JWTSecret string          `koanf:"jwt_secret" yaml:"jwt_secret"`
	Issuer    string          `koanf:"issuer" yaml:"issuer"`
	Audience  string          `koanf:"audience" yaml:"audience"`
	TTL       time.Duration   `koanf:"ttl" yaml:"ttl"`
	Clients   []ServiceClient `koanf:"clients" yaml:"clients"`
}

// ServiceClient is a machine caller (kitchen display, reporting job) allowed
// to exchange its secret for a bearer token.
type ServiceClient struct {
	ID     string   `koanf:"id" yaml:"id"`
	Secret string   `koanf:"secret" yaml:"secret"`
	Perms  []string `koanf:"perms" yaml:"perms"`
}

// Load builds the configuration from defaults, an optional YAML file and
// LUNCH_* environment variables, in that order of precedence.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to parse yaml: %w", err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envValue), nil); err != nil {
		return nil, fmt.Errorf("failed to load env overrides: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// listKeys are the settings whose environment value is a comma separated list.
var listKeys = map[string]bool{
	"schema.orders.meal_box_link_candidates":   true,
	"schema.orders.order_line_link_candidates": true,
	"ordering.paid_contract_types":             true,
}

func envValue(key, value string) (string, any) {
	key = strings.TrimPrefix(key, EnvPrefix)
	key = strings.ToLower(strings.ReplaceAll(key, "__", "."))

	if listKeys[key] {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return key, out
	}
	return key, value
}

func (c *Config) Validate() error {
	if c.App.HTTPAddr == "" {
		return errors.New("app.http_addr required")
	}

	switch c.Store.Driver {
	case StoreAirtable:
		if c.Store.BaseID == "" || c.Store.APIKey == "" {
			return errors.New("store.base_id and store.api_key required for the airtable driver")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown store.driver %q", c.Store.Driver)
	}

	if _, err := time.LoadLocation(c.Ordering.DefaultTimeZone); err != nil {
		return fmt.Errorf("ordering.default_time_zone: %w", err)
	}
	if c.Ordering.SelfServiceExtrasLimit < 0 {
		return errors.New("ordering.self_service_extras_limit must not be negative")
	}
	if c.Ordering.PageSize < 1 || c.Ordering.PageSize > 100 {
		return errors.New("ordering.page_size must be 1-100")
	}
	if c.Ordering.Consistency.Attempts < 1 {
		return errors.New("ordering.consistency.attempts must be at least 1")
	}
	if len(c.Schema.Orders.MealBoxLinkCandidates) == 0 || len(c.Schema.Orders.OrderLineLinkCandidates) == 0 {
		return errors.New("schema.orders link candidates must not be empty")
	}

	return nil
}

// YAML renders the effective configuration with secrets masked.
func (c Config) YAML() ([]byte, error) {
	masked := c
	masked.Store.APIKey = mask(c.Store.APIKey)
	masked.Database.Password = mask(c.Database.Password)
	masked.RabbitMQ.Password = mask(c.RabbitMQ.Password)
	masked.Redis.Password = mask(c.Redis.Password)
	masked.Security.JWTSecret = mask(c.Security.JWTSecret)
	masked.Security.Clients = make([]ServiceClient, len(c.Security.Clients))
	for i, cl := range c.Security.Clients {
		cl.Secret = mask(cl.Secret)
		masked.Security.Clients[i] = cl
	}
	return yamlv3.Marshal(masked)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "***"
}
