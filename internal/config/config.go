package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/Shopify/sarama"
	ierr "github.com/brfledger/utilitybilling/internal/errors"
	"github.com/brfledger/utilitybilling/internal/types"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "UTILITYBILLING"

type Configuration struct {
	Deployment DeploymentConfig `mapstructure:"deployment"`
	Server     ServerConfig     `mapstructure:"server"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Postgres   PostgresConfig   `mapstructure:"postgres"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Billing    BillingConfig    `mapstructure:"billing"`
	Temporal   TemporalConfig   `mapstructure:"temporal"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	Email      EmailConfig      `mapstructure:"email"`
	Export     ExportConfig     `mapstructure:"export"`
	Sentry     SentryConfig     `mapstructure:"sentry"`
}

type DeploymentConfig struct {
	Mode types.RunMode `mapstructure:"mode" validate:"required"`
}

type ServerConfig struct {
	Address string `mapstructure:"address" validate:"required"`
}

type LoggingConfig struct {
	Level          types.LogLevel `mapstructure:"level"`
	DBLevel        types.LogLevel `mapstructure:"db_level"`
	FluentdEnabled bool           `mapstructure:"fluentd_enabled"`
	FluentdHost    string         `mapstructure:"fluentd_host"`
	FluentdPort    int            `mapstructure:"fluentd_port"`
	FluentdTag     string         `mapstructure:"fluentd_tag"`
}

type PostgresConfig struct {
	Host                   string `mapstructure:"host"`
	Port                   int    `mapstructure:"port"`
	User                   string `mapstructure:"user"`
	Password               string `mapstructure:"password"`
	DBName                 string `mapstructure:"dbname"`
	SSLMode                string `mapstructure:"sslmode"`
	MaxOpenConns           int    `mapstructure:"max_open_conns"`
	MaxIdleConns           int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `mapstructure:"conn_max_lifetime_minutes"`
	AutoMigrate            bool   `mapstructure:"auto_migrate"`
}

type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	UseTLS   bool          `mapstructure:"use_tls"`
	PoolSize int           `mapstructure:"pool_size"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Type    string        `mapstructure:"type"`
	TTL     time.Duration `mapstructure:"ttl"`
	// KeyPrefix namespaces redis keys so a shared database can be flushed per service
	KeyPrefix string `mapstructure:"key_prefix"`
}

// BillingConfig holds the cooperative's billing policy
type BillingConfig struct {
	FirstReadingPolicy      types.FirstReadingPolicy      `mapstructure:"first_reading_policy"`
	ReconciliationSplitMode types.ReconciliationSplitMode `mapstructure:"reconciliation_split_mode"`
	DueDateOffsetMonths     int                           `mapstructure:"due_date_offset_months"`
	PricingDateAnchor       types.PricingDateAnchor       `mapstructure:"pricing_date_anchor"`
	Currency                string                        `mapstructure:"currency"`
	MaxParallelServices     int                           `mapstructure:"max_parallel_services"`
	LockTimeout             time.Duration                 `mapstructure:"lock_timeout"`
	NotifyOnInvoice         bool                          `mapstructure:"notify_on_invoice"`
	ExportOnRun             bool                          `mapstructure:"export_on_run"`
}

type TemporalConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Address   string `mapstructure:"address"`
	Namespace string `mapstructure:"namespace"`
	APIKey    string `mapstructure:"api_key"`
	TLS       bool   `mapstructure:"tls"`
}

type KafkaConfig struct {
	Enabled       bool                 `mapstructure:"enabled"`
	Brokers       []string             `mapstructure:"brokers"`
	Topic         string               `mapstructure:"topic"`
	ClientID      string               `mapstructure:"client_id"`
	Version       string               `mapstructure:"version"`
	RequiredAcks  string               `mapstructure:"required_acks"`
	MaxRetries    int                  `mapstructure:"max_retries"`
	TLS           bool                 `mapstructure:"tls"`
	UseSASL       bool                 `mapstructure:"use_sasl"`
	SASLMechanism sarama.SASLMechanism `mapstructure:"sasl_mechanism"`
	SASLUser      string               `mapstructure:"sasl_user"`
	SASLPassword  string               `mapstructure:"sasl_password"`
}

type EmailConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	ResendAPIKey string `mapstructure:"resend_api_key"`
	FromAddress  string `mapstructure:"from_address"`
	ReplyTo      string `mapstructure:"reply_to"`
}

type ExportConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	KeyPrefix string `mapstructure:"key_prefix"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

type SentryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	DSN         string  `mapstructure:"dsn"`
	Environment string  `mapstructure:"environment"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

// NewConfig loads .env (if present), config.yaml and UTILITYBILLING_ prefixed env overrides
func NewConfig() (*Configuration, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath(".")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, ierr.WithError(err).
				WithHint("Failed to read config file").
				Mark(ierr.ErrConfiguration)
		}
	}

	var cfg Configuration
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Unable to decode configuration").
			Mark(ierr.ErrConfiguration)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// GetDefaultConfig returns the defaults without reading files or env; used by tests and the global logger
func GetDefaultConfig() *Configuration {
	v := viper.New()
	setDefaults(v)

	var cfg Configuration
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("invalid default configuration: %v", err))
	}
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("deployment.mode", types.ModeLocal)
	v.SetDefault("server.address", ":8080")

	v.SetDefault("logging.level", types.LogLevelInfo)
	v.SetDefault("logging.db_level", types.LogLevelInfo)
	v.SetDefault("logging.fluentd_enabled", false)
	v.SetDefault("logging.fluentd_port", 24224)
	v.SetDefault("logging.fluentd_tag", "utilitybilling.logs")

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "utilitybilling")
	v.SetDefault("postgres.dbname", "utilitybilling")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.max_open_conns", 10)
	v.SetDefault("postgres.max_idle_conns", 5)
	v.SetDefault("postgres.conn_max_lifetime_minutes", 60)
	v.SetDefault("postgres.auto_migrate", true)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.timeout", 5*time.Second)

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.type", "inmemory")
	v.SetDefault("cache.ttl", 30*time.Minute)
	v.SetDefault("cache.key_prefix", "utilitybilling:")

	v.SetDefault("billing.first_reading_policy", types.FirstReadingPolicyUnavailable)
	v.SetDefault("billing.reconciliation_split_mode", types.SplitModeEqual)
	v.SetDefault("billing.due_date_offset_months", 4)
	v.SetDefault("billing.pricing_date_anchor", types.PricingDateAnchorPeriodEnd)
	v.SetDefault("billing.currency", types.DefaultCurrency)
	v.SetDefault("billing.max_parallel_services", 4)
	v.SetDefault("billing.lock_timeout", 10*time.Second)
	v.SetDefault("billing.notify_on_invoice", false)
	v.SetDefault("billing.export_on_run", false)

	v.SetDefault("temporal.enabled", false)
	v.SetDefault("temporal.address", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "billing_events")
	v.SetDefault("kafka.client_id", "utilitybilling")
	v.SetDefault("kafka.version", "2.1.0")
	v.SetDefault("kafka.required_acks", "all")
	v.SetDefault("kafka.max_retries", 5)
	v.SetDefault("kafka.sasl_mechanism", sarama.SASLTypeSCRAMSHA512)

	v.SetDefault("email.enabled", false)
	v.SetDefault("export.enabled", false)
	v.SetDefault("export.key_prefix", "billing-reports")

	v.SetDefault("sentry.enabled", false)
	v.SetDefault("sentry.environment", "local")
	v.SetDefault("sentry.sample_rate", 1.0)
}

// Validate checks the billing policy and connection settings
func (c *Configuration) Validate() error {
	if err := c.Billing.FirstReadingPolicy.Validate(); err != nil {
		return err
	}
	if err := c.Billing.ReconciliationSplitMode.Validate(); err != nil {
		return err
	}
	if err := c.Billing.PricingDateAnchor.Validate(); err != nil {
		return err
	}
	if c.Billing.DueDateOffsetMonths < 0 {
		return ierr.NewError("due date offset must not be negative").
			WithHint("billing.due_date_offset_months must be zero or positive").
			Mark(ierr.ErrValidation)
	}
	if c.Billing.MaxParallelServices <= 0 {
		return ierr.NewError("max parallel services must be positive").
			WithHint("billing.max_parallel_services must be at least 1").
			Mark(ierr.ErrValidation)
	}
	if c.Billing.Currency == "" {
		return ierr.NewError("billing currency is required").
			WithHint("billing.currency must be set").
			Mark(ierr.ErrValidation)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return ierr.NewError("kafka brokers must be specified").
			WithHint("kafka.brokers must list at least one broker when kafka is enabled").
			Mark(ierr.ErrValidation)
	}
	if c.Email.Enabled && (c.Email.ResendAPIKey == "" || c.Email.FromAddress == "") {
		return ierr.NewError("email is enabled without credentials").
			WithHint("email.resend_api_key and email.from_address are required when email is enabled").
			Mark(ierr.ErrValidation)
	}
	if c.Export.Enabled && c.Export.Bucket == "" {
		return ierr.NewError("export bucket is required").
			WithHint("export.bucket must be set when export is enabled").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// GetDSN returns the lib/pq connection string
func (c PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}
