package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"

	devJWTSecret = "dev-secret-change-me"
)

type Config struct {
	Env       string    `mapstructure:"env"       validate:"required,oneof=development production test"`
	Server    Server    `mapstructure:"server"    validate:"required"`
	Database  Database  `mapstructure:"database"  validate:"required"`
	Redis     Redis     `mapstructure:"redis"`
	RabbitMQ  RabbitMQ  `mapstructure:"rabbitmq"  validate:"required"`
	Auth      Auth      `mapstructure:"auth"      validate:"required"`
	Payment   Payment   `mapstructure:"payment"   validate:"required"`
	Telemetry Telemetry `mapstructure:"telemetry" validate:"required"`
	Log       Log       `mapstructure:"log"       validate:"required"`
	Locking   Locking   `mapstructure:"locking"   validate:"required"`
}

type Server struct {
	Addr            string        `mapstructure:"addr"             validate:"required"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"     validate:"gt=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"    validate:"gt=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
	CORSOrigin      string        `mapstructure:"cors_origin"      validate:"omitempty,eq=*|http_url"`
}

type Database struct {
	Driver          string        `mapstructure:"driver"             validate:"required,oneof=mysql memory"`
	Host            string        `mapstructure:"host"               validate:"required_if=Driver mysql"`
	Port            int           `mapstructure:"port"               validate:"min=0,max=65535"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"               validate:"required_if=Driver mysql"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"     validate:"min=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"     validate:"min=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

func (d Database) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

type Redis struct {
	Enabled    bool          `mapstructure:"enabled"`
	Addr       string        `mapstructure:"addr"        validate:"required_if=Enabled true"`
	Password   string        `mapstructure:"password"`
	DB         int           `mapstructure:"db"          validate:"min=0"`
	PoolSize   int           `mapstructure:"pool_size"   validate:"min=1"`
	ProductTTL time.Duration `mapstructure:"product_ttl" validate:"gt=0"`
}

type RabbitMQ struct {
	URL      string `mapstructure:"url"`
	Exchange string `mapstructure:"exchange" validate:"required"`
}

type Auth struct {
	JWTSecret string        `mapstructure:"jwt_secret" validate:"required"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"  validate:"gt=0"`
	Issuer    string        `mapstructure:"issuer"     validate:"required"`
}

type Payment struct {
	Provider         string        `mapstructure:"provider"          validate:"required,oneof=stripe sandbox"`
	BaseURL          string        `mapstructure:"base_url"          validate:"omitempty,url"`
	SecretKey        string        `mapstructure:"secret_key"        validate:"required_if=Provider stripe"`
	WebhookSecret    string        `mapstructure:"webhook_secret"    validate:"required"`
	Currency         string        `mapstructure:"currency"          validate:"required,len=3"`
	Timeout          time.Duration `mapstructure:"timeout"           validate:"gt=0"`
	WebhookTolerance time.Duration `mapstructure:"webhook_tolerance" validate:"gt=0"`
}

type Telemetry struct {
	Enabled     bool    `mapstructure:"enabled"`
	Exporter    string  `mapstructure:"exporter"     validate:"oneof=stdout otlp"`
	Endpoint    string  `mapstructure:"endpoint"`
	Insecure    bool    `mapstructure:"insecure"`
	ServiceName string  `mapstructure:"service_name" validate:"required"`
	SampleRatio float64 `mapstructure:"sample_ratio" validate:"min=0,max=1"`
}

type Log struct {
	Level      string `mapstructure:"level"        validate:"required,oneof=debug info warn error"`
	File       string `mapstructure:"file"`
	Stdout     bool   `mapstructure:"stdout"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"  validate:"min=1"`
	MaxBackups int    `mapstructure:"max_backups"  validate:"min=0"`
	MaxAgeDays int    `mapstructure:"max_age_days" validate:"min=0"`
	Compress   bool   `mapstructure:"compress"`
}

type Locking struct {
	Driver string        `mapstructure:"driver" validate:"required,oneof=local redis"`
	TTL    time.Duration `mapstructure:"ttl"    validate:"gt=0"`
}

func (c Config) IsProduction() bool {
	return c.Env == EnvProduction
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", EnvDevelopment)

	v.SetDefault("server.addr", ":5000")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.cors_origin", "")

	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.user", "dairy")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "dairy")
	v.SetDefault("database.max_open_conns", 50)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.conn_max_idle_time", time.Minute)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 50)
	v.SetDefault("redis.product_ttl", time.Minute)

	v.SetDefault("rabbitmq.url", "")
	v.SetDefault("rabbitmq.exchange", "dairy.events")

	v.SetDefault("auth.jwt_secret", devJWTSecret)
	v.SetDefault("auth.token_ttl", 30*24*time.Hour)
	v.SetDefault("auth.issuer", "dairy-service")

	v.SetDefault("payment.provider", "sandbox")
	v.SetDefault("payment.base_url", "https://api.stripe.com")
	v.SetDefault("payment.secret_key", "")
	v.SetDefault("payment.webhook_secret", "whsec_dev")
	v.SetDefault("payment.currency", "usd")
	v.SetDefault("payment.timeout", 10*time.Second)
	v.SetDefault("payment.webhook_tolerance", 5*time.Minute)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.exporter", "stdout")
	v.SetDefault("telemetry.endpoint", "localhost:4317")
	v.SetDefault("telemetry.insecure", true)
	v.SetDefault("telemetry.service_name", "dairy-service")
	v.SetDefault("telemetry.sample_ratio", 0.5)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.stdout", true)
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 28)
	v.SetDefault("log.compress", true)

	v.SetDefault("locking.driver", "local")
	v.SetDefault("locking.ttl", 5*time.Second)
}

// Load reads cfgFile (or config.yaml from the usual places), applies
// DAIRY_* environment overrides and validates the result.
func Load(cfgFile string) (Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvPrefix("DAIRY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/dairy-service")
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("config read error: %w", err)
		}
	}

	var cfg Config
	if err := v.UnmarshalExact(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal error: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(&c); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if c.Telemetry.Enabled && c.Telemetry.Exporter == "otlp" && c.Telemetry.Endpoint == "" {
		return fmt.Errorf("telemetry.endpoint is required when using otlp exporter")
	}
	if c.Locking.Driver == "redis" && !c.Redis.Enabled {
		return fmt.Errorf("locking.driver=redis requires redis.enabled")
	}
	if c.IsProduction() {
		if c.Auth.JWTSecret == devJWTSecret {
			return fmt.Errorf("auth.jwt_secret must be set in production")
		}
		if c.Payment.Provider != "stripe" {
			return fmt.Errorf("payment.provider must be stripe in production")
		}
	}
	return nil
}
