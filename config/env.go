package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"warehouse-system/internal/logger"
)

type Config struct {
	ServiceName string
	HTTP        HTTPConfig
	GRPC        GRPCConfig
	DB          DBConfig
	Redis       RedisConfig
	Auth        AuthConfig
	RateLimit   RateLimitConfig
	Events      EventsConfig
	Storage     StorageConfig
	Tracing     TracingConfig
	Log         LogConfig
}

type HTTPConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CORSOrigins  []string
}

type GRPCConfig struct {
	Port string
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

func (c DBConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

type AuthConfig struct {
	JWTSecret     string
	TokenTTL      time.Duration
	AdminPassword string
}

type RateLimitConfig struct {
	Rate string
}

type EventsConfig struct {
	Driver        string
	Brokers       []string
	Topic         string
	ChannelPrefix string
}

type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

func (c StorageConfig) Enabled() bool {
	return c.Endpoint != ""
}

type TracingConfig struct {
	Enabled        bool
	JaegerEndpoint string
}

type LogConfig struct {
	Level       string
	Development bool
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service_name", "warehouse-system")

	v.SetDefault("http.port", "8080")
	v.SetDefault("http.read_timeout", "15s")
	v.SetDefault("http.write_timeout", "30s")
	v.SetDefault("http.cors_origins", "*")
	v.SetDefault("grpc.port", "50051")

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", "5432")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.name", "warehouse")
	v.SetDefault("db.sslmode", "disable")

	v.SetDefault("redis.host", "")
	v.SetDefault("redis.port", "6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", "12h")
	v.SetDefault("auth.admin_password", "admin123")

	v.SetDefault("rate_limit.rate", "100-M")

	v.SetDefault("events.driver", "none")
	v.SetDefault("events.brokers", "localhost:9092")
	v.SetDefault("events.topic", "warehouse.ledger-events")
	v.SetDefault("events.channel_prefix", "warehouse")

	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.access_key", "")
	v.SetDefault("storage.secret_key", "")
	v.SetDefault("storage.bucket", "warehouse-documents")
	v.SetDefault("storage.use_ssl", false)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.jaeger_endpoint", "http://localhost:14268/api/traces")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// LoadConfig reads defaults, then the optional file named by CONFIG_FILE, then
// the environment. Keys map to variables by upper-casing and replacing dots,
// so db.host is DB_HOST.
func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Logger.Info().Msg("No .env file found, using environment variables")
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := v.GetString("config_file"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		ServiceName: v.GetString("service_name"),
		HTTP: HTTPConfig{
			Port:         v.GetString("http.port"),
			ReadTimeout:  v.GetDuration("http.read_timeout"),
			WriteTimeout: v.GetDuration("http.write_timeout"),
			CORSOrigins:  splitList(v.GetString("http.cors_origins")),
		},
		GRPC: GRPCConfig{
			Port: v.GetString("grpc.port"),
		},
		DB: DBConfig{
			Host:     v.GetString("db.host"),
			Port:     v.GetString("db.port"),
			User:     v.GetString("db.user"),
			Password: v.GetString("db.password"),
			Name:     v.GetString("db.name"),
			SSLMode:  v.GetString("db.sslmode"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetString("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Auth: AuthConfig{
			JWTSecret:     v.GetString("auth.jwt_secret"),
			TokenTTL:      v.GetDuration("auth.token_ttl"),
			AdminPassword: v.GetString("auth.admin_password"),
		},
		RateLimit: RateLimitConfig{
			Rate: v.GetString("rate_limit.rate"),
		},
		Events: EventsConfig{
			Driver:        strings.ToLower(v.GetString("events.driver")),
			Brokers:       splitList(v.GetString("events.brokers")),
			Topic:         v.GetString("events.topic"),
			ChannelPrefix: v.GetString("events.channel_prefix"),
		},
		Storage: StorageConfig{
			Endpoint:  v.GetString("storage.endpoint"),
			AccessKey: v.GetString("storage.access_key"),
			SecretKey: v.GetString("storage.secret_key"),
			Bucket:    v.GetString("storage.bucket"),
			UseSSL:    v.GetBool("storage.use_ssl"),
		},
		Tracing: TracingConfig{
			Enabled:        v.GetBool("tracing.enabled"),
			JaegerEndpoint: v.GetString("tracing.jaeger_endpoint"),
		},
		Log: LogConfig{
			Level:       v.GetString("log.level"),
			Development: v.GetBool("log.development"),
		},
	}

	if cfg.Auth.JWTSecret == "" {
		return cfg, fmt.Errorf("AUTH_JWT_SECRET is required")
	}
	if cfg.Auth.TokenTTL <= 0 {
		return cfg, fmt.Errorf("AUTH_TOKEN_TTL must be positive")
	}
	switch cfg.Events.Driver {
	case "none", "redis", "kafka":
	default:
		return cfg, fmt.Errorf("unknown EVENTS_DRIVER %q", cfg.Events.Driver)
	}
	if cfg.Events.Driver == "redis" && !cfg.Redis.Enabled() {
		return cfg, fmt.Errorf("EVENTS_DRIVER=redis requires REDIS_HOST")
	}

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
