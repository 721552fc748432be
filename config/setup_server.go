package config

import (
	"crypto/tls"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"
)

const minSecretLength = 32

type AppConfig struct {
	Env            string          `yaml:"env" env:"APP_ENV"`
	Server         ServerConfig    `yaml:"server"`
	JWT            JWTConfig       `yaml:"jwt"`
	TTL            TTL             `yaml:"TTL"`
	Store          StoreConfig     `yaml:"store"`
	RedisConfig    RedisConfig     `yaml:"redisConfig"`
	ValkeyConfig   ValkeyConfig    `yaml:"valkeyConfig"`
	DatabaseConfig DatabaseConfig  `yaml:"databaseConfig"`
	Clients        ClientsConfig   `yaml:"clients"`
	S3Config       S3Config        `yaml:"s3Config"`
	Webhook        WebhookConfig   `yaml:"webhook"`
	AMQP           AMQPConfig      `yaml:"amqp"`
	RateLimit      RateLimitConfig `yaml:"rateLimit"`
	Secrets        SecretsConfig   `yaml:"secrets"`
}

// LoadConfig читает yaml файл и накладывает поверх переменные окружения
func LoadConfig(path string) (*AppConfig, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg AppConfig
	if err := yaml.Unmarshal(file, &cfg); err != nil {
		return nil, err
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("ошибка чтения переменных окружения: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// FetchConfigPath : flag > env > default
func FetchConfigPath() string {
	var res string

	flag.StringVar(&res, "config", "", "path to config file")
	flag.Parse()

	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}
	if res == "" {
		res = "config.yaml"
	}
	return res
}

func (cfg *AppConfig) applyDefaults() {
	if cfg.Env == "" {
		cfg.Env = EnvLocal
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8443"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 10 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 10 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 5 * time.Second
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "pkce-auth-server"
	}
	if cfg.JWT.AccessTokenTTL == 0 {
		cfg.JWT.AccessTokenTTL = time.Hour
	}
	if cfg.JWT.RefreshTokenTTL == 0 {
		cfg.JWT.RefreshTokenTTL = 30 * 24 * time.Hour
	}
	if cfg.TTL.PKCESession == 0 {
		cfg.TTL.PKCESession = 300 * time.Second
	}
	if cfg.TTL.AuthorizationCode == 0 {
		cfg.TTL.AuthorizationCode = 60 * time.Second
	}
	if cfg.Store.Driver == "" {
		cfg.Store.Driver = StoreDriverRedis
	}
	if cfg.Store.BuntPath == "" {
		cfg.Store.BuntPath = ":memory:"
	}
	if cfg.Store.Prefix == "" {
		cfg.Store.Prefix = "oauth:"
	}
	if cfg.Clients.Source == "" {
		cfg.Clients.Source = ClientSourceStatic
	}
	if cfg.Webhook.Timeout == 0 {
		cfg.Webhook.Timeout = 5 * time.Second
	}
	if cfg.RateLimit.RequestsPerSecond == 0 {
		cfg.RateLimit.RequestsPerSecond = 10
	}
	if cfg.RateLimit.Burst == 0 {
		cfg.RateLimit.Burst = 20
	}
}

// Validate проверяет конфигурацию при старте. Ошибка здесь должна останавливать процесс.
func (cfg *AppConfig) Validate() error {
	var errs []error

	if len(cfg.JWT.AccessSecret) < minSecretLength {
		errs = append(errs, fmt.Errorf("jwt.access_secret должен быть не короче %d байт", minSecretLength))
	}
	if len(cfg.JWT.RefreshSecret) < minSecretLength {
		errs = append(errs, fmt.Errorf("jwt.refresh_secret должен быть не короче %d байт", minSecretLength))
	}
	if cfg.JWT.AccessSecret != "" && cfg.JWT.AccessSecret == cfg.JWT.RefreshSecret {
		errs = append(errs, errors.New("jwt.access_secret и jwt.refresh_secret должны различаться"))
	}
	if cfg.JWT.AccessTokenTTL <= 0 || cfg.JWT.RefreshTokenTTL <= 0 {
		errs = append(errs, errors.New("время жизни токенов должно быть положительным"))
	}
	if cfg.TTL.PKCESession <= 0 || cfg.TTL.AuthorizationCode <= 0 {
		errs = append(errs, errors.New("TTL pkce_session и authorization_code должны быть положительными"))
	}

	// ключи субъекта группируются hash tag {sub}, фигурные скобки в префиксе его перехватят
	if strings.ContainsAny(cfg.Store.Prefix, "{}") {
		errs = append(errs, errors.New("store.prefix не должен содержать фигурных скобок"))
	}

	switch cfg.Store.Driver {
	case StoreDriverRedis:
		if cfg.RedisConfig.Addr == "" {
			errs = append(errs, errors.New("redisConfig.addr обязателен для store.driver=redis"))
		}
	case StoreDriverValkey:
		if cfg.ValkeyConfig.Addr == "" {
			errs = append(errs, errors.New("valkeyConfig.addr обязателен для store.driver=valkey"))
		}
	case StoreDriverBunt:
	default:
		errs = append(errs, fmt.Errorf("неизвестный store.driver: %q", cfg.Store.Driver))
	}

	switch cfg.Clients.Source {
	case ClientSourceStatic, ClientSourcePostgres:
	case ClientSourceS3:
		if cfg.S3Config.Bucket == "" || cfg.Clients.S3Key == "" {
			errs = append(errs, errors.New("s3Config.bucket и clients.s3_key обязательны для clients.source=s3"))
		}
	default:
		errs = append(errs, fmt.Errorf("неизвестный clients.source: %q", cfg.Clients.Source))
	}

	return errors.Join(errs...)
}

// TLSEnabled : сервер сам терминирует TLS
func (cfg *ServerConfig) TLSEnabled() bool {
	return cfg.TLSCertFile != "" && cfg.TLSKeyFile != ""
}

func SetupServer(cfg *ServerConfig) (*http.Server, *chi.Mux) {
	router := chi.NewRouter()
	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		TLSConfig:    &tls.Config{MinVersion: tls.VersionTLS12},
	}

	return server, router
}

func SetupDatabase(dsn string) (*Database, error) {
	return NewDatabaseConnection("postgres", dsn)
}

func SetupRedis(cfg *RedisConfig) (*RedisClient, error) {
	return NewRedisClient(cfg)
}

// SetupLogger : text для локальной разработки, json для dev и prod
func SetupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case EnvDev:
		log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case EnvProd:
		log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		log = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	return log
}
