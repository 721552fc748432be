package config

import (
	"pkce-auth-server/internal/model"
	"time"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

const (
	StoreDriverRedis  = "redis"
	StoreDriverValkey = "valkey"
	StoreDriverBunt   = "buntdb"
)

const (
	ClientSourceStatic   = "static"
	ClientSourcePostgres = "postgres"
	ClientSourceS3       = "s3"
)

type ServerConfig struct {
	Addr            string        `yaml:"addr" env:"SERVER_ADDR"`
	TLSCertFile     string        `yaml:"tls_cert_file" env:"SERVER_TLS_CERT_FILE"`
	TLSKeyFile      string        `yaml:"tls_key_file" env:"SERVER_TLS_KEY_FILE"`
	RequireHTTPS    bool          `yaml:"require_https" env:"SERVER_REQUIRE_HTTPS"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type DatabaseConfig struct {
	DSN string `yaml:"dsn" env:"DATABASE_DSN"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB"`
}

type ValkeyConfig struct {
	Addr string `yaml:"addr" env:"VALKEY_ADDR"`
}

type StoreConfig struct {
	Driver   string `yaml:"driver" env:"STORE_DRIVER"`
	BuntPath string `yaml:"bunt_path" env:"STORE_BUNT_PATH"`
	Prefix   string `yaml:"prefix"`
}

type S3Config struct {
	Bucket   string `yaml:"bucket" env:"S3_BUCKET"`
	Region   string `yaml:"region" env:"S3_REGION"`
	Endpoint string `yaml:"endpoint" env:"S3_ENDPOINT"`
	Local    bool   `yaml:"local"`
}

// JWTConfig : секреты подписи должны быть разными для access и refresh токенов
type JWTConfig struct {
	Issuer          string        `yaml:"issuer" env:"JWT_ISSUER"`
	AccessSecret    string        `yaml:"access_secret" env:"JWT_ACCESS_SECRET"`
	RefreshSecret   string        `yaml:"refresh_secret" env:"JWT_REFRESH_SECRET"`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl"`
}

type TTL struct {
	PKCESession       time.Duration `yaml:"pkce_session"`
	AuthorizationCode time.Duration `yaml:"authorization_code"`
}

type ClientsConfig struct {
	Source string         `yaml:"source" env:"CLIENTS_SOURCE"`
	S3Key  string         `yaml:"s3_key" env:"CLIENTS_S3_KEY"`
	Static []model.Client `yaml:"static"`
}

type WebhookConfig struct {
	URL     string        `yaml:"url" env:"WEBHOOK_URL"`
	Timeout time.Duration `yaml:"timeout"`
}

type AMQPConfig struct {
	URL        string `yaml:"url" env:"AMQP_URL"`
	Exchange   string `yaml:"exchange"`
	RoutingKey string `yaml:"routing_key"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// SecretsConfig : если SecretID задан, секреты JWT читаются из AWS Secrets Manager
type SecretsConfig struct {
	SecretID string `yaml:"secret_id" env:"AWS_SECRETS_MANAGER_SECRET_ID"`
	Region   string `yaml:"region" env:"AWS_SECRETS_MANAGER_REGION"`
}
