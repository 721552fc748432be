package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"pkce-auth-server/config"
	_ "pkce-auth-server/docs"
	"pkce-auth-server/internal/handler"
	"pkce-auth-server/internal/instrumentation"
	"pkce-auth-server/internal/notifier"
	"pkce-auth-server/internal/ports"
	"pkce-auth-server/internal/repository"
	"pkce-auth-server/internal/security"
	"pkce-auth-server/internal/service"
	"syscall"

	httpSwagger "github.com/swaggo/http-swagger"
)

// @title PKCE Authorization Server
// @version 1.0
// @description OAuth 2.0 authorization code grant с обязательным PKCE (S256), ротацией refresh токенов и отзывом

// @host localhost:8443
// @schemes https

// @securityDefinitions.basic BasicAuth
func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig(config.FetchConfigPath())
	if err != nil {
		slog.Error("ошибка загрузки конфигурации", slog.Any("error", err))
		os.Exit(1)
	}
	slog.SetDefault(config.SetupLogger(cfg.Env))

	if cfg.Secrets.SecretID != "" {
		secretsClient, err := config.NewSecretsClient(ctx, &cfg.Secrets)
		if err != nil {
			fatal("ошибка создания клиента Secrets Manager", err)
		}
		if err := config.LoadSigningSecrets(ctx, secretsClient, cfg); err != nil {
			fatal("ошибка загрузки секретов подписи", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		fatal("некорректная конфигурация", err)
	}

	store, err := setupStore(cfg)
	if err != nil {
		fatal("ошибка подключения к хранилищу", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Error("ошибка при закрытии хранилища", slog.Any("error", err))
		}
	}()

	db, err := config.SetupDatabase(cfg.DatabaseConfig.DSN)
	if err != nil {
		fatal("не удалось подключиться к БД", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			slog.Error("ошибка при закрытии БД", slog.Any("error", err))
		}
	}()

	clients, err := setupClientRegistry(ctx, cfg, db)
	if err != nil {
		fatal("ошибка загрузки реестра клиентов", err)
	}

	events, closeEvents, err := setupEventSink(cfg)
	if err != nil {
		fatal("ошибка настройки доставки событий безопасности", err)
	}
	defer func() {
		if err := closeEvents(); err != nil {
			slog.Error("ошибка при закрытии канала событий", slog.Any("error", err))
		}
	}()

	inst, err := instrumentation.New(nil, nil)
	if err != nil {
		fatal("ошибка инициализации метрик", err)
	}

	userRepo := repository.NewUserRepository(db)
	ledger := repository.NewRevocationRepository(store, cfg.JWT.RefreshTokenTTL)
	codec := security.NewJWTService(&cfg.JWT, ledger)

	oauthService, err := service.NewOAuthService(service.OAuthDependencies{
		Clients:         clients,
		Users:           userRepo,
		PKCEStore:       repository.NewPKCERepository(store, cfg.TTL.PKCESession),
		Codes:           repository.NewAuthCodeRepository(store, cfg.TTL.AuthorizationCode),
		Ledger:          ledger,
		Codec:           codec,
		Events:          events,
		Instrumentation: inst,
	})
	if err != nil {
		fatal("ошибка создания OAuth сервиса", err)
	}

	srv, router := config.SetupServer(&cfg.Server)
	handler.SetupRoutes(router, handler.Routes{
		OAuth:        handler.NewOAuthHandler(oauthService, security.NewBasicAuthenticator(userRepo), cfg.JWT.Issuer),
		Resource:     handler.NewResourceHandler(store),
		Codec:        codec,
		RateLimiter:  security.NewIPRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst),
		RequireHTTPS: cfg.Server.RequireHTTPS,
		Swagger:      httpSwagger.WrapHandler,
	})

	runServer(ctx, srv, &cfg.Server)
}

func setupStore(cfg *config.AppConfig) (ports.KeyValueStore, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverRedis:
		redisClient, err := config.SetupRedis(&cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		return repository.NewRedisStore(redisClient.Client, cfg.Store.Prefix), nil
	case config.StoreDriverValkey:
		return repository.NewValkeyStore(cfg.ValkeyConfig.Addr, cfg.Store.Prefix)
	case config.StoreDriverBunt:
		return repository.NewBuntStore(cfg.Store.BuntPath, cfg.Store.Prefix)
	default:
		return nil, fmt.Errorf("неизвестный store.driver: %q", cfg.Store.Driver)
	}
}

func setupClientRegistry(ctx context.Context, cfg *config.AppConfig, db *config.Database) (ports.ClientRegistry, error) {
	switch cfg.Clients.Source {
	case config.ClientSourcePostgres:
		return repository.NewClientRepository(db), nil
	case config.ClientSourceS3:
		s3Client, err := config.NewS3Client(ctx, &cfg.S3Config)
		if err != nil {
			return nil, err
		}
		return repository.NewS3ClientRegistry(ctx, s3Client, cfg.S3Config.Bucket, cfg.Clients.S3Key)
	default:
		return repository.NewStaticClientRegistry(cfg.Clients.Static)
	}
}

// setupEventSink : события всегда пишутся в лог, webhook и AMQP подключаются, если заданы
func setupEventSink(cfg *config.AppConfig) (ports.SecurityEventSink, func() error, error) {
	sinks := []ports.SecurityEventSink{notifier.NewLogSink(slog.Default())}
	closeFn := func() error { return nil }

	if cfg.Webhook.URL != "" {
		sinks = append(sinks, notifier.NewAsyncSink(notifier.NewWebhookSink(cfg.Webhook.URL, cfg.Webhook.Timeout), cfg.Webhook.Timeout))
	}
	if cfg.AMQP.URL != "" {
		amqpSink, closeAMQP, err := notifier.DialAMQP(cfg.AMQP.URL, cfg.AMQP.Exchange, cfg.AMQP.RoutingKey)
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, notifier.NewAsyncSink(amqpSink, cfg.Webhook.Timeout))
		closeFn = closeAMQP
	}
	return notifier.NewMultiSink(sinks...), closeFn, nil
}

func runServer(ctx context.Context, server *http.Server, cfg *config.ServerConfig) {
	serverErrors := make(chan error, 1)
	go func() {
		slog.Info("сервер запущен", slog.String("addr", server.Addr), slog.Bool("tls", cfg.TLSEnabled()))
		if cfg.TLSEnabled() {
			serverErrors <- server.ListenAndServeTLS(cfg.TLSCertFile, cfg.TLSKeyFile)
			return
		}
		serverErrors <- server.ListenAndServe()
	}()

	signalChannel := make(chan os.Signal, 1)
	signal.Notify(signalChannel, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("ошибка работы сервера", slog.Any("error", err))
			return
		}
	case sig := <-signalChannel:
		slog.Info("получен сигнал остановки работы сервера", slog.String("signal", sig.String()))
	}

	shutDownCtx, shutDownCancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer shutDownCancel()

	if err := server.Shutdown(shutDownCtx); err != nil {
		slog.Error("ошибка при остановке сервера", slog.Any("error", err))
	} else {
		slog.Info("сервер успешно остановлен")
	}
}

func fatal(msg string, err error) {
	slog.Error(msg, slog.Any("error", err))
	os.Exit(1)
}
