package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// SecretsAPI : часть клиента Secrets Manager, которая нужна для чтения секрета
type SecretsAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// signingSecrets : формат JSON секрета в Secrets Manager
type signingSecrets struct {
	AccessSecret  string `json:"JWT_ACCESS_SECRET"`
	RefreshSecret string `json:"JWT_REFRESH_SECRET"`
}

// NewSecretsClient создает клиент Secrets Manager из стандартной цепочки AWS
func NewSecretsClient(ctx context.Context, cfg *SecretsConfig) (*secretsmanager.Client, error) {
	var opts []func(*awsConfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsConfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("ошибка загрузки AWS config: %w", err)
	}
	return secretsmanager.NewFromConfig(awsCfg), nil
}

// LoadSigningSecrets подменяет секреты JWT значениями из Secrets Manager.
// Пустые поля секрета не перетирают уже заданные значения.
func LoadSigningSecrets(ctx context.Context, api SecretsAPI, cfg *AppConfig) error {
	if cfg.Secrets.SecretID == "" {
		return nil
	}

	output, err := api.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(cfg.Secrets.SecretID),
	})
	if err != nil {
		return fmt.Errorf("ошибка чтения секрета %s: %w", cfg.Secrets.SecretID, err)
	}

	var payload []byte
	switch {
	case output.SecretString != nil:
		payload = []byte(*output.SecretString)
	case len(output.SecretBinary) > 0:
		payload = output.SecretBinary
	default:
		return errors.New("секрет " + cfg.Secrets.SecretID + " пустой")
	}

	var secrets signingSecrets
	if err := json.Unmarshal(payload, &secrets); err != nil {
		return fmt.Errorf("секрет %s не является JSON: %w", cfg.Secrets.SecretID, err)
	}

	if secrets.AccessSecret != "" {
		cfg.JWT.AccessSecret = secrets.AccessSecret
	}
	if secrets.RefreshSecret != "" {
		cfg.JWT.RefreshSecret = secrets.RefreshSecret
	}

	slog.Info("секреты подписи загружены из AWS Secrets Manager", slog.String("secret_id", cfg.Secrets.SecretID))
	return nil
}
