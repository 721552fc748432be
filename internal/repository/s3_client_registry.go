package repository

import (
	"context"
	"fmt"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"gopkg.in/yaml.v3"
	"io"
	"log/slog"
	"pkce-auth-server/internal/model"
	"pkce-auth-server/internal/util"
)

// S3ObjectGetter : часть s3.Client, нужная реестру
type S3ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type clientsDocument struct {
	Clients []model.Client `yaml:"clients"`
}

// S3ClientRegistry : реестр клиентов из YAML документа в бакете
type S3ClientRegistry struct {
	*StaticClientRegistry
	api    S3ObjectGetter
	bucket string
	key    string
}

// NewS3ClientRegistry : загружает документ сразу, без него сервер не стартует
func NewS3ClientRegistry(ctx context.Context, api S3ObjectGetter, bucket, key string) (*S3ClientRegistry, error) {
	registry := &S3ClientRegistry{
		StaticClientRegistry: &StaticClientRegistry{clients: map[string]model.Client{}},
		api:                  api,
		bucket:               bucket,
		key:                  key,
	}
	if err := registry.Reload(ctx); err != nil {
		return nil, err
	}
	return registry, nil
}

// Reload : перечитывает документ, при ошибке остается прежний список
func (r *S3ClientRegistry) Reload(ctx context.Context) error {
	out, err := r.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(r.key),
	})
	if err != nil {
		return util.LogError("[S3ClientRegistry] не удалось получить документ клиентов", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return util.LogError("[S3ClientRegistry] не удалось прочитать документ клиентов", err)
	}

	var doc clientsDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return util.LogError("[S3ClientRegistry] некорректный YAML документ клиентов", err)
	}
	if err := r.Replace(doc.Clients); err != nil {
		return fmt.Errorf("некорректный список клиентов в s3://%s/%s: %w", r.bucket, r.key, err)
	}

	slog.Info("[S3ClientRegistry] реестр клиентов загружен", slog.Int("clients", len(doc.Clients)))
	return nil
}
