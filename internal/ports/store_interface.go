package ports

import (
	"context"
	"pkce-auth-server/internal/model"
	"time"
)

// KeyValueStore : TTL-хранилище, общее для всех инстансов сервера.
// Отсутствующий ключ - repository.ErrKeyNotFound.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// SetNX атомарно записывает значение, только если ключа нет
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	// GetDel атомарно читает и удаляет ключ
	GetDel(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	SAdd(ctx context.Context, key, member string, ttl time.Duration) error
	SMembers(ctx context.Context, key string) ([]string, error)
	// SetAll атомарно записывает все entries и удаляет deleteKeys
	SetAll(ctx context.Context, entries []model.StoreEntry, deleteKeys ...string) error
	Ping(ctx context.Context) error
	Close() error
}
