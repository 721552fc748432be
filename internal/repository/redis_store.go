package repository

import (
	"context"
	"errors"
	"github.com/redis/go-redis/v9"
	"pkce-auth-server/internal/model"
	"pkce-auth-server/internal/util"
	"time"
)

// RedisStore : реализация KeyValueStore поверх Redis
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrKeyNotFound
	} else if err != nil {
		return "", util.LogError("[RedisStore] ошибка чтения из Redis", err)
	}
	return val, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.key(key), value, ttl).Err(); err != nil {
		return util.LogError("[RedisStore] ошибка сохранения в Redis", err)
	}
	return nil
}

func (s *RedisStore) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.key(key), value, ttl).Result()
	if err != nil {
		return false, util.LogError("[RedisStore] ошибка SETNX в Redis", err)
	}
	return ok, nil
}

func (s *RedisStore) GetDel(ctx context.Context, key string) (string, error) {
	val, err := s.client.GetDel(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrKeyNotFound
	} else if err != nil {
		return "", util.LogError("[RedisStore] ошибка GETDEL в Redis", err)
	}
	return val, nil
}

func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, s.keys(keys)...).Err(); err != nil {
		return util.LogError("[RedisStore] ошибка удаления из Redis", err)
	}
	return nil
}

func (s *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	count, err := s.client.Exists(ctx, s.key(key)).Result()
	if err != nil {
		return false, util.LogError("[RedisStore] ошибка EXISTS в Redis", err)
	}
	return count > 0, nil
}

// SAdd добавляет элемент в множество и продлевает TTL всего множества
func (s *RedisStore) SAdd(ctx context.Context, key, member string, ttl time.Duration) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, s.key(key), member)
		pipe.Expire(ctx, s.key(key), ttl)
		return nil
	})
	if err != nil {
		return util.LogError("[RedisStore] ошибка SADD в Redis", err)
	}
	return nil
}

func (s *RedisStore) SMembers(ctx context.Context, key string) ([]string, error) {
	members, err := s.client.SMembers(ctx, s.key(key)).Result()
	if err != nil {
		return nil, util.LogError("[RedisStore] ошибка SMEMBERS в Redis", err)
	}
	return members, nil
}

// SetAll выполняет все записи и удаления в одной транзакции MULTI/EXEC
func (s *RedisStore) SetAll(ctx context.Context, entries []model.StoreEntry, deleteKeys ...string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, entry := range entries {
			pipe.Set(ctx, s.key(entry.Key), entry.Value, entry.TTL)
		}
		if len(deleteKeys) > 0 {
			pipe.Del(ctx, s.keys(deleteKeys)...)
		}
		return nil
	})
	if err != nil {
		return util.LogError("[RedisStore] ошибка транзакции в Redis", err)
	}
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) key(key string) string {
	return s.prefix + key
}

func (s *RedisStore) keys(keys []string) []string {
	prefixed := make([]string, 0, len(keys))
	for _, key := range keys {
		prefixed = append(prefixed, s.key(key))
	}
	return prefixed
}
