package repository

import (
	"context"
	"errors"
	"fmt"
	"github.com/valkey-io/valkey-go"
	"pkce-auth-server/internal/model"
	"pkce-auth-server/internal/util"
	"time"
)

// ValkeyStore : реализация KeyValueStore поверх Valkey
type ValkeyStore struct {
	client valkey.Client
	prefix string
}

// NewValkeyStore : клиентский кэш не используется, все чтения идут в сервер.
// Против кластера клиент переключается в кластерный режим сам.
func NewValkeyStore(addr, prefix string) (*ValkeyStore, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress:  []string{addr},
		DisableCache: true,
	})
	if err != nil {
		return nil, util.LogError("[ValkeyStore] не удалось подключиться к Valkey", err)
	}
	return &ValkeyStore{client: client, prefix: prefix}, nil
}

func (s *ValkeyStore) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Do(ctx, s.client.B().Get().Key(s.key(key)).Build()).ToString()
	if valkey.IsValkeyNil(err) {
		return "", ErrKeyNotFound
	} else if err != nil {
		return "", util.LogError("[ValkeyStore] ошибка чтения из Valkey", err)
	}
	return val, nil
}

func (s *ValkeyStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.client.Do(ctx, s.setCmd(s.client.B(), key, value, ttl)).Error(); err != nil {
		return util.LogError("[ValkeyStore] ошибка сохранения в Valkey", err)
	}
	return nil
}

func (s *ValkeyStore) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	cmd := s.client.B().Set().Key(s.key(key)).Value(value).Nx().Px(clampTTL(ttl)).Build()
	err := s.client.Do(ctx, cmd).Error()
	if valkey.IsValkeyNil(err) {
		return false, nil
	} else if err != nil {
		return false, util.LogError("[ValkeyStore] ошибка SET NX в Valkey", err)
	}
	return true, nil
}

func (s *ValkeyStore) GetDel(ctx context.Context, key string) (string, error) {
	val, err := s.client.Do(ctx, s.client.B().Getdel().Key(s.key(key)).Build()).ToString()
	if valkey.IsValkeyNil(err) {
		return "", ErrKeyNotFound
	} else if err != nil {
		return "", util.LogError("[ValkeyStore] ошибка GETDEL в Valkey", err)
	}
	return val, nil
}

func (s *ValkeyStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	// по одному DEL на ключ: в кластере ключи могут лежать в разных слотах
	cmds := make(valkey.Commands, 0, len(keys))
	for _, key := range keys {
		cmds = append(cmds, s.client.B().Del().Key(s.key(key)).Build())
	}
	for _, res := range s.client.DoMulti(ctx, cmds...) {
		if err := res.Error(); err != nil {
			return util.LogError("[ValkeyStore] ошибка удаления из Valkey", err)
		}
	}
	return nil
}

func (s *ValkeyStore) Exists(ctx context.Context, key string) (bool, error) {
	count, err := s.client.Do(ctx, s.client.B().Exists().Key(s.key(key)).Build()).AsInt64()
	if err != nil {
		return false, util.LogError("[ValkeyStore] ошибка EXISTS в Valkey", err)
	}
	return count > 0, nil
}

func (s *ValkeyStore) SAdd(ctx context.Context, key, member string, ttl time.Duration) error {
	err := s.client.Dedicated(func(c valkey.DedicatedClient) error {
		return execAll(c.DoMulti(ctx,
			c.B().Multi().Build(),
			c.B().Sadd().Key(s.key(key)).Member(member).Build(),
			c.B().Pexpire().Key(s.key(key)).Milliseconds(clampTTL(ttl).Milliseconds()).Build(),
			c.B().Exec().Build(),
		))
	})
	if err != nil {
		return util.LogError("[ValkeyStore] ошибка SADD в Valkey", err)
	}
	return nil
}

func (s *ValkeyStore) SMembers(ctx context.Context, key string) ([]string, error) {
	members, err := s.client.Do(ctx, s.client.B().Smembers().Key(s.key(key)).Build()).AsStrSlice()
	if err != nil {
		return nil, util.LogError("[ValkeyStore] ошибка SMEMBERS в Valkey", err)
	}
	return members, nil
}

// SetAll выполняет все записи и удаления в одной транзакции MULTI/EXEC на выделенном соединении.
// В кластере все ключи обязаны делить hash tag, иначе транзакция невозможна.
func (s *ValkeyStore) SetAll(ctx context.Context, entries []model.StoreEntry, deleteKeys ...string) error {
	err := s.client.Dedicated(func(c valkey.DedicatedClient) error {
		cmds := make(valkey.Commands, 0, len(entries)+3)
		cmds = append(cmds, c.B().Multi().Build())
		for _, entry := range entries {
			cmds = append(cmds, s.setCmd(c.B(), entry.Key, entry.Value, entry.TTL))
		}
		if len(deleteKeys) > 0 {
			cmds = append(cmds, c.B().Del().Key(s.keys(deleteKeys)...).Build())
		}
		cmds = append(cmds, c.B().Exec().Build())
		return execAll(c.DoMulti(ctx, cmds...))
	})
	if err != nil {
		return util.LogError("[ValkeyStore] ошибка транзакции в Valkey", err)
	}
	return nil
}

func (s *ValkeyStore) Ping(ctx context.Context) error {
	return s.client.Do(ctx, s.client.B().Ping().Build()).Error()
}

func (s *ValkeyStore) Close() error {
	s.client.Close()
	return nil
}

func (s *ValkeyStore) setCmd(b valkey.Builder, key, value string, ttl time.Duration) valkey.Completed {
	if ttl > 0 {
		return b.Set().Key(s.key(key)).Value(value).Px(clampTTL(ttl)).Build()
	}
	return b.Set().Key(s.key(key)).Value(value).Build()
}

func (s *ValkeyStore) key(key string) string {
	return s.prefix + key
}

func (s *ValkeyStore) keys(keys []string) []string {
	prefixed := make([]string, 0, len(keys))
	for _, key := range keys {
		prefixed = append(prefixed, s.key(key))
	}
	return prefixed
}

// execAll проверяет ответы MULTI ... EXEC. Ошибки команд внутри транзакции
// приходят элементами массива EXEC, а не ответом верхнего уровня.
func execAll(results []valkey.ValkeyResult) error {
	if len(results) == 0 {
		return errors.New("пустой ответ транзакции")
	}
	for _, res := range results {
		if err := res.Error(); err != nil {
			if valkey.IsValkeyNil(err) {
				return errors.New("транзакция отменена сервером")
			}
			return err
		}
	}
	replies, err := results[len(results)-1].ToArray()
	if err != nil {
		return fmt.Errorf("некорректный ответ EXEC: %w", err)
	}
	for i, reply := range replies {
		if err := reply.Error(); err != nil && !valkey.IsValkeyNil(err) {
			return fmt.Errorf("команда %d в транзакции: %w", i+1, err)
		}
	}
	return nil
}

// clampTTL не дает отправить PX 0, сервер отвергает нулевой срок
func clampTTL(ttl time.Duration) time.Duration {
	if ttl < time.Millisecond {
		return time.Millisecond
	}
	return ttl
}
