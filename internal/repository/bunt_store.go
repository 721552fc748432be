package repository

import (
	"context"
	"errors"
	"github.com/tidwall/buntdb"
	"pkce-auth-server/internal/model"
	"pkce-auth-server/internal/util"
	"time"
)

const setMemberSeparator = "|"

// BuntStore : встраиваемое хранилище для одиночного инстанса и тестов.
// Элементы множества хранятся отдельными ключами "<set>|<member>".
type BuntStore struct {
	db     *buntdb.DB
	prefix string
}

// NewBuntStore открывает базу по пути, ":memory:" - база в памяти
func NewBuntStore(path, prefix string) (*BuntStore, error) {
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, util.LogError("[BuntStore] не удалось открыть buntdb", err)
	}
	return &BuntStore{db: db, prefix: prefix}, nil
}

func (s *BuntStore) Get(_ context.Context, key string) (string, error) {
	var val string
	err := s.db.View(func(tx *buntdb.Tx) error {
		var err error
		val, err = tx.Get(s.key(key))
		return err
	})
	if errors.Is(err, buntdb.ErrNotFound) {
		return "", ErrKeyNotFound
	} else if err != nil {
		return "", util.LogError("[BuntStore] ошибка чтения", err)
	}
	return val, nil
}

func (s *BuntStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	err := s.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(s.key(key), value, setOptions(ttl))
		return err
	})
	if err != nil {
		return util.LogError("[BuntStore] ошибка сохранения", err)
	}
	return nil
}

func (s *BuntStore) SetNX(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	created := false
	err := s.db.Update(func(tx *buntdb.Tx) error {
		_, err := tx.Get(s.key(key))
		if err == nil {
			return nil
		}
		if !errors.Is(err, buntdb.ErrNotFound) {
			return err
		}
		if _, _, err := tx.Set(s.key(key), value, setOptions(ttl)); err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		return false, util.LogError("[BuntStore] ошибка SETNX", err)
	}
	return created, nil
}

func (s *BuntStore) GetDel(_ context.Context, key string) (string, error) {
	var val string
	err := s.db.Update(func(tx *buntdb.Tx) error {
		var err error
		if val, err = tx.Get(s.key(key)); err != nil {
			return err
		}
		_, err = tx.Delete(s.key(key))
		return err
	})
	if errors.Is(err, buntdb.ErrNotFound) {
		return "", ErrKeyNotFound
	} else if err != nil {
		return "", util.LogError("[BuntStore] ошибка GETDEL", err)
	}
	return val, nil
}

func (s *BuntStore) Delete(_ context.Context, keys ...string) error {
	err := s.db.Update(func(tx *buntdb.Tx) error {
		return s.deleteKeys(tx, keys)
	})
	if err != nil {
		return util.LogError("[BuntStore] ошибка удаления", err)
	}
	return nil
}

func (s *BuntStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.Get(ctx, key)
	if errors.Is(err, ErrKeyNotFound) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	return true, nil
}

func (s *BuntStore) SAdd(_ context.Context, key, member string, ttl time.Duration) error {
	err := s.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(s.memberKey(key, member), member, setOptions(ttl))
		return err
	})
	if err != nil {
		return util.LogError("[BuntStore] ошибка SADD", err)
	}
	return nil
}

func (s *BuntStore) SMembers(_ context.Context, key string) ([]string, error) {
	members := make([]string, 0)
	err := s.db.View(func(tx *buntdb.Tx) error {
		var keys []string
		err := tx.AscendKeys(s.memberKey(key, "*"), func(k, _ string) bool {
			keys = append(keys, k)
			return true
		})
		if err != nil {
			return err
		}
		// Get отбрасывает элементы с истекшим сроком, которые еще не вычищены фоном
		for _, k := range keys {
			member, err := tx.Get(k)
			if errors.Is(err, buntdb.ErrNotFound) {
				continue
			} else if err != nil {
				return err
			}
			members = append(members, member)
		}
		return nil
	})
	if err != nil {
		return nil, util.LogError("[BuntStore] ошибка SMEMBERS", err)
	}
	return members, nil
}

func (s *BuntStore) SetAll(_ context.Context, entries []model.StoreEntry, deleteKeys ...string) error {
	err := s.db.Update(func(tx *buntdb.Tx) error {
		for _, entry := range entries {
			if _, _, err := tx.Set(s.key(entry.Key), entry.Value, setOptions(entry.TTL)); err != nil {
				return err
			}
		}
		return s.deleteKeys(tx, deleteKeys)
	})
	if err != nil {
		return util.LogError("[BuntStore] ошибка транзакции", err)
	}
	return nil
}

func (s *BuntStore) Ping(_ context.Context) error {
	return s.db.View(func(tx *buntdb.Tx) error { return nil })
}

func (s *BuntStore) Close() error {
	return s.db.Close()
}

// deleteKeys удаляет ключи и элементы множеств с такими именами
func (s *BuntStore) deleteKeys(tx *buntdb.Tx, keys []string) error {
	var toDelete []string
	for _, key := range keys {
		toDelete = append(toDelete, s.key(key))
		err := tx.AscendKeys(s.memberKey(key, "*"), func(k, _ string) bool {
			toDelete = append(toDelete, k)
			return true
		})
		if err != nil {
			return err
		}
	}
	for _, k := range toDelete {
		if _, err := tx.Delete(k); err != nil && !errors.Is(err, buntdb.ErrNotFound) {
			return err
		}
	}
	return nil
}

func (s *BuntStore) key(key string) string {
	return s.prefix + key
}

func (s *BuntStore) memberKey(key, member string) string {
	return s.key(key) + setMemberSeparator + member
}

func setOptions(ttl time.Duration) *buntdb.SetOptions {
	if ttl <= 0 {
		return nil
	}
	return &buntdb.SetOptions{Expires: true, TTL: ttl}
}
