package repository

import (
	"context"
	"errors"
	"fmt"
	"pkce-auth-server/internal/ports"
	"time"
)

type AuthCodeRepository struct {
	store ports.KeyValueStore
	ttl   time.Duration
}

func NewAuthCodeRepository(store ports.KeyValueStore, ttl time.Duration) *AuthCodeRepository {
	return &AuthCodeRepository{store: store, ttl: ttl}
}

func (r *AuthCodeRepository) Save(ctx context.Context, code, state string) error {
	if err := r.store.Set(ctx, codeKey(code), state, r.ttl); err != nil {
		return fmt.Errorf("не удалось сохранить код авторизации: %w", err)
	}
	return nil
}

// Consume : атомарно забирает код, второй вызов с тем же кодом вернет ErrCodeNotFound
func (r *AuthCodeRepository) Consume(ctx context.Context, code string) (string, error) {
	state, err := r.store.GetDel(ctx, codeKey(code))
	if errors.Is(err, ErrKeyNotFound) {
		return "", ErrCodeNotFound
	} else if err != nil {
		return "", fmt.Errorf("не удалось получить код авторизации: %w", err)
	}
	return state, nil
}

func codeKey(code string) string {
	return "code:" + code
}
