package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"pkce-auth-server/internal/model"
	"pkce-auth-server/internal/ports"
	"pkce-auth-server/internal/util"
	"time"
)

type PKCERepository struct {
	store ports.KeyValueStore
	ttl   time.Duration
}

func NewPKCERepository(store ports.KeyValueStore, ttl time.Duration) *PKCERepository {
	return &PKCERepository{store: store, ttl: ttl}
}

// Save : сохраняет сессию по state, повторная запись перезаписывает предыдущую
func (r *PKCERepository) Save(ctx context.Context, session *model.PKCESession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return util.LogError("[PKCERepo] не удалось сериализовать сессию", err)
	}
	if err := r.store.Set(ctx, pkceKey(session.State), string(data), r.ttl); err != nil {
		return fmt.Errorf("не удалось сохранить pkce сессию: %w", err)
	}
	return nil
}

// Get : возвращает ErrSessionNotFound, если сессии нет или она истекла
func (r *PKCERepository) Get(ctx context.Context, state string) (*model.PKCESession, error) {
	data, err := r.store.Get(ctx, pkceKey(state))
	if errors.Is(err, ErrKeyNotFound) {
		return nil, ErrSessionNotFound
	} else if err != nil {
		return nil, fmt.Errorf("не удалось прочитать pkce сессию: %w", err)
	}

	var session model.PKCESession
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		slog.Error("[PKCERepo] поврежденная pkce сессия в хранилище", slog.String("state", state), slog.Any("error", err))
		return nil, ErrSessionNotFound
	}
	return &session, nil
}

func (r *PKCERepository) Delete(ctx context.Context, state string) error {
	if err := r.store.Delete(ctx, pkceKey(state)); err != nil {
		return fmt.Errorf("не удалось удалить pkce сессию: %w", err)
	}
	return nil
}

func pkceKey(state string) string {
	return "pkce:" + state
}
