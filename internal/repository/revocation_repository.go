package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"pkce-auth-server/internal/model"
	"pkce-auth-server/internal/ports"
	"strconv"
	"strings"
	"time"
)

const revokedMarker = "1"

// RevocationRepository : журнал отозванных access и использованных refresh токенов.
// Для каждого субъекта ведется индекс выданных токенов "<type>:<jti>:<exp unix>".
// Все ключи субъекта несут hash tag {<sub>} и в кластере попадают в один слот,
// поэтому отзыв всех сессий остается одной транзакцией.
type RevocationRepository struct {
	store    ports.KeyValueStore
	indexTTL time.Duration
	now      func() time.Time
}

// NewRevocationRepository : indexTTL должен быть не меньше срока жизни refresh токена
func NewRevocationRepository(store ports.KeyValueStore, indexTTL time.Duration) *RevocationRepository {
	return &RevocationRepository{store: store, indexTTL: indexTTL, now: time.Now}
}

func (r *RevocationRepository) MarkAccessTokenRevoked(ctx context.Context, subject, jti string, remaining time.Duration) error {
	if remaining <= 0 {
		return nil
	}
	if err := r.store.Set(ctx, revokedAccessKey(subject, jti), revokedMarker, remaining); err != nil {
		return fmt.Errorf("не удалось отозвать access токен: %w", err)
	}
	return nil
}

// MarkRefreshTokenUsed : атомарно помечает refresh токен использованным.
// false означает, что токен уже был погашен ранее.
func (r *RevocationRepository) MarkRefreshTokenUsed(ctx context.Context, subject, jti string, ttl time.Duration) (bool, error) {
	first, err := r.store.SetNX(ctx, usedRefreshKey(subject, jti), revokedMarker, ttl)
	if err != nil {
		return false, fmt.Errorf("не удалось пометить refresh токен: %w", err)
	}
	return first, nil
}

func (r *RevocationRepository) IsAccessTokenRevoked(ctx context.Context, subject, jti string) (bool, error) {
	revoked, err := r.store.Exists(ctx, revokedAccessKey(subject, jti))
	if err != nil {
		return false, fmt.Errorf("не удалось проверить отзыв access токена: %w", err)
	}
	return revoked, nil
}

func (r *RevocationRepository) IsRefreshTokenUsed(ctx context.Context, subject, jti string) (bool, error) {
	used, err := r.store.Exists(ctx, usedRefreshKey(subject, jti))
	if err != nil {
		return false, fmt.Errorf("не удалось проверить refresh токен: %w", err)
	}
	return used, nil
}

// TrackIssuedToken : добавляет выданный токен в индекс субъекта
func (r *RevocationRepository) TrackIssuedToken(ctx context.Context, subject string, token model.IssuedToken) error {
	ttl := r.indexTTL
	if remaining := token.ExpiresAt.Sub(r.now()); remaining > ttl {
		ttl = remaining
	}
	if err := r.store.SAdd(ctx, sessionsKey(subject), indexEntry(token), ttl); err != nil {
		return fmt.Errorf("не удалось добавить токен в индекс: %w", err)
	}
	return nil
}

// SessionsRevokedAt : время последнего отзыва всех сессий субъекта, хранится в наносекундах.
// Нулевое время, если отзыва не было.
func (r *RevocationRepository) SessionsRevokedAt(ctx context.Context, subject string) (time.Time, error) {
	val, err := r.store.Get(ctx, revokedBeforeKey(subject))
	if errors.Is(err, ErrKeyNotFound) {
		return time.Time{}, nil
	} else if err != nil {
		return time.Time{}, fmt.Errorf("не удалось проверить отзыв сессий субъекта: %w", err)
	}
	cutoff, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("некорректная отметка отзыва сессий %q: %w", val, err)
	}
	return time.Unix(0, cutoff), nil
}

// RevokeAllSessionsForSubject : отзывает все неистекшие токены субъекта и очищает индекс.
// Отметка времени отзыва пишется до чтения индекса: токен, добавленный в индекс после чтения,
// выпущен уже после отметки и отсекается проверкой SessionsRevokedAt.
// Возвращает число отозванных токенов из индекса.
func (r *RevocationRepository) RevokeAllSessionsForSubject(ctx context.Context, subject string) (int, error) {
	now := r.now()
	if err := r.store.Set(ctx, revokedBeforeKey(subject), strconv.FormatInt(now.UnixNano(), 10), r.indexTTL); err != nil {
		return 0, fmt.Errorf("не удалось сохранить отметку отзыва сессий: %w", err)
	}

	members, err := r.store.SMembers(ctx, sessionsKey(subject))
	if err != nil {
		return 0, fmt.Errorf("не удалось прочитать индекс токенов: %w", err)
	}

	entries := make([]model.StoreEntry, 0, len(members))
	for _, member := range members {
		tokenType, jti, expiresAt, ok := parseIndexEntry(member)
		if !ok {
			slog.Warn("[RevocationRepo] некорректная запись индекса", slog.String("subject", subject), slog.String("entry", member))
			continue
		}
		remaining := expiresAt.Sub(now)
		if remaining <= 0 {
			continue
		}
		switch tokenType {
		case model.AccessTokenType:
			entries = append(entries, model.StoreEntry{Key: revokedAccessKey(subject, jti), Value: revokedMarker, TTL: remaining})
		case model.RefreshTokenType:
			entries = append(entries, model.StoreEntry{Key: usedRefreshKey(subject, jti), Value: revokedMarker, TTL: remaining})
		}
	}

	if err := r.store.SetAll(ctx, entries, sessionsKey(subject)); err != nil {
		return 0, fmt.Errorf("не удалось отозвать сессии субъекта: %w", err)
	}
	return len(entries), nil
}

func indexEntry(token model.IssuedToken) string {
	return fmt.Sprintf("%s:%s:%d", token.Type, token.JTI, token.ExpiresAt.Unix())
}

func parseIndexEntry(entry string) (model.TokenType, string, time.Time, bool) {
	parts := strings.Split(entry, ":")
	if len(parts) != 3 || parts[1] == "" {
		return "", "", time.Time{}, false
	}
	exp, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return "", "", time.Time{}, false
	}
	tokenType := model.TokenType(parts[0])
	if tokenType != model.AccessTokenType && tokenType != model.RefreshTokenType {
		return "", "", time.Time{}, false
	}
	return tokenType, parts[1], time.Unix(exp, 0), true
}

func subjectTag(subject string) string {
	return "{" + subject + "}"
}

func revokedAccessKey(subject, jti string) string {
	return "revoked:access:" + subjectTag(subject) + ":" + jti
}

func usedRefreshKey(subject, jti string) string {
	return "used:refresh:" + subjectTag(subject) + ":" + jti
}

func sessionsKey(subject string) string {
	return "sessions:" + subjectTag(subject)
}

func revokedBeforeKey(subject string) string {
	return "revoked_before:" + subjectTag(subject)
}
