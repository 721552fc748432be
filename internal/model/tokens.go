package model

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type TokenType string

const (
	AccessTokenType  TokenType = "access"
	RefreshTokenType TokenType = "refresh"
)

// TokenClaims полезная нагрузка access и refresh токенов.
// Email и Name носят информационный характер и не используются для авторизации.
type TokenClaims struct {
	TokenType TokenType `json:"token_type"`
	ClientID  string    `json:"client_id,omitempty"`
	Scope     string    `json:"scope,omitempty"`
	Email     string    `json:"email,omitempty"`
	Name      string    `json:"name,omitempty"`
	ParentID  string    `json:"parent_id,omitempty"`
	jwt.RegisteredClaims
}

// RemainingLifetime возвращает время до истечения токена, но не меньше нуля
func (c *TokenClaims) RemainingLifetime(now time.Time) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	remaining := c.ExpiresAt.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// AccessTokenParams данные для выпуска access токена.
// jti генерирует только кодек, поэтому здесь его нет.
type AccessTokenParams struct {
	Subject  string
	ClientID string
	Scopes   []string
	Display  DisplayFields
}

// RefreshTokenParams данные для выпуска refresh токена
type RefreshTokenParams struct {
	Subject  string
	ClientID string
	Scopes   []string
	ParentID string
}

// IssuedToken подписанный токен вместе с его идентификатором
type IssuedToken struct {
	Token     string
	JTI       string
	Type      TokenType
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Lifetime время жизни токена по iat и exp
func (t IssuedToken) Lifetime() time.Duration {
	return t.ExpiresAt.Sub(t.IssuedAt)
}

// TokensPair содержит пару access и refresh токенов
type TokensPair struct {
	Access  IssuedToken
	Refresh IssuedToken
	Scopes  []string
}
