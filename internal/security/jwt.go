package security

import (
	"context"
	"errors"
	"fmt"
	"pkce-auth-server/config"
	"pkce-auth-server/internal/model"
	"pkce-auth-server/internal/ports"
	"pkce-auth-server/internal/util"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// JWTService : кодек access и refresh токенов. Токены подписываются HS512 разными ключами,
// jti генерируется только здесь.
type JWTService struct {
	cfg    *config.JWTConfig
	ledger ports.RevocationLedger
	now    func() time.Time
}

func NewJWTService(cfg *config.JWTConfig, ledger ports.RevocationLedger) *JWTService {
	return &JWTService{cfg: cfg, ledger: ledger, now: time.Now}
}

// WithClock подменяет часы, используется в тестах
func (s *JWTService) WithClock(now func() time.Time) *JWTService {
	s.now = now
	return s
}

func (s *JWTService) IssueAccessToken(params model.AccessTokenParams) (model.IssuedToken, error) {
	claims := &model.TokenClaims{
		TokenType: model.AccessTokenType,
		ClientID:  params.ClientID,
		Scope:     strings.Join(params.Scopes, " "),
		Email:     params.Display.Email,
		Name:      params.Display.Name,
	}
	return s.issue(claims, params.Subject, s.cfg.AccessTokenTTL, []byte(s.cfg.AccessSecret))
}

func (s *JWTService) IssueRefreshToken(params model.RefreshTokenParams) (model.IssuedToken, error) {
	claims := &model.TokenClaims{
		TokenType: model.RefreshTokenType,
		ClientID:  params.ClientID,
		Scope:     strings.Join(params.Scopes, " "),
		ParentID:  params.ParentID,
	}
	return s.issue(claims, params.Subject, s.cfg.RefreshTokenTTL, []byte(s.cfg.RefreshSecret))
}

func (s *JWTService) issue(claims *model.TokenClaims, subject string, ttl time.Duration, secret []byte) (model.IssuedToken, error) {
	if subject == "" {
		return model.IssuedToken{}, errors.New("не задан subject токена")
	}

	now := s.now()
	expiresAt := now.Add(ttl)
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   subject,
		Issuer:    s.cfg.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(secret)
	if err != nil {
		return model.IssuedToken{}, util.LogError("ошибка подписи токена", err)
	}

	return model.IssuedToken{
		Token:     signed,
		JTI:       claims.ID,
		Type:      claims.TokenType,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// VerifyAccessToken : ErrInvalidToken для невалидного токена, ErrTokenRevoked вместе с claims для отозванного,
// остальные ошибки - сбой хранилища
func (s *JWTService) VerifyAccessToken(ctx context.Context, token string) (*model.TokenClaims, error) {
	claims, err := s.parse(token, []byte(s.cfg.AccessSecret), model.AccessTokenType)
	if err != nil {
		return nil, err
	}
	if s.ledger == nil {
		return claims, nil
	}

	revoked, err := s.ledger.IsAccessTokenRevoked(ctx, claims.Subject, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("не удалось проверить отзыв токена: %w", err)
	}
	if revoked {
		return claims, ErrTokenRevoked
	}
	return s.checkSessionRevoked(ctx, claims)
}

func (s *JWTService) VerifyRefreshToken(ctx context.Context, token string) (*model.TokenClaims, error) {
	claims, err := s.parse(token, []byte(s.cfg.RefreshSecret), model.RefreshTokenType)
	if err != nil {
		return nil, err
	}
	if s.ledger == nil {
		return claims, nil
	}

	used, err := s.ledger.IsRefreshTokenUsed(ctx, claims.Subject, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("не удалось проверить refresh токен: %w", err)
	}
	if used {
		return claims, ErrTokenRevoked
	}
	return s.checkSessionRevoked(ctx, claims)
}

// checkSessionRevoked : токен, выпущенный раньше отзыва всех сессий субъекта, отклоняется.
// iat хранится в секундах, поэтому сравнение идет с началом секунды отзыва. Токены,
// выпущенные в ту же секунду до отзыва, к этому моменту уже в индексе и отозваны по jti.
func (s *JWTService) checkSessionRevoked(ctx context.Context, claims *model.TokenClaims) (*model.TokenClaims, error) {
	revokedAt, err := s.ledger.SessionsRevokedAt(ctx, claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("не удалось проверить отзыв сессий: %w", err)
	}
	if !revokedAt.IsZero() && claims.IssuedAt.Before(revokedAt.Truncate(time.Second)) {
		return claims, ErrTokenRevoked
	}
	return claims, nil
}

// DecodeUnverified : читает claims без проверки подписи.
// Результат годится только для поиска записей, доверять ему нельзя.
func (s *JWTService) DecodeUnverified(token string) (*model.TokenClaims, error) {
	claims := &model.TokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	return claims, nil
}

func (s *JWTService) parse(token string, secret []byte, expected model.TokenType) (*model.TokenClaims, error) {
	claims := &model.TokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.TokenType != expected || claims.ID == "" || claims.Subject == "" || claims.IssuedAt == nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
