package ports

import (
	"context"
	"pkce-auth-server/internal/model"
	"time"
)

type PKCEStore interface {
	Save(ctx context.Context, session *model.PKCESession) error
	Get(ctx context.Context, state string) (*model.PKCESession, error)
	Delete(ctx context.Context, state string) error
}

type AuthorizationCodeStore interface {
	Save(ctx context.Context, code, state string) error
	// Consume возвращает state и удаляет код, повторный вызов вернет ошибку
	Consume(ctx context.Context, code string) (string, error)
}

type RevocationLedger interface {
	MarkAccessTokenRevoked(ctx context.Context, subject, jti string, remaining time.Duration) error
	MarkRefreshTokenUsed(ctx context.Context, subject, jti string, ttl time.Duration) (bool, error)
	IsAccessTokenRevoked(ctx context.Context, subject, jti string) (bool, error)
	IsRefreshTokenUsed(ctx context.Context, subject, jti string) (bool, error)
	// SessionsRevokedAt возвращает нулевое время, если сессии субъекта не отзывались
	SessionsRevokedAt(ctx context.Context, subject string) (time.Time, error)
	TrackIssuedToken(ctx context.Context, subject string, token model.IssuedToken) error
	RevokeAllSessionsForSubject(ctx context.Context, subject string) (int, error)
}

type TokenCodec interface {
	IssueAccessToken(params model.AccessTokenParams) (model.IssuedToken, error)
	IssueRefreshToken(params model.RefreshTokenParams) (model.IssuedToken, error)
	VerifyAccessToken(ctx context.Context, token string) (*model.TokenClaims, error)
	VerifyRefreshToken(ctx context.Context, token string) (*model.TokenClaims, error)
	DecodeUnverified(token string) (*model.TokenClaims, error)
}

type SecurityEventSink interface {
	Publish(ctx context.Context, event model.SecurityEvent) error
}
