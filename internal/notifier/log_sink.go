package notifier

import (
	"context"
	"log/slog"
	"pkce-auth-server/internal/model"
)

// LogSink : пишет событие в журнал, reuse refresh токена на уровне error
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Publish(ctx context.Context, event model.SecurityEvent) error {
	level := slog.LevelWarn
	if event.Type == model.RefreshTokenReuseDetected || event.Type == model.SessionsRevoked {
		level = slog.LevelError
	}
	s.logger.Log(ctx, level, "событие безопасности",
		slog.String("type", string(event.Type)),
		slog.String("subject", event.Subject),
		slog.String("client_id", event.ClientID),
		slog.String("jti", event.TokenID),
		slog.String("remote_addr", event.RemoteAddr),
		slog.Int("revoked", event.Revoked),
	)
	return nil
}
